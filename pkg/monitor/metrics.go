package monitor

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KamalSDhami/zencube/pkg/hermes"
)

// MetricsBridge publishes per-run_id CPU% and RSS gauges over an HTTP
// /metrics endpoint when enabled, mirroring the optional exporter this
// package's sampling logic is grounded on. It is metrics export only;
// no alerting/threshold evaluation is implemented here.
type MetricsBridge struct {
	metrics *hermes.PrometheusMetrics
	server  *http.Server
}

// NewMetricsBridge starts an HTTP server on port serving Prometheus's
// default handler and returns a bridge whose Observe method publishes
// samples as gauges.
func NewMetricsBridge(port int) *MetricsBridge {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go srv.ListenAndServe()

	return &MetricsBridge{
		metrics: hermes.NewPrometheusMetrics(),
		server:  srv,
	}
}

// Observe publishes one sample's CPU% and RSS under runID.
func (b *MetricsBridge) Observe(runID string, s Sample) {
	b.metrics.SetGauge("zencube_cpu_percent", s.CPUPercent, hermes.Label{Key: "run_id", Value: runID})
	b.metrics.SetGauge("zencube_memory_rss_bytes", float64(s.MemoryRSS), hermes.Label{Key: "run_id", Value: runID})
}

// Close shuts down the metrics HTTP server.
func (b *MetricsBridge) Close(ctx context.Context) error {
	return b.server.Shutdown(ctx)
}

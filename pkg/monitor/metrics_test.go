package monitor

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestMetricsBridgePublishesGauges(t *testing.T) {
	port := freePort(t)
	bridge := NewMetricsBridge(port)
	defer bridge.Close(context.Background())

	bridge.Observe("run-xyz", Sample{CPUPercent: 12.5, MemoryRSS: 4096})

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/metrics", port))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return false
		}
		body = string(b)
		return true
	}, 2*time.Second, 20*time.Millisecond)

	assert.Contains(t, body, "zencube_cpu_percent")
	assert.Contains(t, body, "zencube_memory_rss_bytes")
	assert.Contains(t, body, `run_id="run-xyz"`)
}

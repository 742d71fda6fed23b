package hermes

import (
	"context"

	"go.uber.org/zap"
)

// ZapAdapter backs Logger with a structured zap logger. Human-readable
// output is produced separately by the supervisor's own report path;
// this adapter is the machine-facing sink threaded through components.
type ZapAdapter struct {
	logger *zap.Logger
}

// NewZapAdapter builds a production JSON zap logger writing to stderr.
func NewZapAdapter() *ZapAdapter {
	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewNop()
	}
	return &ZapAdapter{logger: logger}
}

func (l *ZapAdapter) Info(ctx context.Context, msg string, fields map[string]any) {
	l.logger.Info(msg, fieldsToZap(fields)...)
}

func (l *ZapAdapter) Error(ctx context.Context, msg string, fields map[string]any) {
	l.logger.Error(msg, fieldsToZap(fields)...)
}

// Sync flushes buffered log entries; callers should defer it from main.
func (l *ZapAdapter) Sync() error {
	return l.logger.Sync()
}

func fieldsToZap(fields map[string]any) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}

type NoopMetrics struct{}

func NewNoopMetrics() *NoopMetrics {
	return &NoopMetrics{}
}

func (m *NoopMetrics) IncCounter(name string, value float64, labels ...Label)       {}
func (m *NoopMetrics) ObserveHistogram(name string, value float64, labels ...Label) {}
func (m *NoopMetrics) SetGauge(name string, value float64, labels ...Label)         {}

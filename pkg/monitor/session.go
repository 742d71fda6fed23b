package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// MonitorSession ties one attached PID to one append-only JSONL log.
type MonitorSession struct {
	RunID    string
	PID      int
	Interval time.Duration

	inspector *ProcessInspector
	file      *os.File
	enc       *json.Encoder

	startedAt time.Time
	sampleN   int
	peakCPU   float64
	peakRSS   int64

	// Metrics, if set, receives every sample for Prometheus export.
	Metrics *MetricsBridge
}

// LogPath builds the active-log path for pid under dir, matching the
// `monitor_run_<UTC-timestamp>_<pid>.jsonl` naming convention.
func LogPath(dir string, pid int) string {
	stamp := time.Now().UTC().Format("20060102T150405Z")
	return filepath.Join(dir, fmt.Sprintf("monitor_run_%s_%d.jsonl", stamp, pid))
}

// Attach opens the session's log and emits the start event. It does
// not begin sampling; call Run to drive the sampling loop.
func Attach(logDir string, pid int, runID string, interval time.Duration) (*MonitorSession, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("create monitor log dir: %w", err)
	}
	insp, err := NewProcessInspector(pid)
	if err != nil {
		return nil, err
	}

	path := LogPath(logDir, pid)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open monitor log %q: %w", path, err)
	}

	s := &MonitorSession{
		RunID:     runID,
		PID:       pid,
		Interval:  interval,
		inspector: insp,
		file:      f,
		enc:       json.NewEncoder(f),
		startedAt: time.Now(),
	}

	start := StartEvent{
		Event:     "start",
		RunID:     runID,
		PID:       pid,
		Timestamp: isoTimestamp(),
		Interval:  interval.Seconds(),
	}
	if err := s.enc.Encode(start); err != nil {
		f.Close()
		return nil, fmt.Errorf("write start event: %w", err)
	}

	return s, nil
}

// Run samples on a monotonic tick until ctx is cancelled or the
// process disappears, then emits the stop event and closes the log.
// The sampler is single-threaded: ticks never overlap, so timestamps
// are monotonically non-decreasing.
func (s *MonitorSession) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return s.detach(nil)
		case <-ticker.C:
			if !s.inspector.IsRunning() {
				return s.detach(nil)
			}
			sample, err := s.inspector.Sample()
			if err != nil {
				return s.detach(nil)
			}
			if err := s.enc.Encode(sample); err != nil {
				return fmt.Errorf("write sample: %w", err)
			}
			if s.Metrics != nil {
				s.Metrics.Observe(s.RunID, sample)
			}
			s.sampleN++
			if sample.CPUPercent > s.peakCPU {
				s.peakCPU = sample.CPUPercent
			}
			if sample.MemoryRSS > s.peakRSS {
				s.peakRSS = sample.MemoryRSS
			}
		}
	}
}

func (s *MonitorSession) detach(exitCode *int) error {
	defer s.file.Close()
	stop := StopEvent{
		Event:       "stop",
		RunID:       s.RunID,
		Timestamp:   isoTimestamp(),
		SampleCount: s.sampleN,
		DurationSec: time.Since(s.startedAt).Seconds(),
		PeakCPU:     s.peakCPU,
		PeakRSS:     s.peakRSS,
		ExitCode:    exitCode,
	}
	return s.enc.Encode(stop)
}

// Package monitor samples a supervised child's resource usage out of
// process and writes an append-only JSONL event log.
package monitor

import "time"

// Sample is a single point-in-time snapshot of a process's resource
// consumption.
type Sample struct {
	Event      string  `json:"event"`
	Timestamp  string  `json:"timestamp"`
	CPUPercent float64 `json:"cpu_percent"`
	MemoryRSS  int64   `json:"memory_rss"`
	MemoryVMS  *int64  `json:"memory_vms,omitempty"`
	Threads    int     `json:"threads"`
	OpenFiles  *int    `json:"open_files,omitempty"`
	ReadBytes  *int64  `json:"read_bytes,omitempty"`
	WriteBytes *int64  `json:"write_bytes,omitempty"`
}

// StartEvent opens a MonitorSession's log.
type StartEvent struct {
	Event     string  `json:"event"`
	RunID     string  `json:"run_id"`
	PID       int     `json:"pid"`
	Timestamp string  `json:"timestamp"`
	Interval  float64 `json:"sample_interval"`
}

// StopEvent closes a MonitorSession's log.
type StopEvent struct {
	Event       string  `json:"event"`
	RunID       string  `json:"run_id"`
	Timestamp   string  `json:"timestamp"`
	SampleCount int     `json:"sample_count"`
	DurationSec float64 `json:"duration_seconds"`
	PeakCPU     float64 `json:"peak_cpu_percent"`
	PeakRSS     int64   `json:"peak_memory_rss"`
	ExitCode    *int    `json:"exit_code,omitempty"`
}

// Summary is the MonitorSession's computed-at-stop rollup.
type Summary struct {
	Count    int
	Duration time.Duration
	PeakCPU  float64
	PeakRSS  int64
}

func isoTimestamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

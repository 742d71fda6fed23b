package monitor

import (
	"bufio"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// ErrNotRunning indicates the target process has exited or is
// otherwise unobservable.
var ErrNotRunning = fmt.Errorf("process is not running")

// ProcessInspector collects lightweight resource metrics for a single
// PID. It prefers gopsutil and falls back to parsing /proc/<pid>
// directly when gopsutil cannot observe the process (translating the
// psutil/"/proc" duality of the Python sampler this package is
// grounded on into Go's gopsutil/"/proc" duality).
type ProcessInspector struct {
	pid      int
	cpuCount int

	gopsutilProc *process.Process

	clockTicks    int64
	pageSize      int64
	lastTotalTime int64
	lastSampleAt  time.Time
	fallback      bool
}

// NewProcessInspector attaches to pid, priming whichever backend is
// available.
func NewProcessInspector(pid int) (*ProcessInspector, error) {
	insp := &ProcessInspector{pid: pid, cpuCount: runtime.NumCPU()}

	if p, err := process.NewProcess(int32(pid)); err == nil {
		if _, cpuErr := p.CPUPercent(); cpuErr == nil {
			insp.gopsutilProc = p
			return insp, nil
		}
	}

	if _, err := os.Stat(procPath(pid, "stat")); err != nil {
		return nil, fmt.Errorf("%w: pid %d", ErrNotRunning, pid)
	}
	insp.fallback = true
	insp.clockTicks = 100 // SC_CLK_TCK is 100 on virtually all Linux configurations
	insp.pageSize = int64(os.Getpagesize())
	if _, err := insp.readProcStat(); err != nil {
		return nil, err
	}
	return insp, nil
}

// IsRunning reports whether the process can still be observed.
func (insp *ProcessInspector) IsRunning() bool {
	if insp.gopsutilProc != nil {
		running, err := insp.gopsutilProc.IsRunning()
		return err == nil && running
	}
	_, err := os.Stat(procPath(insp.pid, ""))
	return err == nil
}

// Sample takes one resource snapshot. A transient failure to obtain a
// field is reported as an absent field on the Sample, never as a
// sample-skipping error — only total unobservability returns an error.
func (insp *ProcessInspector) Sample() (Sample, error) {
	ts := isoTimestamp()
	if insp.gopsutilProc != nil {
		return insp.sampleGopsutil(ts)
	}
	return insp.sampleFallback(ts)
}

func (insp *ProcessInspector) sampleGopsutil(ts string) (Sample, error) {
	cpuPct, err := insp.gopsutilProc.CPUPercent()
	if err != nil {
		return Sample{}, fmt.Errorf("%w: pid %d exited during sampling", ErrNotRunning, insp.pid)
	}

	s := Sample{Event: "sample", Timestamp: ts, CPUPercent: cpuPct}

	if mem, err := insp.gopsutilProc.MemoryInfo(); err == nil && mem != nil {
		s.MemoryRSS = int64(mem.RSS)
		vms := int64(mem.VMS)
		s.MemoryVMS = &vms
	}
	if threads, err := insp.gopsutilProc.NumThreads(); err == nil {
		s.Threads = int(threads)
	}
	if files, err := insp.gopsutilProc.OpenFiles(); err == nil {
		n := len(files)
		s.OpenFiles = &n
	}
	if io, err := insp.gopsutilProc.IOCounters(); err == nil && io != nil {
		r := int64(io.ReadBytes)
		w := int64(io.WriteBytes)
		s.ReadBytes = &r
		s.WriteBytes = &w
	}
	return s, nil
}

type procStatSnapshot struct {
	totalTime int64
	threads   int
	vsize     int64
	rss       int64
}

func (insp *ProcessInspector) sampleFallback(ts string) (Sample, error) {
	snap, err := insp.readProcStat()
	if err != nil {
		return Sample{}, err
	}
	now := time.Now()

	var cpuPct float64
	if !insp.lastSampleAt.IsZero() {
		cpuTimeDeltaTicks := snap.totalTime - insp.lastTotalTime
		wallDelta := now.Sub(insp.lastSampleAt).Seconds()
		if wallDelta < 1e-6 {
			wallDelta = 1e-6
		}
		cpuSeconds := float64(cpuTimeDeltaTicks) / float64(insp.clockTicks)
		cpuPct = (cpuSeconds / wallDelta) * 100.0 / float64(insp.cpuCount)
		if cpuPct < 0 {
			cpuPct = 0
		}
	}
	insp.lastTotalTime = snap.totalTime
	insp.lastSampleAt = now

	rssBytes := snap.rss * insp.pageSize
	vms := snap.vsize

	s := Sample{
		Event:      "sample",
		Timestamp:  ts,
		CPUPercent: cpuPct,
		MemoryRSS:  rssBytes,
		MemoryVMS:  &vms,
		Threads:    snap.threads,
	}

	if n, err := insp.countOpenFiles(); err == nil {
		s.OpenFiles = &n
	}
	if r, w, err := insp.readProcIO(); err == nil {
		s.ReadBytes = &r
		s.WriteBytes = &w
	}
	return s, nil
}

// readProcStat parses /proc/<pid>/stat fields 14/15 (utime/stime),
// 20 (threads), 23 (vsize), 24 (rss pages) — 1-indexed as in proc(5).
func (insp *ProcessInspector) readProcStat() (procStatSnapshot, error) {
	data, err := os.ReadFile(procPath(insp.pid, "stat"))
	if err != nil {
		return procStatSnapshot{}, fmt.Errorf("%w: pid %d exited before sampling", ErrNotRunning, insp.pid)
	}
	// Fields after the process name (which may itself contain spaces
	// and is parenthesised) start after the closing ')'.
	content := string(data)
	closeParen := strings.LastIndexByte(content, ')')
	if closeParen < 0 {
		return procStatSnapshot{}, fmt.Errorf("unexpected /proc/%d/stat format", insp.pid)
	}
	fields := strings.Fields(content[closeParen+1:])
	// fields[0] is state (field 3); utime is field 14, i.e. fields[11].
	if len(fields) < 21 {
		return procStatSnapshot{}, fmt.Errorf("unexpected /proc/%d/stat format", insp.pid)
	}
	utime, _ := strconv.ParseInt(fields[11], 10, 64)
	stime, _ := strconv.ParseInt(fields[12], 10, 64)
	threads, _ := strconv.Atoi(fields[17])
	vsize, _ := strconv.ParseInt(fields[20], 10, 64)
	var rss int64
	if len(fields) > 21 {
		rss, _ = strconv.ParseInt(fields[21], 10, 64)
	}
	return procStatSnapshot{totalTime: utime + stime, threads: threads, vsize: vsize, rss: rss}, nil
}

func (insp *ProcessInspector) countOpenFiles() (int, error) {
	entries, err := os.ReadDir(procPath(insp.pid, "fd"))
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (insp *ProcessInspector) readProcIO() (read, write int64, err error) {
	f, err := os.Open(procPath(insp.pid, "io"))
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "read_bytes":
			read, _ = strconv.ParseInt(value, 10, 64)
		case "write_bytes":
			write, _ = strconv.ParseInt(value, 10, 64)
		}
	}
	return read, write, nil
}

func procPath(pid int, sub string) string {
	if sub == "" {
		return fmt.Sprintf("/proc/%d", pid)
	}
	return fmt.Sprintf("/proc/%d/%s", pid, sub)
}

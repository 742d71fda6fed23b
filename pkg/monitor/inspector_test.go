package monitor

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProcessInspectorAttachesToSelf(t *testing.T) {
	insp, err := NewProcessInspector(os.Getpid())
	require.NoError(t, err)
	assert.True(t, insp.IsRunning())
}

func TestNewProcessInspectorRejectsDeadPID(t *testing.T) {
	// PID 1 belongs to init in most containers; a very large PID is
	// overwhelmingly likely to be unallocated instead.
	_, err := NewProcessInspector(1 << 30)
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestProcessInspectorSampleProducesNonNegativeFields(t *testing.T) {
	insp, err := NewProcessInspector(os.Getpid())
	require.NoError(t, err)

	s, err := insp.Sample()
	require.NoError(t, err)
	assert.Equal(t, "sample", s.Event)
	assert.NotEmpty(t, s.Timestamp)
	assert.GreaterOrEqual(t, s.MemoryRSS, int64(0))
	assert.GreaterOrEqual(t, s.Threads, 0)
}

func TestReadProcStatHandlesParenthesizedCommField(t *testing.T) {
	insp := &ProcessInspector{pid: os.Getpid(), clockTicks: 100, pageSize: int64(os.Getpagesize())}
	snap, err := insp.readProcStat()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, snap.threads, 1)
	assert.GreaterOrEqual(t, snap.vsize, int64(0))
}

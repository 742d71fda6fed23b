//go:build linux

package supervisor

import (
	"os/exec"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KamalSDhami/zencube/pkg/policy"
)

func waitStatusFor(t *testing.T, cmd *exec.Cmd) syscall.WaitStatus {
	t.Helper()
	err := cmd.Wait()
	if err == nil {
		status, ok := cmd.ProcessState.Sys().(syscall.WaitStatus)
		require.True(t, ok)
		return status
	}
	exitErr, ok := err.(*exec.ExitError)
	require.True(t, ok)
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	require.True(t, ok)
	return status
}

func TestClassifyNormalExit(t *testing.T) {
	cmd := exec.Command("true")
	require.NoError(t, cmd.Start())
	status := waitStatusFor(t, cmd)

	run := &ChildRun{}
	flags, err := classify(run, status, policy.Policy{})
	require.NoError(t, err)
	assert.True(t, run.ExitedNormally)
	assert.Equal(t, 0, run.ExitCode)
	assert.False(t, flags.CPULimitExceeded)
}

func TestClassifyNonZeroExit(t *testing.T) {
	cmd := exec.Command("false")
	require.NoError(t, cmd.Start())
	status := waitStatusFor(t, cmd)

	run := &ChildRun{}
	_, err := classify(run, status, policy.Policy{})
	require.NoError(t, err)
	assert.True(t, run.ExitedNormally)
	assert.Equal(t, 1, run.ExitCode)
}

func TestClassifySignaledCPU(t *testing.T) {
	run := &ChildRun{}
	status := makeSignaledStatus(syscall.SIGXCPU)
	flags, err := classify(run, status, policy.Policy{CPUSeconds: 3})
	require.NoError(t, err)
	assert.True(t, run.TerminatedBySignal)
	assert.True(t, flags.CPULimitExceeded)
}

func TestClassifySignaledFileSize(t *testing.T) {
	run := &ChildRun{}
	status := makeSignaledStatus(syscall.SIGXFSZ)
	flags, err := classify(run, status, policy.Policy{FileBytes: 1 << 20})
	require.NoError(t, err)
	assert.True(t, flags.FileSizeLimitExceeded)
}

func TestClassifySignaledKillAttributesMemoryOnlyWhenRequested(t *testing.T) {
	run := &ChildRun{}
	status := makeSignaledStatus(syscall.SIGKILL)

	flags, err := classify(run, status, policy.Policy{MemoryBytes: 50 << 20})
	require.NoError(t, err)
	assert.True(t, flags.MemoryLimitExceeded)

	run2 := &ChildRun{}
	flags2, err := classify(run2, status, policy.Policy{})
	require.NoError(t, err)
	assert.False(t, flags2.MemoryLimitExceeded)
}

//go:build linux

package enforcer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildNetworkDenyFilterLength(t *testing.T) {
	prog, err := buildNetworkDenyFilter(deniedNetworkSyscalls)
	require.NoError(t, err)

	// load + one cmp per syscall + allow + one deny per syscall
	want := 1 + len(deniedNetworkSyscalls) + 1 + len(deniedNetworkSyscalls)
	assert.EqualValues(t, want, prog.Len)
}

func TestBuildNetworkDenyFilterUnknownSyscall(t *testing.T) {
	_, err := buildNetworkDenyFilter([]string{"not_a_real_syscall"})
	assert.Error(t, err)
}

func TestSyscallNumberKnown(t *testing.T) {
	_, ok := syscallNumber("connect")
	assert.True(t, ok)
}

func TestSyscallNumberUnknown(t *testing.T) {
	_, ok := syscallNumber("definitely_not_a_syscall")
	assert.False(t, ok)
}

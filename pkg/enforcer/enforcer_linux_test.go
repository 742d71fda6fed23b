//go:build linux

package enforcer

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KamalSDhami/zencube/pkg/policy"
)

func TestApplyJailOnExistingDirInstallsOrWarns(t *testing.T) {
	dir := t.TempDir()
	// applyJail chdir()s as its first step; restore the test process's
	// working directory afterward so later tests aren't affected.
	cwd, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(cwd)

	var cov Coverage
	err = applyJail(dir, &cov)
	require.NoError(t, err)

	if os.Geteuid() == 0 {
		// Running with CAP_SYS_CHROOT: the jail actually installs.
		assert.True(t, cov.Jail)
		assert.Empty(t, cov.Warnings)
	} else {
		// Unprivileged: chroot fails with EPERM, which is a warning,
		// not a fatal error — the child still gets to exec.
		assert.False(t, cov.Jail)
		assert.NotEmpty(t, cov.Warnings)
	}
}

func TestApplyJailFailsOnMissingDir(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(cwd)

	var cov Coverage
	err = applyJail("/nonexistent/path/for/jail/test", &cov)
	assert.Error(t, err)
}

func TestEnforceNoPolicyIsNoop(t *testing.T) {
	cov, err := Enforce(policy.Policy{})
	require.NoError(t, err)
	assert.False(t, cov.CPULimit)
	assert.False(t, cov.MemoryLimit)
	assert.False(t, cov.ProcessLimit)
	assert.False(t, cov.FileLimit)
	assert.False(t, cov.Jail)
	assert.False(t, cov.NetworkFilter)
}

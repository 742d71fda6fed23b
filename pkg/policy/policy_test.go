package policy

import (
	"os"
	"testing"

	"github.com/google/shlex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBareTarget(t *testing.T) {
	p, err := Parse([]string{"/bin/echo", "hello"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/bin/echo", "hello"}, p.TargetArgv)
	assert.Zero(t, p.CPUSeconds)
}

func TestParseCPULimit(t *testing.T) {
	p, err := Parse([]string{"cpu=3", "./spin"})
	require.NoError(t, err)
	assert.Equal(t, 3, p.CPUSeconds)
	assert.Equal(t, []string{"./spin"}, p.TargetArgv)
}

func TestParseMemConvertsToBytes(t *testing.T) {
	p, err := Parse([]string{"mem=50", "./alloc"})
	require.NoError(t, err)
	assert.EqualValues(t, 50*megabyte, p.MemoryBytes)
}

func TestParseMultipleOptions(t *testing.T) {
	p, err := Parse([]string{"cpu=10", "procs=5", "fsize=100", "no-net", "./app"})
	require.NoError(t, err)
	assert.Equal(t, 10, p.CPUSeconds)
	assert.Equal(t, 5, p.MaxProcesses)
	assert.EqualValues(t, 100*megabyte, p.FileBytes)
	assert.True(t, p.DisableNetwork)
}

func TestParseDoubleDashTerminator(t *testing.T) {
	p, err := Parse([]string{"no-net", "--", "no-net", "looks-like-an-option"})
	require.NoError(t, err)
	assert.True(t, p.DisableNetwork)
	assert.Equal(t, []string{"no-net", "looks-like-an-option"}, p.TargetArgv)
}

func TestParseHelp(t *testing.T) {
	_, err := Parse([]string{"help"})
	assert.ErrorIs(t, err, ErrHelpRequested)
}

func TestParseNegativeValueFails(t *testing.T) {
	_, err := Parse([]string{"cpu=-1", "./x"})
	assert.Error(t, err)
}

func TestParseNonNumericValueFails(t *testing.T) {
	_, err := Parse([]string{"cpu=abc", "./x"})
	assert.Error(t, err)
}

func TestParseEmptyJailValueFails(t *testing.T) {
	_, err := Parse([]string{"jail=", "./x"})
	assert.Error(t, err)
}

func TestParseNoTargetFails(t *testing.T) {
	_, err := Parse([]string{"cpu=3"})
	assert.Error(t, err)
}

func TestParseJailPathMustExist(t *testing.T) {
	_, err := Parse([]string{"jail=/nonexistent/path/zzz", "/bin/true"})
	assert.Error(t, err)
}

func TestParseUnknownOptionFails(t *testing.T) {
	_, err := Parse([]string{"fooo=3", "./x"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown option")
}

func TestParseUnknownDashPrefixedTokenFails(t *testing.T) {
	_, err := Parse([]string{"--bogus", "./x"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown option")
}

func TestValidateJailPathRejectsFile(t *testing.T) {
	dir := t.TempDir()
	file := dir + "/notadir"
	f, err := os.Create(file)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = ValidateJailPath(file)
	assert.Error(t, err)
}

func TestValidateJailPathAcceptsDir(t *testing.T) {
	dir := t.TempDir()
	resolved, err := ValidateJailPath(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, resolved)
}

func TestPolicyStringIsReparseable(t *testing.T) {
	p, err := Parse([]string{"cpu=3", "mem=50", "procs=5", "fsize=100", "no-net", "/bin/echo", "hi"})
	require.NoError(t, err)

	line := p.String()
	tokens, err := shlex.Split(line)
	require.NoError(t, err)

	reparsed, err := Parse(tokens)
	require.NoError(t, err)

	assert.Equal(t, p.CPUSeconds, reparsed.CPUSeconds)
	assert.Equal(t, p.MemoryBytes, reparsed.MemoryBytes)
	assert.Equal(t, p.MaxProcesses, reparsed.MaxProcesses)
	assert.Equal(t, p.FileBytes, reparsed.FileBytes)
	assert.Equal(t, p.DisableNetwork, reparsed.DisableNetwork)
	assert.Equal(t, p.TargetArgv, reparsed.TargetArgv)
}

func TestPolicyStringIsReparseableWithSpacesInTargetArg(t *testing.T) {
	p, err := Parse([]string{"/bin/echo", "hello world"})
	require.NoError(t, err)

	line := p.String()
	tokens, err := shlex.Split(line)
	require.NoError(t, err)

	reparsed, err := Parse(tokens)
	require.NoError(t, err)
	assert.Equal(t, p.TargetArgv, reparsed.TargetArgv)
}

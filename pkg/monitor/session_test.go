package monitor

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachWritesStartEvent(t *testing.T) {
	cmd := exec.Command("sleep", "5")
	require.NoError(t, cmd.Start())
	defer cmd.Process.Kill()

	dir := t.TempDir()
	session, err := Attach(dir, cmd.Process.Pid, "run-1", 50*time.Millisecond)
	require.NoError(t, err)
	defer session.file.Close()

	assert.Equal(t, "run-1", session.RunID)
	assert.Equal(t, cmd.Process.Pid, session.PID)

	lines := readLines(t, session.file.Name())
	require.Len(t, lines, 1)

	var start StartEvent
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &start))
	assert.Equal(t, "start", start.Event)
	assert.Equal(t, "run-1", start.RunID)
}

func TestSessionRunStopsWhenProcessExits(t *testing.T) {
	cmd := exec.Command("sleep", "0.2")
	require.NoError(t, cmd.Start())

	dir := t.TempDir()
	session, err := Attach(dir, cmd.Process.Pid, "run-2", 20*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = session.Run(ctx)
	require.NoError(t, err)
	cmd.Wait()

	lines := readLines(t, filepath.Join(dir, filepath.Base(session.file.Name())))
	require.GreaterOrEqual(t, len(lines), 2)

	var stop StopEvent
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &stop))
	assert.Equal(t, "stop", stop.Event)
	assert.Equal(t, "run-2", stop.RunID)
}

func TestSessionRunStopsOnContextCancel(t *testing.T) {
	cmd := exec.Command("sleep", "5")
	require.NoError(t, cmd.Start())
	defer cmd.Process.Kill()

	dir := t.TempDir()
	session, err := Attach(dir, cmd.Process.Pid, "run-3", 20*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- session.Run(ctx) }()

	time.Sleep(60 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

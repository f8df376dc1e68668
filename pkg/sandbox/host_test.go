package sandbox

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHost(t *testing.T) *HostSandbox {
	t.Helper()
	sb, err := NewHostSandbox(DefaultConfig())
	require.NoError(t, err)
	return sb
}

func TestHostSandbox_Execute_SimpleCommand(t *testing.T) {
	sb := newHost(t)

	result, err := sb.Execute(context.Background(), ExecuteRequest{
		Command: "echo",
		Args:    []string{"hello", "world"},
		Timeout: 5 * time.Second,
	})

	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "hello world\n", string(result.Stdout))
	assert.Empty(t, result.Stderr)
}

func TestHostSandbox_Execute_NonZeroExit(t *testing.T) {
	sb := newHost(t)

	result, err := sb.Execute(context.Background(), ExecuteRequest{
		Command: "sh",
		Args:    []string{"-c", "echo oops >&2; exit 3"},
	})

	require.NoError(t, err)
	assert.Equal(t, 3, result.ExitCode)
	assert.Equal(t, "oops\n", string(result.Stderr))
}

func TestHostSandbox_Execute_WorkingDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker.txt"), []byte("x"), 0o644))
	sb := newHost(t)

	result, err := sb.Execute(context.Background(), ExecuteRequest{
		Command:    "ls",
		WorkingDir: dir,
	})

	require.NoError(t, err)
	assert.Contains(t, string(result.Stdout), "marker.txt")
}

func TestHostSandbox_Execute_Environment(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Env = map[string]string{"FROM_CONFIG": "a"}
	sb, err := NewHostSandbox(cfg)
	require.NoError(t, err)

	result, err := sb.Execute(context.Background(), ExecuteRequest{
		Command: "sh",
		Args:    []string{"-c", "echo $HOME $FROM_CONFIG $FROM_REQUEST"},
		Env:     map[string]string{"FROM_REQUEST": "b"},
	})

	require.NoError(t, err)
	assert.Equal(t, "/tmp a b\n", string(result.Stdout))
}

func TestHostSandbox_Execute_Timeout(t *testing.T) {
	sb := newHost(t)

	start := time.Now()
	result, err := sb.Execute(context.Background(), ExecuteRequest{
		Command: "sleep",
		Args:    []string{"10"},
		Timeout: 100 * time.Millisecond,
	})

	assert.ErrorIs(t, err, ErrExecutionTimeout)
	assert.Equal(t, -1, result.ExitCode)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestHostSandbox_Execute_ParentCancelled(t *testing.T) {
	sb := newHost(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sb.Execute(ctx, ExecuteRequest{Command: "sleep", Args: []string{"1"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHostSandbox_Execute_MissingBinary(t *testing.T) {
	sb := newHost(t)

	_, err := sb.Execute(context.Background(), ExecuteRequest{Command: "definitely-not-a-binary-xyz"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrExecutionTimeout)
}

func TestHostSandbox_Execute_EmptyCommand(t *testing.T) {
	sb := newHost(t)

	_, err := sb.Execute(context.Background(), ExecuteRequest{Command: "  "})
	assert.ErrorIs(t, err, ErrCommandRequired)
}

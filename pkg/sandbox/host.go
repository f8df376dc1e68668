package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// waitDelay bounds how long Execute waits for inherited pipes to close after
// the process has been killed.
const waitDelay = 2 * time.Second

// HostSandbox runs commands as child processes with a minimal environment.
type HostSandbox struct {
	config Config
}

// NewHostSandbox creates a new host-based sandbox
func NewHostSandbox(config Config) (*HostSandbox, error) {
	if config.Runtime == "" {
		config.Runtime = RuntimeHost
	}
	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &HostSandbox{config: config}, nil
}

// Runtime reports RuntimeHost.
func (h *HostSandbox) Runtime() Runtime { return RuntimeHost }

// Execute runs a command on the host
func (h *HostSandbox) Execute(ctx context.Context, req ExecuteRequest) (ExecuteResult, error) {
	if strings.TrimSpace(req.Command) == "" {
		return ExecuteResult{}, ErrCommandRequired
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = h.config.Limits.Timeout
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, req.Command, req.Args...)
	cmd.Dir = req.WorkingDir
	cmd.Env = buildEnvironment(h.config.Env, req.Env)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	return collect(execCtx, ctx, req, err, stdout.Bytes(), stderr.Bytes(), duration, timeout)
}

// collect turns the outcome of cmd.Run into an ExecuteResult. Shared by the
// host and docker backends.
func collect(execCtx, parent context.Context, req ExecuteRequest, err error, stdout, stderr []byte, duration, timeout time.Duration) (ExecuteResult, error) {
	result := ExecuteResult{
		Stdout:   stdout,
		Stderr:   stderr,
		Duration: duration,
	}

	// Check for timeout first
	if errors.Is(execCtx.Err(), context.DeadlineExceeded) && parent.Err() == nil {
		result.ExitCode = -1
		log.Warn().
			Str("command", req.Command).
			Dur("timeout", timeout).
			Msg("Command timed out")
		return result, fmt.Errorf("%w after %s", ErrExecutionTimeout, timeout)
	}
	if parent.Err() != nil {
		result.ExitCode = -1
		return result, parent.Err()
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return result, fmt.Errorf("failed to run %s: %w", req.Command, err)
		}
		result.ExitCode = exitErr.ExitCode()
	}

	log.Debug().
		Str("command", req.Command).
		Strs("args", req.Args).
		Int("exit_code", result.ExitCode).
		Dur("duration", duration).
		Msg("Command executed in sandbox")

	return result, nil
}

// buildEnvironment starts from a minimal environment and layers the
// configured and per-request variables on top, in sorted key order.
func buildEnvironment(layers ...map[string]string) []string {
	env := map[string]string{
		"PATH": "/usr/local/bin:/usr/bin:/bin",
		"HOME": "/tmp",
	}
	for _, layer := range layers {
		for key, value := range layer {
			env[key] = value
		}
	}

	keys := make([]string, 0, len(env))
	for key := range env {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make([]string, 0, len(keys))
	for _, key := range keys {
		result = append(result, key+"="+env[key])
	}
	return result
}

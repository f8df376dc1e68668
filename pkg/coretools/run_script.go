package coretools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/harun/warden/pkg/sandbox"
	"github.com/harun/warden/pkg/workspace"
)

// RunScript executes a script under the root through the configured
// interpreter and sandbox, with the root as working directory. A non-zero
// exit is reported in the text, not as an error.
func (c *Catalog) RunScript(ctx context.Context, p RunScriptParams) (string, error) {
	if err := c.checkRoot(KindRunScript, p.WorkingDirectory); err != nil {
		return "", err
	}

	target, err := c.root.Resolve(p.FilePath, workspace.OpExecute)
	if err != nil {
		return "", confinement(KindRunScript, err)
	}

	info, err := os.Stat(target)
	if err != nil || !info.Mode().IsRegular() {
		return "", failf(KindRunScript, err, "\"%s\" does not exist or is not a regular file", p.FilePath)
	}

	argv, ok := c.interpreters.Command(target, p.Args)
	if !ok {
		return "", failf(KindRunScript, nil, "\"%s\" is not a recognized script (allowed extensions: %s)",
			p.FilePath, strings.Join(c.interpreters.Extensions(), ", "))
	}

	result, err := c.sandbox.Execute(ctx, sandbox.ExecuteRequest{
		Command:    argv[0],
		Args:       argv[1:],
		WorkingDir: c.root.Path(),
		Timeout:    c.scriptTimeout,
	})
	if err != nil {
		if errors.Is(err, sandbox.ErrExecutionTimeout) {
			return "", failf(KindRunScript, err, "executing \"%s\": execution timed out after %s", p.FilePath, c.scriptTimeout)
		}
		return "", failf(KindRunScript, err, "executing \"%s\": %v", p.FilePath, err)
	}

	c.logger.Debug().
		Str("file", p.FilePath).
		Str("runtime", string(c.sandbox.Runtime())).
		Int("exit_code", result.ExitCode).
		Dur("duration", result.Duration).
		Msg("Ran script")

	return summarize(result), nil
}

// summarize renders the exit code (when non-zero), then trimmed stdout and
// stderr, or "No output produced" when both are empty.
func summarize(result sandbox.ExecuteResult) string {
	var parts []string
	if result.ExitCode != 0 {
		parts = append(parts, fmt.Sprintf("Process exited with code %d", result.ExitCode))
	}

	stdout := strings.TrimSpace(string(result.Stdout))
	stderr := strings.TrimSpace(string(result.Stderr))

	if stdout == "" && stderr == "" {
		parts = append(parts, "No output produced")
	} else {
		if stdout != "" {
			parts = append(parts, "STDOUT:\n"+stdout)
		}
		if stderr != "" {
			parts = append(parts, "STDERR:\n"+stderr)
		}
	}
	return strings.Join(parts, "\n")
}

// Package sandbox runs external commands with a wall-clock timeout and
// captures their stdout, stderr and exit code. The backend (host process or
// ephemeral docker container) is chosen by configuration so callers never
// depend on how the process is spawned.
package sandbox

import (
	"context"
	"fmt"
	"time"
)

// Runtime selects the execution backend.
type Runtime string

const (
	// RuntimeHost runs commands as child processes of warden.
	RuntimeHost Runtime = "host"
	// RuntimeDocker runs every command in a fresh `docker run --rm` container.
	RuntimeDocker Runtime = "docker"
)

// Config defines sandbox configuration
type Config struct {
	// Runtime selects the backend (host, docker)
	Runtime Runtime `json:"runtime" mapstructure:"runtime"`

	// Limits bounds every execution
	Limits Limits `json:"limits" mapstructure:"limits"`

	// Network allows network access from docker containers
	Network bool `json:"network" mapstructure:"network"`

	// Env is added to the minimal environment of every command
	Env map[string]string `json:"env" mapstructure:"env"`

	// Docker holds docker runtime settings
	Docker DockerConfig `json:"docker" mapstructure:"docker"`
}

// Limits defines resource constraints for a single execution
type Limits struct {
	// Timeout is the default wall-clock bound when a request sets none
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxCPU limits CPU usage (percentage, 0-100, docker only)
	MaxCPU int `json:"max_cpu" mapstructure:"max_cpu"`

	// MaxMemoryMB limits memory in megabytes (docker only)
	MaxMemoryMB int `json:"max_memory_mb" mapstructure:"max_memory_mb"`

	// MaxProcesses limits the number of processes (docker only)
	MaxProcesses int `json:"max_processes" mapstructure:"max_processes"`
}

// DockerConfig configures the docker runtime.
type DockerConfig struct {
	Image       string   `json:"image" mapstructure:"image"`
	Network     string   `json:"network" mapstructure:"network"`
	User        string   `json:"user" mapstructure:"user"`
	SecurityOpt []string `json:"security_opt" mapstructure:"security_opt"`
	CapDrop     []string `json:"cap_drop" mapstructure:"cap_drop"`
	ExtraArgs   []string `json:"extra_args" mapstructure:"extra_args"`
}

// ExecuteRequest represents a sandbox execution request
type ExecuteRequest struct {
	Command    string
	Args       []string
	Env        map[string]string
	WorkingDir string
	Timeout    time.Duration
}

// ExecuteResult represents a sandbox execution result
type ExecuteResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Sandbox runs one command to completion.
//
// Execute returns ErrExecutionTimeout when the command outlives its timeout;
// the partial output collected so far is still returned in the result with
// ExitCode -1. A non-zero exit is not an error.
type Sandbox interface {
	Execute(ctx context.Context, req ExecuteRequest) (ExecuteResult, error)
	Runtime() Runtime
}

// DefaultConfig returns a default sandbox configuration
func DefaultConfig() Config {
	return Config{
		Runtime: RuntimeHost,
		Limits: Limits{
			Timeout:      30 * time.Second,
			MaxCPU:       50,
			MaxMemoryMB:  512,
			MaxProcesses: 64,
		},
		Docker: DockerConfig{
			Image:   "python:3.12-alpine",
			CapDrop: []string{"ALL"},
			SecurityOpt: []string{
				"no-new-privileges",
			},
		},
	}
}

// ValidateConfig validates a sandbox configuration
func ValidateConfig(cfg Config) error {
	switch cfg.Runtime {
	case RuntimeHost, RuntimeDocker:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRuntime, cfg.Runtime)
	}

	if cfg.Limits.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if cfg.Limits.MaxCPU < 0 || cfg.Limits.MaxCPU > 100 {
		return ErrInvalidCPULimit
	}
	if cfg.Limits.MaxMemoryMB < 0 {
		return ErrInvalidMemoryLimit
	}
	if cfg.Limits.MaxProcesses < 0 {
		return ErrInvalidProcessLimit
	}
	if cfg.Runtime == RuntimeDocker && cfg.Docker.Image == "" {
		return ErrDockerImageRequired
	}

	return nil
}

// New returns the backend selected by cfg.Runtime.
func New(cfg Config) (Sandbox, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	switch cfg.Runtime {
	case RuntimeDocker:
		return NewDockerSandbox(cfg)
	default:
		return NewHostSandbox(cfg)
	}
}

package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// CheckDocker verifies that the Docker daemon is available and responsive.
func CheckDocker(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "docker", "ps", "-q")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("docker is not available or not running: %w", err)
	}
	return nil
}

// DockerSandbox runs each command inside an ephemeral container that mounts
// only the request's working directory.
type DockerSandbox struct {
	config Config
}

// NewDockerSandbox creates a new Docker-based sandbox.
func NewDockerSandbox(config Config) (*DockerSandbox, error) {
	if config.Runtime == "" {
		config.Runtime = RuntimeDocker
	}
	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &DockerSandbox{config: config}, nil
}

// Runtime reports RuntimeDocker.
func (d *DockerSandbox) Runtime() Runtime { return RuntimeDocker }

// Execute runs a command inside an ephemeral Docker container.
func (d *DockerSandbox) Execute(ctx context.Context, req ExecuteRequest) (ExecuteResult, error) {
	if strings.TrimSpace(req.Command) == "" {
		return ExecuteResult{}, ErrCommandRequired
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = d.config.Limits.Timeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, "docker", d.buildRunArgs(req)...)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	return collect(execCtx, ctx, req, err, stdout.Bytes(), stderr.Bytes(), duration, timeout)
}

func (d *DockerSandbox) buildRunArgs(req ExecuteRequest) []string {
	cfg := d.config
	args := []string{"run", "--rm", "--init"}

	networkMode := strings.TrimSpace(cfg.Docker.Network)
	if networkMode == "" {
		if cfg.Network {
			networkMode = "bridge"
		} else {
			networkMode = "none"
		}
	}
	args = append(args, "--network", networkMode)

	if cfg.Limits.MaxCPU > 0 {
		cpus := float64(cfg.Limits.MaxCPU) / 100.0
		args = append(args, "--cpus", strconv.FormatFloat(cpus, 'f', 2, 64))
	}
	if cfg.Limits.MaxMemoryMB > 0 {
		args = append(args, "--memory", fmt.Sprintf("%dm", cfg.Limits.MaxMemoryMB))
	}
	if cfg.Limits.MaxProcesses > 0 {
		args = append(args, "--pids-limit", strconv.Itoa(cfg.Limits.MaxProcesses))
	}

	if user := strings.TrimSpace(cfg.Docker.User); user != "" {
		args = append(args, "--user", user)
	}
	for _, opt := range cfg.Docker.SecurityOpt {
		if trimmed := strings.TrimSpace(opt); trimmed != "" {
			args = append(args, "--security-opt", trimmed)
		}
	}
	for _, capability := range cfg.Docker.CapDrop {
		if trimmed := strings.TrimSpace(capability); trimmed != "" {
			args = append(args, "--cap-drop", trimmed)
		}
	}
	args = append(args, cfg.Docker.ExtraArgs...)

	if wd := strings.TrimSpace(req.WorkingDir); wd != "" {
		wd = filepath.Clean(wd)
		args = append(args, "-v", wd+":"+wd+":rw", "-w", wd)
	}

	env := make(map[string]string, len(cfg.Env)+len(req.Env))
	for key, value := range cfg.Env {
		env[key] = value
	}
	for key, value := range req.Env {
		env[key] = value
	}
	keys := make([]string, 0, len(env))
	for key := range env {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		args = append(args, "-e", key+"="+env[key])
	}

	args = append(args, strings.TrimSpace(cfg.Docker.Image), req.Command)
	return append(args, req.Args...)
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/harun/warden/internal/config"
	"github.com/harun/warden/pkg/agent"
	"github.com/harun/warden/pkg/coretools"
	"github.com/harun/warden/pkg/sandbox"
	"github.com/harun/warden/pkg/session"
	"github.com/harun/warden/pkg/toolexecutor"
	"github.com/harun/warden/pkg/workspace"
)

func runAgent(cmd *cobra.Command, opts *rootOptions, args []string) error {
	prompt := strings.TrimSpace(strings.Join(args, " "))
	if prompt == "" {
		_ = cmd.Usage()
		return errors.New("a prompt is required")
	}
	ctx := cmd.Context()

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	opts.applyTo(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	svc, err := startServices(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	defer svc.close(ctx)

	if cfg.Transcripts.Enabled {
		store, err := session.Open(cfg.Transcripts.DBPath)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.Transcripts.DBPath).Msg("Transcript store unavailable, run will not be recorded")
		} else {
			svc.store = store
		}
	}

	out := cmd.OutOrStdout()
	p := &printer{out: out, verbose: opts.verbose}

	runner, err := newRunner(ctx, opts, cfg, svc, p.observe)
	if err != nil {
		return err
	}

	if opts.verbose {
		fmt.Fprintf(out, "User prompt: %s\n\n", prompt)
	}

	result, err := runner.Run(ctx, prompt)

	// Quota and other client errors end the run without failing the process.
	var clientErr *agent.ClientError
	if errors.As(err, &clientErr) {
		fmt.Fprintf(out, "Error: %v\n", clientErr)
		return nil
	}
	if err != nil {
		return err
	}

	p.answer(result)
	return nil
}

// loadConfig loads the config file named by --config and applies --log-level.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg, err := config.NewLoader(opts.configPath).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	return cfg, nil
}

// applyTo overrides cfg with the flags that were set.
func (o *rootOptions) applyTo(cfg *config.Config) {
	if o.workdir != "" {
		cfg.Workspace.Path = o.workdir
	}
	if o.provider != "" {
		cfg.Agent.Provider = o.provider
	}
	if o.model != "" {
		cfg.Agent.Model = o.model
	}
	if o.maxIterations > 0 {
		cfg.Agent.MaxIterations = o.maxIterations
	}
}

// newRunner wires the working root, sandbox, tool catalog, dispatcher and
// provider into a runner.
func newRunner(ctx context.Context, opts *rootOptions, cfg *config.Config, svc *services, observer agent.Observer) (*agent.Runner, error) {
	root, err := workspace.NewRoot(cfg.Workspace.Path, workspace.Options{Create: cfg.Workspace.Create})
	if err != nil {
		return nil, err
	}

	sb, err := sandbox.New(cfg.Sandbox)
	if err != nil {
		return nil, fmt.Errorf("failed to create sandbox: %w", err)
	}

	catalog, err := coretools.NewCatalog(coretools.Options{
		Root:          root,
		MaxChars:      cfg.Tools.MaxChars,
		ScriptTimeout: cfg.Tools.ScriptTimeout,
		Interpreters:  cfg.Tools.Interpreters,
		Sandbox:       sb,
		Logger:        log.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tool catalog: %w", err)
	}

	executor, err := toolexecutor.New(catalog, toolexecutor.Options{
		Logger:  log.Logger,
		Metrics: svc.metrics,
		Audit:   svc.audit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tool executor: %w", err)
	}

	provider, err := opts.newProvider(ctx, agent.AuthProfile{
		Provider: cfg.Agent.Provider,
		APIKey:   cfg.APIKey(cfg.Agent.Provider),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provider: %w", cfg.Agent.Provider, err)
	}

	log.Debug().
		Str("provider", provider.Provider()).
		Str("workdir", root.Path()).
		Str("sandbox", string(sb.Runtime())).
		Msg("Agent configured")

	runnerCfg := agent.Config{
		Provider:      provider,
		Dispatcher:    executor,
		Model:         cfg.Agent.Model,
		SystemPrompt:  cfg.SystemPrompt(),
		MaxIterations: cfg.Agent.MaxIterations,
		Temperature:   cfg.Agent.Temperature,
		MaxTokens:     cfg.Agent.MaxTokens,
		Logger:        log.Logger,
		Metrics:       svc.metrics,
		Audit:         svc.audit,
		Observer:      observer,
	}
	if svc.store != nil {
		runnerCfg.Transcripts = svc.store
	}
	return agent.NewRunner(runnerCfg)
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harun/warden/pkg/agent"
)

const version = "0.1.0"

// providerFactory builds the model provider for a run. Tests replace it with
// a scripted provider.
type providerFactory func(ctx context.Context, profile agent.AuthProfile) (agent.LLMProvider, error)

// rootOptions holds the flags of the root command.
type rootOptions struct {
	configPath    string
	logLevel      string
	workdir       string
	provider      string
	model         string
	maxIterations int
	verbose       bool

	newProvider providerFactory
}

// NewRootCmd returns the warden command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(agent.NewProvider)
}

func newRootCmd(newProvider providerFactory) *cobra.Command {
	opts := &rootOptions{newProvider: newProvider}

	cmd := &cobra.Command{
		Use:   `warden [flags] "<prompt>"`,
		Short: "Warden - a coding agent confined to one working directory",
		Long: `Warden sends a task to a language model and lets it list, read, write and
run files inside one working directory until it produces a final answer.
Every path the model asks for is checked against that directory.`,
		Version:       version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd, opts, args)
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default is $HOME/.warden/warden.json)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")

	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "print the prompt, every tool call with its arguments and result, and token counts")
	cmd.Flags().StringVarP(&opts.workdir, "workdir", "w", "", "working directory the tools are confined to")
	cmd.Flags().StringVar(&opts.provider, "provider", "", "model provider (gemini, anthropic, openai)")
	cmd.Flags().StringVar(&opts.model, "model", "", "model name")
	cmd.Flags().IntVar(&opts.maxIterations, "max-iterations", 0, "maximum model calls per run")

	// Version template
	cmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)

	cmd.AddCommand(
		newToolsCmd(),
		newRunsCmd(opts),
		newConfigureCmd(opts),
	)
	return cmd
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return execute(ctx, NewRootCmd())
}

// execute maps the outcome of cmd to an exit code. A client error from the
// model service has already been printed by the run and exits 0.
func execute(ctx context.Context, cmd *cobra.Command) int {
	err := cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, agent.ErrMaxIterations):
		fmt.Fprintf(cmd.OutOrStdout(), "Error: %v\n", agent.ErrMaxIterations)
		return 1
	default:
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return 1
	}
}

// GetVersion returns the current version
func GetVersion() string {
	return version
}

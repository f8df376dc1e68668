package coretools

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/harun/warden/pkg/sandbox"
	"github.com/harun/warden/pkg/workspace"
)

const (
	// DefaultMaxChars caps how much of a file read_file returns.
	DefaultMaxChars = 10000

	// DefaultScriptTimeout bounds a single run_script call.
	DefaultScriptTimeout = 30 * time.Second
)

// DefaultInterpreters maps script extensions to the command that runs them.
func DefaultInterpreters() map[string]string {
	return map[string]string{".py": "python3"}
}

// Options configures a Catalog.
type Options struct {
	Root          workspace.Root
	MaxChars      int
	ScriptTimeout time.Duration

	// Interpreters maps a file extension (".py") to a command line
	// ("python3 -u"). Scripts with other extensions are refused.
	Interpreters map[string]string

	// Sandbox runs scripts. Defaults to a host sandbox.
	Sandbox sandbox.Sandbox

	Logger zerolog.Logger
}

// Catalog holds the four tools bound to one working root.
type Catalog struct {
	root          workspace.Root
	maxChars      int
	scriptTimeout time.Duration
	interpreters  *InterpreterPolicy
	sandbox       sandbox.Sandbox
	logger        zerolog.Logger
}

// NewCatalog validates opts and fills defaults.
func NewCatalog(opts Options) (*Catalog, error) {
	if opts.Root.Path() == "" {
		return nil, errors.New("working root is required")
	}

	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}
	if opts.ScriptTimeout <= 0 {
		opts.ScriptTimeout = DefaultScriptTimeout
	}
	if len(opts.Interpreters) == 0 {
		opts.Interpreters = DefaultInterpreters()
	}

	policy, err := NewInterpreterPolicy(opts.Interpreters)
	if err != nil {
		return nil, err
	}

	sb := opts.Sandbox
	if sb == nil {
		cfg := sandbox.DefaultConfig()
		cfg.Limits.Timeout = opts.ScriptTimeout
		host, err := sandbox.NewHostSandbox(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create sandbox: %w", err)
		}
		sb = host
	}

	return &Catalog{
		root:          opts.Root,
		maxChars:      opts.MaxChars,
		scriptTimeout: opts.ScriptTimeout,
		interpreters:  policy,
		sandbox:       sb,
		logger:        opts.Logger.With().Str("component", "coretools").Logger(),
	}, nil
}

// Root returns the working root the catalog is bound to.
func (c *Catalog) Root() workspace.Root {
	return c.root
}

// MaxChars returns the read_file character cap.
func (c *Catalog) MaxChars() int {
	return c.maxChars
}

// checkRoot rejects calls whose injected working directory is not this
// catalog's root.
func (c *Catalog) checkRoot(tool Kind, wd string) error {
	if wd != c.root.Path() {
		return failf(tool, nil, "working directory \"%s\" is not the configured sandbox root", wd)
	}
	return nil
}

func confinement(tool Kind, err error) *Error {
	var ce *workspace.ConfinementError
	if !errors.As(err, &ce) {
		return fault(tool, err)
	}

	switch ce.Op {
	case workspace.OpList:
		return failf(tool, err, "Cannot list \"%s\" as it is outside the permitted working directory", ce.Path)
	case workspace.OpRead:
		return failf(tool, err, "Cannot read \"%s\" as it is outside the permitted working directory", ce.Path)
	case workspace.OpWrite:
		return failf(tool, err, "Cannot write to \"%s\" as it is outside the permitted working directory", ce.Path)
	default:
		return failf(tool, err, "Cannot execute \"%s\" as it is outside the permitted working directory", ce.Path)
	}
}

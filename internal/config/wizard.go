package config

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Wizard provides an interactive configuration wizard
type Wizard struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewWizard creates a wizard that prompts on out and reads answers from in.
func NewWizard(in io.Reader, out io.Writer) *Wizard {
	return &Wizard{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// Run runs the interactive configuration wizard, starting from base.
func (w *Wizard) Run(base *Config) (*Config, error) {
	fmt.Fprintln(w.out, "=== Warden Configuration Wizard ===")
	fmt.Fprintln(w.out)

	cfg := base
	if cfg == nil {
		cfg = DefaultConfig()
	}
	validator := NewValidator()

	// Provider
	for {
		provider, err := w.ask(fmt.Sprintf("Model provider (%s)", strings.Join(Providers, "/")), cfg.Agent.Provider)
		if err != nil {
			return nil, err
		}
		if err := validator.ValidateProvider(provider); err != nil {
			fmt.Fprintf(w.out, "Error: %v\n", err)
			continue
		}
		cfg.Agent.Provider = provider
		break
	}

	// API key
	for {
		fmt.Fprintf(w.out, "%s API Key: ", cfg.Agent.Provider)
		key, err := w.readLine()
		if err != nil {
			return nil, err
		}
		if key == "" && cfg.APIKey(cfg.Agent.Provider) != "" {
			break
		}
		if err := validator.ValidateAPIKey(key, cfg.Agent.Provider); err != nil {
			fmt.Fprintf(w.out, "Error: %v\n", err)
			continue
		}
		switch cfg.Agent.Provider {
		case "anthropic":
			cfg.AI.AnthropicAPIKey = key
		case "openai":
			cfg.AI.OpenAIAPIKey = key
		default:
			cfg.AI.GeminiAPIKey = key
		}
		break
	}

	model, err := w.ask("Model name (empty for the provider default)", cfg.Agent.Model)
	if err != nil {
		return nil, err
	}
	cfg.Agent.Model = model

	workspace, err := w.ask("Workspace directory", cfg.Workspace.Path)
	if err != nil {
		return nil, err
	}
	cfg.Workspace.Path = workspace

	level, err := w.ask("Log level (trace/debug/info/warn/error)", cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	if err := validator.ValidateLogLevel(level); err != nil {
		fmt.Fprintf(w.out, "Warning: %v, keeping %s\n", err, cfg.Logging.Level)
	} else {
		cfg.Logging.Level = level
	}

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "Configuration complete!")

	return cfg, nil
}

// ask prompts with the current value shown as the default.
func (w *Wizard) ask(prompt, current string) (string, error) {
	if current != "" {
		fmt.Fprintf(w.out, "%s [%s]: ", prompt, current)
	} else {
		fmt.Fprintf(w.out, "%s: ", prompt)
	}
	answer, err := w.readLine()
	if err != nil {
		return "", err
	}
	if answer == "" {
		return current, nil
	}
	return answer, nil
}

func (w *Wizard) readLine() (string, error) {
	line, err := w.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

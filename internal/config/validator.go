package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/harun/warden/internal/tracing"
	"github.com/harun/warden/pkg/sandbox"
)

// Providers lists the supported model providers.
var Providers = []string{"gemini", "anthropic", "openai"}

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateProvider validates a provider name
func (v *Validator) ValidateProvider(provider string) error {
	if !slices.Contains(Providers, provider) {
		return fmt.Errorf("invalid provider: %s (must be one of: %s)", provider, strings.Join(Providers, ", "))
	}
	return nil
}

// ValidateAPIKey validates an API key format
func (v *Validator) ValidateAPIKey(key string, provider string) error {
	if key == "" {
		return fmt.Errorf("%s API key cannot be empty", provider)
	}

	switch provider {
	case "anthropic":
		if !strings.HasPrefix(key, "sk-ant-") {
			return fmt.Errorf("invalid Anthropic API key format (should start with sk-ant-)")
		}
	case "openai":
		if !strings.HasPrefix(key, "sk-") {
			return fmt.Errorf("invalid OpenAI API key format (should start with sk-)")
		}
	}

	return nil
}

// ValidateTemperature validates temperature value
func (v *Validator) ValidateTemperature(temp float64) error {
	if temp < 0 || temp > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %g", temp)
	}
	return nil
}

// ValidateMaxTokens validates max tokens value. Zero means provider default.
func (v *Validator) ValidateMaxTokens(tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("max tokens cannot be negative, got %d", tokens)
	}
	if tokens > 200000 {
		return fmt.Errorf("max tokens too large (max 200000), got %d", tokens)
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"trace", "debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, level) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
	}
	return nil
}

// ValidateInterpreters checks that every key is a dotted extension with a
// command line.
func (v *Validator) ValidateInterpreters(interpreters map[string]string) error {
	if len(interpreters) == 0 {
		return fmt.Errorf("at least one script interpreter must be configured")
	}
	for ext, cmd := range interpreters {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("invalid script extension %q: must start with a dot", ext)
		}
		if strings.TrimSpace(cmd) == "" {
			return fmt.Errorf("interpreter for %s cannot be empty", ext)
		}
	}
	return nil
}

// ValidateRedactionPatterns checks that every pattern compiles.
func (v *Validator) ValidateRedactionPatterns(patterns []string) error {
	for _, pattern := range patterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("invalid logging.redaction_patterns entry %q: %w", pattern, err)
		}
	}
	return nil
}

// ValidateConfig performs comprehensive validation and returns every problem
// found.
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errs []error

	if err := v.ValidateProvider(cfg.Agent.Provider); err != nil {
		errs = append(errs, err)
	} else if cfg.APIKey(cfg.Agent.Provider) == "" {
		errs = append(errs, fmt.Errorf("no API key configured for provider %s", cfg.Agent.Provider))
	}

	if cfg.Agent.MaxIterations <= 0 {
		errs = append(errs, fmt.Errorf("agent.max_iterations must be positive"))
	}
	if err := v.ValidateTemperature(cfg.Agent.Temperature); err != nil {
		errs = append(errs, err)
	}
	if err := v.ValidateMaxTokens(cfg.Agent.MaxTokens); err != nil {
		errs = append(errs, err)
	}

	if cfg.Workspace.Path == "" {
		errs = append(errs, fmt.Errorf("workspace.path is required"))
	}

	if cfg.Tools.MaxChars <= 0 {
		errs = append(errs, fmt.Errorf("tools.max_chars must be positive"))
	}
	if cfg.Tools.ScriptTimeout <= 0 {
		errs = append(errs, fmt.Errorf("tools.script_timeout must be positive"))
	}
	if err := v.ValidateInterpreters(cfg.Tools.Interpreters); err != nil {
		errs = append(errs, err)
	}

	if err := sandbox.ValidateConfig(cfg.Sandbox); err != nil {
		errs = append(errs, fmt.Errorf("sandbox: %w", err))
	}
	if err := tracing.ValidateConfig(cfg.Tracing); err != nil {
		errs = append(errs, err)
	}

	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	if err := v.ValidateRedactionPatterns(cfg.Logging.RedactionPatterns); err != nil {
		errs = append(errs, err)
	}

	return errs
}

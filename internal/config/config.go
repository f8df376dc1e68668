package config

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/harun/warden/internal/tracing"
	"github.com/harun/warden/pkg/sandbox"
)

// Config represents the main warden configuration
type Config struct {
	// Agent loop
	Agent AgentConfig `json:"agent" mapstructure:"agent"`

	// AI provider credentials
	AI AIConfig `json:"ai" mapstructure:"ai"`

	// Working root the tools are confined to
	Workspace WorkspaceConfig `json:"workspace" mapstructure:"workspace"`

	// Tools
	Tools ToolsConfig `json:"tools" mapstructure:"tools"`

	// Script execution backend
	Sandbox sandbox.Config `json:"sandbox" mapstructure:"sandbox"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`

	Transcripts TranscriptsConfig `json:"transcripts" mapstructure:"transcripts"`
	Metrics     MetricsConfig     `json:"metrics" mapstructure:"metrics"`
	Audit       AuditConfig       `json:"audit" mapstructure:"audit"`
	Tracing     tracing.Config    `json:"tracing" mapstructure:"tracing"`
}

// AgentConfig configures the tool-calling loop.
type AgentConfig struct {
	Provider      string  `json:"provider" mapstructure:"provider"` // gemini, anthropic, openai
	Model         string  `json:"model" mapstructure:"model"`
	SystemPrompt  string  `json:"system_prompt" mapstructure:"system_prompt"`
	MaxIterations int     `json:"max_iterations" mapstructure:"max_iterations"`
	Temperature   float64 `json:"temperature" mapstructure:"temperature"`
	MaxTokens     int     `json:"max_tokens" mapstructure:"max_tokens"`
}

// AIConfig holds API keys per provider.
type AIConfig struct {
	GeminiAPIKey    string `json:"gemini_api_key" mapstructure:"gemini_api_key"`
	AnthropicAPIKey string `json:"anthropic_api_key" mapstructure:"anthropic_api_key"`
	OpenAIAPIKey    string `json:"openai_api_key" mapstructure:"openai_api_key"`
}

// WorkspaceConfig locates the working root.
type WorkspaceConfig struct {
	Path   string `json:"path" mapstructure:"path"`
	Create bool   `json:"create" mapstructure:"create"`
}

// ToolsConfig holds tool limits.
type ToolsConfig struct {
	MaxChars      int               `json:"max_chars" mapstructure:"max_chars"`
	ScriptTimeout time.Duration     `json:"script_timeout" mapstructure:"script_timeout"`
	Interpreters  map[string]string `json:"interpreters" mapstructure:"interpreters"` // extension -> command line
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`

	// RedactionPatterns are extra regexps masked in log output.
	RedactionPatterns []string `json:"redaction_patterns" mapstructure:"redaction_patterns"`
}

// TranscriptsConfig controls run persistence.
type TranscriptsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	DBPath  string `json:"db_path" mapstructure:"db_path"`
}

// MetricsConfig controls the prometheus textfile written at exit.
type MetricsConfig struct {
	Textfile string `json:"textfile" mapstructure:"textfile"`
}

// AuditConfig controls the JSON-lines audit trail.
type AuditConfig struct {
	File string `json:"file" mapstructure:"file"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			Provider:      "gemini",
			Model:         "",
			MaxIterations: 20,
		},
		Workspace: WorkspaceConfig{
			Create: true,
		},
		Tools: ToolsConfig{
			MaxChars:      10000,
			ScriptTimeout: 30 * time.Second,
			Interpreters:  map[string]string{".py": "python3"},
		},
		Sandbox: sandbox.DefaultConfig(),
		Logging: LoggingConfig{
			Level:     "warn",
			Pretty:    true,
			Redaction: true,
		},
		Transcripts: TranscriptsConfig{
			Enabled: true,
		},
	}
}

// String returns a JSON representation of the config with keys masked.
func (c *Config) String() string {
	masked := *c
	masked.AI = AIConfig{
		GeminiAPIKey:    mask(c.AI.GeminiAPIKey),
		AnthropicAPIKey: mask(c.AI.AnthropicAPIKey),
		OpenAIAPIKey:    mask(c.AI.OpenAIAPIKey),
	}
	data, _ := json.MarshalIndent(masked, "", "  ")
	return string(data)
}

func mask(key string) string {
	if key == "" {
		return ""
	}
	return "***"
}

// APIKey returns the key configured for provider.
func (c *Config) APIKey(provider string) string {
	switch provider {
	case "anthropic":
		return c.AI.AnthropicAPIKey
	case "openai":
		return c.AI.OpenAIAPIKey
	default:
		return c.AI.GeminiAPIKey
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	return errors.Join(NewValidator().ValidateConfig(c)...)
}

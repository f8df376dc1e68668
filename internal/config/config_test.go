package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.AI.GeminiAPIKey = "gemini-key"
	cfg.Workspace.Path = "/tmp/warden-workspace"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "gemini", cfg.Agent.Provider)
	assert.Equal(t, 20, cfg.Agent.MaxIterations)
	assert.Equal(t, 10000, cfg.Tools.MaxChars)
	assert.Equal(t, 30*time.Second, cfg.Tools.ScriptTimeout)
	assert.Equal(t, map[string]string{".py": "python3"}, cfg.Tools.Interpreters)
	assert.Equal(t, "host", string(cfg.Sandbox.Runtime))
	assert.True(t, cfg.Workspace.Create)
	assert.True(t, cfg.Logging.Redaction)
	assert.True(t, cfg.Transcripts.Enabled)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown provider", func(c *Config) { c.Agent.Provider = "mystery" }, "invalid provider"},
		{"missing key", func(c *Config) { c.AI.GeminiAPIKey = "" }, "no API key configured for provider gemini"},
		{"key for other provider", func(c *Config) { c.Agent.Provider = "openai" }, "no API key configured for provider openai"},
		{"zero iterations", func(c *Config) { c.Agent.MaxIterations = 0 }, "agent.max_iterations"},
		{"temperature", func(c *Config) { c.Agent.Temperature = 3 }, "temperature"},
		{"max chars", func(c *Config) { c.Tools.MaxChars = 0 }, "tools.max_chars"},
		{"script timeout", func(c *Config) { c.Tools.ScriptTimeout = -time.Second }, "tools.script_timeout"},
		{"interpreter without dot", func(c *Config) { c.Tools.Interpreters = map[string]string{"py": "python3"} }, "must start with a dot"},
		{"empty interpreter", func(c *Config) { c.Tools.Interpreters = map[string]string{".py": " "} }, "cannot be empty"},
		{"no interpreters", func(c *Config) { c.Tools.Interpreters = nil }, "at least one script interpreter"},
		{"sandbox runtime", func(c *Config) { c.Sandbox.Runtime = "vm" }, "sandbox"},
		{"tracing protocol", func(c *Config) { c.Tracing.Protocol = "udp" }, "tracing protocol"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "invalid log level"},
		{"workspace", func(c *Config) { c.Workspace.Path = "" }, "workspace.path"},
		{"redaction pattern", func(c *Config) { c.Logging.RedactionPatterns = []string{"(["} }, "logging.redaction_patterns"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateReportsEveryProblem(t *testing.T) {
	cfg := validConfig()
	cfg.Agent.MaxIterations = 0
	cfg.Tools.MaxChars = 0

	errs := NewValidator().ValidateConfig(cfg)
	assert.Len(t, errs, 2)
}

func TestConfig_APIKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AI = AIConfig{GeminiAPIKey: "g", AnthropicAPIKey: "a", OpenAIAPIKey: "o"}

	assert.Equal(t, "g", cfg.APIKey("gemini"))
	assert.Equal(t, "a", cfg.APIKey("anthropic"))
	assert.Equal(t, "o", cfg.APIKey("openai"))
}

func TestConfig_StringMasksKeys(t *testing.T) {
	cfg := validConfig()
	cfg.AI.OpenAIAPIKey = "sk-secret"

	out := cfg.String()
	assert.NotContains(t, out, "gemini-key")
	assert.NotContains(t, out, "sk-secret")
	assert.Contains(t, out, `"gemini_api_key": "***"`)
	assert.Equal(t, "gemini-key", cfg.AI.GeminiAPIKey, "String must not modify the config")
}

func TestConfig_SystemPrompt(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, DefaultSystemPrompt, cfg.SystemPrompt())
	assert.True(t, strings.Contains(DefaultSystemPrompt, "relative to the working directory"))

	cfg.Agent.SystemPrompt = "custom"
	assert.Equal(t, "custom", cfg.SystemPrompt())
}

func TestValidateAPIKey(t *testing.T) {
	v := NewValidator()

	t.Run("valid anthropic key", func(t *testing.T) {
		assert.NoError(t, v.ValidateAPIKey("sk-ant-test123", "anthropic"))
	})

	t.Run("invalid anthropic key", func(t *testing.T) {
		assert.Error(t, v.ValidateAPIKey("invalid-key", "anthropic"))
	})

	t.Run("valid openai key", func(t *testing.T) {
		assert.NoError(t, v.ValidateAPIKey("sk-test123", "openai"))
	})

	t.Run("any gemini key", func(t *testing.T) {
		assert.NoError(t, v.ValidateAPIKey("AIzaSomething", "gemini"))
	})

	t.Run("empty key", func(t *testing.T) {
		assert.Error(t, v.ValidateAPIKey("", "gemini"))
	})
}

func TestValidateLogLevel(t *testing.T) {
	v := NewValidator()
	for _, level := range []string{"trace", "debug", "info", "warn", "error"} {
		assert.NoError(t, v.ValidateLogLevel(level))
	}
	assert.Error(t, v.ValidateLogLevel("verbose"))
}

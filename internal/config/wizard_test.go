package config

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWizardRun(t *testing.T) {
	input := strings.Join([]string{
		"anthropic",
		"not-a-key",
		"sk-ant-123",
		"",
		"/srv/work",
		"debug",
	}, "\n") + "\n"
	out := &bytes.Buffer{}

	cfg, err := NewWizard(strings.NewReader(input), out).Run(nil)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.Agent.Provider)
	assert.Equal(t, "sk-ant-123", cfg.AI.AnthropicAPIKey)
	assert.Equal(t, "", cfg.Agent.Model)
	assert.Equal(t, "/srv/work", cfg.Workspace.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Contains(t, out.String(), "Error: invalid Anthropic API key format")
	assert.Contains(t, out.String(), "Configuration complete!")
}

func TestWizardKeepsExistingValues(t *testing.T) {
	base := DefaultConfig()
	base.AI.GeminiAPIKey = "existing"
	base.Workspace.Path = "/old"

	cfg, err := NewWizard(strings.NewReader("\n\n\n\nnoisy\n"), &bytes.Buffer{}).Run(base)
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.Agent.Provider)
	assert.Equal(t, "existing", cfg.AI.GeminiAPIKey)
	assert.Equal(t, "/old", cfg.Workspace.Path)
	assert.Equal(t, "warn", cfg.Logging.Level, "invalid level is ignored")
}

func TestWizardEOF(t *testing.T) {
	_, err := NewWizard(strings.NewReader(""), &bytes.Buffer{}).Run(nil)
	assert.Error(t, err)
}

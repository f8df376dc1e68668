package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("console output goes to configured writer", func(t *testing.T) {
		var buf bytes.Buffer
		l, err := New(Config{Level: "info", Console: true, Out: &buf})
		require.NoError(t, err)
		defer l.Close()

		log.Info().Str("tool", "get_file_content").Msg("dispatch")
		assert.Contains(t, buf.String(), `"tool":"get_file_content"`)
		assert.Contains(t, buf.String(), `"message":"dispatch"`)
	})

	t.Run("level filters lower events", func(t *testing.T) {
		var buf bytes.Buffer
		l, err := New(Config{Level: "warn", Console: true, Out: &buf})
		require.NoError(t, err)
		defer l.Close()

		log.Info().Msg("hidden")
		log.Warn().Msg("shown")
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		l, err := New(Config{Level: "loud", Out: &bytes.Buffer{}})
		require.NoError(t, err)
		defer l.Close()

		assert.Equal(t, zerolog.InfoLevel, l.GetZerolog().GetLevel())
	})

	t.Run("file output", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "logs", "warden.log")
		l, err := New(Config{Level: "debug", File: logFile})
		require.NoError(t, err)

		log.Debug().Msg("to file")
		require.NoError(t, l.Close())

		data, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(data), "to file")
	})

	t.Run("redaction", func(t *testing.T) {
		var buf bytes.Buffer
		l, err := New(Config{Level: "info", Console: true, Redaction: true, Out: &buf})
		require.NoError(t, err)
		defer l.Close()

		log.Info().Str("key", "sk-ant-REDACTED").Msg("provider ready")
		assert.NotContains(t, buf.String(), "abcdefghijklmnop")
		assert.Contains(t, buf.String(), "[REDACTED]")
	})

	t.Run("extra redaction patterns", func(t *testing.T) {
		var buf bytes.Buffer
		l, err := New(Config{
			Level:     "info",
			Console:   true,
			Redaction: true,
			Patterns:  []string{`acct-[0-9]{6}`},
			Out:       &buf,
		})
		require.NoError(t, err)
		defer l.Close()

		log.Info().Str("account", "acct-123456").Msg("billing")
		assert.NotContains(t, buf.String(), "acct-123456")
		assert.Contains(t, buf.String(), "[REDACTED]")
	})

	t.Run("invalid redaction pattern", func(t *testing.T) {
		_, err := New(Config{Level: "info", Redaction: true, Patterns: []string{"(["}, Out: &bytes.Buffer{}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid redaction pattern")
	})

	t.Run("pretty console", func(t *testing.T) {
		var buf bytes.Buffer
		l, err := New(Config{Level: "info", Console: true, Pretty: true, Out: &buf})
		require.NoError(t, err)
		defer l.Close()

		log.Info().Msg("pretty line")
		assert.Contains(t, buf.String(), "pretty line")
		assert.NotContains(t, buf.String(), `"message"`)
	})
}

func TestLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Console: true, Out: &buf})
	require.NoError(t, err)
	defer l.Close()

	child := l.With().Str("run_id", "abc").Logger()
	child.Info().Msg("step")
	assert.Contains(t, buf.String(), `"run_id":"abc"`)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "warn", cfg.Level)
	assert.True(t, cfg.Console)
	assert.True(t, cfg.Redaction)
}

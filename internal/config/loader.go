package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. WARDEN_AGENT_MODEL.
const EnvPrefix = "WARDEN"

// Interpreter map keys are file extensions and contain dots, so viper keys
// are split on "::" instead.
const keyDelimiter = "::"

// Loader handles configuration loading
type Loader struct {
	configPath string
	envFile    string
}

// NewLoader creates a new config loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
		envFile:    ".env",
	}
}

// WithEnvFile sets the dotenv file loaded before the environment is read.
// An empty path disables dotenv loading.
func (l *Loader) WithEnvFile(path string) *Loader {
	l.envFile = path
	return l
}

// Load reads the config file, if present, and applies environment overrides.
// A missing file is not an error: defaults and the environment still apply.
func (l *Loader) Load() (*Config, error) {
	if l.envFile != "" {
		if err := godotenv.Load(l.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", l.envFile, err)
		}
	}

	configPath := l.GetConfigPath()
	v := newViper(configPath)

	if _, err := os.Stat(configPath); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	// Interpreters are left out of the defaults so a configured map replaces
	// the default one instead of being merged into it.
	cfg := DefaultConfig()
	cfg.Tools.Interpreters = nil
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if len(cfg.Tools.Interpreters) == 0 {
		cfg.Tools.Interpreters = DefaultConfig().Tools.Interpreters
	}

	if err := cfg.fillPaths(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newViper(configPath string) *viper.Viper {
	v := viper.NewWithOptions(viper.KeyDelimiter(keyDelimiter))
	v.SetConfigFile(configPath)
	v.SetConfigType(configType(configPath))
	v.SetConfigPermissions(0600)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(keyDelimiter, "_"))
	v.AutomaticEnv()

	setDefaults(v, DefaultConfig())

	// Provider SDK conventions are honored alongside the prefixed names.
	_ = v.BindEnv("ai::gemini_api_key", "WARDEN_AI_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY")
	_ = v.BindEnv("ai::anthropic_api_key", "WARDEN_AI_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("ai::openai_api_key", "WARDEN_AI_OPENAI_API_KEY", "OPENAI_API_KEY")

	return v
}

func configType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

// AutomaticEnv only reaches keys viper already knows, so every scalar key
// gets a default here.
func setDefaults(v *viper.Viper, d *Config) {
	key := func(parts ...string) string { return strings.Join(parts, keyDelimiter) }

	v.SetDefault(key("agent", "provider"), d.Agent.Provider)
	v.SetDefault(key("agent", "model"), d.Agent.Model)
	v.SetDefault(key("agent", "system_prompt"), d.Agent.SystemPrompt)
	v.SetDefault(key("agent", "max_iterations"), d.Agent.MaxIterations)
	v.SetDefault(key("agent", "temperature"), d.Agent.Temperature)
	v.SetDefault(key("agent", "max_tokens"), d.Agent.MaxTokens)

	v.SetDefault(key("workspace", "path"), d.Workspace.Path)
	v.SetDefault(key("workspace", "create"), d.Workspace.Create)

	v.SetDefault(key("tools", "max_chars"), d.Tools.MaxChars)
	v.SetDefault(key("tools", "script_timeout"), d.Tools.ScriptTimeout)

	v.SetDefault(key("sandbox", "runtime"), string(d.Sandbox.Runtime))
	v.SetDefault(key("sandbox", "network"), d.Sandbox.Network)
	v.SetDefault(key("sandbox", "limits", "timeout"), d.Sandbox.Limits.Timeout)
	v.SetDefault(key("sandbox", "limits", "max_cpu"), d.Sandbox.Limits.MaxCPU)
	v.SetDefault(key("sandbox", "limits", "max_memory_mb"), d.Sandbox.Limits.MaxMemoryMB)
	v.SetDefault(key("sandbox", "limits", "max_processes"), d.Sandbox.Limits.MaxProcesses)
	v.SetDefault(key("sandbox", "docker", "image"), d.Sandbox.Docker.Image)
	v.SetDefault(key("sandbox", "docker", "network"), d.Sandbox.Docker.Network)
	v.SetDefault(key("sandbox", "docker", "user"), d.Sandbox.Docker.User)
	v.SetDefault(key("sandbox", "docker", "security_opt"), d.Sandbox.Docker.SecurityOpt)
	v.SetDefault(key("sandbox", "docker", "cap_drop"), d.Sandbox.Docker.CapDrop)

	v.SetDefault(key("logging", "level"), d.Logging.Level)
	v.SetDefault(key("logging", "file"), d.Logging.File)
	v.SetDefault(key("logging", "pretty"), d.Logging.Pretty)
	v.SetDefault(key("logging", "redaction"), d.Logging.Redaction)
	v.SetDefault(key("logging", "redaction_patterns"), []string{})

	v.SetDefault("data_dir", d.DataDir)

	v.SetDefault(key("transcripts", "enabled"), d.Transcripts.Enabled)
	v.SetDefault(key("transcripts", "db_path"), d.Transcripts.DBPath)
	v.SetDefault(key("metrics", "textfile"), d.Metrics.Textfile)
	v.SetDefault(key("audit", "file"), d.Audit.File)

	v.SetDefault(key("tracing", "enabled"), d.Tracing.Enabled)
	v.SetDefault(key("tracing", "endpoint"), d.Tracing.Endpoint)
	v.SetDefault(key("tracing", "protocol"), d.Tracing.Protocol)
	v.SetDefault(key("tracing", "insecure"), d.Tracing.Insecure)
}

// fillPaths derives the paths left empty from the data directory.
func (c *Config) fillPaths() error {
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		c.DataDir = filepath.Join(home, ".warden")
	}
	if c.Workspace.Path == "" {
		c.Workspace.Path = filepath.Join(c.DataDir, "workspace")
	}
	if c.Transcripts.DBPath == "" {
		c.Transcripts.DBPath = filepath.Join(c.DataDir, "transcripts.db")
	}
	return nil
}

// Save writes cfg to the loader's config path, in the format its extension
// names.
func (l *Loader) Save(cfg *Config) error {
	configPath := l.GetConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Round-trip through JSON so the written keys follow the json tags.
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	var settings map[string]any
	if err := json.Unmarshal(data, &settings); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	v := viper.NewWithOptions(viper.KeyDelimiter(keyDelimiter))
	v.SetConfigType(configType(configPath))
	v.SetConfigPermissions(0600)
	if err := v.MergeConfigMap(settings); err != nil {
		return fmt.Errorf("failed to prepare config: %w", err)
	}

	if err := v.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GetConfigPath returns the config file path
func (l *Loader) GetConfigPath() string {
	if l.configPath != "" {
		return l.configPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "warden.json"
	}
	return filepath.Join(home, ".warden", "warden.json")
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	return NewLoader(configPath).Load()
}

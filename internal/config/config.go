package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Locks contains edit lock timing configuration.
type Locks struct {
	TTLMinutes           int `toml:"ttl_minutes"`
	SweepIntervalSeconds int `toml:"sweep_interval_seconds"`
}

// Provider contains connection settings for one translation backend.
type Provider struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Translation contains translation pipeline configuration.
type Translation struct {
	// EnabledProviders lists provider names boards may select from.
	EnabledProviders []string `toml:"enabled_providers"`
	LLM              Provider `toml:"llm"`
	DeepL            Provider `toml:"deepl"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Cardflow.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and API bind address
//   - Locks: edit lock TTL and expired-lock sweep cadence
//   - Translation: enabled providers and their connection settings
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Locks       Locks       `toml:"locks"`
	Translation Translation `toml:"translation"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/cardflow/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("cardflow.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// WriteSample writes the embedded sample configuration to the given path.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the board database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "cardflow.db")
}

// ProviderFor returns connection settings for a named provider.
func (c *Config) ProviderFor(name string) (Provider, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "llm":
		return c.Translation.LLM, true
	case "deepl":
		return c.Translation.DeepL, true
	default:
		return Provider{}, false
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

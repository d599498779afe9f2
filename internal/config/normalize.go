package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLocks()
	c.normalizeTranslation()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("CARDFLOW_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeLocks() {
	if c.Locks.TTLMinutes <= 0 {
		c.Locks.TTLMinutes = defaultLockTTLMinutes
	}
	if c.Locks.SweepIntervalSeconds <= 0 {
		c.Locks.SweepIntervalSeconds = defaultSweepIntervalSeconds
	}
}

func (c *Config) normalizeTranslation() {
	providers := make([]string, 0, len(c.Translation.EnabledProviders))
	seen := make(map[string]struct{}, len(c.Translation.EnabledProviders))
	for _, name := range c.Translation.EnabledProviders {
		normalized := strings.ToLower(strings.TrimSpace(name))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		providers = append(providers, normalized)
	}
	c.Translation.EnabledProviders = providers

	if c.Translation.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("CARDFLOW_LLM_API_KEY"); ok {
			c.Translation.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	if strings.TrimSpace(c.Translation.LLM.BaseURL) == "" {
		c.Translation.LLM.BaseURL = defaultLLMBaseURL
	}
	if strings.TrimSpace(c.Translation.LLM.Model) == "" {
		c.Translation.LLM.Model = defaultLLMModel
	}
	if c.Translation.LLM.TimeoutSeconds <= 0 {
		c.Translation.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}

	if c.Translation.DeepL.APIKey == "" {
		if value, ok := os.LookupEnv("CARDFLOW_DEEPL_API_KEY"); ok {
			c.Translation.DeepL.APIKey = strings.TrimSpace(value)
		}
	}
	if strings.TrimSpace(c.Translation.DeepL.BaseURL) == "" {
		c.Translation.DeepL.BaseURL = defaultDeepLBaseURL
	}
	if c.Translation.DeepL.TimeoutSeconds <= 0 {
		c.Translation.DeepL.TimeoutSeconds = defaultDeepLTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

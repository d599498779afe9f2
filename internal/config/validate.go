package config

import (
	"errors"
	"fmt"
)

var knownProviders = map[string]struct{}{
	"llm":   {},
	"deepl": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLocks(); err != nil {
		return err
	}
	if err := c.validateTranslation(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLocks() error {
	if c.Locks.TTLMinutes < 1 {
		return errors.New("locks.ttl_minutes must be at least 1")
	}
	if c.Locks.SweepIntervalSeconds < 5 {
		return errors.New("locks.sweep_interval_seconds must be at least 5")
	}
	return nil
}

func (c *Config) validateTranslation() error {
	if len(c.Translation.EnabledProviders) == 0 {
		return errors.New("translation.enabled_providers must name at least one provider")
	}
	for _, name := range c.Translation.EnabledProviders {
		if _, ok := knownProviders[name]; !ok {
			return fmt.Errorf("translation.enabled_providers: unknown provider %q", name)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

package main

import (
	"log/slog"

	"cardflow/internal/config"
	"cardflow/internal/providers/deepl"
	"cardflow/internal/providers/llm"
	"cardflow/internal/translation"
)

// buildRegistry instantiates the translation providers named in the config.
// Unknown names are skipped with a warning so a typo disables one provider
// instead of the whole daemon.
func buildRegistry(cfg *config.Config, logger *slog.Logger) *translation.Registry {
	var providers []translation.Provider
	for _, name := range cfg.Translation.EnabledProviders {
		switch name {
		case "llm":
			providers = append(providers, llm.NewClient(cfg.Translation.LLM))
		case "deepl":
			providers = append(providers, deepl.NewClient(cfg.Translation.DeepL))
		default:
			logger.Warn("unknown translation provider in config", "provider", name)
		}
	}
	return translation.NewRegistry(providers...)
}

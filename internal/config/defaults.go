package config

const (
	defaultDataDir              = "~/.local/share/cardflow"
	defaultLogDir               = "~/.local/share/cardflow/logs"
	defaultAPIBind              = "127.0.0.1:7643"
	defaultLockTTLMinutes       = 10
	defaultSweepIntervalSeconds = 60
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLLMBaseURL           = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel             = "google/gemini-3-flash-preview"
	defaultLLMTimeoutSeconds    = 60
	defaultDeepLBaseURL         = "https://api-free.deepl.com/v2/translate"
	defaultDeepLTimeoutSeconds  = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Locks: Locks{
			TTLMinutes:           defaultLockTTLMinutes,
			SweepIntervalSeconds: defaultSweepIntervalSeconds,
		},
		Translation: Translation{
			EnabledProviders: []string{"llm"},
			LLM: Provider{
				BaseURL:        defaultLLMBaseURL,
				Model:          defaultLLMModel,
				TimeoutSeconds: defaultLLMTimeoutSeconds,
			},
			DeepL: Provider{
				BaseURL:        defaultDeepLBaseURL,
				TimeoutSeconds: defaultDeepLTimeoutSeconds,
			},
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

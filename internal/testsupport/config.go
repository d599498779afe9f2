package testsupport

import (
	"path/filepath"
	"testing"

	"cardflow/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Paths.APIToken = "test-token"
	cfgVal.Translation.EnabledProviders = []string{"llm"}
	cfgVal.Translation.LLM.APIKey = "test"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithLockTTLMinutes overrides the edit lock TTL on the test config.
func WithLockTTLMinutes(minutes int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Locks.TTLMinutes = minutes
	}
}

// WithProviders overrides the enabled translation providers.
func WithProviders(names ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Translation.EnabledProviders = names
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}

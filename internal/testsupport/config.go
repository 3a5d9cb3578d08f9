// Package testsupport provides shared fixtures for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/Harky911/ReolinkANPR/internal/config"
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
	cfgVal.Camera.Host = "192.0.2.10"
	cfgVal.Camera.Username = "admin"
	cfgVal.Camera.Password = "test-password"
	cfgVal.Storage.DataDir = filepath.Join(base, "data")
	cfgVal.Storage.DatabasePath = filepath.Join(base, "data", "anpr.db")
	cfgVal.Logging.LogDir = filepath.Join(base, "logs")
	cfgVal.API.Bind = "127.0.0.1:0"

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

// WithDedupWindow overrides the dedup window in seconds on the test config.
func WithDedupWindow(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.DedupWindowSeconds = seconds
	}
}

// WithDebounce overrides the debounce window in seconds on the test config.
func WithDebounce(seconds float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.DebounceSeconds = seconds
	}
}

// WithMinConfidence overrides the recognition confidence floor on the test config.
func WithMinConfidence(threshold float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.ALPR.MinConfidence = threshold
	}
}

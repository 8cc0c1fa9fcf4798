package testsupport

import (
	"path/filepath"
	"testing"

	"amreingest/internal/config"
)

// TestPipelineID is the pipeline uuid written into generated configs.
const TestPipelineID = "5b6a3c0e-2f4d-4c1e-9d0a-7f1e2b3c4d5e"

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Polling latency is zeroed so launch tests do not sleep.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Reingest.Pipeline = TestPipelineID
	cfgVal.Reingest.LatencyMillis = 0
	cfgVal.Reingest.MaxStatusPolls = 5
	cfgVal.Archivematica.APIKey = "am-key"
	cfgVal.StorageService.APIKey = "ss-key"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithThrottle overrides the admission throttle.
func WithThrottle(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Reingest.Throttle = n
	}
}

// WithApprovalRetries overrides the number of approval rounds.
func WithApprovalRetries(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Reingest.ApprovalRetries = n
	}
}

// WithMaxStatusPolls overrides the per-round transfer status poll bound.
func WithMaxStatusPolls(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Reingest.MaxStatusPolls = n
	}
}

// WithFIFO switches admission to insertion order.
func WithFIFO() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Reingest.Order = config.OrderFIFO
	}
}

// WithServiceURLs points both remote services at the given base URLs.
func WithServiceURLs(archivematica, storageService string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Archivematica.URL = archivematica
		b.cfg.StorageService.URL = storageService
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}

package testsupport

import (
	"path/filepath"
	"testing"

	"ncboard/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Every derived path is filled in so the config needs no normalization.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	data := filepath.Join(base, "data")
	cfgVal.Paths.DataDir = data
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.CacheFile = filepath.Join(data, "snapshots.json")
	cfgVal.Paths.CredentialFile = filepath.Join(data, "token")
	cfgVal.Paths.StateFile = filepath.Join(data, "session.json")
	cfgVal.Server.Bind = "127.0.0.1:0"
	cfgVal.Server.DBDSN = filepath.Join(data, "candidates.db")

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

// WithAPIToken sets the bearer token on both the server and the client side.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.APIToken = token
		b.cfg.Remote.Token = token
	}
}

// WithRemoteURL points the dashboard at a test server.
func WithRemoteURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Remote.BaseURL = url
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semcat/errors"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 4, cfg.Catalog.Concurrency)
	assert.Equal(t, "semcat_records", cfg.Stores.NATSBucket)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty work dir", func(c *Config) { c.Catalog.WorkDir = "" }},
		{"zero concurrency", func(c *Config) { c.Catalog.Concurrency = 0 }},
		{"zero rate", func(c *Config) { c.Catalog.RatePerSecond = 0 }},
		{"bad metrics port", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Port = -1 }},
		{"nats url without bucket", func(c *Config) { c.Stores.NATSURL = "nats://x:4222"; c.Stores.NATSBucket = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), errors.ErrInvalidConfig)
		})
	}
}

func TestMergeOverlaysNonZeroValues(t *testing.T) {
	base := DefaultConfig()
	base.Merge(&Config{
		Catalog:    CatalogConfig{WorkDir: "/data/catalog", DownloadTimeout: time.Minute},
		Convention: ConventionConfig{Name: "piv"},
		Stores:     StoresConfig{SPARQLEndpoints: []string{"http://localhost:7200/repositories/cat"}},
	})

	assert.Equal(t, "/data/catalog", base.Catalog.WorkDir)
	assert.Equal(t, time.Minute, base.Catalog.DownloadTimeout)
	assert.Equal(t, "piv", base.Convention.Name)
	assert.Len(t, base.Stores.SPARQLEndpoints, 1)
	// Untouched values keep their defaults.
	assert.Equal(t, 4, base.Catalog.Concurrency)
}

func TestLoadFromFileAndSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "semcat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
catalog:
  work_dir: /tmp/semcat
  concurrency: 8
convention:
  name: piv
`), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/semcat", cfg.Catalog.WorkDir)
	assert.Equal(t, 8, cfg.Catalog.Concurrency)
	assert.Equal(t, "piv", cfg.Convention.Name)

	out := filepath.Join(dir, "nested", "saved.yaml")
	require.NoError(t, cfg.SaveToFile(out))
	reloaded, err := LoadFromFile(out)
	require.NoError(t, err)
	assert.Equal(t, cfg.Catalog.WorkDir, reloaded.Catalog.WorkDir)
}

func TestLoadFromFileRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("catalog: ["), 0o644))
	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestLoaderAppliesEnv(t *testing.T) {
	t.Setenv("SEMCAT_WORK_DIR", "/env/work")
	t.Setenv("SEMCAT_CONVENTION", "cf")
	t.Setenv("SEMCAT_METRICS_PORT", "9191")

	cfg, err := NewLoader(nil).Load()
	require.NoError(t, err)
	assert.Equal(t, "/env/work", cfg.Catalog.WorkDir)
	assert.Equal(t, "cf", cfg.Convention.Name)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9191, cfg.Metrics.Port)
}

// Package config provides layered configuration for the catalog tools:
// defaults, then the user file, then the project file, then environment
// variables, each layer overriding the one below.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/semcat/errors"
)

// Config is the complete tool configuration.
type Config struct {
	Catalog    CatalogConfig    `yaml:"catalog"`
	Convention ConventionConfig `yaml:"convention"`
	Stores     StoresConfig     `yaml:"stores"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// CatalogConfig configures catalog mirroring.
type CatalogConfig struct {
	// WorkDir is where distributions are downloaded.
	WorkDir string `yaml:"work_dir"`
	// Concurrency bounds parallel downloads.
	Concurrency int `yaml:"concurrency"`
	// DownloadTimeout is the per-request HTTP timeout.
	DownloadTimeout time.Duration `yaml:"download_timeout"`
	// RatePerSecond limits download request admission.
	RatePerSecond float64 `yaml:"rate_per_second"`
}

// ConventionConfig configures attribute validation.
type ConventionConfig struct {
	// Name selects the enabled convention.
	Name string `yaml:"name"`
	// File optionally loads a convention definition before enabling.
	File string `yaml:"file"`
	// TableCacheDir caches fetched standard name tables.
	TableCacheDir string `yaml:"table_cache_dir"`
}

// StoresConfig selects and configures the store backends.
type StoresConfig struct {
	// RegistryPath is the SQLite dataset registry location.
	RegistryPath string `yaml:"registry_path"`
	// DataDir is the HDF5 directory scanned by the file store.
	DataDir string `yaml:"data_dir"`
	// SPARQLEndpoints are remote query endpoints joined into federated
	// queries.
	SPARQLEndpoints []string `yaml:"sparql_endpoints"`
	// NATSURL enables the key-value metadata store when set.
	NATSURL string `yaml:"nats_url"`
	// NATSBucket names the key-value bucket.
	NATSBucket string `yaml:"nats_bucket"`
}

// MetricsConfig configures the metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// DefaultConfig returns a Config with working defaults.
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			WorkDir:         defaultWorkDir(),
			Concurrency:     4,
			DownloadTimeout: 2 * time.Minute,
			RatePerSecond:   4,
		},
		Convention: ConventionConfig{
			TableCacheDir: defaultCacheDir(),
		},
		Stores: StoresConfig{
			RegistryPath: filepath.Join(defaultWorkDir(), "registry.db"),
			NATSBucket:   "semcat_records",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}

func defaultWorkDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".semcat"
	}
	return filepath.Join(home, ".semcat")
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(defaultWorkDir(), "tables")
	}
	return filepath.Join(dir, "semcat", "tables")
}

// Validate checks the configuration for usable values.
func (c *Config) Validate() error {
	if c.Catalog.WorkDir == "" {
		return fmt.Errorf("catalog.work_dir is required: %w", errors.ErrInvalidConfig)
	}
	if c.Catalog.Concurrency < 1 {
		return fmt.Errorf("catalog.concurrency must be at least 1: %w", errors.ErrInvalidConfig)
	}
	if c.Catalog.RatePerSecond <= 0 {
		return fmt.Errorf("catalog.rate_per_second must be positive: %w", errors.ErrInvalidConfig)
	}
	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		return fmt.Errorf("metrics.port %d out of range: %w", c.Metrics.Port, errors.ErrInvalidConfig)
	}
	if c.Stores.NATSURL != "" && c.Stores.NATSBucket == "" {
		return fmt.Errorf("stores.nats_bucket is required with stores.nats_url: %w",
			errors.ErrInvalidConfig)
	}
	return nil
}

// Merge overlays non-zero values of other onto c.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}
	if other.Catalog.WorkDir != "" {
		c.Catalog.WorkDir = other.Catalog.WorkDir
	}
	if other.Catalog.Concurrency != 0 {
		c.Catalog.Concurrency = other.Catalog.Concurrency
	}
	if other.Catalog.DownloadTimeout != 0 {
		c.Catalog.DownloadTimeout = other.Catalog.DownloadTimeout
	}
	if other.Catalog.RatePerSecond != 0 {
		c.Catalog.RatePerSecond = other.Catalog.RatePerSecond
	}

	if other.Convention.Name != "" {
		c.Convention.Name = other.Convention.Name
	}
	if other.Convention.File != "" {
		c.Convention.File = other.Convention.File
	}
	if other.Convention.TableCacheDir != "" {
		c.Convention.TableCacheDir = other.Convention.TableCacheDir
	}

	if other.Stores.RegistryPath != "" {
		c.Stores.RegistryPath = other.Stores.RegistryPath
	}
	if other.Stores.DataDir != "" {
		c.Stores.DataDir = other.Stores.DataDir
	}
	if len(other.Stores.SPARQLEndpoints) > 0 {
		c.Stores.SPARQLEndpoints = other.Stores.SPARQLEndpoints
	}
	if other.Stores.NATSURL != "" {
		c.Stores.NATSURL = other.Stores.NATSURL
	}
	if other.Stores.NATSBucket != "" {
		c.Stores.NATSBucket = other.Stores.NATSBucket
	}

	if other.Metrics.Enabled {
		c.Metrics.Enabled = true
	}
	if other.Metrics.Port != 0 {
		c.Metrics.Port = other.Metrics.Port
	}
	if other.Metrics.Path != "" {
		c.Metrics.Path = other.Metrics.Path
	}
}

// LoadFromFile reads one YAML layer. The file's values sit on top of
// zero values, not defaults; callers merge it onto DefaultConfig.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.WrapInvalid(err, "config", "LoadFromFile", "parse "+path)
	}
	return &config, nil
}

// SaveToFile writes the configuration as YAML, creating parent
// directories.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "config", "SaveToFile", "create config directory")
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "config", "SaveToFile", "marshal config")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "config", "SaveToFile", "write "+path)
	}
	return nil
}

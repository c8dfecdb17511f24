package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

const (
	// ProjectConfigFile is the project-level config file name, searched
	// upward from the working directory.
	ProjectConfigFile = "semcat.yaml"
	// UserConfigDir holds the user-level config under the home directory.
	UserConfigDir = ".config/semcat"
	// UserConfigFile is the user-level config file name.
	UserConfigFile = "config.yaml"
)

// Loader loads configuration with layered precedence.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a configuration loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load builds the effective configuration:
// defaults, then ~/.config/semcat/config.yaml, then semcat.yaml found in
// the current or a parent directory, then SEMCAT_* environment variables.
func (l *Loader) Load() (*Config, error) {
	config := DefaultConfig()

	userPath := l.userConfigPath()
	if userConfig, err := LoadFromFile(userPath); err == nil {
		l.logger.Debug("loaded user config", "path", userPath)
		config.Merge(userConfig)
	} else if !os.IsNotExist(err) {
		l.logger.Warn("failed to load user config", "path", userPath, "error", err)
	}

	if projectPath := l.findProjectConfig(); projectPath != "" {
		if projectConfig, err := LoadFromFile(projectPath); err == nil {
			l.logger.Debug("loaded project config", "path", projectPath)
			config.Merge(projectConfig)
		} else {
			l.logger.Warn("failed to load project config", "path", projectPath, "error", err)
		}
	}

	l.applyEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// EnsureUserConfig writes a default user config file if none exists.
func (l *Loader) EnsureUserConfig() error {
	path := l.userConfigPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := DefaultConfig().SaveToFile(path); err != nil {
		return err
	}
	l.logger.Info("created default user config", "path", path)
	return nil
}

func (l *Loader) userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// findProjectConfig walks from the working directory to the filesystem
// root looking for the project config file.
func (l *Loader) findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// applyEnv overrides single values from the environment.
func (l *Loader) applyEnv(config *Config) {
	if v := os.Getenv("SEMCAT_WORK_DIR"); v != "" {
		config.Catalog.WorkDir = v
	}
	if v := os.Getenv("SEMCAT_CONVENTION"); v != "" {
		config.Convention.Name = v
	}
	if v := os.Getenv("SEMCAT_REGISTRY_PATH"); v != "" {
		config.Stores.RegistryPath = v
	}
	if v := os.Getenv("SEMCAT_DATA_DIR"); v != "" {
		config.Stores.DataDir = v
	}
	if v := os.Getenv("SEMCAT_NATS_URL"); v != "" {
		config.Stores.NATSURL = v
	}
	if v := os.Getenv("SEMCAT_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Metrics.Port = port
			config.Metrics.Enabled = true
		} else {
			l.logger.Warn("ignoring invalid SEMCAT_METRICS_PORT", "value", v)
		}
	}
}

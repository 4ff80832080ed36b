package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

// envKeys are bound explicitly so env vars apply even when the config
// file does not mention the key.
var envKeys = []string{
	"sync.save_debounce_ms",
	"sync.parse_cache_size",
	"parser.command",
	"backend.kind",
	"backend.endpoint",
	"backend.timeout_seconds",
	"storage.driver",
	"storage.dsn",
	"server.host",
	"server.port",
	"server.cors_origins",
	"server.access_log",
	"watch.patterns",
	"watch.ignore",
	"watch.debounce_ms",
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (SCHEMASYNC_*)
// 2. Config file (.schemasync/config.yml or .schemasync/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(l.rootDir, ".schemasync"))

	// SCHEMASYNC_STORAGE_DSN overrides storage.dsn
	v.SetEnvPrefix("SCHEMASYNC")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("sync.save_debounce_ms", defaults.Sync.SaveDebounceMS)
	v.SetDefault("sync.parse_cache_size", defaults.Sync.ParseCacheSize)

	v.SetDefault("parser.command", defaults.Parser.Command)

	v.SetDefault("backend.kind", defaults.Backend.Kind)
	v.SetDefault("backend.endpoint", defaults.Backend.Endpoint)
	v.SetDefault("backend.timeout_seconds", defaults.Backend.TimeoutSeconds)

	v.SetDefault("storage.driver", defaults.Storage.Driver)
	v.SetDefault("storage.dsn", defaults.Storage.DSN)

	v.SetDefault("server.host", defaults.Server.Host)
	v.SetDefault("server.port", defaults.Server.Port)
	v.SetDefault("server.cors_origins", defaults.Server.CORSOrigins)
	v.SetDefault("server.access_log", defaults.Server.AccessLog)

	v.SetDefault("watch.patterns", defaults.Watch.Patterns)
	v.SetDefault("watch.ignore", defaults.Watch.Ignore)
	v.SetDefault("watch.debounce_ms", defaults.Watch.DebounceMS)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}

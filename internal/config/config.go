package config

import "time"

// Config represents the complete schemasync configuration.
// It can be loaded from .schemasync/config.yml with environment variable overrides.
type Config struct {
	Sync    SyncConfig    `yaml:"sync" mapstructure:"sync"`
	Parser  ParserConfig  `yaml:"parser" mapstructure:"parser"`
	Backend BackendConfig `yaml:"backend" mapstructure:"backend"`
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Watch   WatchConfig   `yaml:"watch" mapstructure:"watch"`
}

// SyncConfig tunes the sync coordinator.
type SyncConfig struct {
	SaveDebounceMS int `yaml:"save_debounce_ms" mapstructure:"save_debounce_ms"` // quiet period before a debounced save
	ParseCacheSize int `yaml:"parse_cache_size" mapstructure:"parse_cache_size"` // parsed texts kept; 0 disables the cache
}

// ParserConfig names the external parser process.
type ParserConfig struct {
	Command []string `yaml:"command" mapstructure:"command"` // argv of a process speaking JSON lines on stdio
}

// BackendConfig selects where diagrams are persisted.
type BackendConfig struct {
	Kind           string `yaml:"kind" mapstructure:"kind"`                       // "file", "sql" or "http"
	Endpoint       string `yaml:"endpoint" mapstructure:"endpoint"`               // base URL for "http"
	TimeoutSeconds int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"` // per request, for "http"
}

// StorageConfig configures the SQL store used by the "sql" backend and by serve.
type StorageConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DSN    string `yaml:"dsn" mapstructure:"dsn"`       // empty means .schemasync/diagrams.db for sqlite
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host        string   `yaml:"host" mapstructure:"host"`
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	AccessLog   bool     `yaml:"access_log" mapstructure:"access_log"`
}

// WatchConfig selects the schema files followed by watch.
type WatchConfig struct {
	Patterns   []string `yaml:"patterns" mapstructure:"patterns"`
	Ignore     []string `yaml:"ignore" mapstructure:"ignore"`
	DebounceMS int      `yaml:"debounce_ms" mapstructure:"debounce_ms"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Sync: SyncConfig{
			SaveDebounceMS: 1000,
			ParseCacheSize: 256,
		},
		Parser: ParserConfig{
			Command: []string{},
		},
		Backend: BackendConfig{
			Kind:           "file",
			Endpoint:       "http://localhost:8080",
			TimeoutSeconds: 30,
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			DSN:    "", // Empty means .schemasync/diagrams.db
		},
		Server: ServerConfig{
			Host:        "127.0.0.1",
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000"},
			AccessLog:   true,
		},
		Watch: WatchConfig{
			Patterns: []string{"**/*.dbml"},
			Ignore: []string{
				".schemasync/**",
				".git/**",
				"node_modules/**",
				"vendor/**",
			},
			DebounceMS: 300,
		},
	}
}

// SaveDebounce returns the save debounce as a duration.
func (c *Config) SaveDebounce() time.Duration {
	return time.Duration(c.Sync.SaveDebounceMS) * time.Millisecond
}

// WatchDebounce returns the file watcher debounce as a duration.
func (c *Config) WatchDebounce() time.Duration {
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
}

// BackendTimeout returns the HTTP backend timeout as a duration.
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrInvalidDebounce indicates a negative or zero debounce
	ErrInvalidDebounce = errors.New("invalid debounce")

	// ErrInvalidCacheSize indicates a negative parse cache size
	ErrInvalidCacheSize = errors.New("invalid parse cache size")

	// ErrInvalidBackend indicates an unsupported persistence backend
	ErrInvalidBackend = errors.New("invalid backend")

	// ErrInvalidEndpoint indicates a missing or malformed backend endpoint
	ErrInvalidEndpoint = errors.New("invalid backend endpoint")

	// ErrInvalidTimeout indicates a non-positive request timeout
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrInvalidDriver indicates an unsupported storage driver
	ErrInvalidDriver = errors.New("invalid storage driver")

	// ErrEmptyDSN indicates a driver that needs an explicit DSN
	ErrEmptyDSN = errors.New("empty storage dsn")

	// ErrInvalidPort indicates a port outside 1-65535
	ErrInvalidPort = errors.New("invalid server port")

	// ErrEmptyPatterns indicates no watch patterns
	ErrEmptyPatterns = errors.New("empty watch patterns")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateSync(&cfg.Sync); err != nil {
		errs = append(errs, err)
	}
	if err := validateBackend(&cfg.Backend); err != nil {
		errs = append(errs, err)
	}
	if err := validateStorage(&cfg.Storage); err != nil {
		errs = append(errs, err)
	}
	if err := validateServer(&cfg.Server); err != nil {
		errs = append(errs, err)
	}
	if err := validateWatch(&cfg.Watch); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateSync(cfg *SyncConfig) error {
	var errs []error

	if cfg.SaveDebounceMS <= 0 {
		errs = append(errs, fmt.Errorf("%w: save_debounce_ms must be positive, got %d", ErrInvalidDebounce, cfg.SaveDebounceMS))
	}

	// Zero disables the cache
	if cfg.ParseCacheSize < 0 {
		errs = append(errs, fmt.Errorf("%w: parse_cache_size cannot be negative, got %d", ErrInvalidCacheSize, cfg.ParseCacheSize))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateBackend(cfg *BackendConfig) error {
	var errs []error

	kind := strings.ToLower(cfg.Kind)
	switch kind {
	case "file", "sql":
	case "http":
		u, err := url.Parse(cfg.Endpoint)
		if strings.TrimSpace(cfg.Endpoint) == "" || err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%w: http backend needs an absolute URL, got '%s'", ErrInvalidEndpoint, cfg.Endpoint))
		}
		if cfg.TimeoutSeconds <= 0 {
			errs = append(errs, fmt.Errorf("%w: timeout_seconds must be positive, got %d", ErrInvalidTimeout, cfg.TimeoutSeconds))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: must be 'file', 'sql' or 'http', got '%s'", ErrInvalidBackend, cfg.Kind))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateStorage(cfg *StorageConfig) error {
	switch strings.ToLower(cfg.Driver) {
	case "sqlite":
		// Empty DSN falls back to the workspace database
		return nil
	case "postgres":
		if strings.TrimSpace(cfg.DSN) == "" {
			return fmt.Errorf("%w: postgres requires a dsn", ErrEmptyDSN)
		}
		return nil
	default:
		return fmt.Errorf("%w: must be 'sqlite' or 'postgres', got '%s'", ErrInvalidDriver, cfg.Driver)
	}
}

func validateServer(cfg *ServerConfig) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPort, cfg.Port)
	}
	return nil
}

func validateWatch(cfg *WatchConfig) error {
	var errs []error

	if len(cfg.Patterns) == 0 {
		errs = append(errs, fmt.Errorf("%w: at least one pattern required", ErrEmptyPatterns))
	}

	if cfg.DebounceMS <= 0 {
		errs = append(errs, fmt.Errorf("%w: debounce_ms must be positive, got %d", ErrInvalidDebounce, cfg.DebounceMS))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}

	return fmt.Errorf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

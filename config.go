package rotalog

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/lixenwraith/config"
)

// Config holds all engine configuration values
type Config struct {
	// Basic settings
	Level     int64  `toml:"level"`
	Name      string `toml:"name"` // Base name for log files
	Directory string `toml:"directory"`
	Extension string `toml:"extension"`
	Format    string `toml:"format"` // "txt" or "json"

	// Formatting
	ShowTimestamp   bool   `toml:"show_timestamp"`
	ShowLevel       bool   `toml:"show_level"`
	TimestampFormat string `toml:"timestamp_format"`

	// Rotation
	RotationThresholdKB int64 `toml:"rotation_threshold_kb"` // Size before rotation triggers
	MaxArchivedFiles    int64 `toml:"max_archived_files"`    // Retention count, 0 = unlimited
	AutoFlush           bool  `toml:"auto_flush"`            // Sync after every write

	// Queued sink
	QueueCapacity      int64  `toml:"queue_capacity"`
	BackpressurePolicy string `toml:"backpressure_policy"` // "block" or "drop"
	EnqueueTimeoutMs   int64  `toml:"enqueue_timeout_ms"`  // 0 = block indefinitely
	DrainTimeoutMs     int64  `toml:"drain_timeout_ms"`    // 0 = drain to completion

	// Watchdog
	WatchdogIntervalMs    int64 `toml:"watchdog_interval_ms"`
	WatchdogGracePeriodMs int64 `toml:"watchdog_grace_period_ms"`

	// Internal error handling
	InternalErrorsToStderr bool `toml:"internal_errors_to_stderr"`
}

// defaultConfig is the single source for all configurable default values
var defaultConfig = Config{
	Level:     LevelInfo,
	Name:      "app",
	Directory: "./logs",
	Extension: "log",
	Format:    "txt",

	ShowTimestamp:   true,
	ShowLevel:       true,
	TimestampFormat: time.RFC3339Nano,

	RotationThresholdKB: 10000,
	MaxArchivedFiles:    0,
	AutoFlush:           true,

	QueueCapacity:      1024,
	BackpressurePolicy: PolicyBlock,
	EnqueueTimeoutMs:   0,
	DrainTimeoutMs:     2000,

	WatchdogIntervalMs:    5000,
	WatchdogGracePeriodMs: 10000,

	InternalErrorsToStderr: false,
}

// DefaultConfig returns a copy of the default configuration
func DefaultConfig() *Config {
	copiedConfig := defaultConfig
	return &copiedConfig
}

// NewConfigFromFile loads configuration from a TOML file and returns a
// validated Config
func NewConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	loader := config.New()
	if err := loader.RegisterStruct("rotalog.", *cfg); err != nil {
		return nil, fmt.Errorf("rotalog: failed to register config struct: %w", err)
	}

	// Load from file (handles file not found gracefully)
	if err := loader.Load(path, nil); err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return nil, fmt.Errorf("rotalog: failed to load config from %s: %w", path, err)
	}

	if err := extractConfig(loader, "rotalog.", cfg); err != nil {
		return nil, fmt.Errorf("rotalog: failed to extract config values: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewConfigFromDefaults creates a Config with default values and applies
// "key=value" string overrides
func NewConfigFromDefaults(overrides ...string) (*Config, error) {
	cfg := DefaultConfig()

	var errs []error
	for _, override := range overrides {
		key, value, err := parseKeyValue(override)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := applyConfigField(cfg, key, value); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		combined := errs[0]
		for _, e := range errs[1:] {
			combined = combineErrors(combined, e)
		}
		return nil, combined
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// extractConfig extracts values from lixenwraith/config into our Config struct
func extractConfig(loader *config.Config, prefix string, cfg *Config) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldValue := v.Field(i)

		tomlTag := field.Tag.Get("toml")
		if tomlTag == "" {
			continue
		}

		val, found := loader.Get(prefix + tomlTag)
		if !found {
			continue // Use default value
		}

		if err := setFieldValue(fieldValue, val); err != nil {
			return fmt.Errorf("failed to set field %s: %w", field.Name, err)
		}
	}
	return nil
}

// applyConfigField sets one field, identified by its toml tag, from a
// string value
func applyConfigField(cfg *Config, key, value string) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Tag.Get("toml") != key {
			continue
		}
		field := v.Field(i)

		switch field.Kind() {
		case reflect.String:
			field.SetString(value)
		case reflect.Int64:
			// Level accepts names as well as numbers
			if key == "level" {
				if lvl, err := Level(value); err == nil {
					field.SetInt(lvl)
					return nil
				}
			}
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmtErrorf("invalid value for %s: '%s'", key, value)
			}
			field.SetInt(n)
		case reflect.Bool:
			b, err := strconv.ParseBool(value)
			if err != nil {
				return fmtErrorf("invalid value for %s: '%s'", key, value)
			}
			field.SetBool(b)
		default:
			return fmtErrorf("unsupported field type for %s", key)
		}
		return nil
	}
	return fmtErrorf("unknown config key: %s", key)
}

// setFieldValue sets a reflect.Value with proper type conversion
func setFieldValue(field reflect.Value, value any) error {
	switch field.Kind() {
	case reflect.String:
		strVal, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		field.SetString(strVal)

	case reflect.Int64:
		switch v := value.(type) {
		case int64:
			field.SetInt(v)
		case int:
			field.SetInt(int64(v))
		default:
			return fmt.Errorf("expected int64, got %T", value)
		}

	case reflect.Bool:
		boolVal, ok := value.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", value)
		}
		field.SetBool(boolVal)

	default:
		return fmt.Errorf("unsupported field type: %v", field.Kind())
	}
	return nil
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmtErrorf("log name cannot be empty")
	}

	if c.Format != "txt" && c.Format != "json" {
		return fmtErrorf("invalid format: '%s' (use txt or json)", c.Format)
	}

	if strings.HasPrefix(c.Extension, ".") {
		return fmtErrorf("extension should not start with dot: %s", c.Extension)
	}

	if strings.TrimSpace(c.TimestampFormat) == "" {
		return fmtErrorf("timestamp_format cannot be empty")
	}

	if c.RotationThresholdKB < 0 {
		return fmtErrorf("rotation_threshold_kb cannot be negative: %d", c.RotationThresholdKB)
	}

	if c.MaxArchivedFiles < 0 {
		return fmtErrorf("max_archived_files cannot be negative: %d", c.MaxArchivedFiles)
	}

	if c.QueueCapacity <= 0 {
		return fmtErrorf("queue_capacity must be positive: %d", c.QueueCapacity)
	}

	if c.BackpressurePolicy != PolicyBlock && c.BackpressurePolicy != PolicyDrop {
		return fmtErrorf("invalid backpressure_policy: '%s' (use block or drop)", c.BackpressurePolicy)
	}

	if c.EnqueueTimeoutMs < 0 || c.DrainTimeoutMs < 0 {
		return fmtErrorf("timeout settings cannot be negative")
	}

	if c.WatchdogIntervalMs <= 0 || c.WatchdogGracePeriodMs <= 0 {
		return fmtErrorf("watchdog interval settings must be positive")
	}

	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	copiedConfig := *c
	return &copiedConfig
}

// flags derives the record flags from the formatting settings
func (c *Config) flags() int64 {
	var flags int64
	if c.ShowTimestamp {
		flags |= FlagShowTimestamp
	}
	if c.ShowLevel {
		flags |= FlagShowLevel
	}
	return flags
}

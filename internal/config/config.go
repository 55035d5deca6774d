// Package config loads runtime settings.
//
// Sources are layered, later ones overriding earlier ones:
//
//  1. Built-in defaults
//  2. An optional YAML file
//  3. Environment variables named LOCKSTEP_<SECTION>_<KEY>, for example
//     LOCKSTEP_SCHEDULER_FIXED_STEP=10ms
//
// Durations are written as Go duration strings ("16ms", "1s").
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "LOCKSTEP_"

// Config is the full runtime configuration.
type Config struct {
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Frame     FrameConfig     `koanf:"frame"`
	Journal   JournalConfig   `koanf:"journal"`
	Debug     DebugConfig     `koanf:"debug"`
	Log       LogConfig       `koanf:"log"`
}

// SchedulerConfig tunes the fixed-timestep loop.
type SchedulerConfig struct {
	FixedStep     time.Duration `koanf:"fixed_step"`
	MaxLagTicks   int           `koanf:"max_lag_ticks"`
	SpinThreshold time.Duration `koanf:"spin_threshold"`
}

// FrameConfig tunes the main loop.
type FrameConfig struct {
	Interval time.Duration `koanf:"interval"`
}

// JournalConfig locates the SQLite journal. An empty path disables it.
type JournalConfig struct {
	Path string `koanf:"path"`
}

// DebugConfig enables contract assertions.
type DebugConfig struct {
	Assertions bool `koanf:"assertions"`
}

// LogConfig selects log output.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Defaults returns the built-in configuration.
func Defaults() map[string]any {
	return map[string]any{
		"scheduler.fixed_step":     "16666666ns",
		"scheduler.max_lag_ticks":  5,
		"scheduler.spin_threshold": "2ms",
		"frame.interval":           "16666666ns",
		"journal.path":             "",
		"debug.assertions":         false,
		"log.level":                "info",
		"log.format":               "text",
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps LOCKSTEP_SCHEDULER_FIXED_STEP to scheduler.fixed_step.
// Section names contain no underscores, so only the first one splits.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, key, ok := strings.Cut(s, "_")
	if !ok {
		return ""
	}
	return section + "." + key
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Scheduler.FixedStep <= 0 {
		return fmt.Errorf("scheduler.fixed_step must be positive, got %s", c.Scheduler.FixedStep)
	}
	if c.Scheduler.MaxLagTicks <= 0 {
		return fmt.Errorf("scheduler.max_lag_ticks must be positive, got %d", c.Scheduler.MaxLagTicks)
	}
	if c.Scheduler.SpinThreshold < 0 {
		return fmt.Errorf("scheduler.spin_threshold must not be negative, got %s", c.Scheduler.SpinThreshold)
	}
	if c.Frame.Interval <= 0 {
		return fmt.Errorf("frame.interval must be positive, got %s", c.Frame.Interval)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	return nil
}

// Package config handles configuration loading using viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"firestige.xyz/flowreader/internal/core"
	"firestige.xyz/flowreader/internal/log"
	"firestige.xyz/flowreader/internal/source"
)

// rootKey is the YAML root wrapper. Env vars take the FLOWREADER_ prefix
// through the key replacer (key "flowreader.capture.filter" → env
// "FLOWREADER_CAPTURE_FILTER").
const rootKey = "flowreader"

// Config is the effective process configuration.
type Config struct {
	Log     log.LoggerConfig `mapstructure:"log" yaml:"log"`
	Capture source.Config    `mapstructure:"capture" yaml:"capture"`
	Metrics MetricsConfig    `mapstructure:"metrics" yaml:"metrics"`
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
}

type configRoot struct {
	Flowreader Config `mapstructure:"flowreader" yaml:"flowreader"`
}

// flagKeys maps command-line flag names to config keys below the root.
var flagKeys = map[string]string{
	"interface":    "capture.interface",
	"read":         "capture.file",
	"filter":       "capture.filter",
	"snaplen":      "capture.snaplen",
	"promisc":      "capture.promiscuous",
	"timeout":      "capture.timeout_ms",
	"capture-type": "capture.type",
	"log-level":    "log.level",
}

// Load builds the configuration from defaults, an optional YAML file,
// FLOWREADER_* env vars and changed flags, in increasing precedence.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: read config file: %v", core.ErrConfigInvalid, err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(rootKey+"."+key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("%w: unmarshal config: %v", core.ErrConfigInvalid, err)
	}
	cfg := root.Flowreader

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("flowreader.log.level", "info")
	v.SetDefault("flowreader.log.pattern", log.DefaultPattern)
	v.SetDefault("flowreader.log.time", log.DefaultTime)
	v.SetDefault("flowreader.log.file.enabled", false)
	v.SetDefault("flowreader.log.file.filename", "/var/log/flowreader/flowreader.log")
	v.SetDefault("flowreader.log.file.max_size", 100)
	v.SetDefault("flowreader.log.file.max_backups", 5)
	v.SetDefault("flowreader.log.file.max_age", 30)
	v.SetDefault("flowreader.log.file.compress", true)

	// Capture defaults. The device is left empty so a replay file given
	// anywhere does not collide with it; validation falls back to eth0.
	v.SetDefault("flowreader.capture.type", source.TypePcap)
	v.SetDefault("flowreader.capture.interface", "")
	v.SetDefault("flowreader.capture.file", "")
	v.SetDefault("flowreader.capture.filter", "")
	v.SetDefault("flowreader.capture.snaplen", source.DefaultSnapLen)
	v.SetDefault("flowreader.capture.promiscuous", true)
	v.SetDefault("flowreader.capture.timeout_ms", source.DefaultTimeoutMs)
	v.SetDefault("flowreader.capture.buffer_size_mb", source.DefaultBufferSizeMB)

	// Metrics defaults
	v.SetDefault("flowreader.metrics.enabled", false)
	v.SetDefault("flowreader.metrics.listen", ":9091")
	v.SetDefault("flowreader.metrics.path", "/metrics")
}

// ValidateAndApplyDefaults validates configuration and applies runtime defaults.
// Every failure wraps core.ErrConfigInvalid.
func (cfg *Config) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true,
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("%w: invalid log level: %s (must be trace/debug/info/warn/error)",
			core.ErrConfigInvalid, cfg.Log.Level)
	}
	if cfg.Log.Pattern == "" {
		cfg.Log.Pattern = log.DefaultPattern
	}
	if cfg.Log.Time == "" {
		cfg.Log.Time = log.DefaultTime
	}
	if cfg.Log.File.Enabled && cfg.Log.File.Filename == "" {
		return fmt.Errorf("%w: log.file.filename is required when log.file.enabled=true", core.ErrConfigInvalid)
	}

	// ── Capture validation ──
	if err := cfg.Capture.Validate(); err != nil {
		return err
	}

	// ── Metrics validation ──
	if cfg.Metrics.Enabled {
		if cfg.Metrics.Listen == "" {
			return fmt.Errorf("%w: metrics.listen is required when metrics.enabled=true", core.ErrConfigInvalid)
		}
		if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			return fmt.Errorf("%w: metrics.path must start with '/': %q", core.ErrConfigInvalid, cfg.Metrics.Path)
		}
	}
	return nil
}

// Dump renders the configuration as YAML under the root key.
func (cfg *Config) Dump() ([]byte, error) {
	return yaml.Marshal(configRoot{Flowreader: *cfg})
}

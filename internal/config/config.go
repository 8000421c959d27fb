// Package config loads the flip clock's settings from an optional file and
// FLIPCLOCK_ environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const envPrefix = "FLIPCLOCK"

// Config is the full set of settings of the flipclock binary.
type Config struct {
	HTTP       HTTP       `mapstructure:"http"`
	Clock      Clock      `mapstructure:"clock"`
	Transition Transition `mapstructure:"transition"`
	Log        Log        `mapstructure:"log"`
	Metrics    Metrics    `mapstructure:"metrics"`
}

type HTTP struct {
	Addr string `mapstructure:"addr"`
}

type Clock struct {
	Interval time.Duration `mapstructure:"interval"`
}

type Transition struct {
	Duration time.Duration `mapstructure:"duration"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

// SlogLevel parses Level, accepting the names understood by slog.Level.
func (l Log) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", l.Level, err)
	}
	return level, nil
}

type Metrics struct {
	Enabled         bool          `mapstructure:"enabled"`
	ProjectID       string        `mapstructure:"project_id"`
	CredentialsFile string        `mapstructure:"credentials_file"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`

	// AggregationInterval is in seconds.
	AggregationInterval int64 `mapstructure:"aggregation_interval"`
}

// Validate reports every setting that is out of range.
func (c *Config) Validate() error {

	var errs []error

	if strings.TrimSpace(c.HTTP.Addr) == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}

	if c.Clock.Interval <= 0 {
		errs = append(errs, errors.New("clock.interval must be greater than 0"))
	}

	if c.Transition.Duration < 0 {
		errs = append(errs, errors.New("transition.duration must not be negative"))
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	if c.Metrics.Enabled {
		if c.Metrics.RefreshInterval <= 0 {
			errs = append(errs, errors.New("metrics.refresh_interval must be greater than 0"))
		}
		if c.Metrics.AggregationInterval <= 0 {
			errs = append(errs, errors.New("metrics.aggregation_interval must be greater than 0"))
		}
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("clock.interval", time.Second)
	v.SetDefault("transition.duration", 600*time.Millisecond)
	v.SetDefault("log.level", "info")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.project_id", "")
	v.SetDefault("metrics.credentials_file", "")
	v.SetDefault("metrics.refresh_interval", time.Minute)
	v.SetDefault("metrics.aggregation_interval", 60)
}

// Viper reads Config through github.com/spf13/viper.
type Viper struct {
	v        *viper.Viper
	pathFile string
}

// NewViper loads defaults, the file at pathFile when it is not empty, and
// FLIPCLOCK_ environment variables, in increasing order of precedence. The
// file type is inferred from its extension.
func NewViper(pathFile string) (*Viper, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if pathFile != "" {
		filename := path.Base(pathFile)

		v.AddConfigPath(path.Dir(pathFile))
		v.SetConfigName(filename[:len(filename)-len(path.Ext(filename))])

		if ext := strings.TrimPrefix(path.Ext(filename), "."); ext != "" {
			v.SetConfigType(ext)
		}

		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	return &Viper{v: v, pathFile: pathFile}, nil
}

// Load decodes and validates the current settings.
func (vc *Viper) Load() (*Config, error) {

	var cfg Config
	if err := vc.v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Watch calls fn with the reloaded Config each time the config file changes.
// Invalid reloads are logged and skipped. Watch does nothing without a file.
func (vc *Viper) Watch(fn func(*Config)) {

	if vc.pathFile == "" {
		return
	}

	vc.v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := vc.Load()
		if err != nil {
			slog.Error("config reload failed", "path", vc.pathFile, "err", err)
			return
		}

		slog.Info("config success reloaded", "path", vc.pathFile)
		fn(cfg)
	})
	vc.v.WatchConfig()
}

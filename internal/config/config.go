// Package config loads lectern configuration from a YAML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

// Config holds the full pipeline configuration.
type Config struct {
	// Synthesis is the remote voice model client configuration.
	Synthesis SynthesisConfig `yaml:"synthesis" mapstructure:"synthesis"`

	// Voice selects the active voice and names the voices that require
	// network synthesis.
	Voice VoiceConfig `yaml:"voice" mapstructure:"voice"`

	// CacheDir is where synthesized audio is persisted. Defaults under
	// the user cache directory.
	CacheDir string `yaml:"cache_dir" mapstructure:"cache_dir" env:"LECTERN_CACHE_DIR"`

	// Speed is the initial playback rate.
	Speed float64 `yaml:"speed" mapstructure:"speed" env:"LECTERN_SPEED"`

	// Debug enables debug logging.
	Debug bool `yaml:"debug" mapstructure:"debug" env:"LECTERN_DEBUG"`
}

// SynthesisConfig configures the HTTP synthesis client.
type SynthesisConfig struct {
	Endpoint          string        `yaml:"endpoint" mapstructure:"endpoint" env:"LECTERN_SYNTHESIS_ENDPOINT"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout" env:"LECTERN_SYNTHESIS_TIMEOUT"`
	RequestsPerMinute int           `yaml:"requests_per_minute" mapstructure:"requests_per_minute" env:"LECTERN_SYNTHESIS_RPM"`
}

// VoiceConfig selects the active voice.
type VoiceConfig struct {
	Current string   `yaml:"current" mapstructure:"current" env:"LECTERN_VOICE"`
	Network []string `yaml:"network" mapstructure:"network" env:"LECTERN_NETWORK_VOICES" envSeparator:","`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Synthesis: SynthesisConfig{
			Timeout:           30 * time.Second,
			RequestsPerMinute: 30,
		},
		Voice: VoiceConfig{
			Current: "river",
			Network: []string{"river", "brook", "meadow"},
		},
		CacheDir: defaultCacheDir(),
		Speed:    1.0,
	}
}

func defaultCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil || base == "" {
		return filepath.Join(os.TempDir(), "lectern", "audio")
	}
	return filepath.Join(base, "lectern", "audio")
}

// Load reads configuration from path (or the default location when
// empty), then applies environment overrides. A missing config file is
// not an error; defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "lectern"))
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	} else if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate checks ranges and required fields.
func (c Config) Validate() error {
	if c.Speed < 0.5 || c.Speed > 2.0 {
		return fmt.Errorf("speed %.2f out of range [0.5, 2.0]", c.Speed)
	}
	if c.Synthesis.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute must not be negative")
	}
	if c.CacheDir == "" {
		return fmt.Errorf("cache_dir must not be empty")
	}
	return nil
}

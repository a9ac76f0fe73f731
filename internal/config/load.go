package config

import (
	"bytes"
	"io"
	"strings"

	burntsushi "github.com/BurntSushi/toml"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/talgya/chitwan-abm/internal/errors"
)

// EnvPrefix is prepended to environment overrides.
const EnvPrefix = "CHITWAN"

// newViper returns a viper instance with defaults and environment binding.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load reads the configuration file at path, layered over the defaults and
// under environment overrides, and validates the result. An empty path loads
// defaults and environment only.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
	}
	cfg, err := LoadWithViper(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes TOML data, such as the configuration stored with a run,
// over the defaults and validates it. The environment is not consulted.
func Parse(data []byte) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("toml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}
	cfg, err := LoadWithViper(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithViper unmarshals configuration from a provided viper instance
// without validating it.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &cfg, nil
}

// Default returns the built-in configuration, ignoring the environment.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadWithViper(v)
	if err != nil {
		// Defaults are static; failing to decode them is a programming error.
		panic(err)
	}
	return cfg
}

// WriteDefault writes the built-in configuration as TOML, as a starting
// point for a run's config file.
func WriteDefault(w io.Writer) error {
	if _, err := io.WriteString(w, "# Chitwan Valley demographic model configuration.\n# One timestep is one year; hazard rates are annual probabilities.\n\n"); err != nil {
		return errors.Wrap(err, "failed to write config header")
	}
	if err := burntsushi.NewEncoder(w).Encode(Default()); err != nil {
		return errors.Wrap(err, "failed to encode default config")
	}
	return nil
}

// Marshal renders cfg as TOML, e.g. to show the effective configuration.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal config to TOML")
	}
	return data, nil
}

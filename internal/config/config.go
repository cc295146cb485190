// Package config resolves herald's runtime settings from command-line
// flags, HERALD_* environment variables and an optional config file.
//
// Precedence, highest first: explicit flag, environment, config file,
// default. The platform variable PORT sets the listen port when neither
// --listen nor HERALD_LISTEN is given.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment key.
const EnvPrefix = "HERALD"

// Roles accepted by --role.
const (
	RolePrimary   = "primary"
	RoleSecondary = "secondary"
)

// Config holds the resolved settings for `herald serve`.
type Config struct {
	Listen           string        `mapstructure:"listen"`
	Peer             string        `mapstructure:"peer"`
	Role             string        `mapstructure:"role"`
	DataDir          string        `mapstructure:"data-dir"`
	LogLevel         string        `mapstructure:"log-level"`
	LogFormat        string        `mapstructure:"log-format"`
	ProbeInterval    time.Duration `mapstructure:"probe-interval"`
	ProbeTimeout     time.Duration `mapstructure:"probe-timeout"`
	SubscribeTimeout time.Duration `mapstructure:"subscribe-timeout"`
	MaxFailures      int           `mapstructure:"max-failures"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Listen:           ":8080",
		Role:             RolePrimary,
		LogLevel:         "info",
		LogFormat:        "text",
		ProbeInterval:    5 * time.Second,
		ProbeTimeout:     2 * time.Second,
		SubscribeTimeout: 25 * time.Second,
		MaxFailures:      3,
	}
}

// RegisterFlags adds the serve flags to fs with their defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("config", "", "path to a config file (yaml, json or toml)")
	fs.String("listen", d.Listen, "HTTP listen address")
	fs.String("peer", d.Peer, "base URL of the peer instance")
	fs.String("role", d.Role, "initial role: primary or secondary")
	fs.String("data-dir", d.DataDir, "pebble data directory; empty keeps chat data in memory")
	fs.String("log-level", d.LogLevel, "log level (debug, info, warn, error)")
	fs.String("log-format", d.LogFormat, "log format (text or json)")
	fs.Duration("probe-interval", d.ProbeInterval, "interval between peer health probes")
	fs.Duration("probe-timeout", d.ProbeTimeout, "timeout of a single peer health probe")
	fs.Duration("subscribe-timeout", d.SubscribeTimeout, "default long-poll timeout")
	fs.Int("max-failures", d.MaxFailures, "consecutive failed probes before promotion")
}

// Load resolves a Config from fs, the environment and the config file
// named by --config, then validates it.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	d := Default()
	v.SetDefault("listen", d.Listen)
	v.SetDefault("peer", d.Peer)
	v.SetDefault("role", d.Role)
	v.SetDefault("data-dir", d.DataDir)
	v.SetDefault("log-level", d.LogLevel)
	v.SetDefault("log-format", d.LogFormat)
	v.SetDefault("probe-interval", d.ProbeInterval)
	v.SetDefault("probe-timeout", d.ProbeTimeout)
	v.SetDefault("subscribe-timeout", d.SubscribeTimeout)
	v.SetDefault("max-failures", d.MaxFailures)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, errors.Wrap(err, "bind flags")
		}
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}

	listenSet := fs != nil && fs.Changed("listen")
	if _, ok := os.LookupEnv(EnvPrefix + "_LISTEN"); ok {
		listenSet = true
	}
	if port := os.Getenv("PORT"); port != "" && !listenSet && !v.InConfig("listen") {
		cfg.Listen = ":" + port
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Role {
	case RolePrimary:
	case RoleSecondary:
		if c.Peer == "" {
			return errors.Errorf("role %q requires --peer", RoleSecondary)
		}
	default:
		return errors.Errorf("invalid role %q: want %s or %s", c.Role, RolePrimary, RoleSecondary)
	}
	if c.Listen == "" {
		return errors.New("listen address is required")
	}
	if c.ProbeInterval <= 0 {
		return errors.Errorf("probe-interval must be positive, got %s", c.ProbeInterval)
	}
	if c.ProbeTimeout <= 0 {
		return errors.Errorf("probe-timeout must be positive, got %s", c.ProbeTimeout)
	}
	if c.SubscribeTimeout <= 0 {
		return errors.Errorf("subscribe-timeout must be positive, got %s", c.SubscribeTimeout)
	}
	if c.MaxFailures < 1 {
		return errors.Errorf("max-failures must be at least 1, got %d", c.MaxFailures)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "log-level")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return errors.Errorf("invalid log-format %q: want text or json", c.LogFormat)
	}
	return nil
}

// Passive reports whether the node starts in the passive role.
func (c *Config) Passive() bool {
	return c.Role == RoleSecondary
}

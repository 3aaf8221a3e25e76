package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/IvanBrykalov/nwaycache/internal/util"
	"github.com/IvanBrykalov/nwaycache/policy"
)

const envPrefix = "NWAYCACHE"

// Config is the merged view of flags, NWAYCACHE_* environment variables and
// the optional config file, in decreasing order of precedence.
type Config struct {
	Strategy string `mapstructure:"strategy"`
	Shards   int    `mapstructure:"shards"`
	Capacity int    `mapstructure:"capacity"`
	Hasher   string `mapstructure:"hasher"`

	LogLevel  string `mapstructure:"log-level"`
	LogFormat string `mapstructure:"log-format"`
}

// loadConfig binds flags to a fresh viper instance, reads configFile if set
// and unmarshals the result.
func loadConfig(flags *pflag.FlagSet, configFile string) (*viper.Viper, *Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flags); err != nil {
		return nil, nil, fmt.Errorf("bind flags: %w", err)
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return v, cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if _, err := policy.ParseKind(c.Strategy); err != nil {
		errs = append(errs, err)
	}
	if c.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("capacity must be > 0, got %d", c.Capacity))
	}
	if c.Shards < 0 {
		errs = append(errs, fmt.Errorf("shards must be >= 0, got %d", c.Shards))
	}
	switch c.Hasher {
	case "fnv", "xxhash":
	default:
		errs = append(errs, fmt.Errorf("unknown hasher %q (use fnv or xxhash)", c.Hasher))
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q (use console or json)", c.LogFormat))
	}
	return errors.Join(errs...)
}

// kind returns the validated strategy.
func (c *Config) kind() policy.Kind {
	k, _ := policy.ParseKind(c.Strategy)
	return k
}

// hasherFor returns the configured shard hash for key type K.
func hasherFor[K comparable](name string) func(K) uint64 {
	if name == "xxhash" {
		return util.XXHash[K]
	}
	return util.Fnv64a[K]
}

// newLogger builds a development (console) or production (json) zap logger.
func newLogger(c *Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if c.LogFormat == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

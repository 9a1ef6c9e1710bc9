// Package config resolves one run's configuration: environment-specific
// ambient defaults layered under CLI flags, the same precedence the wider
// service's config/<env>.yaml convention uses, extended with a generic
// flag/env/file loader for the run-specific surface.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/GabrielNunesIT/go-libs/configloader"
	"github.com/spf13/pflag"
	goconfig "go.uber.org/config"
)

// EnvKey is the environment variable naming the deployment environment.
const EnvKey = "SERVICE_ENV"

// Env is the deployment environment, used to pick which ambient defaults
// file to load.
type Env string

const defaultEnv Env = "development"

func getEnv() Env {
	env, exists := os.LookupEnv(EnvKey)
	if !exists || len(env) == 0 {
		return defaultEnv
	}
	return Env(env)
}

// RunConfig is everything one run against the challenge service needs:
// where to reach it, how to authenticate, and the timing parameters for
// the load the scheduler generates.
type RunConfig struct {
	Endpoint          string `koanf:"endpoint" yaml:"endpoint"`
	Auth              string `koanf:"auth" yaml:"auth"`
	Name              string `koanf:"name" yaml:"name"`
	Seed              uint64 `koanf:"seed" yaml:"seed"`
	RateMillis        uint64 `koanf:"rate" yaml:"rate"`
	MinSeconds        uint64 `koanf:"min" yaml:"min"`
	MaxSeconds        uint64 `koanf:"max" yaml:"max"`
	ObservabilityAddr string `koanf:"observability_addr" yaml:"observability_addr"`
}

// Rate is the inter-arrival spacing between placements.
func (c RunConfig) Rate() time.Duration { return time.Duration(c.RateMillis) * time.Millisecond }

// Min is the lower bound of the pickup-delay sampling window.
func (c RunConfig) Min() time.Duration { return time.Duration(c.MinSeconds) * time.Second }

// Max is the upper bound of the pickup-delay sampling window.
func (c RunConfig) Max() time.Duration { return time.Duration(c.MaxSeconds) * time.Second }

// builtinDefaults seed the configuration before any environment file or
// flag is consulted.
var builtinDefaults = RunConfig{
	RateMillis:        500,
	MinSeconds:        4,
	MaxSeconds:        8,
	ObservabilityAddr: "127.0.0.1:9090",
}

// loadEnvDefaults reads path (or, if empty, config/<env>.yaml), if
// present, to seed environment-specific defaults (e.g. a non-default
// observability address in staging) before CLI flags are layered on. A
// missing file is not an error: the builtin defaults stand in for
// local, one-off runs.
func loadEnvDefaults(env Env, path string) RunConfig {
	defaults := builtinDefaults
	if path == "" {
		path = fmt.Sprintf("config/%s.yaml", env)
	}
	if _, err := os.Stat(path); err != nil {
		return defaults
	}
	provider := goconfig.NewYAMLProviderFromFiles(path)
	provider.Get("run").Populate(&defaults)
	return defaults
}

// Flags returns the CLI flag set for the run, per the documented
// surface: --endpoint, --auth, --name, --seed, --rate, --min, --max,
// plus the ambient --observability-addr and --config.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("kitchen-challenge", pflag.ContinueOnError)
	fs.String("endpoint", "", "challenge service base URL")
	fs.String("auth", "", "challenge service auth token (required)")
	fs.String("name", "", "participant name forwarded to the challenge service")
	fs.Uint64("seed", 0, "challenge seed; 0 picks a random seed")
	fs.Uint64("rate", 0, "milliseconds between placements")
	fs.Uint64("min", 0, "minimum pickup delay, in seconds")
	fs.Uint64("max", 0, "maximum pickup delay, in seconds")
	fs.String("observability-addr", "", "address the debug HTTP server listens on")
	fs.String("config", "", "path to an optional YAML defaults file (overrides the config/<env>.yaml lookup)")
	return fs
}

// Load resolves a RunConfig from the environment's ambient defaults, then
// layers parsed CLI flags on top, validating the fields the challenge
// service requires. fs must already have been parsed.
func Load(fs *pflag.FlagSet) (RunConfig, error) {
	configPath, _ := fs.GetString("config")
	defaults := loadEnvDefaults(getEnv(), configPath)

	loader := configloader.NewConfigLoader(
		configloader.WithDefaults(defaults),
		configloader.WithFlags[RunConfig](fs),
	)
	cfg, err := loader.Load()
	if err != nil {
		return RunConfig{}, fmt.Errorf("loading run configuration: %w", err)
	}

	if cfg.Endpoint == "" {
		return RunConfig{}, fmt.Errorf("--endpoint is required")
	}
	if cfg.Auth == "" {
		return RunConfig{}, fmt.Errorf("--auth is required")
	}
	if cfg.MaxSeconds < cfg.MinSeconds {
		return RunConfig{}, fmt.Errorf("--max (%ds) must be >= --min (%ds)", cfg.MaxSeconds, cfg.MinSeconds)
	}
	return cfg, nil
}

package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/pflag"
)

type Config struct {
	HTTPAddr           string        `envconfig:"HTTP_ADDR" default:":9091"`
	AppEnv             string        `envconfig:"APP_ENV" default:"dev"`
	LogLevel           string        `envconfig:"LOG_LEVEL" default:"info"`
	JWTSecret          string        `envconfig:"JWT_SECRET" default:"change-me-in-production"`
	TokenTTL           time.Duration `envconfig:"TOKEN_TTL" default:"1h"`
	StrictTransactions bool          `envconfig:"STRICT_TRANSACTIONS" default:"false"`
	SeedFile           string        `envconfig:"SEED_FILE" default:""`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
}

// Load reads the environment after merging the given .env files. Without
// files it tries ./.env and ignores its absence. Variables already set in the
// process environment win over .env values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, err
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromArgs parses command-line flags, loads the environment and lets every
// flag that was set explicitly override its environment value.
func FromArgs(name string, args []string) (*Config, error) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	envFile := fs.String("env-file", "", "path to a .env file")
	addr := fs.String("addr", "", "HTTP listen address")
	seed := fs.String("seed", "", "YAML catalog to seed on startup")
	level := fs.String("log-level", "", "log level (debug, info, warn, error)")
	strict := fs.Bool("strict-tx", false, "hold the store lock for whole order and payment operations")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	var files []string
	if *envFile != "" {
		files = append(files, *envFile)
	}
	cfg, err := Load(files...)
	if err != nil {
		return nil, err
	}

	if fs.Changed("addr") {
		cfg.HTTPAddr = *addr
	}
	if fs.Changed("seed") {
		cfg.SeedFile = *seed
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = *level
	}
	if fs.Changed("strict-tx") {
		cfg.StrictTransactions = *strict
	}
	return cfg, nil
}

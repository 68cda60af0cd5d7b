package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Options struct {
	Service string
	Env     string
	Level   string
}

// New builds a JSON logger for production and a console logger otherwise.
// Unknown levels fall back to info.
func New(opts Options) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if isProd(opts.Env) {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(opts.Level))

	base, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return base.With(
		zap.String("service", opts.Service),
		zap.String("env", opts.Env),
	), nil
}

func isProd(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "prod", "production":
		return true
	default:
		return false
	}
}

func parseLevel(lvl string) zapcore.Level {
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(lvl)))
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

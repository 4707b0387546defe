// Package logging builds the process-wide structured logger.
//
// Unlike the pkg/logger it is grounded on, New returns a *zap.Logger rather
// than setting a package-level global: every service in this module takes a
// logger in its constructor so the composition root is the only place that
// decides how logs are sinked.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls the logger's encoding and level.
type Config struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string
	// Development selects a human-readable console encoder instead of JSON.
	Development bool
}

// New builds a *zap.Logger per cfg. Callers should defer logger.Sync().
func New(cfg Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("logging: invalid level %q: %w", cfg.Level, err)
		}
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Development {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(os.Stdout)), level)

	opts := []zap.Option{zap.AddCaller()}
	if !cfg.Development {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	return zap.New(core, opts...), nil
}

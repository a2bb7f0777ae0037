// Package logging builds the site's logr logger on top of zap.
package logging

import (
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Verbosity levels for logger.V.
const (
	DEFAULT = 0
	VERBOSE = 1
	DEBUG   = 2
)

// New returns a JSON logger at level ("debug", "info", "warn", "error").
// Unknown levels fall back to info. In dev mode the console encoder is used.
func New(level string, dev bool) (logr.Logger, error) {
	cfg := zap.NewProductionConfig()
	if dev {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))

	zl, err := cfg.Build()
	if err != nil {
		return logr.Discard(), err
	}
	return zapr.NewLogger(zl), nil
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.Level(-DEBUG)
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// NewTestLogger returns a development logger that writes every verbosity.
func NewTestLogger() logr.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-DEBUG))
	zl, err := cfg.Build()
	if err != nil {
		return logr.Discard()
	}
	return zapr.NewLogger(zl)
}

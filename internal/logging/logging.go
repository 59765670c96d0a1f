// Package logging builds the zap logger used for structured CLI output,
// grounded on codenerd's cmd/nerd/main.go (a zap.NewProductionConfig,
// switched to debug level under --verbose, built once at process start).
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap.Logger for CLI output. verbose lowers the level to
// debug; otherwise only info-and-above records are emitted.
func New(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// Nop returns a logger that discards everything, used by tests and by
// callers that haven't opted into structured output.
func Nop() *zap.Logger {
	return zap.NewNop()
}

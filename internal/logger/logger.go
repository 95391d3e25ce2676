// internal/logger/logger.go
package logger

import (
	"github.com/juju/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Component names used as logger names.
const (
	ComponentMain      = "statusd"
	ComponentTracker   = "tracker"
	ComponentHealth    = "healthpoll"
	ComponentSource    = "source"
	ComponentPublisher = "publisher"
	ComponentWriter    = "writer"
)

// ParseLevel parses "debug", "info", "warn" or "error".
func ParseLevel(level string) (zapcore.Level, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return lvl, errors.NotValidf("log level %q", level)
	}
	return lvl, nil
}

// New builds a console logger at the given level.
func New(level string) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return Build(zap.NewAtomicLevelAt(lvl))
}

// Build builds a console logger whose level follows level.
func Build(level zap.AtomicLevel) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.Level = level
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.DisableStacktrace = level.Level() > zapcore.DebugLevel

	l, err := cfg.Build()
	if err != nil {
		return nil, errors.Annotate(err, "building logger")
	}
	return l, nil
}

// For returns a named sugared logger, or a no-op one when base is nil.
func For(base *zap.SugaredLogger, component string) *zap.SugaredLogger {
	if base == nil {
		return zap.NewNop().Sugar()
	}
	return base.Named(component)
}

// Package logger holds the structured logger shared by the Keyport binaries.
//
// Every entry carries service=keyport and the component that emitted it
// (server or seed). Credential values and passwords are never passed to it;
// callers log IDs and keys only. The level can be raised or lowered on a
// running server by an administrator through /log/level.
package logger

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Components that initialize the logger.
const (
	ComponentServer = "server"
	ComponentSeed   = "seed"
)

var (
	global      *zap.Logger
	atomicLevel = zap.NewAtomicLevel()
	once        sync.Once
	nop         = zap.NewNop()
)

// Init builds the global logger once per process. level is one of debug,
// info, warn or error; format is json or console.
func Init(level, format, component string) error {
	var initErr error
	once.Do(func() {
		if err := atomicLevel.UnmarshalText([]byte(level)); err != nil {
			initErr = fmt.Errorf("parse log level %q: %w", level, err)
			return
		}

		var cfg zap.Config
		if format == "console" {
			cfg = zap.NewDevelopmentConfig()
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		} else {
			cfg = zap.NewProductionConfig()
			cfg.EncoderConfig.TimeKey = "ts"
			cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		}
		cfg.Level = atomicLevel

		l, err := cfg.Build(zap.AddCallerSkip(1))
		if err != nil {
			initErr = fmt.Errorf("build logger: %w", err)
			return
		}
		global = l.With(zap.String("service", "keyport"), zap.String("component", component))
	})
	return initErr
}

// SetLevel changes the level of the running process.
func SetLevel(level string) error {
	return atomicLevel.UnmarshalText([]byte(level))
}

// GetLevel returns the current level.
func GetLevel() zapcore.Level {
	return atomicLevel.Level()
}

// L returns the global logger, or a no-op logger before Init. Services and
// their unit tests log through it without initializing anything.
func L() *zap.Logger {
	if global == nil {
		return nop
	}
	return global
}

// Debug logs at DebugLevel.
func Debug(msg string, fields ...zap.Field) { L().Debug(msg, fields...) }

// Info logs at InfoLevel.
func Info(msg string, fields ...zap.Field) { L().Info(msg, fields...) }

// Warn logs at WarnLevel.
func Warn(msg string, fields ...zap.Field) { L().Warn(msg, fields...) }

// Error logs at ErrorLevel.
func Error(msg string, fields ...zap.Field) { L().Error(msg, fields...) }

// LevelHandler serves the level for the admin-only /log/level route:
// GET reports it, PUT {"level":"debug"} changes it.
func LevelHandler() *zap.AtomicLevel {
	return &atomicLevel
}

// Sync flushes buffered entries before the process exits.
func Sync() error {
	if global == nil {
		return nil
	}
	return global.Sync()
}

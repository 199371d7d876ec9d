// Package statlog adapts the teacher's hand-rolled, level/component-scoped
// logger (kernel/utils.Logger) to a zap-backed implementation. It exists
// purely for diagnostic visibility into arena lifecycle events (reset, and
// every failure, logged just before the harness signal fires) — nothing in the mock core's pass/fail behavior depends on it,
// and a nil *Logger is a silent no-op.
package statlog

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level follows the teacher's DEBUG..FATAL ladder, stopping at Error.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case Debug:
		return zapcore.DebugLevel
	case Info:
		return zapcore.InfoLevel
	case Warn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

// Config configures a Logger, following the teacher's LoggerConfig shape.
type Config struct {
	Level     Level
	Component string
	Output    io.Writer
	Colorize  bool
}

// Logger is a thin, component-scoped wrapper around *zap.Logger.
type Logger struct {
	z *zap.Logger
}

// New builds a Logger from Config. Output defaults to os.Stdout.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	if cfg.Colorize {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	encoder := zapcore.NewConsoleEncoder(encCfg)
	core := zapcore.NewCore(encoder, zapcore.AddSync(cfg.Output), cfg.Level.zapLevel())

	z := zap.New(core)
	if cfg.Component != "" {
		z = z.Named(cfg.Component)
	}
	return &Logger{z: z}
}

// Default returns a Logger at Info level writing to os.Stdout, scoped to
// component, matching the teacher's DefaultLogger ergonomics.
func Default(component string) *Logger {
	return New(Config{Level: Info, Component: component, Output: os.Stdout, Colorize: true})
}

func (l *Logger) Debug(msg string, fields ...zap.Field) {
	if l == nil {
		return
	}
	l.z.Debug(msg, fields...)
}

func (l *Logger) Info(msg string, fields ...zap.Field) {
	if l == nil {
		return
	}
	l.z.Info(msg, fields...)
}

func (l *Logger) Warn(msg string, fields ...zap.Field) {
	if l == nil {
		return
	}
	l.z.Warn(msg, fields...)
}

func (l *Logger) Sync() error {
	if l == nil {
		return nil
	}
	return l.z.Sync()
}

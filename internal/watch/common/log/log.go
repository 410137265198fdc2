package log

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var global Logger = newZapLogger(false, zapcore.InfoLevel) // prod/info until Configure runs

// SetLogger replaces the global logger instance.
func SetLogger(l Logger) {
	global = l
}

// GetLogger returns the current global logger instance.
func GetLogger() Logger {
	return global
}

// Logger is the structured logging interface shared by every blockwatch component.
type Logger interface {
	Info(fields map[string]any, msg string)
	Error(fields map[string]any, msg string)
	Debug(fields map[string]any, msg string)
	Warn(fields map[string]any, msg string)
	Panic(fields map[string]any, msg string)
	Fatal(fields map[string]any, msg string)
}

// Configure sets up the global logger. Any env other than "prod" gets the
// colored development encoder.
func Configure(env, level string) error {
	isDev := env != "prod"

	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	global = newZapLogger(isDev, lvl)
	return nil
}

// Named returns a logger that stamps every entry with component=name.
func Named(l Logger, name string) Logger {
	if l == nil {
		l = global
	}
	return &componentLogger{base: l, component: name}
}

func Info(fields map[string]any, msg string)  { global.Info(fields, msg) }
func Error(fields map[string]any, msg string) { global.Error(fields, msg) }
func Debug(fields map[string]any, msg string) { global.Debug(fields, msg) }
func Warn(fields map[string]any, msg string)  { global.Warn(fields, msg) }
func Panic(fields map[string]any, msg string) { global.Panic(fields, msg) }
func Fatal(fields map[string]any, msg string) { global.Fatal(fields, msg) }

// zapLogger implements Logger using Uber's zap.
type zapLogger struct {
	base *zap.Logger
}

func newZapLogger(dev bool, level zapcore.Level) Logger {
	var config zap.Config
	if dev {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}
	config.Level = zap.NewAtomicLevelAt(level)
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.MessageKey = "msg"
	config.EncoderConfig.LevelKey = "level"

	logger, err := config.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	return &zapLogger{base: logger}
}

func (l *zapLogger) Info(fields map[string]any, msg string) {
	l.base.With(zapFields(fields)...).Info(msg)
}

func (l *zapLogger) Error(fields map[string]any, msg string) {
	l.base.With(zapFields(fields)...).Error(msg)
}

func (l *zapLogger) Debug(fields map[string]any, msg string) {
	l.base.With(zapFields(fields)...).Debug(msg)
}

func (l *zapLogger) Warn(fields map[string]any, msg string) {
	l.base.With(zapFields(fields)...).Warn(msg)
}

func (l *zapLogger) Panic(fields map[string]any, msg string) {
	l.base.With(zapFields(fields)...).Panic(msg)
}

func (l *zapLogger) Fatal(fields map[string]any, msg string) {
	l.base.With(zapFields(fields)...).Fatal(msg)
}

func zapFields(m map[string]any) []zap.Field {
	fields := make([]zap.Field, 0, len(m))
	for k, v := range m {
		if err, ok := v.(error); ok {
			fields = append(fields, zap.NamedError(k, err))
			continue
		}
		fields = append(fields, zap.Any(k, v))
	}
	return fields
}

// componentLogger decorates another Logger with a fixed component field.
type componentLogger struct {
	base      Logger
	component string
}

func (c *componentLogger) with(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["component"] = c.component
	return out
}

func (c *componentLogger) Info(f map[string]any, msg string)  { c.base.Info(c.with(f), msg) }
func (c *componentLogger) Error(f map[string]any, msg string) { c.base.Error(c.with(f), msg) }
func (c *componentLogger) Debug(f map[string]any, msg string) { c.base.Debug(c.with(f), msg) }
func (c *componentLogger) Warn(f map[string]any, msg string)  { c.base.Warn(c.with(f), msg) }
func (c *componentLogger) Panic(f map[string]any, msg string) { c.base.Panic(c.with(f), msg) }
func (c *componentLogger) Fatal(f map[string]any, msg string) { c.base.Fatal(c.with(f), msg) }

// noopLogger discards all log messages.
type noopLogger struct{}

func (n *noopLogger) Info(map[string]any, string)  {}
func (n *noopLogger) Error(map[string]any, string) {}
func (n *noopLogger) Debug(map[string]any, string) {}
func (n *noopLogger) Warn(map[string]any, string)  {}
func (n *noopLogger) Panic(map[string]any, string) {}
func (n *noopLogger) Fatal(map[string]any, string) {}

// NewNoopLogger returns a Logger that discards all log messages.
func NewNoopLogger() Logger {
	return &noopLogger{}
}

// Package logger is the structured logger every component writes through.
package logger

import (
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger takes fields as a map so call sites stay free of zap types.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger
	Sync() error
}

// ParseLevel maps a config level name onto zap; unknown names mean info.
func ParseLevel(name string) zapcore.Level {
	level, err := zapcore.ParseLevel(name)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// New builds the process logger. "json" writes production JSON lines with
// ISO8601 timestamps; anything else writes colored console output.
func New(level, format string) *zap.Logger {
	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(ParseLevel(level))

	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

type structured struct {
	z *zap.Logger
}

// NewStructured creates a Logger from config values.
func NewStructured(level, format string) Logger {
	return FromZap(New(level, format))
}

// FromZap wraps an existing zap logger.
func FromZap(z *zap.Logger) Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &structured{z: z}
}

// NewNoOpLogger discards everything.
func NewNoOpLogger() Logger {
	return &structured{z: zap.NewNop()}
}

func (s *structured) Debug(msg string, fields map[string]interface{}) {
	s.write(zapcore.DebugLevel, msg, fields)
}

func (s *structured) Info(msg string, fields map[string]interface{}) {
	s.write(zapcore.InfoLevel, msg, fields)
}

func (s *structured) Warn(msg string, fields map[string]interface{}) {
	s.write(zapcore.WarnLevel, msg, fields)
}

func (s *structured) Error(msg string, fields map[string]interface{}) {
	s.write(zapcore.ErrorLevel, msg, fields)
}

func (s *structured) WithFields(fields map[string]interface{}) Logger {
	return &structured{z: s.z.With(toFields(fields)...)}
}

func (s *structured) WithError(err error) Logger {
	if err == nil {
		return s
	}
	return &structured{z: s.z.With(zap.Error(err))}
}

func (s *structured) Sync() error {
	return s.z.Sync()
}

// write skips field conversion when the level is disabled.
func (s *structured) write(level zapcore.Level, msg string, fields map[string]interface{}) {
	if ce := s.z.Check(level, msg); ce != nil {
		ce.Write(toFields(fields)...)
	}
}

// toFields converts in key order so console output is stable.
func toFields(fields map[string]interface{}) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		if err, ok := fields[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}

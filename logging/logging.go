package logging

import (
	"strings"

	"github.com/derktes/ir-signal-workbench/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Option adjusts the zap configuration before the logger is built.
type Option func(*zap.Config)

// WithFields attaches fields to every log line.
func WithFields(fields map[string]interface{}) Option {
	return func(cfg *zap.Config) {
		if cfg.InitialFields == nil {
			cfg.InitialFields = map[string]interface{}{}
		}
		for key, value := range fields {
			if key == "" {
				continue
			}
			cfg.InitialFields[key] = value
		}
	}
}

// WithOutput redirects log output, e.g. to stderr for CLI tools.
func WithOutput(paths ...string) Option {
	return func(cfg *zap.Config) {
		cfg.OutputPaths = paths
	}
}

// New builds a zap logger from the log section of the properties.
func New(c config.Log, options ...Option) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if c.Development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(ParseLevel(c.Level))
	for _, option := range options {
		option(&cfg)
	}
	return cfg.Build()
}

// ParseLevel maps a level name to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

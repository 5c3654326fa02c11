// Package logging builds the process-wide zap logger and the small set of
// With* helpers the rest of the tree uses to attach domain fields, in the
// style of the teacher's pkg/logger.
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New builds a zap logger for level, JSON-encoded in production and
// console-encoded with caller info in development.
func New(env, level string) (*zap.Logger, error) {
	zapLevel := parseLevel(level)

	if env == "development" {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zapLevel
		logger, err := cfg.Build()
		if err != nil {
			return nil, fmt.Errorf("building development logger: %w", err)
		}
		return logger, nil
	}

	cfg := zap.Config{
		Level:            zapLevel,
		Development:      false,
		Encoding:         "json",
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig:    zap.NewProductionEncoderConfig(),
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building production logger: %w", err)
	}
	return logger, nil
}

func parseLevel(level string) zap.AtomicLevel {
	switch level {
	case "debug":
		return zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn", "warning":
		return zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		return zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	}
}

// WithRequestID attaches the Echo request ID to a logger instance.
func WithRequestID(logger *zap.Logger, requestID string) *zap.Logger {
	return logger.With(zap.String("request_id", requestID))
}

// WithComponent tags a logger with the owning component, e.g. "heating",
// "cronadapter", "webhook".
func WithComponent(logger *zap.Logger, component string) *zap.Logger {
	return logger.With(zap.String("component", component))
}

// WithJobID attaches a scheduled job's id.
func WithJobID(logger *zap.Logger, jobID string) *zap.Logger {
	return logger.With(zap.String("job_id", jobID))
}

// WithCycleID attaches a heating cycle's id.
func WithCycleID(logger *zap.Logger, cycleID string) *zap.Logger {
	return logger.With(zap.String("cycle_id", cycleID))
}

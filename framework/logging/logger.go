// Package logging builds the zap logger shared by the container, the HTTP
// layer and the application kernel.
package logging

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/km-arc/go-autodi/framework/config"
	"github.com/km-arc/go-autodi/framework/container"
)

// New returns a logger for cfg: JSON output in production format, coloured
// console output otherwise.
//
//	logger, err := logging.New(cfg.Log)
//	c := container.New(container.WithLogger(logger))
func New(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var zc zap.Config
	switch cfg.Format {
	case "", "json":
		zc = zap.NewProductionConfig()
	case "console":
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zc.Build()
}

// Plugin logs every top-level resolution: successes at debug, failures at warn.
//
//	c.Use(logging.Plugin(logger))
func Plugin(logger *zap.Logger) container.Plugin {
	return container.Timed(func(key container.Key, instance any, err error, elapsed time.Duration) {
		if err != nil {
			logger.Warn("resolution failed",
				zap.Stringer("key", key),
				zap.Duration("duration", elapsed),
				zap.Error(err))
			return
		}
		logger.Debug("resolved",
			zap.Stringer("key", key),
			zap.String("instance", fmt.Sprintf("%T", instance)),
			zap.Duration("duration", elapsed))
	})
}

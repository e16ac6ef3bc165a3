// Package observability builds the zap logger injected into every sheet component.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Novatruepower/NazaraxSheet-sub000/internal/config"
)

// NewLogger builds the sheet logger from cfg. Logs always go to stderr because
// stdout carries command output.
//
// Precondition: cfg has passed config validation.
// Postcondition: Every entry carries the "app" field.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logging.level %q: %w", cfg.Level, err)
	}

	zapCfg, err := baseConfig(cfg.Format)
	if err != nil {
		return nil, err
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.InitialFields = map[string]any{"app": "sheet"}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building sheet logger: %w", err)
	}
	return logger, nil
}

func baseConfig(format string) (zap.Config, error) {
	switch format {
	case "json":
		return zap.NewProductionConfig(), nil
	case "console":
		return zap.NewDevelopmentConfig(), nil
	default:
		return zap.Config{}, fmt.Errorf("logging.format %q: must be json or console", format)
	}
}

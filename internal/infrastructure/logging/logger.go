package logging

import (
	"fmt"
	"log"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/andrescamacho/coreloop-go/internal/infrastructure/config"
)

// NewLogger builds a zap logger from config and installs it as the global
// logger. The returned cleanup flushes buffered entries.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, func(), error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Format == "text" {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.DisableCaller = !cfg.IncludeCaller
	zapCfg.DisableStacktrace = !cfg.IncludeStacktrace
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	switch cfg.Output {
	case "stderr":
		zapCfg.OutputPaths = []string{"stderr"}
	case "file":
		if cfg.FilePath == "" {
			return nil, nil, fmt.Errorf("logging.file_path is required when output is file")
		}
		zapCfg.OutputPaths = []string{cfg.FilePath}
	default:
		zapCfg.OutputPaths = []string{"stdout"}
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil && !isIgnorableSyncError(err) {
			log.Printf("Failed to sync logger: %v\n", err)
		}
	}

	return logger, cleanup, nil
}

// OrNop returns logger, or a no-op logger when it is nil
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// Terminals reject fsync on stdout/stderr
func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "inappropriate ioctl for device") ||
		strings.Contains(msg, "invalid argument")
}

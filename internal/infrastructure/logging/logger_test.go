package logging_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/andrescamacho/coreloop-go/internal/infrastructure/config"
	"github.com/andrescamacho/coreloop-go/internal/infrastructure/logging"
)

func TestNewLogger_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.log")

	logger, cleanup, err := logging.NewLogger(config.LoggingConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: path,
	})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("tick completed", zap.Int("succeeded", 3))
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"tick completed"`)
	assert.Contains(t, string(data), `"succeeded":3`)
	assert.NotContains(t, string(data), "hidden")
}

func TestNewLogger_RejectsUnknownLevel(t *testing.T) {
	_, _, err := logging.NewLogger(config.LoggingConfig{Level: "loud", Format: "json", Output: "stdout"})

	assert.Error(t, err)
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, logging.OrNop(nil))

	logger := zap.NewExample()
	assert.Same(t, logger, logging.OrNop(logger))
}

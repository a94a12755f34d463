package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("TextFiltersBelowLevel", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New("warn", "text", &buf)

		logger.Info("hidden")
		logger.Warn("shown", "file", "cis.json")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "msg=shown")
		assert.Contains(t, buf.String(), "file=cis.json")
	})

	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New("debug", "json", &buf)

		logger.Debug("built model", "components", 3)

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "built model", entry["msg"])
		assert.Equal(t, float64(3), entry["components"])
	})

	t.Run("UnknownLevelDefaultsToInfo", func(t *testing.T) {
		logger := New("loud", "text", &bytes.Buffer{})

		assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
		assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
	})
}

func TestContext(t *testing.T) {
	t.Parallel()

	logger := New("info", "text", &bytes.Buffer{})
	ctx := WithLogger(context.Background(), logger)

	assert.Same(t, logger, FromContext(ctx))
	assert.Same(t, slog.Default(), FromContext(context.Background()))
}

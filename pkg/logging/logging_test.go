package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendCtx(t *testing.T) {
	var buf bytes.Buffer
	log := Logger(&buf, true, slog.LevelInfo)

	ctx := AppendCtx(context.Background(), slog.String("run", "abc"))
	ctx = AppendCtx(ctx, slog.Group("app", slog.String("name", "rtssctl")))
	log.With("roi", 3).InfoContext(ctx, "hello")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "abc", rec["run"])
	assert.Equal(t, float64(3), rec["roi"])
	assert.Equal(t, map[string]any{"name": "rtssctl"}, rec["app"])
}

func TestLevel(t *testing.T) {
	var buf bytes.Buffer
	log := Logger(&buf, false, slog.LevelWarn)
	log.Info("quiet")
	assert.Zero(t, buf.Len())
	log.Warn("loud", "n", 1)
	assert.Contains(t, buf.String(), "level=WARN msg=loud n=1")
}

func TestFileWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rtssctl.log")
	w := FileWriter(path, 1, 2, 3)
	log := Logger(w, false, slog.LevelInfo)
	log.Info("to file")
	require.NoError(t, w.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "msg=\"to file\"")
}

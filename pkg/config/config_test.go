package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jpfielding/rtss.go/pkg/geom"
	"github.com/jpfielding/rtss.go/pkg/rtstruct"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	enc, err := cfg.EncodeOptions()
	require.NoError(t, err)
	assert.Equal(t, "ROI1", enc.StructureLabel)
	assert.Equal(t, 1.0, enc.Tolerance)
	assert.Equal(t, 3, enc.MinPoints)
	require.NotNil(t, enc.Color)
	assert.Equal(t, rtstruct.Color{0, 230, 0}, *enc.Color)

	dec := cfg.DecodeOptions()
	assert.Equal(t, geom.Convention{}, dec.Convention)
	assert.False(t, dec.Separate)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "rtssctl.yaml")
	cfg := DefaultConfig()
	cfg.Decode.Exclude = []string{"Body", "Couch"}
	cfg.Decode.RAS = true
	cfg.Encode.Color = "0xFF0000"
	require.NoError(t, SaveConfig(cfg, path))

	got, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	dec := got.DecodeOptions()
	assert.Equal(t, []string{"Body", "Couch"}, dec.Exclude)
	assert.Equal(t, geom.Convention{FlipX: true, FlipY: true}, dec.Convention)
	enc, err := got.EncodeOptions()
	require.NoError(t, err)
	assert.Equal(t, rtstruct.Color{255, 0, 0}, *enc.Color)
}

func TestPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rtssctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("encode:\n  tolerance: 0.5\nlog:\n  level: DEBUG\n"), 0o644))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Encode.Tolerance)
	assert.Equal(t, 3, cfg.Encode.MinPoints)
	assert.Equal(t, "DEBUG", cfg.Log.Level)
	assert.True(t, cfg.Provenance)
}

func TestErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("encode: [1, 2"), 0o644))
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "error parsing config file")

	cfg := DefaultConfig()
	cfg.Encode.Color = "red"
	_, err = cfg.EncodeOptions()
	assert.Error(t, err)
}

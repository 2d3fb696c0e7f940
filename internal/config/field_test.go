package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/frc5024/fieldsim/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const field2020JSON = `{
	"size": { "width": 1228, "height": 635 },
	"pose_mapping": { "x": 76.75, "y": 1.0 },
	"origin_offset": { "x": 80, "y": 317.5 },
	"assets": { "base": "2020-base.png", "top": "2020-top.png" }
}`

func writeField(t *testing.T, dir string, year int, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FieldFileName(year)), []byte(content), 0644))
}

func TestLoadField(t *testing.T) {
	dir := t.TempDir()
	writeField(t, dir, 2020, field2020JSON)

	cfg, err := LoadField(dir, 2020)
	require.NoError(t, err)
	assert.Equal(t, core.FieldConfig{
		Year:          2020,
		Width:         1228,
		Height:        635,
		ScaleX:        76.75,
		ScaleY:        1.0,
		OriginOffsetX: 80,
		OriginOffsetY: 317.5,
		Assets:        core.FieldAssets{Base: "2020-base.png", Top: "2020-top.png"},
	}, cfg)
}

func TestLoadField_DefaultAspect(t *testing.T) {
	dir := t.TempDir()
	writeField(t, dir, 2019, `{
		"size": { "width": 800, "height": 400 },
		"pose_mapping": { "x": 50 },
		"origin_offset": { "x": 0, "y": 200 }
	}`)

	cfg, err := LoadField(dir, 2019)
	require.NoError(t, err)
	assert.Equal(t, 1.0, cfg.ScaleY)
	assert.Equal(t, "", cfg.Assets.Base)
}

func TestLoadField_Missing(t *testing.T) {
	_, err := LoadField(t.TempDir(), 2020)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFieldNotFound))
	assert.Contains(t, err.Error(), "2020field-cfg.json")
}

func TestLoadField_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	writeField(t, dir, 2020, `{ "size": `)

	_, err := LoadField(dir, 2020)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading field descriptor")
}

func TestLoadField_ZeroSize(t *testing.T) {
	dir := t.TempDir()
	writeField(t, dir, 2020, `{ "pose_mapping": { "x": 10 } }`)

	_, err := LoadField(dir, 2020)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "size must be positive")
}

func TestLoadField_ZeroScale(t *testing.T) {
	tests := []struct {
		name    string
		mapping string
	}{
		{"missing", `{ "y": 1.0 }`},
		{"zero", `{ "x": 0, "y": 1.0 }`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeField(t, dir, 2020, `{
				"size": { "width": 800, "height": 400 },
				"pose_mapping": `+tt.mapping+`
			}`)

			_, err := LoadField(dir, 2020)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "pose_mapping.x must be non-zero")
		})
	}
}

func TestIsFieldAvailable(t *testing.T) {
	dir := t.TempDir()
	writeField(t, dir, 2020, field2020JSON)

	assert.True(t, IsFieldAvailable(dir, 2020))
	assert.False(t, IsFieldAvailable(dir, 2021))
}

func TestAvailableFields(t *testing.T) {
	dir := t.TempDir()
	writeField(t, dir, 2022, field2020JSON)
	writeField(t, dir, 2020, field2020JSON)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2020-base.png"), []byte{}, 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "2021field-cfg.json"), 0755))

	years, err := AvailableFields(dir)
	require.NoError(t, err)
	assert.Equal(t, []int{2020, 2022}, years)
}

func TestAvailableFields_MissingDir(t *testing.T) {
	_, err := AvailableFields("/nonexistent/fields")
	require.Error(t, err)
}

func TestLoadField_ShippedDescriptor(t *testing.T) {
	cfg, err := LoadField(filepath.Join("..", "..", "assets", "fields"), 2020)
	require.NoError(t, err)
	assert.Equal(t, 76.75, cfg.ScaleX)
	assert.Equal(t, 317.5, cfg.OriginOffsetY)
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"

	"github.com/frc5024/fieldsim/pkg/core"
	"github.com/spf13/viper"
)

// ErrFieldNotFound is returned when no descriptor exists for the requested year
var ErrFieldNotFound = errors.New("field descriptor not found")

var fieldFilePattern = regexp.MustCompile(`^(\d{4})field-cfg\.json$`)

// FieldFileName returns the descriptor file name for a season.
func FieldFileName(year int) string {
	return fmt.Sprintf("%dfield-cfg.json", year)
}

// IsFieldAvailable reports whether a descriptor for year exists in dataDir.
func IsFieldAvailable(dataDir string, year int) bool {
	_, err := os.Stat(filepath.Join(dataDir, FieldFileName(year)))
	return err == nil
}

// AvailableFields lists the seasons that have a descriptor in dataDir, oldest first.
func AvailableFields(dataDir string) ([]int, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("error reading field directory: %w", err)
	}

	var years []int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := fieldFilePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		year, _ := strconv.Atoi(m[1])
		years = append(years, year)
	}
	slices.Sort(years)
	return years, nil
}

// LoadField reads the descriptor for year from dataDir.
// The descriptor is read with its own viper instance so it never mixes with the app config.
func LoadField(dataDir string, year int) (core.FieldConfig, error) {
	if !IsFieldAvailable(dataDir, year) {
		return core.FieldConfig{}, fmt.Errorf("%w: %s", ErrFieldNotFound, FieldFileName(year))
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(dataDir, FieldFileName(year)))
	v.SetConfigType("json")
	v.SetDefault("pose_mapping.y", 1.0)

	if err := v.ReadInConfig(); err != nil {
		return core.FieldConfig{}, fmt.Errorf("error reading field descriptor: %w", err)
	}

	cfg := core.FieldConfig{
		Year:          year,
		Width:         v.GetInt("size.width"),
		Height:        v.GetInt("size.height"),
		ScaleX:        v.GetFloat64("pose_mapping.x"),
		ScaleY:        v.GetFloat64("pose_mapping.y"),
		OriginOffsetX: v.GetFloat64("origin_offset.x"),
		OriginOffsetY: v.GetFloat64("origin_offset.y"),
		Assets: core.FieldAssets{
			Base: v.GetString("assets.base"),
			Top:  v.GetString("assets.top"),
		},
	}

	if cfg.Width <= 0 || cfg.Height <= 0 {
		return core.FieldConfig{}, fmt.Errorf("field descriptor %s: size must be positive, got %dx%d",
			FieldFileName(year), cfg.Width, cfg.Height)
	}
	if cfg.ScaleX == 0 {
		return core.FieldConfig{}, fmt.Errorf("field descriptor %s: pose_mapping.x must be non-zero",
			FieldFileName(year))
	}

	return cfg, nil
}

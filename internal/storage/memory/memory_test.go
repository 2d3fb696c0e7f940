package memory

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/frc5024/fieldsim/internal/config"
	"github.com/frc5024/fieldsim/internal/storage"
	"github.com/frc5024/fieldsim/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface checks.
var (
	_ storage.Backend  = (*Backend)(nil)
	_ storage.Exporter = (*Backend)(nil)
)

var start = time.Date(2020, 3, 7, 14, 30, 0, 0, time.UTC)

func testSession() *core.Session {
	return &core.Session{
		ID:        "0b3c5a1e-6f44-4f4e-9d7a-2b9e4b8f5c11",
		Year:      2020,
		Source:    "ws://10.50.24.2:5810/nt",
		StartTime: start,
		Field: core.FieldConfig{
			Year: 2020, Width: 1228, Height: 635,
			ScaleX: 76.75, ScaleY: 1.0,
			OriginOffsetX: 80, OriginOffsetY: 317.5,
		},
	}
}

func sample(offset time.Duration, x, y, heading float64, stale bool) *core.PoseSample {
	return &core.PoseSample{
		SessionID: "0b3c5a1e-6f44-4f4e-9d7a-2b9e4b8f5c11",
		Raw:       "raw",
		Frame: core.Frame{
			Time:   start.Add(offset),
			Pose:   core.Pose{X: x, Y: y, Heading: heading},
			Screen: core.ScreenPoint{X: x*76.75 + 80, Y: y*76.75 + 317.5},
			Stale:  stale,
		},
	}
}

func TestRecordFrame_NoSession(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	require.NoError(t, b.Init())

	err := b.RecordFrame(sample(0, 1, 1, 0, false))
	assert.ErrorIs(t, err, storage.ErrNoSession)
	assert.ErrorIs(t, b.EndSession(), storage.ErrNoSession)
}

func TestRecordFrame_WrongSession(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	require.NoError(t, b.StartSession(testSession()))

	s := sample(0, 1, 1, 0, false)
	s.SessionID = "other"
	assert.Error(t, b.RecordFrame(s))
	assert.Empty(t, b.Samples())
}

func TestSamples(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	require.NoError(t, b.StartSession(testSession()))

	require.NoError(t, b.RecordFrame(sample(0, 1, 2, 90, false)))
	require.NoError(t, b.RecordFrame(sample(16*time.Millisecond, 1.1, 2, 91, true)))

	got := b.Samples()
	require.Len(t, got, 2)
	assert.Equal(t, 90.0, got[0].Pose.Heading)
	assert.True(t, got[1].Stale)

	// Returned slice is a copy.
	got[0].Pose.X = 100
	assert.Equal(t, 1.0, b.Samples()[0].Pose.X)
}

func TestStartSession_ResetsFrames(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	require.NoError(t, b.StartSession(testSession()))
	require.NoError(t, b.RecordFrame(sample(0, 1, 2, 90, false)))

	require.NoError(t, b.StartSession(testSession()))
	assert.Empty(t, b.Samples())
}

func TestEndSession_ExportsJSON(t *testing.T) {
	tests := []struct {
		name     string
		compress bool
		suffix   string
	}{
		{"plain", false, ".json"},
		{"gzip", true, ".json.gz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: tt.compress})

			sess := testSession()
			sess.EndTime = start.Add(time.Second)
			require.NoError(t, b.StartSession(sess))
			require.NoError(t, b.RecordFrame(sample(0, 1, 2, 90, false)))
			require.NoError(t, b.RecordFrame(sample(500*time.Millisecond, 1.5, 2, 95, true)))
			require.NoError(t, b.EndSession())

			path := b.ExportedFilePath()
			assert.Equal(t, dir, filepath.Dir(path))
			assert.True(t, strings.HasSuffix(path, tt.suffix), path)
			assert.Equal(t, "fieldsim_2020_20200307_143000_0b3c5a1e"+tt.suffix, filepath.Base(path))

			trail, err := ReadTrail(path)
			require.NoError(t, err)
			assert.Equal(t, sess.ID, trail.SessionID)
			assert.Equal(t, 2020, trail.Year)
			assert.Equal(t, sess.Source, trail.Source)
			assert.True(t, trail.Start.Equal(start))
			assert.True(t, trail.End.Equal(start.Add(time.Second)))
			assert.Equal(t, 1228, trail.Field.Width)
			assert.Equal(t, 76.75, trail.Field.ScaleX)

			require.Len(t, trail.Frames, 2)
			// JSON numbers decode as float64.
			assert.Equal(t, []any{0.0, 1.0, 2.0, 90.0, 156.75, 471.0, 0.0}, trail.Frames[0])
			assert.Equal(t, 500.0, trail.Frames[1][0])
			assert.Equal(t, 1.0, trail.Frames[1][6])

			// Backend is reset after export.
			assert.Empty(t, b.Samples())
			assert.ErrorIs(t, b.RecordFrame(sample(0, 1, 1, 0, false)), storage.ErrNoSession)
		})
	}
}

func TestEndSession_SetsEndTime(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	sess := testSession()
	require.NoError(t, b.StartSession(sess))

	before := time.Now()
	require.NoError(t, b.EndSession())
	assert.False(t, sess.EndTime.Before(before))

	trail, err := ReadTrail(b.ExportedFilePath())
	require.NoError(t, err)
	assert.NotNil(t, trail.Frames)
	assert.Empty(t, trail.Frames)
}

func TestEndSession_CreatesOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "recordings")
	b := New(config.MemoryConfig{OutputDir: dir})
	require.NoError(t, b.StartSession(testSession()))
	require.NoError(t, b.EndSession())

	assert.Equal(t, dir, filepath.Dir(b.ExportedFilePath()))
}

func TestReadTrail_Errors(t *testing.T) {
	_, err := ReadTrail(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestClose(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	require.NoError(t, b.StartSession(testSession()))
	require.NoError(t, b.RecordFrame(sample(0, 1, 1, 0, false)))
	require.NoError(t, b.Close())

	assert.Empty(t, b.Samples())
	assert.Empty(t, b.ExportedFilePath())
}

func TestBoolToInt(t *testing.T) {
	assert.Equal(t, 1, boolToInt(true))
	assert.Equal(t, 0, boolToInt(false))
}

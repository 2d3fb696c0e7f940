package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFilePath(t *testing.T) {
	sessionStart := time.Date(2020, 3, 7, 10, 15, 0, 0, time.UTC)

	tests := []struct {
		name    string
		logsDir string
		appName string
		want    string
	}{
		{
			name:    "basic path",
			logsDir: "fieldsimlogs",
			appName: "fieldsim",
			want:    filepath.Join("fieldsimlogs", "fieldsim.20200307_101500.log"),
		},
		{
			name:    "relative path with dot",
			logsDir: "./fieldsimlogs",
			appName: "fieldsim",
			want:    filepath.Join(".", "fieldsimlogs", "fieldsim.20200307_101500.log"),
		},
		{
			name:    "absolute path",
			logsDir: filepath.Join("/var", "log", "fieldsim"),
			appName: "fieldsim",
			want:    filepath.Join("/var", "log", "fieldsim", "fieldsim.20200307_101500.log"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LogFilePath(tt.logsDir, tt.appName, sessionStart)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpenLogFile_CreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "fieldsim.log")

	f, err := OpenLogFile(path)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.WriteString("hello\n")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
}

func TestOpenLogFile_RotatesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fieldsim.log")
	require.NoError(t, os.WriteFile(path, []byte("previous run\n"), 0644))

	f, err := OpenLogFile(path)
	require.NoError(t, err)
	f.Close()

	old, err := os.ReadFile(path + ".old")
	require.NoError(t, err)
	assert.Equal(t, "previous run\n", string(old))

	cur, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, cur)
}

package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/frc5024/fieldsim/pkg/core"
)

// TrailExport is the root JSON structure of an exported session.
type TrailExport struct {
	SessionID string           `json:"sessionId"`
	Year      int              `json:"year"`
	Source    string           `json:"source"`
	Start     time.Time        `json:"start"`
	End       time.Time        `json:"end"`
	Field     core.FieldConfig `json:"field"`
	// Frames holds one entry per tick:
	// [offsetMs, x, y, heading, screenX, screenY, stale]
	Frames [][]any `json:"frames"`
}

func (b *Backend) exportJSON() error {
	export := b.buildExport()

	ext := ".json"
	if b.cfg.CompressOutput {
		ext = ".json.gz"
	}
	id := b.session.ID
	if len(id) > 8 {
		id = id[:8]
	}
	filename := fmt.Sprintf("fieldsim_%d_%s_%s%s",
		b.session.Year, b.session.StartTime.UTC().Format("20060102_150405"), id, ext)
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := writeTrail(outputPath, export, b.cfg.CompressOutput); err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() TrailExport {
	export := TrailExport{
		SessionID: b.session.ID,
		Year:      b.session.Year,
		Source:    b.session.Source,
		Start:     b.session.StartTime,
		End:       b.session.EndTime,
		Field:     b.session.Field,
		Frames:    make([][]any, 0, len(b.samples)),
	}

	for _, s := range b.samples {
		export.Frames = append(export.Frames, []any{
			s.Time.Sub(b.session.StartTime).Milliseconds(),
			s.Pose.X,
			s.Pose.Y,
			s.Pose.Heading,
			s.Screen.X,
			s.Screen.Y,
			boolToInt(s.Stale),
		})
	}

	return export
}

func writeTrail(path string, data TrailExport, compress bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if !compress {
		return json.NewEncoder(f).Encode(data)
	}

	gz := gzip.NewWriter(f)
	if err := json.NewEncoder(gz).Encode(data); err != nil {
		gz.Close()
		return err
	}
	return gz.Close()
}

// ReadTrail loads an exported trail. Files ending in .gz are decompressed.
func ReadTrail(path string) (*TrailExport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	var export TrailExport
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("failed to decode trail: %w", err)
	}
	return &export, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

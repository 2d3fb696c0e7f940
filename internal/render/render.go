// Package render draws frames: the field base layer, the robot, then the field top layer.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/frc5024/fieldsim/pkg/core"
)

var (
	backgroundColor = color.RGBA{255, 255, 255, 255}
	carpetColor     = color.RGBA{96, 96, 96, 255}
	lineColor       = color.RGBA{235, 235, 235, 255}
	robotColor      = color.RGBA{255, 196, 0, 255}
	staleColor      = color.RGBA{160, 160, 160, 255}
	headingColor    = color.RGBA{0, 0, 0, 255}
	staleRingColor  = color.RGBA{220, 0, 0, 255}
)

// Options configures a Renderer.
type Options struct {
	FieldDir    string // directory holding the field images named in the descriptor
	RobotWidth  int
	RobotHeight int
	SpritePath  string // robot image; empty draws a rectangle
}

// Renderer draws frames onto a copy of the field. It implements tracker.Sink.
type Renderer struct {
	field       core.FieldConfig
	base        image.Image
	top         image.Image
	sprite      image.Image
	robotWidth  int
	robotHeight int
	logger      *slog.Logger

	mu   sync.RWMutex
	last image.Image
}

// New loads the field layers and sprite. Missing field images are logged and replaced
// by a plain field; a sprite that fails to load is an error because it was asked for.
func New(field core.FieldConfig, opts Options, logger *slog.Logger) (*Renderer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if field.Width <= 0 || field.Height <= 0 {
		return nil, fmt.Errorf("invalid field size %dx%d", field.Width, field.Height)
	}
	if opts.RobotWidth <= 0 || opts.RobotHeight <= 0 {
		return nil, fmt.Errorf("invalid robot size %dx%d", opts.RobotWidth, opts.RobotHeight)
	}

	r := &Renderer{
		field:       field,
		robotWidth:  opts.RobotWidth,
		robotHeight: opts.RobotHeight,
		logger:      logger,
	}

	r.base = loadLayer(logger, opts.FieldDir, field.Assets.Base, "base")
	r.top = loadLayer(logger, opts.FieldDir, field.Assets.Top, "top")

	if opts.SpritePath != "" {
		sprite, err := imaging.Open(opts.SpritePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load robot sprite: %w", err)
		}
		r.sprite = imaging.Resize(sprite, opts.RobotWidth, opts.RobotHeight, imaging.Lanczos)
	}

	return r, nil
}

func loadLayer(logger *slog.Logger, dir, name, layer string) image.Image {
	if name == "" {
		return nil
	}
	path := filepath.Join(dir, name)
	img, err := imaging.Open(path)
	if err != nil {
		logger.Warn("Field image not available, drawing plain field", "layer", layer, "path", path, "error", err)
		return nil
	}
	return img
}

// RobotCenter returns where the robot is drawn for a mapped point.
// The X coordinate is shifted by half the sprite width, as the field descriptors expect.
func (r *Renderer) RobotCenter(pt core.ScreenPoint) (float64, float64) {
	return pt.X + float64(r.robotWidth)/2, pt.Y
}

// Draw renders one frame.
func (r *Renderer) Draw(f core.Frame) image.Image {
	dc := gg.NewContext(r.field.Width, r.field.Height)
	dc.SetColor(backgroundColor)
	dc.Clear()

	if r.base != nil {
		dc.DrawImage(r.base, 0, 0)
	} else {
		r.drawPlainField(dc)
	}

	cx, cy := r.RobotCenter(f.Screen)
	if r.sprite != nil {
		// imaging rotates counter-clockwise; the heading turns clockwise on screen.
		rotated := imaging.Rotate(r.sprite, -f.Pose.Heading, color.Transparent)
		dc.DrawImageAnchored(rotated, int(cx), int(cy), 0.5, 0.5)
	} else {
		r.drawRobotRect(dc, cx, cy, f.Pose.Heading, f.Stale)
	}

	if f.Stale && r.sprite != nil {
		radius := float64(max(r.robotWidth, r.robotHeight)) / 2
		dc.SetColor(staleRingColor)
		dc.SetLineWidth(3)
		dc.DrawCircle(cx, cy, radius+4)
		dc.Stroke()
	}

	if r.top != nil {
		dc.DrawImage(r.top, 0, 0)
	}

	return dc.Image()
}

func (r *Renderer) drawPlainField(dc *gg.Context) {
	w, h := float64(r.field.Width), float64(r.field.Height)
	dc.SetColor(carpetColor)
	dc.DrawRectangle(0, 0, w, h)
	dc.Fill()

	dc.SetColor(lineColor)
	dc.SetLineWidth(2)
	dc.DrawRectangle(1, 1, w-2, h-2)
	dc.DrawLine(w/2, 0, w/2, h)
	dc.Stroke()
}

// drawRobotRect draws the robot as a rectangle with a line from its centre to its front.
func (r *Renderer) drawRobotRect(dc *gg.Context, cx, cy, heading float64, stale bool) {
	w, h := float64(r.robotWidth), float64(r.robotHeight)

	dc.Push()
	dc.RotateAbout(gg.Radians(heading), cx, cy)

	if stale {
		dc.SetColor(staleColor)
	} else {
		dc.SetColor(robotColor)
	}
	dc.DrawRectangle(cx-w/2, cy-h/2, w, h)
	dc.Fill()

	dc.SetColor(headingColor)
	dc.SetLineWidth(2)
	dc.DrawLine(cx, cy, cx+w/2, cy)
	dc.Stroke()

	dc.Pop()
}

// HandleFrame draws f and keeps the result as the latest image.
func (r *Renderer) HandleFrame(f core.Frame) error {
	img := r.Draw(f)
	r.mu.Lock()
	r.last = img
	r.mu.Unlock()
	return nil
}

// Last returns the most recently handled frame image, or nil.
func (r *Renderer) Last() image.Image {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

// SnapshotName returns the file name used for a snapshot taken at t.
func SnapshotName(t time.Time) string {
	return "fieldsim_" + t.UTC().Format("20060102_150405.000") + ".png"
}

// SaveSnapshot writes img as a PNG into dir and returns its path.
func SaveSnapshot(dir string, img image.Image, t time.Time) (string, error) {
	if img == nil {
		return "", errors.New("no image to save")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	path := filepath.Join(dir, SnapshotName(t))
	if err := imaging.Save(img, path); err != nil {
		return "", fmt.Errorf("failed to save snapshot: %w", err)
	}
	return path, nil
}

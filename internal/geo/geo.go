// Package geo maps field positions onto the rendered field image.
package geo

import (
	"github.com/frc5024/fieldsim/pkg/core"
)

// Mapper converts field meters into screen pixels for one field.
// It only reads its config and is safe to share between goroutines.
type Mapper struct {
	cfg core.FieldConfig
}

// NewMapper creates a Mapper bound to cfg.
func NewMapper(cfg core.FieldConfig) *Mapper {
	return &Mapper{cfg: cfg}
}

// Config returns the field config the mapper was created with.
func (m *Mapper) Config() core.FieldConfig {
	return m.cfg
}

// MapX returns the screen x for a field x.
func (m *Mapper) MapX(x float64) float64 {
	return x*m.cfg.ScaleX + m.cfg.OriginOffsetX
}

// MapY returns the screen y for a field y.
// The y axis is scaled by both ScaleX and ScaleY: ScaleX is the pixels per
// meter of the field image and ScaleY corrects the aspect on top of it.
func (m *Mapper) MapY(y float64) float64 {
	return y*m.cfg.ScaleX*m.cfg.ScaleY + m.cfg.OriginOffsetY
}

// MapToScreen returns the unadjusted screen point for a pose.
// Heading is not used; the renderer owns rotation and sprite centering.
func (m *Mapper) MapToScreen(p core.Pose) core.ScreenPoint {
	return core.ScreenPoint{X: m.MapX(p.X), Y: m.MapY(p.Y)}
}

// MapToScreen maps a pose with cfg without keeping a Mapper around.
func MapToScreen(p core.Pose, cfg core.FieldConfig) core.ScreenPoint {
	return NewMapper(cfg).MapToScreen(p)
}

package geo

import (
	"github.com/frc5024/fieldsim/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// ScreenBounds returns the pixel envelope of the rendered field.
func ScreenBounds(cfg core.FieldConfig) geom.Envelope {
	return geom.NewEnvelope(
		geom.XY{X: 0, Y: 0},
		geom.XY{X: float64(cfg.Width), Y: float64(cfg.Height)},
	)
}

// OnScreen reports whether pt falls inside the rendered field, edges included.
func OnScreen(cfg core.FieldConfig, pt core.ScreenPoint) bool {
	return ScreenBounds(cfg).Contains(geom.XY{X: pt.X, Y: pt.Y})
}

// PointFromPose returns the pose position as a 2D point in field meters.
func PointFromPose(p core.Pose) geom.Point {
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: p.X, Y: p.Y},
		Type: geom.DimXY,
	})
}

// PointFromScreen returns a screen position as a 2D point in pixels.
func PointFromScreen(pt core.ScreenPoint) geom.Point {
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: pt.X, Y: pt.Y},
		Type: geom.DimXY,
	})
}

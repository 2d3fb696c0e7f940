package core

import "time"

// Pose is a robot position on the field.
// X and Y are field-relative meters, Heading is in degrees using the sign
// convention of the robot's odometry. Values outside the field are valid.
type Pose struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Heading float64 `json:"heading"`
}

// ScreenPoint is a pixel position on the rendered field.
type ScreenPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Frame is the output of one tick of the tracker.
// Stale is set when the tick failed to decode and Pose is the last known pose.
type Frame struct {
	Time   time.Time   `json:"time"`
	Pose   Pose        `json:"pose"`
	Screen ScreenPoint `json:"screen"`
	Stale  bool        `json:"stale"`
}

// PoseSample is a recorded frame together with the raw telemetry it was decoded from.
type PoseSample struct {
	SessionID string `json:"sessionId"`
	Raw       string `json:"raw"`
	Frame
}

// Session is one visualization run against a single field.
type Session struct {
	ID        string      `json:"sessionId"`
	Year      int         `json:"year"`
	Source    string      `json:"source"`
	StartTime time.Time   `json:"start"`
	EndTime   time.Time   `json:"end"`
	Field     FieldConfig `json:"field"`
}

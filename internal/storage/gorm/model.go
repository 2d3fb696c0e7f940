package gormstorage

import (
	"encoding/json"
	"time"

	"github.com/frc5024/fieldsim/internal/geo"
	"github.com/frc5024/fieldsim/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

// Models lists the tables migrated by the backend.
var Models = []any{
	&Session{},
	&PoseSample{},
}

// Session is one visualization run.
type Session struct {
	ID        string         `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt time.Time      `json:"createdAt"`
	Year      int            `json:"year" gorm:"index:idx_session_year"`
	Source    string         `json:"source" gorm:"size:255"`
	StartTime time.Time      `json:"startTime"`
	EndTime   *time.Time     `json:"endTime"`
	Field     datatypes.JSON `json:"field"` // field descriptor the session was mapped with
}

func (*Session) TableName() string {
	return "sessions"
}

// PoseSample is one recorded frame.
type PoseSample struct {
	ID        uint       `json:"id" gorm:"primarykey"`
	SessionID string     `json:"sessionId" gorm:"size:36;index:idx_posesample_session_time,priority:1"`
	Time      time.Time  `json:"time" gorm:"index:idx_posesample_session_time,priority:2"`
	Raw       string     `json:"raw"`
	X         float64    `json:"x"`
	Y         float64    `json:"y"`
	Heading   float64    `json:"heading"`
	Screen    geom.Point `json:"screen"` // mapped pixel position
	Stale     bool       `json:"stale" gorm:"default:false"`
}

func (*PoseSample) TableName() string {
	return "pose_samples"
}

func sessionToModel(s core.Session) (Session, error) {
	field, err := json.Marshal(s.Field)
	if err != nil {
		return Session{}, err
	}
	m := Session{
		ID:        s.ID,
		Year:      s.Year,
		Source:    s.Source,
		StartTime: s.StartTime,
		Field:     datatypes.JSON(field),
	}
	if !s.EndTime.IsZero() {
		end := s.EndTime
		m.EndTime = &end
	}
	return m, nil
}

func sessionToCore(m Session) (core.Session, error) {
	s := core.Session{
		ID:        m.ID,
		Year:      m.Year,
		Source:    m.Source,
		StartTime: m.StartTime,
	}
	if m.EndTime != nil {
		s.EndTime = *m.EndTime
	}
	if len(m.Field) > 0 {
		if err := json.Unmarshal(m.Field, &s.Field); err != nil {
			return core.Session{}, err
		}
	}
	return s, nil
}

func sampleToModel(s core.PoseSample) PoseSample {
	return PoseSample{
		SessionID: s.SessionID,
		Time:      s.Time,
		Raw:       s.Raw,
		X:         s.Pose.X,
		Y:         s.Pose.Y,
		Heading:   s.Pose.Heading,
		Screen:    geo.PointFromScreen(s.Screen),
		Stale:     s.Stale,
	}
}

func sampleToCore(m PoseSample) core.PoseSample {
	var screen core.ScreenPoint
	if c, ok := m.Screen.Coordinates(); ok {
		screen = core.ScreenPoint{X: c.X, Y: c.Y}
	}
	return core.PoseSample{
		SessionID: m.SessionID,
		Raw:       m.Raw,
		Frame: core.Frame{
			Time:   m.Time,
			Pose:   core.Pose{X: m.X, Y: m.Y, Heading: m.Heading},
			Screen: screen,
			Stale:  m.Stale,
		},
	}
}

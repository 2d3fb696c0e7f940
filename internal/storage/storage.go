// Package storage defines the interface pose recorders implement.
package storage

import (
	"errors"

	"github.com/frc5024/fieldsim/pkg/core"
)

// ErrNoSession is returned when frames arrive outside of a session.
var ErrNoSession = errors.New("no active session")

// Backend records the frames of visualization sessions.
// RecordFrame is called from the tick loop and must not block on I/O for long.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management
	StartSession(s *core.Session) error
	EndSession() error

	RecordFrame(s *core.PoseSample) error
}

// Exporter is an optional interface for backends that write a file per session.
type Exporter interface {
	ExportedFilePath() string
}

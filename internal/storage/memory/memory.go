// Package memory keeps session frames in memory and exports each session as a JSON trail.
package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/frc5024/fieldsim/internal/config"
	"github.com/frc5024/fieldsim/internal/storage"
	"github.com/frc5024/fieldsim/pkg/core"
)

// Backend stores frames in memory and writes them out on EndSession.
type Backend struct {
	cfg     config.MemoryConfig
	session *core.Session
	samples []core.PoseSample

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend.
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init is a no-op.
func (b *Backend) Init() error {
	return nil
}

// Close drops any unexported frames.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.session = nil
	b.samples = nil
	return nil
}

// StartSession begins a new recording, discarding frames of an unfinished one.
func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session = s
	b.samples = nil
	return nil
}

// EndSession exports the session and resets the backend.
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return storage.ErrNoSession
	}
	if b.session.EndTime.IsZero() {
		b.session.EndTime = time.Now()
	}

	err := b.exportJSON()
	b.session = nil
	b.samples = nil
	return err
}

// RecordFrame appends a sample to the current session.
func (b *Backend) RecordFrame(s *core.PoseSample) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return storage.ErrNoSession
	}
	if s.SessionID != "" && s.SessionID != b.session.ID {
		return fmt.Errorf("frame for session %s while recording %s", s.SessionID, b.session.ID)
	}
	b.samples = append(b.samples, *s)
	return nil
}

// Samples returns a copy of the frames recorded so far in the current session.
func (b *Backend) Samples() []core.PoseSample {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]core.PoseSample, len(b.samples))
	copy(out, b.samples)
	return out
}

// ExportedFilePath returns the path of the last exported trail.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

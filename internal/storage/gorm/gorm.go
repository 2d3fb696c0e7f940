// Package gormstorage implements storage.Backend on top of any gorm dialect.
// Frames are queued by RecordFrame and written in batches by a background goroutine.
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/frc5024/fieldsim/internal/queue"
	"github.com/frc5024/fieldsim/internal/storage"
	"github.com/frc5024/fieldsim/pkg/core"
	"gorm.io/gorm"
)

const (
	defaultFlushInterval = time.Second
	defaultQueueSize     = 100_000
	batchSize            = 1000
)

// Dependencies holds everything the backend needs.
type Dependencies struct {
	DB            *gorm.DB
	Logger        *slog.Logger
	FlushInterval time.Duration
	QueueSize     int // frames buffered before the oldest are dropped
}

// Backend implements storage.Backend with gorm.
type Backend struct {
	deps    Dependencies
	samples *queue.Queue[PoseSample]

	mu        sync.RWMutex
	sessionID string

	writeMu  sync.Mutex
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a new gorm backend. Init must be called before use.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = defaultFlushInterval
	}
	if deps.QueueSize <= 0 {
		deps.QueueSize = defaultQueueSize
	}
	return &Backend{
		deps:    deps,
		samples: queue.New[PoseSample](deps.QueueSize),
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init migrates the schema and starts the writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return errors.New("gorm backend requires a database")
	}

	b.deps.Logger.Info("Migrating schema")
	if err := b.deps.DB.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.wg.Add(1)
	go b.writeLoop()

	b.deps.Logger.Info("Database setup complete", "dialect", b.deps.DB.Name())
	return nil
}

// Close stops the writer and flushes what is left in the queue.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	select {
	case <-b.stopChan:
		return nil
	default:
	}
	close(b.stopChan)
	b.wg.Wait()
	return b.Flush()
}

// StartSession inserts the session row. Frames recorded afterwards belong to it.
func (b *Backend) StartSession(s *core.Session) error {
	m, err := sessionToModel(*s)
	if err != nil {
		return fmt.Errorf("failed to encode field config: %w", err)
	}
	if err := b.deps.DB.Create(&m).Error; err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	b.mu.Lock()
	b.sessionID = s.ID
	b.mu.Unlock()
	return nil
}

// EndSession flushes pending frames and stamps the session end time.
func (b *Backend) EndSession() error {
	b.mu.Lock()
	id := b.sessionID
	b.sessionID = ""
	b.mu.Unlock()

	if id == "" {
		return storage.ErrNoSession
	}

	if err := b.Flush(); err != nil {
		return err
	}

	end := time.Now()
	if err := b.deps.DB.Model(&Session{}).Where("id = ?", id).Update("end_time", end).Error; err != nil {
		return fmt.Errorf("failed to end session %s: %w", id, err)
	}
	return nil
}

// RecordFrame queues a frame for the writer.
func (b *Backend) RecordFrame(s *core.PoseSample) error {
	b.mu.RLock()
	id := b.sessionID
	b.mu.RUnlock()

	if id == "" {
		return storage.ErrNoSession
	}

	m := sampleToModel(*s)
	m.SessionID = id
	b.samples.Push(m)
	return nil
}

// Pending returns the number of queued frames not yet written.
func (b *Backend) Pending() int {
	return b.samples.Len()
}

// Dropped returns how many frames were discarded because the queue was full.
func (b *Backend) Dropped() uint64 {
	return b.samples.Dropped()
}

// Flush writes every queued frame.
func (b *Backend) Flush() error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	for {
		batch := b.samples.Drain(batchSize)
		if len(batch) == 0 {
			return nil
		}
		if err := b.deps.DB.Transaction(func(tx *gorm.DB) error {
			return tx.Create(&batch).Error
		}); err != nil {
			b.samples.Requeue(batch...)
			return fmt.Errorf("failed to write %d pose samples: %w", len(batch), err)
		}
	}
}

func (b *Backend) writeLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.deps.Logger.Error("Error writing pose samples", "error", err, "pending", b.samples.Len())
			}
		}
	}
}

// Sessions returns all recorded sessions, oldest first.
func (b *Backend) Sessions() ([]core.Session, error) {
	var rows []Session
	if err := b.deps.DB.Order("start_time").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]core.Session, 0, len(rows))
	for _, r := range rows {
		s, err := sessionToCore(r)
		if err != nil {
			return nil, fmt.Errorf("failed to decode session %s: %w", r.ID, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// Samples returns the written frames of a session in time order.
func (b *Backend) Samples(sessionID string) ([]core.PoseSample, error) {
	var rows []PoseSample
	if err := b.deps.DB.Where("session_id = ?", sessionID).Order("time, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]core.PoseSample, len(rows))
	for i, r := range rows {
		out[i] = sampleToCore(r)
	}
	return out, nil
}

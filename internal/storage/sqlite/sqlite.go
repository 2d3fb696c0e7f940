// Package sqlitestorage records sessions to an in-memory SQLite database that is
// periodically dumped to disk with VACUUM INTO. It wraps the gorm backend.
package sqlitestorage

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/frc5024/fieldsim/internal/config"
	"github.com/frc5024/fieldsim/internal/database"
	gormstorage "github.com/frc5024/fieldsim/internal/storage/gorm"
	"gorm.io/gorm"
)

// Backend wraps the gorm backend for SQLite specific behavior.
type Backend struct {
	*gormstorage.Backend
	db       *gorm.DB
	cfg      config.SQLiteConfig
	log      *slog.Logger
	dumpMu   sync.Mutex
	started  bool
	stopChan chan struct{}
	done     chan struct{}
}

// New opens the in-memory database. Init starts recording.
func New(cfg config.SQLiteConfig, flushInterval time.Duration, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := database.OpenSQLite("")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}

	gormBackend := gormstorage.New(gormstorage.Dependencies{
		DB:            db,
		Logger:        logger,
		FlushInterval: flushInterval,
	})

	return &Backend{
		Backend:  gormBackend,
		db:       db,
		cfg:      cfg,
		log:      logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Init initializes the embedded gorm backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}
	b.started = true

	if b.cfg.Path != "" && b.cfg.DumpInterval > 0 {
		go b.dumpLoop()
	} else {
		close(b.done)
	}
	return nil
}

// EndSession ends the session and writes a dump so the finished session is on disk.
func (b *Backend) EndSession() error {
	if err := b.Backend.EndSession(); err != nil {
		return err
	}
	return b.Dump()
}

// Close stops the dump goroutine, flushes, writes a final dump and closes the database.
func (b *Backend) Close() error {
	select {
	case <-b.stopChan:
		return nil
	default:
	}
	close(b.stopChan)
	if !b.started {
		return database.Close(b.db)
	}
	<-b.done

	err := b.Backend.Close()
	if err == nil {
		err = b.Dump()
	}
	if cerr := database.Close(b.db); err == nil {
		err = cerr
	}
	return err
}

// Dump writes the database to the configured path. Without a path it does nothing.
func (b *Backend) Dump() error {
	if b.cfg.Path == "" {
		return nil
	}
	b.dumpMu.Lock()
	defer b.dumpMu.Unlock()

	start := time.Now()
	if err := database.DumpSQLite(b.db, b.cfg.Path); err != nil {
		return err
	}
	b.log.Debug("Dumped SQLite DB to disk", "path", b.cfg.Path, "duration", time.Since(start))
	return nil
}

func (b *Backend) dumpLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Backend.Flush(); err != nil {
				b.log.Error("Error flushing before dump", "error", err)
			}
			if err := b.Dump(); err != nil {
				b.log.Error("Error dumping to disk", "error", err)
			}
		}
	}
}

// Package postgres records sessions to PostgreSQL through the gorm backend.
package postgres

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/frc5024/fieldsim/internal/config"
	"github.com/frc5024/fieldsim/internal/database"
	gormstorage "github.com/frc5024/fieldsim/internal/storage/gorm"
	"gorm.io/gorm"
)

// Backend connects to Postgres on Init and delegates to the gorm backend.
type Backend struct {
	*gormstorage.Backend
	cfg           config.DatabaseConfig
	flushInterval time.Duration
	logger        *slog.Logger
	db            *gorm.DB
}

// New creates a Postgres backend. Nothing connects until Init.
func New(cfg config.DatabaseConfig, flushInterval time.Duration, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		cfg:           cfg,
		flushInterval: flushInterval,
		logger:        logger,
	}
}

// Init connects, migrates and starts the writer.
func (b *Backend) Init() error {
	b.logger.Debug("Connecting to Postgres", "host", b.cfg.Host, "port", b.cfg.Port, "database", b.cfg.Database)
	db, err := database.OpenPostgres(b.cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	b.db = db

	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:            db,
		Logger:        b.logger,
		FlushInterval: b.flushInterval,
	})
	if err := b.Backend.Init(); err != nil {
		database.Close(db)
		b.db = nil
		b.Backend = nil
		return err
	}
	b.logger.Info("Connected to Postgres", "host", b.cfg.Host, "database", b.cfg.Database)
	return nil
}

// Close flushes pending frames and closes the connection pool.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	err := b.Backend.Close()
	if cerr := database.Close(b.db); err == nil {
		err = cerr
	}
	return err
}

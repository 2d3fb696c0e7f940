package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/frc5024/fieldsim/internal/config"
	"github.com/frc5024/fieldsim/internal/influx"
	"github.com/frc5024/fieldsim/internal/storage"
	"github.com/frc5024/fieldsim/internal/storage/memory"
	"github.com/frc5024/fieldsim/internal/storage/postgres"
	sqlitestorage "github.com/frc5024/fieldsim/internal/storage/sqlite"

	"github.com/rs/zerolog"
)

// createStorageBackend returns the backend selected by storageCfg.Type, or nil for "none".
// The backend is not initialized.
func createStorageBackend(storageCfg config.StorageConfig) (storage.Backend, error) {
	switch storageCfg.Type {
	case "", "none":
		Logger.Info("Pose recording disabled")
		return nil, nil

	case "memory":
		Logger.Info("Memory storage backend selected", "outputDir", storageCfg.Memory.OutputDir)
		return memory.New(storageCfg.Memory), nil

	case "sqlite":
		backend, err := sqlitestorage.New(storageCfg.SQLite, storageCfg.FlushInterval, Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		Logger.Info("SQLite storage backend selected", "path", storageCfg.SQLite.Path)
		return backend, nil

	case "postgres":
		dbCfg := config.GetDatabaseConfig()
		Logger.Info("Postgres storage backend selected", "host", dbCfg.Host, "database", dbCfg.Database)
		return postgres.New(dbCfg, storageCfg.FlushInterval, Logger), nil

	case "influx":
		influxCfg := config.GetInfluxConfig()
		backend := influx.New(influxCfg, newInfluxLogger(logWriter()))
		Logger.Info("InfluxDB storage backend selected", "url", backend.ServerURL(), "bucket", influxCfg.Bucket)
		return backend, nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}

func logWriter() io.Writer {
	if LogFile != nil {
		return LogFile
	}
	return os.Stdout
}

func newInfluxLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	}).With().Timestamp().Str("component", "influx").Logger()
}

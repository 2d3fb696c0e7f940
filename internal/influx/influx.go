// Package influx records pose frames to InfluxDB as a time series.
// When InfluxDB cannot be reached at Init, points are written as gzip line protocol to a backup file.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/frc5024/fieldsim/internal/config"
	"github.com/frc5024/fieldsim/internal/storage"
	"github.com/frc5024/fieldsim/pkg/core"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
)

// Measurement names.
const (
	PoseMeasurement    = "pose"
	SessionMeasurement = "session"
)

const (
	pingTimeout   = 3 * time.Second
	retentionDays = 90
)

// Backend implements storage.Backend with InfluxDB.
type Backend struct {
	cfg    config.InfluxConfig
	Logger zerolog.Logger

	client     influxdb2.Client
	writer     influxdb2_api.WriteAPI
	backupFile *os.File
	backup     *gzip.Writer

	mu      sync.Mutex
	session *core.Session
	isValid bool
	closed  bool
}

// New creates an InfluxDB backend. Nothing connects until Init.
func New(cfg config.InfluxConfig, log zerolog.Logger) *Backend {
	return &Backend{
		cfg:    cfg,
		Logger: log,
	}
}

// ServerURL returns the InfluxDB base URL.
func (b *Backend) ServerURL() string {
	return fmt.Sprintf("%s://%s:%s", b.cfg.Protocol, b.cfg.Host, b.cfg.Port)
}

// IsValid reports whether points go to InfluxDB rather than the backup file.
func (b *Backend) IsValid() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.isValid
}

// Init connects to InfluxDB, falling back to the backup file when the server does not answer.
func (b *Backend) Init() error {
	b.client = influxdb2.NewClientWithOptions(
		b.ServerURL(),
		b.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	running, err := b.client.Ping(ctx)
	cancel()

	if err != nil || !running {
		b.Logger.Warn().Err(err).Str("backupPath", b.cfg.BackupPath).
			Msg("InfluxDB not reachable, writing to backup file")
		b.client.Close()
		b.client = nil
		return b.openBackup()
	}

	if err := b.setupOrganizationAndBucket(); err != nil {
		// Writes still succeed if the bucket exists and the token may not manage orgs.
		b.Logger.Warn().Err(err).Msg("InfluxDB setup incomplete")
	}

	b.writer = b.client.WriteAPI(b.cfg.Org, b.cfg.Bucket)
	go func(errorsCh <-chan error) {
		for writeErr := range errorsCh {
			b.Logger.Error().Err(writeErr).Str("bucket", b.cfg.Bucket).
				Msg("Error sending data to InfluxDB")
		}
	}(b.writer.Errors())

	b.mu.Lock()
	b.isValid = true
	b.mu.Unlock()
	b.Logger.Info().Str("url", b.ServerURL()).Str("bucket", b.cfg.Bucket).Msg("InfluxDB client initialized")
	return nil
}

func (b *Backend) openBackup() error {
	if b.cfg.BackupPath == "" {
		return errors.New("influxDB not reachable and no backup path configured")
	}
	file, err := os.OpenFile(b.cfg.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	b.backupFile = file
	b.backup = gzip.NewWriter(file)
	return nil
}

func (b *Backend) setupOrganizationAndBucket() error {
	ctx := context.Background()

	org, err := b.client.OrganizationsAPI().FindOrganizationByName(ctx, b.cfg.Org)
	if err != nil {
		b.Logger.Info().Str("org", b.cfg.Org).Msg("Organization not found, creating")
		org, err = b.client.OrganizationsAPI().CreateOrganizationWithName(ctx, b.cfg.Org)
		if err != nil {
			return fmt.Errorf("error creating organization %s: %w", b.cfg.Org, err)
		}
	}

	if _, err := b.client.BucketsAPI().FindBucketByName(ctx, b.cfg.Bucket); err == nil {
		return nil
	}

	b.Logger.Info().Str("bucket", b.cfg.Bucket).Msg("Bucket not found, creating")
	rule := domain.RetentionRuleTypeExpire
	_, err = b.client.BucketsAPI().CreateBucketWithName(ctx, org, b.cfg.Bucket, domain.RetentionRule{
		Type:         &rule,
		EverySeconds: 60 * 60 * 24 * retentionDays,
	})
	if err != nil {
		return fmt.Errorf("error creating bucket %s: %w", b.cfg.Bucket, err)
	}
	return nil
}

// StartSession writes a session start marker.
func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	b.session = s
	b.mu.Unlock()

	return b.writePoint(SessionPoint(s, "start", s.StartTime))
}

// EndSession writes a session end marker and flushes.
func (b *Backend) EndSession() error {
	b.mu.Lock()
	s := b.session
	b.session = nil
	b.mu.Unlock()

	if s == nil {
		return storage.ErrNoSession
	}
	end := s.EndTime
	if end.IsZero() {
		end = time.Now()
	}
	if err := b.writePoint(SessionPoint(s, "end", end)); err != nil {
		return err
	}
	return b.flush()
}

// RecordFrame writes one pose point.
func (b *Backend) RecordFrame(sample *core.PoseSample) error {
	b.mu.Lock()
	s := b.session
	b.mu.Unlock()

	if s == nil {
		return storage.ErrNoSession
	}
	return b.writePoint(PosePoint(s.ID, sample))
}

// Close flushes and releases the client or backup file.
func (b *Backend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	if b.client != nil {
		b.writer.Flush()
		b.client.Close()
	}
	if b.backup != nil {
		err := b.backup.Close()
		if cerr := b.backupFile.Close(); err == nil {
			err = cerr
		}
		return err
	}
	return nil
}

func (b *Backend) flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.writer != nil {
		b.writer.Flush()
		return nil
	}
	if b.backup != nil {
		return b.backup.Flush()
	}
	return nil
}

func (b *Backend) writePoint(point *influxdb2_write.Point) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errors.New("influxDB backend closed")
	}
	if b.isValid {
		b.writer.WritePoint(point)
		return nil
	}
	if b.backup == nil {
		return errors.New("influxDB client not initialized and backup writer not available")
	}

	lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := b.backup.Write([]byte(lineProtocol + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// PosePoint builds the point for one frame.
func PosePoint(sessionID string, s *core.PoseSample) *influxdb2_write.Point {
	return influxdb2.NewPoint(
		PoseMeasurement,
		map[string]string{"session": sessionID},
		map[string]any{
			"x":        s.Pose.X,
			"y":        s.Pose.Y,
			"heading":  s.Pose.Heading,
			"screen_x": s.Screen.X,
			"screen_y": s.Screen.Y,
			"stale":    s.Stale,
		},
		s.Time,
	)
}

// SessionPoint builds a session lifecycle marker. event is "start" or "end".
func SessionPoint(s *core.Session, event string, t time.Time) *influxdb2_write.Point {
	return influxdb2.NewPoint(
		SessionMeasurement,
		map[string]string{
			"session": s.ID,
			"event":   event,
		},
		map[string]any{
			"year":   s.Year,
			"source": s.Source,
		},
		t,
	)
}

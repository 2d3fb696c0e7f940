// Package tracker turns telemetry into frames: each tick reads the pose key,
// decodes it, maps it to screen space and hands the frame to a sink and a recorder.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/frc5024/fieldsim/internal/geo"
	"github.com/frc5024/fieldsim/internal/parser"
	"github.com/frc5024/fieldsim/internal/storage"
	"github.com/frc5024/fieldsim/internal/telemetry"
	"github.com/frc5024/fieldsim/pkg/core"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrNoPose is returned by Tick when the telemetry cannot be decoded and no earlier pose exists.
var ErrNoPose = errors.New("no pose available")

// Sink receives every frame the tracker produces.
type Sink interface {
	HandleFrame(f core.Frame) error
}

// Dependencies holds everything a Tracker needs. Storage, Sink and Meter are optional.
type Dependencies struct {
	Client  telemetry.Client
	Parser  *parser.Parser
	Mapper  *geo.Mapper
	Key     string // full telemetry key, see telemetry.Key
	Source  string // where telemetry comes from, recorded on the session
	Storage storage.Backend
	Sink    Sink
	Logger  *slog.Logger
	Meter   metric.Meter
	Now     func() time.Time
}

// Tracker produces one frame per tick.
type Tracker struct {
	deps Dependencies

	ticks        metric.Int64Counter
	decodeErrors metric.Int64Counter
	fallbacks    metric.Int64Counter

	mu        sync.Mutex
	session   *core.Session
	last      *core.Pose
	lastFrame core.Frame
	hasFrame  bool
	lastErr   string
}

// New creates a Tracker. It fails if a required dependency is missing.
func New(deps Dependencies) (*Tracker, error) {
	if deps.Client == nil {
		return nil, errors.New("tracker requires a telemetry client")
	}
	if deps.Parser == nil {
		return nil, errors.New("tracker requires a parser")
	}
	if deps.Mapper == nil {
		return nil, errors.New("tracker requires a mapper")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Meter == nil {
		deps.Meter = meter()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	t := &Tracker{deps: deps}

	var err error
	t.ticks, err = deps.Meter.Int64Counter(
		"fieldsim.tracker.ticks",
		metric.WithDescription("Total ticks processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ticks counter: %w", err)
	}

	t.decodeErrors, err = deps.Meter.Int64Counter(
		"fieldsim.tracker.decode_errors",
		metric.WithDescription("Ticks whose telemetry could not be decoded"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating decode errors counter: %w", err)
	}

	t.fallbacks, err = deps.Meter.Int64Counter(
		"fieldsim.tracker.fallbacks",
		metric.WithDescription("Ticks that drew the fallback pose because no telemetry was published"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fallbacks counter: %w", err)
	}

	return t, nil
}

// Start opens a new session on the storage backend.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session != nil {
		return fmt.Errorf("session %s already started", t.session.ID)
	}

	cfg := t.deps.Mapper.Config()
	s := &core.Session{
		ID:        uuid.NewString(),
		Year:      cfg.Year,
		Source:    t.deps.Source,
		StartTime: t.deps.Now(),
		Field:     cfg,
	}

	if t.deps.Storage != nil {
		if err := t.deps.Storage.StartSession(s); err != nil {
			return fmt.Errorf("failed to start session: %w", err)
		}
	}

	t.session = s
	t.deps.Logger.InfoContext(ctx, "Session started", "sessionId", s.ID, "year", s.Year, "source", s.Source)
	return nil
}

// End closes the current session. It is a no-op without one.
func (t *Tracker) End(ctx context.Context) error {
	t.mu.Lock()
	s := t.session
	t.session = nil
	t.mu.Unlock()

	if s == nil {
		return nil
	}
	s.EndTime = t.deps.Now()

	t.deps.Logger.InfoContext(ctx, "Session ended", "sessionId", s.ID, "duration", s.EndTime.Sub(s.StartTime))
	if t.deps.Storage != nil {
		if err := t.deps.Storage.EndSession(); err != nil {
			return fmt.Errorf("failed to end session %s: %w", s.ID, err)
		}
	}
	return nil
}

// Session returns the current session, or nil.
func (t *Tracker) Session() *core.Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session
}

// LastFrame returns the most recent frame produced by Tick.
func (t *Tracker) LastFrame() (core.Frame, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastFrame, t.hasFrame
}

// Tick reads, decodes and maps the current telemetry value.
//
// When the value cannot be decoded the last pose is emitted again with Stale set.
// Before any pose exists the error wraps both ErrNoPose and the *parser.DecodeError.
// Sink and storage failures are logged and do not fail the tick.
func (t *Tracker) Tick(ctx context.Context) (core.Frame, error) {
	p := t.deps.Parser
	raw := t.deps.Client.GetString(t.deps.Key, p.Sentinel())
	t.ticks.Add(ctx, 1)

	pose, err := p.Decode(raw)
	stale := false

	t.mu.Lock()
	if err != nil {
		reason := "unknown"
		var de *parser.DecodeError
		if errors.As(err, &de) {
			reason = de.Reason.String()
		}
		t.decodeErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
		t.logDecodeError(ctx, raw, err)

		if t.last == nil {
			t.mu.Unlock()
			return core.Frame{}, fmt.Errorf("%w: %w", ErrNoPose, err)
		}
		pose = *t.last
		stale = true
	} else {
		if p.IsAbsent(raw) {
			t.fallbacks.Add(ctx, 1)
		}
		t.lastErr = ""
		last := pose
		t.last = &last
	}

	frame := core.Frame{
		Time:   t.deps.Now(),
		Pose:   pose,
		Screen: t.deps.Mapper.MapToScreen(pose),
		Stale:  stale,
	}
	t.lastFrame = frame
	t.hasFrame = true
	session := t.session
	t.mu.Unlock()

	if t.deps.Sink != nil {
		if err := t.deps.Sink.HandleFrame(frame); err != nil {
			t.deps.Logger.WarnContext(ctx, "Sink rejected frame", "error", err)
		}
	}

	if t.deps.Storage != nil && session != nil {
		sample := &core.PoseSample{SessionID: session.ID, Raw: raw, Frame: frame}
		if err := t.deps.Storage.RecordFrame(sample); err != nil {
			t.deps.Logger.WarnContext(ctx, "Failed to record frame", "error", err, "sessionId", session.ID)
		}
	}

	return frame, nil
}

// logDecodeError logs a decode failure unless it repeats the previous one. mu must be held.
func (t *Tracker) logDecodeError(ctx context.Context, raw string, err error) {
	msg := err.Error()
	if msg == t.lastErr {
		return
	}
	t.lastErr = msg
	t.deps.Logger.WarnContext(ctx, "Failed to decode pose", "raw", raw, "error", err)
}

// Run ticks fps times per second until ctx is done, then ends the session.
// A session is started first if none is open.
func (t *Tracker) Run(ctx context.Context, fps int) error {
	if fps <= 0 || time.Second/time.Duration(fps) <= 0 {
		return fmt.Errorf("invalid frame rate %d", fps)
	}
	if t.Session() == nil {
		if err := t.Start(ctx); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	t.deps.Logger.InfoContext(ctx, "Tracker running", "fps", fps, "key", t.deps.Key)
	for {
		select {
		case <-ctx.Done():
			return t.End(context.WithoutCancel(ctx))
		case <-ticker.C:
			if _, err := t.Tick(ctx); err != nil {
				t.deps.Logger.DebugContext(ctx, "Tick produced no frame", "error", err)
			}
		}
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/frc5024/fieldsim/internal/config"
	"github.com/frc5024/fieldsim/internal/geo"
	"github.com/frc5024/fieldsim/internal/parser"
	"github.com/frc5024/fieldsim/internal/render"
	"github.com/frc5024/fieldsim/internal/storage"
	"github.com/frc5024/fieldsim/internal/telemetry"
	"github.com/frc5024/fieldsim/internal/tracker"
	"github.com/frc5024/fieldsim/pkg/core"

	"go.opentelemetry.io/otel/metric"
)

var errUsage = errors.New("usage: fieldsim [run | decode <pose> | snapshot <pose> | fields | version]")

// dispatch runs the sub-command named by args[0]; no arguments means "run".
func dispatch(ctx context.Context, args []string, out io.Writer) error {
	cmd := "run"
	if len(args) > 0 {
		cmd = strings.ToLower(args[0])
		args = args[1:]
	}

	switch cmd {
	case "run":
		return runTracker(ctx)
	case "decode":
		if len(args) == 0 {
			return errUsage
		}
		return decodePose(strings.Join(args, " "), out)
	case "snapshot":
		if len(args) == 0 {
			return errUsage
		}
		return snapshotPose(strings.Join(args, " "), out)
	case "fields":
		return listFields(out)
	case "version":
		fmt.Fprintf(out, "%s %s (%s)\n", AppName, CurrentVersion, BuildDate)
		return nil
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
}

func loadField() (core.FieldConfig, error) {
	renderCfg := config.GetRenderConfig()
	field, err := config.LoadField(renderCfg.FieldDataDir, renderCfg.FieldYear)
	if err != nil {
		return core.FieldConfig{}, fmt.Errorf("failed to load field %d: %w", renderCfg.FieldYear, err)
	}
	return field, nil
}

func newParser() *parser.Parser {
	return parser.NewParser(Logger, config.GetTelemetryConfig().Sentinel, config.GetFallbackPose())
}

func newRenderer(field core.FieldConfig) (*render.Renderer, error) {
	renderCfg := config.GetRenderConfig()
	return render.New(field, render.Options{
		FieldDir:    renderCfg.FieldDataDir,
		RobotWidth:  renderCfg.RobotWidth,
		RobotHeight: renderCfg.RobotHeight,
		SpritePath:  renderCfg.RobotSprite,
	}, Logger)
}

// decodePose prints the pose decoded from raw and where it lands on the field.
func decodePose(raw string, out io.Writer) error {
	field, err := loadField()
	if err != nil {
		return err
	}

	p := newParser()
	pose, err := p.Decode(raw)
	if err != nil {
		return err
	}
	pt := geo.NewMapper(field).MapToScreen(pose)

	fmt.Fprintf(out, "pose:   %s\n", parser.FormatPose(pose))
	if p.IsAbsent(raw) {
		fmt.Fprintln(out, "        (no telemetry, fallback pose)")
	}
	fmt.Fprintf(out, "screen: %.1f, %.1f\n", pt.X, pt.Y)
	if !geo.OnScreen(field, pt) {
		fmt.Fprintln(out, "        (off screen)")
	}
	return nil
}

// snapshotPose renders a single frame for raw and writes it as a PNG.
func snapshotPose(raw string, out io.Writer) error {
	field, err := loadField()
	if err != nil {
		return err
	}
	pose, err := newParser().Decode(raw)
	if err != nil {
		return err
	}
	renderer, err := newRenderer(field)
	if err != nil {
		return err
	}

	now := time.Now()
	img := renderer.Draw(core.Frame{
		Time:   now,
		Pose:   pose,
		Screen: geo.NewMapper(field).MapToScreen(pose),
	})
	path, err := render.SaveSnapshot(config.GetRenderConfig().SnapshotDir, img, now)
	if err != nil {
		return err
	}
	Logger.Info("Snapshot written", "path", path)
	fmt.Fprintln(out, path)
	return nil
}

func listFields(out io.Writer) error {
	dir := config.GetRenderConfig().FieldDataDir
	years, err := config.AvailableFields(dir)
	if err != nil {
		return err
	}
	if len(years) == 0 {
		fmt.Fprintf(out, "no field descriptors in %s\n", dir)
		return nil
	}
	for _, year := range years {
		fmt.Fprintln(out, year)
	}
	return nil
}

// runTracker draws the robot at render.fps until ctx is cancelled.
func runTracker(ctx context.Context) error {
	field, err := loadField()
	if err != nil {
		return err
	}
	Logger.Info("Loaded field", "year", field.Year, "width", field.Width, "height", field.Height)

	telemetryCfg := config.GetTelemetryConfig()
	client, source, err := createTelemetryClient(ctx, telemetryCfg)
	if err != nil {
		return err
	}
	if closer, ok := client.(io.Closer); ok {
		defer closer.Close()
	}

	backend, err := createStorageBackend(config.GetStorageConfig())
	if err != nil {
		return err
	}
	if backend != nil {
		if err := backend.Init(); err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		defer func() {
			if err := backend.Close(); err != nil {
				Logger.Error("Failed to close storage", "error", err)
			}
		}()
	}

	renderer, err := newRenderer(field)
	if err != nil {
		return err
	}

	var meter metric.Meter
	if OTelProvider != nil {
		meter = OTelProvider.Meter("github.com/frc5024/fieldsim/internal/tracker")
	}

	t, err := tracker.New(tracker.Dependencies{
		Client:  client,
		Parser:  newParser(),
		Mapper:  geo.NewMapper(field),
		Key:     telemetry.Key(telemetryCfg.Table, telemetryCfg.Key),
		Source:  source,
		Storage: backend,
		Sink:    renderer,
		Logger:  Logger,
		Meter:   meter,
	})
	if err != nil {
		return err
	}

	if err := t.Start(ctx); err != nil {
		return err
	}
	SlogManager.SetSession(t.Session().ID, field.Year)

	renderCfg := config.GetRenderConfig()
	if err := t.Run(ctx, renderCfg.FPS); err != nil {
		return err
	}

	if renderCfg.SnapshotDir != "" {
		if img := renderer.Last(); img != nil {
			path, err := render.SaveSnapshot(renderCfg.SnapshotDir, img, time.Now())
			if err != nil {
				Logger.Error("Failed to save snapshot", "error", err)
			} else {
				Logger.Info("Snapshot written", "path", path)
			}
		}
	}

	if exporter, ok := backend.(storage.Exporter); ok && exporter.ExportedFilePath() != "" {
		Logger.Info("Recording exported", "path", exporter.ExportedFilePath())
	}
	if OTelProvider != nil {
		if err := OTelProvider.Flush(context.WithoutCancel(ctx)); err != nil {
			Logger.Warn("Failed to flush OTel logs", "error", err)
		}
	}
	return nil
}

// createTelemetryClient returns the configured pose source and a description of it.
// A websocket client that cannot connect yet keeps retrying in the background; until
// then every read returns the sentinel and the fallback pose is drawn.
func createTelemetryClient(ctx context.Context, cfg config.TelemetryConfig) (telemetry.Client, string, error) {
	key := telemetry.Key(cfg.Table, cfg.Key)

	switch cfg.Type {
	case "static":
		table := telemetry.NewTable()
		table.PutString(key, cfg.StaticValue)
		Logger.Info("Using static telemetry", "value", cfg.StaticValue)
		return table, "static", nil

	case "", "websocket":
		hosts := cfg.Hosts
		if len(hosts) == 0 {
			hosts = telemetry.TeamHosts(cfg.Team)
		}
		host, err := telemetry.Discover(ctx, Logger, hosts, cfg.Port, cfg.ProbeTimeout)
		if err != nil && !errors.Is(err, telemetry.ErrNoService) {
			return nil, "", err
		}

		url := telemetry.BridgeURL(host, cfg.BridgePort, cfg.BridgePath)
		client := telemetry.NewWSClient(url, []string{key}, Logger)
		if err := client.Connect(ctx); err != nil {
			Logger.Warn("Telemetry bridge not reachable, retrying in background", "url", url, "error", err)
			go connectLoop(ctx, client, 2*time.Second)
		}
		return client, url, nil

	default:
		return nil, "", fmt.Errorf("unknown telemetry type %q", cfg.Type)
	}
}

func connectLoop(ctx context.Context, client *telemetry.WSClient, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := client.Connect(ctx)
			if err == nil {
				Logger.Info("Telemetry bridge connected")
				return
			}
			if errors.Is(err, telemetry.ErrClientClosed) {
				return
			}
			Logger.Debug("Telemetry bridge still not reachable", "error", err)
		}
	}
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frc5024/fieldsim/internal/config"
	"github.com/frc5024/fieldsim/internal/logging"
	intOtel "github.com/frc5024/fieldsim/internal/otel"

	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// Version info. BuildDate is set with -ldflags at build time.
var (
	CurrentVersion string = "0.1.0"
	BuildDate      string = "unknown"

	AppName string = "fieldsim"
)

// ConfigDirEnv overrides the directory fieldsim.cfg.json is read from.
const ConfigDirEnv = "FIELDSIM_CONFIG_DIR"

var (
	LogFilePath string
	LogFile     *os.File

	// SessionStartTime is used to name log and snapshot files
	SessionStartTime time.Time = time.Now()
)

var (
	SlogManager  *logging.SlogManager
	Logger       *slog.Logger
	OTelProvider *intOtel.Provider

	graylogWriter io.WriteCloser
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	setupLogging()
	defer shutdownLogging()

	if err := dispatch(ctx, os.Args[1:], os.Stdout); err != nil {
		Logger.Error("Command failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		stop()
		shutdownLogging()
		os.Exit(1)
	}
}

func configDir() string {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return dir
	}
	return "."
}

// setupLogging loads the config and wires the log file, Graylog and OTel sinks.
// Until the log file is open records go to stdout.
func setupLogging() {
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, viper.GetString("logLevel"), nil)
	Logger = SlogManager.Logger()

	if err := config.Load(configDir()); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Debug("Loaded config", "file", viper.ConfigFileUsed())
	}

	var err error
	LogFilePath = logging.LogFilePath(config.GetString("logsDir"), AppName, SessionStartTime)
	LogFile, err = logging.OpenLogFile(LogFilePath)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", LogFilePath)
		LogFile = nil
	}

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled && LogFile != nil {
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			Version:      CurrentVersion,
			Team:         config.GetTelemetryConfig().Team,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    LogFile,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
			OTelProvider = nil
		}
	}

	var sinks []io.Writer
	if config.GetBool("graylog.enabled") {
		address := config.GetString("graylog.address")
		graylogWriter, err = logging.NewGraylogWriter(address, AppName)
		if err != nil {
			Logger.Error("Failed to connect to Graylog", "error", err, "address", address)
		} else {
			sinks = append(sinks, graylogWriter)
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}

	// A nil *os.File must not reach Setup as a non-nil io.Writer.
	var file io.Writer
	if LogFile != nil {
		file = LogFile
	}
	SlogManager.Setup(file, config.GetString("logLevel"), otelLogProvider, sinks...)
	Logger = SlogManager.Logger()
	if LogFile != nil {
		Logger.Info("Logging to file", "path", LogFilePath, "version", CurrentVersion, "build", BuildDate)
	}
}

func shutdownLogging() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := SlogManager.Flush(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to flush logs: %v\n", err)
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "failed to shut down OTel: %v\n", err)
		}
		OTelProvider = nil
	}
	if graylogWriter != nil {
		graylogWriter.Close()
		graylogWriter = nil
	}
	if LogFile != nil {
		LogFile.Close()
		LogFile = nil
	}
}

package config

import (
	"fmt"
	"time"

	"github.com/frc5024/fieldsim/pkg/core"
	"github.com/spf13/viper"
)

// ConfigFileName is the name of the application config file inside the config directory.
const ConfigFileName = "fieldsim.cfg.json"

// TelemetryConfig holds settings for reading the robot pose.
type TelemetryConfig struct {
	Type         string // "websocket" or "static"
	Team         int
	Port         int // NetworkTables port probed during discovery
	Hosts        []string
	BridgePort   int
	BridgePath   string
	Table        string
	Key          string
	Sentinel     string
	ProbeTimeout time.Duration
	StaticValue  string
}

// RenderConfig holds settings for drawing frames.
type RenderConfig struct {
	FPS          int
	SnapshotDir  string
	RobotWidth   int
	RobotHeight  int
	RobotSprite  string
	FieldYear    int
	FieldDataDir string
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite settings. The database lives in memory and is
// dumped to Path every DumpInterval and on close.
type SQLiteConfig struct {
	Path         string
	DumpInterval time.Duration
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	SSLMode  string
}

// InfluxConfig holds InfluxDB settings.
type InfluxConfig struct {
	Protocol   string
	Host       string
	Port       string
	Token      string
	Org        string
	Bucket     string
	BackupPath string // gzip line protocol written while InfluxDB is unreachable
}

// StorageConfig selects and configures the pose recording backend.
type StorageConfig struct {
	Type          string // none, memory, sqlite, postgres, influx
	FlushInterval time.Duration
	Memory        MemoryConfig
	SQLite        SQLiteConfig
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(ConfigFileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./fieldsimlogs")

	viper.SetDefault("field.year", 2020)
	viper.SetDefault("field.dataDir", "./assets/fields")

	viper.SetDefault("robot.width", 60)
	viper.SetDefault("robot.height", 60)
	viper.SetDefault("robot.sprite", "")

	viper.SetDefault("telemetry.type", "websocket")
	viper.SetDefault("telemetry.team", 5024)
	viper.SetDefault("telemetry.port", 1735)
	viper.SetDefault("telemetry.hosts", []string{})
	viper.SetDefault("telemetry.bridgePort", 5810)
	viper.SetDefault("telemetry.bridgePath", "/nt")
	viper.SetDefault("telemetry.table", "SmartDashboard")
	viper.SetDefault("telemetry.key", "[DriveTrain] pose")
	viper.SetDefault("telemetry.sentinel", "None")
	viper.SetDefault("telemetry.probeTimeout", "250ms")
	viper.SetDefault("telemetry.staticValue", "None")

	viper.SetDefault("pose.fallback.x", 3.0)
	viper.SetDefault("pose.fallback.y", 0.0)
	viper.SetDefault("pose.fallback.heading", 45.0)

	viper.SetDefault("render.fps", 60)
	viper.SetDefault("render.snapshotDir", "./snapshots")

	viper.SetDefault("storage.type", "none")
	viper.SetDefault("storage.flushInterval", "1s")
	viper.SetDefault("storage.memory.outputDir", "./recordings")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.path", "./fieldsim.db")
	viper.SetDefault("storage.sqlite.dumpInterval", "30s")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "fieldsim")
	viper.SetDefault("db.sslmode", "disable")

	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "frc5024")
	viper.SetDefault("influx.bucket", "fieldsim")
	viper.SetDefault("influx.backupPath", "./fieldsim-influx-backup.lp.gz")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "fieldsim")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetTelemetryConfig returns the telemetry source settings.
func GetTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Type:         viper.GetString("telemetry.type"),
		Team:         viper.GetInt("telemetry.team"),
		Port:         viper.GetInt("telemetry.port"),
		Hosts:        viper.GetStringSlice("telemetry.hosts"),
		BridgePort:   viper.GetInt("telemetry.bridgePort"),
		BridgePath:   viper.GetString("telemetry.bridgePath"),
		Table:        viper.GetString("telemetry.table"),
		Key:          viper.GetString("telemetry.key"),
		Sentinel:     viper.GetString("telemetry.sentinel"),
		ProbeTimeout: viper.GetDuration("telemetry.probeTimeout"),
		StaticValue:  viper.GetString("telemetry.staticValue"),
	}
}

// GetFallbackPose returns the pose drawn when no telemetry has been published.
func GetFallbackPose() core.Pose {
	return core.Pose{
		X:       viper.GetFloat64("pose.fallback.x"),
		Y:       viper.GetFloat64("pose.fallback.y"),
		Heading: viper.GetFloat64("pose.fallback.heading"),
	}
}

// GetRenderConfig returns the frame rendering settings.
func GetRenderConfig() RenderConfig {
	return RenderConfig{
		FPS:          viper.GetInt("render.fps"),
		SnapshotDir:  viper.GetString("render.snapshotDir"),
		RobotWidth:   viper.GetInt("robot.width"),
		RobotHeight:  viper.GetInt("robot.height"),
		RobotSprite:  viper.GetString("robot.sprite"),
		FieldYear:    viper.GetInt("field.year"),
		FieldDataDir: viper.GetString("field.dataDir"),
	}
}

// GetStorageConfig returns the storage backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type:          viper.GetString("storage.type"),
		FlushInterval: viper.GetDuration("storage.flushInterval"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
	}
}

// GetDatabaseConfig returns the Postgres connection settings.
func GetDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
		SSLMode:  viper.GetString("db.sslmode"),
	}
}

// GetInfluxConfig returns the InfluxDB settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Protocol:   viper.GetString("influx.protocol"),
		Host:       viper.GetString("influx.host"),
		Port:       viper.GetString("influx.port"),
		Token:      viper.GetString("influx.token"),
		Org:        viper.GetString("influx.org"),
		Bucket:     viper.GetString("influx.bucket"),
		BackupPath: viper.GetString("influx.backupPath"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

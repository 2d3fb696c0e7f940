package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/frc5024/fieldsim/pkg/core"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"field": { "year": 2021 },
		"telemetry": { "team": 254, "key": "[Drive] pose" }
	}`)

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, 2021, viper.GetInt("field.year"))
	assert.Equal(t, 254, viper.GetInt("telemetry.team"))
	assert.Equal(t, "[Drive] pose", viper.GetString("telemetry.key"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./fieldsimlogs", viper.GetString("logsDir"))
	assert.Equal(t, 2020, viper.GetInt("field.year"))
	assert.Equal(t, "./assets/fields", viper.GetString("field.dataDir"))
	assert.Equal(t, 60, viper.GetInt("robot.width"))
	assert.Equal(t, 60, viper.GetInt("robot.height"))
	assert.Equal(t, "SmartDashboard", viper.GetString("telemetry.table"))
	assert.Equal(t, "[DriveTrain] pose", viper.GetString("telemetry.key"))
	assert.Equal(t, "None", viper.GetString("telemetry.sentinel"))
	assert.Equal(t, 1735, viper.GetInt("telemetry.port"))
	assert.Equal(t, 60, viper.GetInt("render.fps"))
	assert.Equal(t, "none", viper.GetString("storage.type"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, "localhost:12201", viper.GetString("graylog.address"))
	assert.Equal(t, "localhost", viper.GetString("db.host"))
	assert.Equal(t, "fieldsim", viper.GetString("db.database"))
	assert.Equal(t, "fieldsim", viper.GetString("influx.bucket"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")

	// defaults are still usable after a failed read
	assert.Equal(t, "info", viper.GetString("logLevel"))
}

func TestGetString(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	assert.Equal(t, "testValue", GetString("testKey"))
}

func TestGetInt(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testInt", 42)
	assert.Equal(t, 42, GetInt("testInt"))
}

func TestGetBool(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testBool", true)
	assert.Equal(t, true, GetBool("testBool"))
}

func TestGetTelemetryConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetTelemetryConfig()
	assert.Equal(t, "websocket", cfg.Type)
	assert.Equal(t, 5024, cfg.Team)
	assert.Equal(t, 1735, cfg.Port)
	assert.Empty(t, cfg.Hosts)
	assert.Equal(t, 5810, cfg.BridgePort)
	assert.Equal(t, "/nt", cfg.BridgePath)
	assert.Equal(t, 250*time.Millisecond, cfg.ProbeTimeout)
	assert.Equal(t, "None", cfg.StaticValue)
}

func TestGetTelemetryConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"telemetry": {
			"type": "static",
			"hosts": ["roborio-5024-frc.local", "10.50.24.2"],
			"probeTimeout": "1s",
			"staticValue": "Pose2d(Translation2d(X: 1.0, Y: 2.0), Rotation2d(Rads: 0.0, Deg: 0.0))"
		}
	}`)))

	cfg := GetTelemetryConfig()
	assert.Equal(t, "static", cfg.Type)
	assert.Equal(t, []string{"roborio-5024-frc.local", "10.50.24.2"}, cfg.Hosts)
	assert.Equal(t, time.Second, cfg.ProbeTimeout)
	assert.Contains(t, cfg.StaticValue, "Pose2d")
}

func TestGetFallbackPose(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))
	assert.Equal(t, core.Pose{X: 3, Y: 0, Heading: 45}, GetFallbackPose())

	viper.Set("pose.fallback.heading", -90.0)
	assert.Equal(t, -90.0, GetFallbackPose().Heading)
}

func TestGetRenderConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetRenderConfig()
	assert.Equal(t, 60, cfg.FPS)
	assert.Equal(t, "./snapshots", cfg.SnapshotDir)
	assert.Equal(t, 60, cfg.RobotWidth)
	assert.Equal(t, 60, cfg.RobotHeight)
	assert.Equal(t, "", cfg.RobotSprite)
	assert.Equal(t, 2020, cfg.FieldYear)
}

func TestGetStorageConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetStorageConfig()
	assert.Equal(t, "none", cfg.Type)
	assert.Equal(t, time.Second, cfg.FlushInterval)
	assert.Equal(t, "./recordings", cfg.Memory.OutputDir)
	assert.Equal(t, true, cfg.Memory.CompressOutput)
	assert.Equal(t, "./fieldsim.db", cfg.SQLite.Path)
	assert.Equal(t, 30*time.Second, cfg.SQLite.DumpInterval)
}

func TestGetStorageConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"storage": {
			"type": "sqlite",
			"flushInterval": "250ms",
			"memory": { "outputDir": "/tmp/out", "compressOutput": false },
			"sqlite": { "path": "/tmp/poses.db" }
		}
	}`)))

	sc := GetStorageConfig()
	assert.Equal(t, "sqlite", sc.Type)
	assert.Equal(t, 250*time.Millisecond, sc.FlushInterval)
	assert.Equal(t, "/tmp/out", sc.Memory.OutputDir)
	assert.Equal(t, false, sc.Memory.CompressOutput)
	assert.Equal(t, "/tmp/poses.db", sc.SQLite.Path)
}

func TestGetOTelConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetOTelConfig()
	assert.Equal(t, false, cfg.Enabled)
	assert.Equal(t, "fieldsim", cfg.ServiceName)
	assert.Equal(t, 5*time.Second, cfg.BatchTimeout)
	assert.Equal(t, "", cfg.Endpoint)
	assert.Equal(t, true, cfg.Insecure)
}

func TestGetOTelConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"otel": {
			"enabled": true,
			"serviceName": "driver-station",
			"batchTimeout": "30s",
			"endpoint": "localhost:4318",
			"insecure": false
		}
	}`)))

	oc := GetOTelConfig()
	assert.Equal(t, true, oc.Enabled)
	assert.Equal(t, "driver-station", oc.ServiceName)
	assert.Equal(t, 30*time.Second, oc.BatchTimeout)
	assert.Equal(t, "localhost:4318", oc.Endpoint)
	assert.Equal(t, false, oc.Insecure)
}

func TestGetDatabaseConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"db": { "host": "db.local", "password": "hunter2" }
	}`)))

	dc := GetDatabaseConfig()
	assert.Equal(t, "db.local", dc.Host)
	assert.Equal(t, "5432", dc.Port)
	assert.Equal(t, "postgres", dc.Username)
	assert.Equal(t, "hunter2", dc.Password)
	assert.Equal(t, "fieldsim", dc.Database)
	assert.Equal(t, "disable", dc.SSLMode)
}

func TestGetInfluxConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"influx": { "host": "influx.local", "bucket": "poses" }
	}`)))

	ic := GetInfluxConfig()
	assert.Equal(t, "http", ic.Protocol)
	assert.Equal(t, "influx.local", ic.Host)
	assert.Equal(t, "8086", ic.Port)
	assert.Equal(t, "frc5024", ic.Org)
	assert.Equal(t, "poses", ic.Bucket)
	assert.Equal(t, "./fieldsim-influx-backup.lp.gz", ic.BackupPath)
}

package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "photokey.cfg.json"

// StorageConfig selects and configures the frame store backend
type StorageConfig struct {
	Type     string         `json:"type" mapstructure:"type"`
	SQLite   SQLiteConfig   `json:"sqlite" mapstructure:"sqlite"`
	Postgres PostgresConfig `json:"postgres" mapstructure:"postgres"`
}

// SQLiteConfig holds SQLite backend settings
type SQLiteConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// PostgresConfig holds Postgres connection settings
type PostgresConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
	SSLMode  string `json:"sslMode" mapstructure:"sslMode"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled        bool
	ServiceName    string
	BatchTimeout   time.Duration
	MetricInterval time.Duration
}

// CaptureConfig holds flattening pipeline settings
type CaptureConfig struct {
	MaxDimension    int
	MarkerSize      int
	SettleDelay     time.Duration
	Timeout         time.Duration
	Workers         int
	MinBytes        int
	CloseUps        bool
	CloseUpFraction float64
	Glyph           string // marker image; empty uses the built-in pin
	VisibleMin      float64
	VisibleMax      float64
}

// AlignmentConfig holds stepped alignment settings
type AlignmentConfig struct {
	StepMeters float64
	ScaleStep  float64
	RotateStep float64
	MinScale   float64
	MaxScale   float64
}

// APIConfig holds the report service connection
type APIConfig struct {
	ServerURL string
	APIKey    string
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// SetDefaults registers the default for every key. Load calls it; callers
// that run without a config file call it directly.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("storage.type", "sqlite")
	viper.SetDefault("storage.sqlite.path", "./photokey.db")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "photokey")
	viper.SetDefault("db.sslMode", "disable")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "photokey")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.metricInterval", "1m")

	viper.SetDefault("capture.maxDimension", 1200)
	viper.SetDefault("capture.markerSize", 48)
	viper.SetDefault("capture.settleDelay", "500ms")
	viper.SetDefault("capture.timeout", "15s")
	viper.SetDefault("capture.workers", 3)
	viper.SetDefault("capture.minBytes", 1000)
	viper.SetDefault("capture.closeUps", true)
	viper.SetDefault("capture.closeUpFraction", 0.4)
	viper.SetDefault("capture.glyph", "")

	viper.SetDefault("render.visibleMin", -20.0)
	viper.SetDefault("render.visibleMax", 120.0)

	viper.SetDefault("alignment.stepMeters", 5.0)
	viper.SetDefault("alignment.scaleStep", 0.1)
	viper.SetDefault("alignment.rotateStep", 5.0)
	viper.SetDefault("alignment.minScale", 0.2)
	viper.SetDefault("alignment.maxScale", 3.0)

	viper.SetDefault("api.serverUrl", "")
	viper.SetDefault("api.apiKey", "")
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

// GetFloat64 returns a float config value.
func GetFloat64(key string) float64 {
	return viper.GetFloat64(key)
}

// GetDuration returns a duration config value.
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// GetStorageConfig returns the frame store configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		SQLite: SQLiteConfig{
			Path: viper.GetString("storage.sqlite.path"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetString("db.port"),
			Username: viper.GetString("db.username"),
			Password: viper.GetString("db.password"),
			Database: viper.GetString("db.database"),
			SSLMode:  viper.GetString("db.sslMode"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:        viper.GetBool("otel.enabled"),
		ServiceName:    viper.GetString("otel.serviceName"),
		BatchTimeout:   viper.GetDuration("otel.batchTimeout"),
		MetricInterval: viper.GetDuration("otel.metricInterval"),
	}
}

// GetCaptureConfig returns the flattening pipeline configuration.
func GetCaptureConfig() CaptureConfig {
	return CaptureConfig{
		MaxDimension:    viper.GetInt("capture.maxDimension"),
		MarkerSize:      viper.GetInt("capture.markerSize"),
		SettleDelay:     viper.GetDuration("capture.settleDelay"),
		Timeout:         viper.GetDuration("capture.timeout"),
		Workers:         viper.GetInt("capture.workers"),
		MinBytes:        viper.GetInt("capture.minBytes"),
		CloseUps:        viper.GetBool("capture.closeUps"),
		CloseUpFraction: viper.GetFloat64("capture.closeUpFraction"),
		Glyph:           viper.GetString("capture.glyph"),
		VisibleMin:      viper.GetFloat64("render.visibleMin"),
		VisibleMax:      viper.GetFloat64("render.visibleMax"),
	}
}

// GetAlignmentConfig returns the stepped alignment configuration.
func GetAlignmentConfig() AlignmentConfig {
	return AlignmentConfig{
		StepMeters: viper.GetFloat64("alignment.stepMeters"),
		ScaleStep:  viper.GetFloat64("alignment.scaleStep"),
		RotateStep: viper.GetFloat64("alignment.rotateStep"),
		MinScale:   viper.GetFloat64("alignment.minScale"),
		MaxScale:   viper.GetFloat64("alignment.maxScale"),
	}
}

// GetAPIConfig returns the report service configuration. An empty ServerURL
// disables uploads.
func GetAPIConfig() APIConfig {
	return APIConfig{
		ServerURL: viper.GetString("api.serverUrl"),
		APIKey:    viper.GetString("api.apiKey"),
	}
}

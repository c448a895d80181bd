// Package config loads runtime settings from the environment.
package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process-wide settings.
type Config struct {
	// HTTP
	Addr      string
	StaticDir string

	// Storage
	DataDir     string
	CatalogPath string
	PluginDir   string

	// Capture
	CameraID        int
	Facing          string
	MotionThreshold float64
	CaptureEnabled  bool

	// Evaluation
	RepTarget    int
	EvalInterval time.Duration

	// MQTT; disabled when MQTTBroker is empty
	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string
	MQTTTopic    string

	// ClickHouse; disabled when ClickHouseAddr is empty
	ClickHouseAddr string
	ClickHouseDB   string
	ClickHouseUser string
	ClickHousePass string

	Tray bool
}

// Load reads the given .env files (or ./.env when none are given) and then
// the process environment. Missing files are ignored.
func Load(envFiles ...string) *Config {
	_ = godotenv.Load(envFiles...)

	dataDir := getEnv("REPCOACH_DATA_DIR", defaultDataDir())

	return &Config{
		Addr:      getEnv("REPCOACH_ADDR", ":8080"),
		StaticDir: getEnv("REPCOACH_STATIC_DIR", ""),

		DataDir:     dataDir,
		CatalogPath: getEnv("REPCOACH_CATALOG", ""),
		PluginDir:   getEnv("REPCOACH_PLUGIN_DIR", filepath.Join(dataDir, "plugins")),

		CameraID:        getEnvInt("REPCOACH_CAMERA_ID", 0),
		Facing:          getEnv("REPCOACH_FACING", "front"),
		MotionThreshold: getEnvFloat("REPCOACH_MOTION_THRESHOLD", 0.5),
		CaptureEnabled:  getEnvBool("REPCOACH_CAPTURE", false),

		RepTarget:    getEnvInt("REPCOACH_REP_TARGET", 10),
		EvalInterval: getEnvDuration("REPCOACH_EVAL_INTERVAL", 500*time.Millisecond),

		MQTTBroker:   getEnv("MQTT_BROKER", ""),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "repcoach"),
		MQTTUsername: getEnv("MQTT_USERNAME", ""),
		MQTTPassword: getEnv("MQTT_PASSWORD", ""),
		MQTTTopic:    getEnv("MQTT_TOPIC", "repcoach/sessions/{session_id}/events"),

		ClickHouseAddr: getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDB:   getEnv("CLICKHOUSE_DB", "repcoach"),
		ClickHouseUser: getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePass: getEnv("CLICKHOUSE_PASS", ""),

		Tray: getEnvBool("REPCOACH_TRAY", false),
	}
}

// DBPath is the sqlite database location inside DataDir.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "repcoach.db")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".repcoach"
	}
	return filepath.Join(home, ".repcoach")
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as int, using default: %v", key, err)
		return defaultValue
	}
	return intValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("Warning: failed to parse %s as float, using default: %v", key, err)
		return defaultValue
	}
	return floatValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as bool, using default: %v", key, err)
		return defaultValue
	}
	return boolValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as duration, using default: %v", key, err)
		return defaultValue
	}
	return d
}

package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the ETL and collector processes
type Config struct {
	// Database
	DatabasePath string

	// Source extract files
	DataDir string

	// Target route selection
	TargetShortName string
	HubAirportIATA  string

	// Chunked stop_times loading
	StopTimesReadChunk int
	SQLWriteChunk      int

	// Live feed (OneBusAway-style JSON API)
	FeedBaseURL    string
	FeedKey        string
	FeedAppVersion string
	FeedStopID     string
	FeedRouteID    string
	MinutesBefore  int
	MinutesAfter   int

	// Collector
	PollInterval    time.Duration
	FetchTimeout    time.Duration
	RawDir          string
	VehiclesEnabled bool

	// Retention for realtime tables; 0 keeps everything
	RetentionDuration time.Duration

	// Prometheus metrics listen address (e.g. ":9105"); empty disables the server
	MetricsAddr string
}

// Load reads configuration from .env and environment variables with defaults
// matching the Budapest 100E collection setup.
func Load() *Config {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{
		DatabasePath: getEnv("SQLITE_DATABASE", "data/budairport.db"),
		DataDir:      getEnv("DATA_DIR", "data"),

		TargetShortName: getEnv("TARGET_ROUTE_SHORT_NAME", "100E"),
		HubAirportIATA:  getEnv("HUB_AIRPORT_IATA", "BUD"),

		StopTimesReadChunk: getEnvInt("STOP_TIMES_READ_CHUNK", 200000),
		SQLWriteChunk:      getEnvInt("SQL_WRITE_CHUNK", 10000),

		FeedBaseURL:    getEnv("FEED_BASE_URL", "https://futar.bkk.hu/api/query/v1/ws/otp/api/where"),
		FeedKey:        getEnv("FEED_KEY", "bkk-web"),
		FeedAppVersion: getEnv("FEED_APP_VERSION", "1.1.abc"),
		FeedStopID:     getEnv("FEED_STOP_ID", "BKK_F00950"),
		FeedRouteID:    getEnv("FEED_ROUTE_ID", "BKK_1005"),
		MinutesBefore:  getEnvInt("FEED_MINUTES_BEFORE", 0),
		MinutesAfter:   getEnvInt("FEED_MINUTES_AFTER", 60),

		PollInterval:    time.Duration(getEnvInt("POLL_INTERVAL", 30)) * time.Second,
		FetchTimeout:    time.Duration(getEnvInt("FETCH_TIMEOUT", 20)) * time.Second,
		VehiclesEnabled: getEnvBool("VEHICLES_ENABLED", false),

		RetentionDuration: time.Duration(getEnvInt("RETENTION_HOURS", 0)) * time.Hour,

		MetricsAddr: getEnv("METRICS_ADDR", ""),
	}

	cfg.RawDir = getEnv("RAW_DIR", filepath.Join(cfg.DataDir, "realtime_json"))

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration. Pipeline values are the
// defaults applied when a pipeline run does not override them; the engines
// themselves take every parameter explicitly.
type Config struct {
	Port      string
	DBPath    string
	JWTSecret string

	// RateLimit is the number of requests one client may issue per
	// RateWindow; zero disables rate limiting.
	RateLimit  int
	RateWindow time.Duration

	Pipeline PipelineConfig
	Export   ExportConfig
}

// PipelineConfig holds the default parameters for pipeline runs.
type PipelineConfig struct {
	DistThreshold  float64       // meters, staypoint window radius
	TimeThreshold  time.Duration // minimum staypoint dwell
	GapThreshold   time.Duration // recording gap bound
	Epsilon        float64       // meters, location clustering radius
	MinSamples     int           // minimum staypoints per location
	ActivityThresh time.Duration // minimum activity dwell
	TourMaxDist    float64       // meters, tour endpoint matching tolerance
	TourMaxTime    time.Duration // maximum tour span
	TourMaxNrGaps  int           // tolerated endpoint mismatches per tour
}

// ExportConfig holds the optional PostGIS export target. Empty DSN disables
// the export endpoint.
type ExportConfig struct {
	PostgresDSN string
	SRID        int
}

// Load reads the configuration from the environment, with a .env file as
// fallback.
func Load() *Config {
	// ignore error, the file is optional
	_ = godotenv.Load()

	return &Config{
		Port:       getEnv("PORT", ":8080"),
		DBPath:     getEnv("DB_PATH", "./data/mobility.db"),
		JWTSecret:  getEnv("JWT_SECRET", ""),
		RateLimit:  getEnvAsInt("RATE_LIMIT", 300),
		RateWindow: getEnvAsDuration("RATE_WINDOW", time.Minute),
		Pipeline: PipelineConfig{
			DistThreshold:  getEnvAsFloat("PIPELINE_DIST_THRESHOLD_M", 100),
			TimeThreshold:  getEnvAsDuration("PIPELINE_TIME_THRESHOLD", 5*time.Minute),
			GapThreshold:   getEnvAsDuration("PIPELINE_GAP_THRESHOLD", 15*time.Minute),
			Epsilon:        getEnvAsFloat("PIPELINE_EPSILON_M", 100),
			MinSamples:     getEnvAsInt("PIPELINE_MIN_SAMPLES", 1),
			ActivityThresh: getEnvAsDuration("PIPELINE_ACTIVITY_THRESHOLD", 25*time.Minute),
			TourMaxDist:    getEnvAsFloat("PIPELINE_TOUR_MAX_DIST_M", 100),
			TourMaxTime:    getEnvAsDuration("PIPELINE_TOUR_MAX_TIME", 24*time.Hour),
			TourMaxNrGaps:  getEnvAsInt("PIPELINE_TOUR_MAX_NR_GAPS", 0),
		},
		Export: ExportConfig{
			PostgresDSN: getEnv("EXPORT_POSTGRES_DSN", ""),
			SRID:        getEnvAsInt("EXPORT_SRID", 4326),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

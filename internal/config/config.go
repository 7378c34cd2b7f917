package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              int
	Password          string
	StreamURL         string
	DatabasePath      string
	AuthorizedDir     string // reference photos of authorized persons
	IntruderDir       string // snapshots of recorded intruders
	LogDirectory      string
	DetectorURL       string
	DetectorTimeout   time.Duration
	AuthTolerance     float64
	IntruderTolerance float64
	DetectionScale    float64 // frames are shrunk by this factor before detection
	FrameReadTimeout  time.Duration
	JPEGQuality       int
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:              getEnvAsInt("PORT", 5000),
		Password:          getEnv("PASSWORD", "admin"),
		StreamURL:         getEnv("STREAM_URL", "http://192.168.18.33:81/stream"),
		DatabasePath:      getEnv("DB_PATH", filepath.Join(".", "data", "camguard.db")),
		AuthorizedDir:     getEnv("AUTHORIZED_DIR", filepath.Join(".", "data", "authorized")),
		IntruderDir:       getEnv("INTRUDER_DIR", filepath.Join(".", "data", "intruders")),
		LogDirectory:      getEnv("LOG_DIR", filepath.Join(".", "logs")),
		DetectorURL:       getEnv("DETECTOR_URL", "http://localhost:8000"),
		DetectorTimeout:   getEnvAsDuration("DETECTOR_TIMEOUT", 10*time.Second),
		AuthTolerance:     getEnvAsFloat("AUTH_TOLERANCE", 0.5),
		IntruderTolerance: getEnvAsFloat("INTRUDER_TOLERANCE", 0.6),
		DetectionScale:    getEnvAsFloat("DETECTION_SCALE", 0.5),
		FrameReadTimeout:  getEnvAsDuration("FRAME_READ_TIMEOUT", 10*time.Second),
		JPEGQuality:       getEnvAsInt("JPEG_QUALITY", 90),
	}
}

// Validate reports the first setting that would make the pipeline misbehave.
func (c *Config) Validate() error {
	if c.AuthTolerance <= 0 {
		return fmt.Errorf("AUTH_TOLERANCE must be positive, got %v", c.AuthTolerance)
	}
	if c.IntruderTolerance <= 0 {
		return fmt.Errorf("INTRUDER_TOLERANCE must be positive, got %v", c.IntruderTolerance)
	}
	if c.DetectionScale <= 0 || c.DetectionScale > 1 {
		return fmt.Errorf("DETECTION_SCALE must be in (0,1], got %v", c.DetectionScale)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("JPEG_QUALITY must be in [1,100], got %d", c.JPEGQuality)
	}
	if c.FrameReadTimeout <= 0 {
		return fmt.Errorf("FRAME_READ_TIMEOUT must be positive, got %s", c.FrameReadTimeout)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("750ms") or plain seconds ("10").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

// Package config loads the monitoring configuration from the environment,
// with optional .env file support.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all externally supplied settings
type Config struct {
	// Monitoring
	CameraIndex  int
	CameraDevice string // Optional URL/device path, overrides CameraIndex
	EARThreshold float64
	DrowsyFrames int
	YawnFrames   int
	Cooldown     time.Duration

	// Detection backends
	CloudMode        bool // Constrained environment: always use the simulated backend
	LandmarkEndpoint string
	FacemeshWorker   string
	SimulatedSeed    int64

	// Notification
	AudioFile    string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	TelegramEnabled  bool
	TelegramBotToken string
	TelegramChatID   string
	TelegramCooldown int // seconds

	// Server / storage
	HTTPPort string
	DBPath   string
}

// Load reads configuration from the environment. A missing .env file is not
// an error; system environment variables are used instead.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return &Config{
		CameraIndex:  getEnvInt("CAMERA_INDEX", 0),
		CameraDevice: getEnv("CAMERA_DEVICE", ""),
		EARThreshold: getEnvFloat("EAR_THRESHOLD", 0.3),
		DrowsyFrames: getEnvInt("EAR_FRAMES", 30),
		YawnFrames:   getEnvInt("YAWN_FRAMES", 3),
		Cooldown:     getEnvDuration("ALERT_COOLDOWN", 5*time.Second),

		CloudMode:        getEnvBool("CLOUD_MODE", false),
		LandmarkEndpoint: getEnv("LANDMARK_ENDPOINT", "localhost:50051"),
		FacemeshWorker:   getEnv("FACEMESH_WORKER", "scripts/facemesh_worker.py"),
		SimulatedSeed:    int64(getEnvInt("SIMULATED_SEED", 0)),

		AudioFile:    getEnv("AUDIO_FILE", "static/music.wav"),
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", "alerts@drowsisense.local"),

		TelegramEnabled:  getEnvBool("TELEGRAM_ENABLED", false),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		TelegramCooldown: getEnvInt("TELEGRAM_COOLDOWN", 30),

		HTTPPort: getEnv("HTTP_PORT", "8080"),
		DBPath:   getEnv("DB_PATH", "drowsisense.db"),
	}
}

// Validate rejects configuration the monitoring loop cannot run with
func (c *Config) Validate() error {
	if c.EARThreshold <= 0 {
		return fmt.Errorf("EAR_THRESHOLD must be positive, got %v", c.EARThreshold)
	}
	if c.DrowsyFrames <= 0 {
		return fmt.Errorf("EAR_FRAMES must be positive, got %d", c.DrowsyFrames)
	}
	if c.YawnFrames <= 0 {
		return fmt.Errorf("YAWN_FRAMES must be positive, got %d", c.YawnFrames)
	}
	if c.Cooldown <= 0 {
		return fmt.Errorf("ALERT_COOLDOWN must be positive, got %s", c.Cooldown)
	}
	if c.CameraIndex < 0 {
		return fmt.Errorf("CAMERA_INDEX must not be negative, got %d", c.CameraIndex)
	}
	return nil
}

func getEnv(key string, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if intVal, err := strconv.Atoi(v); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

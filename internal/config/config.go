package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              int
	DatabasePath      string
	StorageDirectory  string // extracted images, named by content hash
	CacheDirectory    string // thumbnails and badge composites
	LogDirectory      string
	ClassifierURL     string
	ClassifierTimeout time.Duration
	IngestWorkers     int
	EnsembleSize      int     // prompts per tag sent to the classifier
	Temperature       float64 // softmax temperature, empirically chosen
	ThresholdFloor    float64 // minimum confidence when no tag/category threshold is set
	ThumbnailSize     int
}

func Load() *Config {
	// Missing .env is fine, the environment may be set directly.
	_ = godotenv.Load()

	return &Config{
		Port:              getEnvAsInt("PORT", 8080),
		DatabasePath:      getEnv("DB_PATH", filepath.Join(".", "data", "image_gallery.db")),
		StorageDirectory:  getEnv("STORAGE_DIR", filepath.Join(".", "data", "images")),
		CacheDirectory:    getEnv("CACHE_DIR", filepath.Join(".", "data", "cache")),
		LogDirectory:      getEnv("LOG_DIR", filepath.Join(".", "logs")),
		ClassifierURL:     getEnv("CLASSIFIER_URL", "http://localhost:8000"),
		ClassifierTimeout: time.Duration(getEnvAsInt("CLASSIFIER_TIMEOUT_SECONDS", 30)) * time.Second,
		IngestWorkers:     getEnvAsInt("INGEST_WORKERS", 3),
		EnsembleSize:      getEnvAsInt("ENSEMBLE_SIZE", 4),
		Temperature:       getEnvAsFloat("TEMPERATURE", 0.07),
		ThresholdFloor:    getEnvAsFloat("THRESHOLD_FLOOR", 0.1),
		ThumbnailSize:     getEnvAsInt("THUMBNAIL_SIZE", 200),
	}
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

// EnsureDirectories creates every directory the service writes to.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.DatabasePath),
		c.StorageDirectory,
		c.CacheDirectory,
		c.LogDirectory,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config collects everything the server reads from the environment. It is
// built once in main and passed down; no package reads os.Getenv on its own.
type Config struct {
	Addr string
	Env  string

	// Postgres DSN for the photo metadata table.
	DatabaseDSN string

	// S3-compatible object storage.
	StorageEndpoint  string
	StorageRegion    string
	StorageAccessKey string
	StorageSecret    string
	StorageBucket    string
	// PublicBaseURL is the prefix public object URLs are built from,
	// e.g. https://cdn.example.com/photos/
	PublicBaseURL string

	// Hosted auth service.
	AuthURL    string
	AuthAPIKey string

	// Cookie lifetime for the refresh token; the access cookie lifetime
	// always follows the expiry the auth service issued.
	RefreshTTL time.Duration

	// Upload limits.
	MaxUploadBytes   int64
	MaxUploadBytesV2 int64
	ProcessUploads   bool
}

const (
	defaultRefreshTTL  = 72 * time.Hour
	defaultMaxUpload   = 20 << 20  // 20MB
	defaultMaxUploadV2 = 100 << 20 // 100MB
)

// Load reads the .env file when present and assembles the config.
func Load() (*Config, error) {
	// Missing .env is fine in production where vars come from the platform.
	_ = godotenv.Load()

	cfg := &Config{
		Addr:             getEnv("ADDR", ":8080"),
		Env:              getEnv("APP_ENV", "development"),
		DatabaseDSN:      os.Getenv("DATABASE_DSN"),
		StorageEndpoint:  os.Getenv("STORAGE_ENDPOINT"),
		StorageRegion:    getEnv("STORAGE_REGION", "auto"),
		StorageAccessKey: os.Getenv("STORAGE_ACCESS_KEY"),
		StorageSecret:    os.Getenv("STORAGE_SECRET_KEY"),
		StorageBucket:    os.Getenv("STORAGE_BUCKET"),
		PublicBaseURL:    os.Getenv("PUBLIC_BASE_URL"),
		AuthURL:          os.Getenv("AUTH_URL"),
		AuthAPIKey:       os.Getenv("AUTH_API_KEY"),
		RefreshTTL:       time.Duration(getEnvInt("REFRESH_TTL_SECONDS", int(defaultRefreshTTL/time.Second))) * time.Second,
		MaxUploadBytes:   int64(getEnvInt("MAX_UPLOAD_BYTES", defaultMaxUpload)),
		MaxUploadBytesV2: int64(getEnvInt("MAX_UPLOAD_BYTES_V2", defaultMaxUploadV2)),
		ProcessUploads:   getEnvBool("PROCESS_UPLOADS", true),
	}

	if cfg.DatabaseDSN == "" {
		return nil, fmt.Errorf("DATABASE_DSN is required")
	}
	if cfg.StorageBucket == "" {
		return nil, fmt.Errorf("STORAGE_BUCKET is required")
	}
	if cfg.AuthURL == "" {
		return nil, fmt.Errorf("AUTH_URL is required")
	}
	return cfg, nil
}

// Production reports whether cookies should carry the Secure flag.
func (c *Config) Production() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

package config

import (
	"os"
	"time"
)

type Config struct {
	Port          string
	Domain        string
	DatabaseURL   string // postgres DSN; sqlite is used when empty
	SQLitePath    string
	SessionSecret string
	JWTSecret     string

	StorageBackend string // "filesystem", "s3" or "memory"
	StorageRoot    string
	StorageBaseURL string
	S3Bucket       string
	S3Region       string
	S3AccessKey    string
	S3SecretKey    string

	CacheDir    string
	CacheMaxAge time.Duration
}

func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Domain:        getEnv("DOMAIN", "http://localhost:8080"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		SQLitePath:    getEnv("SQLITE_DB", "nexuslab.db"),
		SessionSecret: getEnv("SESSION_SECRET", ""),
		JWTSecret:     getEnv("JWT_SECRET", ""),

		StorageBackend: getEnv("STORAGE_BACKEND", "filesystem"),
		StorageRoot:    getEnv("STORAGE_ROOT", "./uploads"),
		StorageBaseURL: getEnv("STORAGE_BASE_URL", ""),
		S3Bucket:       getEnv("S3_BUCKET", ""),
		S3Region:       getEnv("S3_REGION", "us-east-1"),
		S3AccessKey:    getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:    getEnv("S3_SECRET_KEY", ""),

		CacheDir:    getEnv("CACHE_DIR", "./cache"),
		CacheMaxAge: getEnvDuration("CACHE_MAX_AGE", 10*time.Minute),
	}
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

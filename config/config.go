// Package config loads settings from the environment, after reading an
// optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type (
	Config struct {
		Server  ServerConfig
		Auth    AuthConfig
		Storage StorageConfig
		API     APIConfig
		UI      UIConfig
		Log     LogConfig
	}

	ServerConfig struct {
		Listen         string
		AllowedOrigins []string
	}

	AuthConfig struct {
		Enabled bool
		// AccessKey is compared in constant time; AccessKeyHash is a bcrypt hash.
		AccessKey     string
		AccessKeyHash string
		JWTSecret     string
	}

	StorageConfig struct {
		Type           string
		BasePath       string
		DataSourceName string
		S3Bucket       string
		S3Prefix       string
		Timeout        time.Duration
	}

	APIConfig struct {
		BaseURL string
		Timeout time.Duration
	}

	UIConfig struct {
		PersistFields []string
	}

	LogConfig struct {
		Level  string
		Format string // "text" or "json"
	}
)

// Load reads .env (if present) and the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found")
	}

	return &Config{
		Server: ServerConfig{
			Listen:         getEnv("LISTEN_ADDRESS", ":3002"),
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		},
		Auth: AuthConfig{
			Enabled:       getEnvBool("AUTH_ENABLED", true),
			AccessKey:     os.Getenv("AUTH_ACCESS_KEY"),
			AccessKeyHash: os.Getenv("AUTH_ACCESS_KEY_HASH"),
			JWTSecret:     os.Getenv("JWT_SECRET"),
		},
		Storage: StorageConfig{
			Type:           getEnv("STORAGE_TYPE", "memory"),
			BasePath:       getEnv("LOCAL_STORAGE_PATH", "./data"),
			DataSourceName: getEnv("DATA_SOURCE_NAME", "excalidraw.db"),
			S3Bucket:       os.Getenv("S3_BUCKET_NAME"),
			S3Prefix:       os.Getenv("S3_PREFIX"),
			Timeout:        getEnvDuration("STORAGE_TIMEOUT", 10*time.Second),
		},
		API: APIConfig{
			BaseURL: strings.TrimSuffix(getEnv("API_BASE_URL", "http://localhost:3002/api"), "/"),
			Timeout: getEnvDuration("API_TIMEOUT", 30*time.Second),
		},
		UI: UIConfig{
			PersistFields: getEnvList("UI_PERSIST_FIELDS", []string{"theme"}),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}
}

// Apply configures the standard logrus logger.
func (c LogConfig) Apply() error {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logrus.SetLevel(level)

	if c.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
		logrus.WithField("key", key).Warn("Ignoring invalid boolean")
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		logrus.WithField("key", key).Warn("Ignoring invalid duration")
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping empty parts.
func getEnvList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	AppName string
	Env     string
	Host    string
	Port    int

	// Client side: base URL of the REST API the chat client talks to.
	// WebSocket URLs are derived from its scheme and host.
	APIBaseURL string

	DatabasePath string

	JWTSecret         string
	WSTokenTTLSeconds int
	EncryptKey        string

	CORSOrigins         []string
	Debug               bool
	MessageHistoryLimit int
}

func Load() (*Config, error) {
	cfg := &Config{
		AppName: getEnv("APP_NAME", "forumchat"),
		Env:     getEnv("APP_ENV", "development"),
		Host:    getEnv("HTTP_HOST", "0.0.0.0"),
		Port:    getEnvAsInt("HTTP_PORT", 8000),

		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8000"),

		DatabasePath: getEnv("DATABASE_PATH", "forumchat.db"),

		JWTSecret:         getEnv("JWT_SECRET", ""),
		WSTokenTTLSeconds: getEnvAsInt("WS_TOKEN_TTL_SECONDS", 60),
		EncryptKey:        getEnv("ENCRYPTION_KEY", ""),

		Debug:               getEnvAsBool("DEBUG", true),
		MessageHistoryLimit: getEnvAsInt("MESSAGE_HISTORY_LIMIT", 200),
	}

	cors := getEnv("CORS_ORIGINS", "")
	if cors != "" {
		parts := strings.Split(cors, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		cfg.CORSOrigins = parts
	} else {
		cfg.CORSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}

	if cfg.Env == "development" {
		if cfg.JWTSecret == "" {
			cfg.JWTSecret = "dev-only-jwt-secret"
		}
		if cfg.EncryptKey == "" {
			cfg.EncryptKey = "dev-only-encryption-key"
		}
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.EncryptKey == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required")
	}

	return cfg, nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvAsInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvAsBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

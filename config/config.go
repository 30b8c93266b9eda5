package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config carries everything the process needs from the environment.
// The two signing secrets are independent so that a leaked refresh
// secret cannot be used to forge access tokens, and vice versa.
type Config struct {
	ListenAddr   string
	MongoURI     string
	DatabaseName string

	JWTAccessSecret  string
	JWTRefreshSecret string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration

	AllowedOrigins string
	RedisAddr      string

	WebhookSecret string

	AdminEmail    string
	AdminPassword string
}

func Load() Config {
	return Config{
		ListenAddr:       getenv("LISTEN_ADDR", ":4500"),
		MongoURI:         getenv("MONGODB_URI", "mongodb://127.0.0.1:27017"),
		DatabaseName:     getenv("DATABASE_NAME", "learnlab"),
		JWTAccessSecret:  os.Getenv("JWT_SECRET"),
		JWTRefreshSecret: os.Getenv("JWT_REFRESH_SECRET"),
		AccessTokenTTL:   getenvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:  getenvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		AllowedOrigins:   os.Getenv("ALLOWED_ORIGINS"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		WebhookSecret:    os.Getenv("PAYMENT_WEBHOOK_SECRET"),
		AdminEmail:       os.Getenv("ADMIN_EMAIL"),
		AdminPassword:    os.Getenv("ADMIN_PASSWORD"),
	}
}

func (c Config) Validate() error {
	if c.JWTAccessSecret == "" {
		return fmt.Errorf("missing JWT_SECRET")
	}
	if c.JWTRefreshSecret == "" {
		return fmt.Errorf("missing JWT_REFRESH_SECRET")
	}
	if c.JWTAccessSecret == c.JWTRefreshSecret {
		return fmt.Errorf("JWT_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	return nil
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_MINUTES"); val != "" {
		if minutes, err := strconv.Atoi(val); err == nil && minutes > 0 {
			return time.Duration(minutes) * time.Minute
		}
	}
	return fallback
}

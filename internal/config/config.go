// Package config loads application configuration from the environment.
//
// Configuration comes from environment variables with sensible defaults,
// optionally seeded from a .env file (godotenv) so local development
// doesn't require exporting a dozen variables by hand. The loaded Config
// struct is passed down explicitly — nothing in the app reads os.Getenv
// after startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting the server needs.
type Config struct {
	Port   int
	Env    string // "development" or "production"
	DBPath string

	// Auth
	JWTSecret string
	TokenTTL  time.Duration // bearer token validity, default 30 days

	// CORS
	AllowedOrigins []string

	// Rate limiting (per client IP)
	RateLimitRequests      int           // global request budget per window
	RateLimitWindow        time.Duration //
	LoginRateLimitRequests int           // stricter budget for POST /login
	LoginRateLimitWindow   time.Duration //

	// Outbound email notifications
	EmailEnabled bool
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPass     string
	AdminEmail   string // recipient of new-question alerts
}

// Load reads the .env file (if present) and the environment, and returns
// a validated Config. A missing .env is not an error — in production the
// variables come from the real environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:                   5555,
		Env:                    getEnv("APP_ENV", "development"),
		DBPath:                 getEnv("DB_PATH", "data/chatqa.db"),
		JWTSecret:              os.Getenv("JWT_SECRET"),
		TokenTTL:               30 * 24 * time.Hour,
		AllowedOrigins:         []string{"http://localhost:3000", "http://localhost:5173"},
		RateLimitRequests:      100,
		RateLimitWindow:        15 * time.Minute,
		LoginRateLimitRequests: 5,
		LoginRateLimitWindow:   15 * time.Minute,
		EmailEnabled:           getEnv("ENABLE_EMAIL_NOTIFICATIONS", "true") == "true",
		SMTPHost:               getEnv("EMAIL_HOST", "smtp.gmail.com"),
		SMTPPort:               587,
		SMTPUser:               os.Getenv("EMAIL_USER"),
		SMTPPass:               os.Getenv("EMAIL_PASS"),
		AdminEmail:             os.Getenv("ADMIN_EMAIL"),
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("config: invalid PORT %q: %w", portStr, err)
		}
		cfg.Port = port
	}

	if smtpPort := os.Getenv("EMAIL_PORT"); smtpPort != "" {
		port, err := strconv.Atoi(smtpPort)
		if err != nil {
			return Config{}, fmt.Errorf("config: invalid EMAIL_PORT %q: %w", smtpPort, err)
		}
		cfg.SMTPPort = port
	}

	// JWT_EXPIRE accepts Go duration syntax, e.g. "720h" for 30 days.
	if ttl := os.Getenv("JWT_EXPIRE"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return Config{}, fmt.Errorf("config: invalid JWT_EXPIRE %q: %w", ttl, err)
		}
		cfg.TokenTTL = d
	}

	// ALLOWED_ORIGINS is a comma-separated list; it replaces the defaults.
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = cfg.AllowedOrigins[:0]
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	return cfg, nil
}

// getEnv returns the environment variable or a fallback if it's unset.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

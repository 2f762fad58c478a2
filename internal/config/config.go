package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment variables
type Config struct {
	// Google OAuth: web login (goth) and the calendar authorization-code exchange
	GoogleClientID         string
	GoogleClientSecret     string
	GoogleCallbackURL      string
	GoogleOAuthRedirectURI string

	SessionSecret string
	EncryptionKey string // base64, 32 bytes; encrypts calendar tokens at rest
	Env           string
	Port          string

	DatabaseURL string
	RedisURL    string
	SeedDevData bool

	WeatherAPIKey   string
	WeatherBaseURL  string
	WeatherStubMode bool

	NewsFeedsFile string

	// Cron expression for the scheduled morning gist run
	GistSchedule string
	GistTimezone string

	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first when present; real environment
// variables always win.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment overrides from .env")
	}

	cfg := &Config{
		GoogleClientID:         os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:     os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleCallbackURL:      getEnvWithDefault("GOOGLE_CALLBACK_URL", "http://localhost:8080/auth/google/callback"),
		GoogleOAuthRedirectURI: os.Getenv("GOOGLE_OAUTH_REDIRECT_URI"),
		SessionSecret:          os.Getenv("SESSION_SECRET"),
		EncryptionKey:          os.Getenv("ENCRYPTION_KEY"),
		Env:                    getEnvWithDefault("ENV", "development"),
		Port:                   getEnvWithDefault("PORT", "8080"),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		RedisURL:               getEnvWithDefault("REDIS_URL", "redis://localhost:6379/0"),
		SeedDevData:            getEnvBool("SEED_DEV_DATA", false),
		WeatherAPIKey:          os.Getenv("WEATHERAPI_KEY"),
		WeatherBaseURL:         getEnvWithDefault("WEATHER_BASE_URL", "https://api.weatherapi.com/v1"),
		WeatherStubMode:        getEnvBool("WEATHER_STUB_MODE", false),
		NewsFeedsFile:          os.Getenv("NEWS_FEEDS_FILE"),
		GistSchedule:           getEnvWithDefault("GIST_SCHEDULE", "30 7 * * *"),
		GistTimezone:           getEnvWithDefault("GIST_TIMEZONE", "America/New_York"),
		LogLevel:               getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat:              getEnvWithDefault("LOG_FORMAT", "text"),
	}

	// Warn if using default session secret (insecure for production)
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = "dev-secret-change-in-production-use-openssl-rand-hex-32"
		log.Println("WARNING: Using default SESSION_SECRET. Generate a secure secret with: openssl rand -hex 32")
	}

	if cfg.EncryptionKey == "" {
		log.Println("WARNING: ENCRYPTION_KEY not set. Calendar tokens will be stored unencrypted.")
	}

	if cfg.WeatherAPIKey == "" && !cfg.WeatherStubMode {
		log.Println("WARNING: WEATHERAPI_KEY not set. Forecast requests will fail; set WEATHER_STUB_MODE=true for local runs.")
	}

	return cfg
}

// IsProduction reports whether the app runs with ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("WARNING: invalid boolean for %s=%q, using %t", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

package config

import (
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	ServerPort  string
	Environment string

	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis configuration
	RedisAddress string

	// E-signature provider (SignWell)
	SignWellAPIBase string
	SignWellAPIKey  string
	// HMAC secret for inbound webhooks. Empty disables verification,
	// which is an explicit development-only opt-out.
	SignWellWebhookSecret string

	// Template + PDF renderer collaborator
	RenderServerAddress string

	// JWT secret used to verify admin tokens minted by the auth service
	JWTSecret string

	// internal secret used for communication between servers
	InternalSecret string

	FrontendAddress string
}

// Global application configuration
var AppConfig Config

// LoadConfig loads configuration from environment variables
func LoadConfig() {
	// Find .env file
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		// Try to find .env in parent directories
		envPath = filepath.Join("..", ".env")
		if _, err := os.Stat(envPath); os.IsNotExist(err) {
			envPath = filepath.Join("..", "..", ".env")
		}
	}

	// Load .env file if it exists
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			log.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	AppConfig = Config{
		ServerPort:            getEnv("PORT", "8080"),
		Environment:           getEnv("ENV", "development"),
		DBHost:                getEnv("DB_HOST", "localhost"),
		DBPort:                getEnv("DB_PORT", "5432"),
		DBUser:                getEnv("DB_USER", "postgres"),
		DBPassword:            getEnv("DB_PASSWORD", "postgres"),
		DBName:                getEnv("DB_NAME", "royalty_splits"),
		RedisAddress:          getEnv("REDIS_ADDRESS", "localhost:6379"),
		SignWellAPIBase:       getEnv("SIGNWELL_API_BASE", "https://www.signwell.com/api/v1"),
		SignWellAPIKey:        getEnv("SIGNWELL_API_KEY", ""),
		SignWellWebhookSecret: getEnv("SIGNWELL_WEBHOOK_SECRET", ""),
		RenderServerAddress:   getEnv("RENDER_ADDRESS", "http://localhost:8787"),
		JWTSecret:             getEnv("JWT_SECRET", ""),
		InternalSecret:        getEnv("INTERNAL_SECRET", "splits-internal-secret"),
		FrontendAddress:       getEnv("FRONTEND_ADDRESS", "https://production-frontend.com"),
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Redis configuration (live bus-location cache)
	Redis RedisConfig

	// JWT configuration
	JWT JWTConfig

	// CORS configuration
	CORS CORSConfig

	// Security configuration
	Security SecurityConfig

	// Payment gateway configuration
	Payment PaymentConfig

	// Google OAuth configuration
	Google GoogleConfig

	// Events configuration (booking lifecycle topic)
	Events EventsConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// RedisConfig holds Redis-related configuration
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	LocationTTL time.Duration // TTL for cached live bus locations
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret             string
	RefreshSecret      string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	BcryptCost int
}

// PaymentConfig holds Razorpay gateway configuration
type PaymentConfig struct {
	Provider  string        // gateway name recorded on payment rows
	KeyID     string        // public key id, sent to the client to open its payment UI
	KeySecret string        // SECRET - signs orders and verifies signatures, never exposed
	BaseURL   string        // gateway API base URL
	Currency  string        // default currency
	Timeout   time.Duration // HTTP timeout for gateway calls
}

// GoogleConfig holds Google OAuth configuration
type GoogleConfig struct {
	ClientID       string
	ClientSecret   string
	RedirectURL    string // server-side callback URL registered with Google
	ClientRedirect string // frontend URL to send tokens back to
}

// EventsConfig holds booking event producer configuration
type EventsConfig struct {
	Brokers []string // empty disables the producer
	Topic   string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		Redis: RedisConfig{
			Addr:        getEnv("REDIS_ADDR", "localhost:6379"),
			Password:    getEnv("REDIS_PASSWORD", ""),
			DB:          getEnvAsInt("REDIS_DB", 0),
			LocationTTL: time.Duration(getEnvAsInt("REDIS_LOCATION_TTL_SECONDS", 60)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", ""),
			RefreshSecret:      getEnv("JWT_REFRESH_SECRET", ""),
			AccessTokenExpiry:  time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
			RefreshTokenExpiry: time.Duration(getEnvAsInt("JWT_REFRESH_TOKEN_EXPIRY", 604800)) * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Security: SecurityConfig{
			BcryptCost: getEnvAsInt("BCRYPT_COST", 12),
		},
		Payment: PaymentConfig{
			Provider:  getEnv("PAYMENT_PROVIDER", "razorpay"),
			KeyID:     getEnv("RAZORPAY_KEY_ID", ""),
			KeySecret: getEnv("RAZORPAY_KEY_SECRET", ""),
			BaseURL:   getEnv("RAZORPAY_BASE_URL", "https://api.razorpay.com"),
			Currency:  getEnv("PAYMENT_CURRENCY", "INR"),
			Timeout:   time.Duration(getEnvAsInt("PAYMENT_TIMEOUT_SECONDS", 15)) * time.Second,
		},
		Google: GoogleConfig{
			ClientID:       getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret:   getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:    getEnv("GOOGLE_REDIRECT_URI", ""),
			ClientRedirect: getEnv("GOOGLE_CLIENT_REDIRECT", "http://localhost:5173/google-callback"),
		},
		Events: EventsConfig{
			Brokers: getEnvAsSlice("KAFKA_BROKERS", nil),
			Topic:   getEnv("KAFKA_BOOKING_TOPIC", "booking-events"),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.JWT.RefreshSecret == "" {
		return fmt.Errorf("JWT_REFRESH_SECRET is required")
	}

	// The gateway client is constructed once at startup, so missing
	// credentials must fail here rather than on the first checkout.
	if c.Server.Environment != "development" {
		if c.Payment.KeyID == "" {
			return fmt.Errorf("RAZORPAY_KEY_ID is required outside development mode")
		}
		if c.Payment.KeySecret == "" {
			return fmt.Errorf("RAZORPAY_KEY_SECRET is required outside development mode")
		}
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}

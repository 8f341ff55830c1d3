package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// AWS configuration
	AWSRegion           string
	DynamoDBTable       string
	EngagementIndexName string // GSI1 - engagement lookups keyed by target post/user
	FeedIndexName       string // GSI2 - published posts ordered by creation time
	EventBusName        string

	// Lambda configuration
	IsLambda bool

	// Feed configuration
	FeedLimit int

	// Logging
	LogLevel string

	// Authentication
	JWTSecret string
	JWTIssuer string

	// Feature flags
	EnableMetrics bool
	EnableCORS    bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress:       getEnv("SERVER_ADDRESS", ":8080"),
		Environment:         getEnv("ENVIRONMENT", "development"),
		AWSRegion:           getEnv("AWS_REGION", "ap-south-1"),
		DynamoDBTable:       getEnv("TABLE_NAME", "tradepulse"),
		EngagementIndexName: getEnv("ENGAGEMENT_INDEX_NAME", "EngagementIndex"),
		FeedIndexName:       getEnv("FEED_INDEX_NAME", "FeedIndex"),
		EventBusName:        getEnv("EVENT_BUS_NAME", "tradepulse-events"),

		IsLambda:  getEnvBool("IS_LAMBDA", os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""),
		FeedLimit: getEnvInt("FEED_LIMIT", 50),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "tradepulse"),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		EnableMetrics: getEnvBool("ENABLE_METRICS", false),
		EnableCORS:    getEnvBool("ENABLE_CORS", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.Environment == "production" {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.DynamoDBTable == "" {
			return fmt.Errorf("TABLE_NAME is required")
		}
	}
	if c.FeedLimit <= 0 {
		return fmt.Errorf("FEED_LIMIT must be positive")
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

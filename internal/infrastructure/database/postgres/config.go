package postgres

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds PostgreSQL connection configuration
type Config struct {
	Host              string
	Port              int
	Database          string
	User              string
	Password          string
	SSLMode           string
	MaxOpenConns      int
	MaxIdleConns      int
	ConnMaxLifetime   string
	ConnMaxIdleTime   string
	HealthCheckPeriod string
}

// NewConfigFromEnv creates a database configuration from environment variables
func NewConfigFromEnv() *Config {
	return &Config{
		Host:              getEnv("DB_HOST", "localhost"),
		Port:              getEnvAsInt("DB_PORT", 5432),
		Database:          getEnv("DB_NAME", "wallets"),
		User:              getEnv("DB_USER", "wallets"),
		Password:          getEnv("DB_PASSWORD", "wallets_secure_pass"),
		SSLMode:           getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:      getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:      getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime:   getEnv("DB_CONN_MAX_LIFETIME", "30m"),
		ConnMaxIdleTime:   getEnv("DB_CONN_MAX_IDLE_TIME", "5m"),
		HealthCheckPeriod: getEnv("DB_HEALTH_CHECK_PERIOD", "1m"),
	}
}

// ConnectionString builds a PostgreSQL connection string
func (c *Config) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

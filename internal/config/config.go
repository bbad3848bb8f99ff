package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	defaultJWTSecret        = "default_jwt_secret"
	defaultJWTRefreshSecret = "default_refresh_secret"
)

// Config holds all configuration for our application
type Config struct {
	Port                      string
	Origin                    string
	Environment               string
	LogLevel                  string
	JWTSecret                 string
	JWTRefreshSecret          string
	JWTExpirationMinutes      int
	JWTRefreshExpirationHours int
	RequestTimeoutSeconds     int
	Database                  DatabaseConfig
	Cache                     CacheConfig
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	Name         string
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// CacheConfig holds the read cache settings. An empty RedisURL disables caching.
type CacheConfig struct {
	RedisURL   string
	TTLSeconds int
}

// LoadConfig loads configuration from a .env file, if present, and the environment.
func LoadConfig() (*Config, error) {
	// A missing .env is fine, containers pass real environment variables
	_ = godotenv.Load()

	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "3306"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "medicare"),
	}

	// Build DSN (Data Source Name) for MySQL connection
	dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)

	var err error
	if dbConfig.MaxOpenConns, err = getEnvInt("DB_MAX_OPEN_CONNS", 25); err != nil {
		return nil, err
	}
	if dbConfig.MaxIdleConns, err = getEnvInt("DB_MAX_IDLE_CONNS", 5); err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:             getEnv("PORT", "3001"),
		Origin:           getEnv("ORIGIN", "http://localhost:5173"),
		Environment:      getEnv("APP_ENV", "development"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		JWTSecret:        getEnv("JWT_SECRET", defaultJWTSecret),
		JWTRefreshSecret: getEnv("JWT_REFRESH_SECRET", defaultJWTRefreshSecret),
		Database:         dbConfig,
		Cache: CacheConfig{
			RedisURL: getEnv("REDIS_URL", ""),
		},
	}

	if cfg.JWTExpirationMinutes, err = getEnvInt("JWT_EXPIRATION_MINUTES", 15); err != nil {
		return nil, err
	}
	if cfg.JWTRefreshExpirationHours, err = getEnvInt("JWT_REFRESH_EXPIRATION_HOURS", 168); err != nil { // 7 days
		return nil, err
	}
	if cfg.RequestTimeoutSeconds, err = getEnvInt("REQUEST_TIMEOUT_SECONDS", 15); err != nil {
		return nil, err
	}
	if cfg.Cache.TTLSeconds, err = getEnvInt("CACHE_TTL_SECONDS", 30); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects configurations that must not reach production.
func (c *Config) Validate() error {
	if c.JWTExpirationMinutes <= 0 || c.JWTRefreshExpirationHours <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if c.Environment == "production" {
		if c.JWTSecret == defaultJWTSecret || c.JWTRefreshSecret == defaultJWTRefreshSecret {
			return errors.New("JWT_SECRET and JWT_REFRESH_SECRET must be set in production")
		}
	}
	return nil
}

// IsDevelopment reports whether the service runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

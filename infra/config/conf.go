package config

import (
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Validator *validator.Validate
}

// AppConfig represents the application configuration
type AppConfig struct {
	Port              string
	Environment       string
	LoggingLevel      string
	SQLitePath        string
	EnableSQLiteAudit bool
	OpenSearchURL     string
	OpenSearchUser    string
	OpenSearchPass    string
	EnableLogging     bool
	LogRetentionDays  int
}

var (
	instance          *Config
	appConfigInstance *AppConfig
)

func App() *Config {
	if instance == nil {
		instance = &Config{
			Validator: validator.New(),
		}
	}
	return instance
}

// GetAppConfig returns the application configuration
func GetAppConfig() *AppConfig {
	if appConfigInstance == nil {
		appConfigInstance = &AppConfig{
			Port:              GetEnv("APP_PORT", "9999"),
			Environment:       GetEnv("ENVIRONMENT", "development"),
			LoggingLevel:      GetEnv("LOGGING_LEVEL", "info"),
			SQLitePath:        GetEnv("SQLITE_PATH", "./data/gopos.db"),
			EnableSQLiteAudit: GetBoolEnv("ENABLE_SQLITE_AUDIT", true),
			OpenSearchURL:     GetEnv("OPENSEARCH_URL", "http://localhost:9200"),
			OpenSearchUser:    GetEnv("OPENSEARCH_USER", ""),
			OpenSearchPass:    GetEnv("OPENSEARCH_PASSWORD", ""),
			EnableLogging:     GetBoolEnv("ENABLE_OPENSEARCH_LOGGING", false),
			LogRetentionDays:  GetIntEnv("LOG_RETENTION_DAYS", 30),
		}
	}
	return appConfigInstance
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetBoolEnv returns the boolean value of an environment variable or a default value
func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetIntEnv returns the integer value of an environment variable or a default value
func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

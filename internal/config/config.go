// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port     int
	LogLevel string
	DevMode  bool

	// ProcessQueueMessages gates all special handling of queue-daemon
	// traffic. When false every request is forwarded to the application
	// untouched.
	ProcessQueueMessages bool

	// SecretKeyBase is the signing secret shared with the enqueuing
	// environment. Read once at startup; never logged.
	SecretKeyBase string

	// Enqueuer settings. QueueURL wins when both are set; QueueName is
	// resolved through the queue service at startup.
	QueueURL  string
	QueueName string
	AWSRegion string

	// Optional static credentials. When both are set they override the
	// default AWS credential chain.
	AWSAccessKeyID     string
	AWSSecretAccessKey string
}

// Load reads configuration from the environment, with .env support
func Load() (*Config, error) {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnvAsInt("WORKER_PORT", 3000),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		DevMode:              getEnvAsBool("DEV_MODE", false),
		ProcessQueueMessages: os.Getenv("PROCESS_QUEUE_MESSAGES") != "false",
		SecretKeyBase:        getEnv("SECRET_KEY_BASE", ""),
		QueueURL:             getEnv("WORKER_QUEUE_URL", ""),
		QueueName:            getEnv("WORKER_QUEUE_NAME", ""),
		AWSRegion:            getEnv("AWS_REGION", ""),
		AWSAccessKeyID:       getEnv("WORKER_AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:   getEnv("WORKER_AWS_SECRET_ACCESS_KEY", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	// SECRET_KEY_BASE is optional here: without it signed job deliveries
	// are rejected at the verifier, which is the safe failure mode.

	return nil
}

// HasStaticCredentials reports whether explicit AWS credentials were
// configured for the enqueuer.
func (c *Config) HasStaticCredentials() bool {
	return c.AWSAccessKeyID != "" && c.AWSSecretAccessKey != ""
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

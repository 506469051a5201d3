package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ServerConfig holds the run service settings, read from the environment.
type ServerConfig struct {
	Port           string
	DatabaseURL    string // empty selects the in-memory store
	RunsRoot       string // base for relative input_root and output_root of submitted runs
	RunnerMode     string // "pipeline" or "mock"
	PollInterval   time.Duration
	AllowedOrigins string
	LogBuffer      int // per-subscriber websocket buffer, in lines
}

// LoadServer reads .env (if present) and the process environment.
func LoadServer() ServerConfig {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	return ServerConfig{
		Port:           getEnv("PORT", "8080"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		RunsRoot:       getEnv("CLP_RUNS_ROOT", "."),
		RunnerMode:     getEnv("CLP_RUNNER_MODE", "pipeline"),
		PollInterval:   getEnvAsDuration("CLP_POLL_INTERVAL", time.Second),
		AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		LogBuffer:      getEnvAsInt("CLP_LOG_BUFFER", 256),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

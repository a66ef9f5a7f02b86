// Package config loads the worker's connection parameters from the
// environment, each through a getEnv*-with-default helper.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds everything cmd/stratumworker needs to dial one pool.
type Config struct {
	LogLevel string

	Hostname   string
	Port       int
	WorkerName string
	Password   string
	UserAgent  string

	Timeout time.Duration

	TorEnabled   bool
	TorProxyAddr string
}

// Load reads configuration from environment variables, falling back to
// sane single-pool defaults.
func Load() *Config {
	return &Config{
		LogLevel: getEnv("LOG_LEVEL", "info"),

		Hostname:   getEnv("POOL_HOST", "stratum.example.com"),
		Port:       getEnvInt("POOL_PORT", 3333),
		WorkerName: getEnv("WORKER_NAME", "worker1"),
		Password:   getEnv("WORKER_PASSWORD", "x"),
		UserAgent:  getEnv("USER_AGENT", "stratumclient"),

		Timeout: getEnvDuration("CALL_TIMEOUT", 10*time.Second),

		TorEnabled:   getEnvBool("TOR_ENABLED", false),
		TorProxyAddr: getEnv("TOR_PROXY_ADDR", "127.0.0.1:9050"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

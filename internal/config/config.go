package config

import (
	"os"
	"strconv"
)

// Config holds all application configuration.
type Config struct {
	Addr       string
	DataDir    string
	Tariff     float64
	SweepSpec  string
	RateBurst  int
	RatePerSec int
	LogLevel   string
}

// Load reads configuration from environment variables. Every key has a
// workable default so a bare start serves on :8080 with data files in
// the working directory.
func Load() (*Config, error) {
	cfg := &Config{
		Addr:       getEnv("HYDROBILL_ADDR", ":8080"),
		DataDir:    getEnv("HYDROBILL_DATA_DIR", "."),
		Tariff:     getEnvAsFloat("HYDROBILL_TARIFF", 2.5),
		SweepSpec:  getEnv("HYDROBILL_SWEEP_SPEC", "@hourly"),
		RateBurst:  getEnvAsInt("HYDROBILL_RATE_BURST", 20),
		RatePerSec: getEnvAsInt("HYDROBILL_RATE_PER_SEC", 10),
		LogLevel:   getEnv("HYDROBILL_LOG_LEVEL", "info"),
	}
	if cfg.Tariff <= 0 {
		cfg.Tariff = 2.5
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

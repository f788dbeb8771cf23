/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment   string
	HTTPBind      string
	HTTPPort      int
	DBBackend     DatabaseBackend
	DBDSN         string
	JWTSigningKey string
	MetricsBind   string

	// Schedule listing page size
	PageSize int

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	// Redis cache configuration
	CacheEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:   getEnv("MUNINN_ENV", "development"),
		HTTPBind:      getEnv("MUNINN_HTTP_BIND", "0.0.0.0"),
		HTTPPort:      getEnvInt("MUNINN_HTTP_PORT", 8080),
		DBBackend:     DatabaseBackend(getEnv("MUNINN_DB_BACKEND", string(DatabasePostgres))),
		DBDSN:         getEnv("MUNINN_DB_DSN", ""),
		JWTSigningKey: getEnv("MUNINN_JWT_SIGNING_KEY", ""),
		MetricsBind:   getEnv("MUNINN_METRICS_BIND", "127.0.0.1:9000"),

		PageSize: getEnvInt("MUNINN_PAGE_SIZE", 20),

		// Tracing configuration
		TracingEnabled:    getEnvBool("MUNINN_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("MUNINN_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("MUNINN_TRACING_SAMPLE_RATE", 1.0),

		// Redis cache configuration
		CacheEnabled:  getEnvBool("MUNINN_CACHE_ENABLED", true),
		RedisAddr:     getEnv("MUNINN_REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("MUNINN_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("MUNINN_REDIS_DB", 0),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("MUNINN_DB_DSN must be provided")
	}

	if cfg.JWTSigningKey == "" {
		return nil, fmt.Errorf("MUNINN_JWT_SIGNING_KEY must be provided")
	}

	if cfg.PageSize < 1 || cfg.PageSize > 500 {
		return nil, fmt.Errorf("MUNINN_PAGE_SIZE must be between 1 and 500")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(strings.TrimSpace(val))
		if val == "true" || val == "1" || val == "yes" {
			return true
		}
		if val == "false" || val == "0" || val == "no" {
			return false
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}

// Package config loads treechunk settings from the environment and .env files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variable names
const (
	EnvDBPath       = "TREECHUNK_DB_PATH"
	EnvHTTPAddr     = "TREECHUNK_HTTP_ADDR"
	EnvWorkers      = "TREECHUNK_WORKERS"
	EnvRulesFile    = "TREECHUNK_RULES_FILE"
	EnvStrictParse  = "TREECHUNK_STRICT_PARSE"
	EnvImportChunks = "TREECHUNK_IMPORT_CHUNKS"
	EnvCacheSize    = "TREECHUNK_CACHE_SIZE"
	EnvLogLevel     = "TREECHUNK_LOG_LEVEL"
	EnvLogFormat    = "TREECHUNK_LOG_FORMAT"
)

// DefaultDBPath is the database location used when TREECHUNK_DB_PATH is unset
const DefaultDBPath = "~/.treechunk/treechunk.db"

// Config holds all configuration for the application.
type Config struct {
	DBPath       string
	HTTPAddr     string
	Workers      int
	RulesFile    string
	StrictParse  bool
	ImportChunks bool // chunk import statements of the built-in tables
	CacheSize    int
	LogLevel     string
	LogFormat    string
}

// Load reads configuration from environment variables and returns a Config struct.
// If a .env file exists in the current directory or one of its parents, it is
// loaded first. Environment variables already set take precedence over .env
// file values.
func Load() (*Config, error) {
	loadDotEnv()

	cfg := &Config{
		DBPath:    getEnv(EnvDBPath, DefaultDBPath),
		HTTPAddr:  getEnv(EnvHTTPAddr, ":8080"),
		RulesFile: getEnv(EnvRulesFile, ""),
		LogLevel:  getEnv(EnvLogLevel, "info"),
		LogFormat: getEnv(EnvLogFormat, "text"),
	}

	var err error
	if cfg.Workers, err = getInt(EnvWorkers, runtime.NumCPU()); err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("%s must be greater than 0", EnvWorkers)
	}

	if cfg.CacheSize, err = getInt(EnvCacheSize, 1024); err != nil {
		return nil, err
	}
	if cfg.CacheSize <= 0 {
		return nil, fmt.Errorf("%s must be greater than 0", EnvCacheSize)
	}

	if cfg.StrictParse, err = getBool(EnvStrictParse, false); err != nil {
		return nil, err
	}

	if cfg.ImportChunks, err = getBool(EnvImportChunks, false); err != nil {
		return nil, err
	}

	if cfg.DBPath, err = expandHome(cfg.DBPath); err != nil {
		return nil, err
	}

	return cfg, nil
}

// EnsureDBDir creates the directory holding the database file
func (c *Config) EnsureDBDir() error {
	if c.DBPath == ":memory:" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.DBPath), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	return nil
}

// loadDotEnv loads the nearest .env file, searching up to five parent
// directories. Missing files are ignored.
func loadDotEnv() {
	wd, err := os.Getwd()
	if err != nil {
		return
	}

	dir := wd
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return // Reached filesystem root
		}
		dir = parent
	}
}

// expandHome replaces a leading ~ with the user's home directory
func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return n, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be a valid boolean: %w", key, err)
	}
	return b, nil
}

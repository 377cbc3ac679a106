package core

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds runtime settings for the server process.
type Config struct {
	Port             string `yaml:"port"`              // HTTP listen port (e.g., "3000")
	SessionKey       string `yaml:"session_key"`       // hex-encoded 64-byte session key
	CookieSecure     bool   `yaml:"cookie_secure"`     // Secure flag on the session cookie
	LogDir           string `yaml:"log_dir"`           // directory for log files; empty logs to stdout only
	DatabaseURL      string `yaml:"database_url"`      // PostgreSQL DSN
	RedisURL         string `yaml:"redis_url"`         // Redis URL; empty disables pool heartbeats
	HashWorkers      int    `yaml:"hash_workers"`      // goroutines dedicated to password hashing
	PBKDF2Iterations int    `yaml:"pbkdf2_iterations"` // KDF rounds, never below MinPBKDF2Iterations
	MigrateOnStart   bool   `yaml:"migrate_on_start"`  // run migrations before serving
	StaticDir        string `yaml:"static_dir"`        // overrides the embedded assets under /static
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:             "3000",
		CookieSecure:     true,
		DatabaseURL:      "postgres://localhost:5432/todo-htmx?sslmode=disable",
		HashWorkers:      defaultHashWorkers(),
		PBKDF2Iterations: MinPBKDF2Iterations,
	}
}

// Load builds Config from defaults, then the YAML file named by CONFIG_FILE
// (if any), then environment variables.
func Load() (Config, error) {
	return LoadWithFile(os.Getenv("CONFIG_FILE"))
}

// LoadWithFile is Load with an explicit YAML path; empty skips the file.
func LoadWithFile(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.Port = firstNonEmpty(os.Getenv("PORT"), cfg.Port)
	cfg.SessionKey = firstNonEmpty(os.Getenv("SESSION_KEY"), os.Getenv("COOKIE_ENCRYPTION_KEY"), cfg.SessionKey)
	cfg.CookieSecure = boolFromEnv("COOKIE_SECURE", cfg.CookieSecure)
	cfg.LogDir = firstNonEmpty(os.Getenv("LOG_DIR"), cfg.LogDir)
	cfg.DatabaseURL = firstNonEmpty(os.Getenv("DATABASE_URL"), os.Getenv("POSTGRES_URL"), cfg.DatabaseURL)
	cfg.RedisURL = firstNonEmpty(os.Getenv("REDIS_URL"), cfg.RedisURL)
	cfg.HashWorkers = intFromEnv("HASH_WORKERS", cfg.HashWorkers)
	cfg.PBKDF2Iterations = intFromEnv("PBKDF2_ITERATIONS", cfg.PBKDF2Iterations)
	cfg.MigrateOnStart = boolFromEnv("MIGRATE_ON_START", cfg.MigrateOnStart)
	cfg.StaticDir = firstNonEmpty(os.Getenv("STATIC_DIR"), cfg.StaticDir)

	if cfg.HashWorkers <= 0 {
		cfg.HashWorkers = 1
	}
	if cfg.PBKDF2Iterations < MinPBKDF2Iterations {
		cfg.PBKDF2Iterations = MinPBKDF2Iterations
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// defaultHashWorkers keeps the pool within [1..4] so hashing never takes
// every core of a shared host.
func defaultHashWorkers() int {
	n := runtime.NumCPU()
	if n < 1 {
		n = 1
	}
	if n > 4 {
		n = 4
	}
	return n
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// boolFromEnv reads a boolean from env var name, falling back to defaultVal when empty or invalid.
func boolFromEnv(name string, defaultVal bool) bool {
	if v := os.Getenv(name); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return defaultVal
}

// intFromEnv reads an int from env var name, falling back to defaultVal when empty or invalid.
func intFromEnv(name string, defaultVal int) int {
	if v := os.Getenv(name); v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return defaultVal
}

/*
config.go - Server configuration

PURPOSE:
  Collects everything cmd/server needs to start: listen port, database
  path, log level, rate limits and CORS origins.

PRECEDENCE (highest first):
  1. Command-line flags (-port, -db, -log-level)
  2. Environment variables
  3. .env file in the working directory (optional)
  4. Defaults below

ENVIRONMENT:
  PORT                  HTTP port (default 8080)
  DATABASE_PATH         SQLite path, ":memory:" allowed (default leave.db)
  LOG_LEVEL             debug | info | warn | error (default info)
  RATE_LIMIT_RPS        requests per second per client (default 20)
  RATE_LIMIT_BURST      burst per client (default 40)
  CORS_ALLOWED_ORIGINS  comma-separated origins
                        (default http://localhost:5173,http://localhost:8080)
*/
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port               int
	DatabasePath       string
	LogLevel           string
	RateLimitRPS       float64
	RateLimitBurst     int
	CORSAllowedOrigins []string
	TrustProxy         bool
}

var defaultOrigins = "http://localhost:5173,http://localhost:8080"

// Load reads .env (if present), the environment and args, in that order
// of increasing precedence. args excludes the program name.
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var problems []string
	cfg := &Config{
		Port:               getEnvInt("PORT", 8080, &problems),
		DatabasePath:       getEnvString("DATABASE_PATH", "leave.db"),
		LogLevel:           getEnvString("LOG_LEVEL", "info"),
		RateLimitRPS:       getEnvFloat("RATE_LIMIT_RPS", 20, &problems),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 40, &problems),
		CORSAllowedOrigins: splitList(getEnvString("CORS_ALLOWED_ORIGINS", defaultOrigins)),
		TrustProxy:         getEnvBool("TRUST_PROXY", false, &problems),
	}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	fs.StringVar(&cfg.DatabasePath, "db", cfg.DatabasePath, "SQLite database path (\":memory:\" for in-memory)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.BoolVar(&cfg.TrustProxy, "trust-proxy", cfg.TrustProxy, "take client addresses from X-Forwarded-For / X-Real-IP")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.validate(problems); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate appends every violation to problems and reports them together.
func (c *Config) validate(problems []string) error {
	if c.Port < 1 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("port %d out of range", c.Port))
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		problems = append(problems, "database path is empty")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("unknown log level %q", c.LogLevel))
	}
	if c.RateLimitRPS <= 0 {
		problems = append(problems, "rate limit must be positive")
	}
	if c.RateLimitBurst < 1 {
		problems = append(problems, "rate limit burst must be at least 1")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Addr is the listen address for net/http.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// getEnvInt reads an integer; a malformed value is recorded in problems.
func getEnvInt(key string, defaultVal int, problems *[]string) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		*problems = append(*problems, fmt.Sprintf("%s: %q is not an integer", key, v))
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64, problems *[]string) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*problems = append(*problems, fmt.Sprintf("%s: %q is not a number", key, v))
		return defaultVal
	}
	return f
}

func getEnvBool(key string, defaultVal bool, problems *[]string) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*problems = append(*problems, fmt.Sprintf("%s: %q is not a boolean", key, v))
		return defaultVal
	}
	return b
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

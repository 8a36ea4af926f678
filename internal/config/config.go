// Package config loads application settings from environment variables.
//
// A .env file in the working directory is loaded first (if present) with
// github.com/joho/godotenv; variables already set in the environment win.
//
// Problems are collected rather than returned one at a time, so a
// misconfigured deployment reports every missing or malformed variable in
// a single error.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/sakif/social-analytics/internal/apperror"
	"github.com/sakif/social-analytics/internal/evalapi"
	"github.com/sakif/social-analytics/internal/fetcher"
	"github.com/sakif/social-analytics/internal/model"
)

// Config is the complete runtime configuration.
type Config struct {
	Port         int
	APIBaseURL   string
	DBPath       string
	StoreSecret  string        // empty disables at-rest encryption
	HTTPTimeout  time.Duration // 0 means no timeout
	FetchWorkers int
	LogLevel     slog.Level
	CORSOrigins  []string

	Credentials model.Credentials
}

// Load reads .env (optional) and then the environment.
func Load() (*Config, error) {
	// A missing .env is normal in production; only a malformed one is an error.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: loading .env: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from any lookup function with the signature of
// os.LookupEnv. Tests pass a map-backed lookup.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	var problems []error

	cfg := &Config{
		Port:         intVar(lookup, "PORT", 8080, &problems),
		APIBaseURL:   stringVar(lookup, "API_BASE_URL", evalapi.DefaultBaseURL),
		DBPath:       stringVar(lookup, "DB_PATH", "data/analytics.db"),
		StoreSecret:  stringVar(lookup, "STORE_SECRET", ""),
		HTTPTimeout:  durationVar(lookup, "HTTP_TIMEOUT", 10*time.Second, &problems),
		FetchWorkers: intVar(lookup, "FETCH_WORKERS", fetcher.DefaultWorkers, &problems),
		LogLevel:     levelVar(lookup, "LOG_LEVEL", slog.LevelInfo, &problems),
		CORSOrigins:  listVar(lookup, "CORS_ORIGINS", []string{"*"}),
		Credentials: model.Credentials{
			Email:          requiredVar(lookup, "REG_EMAIL", &problems),
			Name:           requiredVar(lookup, "REG_NAME", &problems),
			MobileNo:       requiredVar(lookup, "REG_MOBILE", &problems),
			GithubUsername: requiredVar(lookup, "REG_GITHUB", &problems),
			RollNo:         requiredVar(lookup, "REG_ROLL_NO", &problems),
			CollegeName:    requiredVar(lookup, "REG_COLLEGE", &problems),
			AccessCode:     requiredVar(lookup, "REG_ACCESS_CODE", &problems),
		},
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		problems = append(problems, apperror.ValidationFailed("PORT", fmt.Sprintf("PORT must be 1-65535, got %d", cfg.Port)))
	}
	if cfg.FetchWorkers < 1 {
		problems = append(problems, apperror.ValidationFailed("FETCH_WORKERS", "FETCH_WORKERS must be at least 1"))
	}
	if cfg.HTTPTimeout < 0 {
		problems = append(problems, apperror.ValidationFailed("HTTP_TIMEOUT", "HTTP_TIMEOUT must not be negative"))
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("config: %w", errors.Join(problems...))
	}
	return cfg, nil
}

func stringVar(lookup func(string) (string, bool), key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func requiredVar(lookup func(string) (string, bool), key string, problems *[]error) string {
	v, ok := lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		*problems = append(*problems, apperror.ValidationFailed(key, fmt.Sprintf("missing required environment variable: %s", key)))
		return ""
	}
	return v
}

func intVar(lookup func(string) (string, bool), key string, def int, problems *[]error) int {
	v, ok := lookup(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*problems = append(*problems, apperror.ValidationFailed(key, fmt.Sprintf("invalid value for %s: expected integer, got %q", key, v)))
		return def
	}
	return n
}

func durationVar(lookup func(string) (string, bool), key string, def time.Duration, problems *[]error) time.Duration {
	v, ok := lookup(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*problems = append(*problems, apperror.ValidationFailed(key, fmt.Sprintf("invalid value for %s: expected duration like 10s, got %q", key, v)))
		return def
	}
	return d
}

func levelVar(lookup func(string) (string, bool), key string, def slog.Level, problems *[]error) slog.Level {
	v, ok := lookup(key)
	if !ok || v == "" {
		return def
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		*problems = append(*problems, apperror.ValidationFailed(key, fmt.Sprintf("invalid value for %s: %q", key, v)))
		return def
	}
	return level
}

func listVar(lookup func(string) (string, bool), key string, def []string) []string {
	v, ok := lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

var (
	errInvalidPort                = errors.New("config: invalid PORT number")
	errConcurrencyOutOfRange      = errors.New("config: LINK_CHECK_CONCURRENCY must be 1-100")
	errBatchConcurrencyOutOfRange = errors.New("config: BATCH_CONCURRENCY must be 1-20")
	errInvalidTimeout             = errors.New("config: timeouts must be positive")
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Port                 string
	LogLevel             string
	LinkCheckConcurrency int
	BatchConcurrency     int
	SiteDomain           string
	UserAgent            string
	PageTimeout          time.Duration
	LinkTimeout          time.Duration
	ExternalTimeout      time.Duration
	AllowPrivateNetworks bool
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present; variables
// already set in the environment win.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:                 getEnv("PORT", "8080"),
		LogLevel:             getEnv("LOG_LEVEL", "ERROR"),
		LinkCheckConcurrency: getEnvAsInt("LINK_CHECK_CONCURRENCY", 5),
		BatchConcurrency:     getEnvAsInt("BATCH_CONCURRENCY", 2),
		SiteDomain:           getEnv("SITE_DOMAIN", ""),
		UserAgent:            getEnv("USER_AGENT", defaultUserAgent),
		PageTimeout:          getEnvAsDuration("PAGE_TIMEOUT", 15*time.Second),
		LinkTimeout:          getEnvAsDuration("LINK_TIMEOUT", 8*time.Second),
		ExternalTimeout:      getEnvAsDuration("EXTERNAL_TIMEOUT", 12*time.Second),
		AllowPrivateNetworks: getEnvAsBool("ALLOW_PRIVATE_NETWORKS", false),
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("%w: %q", errInvalidPort, c.Port)
	}

	if c.LinkCheckConcurrency < 1 || c.LinkCheckConcurrency > 100 {
		return fmt.Errorf("%w: got %d", errConcurrencyOutOfRange, c.LinkCheckConcurrency)
	}

	if c.BatchConcurrency < 1 || c.BatchConcurrency > 20 {
		return fmt.Errorf("%w: got %d", errBatchConcurrencyOutOfRange, c.BatchConcurrency)
	}

	if c.PageTimeout <= 0 || c.LinkTimeout <= 0 || c.ExternalTimeout <= 0 {
		return errInvalidTimeout
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvAsBool(key string, fallback bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fallback
	}
	return v
}

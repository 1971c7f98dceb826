package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds fetcher, pipeline and storage configuration.
type Config struct {
	BaseURL          string
	UserAgent        string
	Timeout          time.Duration
	IngestTimeout    time.Duration
	RequestsPerSec   float64 // 0 disables throttling
	PerPage          int
	MaxBodySize      int
	RespectRobotsTxt bool
	DBPath           string
	BookCacheSize    int
	DefaultShelf     string
	OutputFile       string
	OutputFormat     string // csv, json, or dual
	MetricsAddr      string
	Verbose          bool
}

// DefaultConfig returns defaults for the public Goodreads site.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:          "https://www.goodreads.com",
		UserAgent:        "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		Timeout:          30 * time.Second,
		IngestTimeout:    2 * time.Minute,
		RequestsPerSec:   1,
		PerPage:          1000,
		MaxBodySize:      32 << 20,
		RespectRobotsTxt: false,
		DBPath:           "data/shelves.db",
		BookCacheSize:    4096,
		DefaultShelf:     "",
		OutputFile:       "output/books.csv",
		OutputFormat:     "csv",
		MetricsAddr:      "",
		Verbose:          false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.IngestTimeout <= 0 {
		return fmt.Errorf("ingest timeout must be positive")
	}
	if c.RequestsPerSec < 0 {
		return fmt.Errorf("requests per second cannot be negative")
	}
	if c.PerPage <= 0 {
		return fmt.Errorf("per page must be positive")
	}
	if c.MaxBodySize < 0 {
		return fmt.Errorf("max body size cannot be negative")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db path cannot be empty")
	}
	if c.BookCacheSize <= 0 {
		return fmt.Errorf("book cache size must be positive")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}

	return nil
}

// EnvString returns the trimmed value of key when it is set and non-empty.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses key as an integer. ok is false when the variable is unset.
func EnvInt(key string) (int, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return n, true, nil
}

// EnvDuration parses key with time.ParseDuration. ok is false when the variable is unset.
func EnvDuration(key string) (time.Duration, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return d, true, nil
}

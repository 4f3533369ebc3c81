// Package config loads refpix settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/ukaji3/refpix-go/pkg/refpix/parser"
	"github.com/ukaji3/refpix-go/pkg/refpix/store"
	"github.com/ukaji3/refpix-go/pkg/refpix/upload"
)

// DefaultLocalRoot is where the local store writes when no endpoint is set.
const DefaultLocalRoot = "uploads"

// Config holds every tunable of a run and of the HTTP server.
type Config struct {
	StartRow    int
	PhotoColumn string
	RefColumn   string
	// Sheet is the sheet to read; empty selects the active sheet.
	Sheet string

	StoreKind      string
	Endpoint       string
	Username       string
	Password       string
	KeyFile        string
	KnownHostsFile string
	BasePath       string
	Bucket         string
	Region         string

	MaxRetries      int
	RetryBackoff    time.Duration
	TransferTimeout time.Duration
	Workers         int
	// RateLimit is transfers per second; zero is unlimited.
	RateLimit float64
	// RunTimeout bounds a whole run; zero is unbounded.
	RunTimeout time.Duration

	Env       string
	Addr      string
	PublicURL string
}

// Default returns the configuration used when no variable is set.
func Default() *Config {
	return &Config{
		StartRow:        4,
		PhotoColumn:     "H",
		RefColumn:       "A",
		StoreKind:       store.KindLocal,
		BasePath:        "images/products",
		MaxRetries:      3,
		RetryBackoff:    500 * time.Millisecond,
		TransferTimeout: 300 * time.Second,
		Workers:         4,
		Env:             "development",
		Addr:            ":8080",
	}
}

// Load reads the given .env files (".env" when none are named) and then the
// REFPIX_* environment variables. Variables already set in the environment
// win over .env values. Missing .env files are not an error.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Default()
	var err error

	if cfg.StartRow, err = getEnvAsInt("REFPIX_START_ROW", cfg.StartRow); err != nil {
		return nil, err
	}
	cfg.PhotoColumn = getEnv("REFPIX_PHOTO_COLUMN", cfg.PhotoColumn)
	cfg.RefColumn = getEnv("REFPIX_REF_COLUMN", cfg.RefColumn)
	cfg.Sheet = getEnv("REFPIX_SHEET", cfg.Sheet)

	cfg.StoreKind = strings.ToLower(getEnv("REFPIX_STORE", cfg.StoreKind))
	cfg.Endpoint = getEnv("REFPIX_ENDPOINT", cfg.Endpoint)
	cfg.Username = getEnv("REFPIX_USERNAME", cfg.Username)
	cfg.Password = getEnv("REFPIX_PASSWORD", cfg.Password)
	cfg.KeyFile = getEnv("REFPIX_KEY_FILE", cfg.KeyFile)
	cfg.KnownHostsFile = getEnv("REFPIX_KNOWN_HOSTS", cfg.KnownHostsFile)
	cfg.BasePath = getEnv("REFPIX_BASE_PATH", cfg.BasePath)
	cfg.Bucket = getEnv("REFPIX_BUCKET", cfg.Bucket)
	cfg.Region = getEnv("REFPIX_REGION", cfg.Region)

	if cfg.MaxRetries, err = getEnvAsInt("REFPIX_MAX_RETRIES", cfg.MaxRetries); err != nil {
		return nil, err
	}
	if cfg.RetryBackoff, err = getEnvAsDuration("REFPIX_RETRY_BACKOFF", cfg.RetryBackoff); err != nil {
		return nil, err
	}
	if cfg.TransferTimeout, err = getEnvAsDuration("REFPIX_TRANSFER_TIMEOUT", cfg.TransferTimeout); err != nil {
		return nil, err
	}
	if cfg.Workers, err = getEnvAsInt("REFPIX_WORKERS", cfg.Workers); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = getEnvAsFloat("REFPIX_RATE_LIMIT", cfg.RateLimit); err != nil {
		return nil, err
	}
	if cfg.RunTimeout, err = getEnvAsDuration("REFPIX_RUN_TIMEOUT", cfg.RunTimeout); err != nil {
		return nil, err
	}

	cfg.Env = getEnv("REFPIX_ENV", cfg.Env)
	cfg.Addr = getEnv("REFPIX_ADDR", cfg.Addr)
	cfg.PublicURL = getEnv("REFPIX_PUBLIC_URL", cfg.PublicURL)

	return cfg, nil
}

// Validate reports the first setting that cannot drive a run.
func (c *Config) Validate() error {
	if c.StartRow < 1 {
		return fmt.Errorf("start row must be at least 1, got %d", c.StartRow)
	}
	if _, err := parser.ColumnIndex(c.PhotoColumn); err != nil {
		return fmt.Errorf("invalid photo column %q: %w", c.PhotoColumn, err)
	}
	if _, err := parser.ColumnIndex(c.RefColumn); err != nil {
		return fmt.Errorf("invalid ref column %q: %w", c.RefColumn, err)
	}
	if !slices.Contains(store.Kinds, c.StoreKind) {
		return fmt.Errorf("unknown store %q (must be one of %s)", c.StoreKind, strings.Join(store.Kinds, ", "))
	}
	switch c.StoreKind {
	case store.KindS3:
		if c.Bucket == "" {
			return errors.New("REFPIX_BUCKET is required for the s3 store")
		}
	case store.KindFTP, store.KindSFTP:
		if c.Endpoint == "" {
			return fmt.Errorf("REFPIX_ENDPOINT is required for the %s store", c.StoreKind)
		}
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", c.MaxRetries)
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff must not be negative, got %s", c.RetryBackoff)
	}
	if c.TransferTimeout <= 0 {
		return fmt.Errorf("transfer timeout must be positive, got %s", c.TransferTimeout)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative, got %g", c.RateLimit)
	}
	if c.RunTimeout < 0 {
		return fmt.Errorf("run timeout must not be negative, got %s", c.RunTimeout)
	}
	return nil
}

// StoreConfig returns the settings of the selected store backend.
func (c *Config) StoreConfig() store.Config {
	endpoint := c.Endpoint
	if c.StoreKind == store.KindLocal && endpoint == "" {
		endpoint = DefaultLocalRoot
	}
	return store.Config{
		Kind:           c.StoreKind,
		Endpoint:       endpoint,
		Username:       c.Username,
		Password:       c.Password,
		KeyFile:        c.KeyFile,
		KnownHostsFile: c.KnownHostsFile,
		Bucket:         c.Bucket,
		Region:         c.Region,
		Timeout:        min(c.TransferTimeout, 30*time.Second),
	}
}

// UploadConfig returns the upload pipeline settings.
func (c *Config) UploadConfig() upload.Config {
	return upload.Config{
		BasePath:  c.BasePath,
		Workers:   c.Workers,
		RateLimit: c.RateLimit,
		Retry: upload.RetryPolicy{
			MaxRetries:     c.MaxRetries,
			Backoff:        c.RetryBackoff,
			AttemptTimeout: c.TransferTimeout,
		},
		PublicURL: c.PublicURL,
	}
}

func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: expected an integer, got '%s'", key, valueStr)
	}
	return value, nil
}

func getEnvAsFloat(key string, defaultValue float64) (float64, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: expected a number, got '%s'", key, valueStr)
	}
	return value, nil
}

// getEnvAsDuration accepts Go durations ("500ms", "5m") or bare seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}

	if secs, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: expected a duration, got '%s'", key, valueStr)
	}
	return value, nil
}

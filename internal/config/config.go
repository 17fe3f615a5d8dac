// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir            string // Base directory for the journal database (always absolute)
	BinanceAPIKey      string
	BinanceAPISecret   string
	BinanceTestnet     bool
	TotalFund          float64 // Quote-currency capital allocated across the selection
	LogLevel           string
	Version            string
	Port               int
	DevMode            bool
	OrderConcurrency   int
	HistoryConcurrency int
	Line               LineConfig
	Model              ModelConfig
	Backup             BackupConfig
	Strategy           *Strategy
}

// LineConfig holds notification sink settings. An empty token disables notifications.
type LineConfig struct {
	Token      string
	PictureURL string
	Silent     bool
}

// ModelConfig locates the ranking model artifact.
// Path is used when set; otherwise the artifact is downloaded from Bucket/Key.
type ModelConfig struct {
	Path      string
	Bucket    string
	Key       string
	Endpoint  string // S3-compatible endpoint, empty for AWS
	Region    string
	AccessKey string
	SecretKey string
	CacheDir  string
}

// BackupConfig controls journal backups. An empty Bucket disables them.
// Endpoint and credentials default to the model store's.
type BackupConfig struct {
	Bucket        string
	Prefix        string
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	Schedule      string
	RetentionDays int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("TRADER_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	strategy := DefaultStrategy()
	if path := getEnv("STRATEGY_FILE", ""); path != "" {
		strategy, err = LoadStrategy(path)
		if err != nil {
			return nil, err
		}
	}
	// Env overrides for the schedules and report offset
	strategy.RebalanceSchedule = getEnv("REBALANCE_SCHEDULE", strategy.RebalanceSchedule)
	strategy.DailyReportSchedule = getEnv("DAILY_REPORT_SCHEDULE", strategy.DailyReportSchedule)
	strategy.TimezoneOffsetHours = getEnvAsInt("TIMEZONE_OFFSET_HOURS", strategy.TimezoneOffsetHours)

	cfg := &Config{
		DataDir:            absDataDir,
		BinanceAPIKey:      getEnv("BINANCE_API_KEY", ""),
		BinanceAPISecret:   getEnv("BINANCE_API_SECRET", ""),
		BinanceTestnet:     getEnvAsBool("BINANCE_TESTNET", false),
		TotalFund:          getEnvAsFloat("TOTAL_FUND", 0),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Version:            getEnv("VERSION", "dev"),
		Port:               getEnvAsInt("GO_PORT", 8001),
		DevMode:            getEnvAsBool("DEV_MODE", false),
		OrderConcurrency:   getEnvAsInt("ORDER_CONCURRENCY", 1),
		HistoryConcurrency: getEnvAsInt("HISTORY_CONCURRENCY", 2),
		Line: LineConfig{
			Token:      getEnv("LINE_NOTIFY_TOKEN", ""),
			PictureURL: getEnv("LINE_PICTURE_URL", ""),
			Silent:     getEnvAsBool("LINE_SILENT", false),
		},
		Model: ModelConfig{
			Path:      getEnv("MODEL_PATH", ""),
			Bucket:    getEnv("MODEL_BUCKET", ""),
			Key:       getEnv("MODEL_KEY", ""),
			Endpoint:  getEnv("MODEL_S3_ENDPOINT", ""),
			Region:    getEnv("MODEL_S3_REGION", "us-east-1"),
			AccessKey: getEnv("MODEL_S3_ACCESS_KEY", ""),
			SecretKey: getEnv("MODEL_S3_SECRET_KEY", ""),
			CacheDir:  filepath.Join(absDataDir, "models"),
		},
		Strategy: strategy,
	}
	cfg.Backup = BackupConfig{
		Bucket:        getEnv("BACKUP_BUCKET", ""),
		Prefix:        getEnv("BACKUP_PREFIX", "journal"),
		Endpoint:      getEnv("BACKUP_S3_ENDPOINT", cfg.Model.Endpoint),
		Region:        getEnv("BACKUP_S3_REGION", cfg.Model.Region),
		AccessKey:     getEnv("BACKUP_S3_ACCESS_KEY", cfg.Model.AccessKey),
		SecretKey:     getEnv("BACKUP_S3_SECRET_KEY", cfg.Model.SecretKey),
		Schedule:      getEnv("BACKUP_SCHEDULE", "0 5 * * *"),
		RetentionDays: getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.BinanceAPIKey == "" || c.BinanceAPISecret == "" {
		return fmt.Errorf("BINANCE_API_KEY and BINANCE_API_SECRET are required")
	}
	if c.TotalFund <= 0 {
		return fmt.Errorf("TOTAL_FUND must be positive, got %v", c.TotalFund)
	}
	if c.Model.Path == "" && (c.Model.Bucket == "" || c.Model.Key == "") {
		return fmt.Errorf("either MODEL_PATH or MODEL_BUCKET and MODEL_KEY must be set")
	}
	if c.OrderConcurrency < 1 {
		return fmt.Errorf("ORDER_CONCURRENCY must be at least 1, got %d", c.OrderConcurrency)
	}
	if c.Backup.Bucket != "" && c.Backup.RetentionDays < 0 {
		return fmt.Errorf("BACKUP_RETENTION_DAYS must not be negative, got %d", c.Backup.RetentionDays)
	}
	if c.HistoryConcurrency < 1 {
		return fmt.Errorf("HISTORY_CONCURRENCY must be at least 1, got %d", c.HistoryConcurrency)
	}
	if c.Strategy == nil {
		return fmt.Errorf("strategy is not configured")
	}
	return c.Strategy.Validate()
}

// BackupStagingDir is where backup archives are assembled before upload
func (c *Config) BackupStagingDir() string {
	return filepath.Join(c.DataDir, "backup-staging")
}

// JournalPath returns the journal database file path
func (c *Config) JournalPath() string {
	return filepath.Join(c.DataDir, "journal.db")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

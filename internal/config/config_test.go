package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("TRADER_DATA_DIR", t.TempDir())
	t.Setenv("BINANCE_API_KEY", "key")
	t.Setenv("BINANCE_API_SECRET", "secret")
	t.Setenv("TOTAL_FUND", "900")
	t.Setenv("MODEL_PATH", "/models/ranker.msgpack")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(cfg.DataDir))
	assert.Equal(t, 900.0, cfg.TotalFund)
	assert.Equal(t, 8001, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 1, cfg.OrderConcurrency)
	assert.Equal(t, 2, cfg.HistoryConcurrency)
	assert.False(t, cfg.BinanceTestnet)
	assert.Equal(t, "us-east-1", cfg.Model.Region)
	assert.Equal(t, filepath.Join(cfg.DataDir, "models"), cfg.Model.CacheDir)
	assert.Equal(t, filepath.Join(cfg.DataDir, "journal.db"), cfg.JournalPath())

	require.NotNil(t, cfg.Strategy)
	assert.Equal(t, DefaultUniverse, cfg.Strategy.Universe)
	assert.Equal(t, 3, cfg.Strategy.TopK)
	assert.Equal(t, "0 * * * *", cfg.Strategy.RebalanceSchedule)
	assert.Equal(t, "55 23 * * *", cfg.Strategy.DailyReportSchedule)
	assert.Equal(t, 8, cfg.Strategy.TimezoneOffsetHours)
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GO_PORT", "9100")
	t.Setenv("BINANCE_TESTNET", "true")
	t.Setenv("ORDER_CONCURRENCY", "4")
	t.Setenv("HISTORY_CONCURRENCY", "6")
	t.Setenv("REBALANCE_SCHEDULE", "*/15 * * * *")
	t.Setenv("TIMEZONE_OFFSET_HOURS", "0")
	t.Setenv("LINE_NOTIFY_TOKEN", "tok")
	t.Setenv("LINE_SILENT", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.True(t, cfg.BinanceTestnet)
	assert.Equal(t, 4, cfg.OrderConcurrency)
	assert.Equal(t, 6, cfg.HistoryConcurrency)
	assert.Equal(t, "*/15 * * * *", cfg.Strategy.RebalanceSchedule)
	assert.Equal(t, 0, cfg.Strategy.TimezoneOffsetHours)
	assert.Equal(t, "tok", cfg.Line.Token)
	assert.True(t, cfg.Line.Silent)
}

func TestLoad_MissingCredentials(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BINANCE_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BINANCE_API_KEY")
}

func TestLoad_NonPositiveFund(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TOTAL_FUND", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOTAL_FUND")
}

func TestLoad_ModelLocationRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MODEL_PATH", "")
	t.Setenv("MODEL_BUCKET", "models")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("MODEL_KEY", "ranker.msgpack")
	_, err = Load()
	assert.NoError(t, err)
}

func TestLoad_StrategyFile(t *testing.T) {
	setRequiredEnv(t)
	path := filepath.Join(t.TempDir(), "strategy.yaml")
	content := "universe: [BTCUSDT, ETHUSDT, SOLUSDT]\ntop_k: 2\ncandle_limit: 300\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("STRATEGY_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}, cfg.Strategy.Universe)
	assert.Equal(t, 2, cfg.Strategy.TopK)
	assert.Equal(t, 300, cfg.Strategy.CandleLimit)
	// Untouched keys keep defaults
	assert.Equal(t, "1m", cfg.Strategy.Interval)
}

func TestStrategy_Validate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(s *Strategy)
		errMsg string
	}{
		{"empty universe", func(s *Strategy) { s.Universe = nil }, "universe must not be empty"},
		{"duplicate symbol", func(s *Strategy) { s.Universe = []string{"BTCUSDT", "BTCUSDT"}; s.TopK = 1 }, "duplicate"},
		{"top_k zero", func(s *Strategy) { s.TopK = 0 }, "top_k"},
		{"top_k too large", func(s *Strategy) { s.TopK = 11 }, "top_k"},
		{"bad offset", func(s *Strategy) { s.TimezoneOffsetHours = 20 }, "timezone_offset_hours"},
		{"no interval", func(s *Strategy) { s.Interval = "" }, "interval"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := DefaultStrategy()
			tc.mutate(s)
			err := s.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}

	assert.NoError(t, DefaultStrategy().Validate())
}

func TestLoadStrategy_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("universe: [unclosed"), 0644))

	_, err := LoadStrategy(path)
	assert.Error(t, err)
}

func TestLoad_Backup(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MODEL_S3_ENDPOINT", "http://minio:9000")
	t.Setenv("MODEL_S3_ACCESS_KEY", "model-key")
	t.Setenv("BACKUP_BUCKET", "journal-backups")
	t.Setenv("BACKUP_S3_ACCESS_KEY", "backup-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "journal-backups", cfg.Backup.Bucket)
	assert.Equal(t, "journal", cfg.Backup.Prefix)
	assert.Equal(t, "http://minio:9000", cfg.Backup.Endpoint)
	assert.Equal(t, "backup-key", cfg.Backup.AccessKey)
	assert.Equal(t, "0 5 * * *", cfg.Backup.Schedule)
	assert.Equal(t, 30, cfg.Backup.RetentionDays)
	assert.Equal(t, filepath.Join(cfg.DataDir, "backup-staging"), cfg.BackupStagingDir())

	t.Setenv("BACKUP_RETENTION_DAYS", "-1")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoad_HistoryConcurrencyMustBePositive(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HISTORY_CONCURRENCY", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HISTORY_CONCURRENCY")
}

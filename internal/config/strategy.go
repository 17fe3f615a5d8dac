package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultUniverse is the traded symbol set when no strategy file is given
var DefaultUniverse = []string{
	"BTCUSDT", "ETHUSDT", "BNBUSDT", "XRPUSDT", "DOGEUSDT",
	"ADAUSDT", "MATICUSDT", "DOTUSDT", "LTCUSDT", "1000SHIBUSDT",
}

// Strategy holds the rebalancing parameters that are usually kept in a YAML file
type Strategy struct {
	Universe            []string `yaml:"universe"`
	TopK                int      `yaml:"top_k"`
	Interval            string   `yaml:"interval"`
	CandleLimit         int      `yaml:"candle_limit"`
	RebalanceSchedule   string   `yaml:"rebalance_schedule"`
	DailyReportSchedule string   `yaml:"daily_report_schedule"`
	TimezoneOffsetHours int      `yaml:"timezone_offset_hours"`
	HistoryPageLimit    int      `yaml:"history_page_limit"`
}

// DefaultStrategy returns the built-in strategy
func DefaultStrategy() *Strategy {
	return &Strategy{
		Universe:            append([]string(nil), DefaultUniverse...),
		TopK:                3,
		Interval:            "1m",
		CandleLimit:         600,
		RebalanceSchedule:   "0 * * * *",
		DailyReportSchedule: "55 23 * * *",
		TimezoneOffsetHours: 8,
		HistoryPageLimit:    1000,
	}
}

// LoadStrategy reads a YAML strategy file. Keys absent from the file keep their defaults.
func LoadStrategy(path string) (*Strategy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read strategy file %s: %w", path, err)
	}

	s := DefaultStrategy()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse strategy file %s: %w", path, err)
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid strategy file %s: %w", path, err)
	}
	return s, nil
}

// Validate checks the strategy for internally consistent values
func (s *Strategy) Validate() error {
	if len(s.Universe) == 0 {
		return fmt.Errorf("universe must not be empty")
	}
	seen := make(map[string]bool, len(s.Universe))
	for _, symbol := range s.Universe {
		if symbol == "" {
			return fmt.Errorf("universe contains an empty symbol")
		}
		if seen[symbol] {
			return fmt.Errorf("universe contains duplicate symbol %s", symbol)
		}
		seen[symbol] = true
	}
	if s.TopK < 1 || s.TopK > len(s.Universe) {
		return fmt.Errorf("top_k must be between 1 and %d, got %d", len(s.Universe), s.TopK)
	}
	if s.CandleLimit < 1 {
		return fmt.Errorf("candle_limit must be positive, got %d", s.CandleLimit)
	}
	if s.Interval == "" {
		return fmt.Errorf("interval must not be empty")
	}
	if s.TimezoneOffsetHours < -12 || s.TimezoneOffsetHours > 14 {
		return fmt.Errorf("timezone_offset_hours out of range: %d", s.TimezoneOffsetHours)
	}
	if s.HistoryPageLimit < 1 {
		return fmt.Errorf("history_page_limit must be positive, got %d", s.HistoryPageLimit)
	}
	return nil
}

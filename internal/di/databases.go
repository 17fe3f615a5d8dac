package di

import (
	"fmt"

	"github.com/aristath/sentinel-futures/internal/config"
	"github.com/aristath/sentinel-futures/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens the journal database and applies its schema
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// journal.db - append-only record of rebalance runs and daily reports
	journalDB, err := database.New(database.Config{
		Path:    cfg.JournalPath(),
		Profile: database.ProfileLedger,
		Name:    "journal",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize journal database: %w", err)
	}

	if err := journalDB.Migrate(); err != nil {
		journalDB.Close()
		return nil, fmt.Errorf("failed to migrate journal database: %w", err)
	}
	container.JournalDB = journalDB

	log.Info().Str("path", journalDB.Path()).Msg("Journal database ready")
	return container, nil
}

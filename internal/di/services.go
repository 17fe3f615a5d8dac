package di

import (
	"context"
	"fmt"

	"github.com/aristath/sentinel-futures/internal/clients/binance"
	"github.com/aristath/sentinel-futures/internal/clients/linenotify"
	"github.com/aristath/sentinel-futures/internal/config"
	"github.com/aristath/sentinel-futures/internal/domain"
	"github.com/aristath/sentinel-futures/internal/modules/features"
	"github.com/aristath/sentinel-futures/internal/modules/history"
	"github.com/aristath/sentinel-futures/internal/modules/journal"
	"github.com/aristath/sentinel-futures/internal/modules/rebalancing"
	"github.com/aristath/sentinel-futures/internal/modules/reporting"
	"github.com/aristath/sentinel-futures/internal/modules/scoring"
	"github.com/aristath/sentinel-futures/internal/modules/trading"
	"github.com/aristath/sentinel-futures/internal/reliability"
	"github.com/rs/zerolog"
)

// InitializeServices creates clients, repositories and services
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}
	strategy := cfg.Strategy

	// Clients
	container.Exchange = binance.NewClient(binance.Config{
		APIKey:    cfg.BinanceAPIKey,
		APISecret: cfg.BinanceAPISecret,
		Testnet:   cfg.BinanceTestnet,
	}, log)
	container.Notifier = linenotify.NewClient(cfg.Line.Token, log)
	container.Notifier.SetSilent(cfg.Line.Silent)

	// A disabled notifier stays a nil interface so services skip delivery
	var notifier domain.Notifier
	if container.Notifier.Enabled() {
		notifier = container.Notifier
	} else {
		log.Warn().Msg("LINE_NOTIFY_TOKEN not set, notifications disabled")
	}

	// Repositories
	container.JournalRepo = journal.NewRepository(container.JournalDB.Conn(), log)

	// Ranking model
	source, err := modelSource(ctx, cfg.Model, log)
	if err != nil {
		return err
	}
	container.ModelScorer = scoring.NewModelScorer(source, log)
	container.Ranker = scoring.NewRanker(container.ModelScorer, strategy.TopK, log)
	container.FeatureBuilder = features.NewBuilder(log)

	// Execution and history
	container.Executor = trading.NewExecutor(container.Exchange, cfg.OrderConcurrency, log)
	container.Reconciler = history.NewReconciler(container.Exchange, cfg.HistoryConcurrency, log)

	container.RebalancingService = rebalancing.NewService(
		container.Exchange,
		container.FeatureBuilder,
		container.Ranker,
		container.Executor,
		notifier,
		container.JournalRepo,
		rebalancing.Config{
			Universe:    strategy.Universe,
			Interval:    strategy.Interval,
			CandleLimit: strategy.CandleLimit,
			TotalFund:   cfg.TotalFund,
			PictureURL:  cfg.Line.PictureURL,
		},
		log,
	)

	container.ReportingService = reporting.NewService(
		container.Reconciler,
		container.Exchange,
		notifier,
		container.JournalRepo,
		reporting.Config{
			Universe:    strategy.Universe,
			OffsetHours: strategy.TimezoneOffsetHours,
			PageLimit:   strategy.HistoryPageLimit,
			PictureURL:  cfg.Line.PictureURL,
		},
		log,
	)

	if cfg.Backup.Bucket != "" {
		store, err := reliability.NewS3Store(ctx, reliability.S3Config{
			Bucket:    cfg.Backup.Bucket,
			Prefix:    cfg.Backup.Prefix,
			Endpoint:  cfg.Backup.Endpoint,
			Region:    cfg.Backup.Region,
			AccessKey: cfg.Backup.AccessKey,
			SecretKey: cfg.Backup.SecretKey,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to initialize backup store: %w", err)
		}
		container.BackupService = reliability.NewBackupService(
			container.JournalDB, store, cfg.BackupStagingDir(), cfg.Version, log,
		)
	}

	log.Info().
		Strs("universe", strategy.Universe).
		Int("top_k", container.Ranker.K()).
		Float64("total_fund", cfg.TotalFund).
		Bool("testnet", cfg.BinanceTestnet).
		Msg("Services initialized")

	return nil
}

// modelSource prefers a local artifact path and falls back to S3-compatible storage
func modelSource(ctx context.Context, cfg config.ModelConfig, log zerolog.Logger) (scoring.ArtifactSource, error) {
	if cfg.Path != "" {
		return scoring.FileSource{Path: cfg.Path}, nil
	}

	src, err := scoring.NewS3Source(ctx, scoring.S3Config{
		Bucket:    cfg.Bucket,
		Key:       cfg.Key,
		Endpoint:  cfg.Endpoint,
		Region:    cfg.Region,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		CacheDir:  cfg.CacheDir,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize model source: %w", err)
	}
	return src, nil
}

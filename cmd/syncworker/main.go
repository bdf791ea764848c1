// The syncworker runs reconciliation on its own, for deployments where
// the assistant process must stay responsive on very low-end hardware.
// It shares the SQLite file with the assistant; WAL keeps the two
// processes from blocking each other.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"

	"github.com/gramseva/swasthya-sahayak/internal/repository/sqlite"
	syncpkg "github.com/gramseva/swasthya-sahayak/internal/sync"
	"github.com/gramseva/swasthya-sahayak/pkg/logger"
	"github.com/gramseva/swasthya-sahayak/pkg/metrics"
	"github.com/gramseva/swasthya-sahayak/pkg/validator"
)

type workerConfig struct {
	DatabasePath     string        `envconfig:"DATABASE_PATH" default:"sahayak.db"`
	RemoteURL        string        `envconfig:"REMOTE_URL" required:"true"`
	Interval         time.Duration `envconfig:"SYNC_INTERVAL" default:"15m"`
	BatchSize        int           `envconfig:"BATCH_SIZE" default:"50"`
	BatchTimeout     time.Duration `envconfig:"BATCH_TIMEOUT" default:"30s"`
	RetryCeiling     int           `envconfig:"RETRY_CEILING" default:"5"`
	BatchesPerSecond float64       `envconfig:"BATCHES_PER_SECOND" default:"1"`
}

func main() {
	var cfg workerConfig
	if err := envconfig.Process("sahayak", &cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to load worker configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := sqlite.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open local store")
	}
	defer db.Close()

	base := sqlite.NewBaseRepository(db)
	applier := syncpkg.NewApplier(
		sqlite.NewFacilityRepository(base),
		sqlite.NewEmergencyRepository(base),
		sqlite.NewSchemeRepository(base),
		sqlite.NewProfileRepository(base),
		sqlite.NewCaseRepository(base),
		sqlite.NewReminderRepository(base),
		sqlite.NewVaccinationRepository(base),
		validator.New(),
	)

	remoteClient := syncpkg.NewClient(cfg.RemoteURL, cfg.BatchTimeout, cfg.BatchesPerSecond, appLogger)
	syncManager := syncpkg.NewManager(
		sqlite.NewOutboxRepository(base),
		sqlite.NewSyncStateRepository(base),
		applier,
		remoteClient,
		syncpkg.Config{
			BatchSize:    cfg.BatchSize,
			Interval:     cfg.Interval,
			BatchTimeout: cfg.BatchTimeout,
			RetryCeiling: cfg.RetryCeiling,
		},
		appLogger,
		metrics.NewMetrics("sahayak", "syncworker"),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		cancel()
	}()

	syncManager.Start(ctx)
}

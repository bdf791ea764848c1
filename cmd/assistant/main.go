package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gramseva/swasthya-sahayak/internal/config"
	"github.com/gramseva/swasthya-sahayak/internal/handler/status"
	"github.com/gramseva/swasthya-sahayak/internal/repository/sqlite"
	"github.com/gramseva/swasthya-sahayak/internal/router"
	"github.com/gramseva/swasthya-sahayak/internal/service/command"
	"github.com/gramseva/swasthya-sahayak/internal/service/eligibility"
	"github.com/gramseva/swasthya-sahayak/internal/service/facility"
	"github.com/gramseva/swasthya-sahayak/internal/service/profile"
	"github.com/gramseva/swasthya-sahayak/internal/service/scheduler"
	syncpkg "github.com/gramseva/swasthya-sahayak/internal/sync"
	"github.com/gramseva/swasthya-sahayak/pkg/logger"
	"github.com/gramseva/swasthya-sahayak/pkg/metrics"
	"github.com/gramseva/swasthya-sahayak/pkg/validator"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := sqlite.NewDB(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open local store")
	}
	defer db.Close()

	base := sqlite.NewBaseRepository(db)
	facilityRepo := sqlite.NewFacilityRepository(base)
	emergencyRepo := sqlite.NewEmergencyRepository(base)
	schemeRepo := sqlite.NewSchemeRepository(base)
	profileRepo := sqlite.NewProfileRepository(base)
	caseRepo := sqlite.NewCaseRepository(base)
	reminderRepo := sqlite.NewReminderRepository(base)
	vaccinationRepo := sqlite.NewVaccinationRepository(base)
	outboxRepo := sqlite.NewOutboxRepository(base)
	syncStateRepo := sqlite.NewSyncStateRepository(base)

	validate := validator.New()
	appMetrics := metrics.NewMetrics("sahayak", "core")

	facilitySvc := facility.NewService(facilityRepo, emergencyRepo, cfg.Cache.FacilityTTL, appLogger)
	eligibilitySvc := eligibility.NewService(schemeRepo, cfg.Cache.SchemeTTL, appLogger)
	profileSvc := profile.NewService(profileRepo, validate, appLogger)
	schedulerSvc := scheduler.NewService(caseRepo, reminderRepo, vaccinationRepo, validate, appLogger)

	applier := syncpkg.NewApplier(
		facilityRepo, emergencyRepo, schemeRepo,
		profileRepo, caseRepo, reminderRepo, vaccinationRepo, validate,
	)
	remoteClient := syncpkg.NewClient(
		cfg.Sync.RemoteURL, cfg.Sync.BatchTimeout, cfg.Sync.BatchesPerSecond, appLogger)
	syncManager := syncpkg.NewManager(outboxRepo, syncStateRepo, applier, remoteClient, syncpkg.Config{
		BatchSize:    cfg.Sync.BatchSize,
		Interval:     cfg.Sync.Interval,
		BatchTimeout: cfg.Sync.BatchTimeout,
		RetryCeiling: cfg.Sync.RetryCeiling,
	}, appLogger, appMetrics)
	syncManager.OnReferenceApplied(facilitySvc.InvalidateCache)
	syncManager.OnReferenceApplied(eligibilitySvc.InvalidateCache)

	dispatcher := command.NewDispatcher(facilitySvc, eligibilitySvc, schedulerSvc, profileSvc, appLogger)

	statusHandler := status.NewHandler(syncManager, dispatcher, appLogger)
	engine := router.NewRouter(statusHandler, appLogger).Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go syncManager.Start(ctx)

	srv := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port),
		Handler: engine,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("status server failed")
		}
	}()
	appLogger.Info("assistant started", "port", cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(err, "status server shutdown failed")
	}
}

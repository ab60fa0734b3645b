package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	"github.com/statusdeck/statusdeck/internal/bus"
	"github.com/statusdeck/statusdeck/internal/config"
	"github.com/statusdeck/statusdeck/internal/database"
	"github.com/statusdeck/statusdeck/internal/engine"
	"github.com/statusdeck/statusdeck/internal/jobs"
)

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading it (this is fine if using environment variables): %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting statusdeck monitoring engine",
		zap.Duration("dispatch_interval", cfg.DispatchInterval),
		zap.Int("max_concurrent_probes", cfg.MaxConcurrentProbes),
		zap.Int("resolve_confirmations", cfg.ResolveConfirmations))

	db, err := database.Connect(cfg.DatabaseURL, gormlogger.Warn)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("failed to run database migrations", zap.Error(err))
	}

	busConn, err := bus.Connect(cfg.NATSURL, logger.Named("bus"))
	if err != nil {
		logger.Fatal("failed to connect to event bus", zap.Error(err))
	}
	defer busConn.Close()

	services := database.NewServiceStore(db)
	monitors := database.NewMonitorStore(db)
	results := database.NewResultStore(db)
	incidents := database.NewIncidentStore(db)

	lifecycle := engine.NewLifecycleManager(incidents, busConn, cfg.ResolveConfirmations, logger.Named("incidents"))
	aggregator := engine.NewAggregator(services, monitors, results, logger.Named("aggregator"))
	eng := engine.NewEngine(results, incidents, lifecycle, aggregator, busConn, logger.Named("engine"))
	scheduler := engine.NewScheduler(monitors, eng, cfg.DispatchInterval, cfg.MaxConcurrentProbes, logger.Named("scheduler"))

	if err := scheduler.BindControl(busConn); err != nil {
		logger.Fatal("failed to subscribe to monitor control events", zap.Error(err))
	}

	retention := jobs.NewResultRetention(results, cfg.ResultRetentionDays, cfg.RetentionSchedule, logger.Named("retention"))
	if err := retention.Start(); err != nil {
		logger.Fatal("failed to start result retention", zap.Error(err))
	}
	defer retention.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	// Run blocks until the context is canceled and in-flight probes drain.
	scheduler.Run(ctx)

	logger.Info("shutdown complete")
}

// newLogger builds the process logger. json selects the structured
// production encoder, anything else the human-readable console encoder.
func newLogger(format string) (*zap.Logger, error) {
	if format == "json" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

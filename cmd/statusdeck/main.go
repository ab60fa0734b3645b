package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	"github.com/statusdeck/statusdeck/internal/bus"
	"github.com/statusdeck/statusdeck/internal/config"
	"github.com/statusdeck/statusdeck/internal/database"
	"github.com/statusdeck/statusdeck/internal/handlers"
	"github.com/statusdeck/statusdeck/internal/middleware"
	"github.com/statusdeck/statusdeck/internal/notify"
)

const shutdownTimeout = 10 * time.Second

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

	logger.Info("starting statusdeck api", zap.Int("port", cfg.HTTPPort))

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

	apiHandler := handlers.NewHandler(db, busConn, logger.Named("api"))
	healthHandler := handlers.NewHealthHandler(db, busConn, logger.Named("health"))

	gateway := handlers.NewWSGateway(logger.Named("ws"))
	if err := gateway.BindBus(busConn); err != nil {
		logger.Fatal("failed to subscribe websocket gateway", zap.Error(err))
	}

	notifier := notify.NewSlackNotifier(cfg.SlackBotToken, cfg.SlackChannel, logger.Named("slack"))
	if err := notifier.Bind(busConn); err != nil {
		logger.Fatal("failed to subscribe slack notifier", zap.Error(err))
	}

	mux := http.NewServeMux()
	apiHandler.SetupRoutes(mux)
	healthHandler.SetupRoutes(mux)
	gateway.SetupRoutes(mux)

	cors := middleware.NewCORSMiddleware(corsOrigins(cfg.AllowedOrigins)...)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: cors.Wrap(middleware.RequestIDMiddleware(mux)),
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	// Shutdown stops the listener and drains plain HTTP requests.
	// Hijacked websocket connections drop when the process exits.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown incomplete", zap.Error(err))
	}

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

// corsOrigins splits the configured comma-separated origin list.
// "*" or an empty value allows every origin.
func corsOrigins(allowed string) []string {
	allowed = strings.TrimSpace(allowed)
	if allowed == "" || allowed == "*" {
		return nil
	}
	var origins []string
	for _, origin := range strings.Split(allowed, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

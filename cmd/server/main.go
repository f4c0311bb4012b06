package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"

	httpapi "ppmkconnect-core/internal/api/http"
	"ppmkconnect-core/internal/appstore"
	"ppmkconnect-core/internal/blob"
	"ppmkconnect-core/internal/bus"
	"ppmkconnect-core/internal/config"
	"ppmkconnect-core/internal/logger"
	"ppmkconnect-core/internal/notify"
	"ppmkconnect-core/internal/scheduler"
	"ppmkconnect-core/internal/security"
)

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting PPMK Connect core...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())

	// Blob store backend
	blobStore, err := buildBlobStore(cfg)
	if err != nil {
		logger.Error("Failed to initialize blob store", "error", err)
		log.Fatalf("Failed to initialize blob store: %v", err)
	}
	defer blobStore.Close()

	// Notifier backend
	var notifier appstore.Notifier
	if cfg.Notify.Type == "sendgrid" {
		logger.Info("Using SendGrid notifications", "from", cfg.Notify.FromEmail)
		notifier = notify.NewSendGridNotifier(cfg.Notify.SendGridAPIKey, cfg.Notify.FromEmail, cfg.Notify.FromName)
	} else {
		notifier = notify.NewLogNotifier()
	}

	// Application store: load, then watch for external writes.
	changeBus := bus.New()
	store := appstore.New(blobStore, changeBus, notifier)
	if err := store.Load(context.Background()); err != nil {
		logger.Error("Failed to load applications", "error", err)
		log.Fatalf("Failed to load applications: %v", err)
	}
	stopWatch := store.Watch()
	defer stopWatch()

	// Periodic reconciliation
	sched := scheduler.New(cfg.Scheduler.Reconcile, store)
	sched.Start()
	defer sched.Stop()

	// HTTP surface
	tokenManager := security.NewTokenManager(cfg.JWT.Secret)
	router := mux.NewRouter()
	httpapi.NewApplicationHandler(store).RegisterRoutes(router, tokenManager)

	server := &http.Server{
		Addr:    cfg.GetServerAddress(),
		Handler: router,
	}

	go func() {
		logger.Info("HTTP server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
}

func buildBlobStore(cfg *config.Config) (blob.Store, error) {
	switch cfg.Blob.Type {
	case "file":
		interval, err := time.ParseDuration(cfg.Blob.PollInterval)
		if err != nil {
			interval = 2 * time.Second
		}
		logger.Info("Using file blob store", "dir", cfg.Blob.Dir, "poll_interval", interval)
		return blob.NewFileStore(cfg.Blob.Dir, interval)
	case "postgres":
		logger.Info("Using postgres blob store")
		db, err := sql.Open("postgres", cfg.Blob.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.Ping(); err != nil {
			return nil, err
		}
		store, err := blob.NewPostgresStore(db, cfg.Blob.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := store.InitSchema(context.Background()); err != nil {
			return nil, err
		}
		return store, nil
	default:
		logger.Info("Using in-memory blob store")
		return blob.NewBroker().Open(), nil
	}
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"chat-broker/internal/auth"
	"chat-broker/internal/config"
	"chat-broker/internal/database"
	"chat-broker/internal/handlers"
	"chat-broker/internal/metrics"
	"chat-broker/internal/services"
	"chat-broker/internal/websocket"
	"chat-broker/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const journalBuffer = 1024

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err)
	}
	logger.Setup(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)
	observers := []services.Observer{collector}

	var journal *database.Journal
	if cfg.Database.URL != "" {
		db, err := database.NewPostgresDB(ctx, cfg.Database.URL)
		if err != nil {
			logger.Fatal("failed to connect to database", "error", err)
		}
		defer db.Close()
		if err := database.EnsureSchema(ctx, db); err != nil {
			logger.Fatal("failed to prepare journal", "error", err)
		}
		journal = database.NewJournal(db, journalBuffer, collector.JournalDropped)
		observers = append(observers, journal)
	} else {
		logger.Info("DATABASE_URL not set, activity journal disabled")
	}

	hub := websocket.NewHub(cfg.Broker, collector)
	coordinator := services.NewCoordinator(hub,
		services.WithChannels(cfg.Broker.DefaultChannels...),
		services.WithObservers(observers...),
	)
	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx, coordinator)

	var authService *auth.Service
	if cfg.OperatorAuthEnabled() {
		authService = auth.NewService(cfg)
	} else {
		logger.Warn("operator auth not configured, /channels is open")
	}

	server := &http.Server{
		Addr: cfg.Server.Port,
		Handler: handlers.NewRouter(handlers.RouterDeps{
			Hub:            hub,
			Coordinator:    coordinator,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Auth:           authService,
			Metrics:        metrics.Handler(registry),
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("server started", "addr", cfg.Server.Port, "channels", cfg.Broker.DefaultChannels)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	stopHub()
	<-hub.Done()

	if journal != nil {
		if err := journal.Close(shutdownCtx); err != nil {
			logger.Error("journal shutdown", "error", err)
		}
	}
	logger.Info("server stopped")
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/constraint/internal/config"
	"github.com/jwebster45206/constraint/internal/generator"
	"github.com/jwebster45206/constraint/internal/handlers"
	"github.com/jwebster45206/constraint/internal/logger"
	"github.com/jwebster45206/constraint/internal/middleware"
	redisstorage "github.com/jwebster45206/constraint/internal/storage"
	"github.com/jwebster45206/constraint/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg, os.Stdout)

	log.Info("Starting Constraint API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"inventory_file", cfg.InventoryFile,
		"scenario_path", cfg.ScenarioPath,
		"template_engine", cfg.TemplateEngine)

	gen, err := generator.New(generator.Options{
		InventoryFile: cfg.InventoryFile,
		ScenarioPath:  cfg.ScenarioPath,
		Engine:        cfg.TemplateEngine,
		Logger:        log,
	})
	if err != nil {
		log.Error("Failed to initialize generator", "error", err)
		os.Exit(1)
	}

	var store storage.Storage
	if cfg.RedisURL == "" {
		log.Warn("REDIS_URL not set, keeping runs in memory")
		store = storage.NewMockStorage()
	} else {
		redis, err := redisstorage.NewRedisStorage(cfg.RedisURL, cfg.RunTTL, log)
		if err != nil {
			log.Error("Failed to configure storage", "error", err)
			os.Exit(1)
		}
		storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
		err = redis.WaitForConnection(storageCtx, 10, 2*time.Second)
		storageCancel()
		if err != nil {
			log.Error("Failed to connect to storage", "error", err)
			os.Exit(1)
		}
		log.Info("Storage connection established successfully")
		store = redis
	}

	mux := http.NewServeMux()

	mux.Handle("/health", handlers.NewHealthHandler(store, log))
	mux.Handle("/v1/scenarios", handlers.NewScenariosHandler(log, gen))
	mux.Handle("/v1/generate", handlers.NewGenerateHandler(log, gen, store, cfg.Width))

	runsHandler := handlers.NewRunsHandler(log, store)
	mux.Handle("/v1/runs", runsHandler)
	mux.Handle("/v1/runs/", runsHandler)

	handler := middleware.Logger(mux)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}

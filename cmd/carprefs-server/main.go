// Package main is the entry point for the carprefs-server application.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/CreativeUnicorns/carprefs"
	"github.com/CreativeUnicorns/carprefs/api"
	"github.com/CreativeUnicorns/carprefs/config"
	"github.com/CreativeUnicorns/carprefs/encryption"
	"github.com/CreativeUnicorns/carprefs/storage"
	"github.com/joho/godotenv"
)

func main() {
	logger := carprefs.NewDefaultLogger()

	// A .env file is optional; real environment variables take precedence.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("Could not load .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	level, err := carprefs.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		logger.Warn("Unknown LOG_LEVEL, using info", "value", cfg.LogLevel)
	}
	logger.SetLevel(level)
	logger.Info("Carprefs server starting up...", "storage", cfg.StorageBackend, "encrypted", cfg.EncryptDocuments)

	store, err := openStorage(cfg)
	if err != nil {
		logger.Error("Failed to open storage", "backend", cfg.StorageBackend, "error", err)
		os.Exit(1)
	}

	mgr, err := carprefs.New(
		carprefs.WithStorage(store),
		carprefs.WithLogger(logger),
	)
	if err != nil {
		logger.Error("Failed to create preference manager", "error", err)
		os.Exit(1)
	}

	apiServer, err := api.NewServer(api.Config{
		ListenAddress: cfg.ListenAddr,
		Manager:       mgr,
		Logger:        logger,
	})
	if err != nil {
		logger.Error("Failed to create API server", "error", err)
		os.Exit(1)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- apiServer.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("Shutting down server...", "signal", sig.String())
	case err := <-serveErr:
		if err != nil {
			logger.Error("API server error", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := apiServer.Stop(ctx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}
	if err := store.Close(); err != nil {
		logger.Error("Failed to close storage", "error", err)
	}

	logger.Info("Server exited gracefully")
}

// openStorage builds the backend named by cfg.StorageBackend.
func openStorage(cfg config.Config) (carprefs.Storage, error) {
	var opts []storage.Option
	if cfg.EncryptDocuments {
		enc, err := encryption.NewManager()
		if err != nil {
			return nil, fmt.Errorf("document encryption: %w", err)
		}
		opts = append(opts, storage.WithEncryptor(enc))
	}

	switch cfg.StorageBackend {
	case config.BackendMemory:
		return storage.NewMemoryStorage(opts...), nil
	case config.BackendSQLite:
		return storage.NewSQLiteStorage(cfg.SQLitePath, opts...)
	case config.BackendPostgres:
		return storage.NewPostgresStorage(cfg.DatabaseURL, opts...)
	case config.BackendRedis:
		opts = append(opts, storage.WithTTL(cfg.RedisTTL))
		return storage.NewRedisStorage(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, opts...)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

/*
Package main is the entry point for the chathub server.

It is responsible for loading configuration, initializing the global logging system and tracing,
opening the directory store, starting the offline notification workers and the chat Manager,
setting up the HTTP server, and gracefully handling operating system interrupt signals
(SIGINT, SIGTERM) to ensure a smooth server shutdown.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ahmadjilani1/chathub/internal/app/chat"
	"github.com/ahmadjilani1/chathub/internal/app/db"
	"github.com/ahmadjilani1/chathub/internal/app/memstore"
	"github.com/ahmadjilani1/chathub/internal/app/notify"
	"github.com/ahmadjilani1/chathub/internal/app/storage"
	"github.com/ahmadjilani1/chathub/internal/configs"
	"github.com/ahmadjilani1/chathub/internal/handler"
	"github.com/ahmadjilani1/chathub/internal/pkg/censor"
	"github.com/ahmadjilani1/chathub/internal/pkg/logx"
	"github.com/ahmadjilani1/chathub/internal/pkg/tracing"
)

const serviceName = "chathub"

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	if err := logx.InitGlobalLogger(cfg.IsDevelopment(), cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("store_driver", cfg.StoreDriver).
		Bool("attachments", cfg.StorageEnabled()).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		logx.Fatal(err, "Failed to initialize tracing")
	}

	// Directory store
	var (
		directory chat.Directory
		closeDB   = func() {}
	)
	switch cfg.StoreDriver {
	case configs.StoreDriverMemory:
		logx.Warn("Using the in-memory directory store; data is lost on restart.")
		directory = memstore.New()
	default:
		pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			logx.Fatal(err, "Failed to connect to database")
		}
		directory = db.NewStore(pool)
		closeDB = pool.Close
	}

	// Optional attachment storage
	var files storage.StorageService
	if cfg.StorageEnabled() {
		files, err = storage.NewStorageService(ctx, storage.ServiceConfig{
			S3BucketName:      cfg.S3BucketName,
			S3Endpoint:        cfg.S3Endpoint,
			S3AccessKeyID:     cfg.S3AccessKeyID,
			S3SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			logx.Fatal(err, "Failed to initialize storage service")
		}
	}

	wordCensor, err := censor.New(cfg.CensoredWords, censor.DefaultMask)
	if err != nil {
		logx.Fatal(err, "Failed to build content censor")
	}

	// Offline notifications outlive the signal context so queued jobs drain on shutdown.
	dispatcher := notify.NewDispatcher(
		notify.NewLogNotifier(logx.Component("notifier")),
		cfg.NotifyQueueSize,
		cfg.NotifyWorkers,
	)
	dispatcher.Start(context.Background())

	relayOpts := []chat.RelayOption{
		chat.WithCensor(wordCensor),
		chat.WithStorageTimeout(cfg.StorageTimeout),
	}
	if files != nil {
		relayOpts = append(relayOpts, chat.WithFileStorage(files))
	}

	manager := chat.NewManager(directory, dispatcher, chat.ManagerConfig{
		JWTSecret:   cfg.JWTSecret,
		AuthTimeout: cfg.AuthTimeout,
	}, relayOpts...)

	// Setup HTTP server and routes
	router := handler.Router(ctx, &handler.AppDeps{
		Manager:   manager,
		Directory: directory,
		Config:    cfg,
		Storage:   files,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("chathub server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 10 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	// Hijacked WebSocket connections are not covered by server.Shutdown.
	manager.Shutdown()
	dispatcher.Stop()
	closeDB()

	if err := shutdownTracing(shutdownCtx); err != nil {
		logx.Error(err, "Failed to flush traces")
	}

	logx.Info("Server gracefully stopped.")
}

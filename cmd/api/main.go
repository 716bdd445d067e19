package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/komix/komix-api/internal/config"
	"github.com/komix/komix-api/internal/handler"
	"github.com/komix/komix-api/internal/jobs"
	"github.com/komix/komix-api/internal/middleware"
	"github.com/komix/komix-api/internal/repository"
	"github.com/komix/komix-api/internal/repository/memstore"
	"github.com/komix/komix-api/internal/service"
	"github.com/komix/komix-api/internal/session"
	"github.com/komix/komix-api/internal/utils/email"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	var store service.Store
	switch cfg.Storage {
	case config.StorageMemory:
		logger.Warn("Using in-memory storage; data is lost on restart")
		store = memstore.New()
	default:
		db, err := sql.Open("postgres", cfg.DBConn)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			logger.Fatalf("Failed to ping database: %v", err)
		}
		if err := repository.Migrate(ctx, db); err != nil {
			logger.Fatalf("Failed to migrate database: %v", err)
		}
		store = repository.NewRepository(db)
	}

	// Initialize sessions
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatalf("Failed to ping redis: %v", err)
	}
	sessions := session.NewManager(rdb, cfg.SessionSecret, cfg.SessionTTL)

	// Initialize layers
	mailer := email.NewSender(cfg, logger)
	svc := service.NewService(store, sessions, mailer, logger, cfg)
	h := handler.NewHandler(svc, sessions, logger, cfg)

	janitor := jobs.NewJanitor(svc, logger)
	if err := janitor.Start(cfg.JanitorSchedule); err != nil {
		logger.Fatalf("Failed to start janitor: %v", err)
	}

	// Setup router
	r := h.Routes(middleware.AuthMiddleware(sessions, logger))
	r.Use(middleware.RequestLogger(logger))

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Errorf("Server failed: %v", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Graceful shutdown failed: %v", err)
	}
	janitor.Stop()
	svc.Wait()
	logger.Info("Server stopped")
}

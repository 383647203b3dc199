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

	"go.uber.org/zap"

	"github.com/kailas-cloud/souq/internal/app"
	"github.com/kailas-cloud/souq/internal/config"
	logpkg "github.com/kailas-cloud/souq/internal/logger"
	chiTransport "github.com/kailas-cloud/souq/internal/transport/chi"
	"github.com/kailas-cloud/souq/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting souq API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("redis_addrs", cfg.Redis.Addrs),
		zap.String("lexical_driver", cfg.Lexical.Driver),
	)

	ctx := context.Background()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer a.Close()

	ready, err := a.Indexes.Ready(ctx)
	if err != nil || !ready {
		logger.Warn("Catalog search indexes missing; run `souqctl index create`", zap.Error(err))
	}

	svc := a.Services
	server := chiTransport.NewServer(chiTransport.Services{
		Search:       svc.Search,
		Items:        svc.Items,
		Transactions: svc.Transactions,
		CoPurchase:   svc.CoPurchase,
		WebSearch:    svc.WebSearch,
		Health:       svc.Health,
	}, chiTransport.SearchDefaults{
		Limit:          cfg.Search.DefaultLimit,
		MaxLimit:       cfg.Search.MaxLimit,
		ScoreThreshold: cfg.Search.Threshold(),
	}, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr: addr,
		Handler: chiTransport.NewRouter(server, chiTransport.RouterOptions{
			APIKeys:   cfg.Auth.APIKeys,
			StaticDir: cfg.HTTP.StaticDir,
			Logger:    logger,
		}),
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

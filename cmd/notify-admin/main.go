// cmd/notify-admin/main.go
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

	"github.com/cds-snc/notification-admin-sub002/internal/common/api"
	commonaws "github.com/cds-snc/notification-admin-sub002/internal/common/aws"
	"github.com/cds-snc/notification-admin-sub002/internal/common/config"
	"github.com/cds-snc/notification-admin-sub002/internal/common/database"
	commonhttp "github.com/cds-snc/notification-admin-sub002/internal/common/http"
	"github.com/cds-snc/notification-admin-sub002/internal/common/logger"
	"github.com/cds-snc/notification-admin-sub002/internal/common/observability"
	"github.com/cds-snc/notification-admin-sub002/internal/send/draft"
	"github.com/cds-snc/notification-admin-sub002/internal/send/uploads"
	"github.com/cds-snc/notification-admin-sub002/internal/server"

	"go.uber.org/zap"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console")
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting notify admin...",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	obs := observability.New(cfg.Observability.ServiceName, cfg.Observability.JaegerEndpoint)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init S3 ---
	s3Client, err := commonaws.NewS3Client(ctx, cfg.AWS.Region, cfg.AWS.S3.Endpoint)
	if err != nil {
		zapLog.Fatal("s3 client failed", zap.Error(err))
	}

	backend := api.NewClient(api.Options{
		BaseURL:      cfg.API.BaseURL,
		ClientID:     cfg.API.AdminClientID,
		ClientSecret: cfg.API.AdminClientSecret,
		CacheTTL:     cfg.API.CacheDuration(),
	}, commonhttp.NewClient(cfg.API.Timeout(), obs), redis, log)

	srv := server.New(server.Dependencies{
		Config:        cfg,
		Backend:       backend,
		Uploads:       uploads.NewStore(s3Client, cfg.AWS.S3.UploadBucket, cfg.AWS.S3.SendBucket, log),
		Sessions:      draft.NewStore(redis, cfg.Server.SessionTTL(), log),
		Redis:         redis,
		Observability: obs,
		Logger:        log,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Handler(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}

	zapLog.Info("Notify admin stopped gracefully")
}

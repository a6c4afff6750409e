package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lumi-ct/backend/internal/config"
	"github.com/lumi-ct/backend/internal/db"
	"github.com/lumi-ct/backend/internal/repositories"
	"github.com/lumi-ct/backend/internal/services"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// The worker owns the scheduled maintenance jobs: the audit retention sweep
// (the only path that ever deletes audit entries) and pruning of stale
// notifications.
func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	auditRepo := repositories.NewAuditRepo(pool)
	notificationRepo := repositories.NewNotificationRepo(pool)
	auditService := services.NewAuditService(auditRepo, log)

	c := cron.New()

	_, err = c.AddFunc(cfg.AuditSweepSchedule, func() {
		sweepCtx, sweepCancel := context.WithTimeout(ctx, 10*time.Minute)
		defer sweepCancel()

		if _, err := auditService.RetentionSweep(sweepCtx, cfg.AuditRetentionDays); err != nil {
			log.Error("audit retention sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		log.Fatal("invalid audit sweep schedule", zap.String("schedule", cfg.AuditSweepSchedule), zap.Error(err))
	}

	_, err = c.AddFunc(cfg.AuditSweepSchedule, func() {
		pruneCtx, pruneCancel := context.WithTimeout(ctx, 10*time.Minute)
		defer pruneCancel()

		cutoff := time.Now().AddDate(0, 0, -cfg.NotificationMaxAgeDays)
		deleted, err := notificationRepo.DeleteOlderThan(pruneCtx, cutoff)
		if err != nil {
			log.Error("notification prune failed", zap.Error(err))
			return
		}
		log.Info("notification prune finished", zap.Int64("deleted", deleted))
	})
	if err != nil {
		log.Fatal("invalid notification prune schedule", zap.Error(err))
	}

	c.Start()
	log.Info("worker started",
		zap.String("sweep_schedule", cfg.AuditSweepSchedule),
		zap.Int("audit_retention_days", cfg.AuditRetentionDays),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down worker")
	cancel()
	stopCtx := c.Stop()
	<-stopCtx.Done()
}

package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hackgods/health-appointment-reminders/internal/config"
	"github.com/hackgods/health-appointment-reminders/internal/logger"
	redisclient "github.com/hackgods/health-appointment-reminders/internal/redis"
	"github.com/hackgods/health-appointment-reminders/internal/reminder"
)

const (
	lockName  = "reminder-delivery"
	batchSize = 500
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config load error: %v", err)
	}

	log := logger.New(cfg.Env, cfg.LogLevel)
	log.WithFields(logrus.Fields{
		"env":      cfg.Env,
		"interval": cfg.WorkerInterval.String(),
	}).Info("reminder-worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := redisclient.NewRedisClient(rootCtx, redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.WithError(err).Warn("error closing redis")
		}
	}()
	log.Info("connected to Redis")

	store := redisclient.NewReminderStore(rdb, cfg.Location, cfg.NotificationsEnabled)
	locker := redisclient.NewRedisLocker(rdb, cfg.LockTTL)
	notifier := reminder.NewLogNotifier(log)

	runOnce(rootCtx, log, locker, store, notifier)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info("shutdown signal received, stopping reminder worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, log, locker, store, notifier)
		}
	}
}

// runOnce delivers everything due now. Only one worker runs a pass at a time.
func runOnce(ctx context.Context, log logrus.FieldLogger, locker redisclient.Locker, store *redisclient.ReminderStore, notifier reminder.Notifier) {
	start := time.Now()
	delivered := 0

	err := locker.WithLock(ctx, lockName, func(ctx context.Context) error {
		n, err := store.ProcessDue(ctx, time.Now(), batchSize, notifier.Notify)
		delivered = n
		return err
	})
	switch {
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		log.Debug("another worker holds the delivery lock, skipping run")
		return
	case err != nil:
		log.WithError(err).WithField("delivered", delivered).Error("delivery run error")
		return
	}

	log.WithFields(logrus.Fields{
		"delivered": delivered,
		"duration":  time.Since(start).String(),
	}).Info("delivery run complete")
}

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hackgods/health-appointment-reminders/internal/api"
	"github.com/hackgods/health-appointment-reminders/internal/appointment"
	"github.com/hackgods/health-appointment-reminders/internal/booking"
	"github.com/hackgods/health-appointment-reminders/internal/calendar"
	"github.com/hackgods/health-appointment-reminders/internal/config"
	"github.com/hackgods/health-appointment-reminders/internal/db"
	"github.com/hackgods/health-appointment-reminders/internal/logger"
	"github.com/hackgods/health-appointment-reminders/internal/record"
	redisclient "github.com/hackgods/health-appointment-reminders/internal/redis"
	"github.com/hackgods/health-appointment-reminders/internal/reminder"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config load error: %v", err)
	}

	log := logger.New(cfg.Env, cfg.LogLevel)
	log.WithFields(logrus.Fields{
		"env":       cfg.Env,
		"http_port": cfg.HTTPPort,
		"timezone":  cfg.Location.String(),
	}).Info("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{})
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Info("connected to Postgres")

	if err := db.Migrate(rootCtx, pgPool); err != nil {
		log.Fatalf("schema migration error: %v", err)
	}

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

	handler := api.NewRouter(api.RouterConfig{
		Doctors:      booking.NewPgDoctorRepository(pgPool),
		Appointments: appointment.NewPgRepository(pgPool),
		Records:      record.NewPgRepository(pgPool),
		Dispatchers:  func(userID string) reminder.Dispatcher { return store.ForUser(userID) },
		Calendar:     calendar.New(calendar.SystemClock{}, cfg.Location),
		HorizonDays:  cfg.BookingHorizonDays,
		Surcharge:    cfg.EmergencySurcharge,
		JWTSecret:    []byte(cfg.JWTSecret),
		Logger:       log,
		Dependencies: []api.Dependency{
			{Name: "postgres", Ping: pgPool.Ping, Critical: true},
			{Name: "redis", Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
		},
		Env:     cfg.Env,
		Version: version,
	})

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return rootCtx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-rootCtx.Done():
	case err := <-errCh:
		log.WithError(err).Error("http server stopped")
	}

	log.Info("shutting down api-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown incomplete")
	}
}

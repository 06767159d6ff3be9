package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost/health")
	t.Setenv("APP_ENV", "dev")
	for _, k := range []string{"HTTP_PORT", "JWT_SECRET", "REDIS_URL", "REDIS_ADDR", "TIMEZONE", "WORKER_INTERVAL",
		"BOOKING_HORIZON_DAYS", "EMERGENCY_SURCHARGE", "SLOT_START_HOUR", "SLOT_END_HOUR", "SLOT_INTERVAL_MINUTES",
		"NOTIFICATIONS_ENABLED"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 7, cfg.BookingHorizonDays)
	assert.True(t, cfg.EmergencySurcharge.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, 8, cfg.SlotStartHour)
	assert.Equal(t, 18, cfg.SlotEndHour)
	assert.Equal(t, 60, cfg.SlotIntervalMinutes)
	assert.Equal(t, time.Minute, cfg.WorkerInterval)
	assert.Equal(t, "Europe/Paris", cfg.Location.String())
	assert.Equal(t, "dev-secret", cfg.JWTSecret)
	assert.True(t, cfg.NotificationsEnabled)
	assert.Equal(t, "127.0.0.1:6379", cfg.RedisAddr)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost/health")
	t.Setenv("APP_ENV", "prod")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("REDIS_URL", "redis://worker:pw@cache:6380")
	t.Setenv("WORKER_INTERVAL", "15")
	t.Setenv("LOCK_TTL", "2m")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("EMERGENCY_SURCHARGE", "25.50")
	t.Setenv("SLOT_INTERVAL_MINUTES", "45")
	t.Setenv("NOTIFICATIONS_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "cache:6380", cfg.RedisAddr)
	assert.Equal(t, "worker", cfg.RedisUsername)
	assert.Equal(t, "pw", cfg.RedisPassword)
	assert.Equal(t, 15*time.Second, cfg.WorkerInterval)
	assert.Equal(t, 2*time.Minute, cfg.LockTTL)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, "25.5", cfg.EmergencySurcharge.String())
	assert.Equal(t, 45, cfg.SlotIntervalMinutes)
	assert.False(t, cfg.NotificationsEnabled)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing dsn", map[string]string{"POSTGRES_DSN": ""}},
		{"prod without secret", map[string]string{"APP_ENV": "prod", "JWT_SECRET": ""}},
		{"bad timezone", map[string]string{"TIMEZONE": "Mars/Olympus"}},
		{"bad surcharge", map[string]string{"EMERGENCY_SURCHARGE": "twenty"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("POSTGRES_DSN", "postgres://localhost/health")
			t.Setenv("APP_ENV", "dev")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

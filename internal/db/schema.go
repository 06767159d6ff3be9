package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied in order; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS doctors (
		id               uuid PRIMARY KEY,
		name             text NOT NULL,
		specialty        text NOT NULL DEFAULT '',
		city             text NOT NULL DEFAULT '',
		available_slots  text[] NOT NULL DEFAULT '{}',
		consultation_fee numeric(10,2) NOT NULL,
		created_at       timestamptz NOT NULL DEFAULT now()
	)`,
	`ALTER TABLE doctors ADD COLUMN IF NOT EXISTS city text NOT NULL DEFAULT ''`,
	`CREATE INDEX IF NOT EXISTS doctors_specialty_idx ON doctors (specialty)`,
	`CREATE TABLE IF NOT EXISTS appointments (
		id                uuid PRIMARY KEY,
		user_id           text NOT NULL,
		doctor_id         uuid NOT NULL REFERENCES doctors(id),
		doctor_name       text NOT NULL,
		doctor_specialty  text NOT NULL DEFAULT '',
		appointment_date  date NOT NULL,
		appointment_time  time NOT NULL,
		consultation_type text NOT NULL CHECK (consultation_type IN ('consultation', 'followup', 'emergency')),
		status            text NOT NULL CHECK (status IN ('scheduled', 'completed', 'cancelled')),
		fee               numeric(10,2) NOT NULL,
		notes             text NOT NULL DEFAULT '',
		created_at        timestamptz NOT NULL DEFAULT now(),
		updated_at        timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS appointments_user_idx
		ON appointments (user_id, appointment_date DESC, appointment_time DESC)`,
	`CREATE TABLE IF NOT EXISTS medications (
		id            uuid PRIMARY KEY,
		user_id       text NOT NULL,
		name          text NOT NULL,
		dosage        text NOT NULL DEFAULT '',
		frequency     text NOT NULL DEFAULT '',
		prescribed_by text NOT NULL DEFAULT '',
		start_date    date NOT NULL,
		end_date      date,
		active        boolean NOT NULL DEFAULT true,
		created_at    timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS medications_user_idx ON medications (user_id)`,
	`CREATE TABLE IF NOT EXISTS vaccinations (
		id              uuid PRIMARY KEY,
		user_id         text NOT NULL,
		name            text NOT NULL,
		administered_on date NOT NULL,
		next_due        date,
		administered_by text NOT NULL DEFAULT '',
		created_at      timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS vaccinations_user_idx ON vaccinations (user_id)`,
	`CREATE TABLE IF NOT EXISTS event_logs (
		id             bigserial PRIMARY KEY,
		event_type     text NOT NULL,
		appointment_id uuid REFERENCES appointments(id),
		payload        jsonb NOT NULL DEFAULT '{}',
		created_at     timestamptz NOT NULL DEFAULT now()
	)`,
}

// Migrate creates any missing tables and indexes.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}

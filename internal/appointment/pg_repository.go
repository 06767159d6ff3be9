package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hackgods/health-appointment-reminders/internal/calendar"
)

const (
	EventAppointmentCreated   = "APPOINTMENT_CREATED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
)

const appointmentColumns = `
	id, user_id, doctor_id, doctor_name, doctor_specialty, appointment_date,
	to_char(appointment_time, 'HH24:MI'), consultation_type, status, fee::text, notes,
	created_at, updated_at`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a       Appointment
		date    time.Time
		clock   string
		feeText string
	)

	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.DoctorID,
		&a.DoctorName,
		&a.DoctorSpecialty,
		&date,
		&clock,
		&a.Type,
		&a.Status,
		&feeText,
		&a.Notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, unavailable("scan appointment", err)
	}

	a.Date = calendar.DateOf(date)
	if a.Time, err = calendar.ParseTimeOfDay(clock); err != nil {
		return nil, fmt.Errorf("appointment %s: %w", a.ID, err)
	}
	if a.Fee, err = decimal.NewFromString(feeText); err != nil {
		return nil, fmt.Errorf("appointment %s fee: %w", a.ID, err)
	}
	return &a, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}

// Interface methods

func (r *PgRepository) Create(ctx context.Context, a *Appointment) (uuid.UUID, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, unavailable("begin", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO appointments (id, user_id, doctor_id, doctor_name, doctor_specialty,
			appointment_date, appointment_time, consultation_type, status, fee, notes,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, CAST($7::text AS time), $8, $9, CAST($10::text AS numeric), $11, now(), now())
		RETURNING id, created_at, updated_at
	`, a.ID, a.UserID, a.DoctorID, a.DoctorName, a.DoctorSpecialty,
		a.Date.Midnight(time.UTC), a.Time.String(), a.Type, a.Status, a.Fee.String(), a.Notes)

	if err := row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return uuid.Nil, unavailable("insert appointment", err)
	}

	if err := insertEvent(ctx, tx, a.ID, EventAppointmentCreated, map[string]any{
		"doctor_id": a.DoctorID.String(),
		"date":      a.Date.String(),
		"time":      a.Time.String(),
		"fee":       a.Fee.String(),
	}); err != nil {
		return uuid.Nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, unavailable("commit", err)
	}
	return a.ID, nil
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return unavailable("begin", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, status)
	if err != nil {
		return unavailable("update appointment status", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}

	eventType := EventAppointmentCancelled
	if status == StatusCompleted {
		eventType = EventAppointmentCompleted
	}
	if err := insertEvent(ctx, tx, id, eventType, map[string]any{"status": string(status)}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return unavailable("commit", err)
	}
	return nil
}

func (r *PgRepository) ListByUser(ctx context.Context, userID string) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE user_id = $1
		ORDER BY appointment_date DESC, appointment_time DESC
	`, userID)
	if err != nil {
		return nil, unavailable("list appointments", err)
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, unavailable("list appointments", err)
	}

	return result, nil
}

func insertEvent(ctx context.Context, tx pgx.Tx, appointmentID uuid.UUID, eventType string, payload map[string]any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &appointmentID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, $4)
	`, ev.EventType, ev.AppointmentID, ev.Payload, ev.CreatedAt)
	if err != nil {
		return unavailable("insert event log", err)
	}
	return nil
}

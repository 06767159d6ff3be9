package record

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/health-appointment-reminders/internal/calendar"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}

func dateParam(d *calendar.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Midnight(time.UTC)
	return &t
}

func dateValue(t *time.Time) *calendar.Date {
	if t == nil {
		return nil
	}
	d := calendar.DateOf(*t)
	return &d
}

func scanMedication(row pgx.Row) (*Medication, error) {
	var (
		m     Medication
		start time.Time
		end   *time.Time
	)
	if err := row.Scan(&m.ID, &m.UserID, &m.Name, &m.Dosage, &m.Frequency, &m.PrescribedBy, &start, &end, &m.Active); err != nil {
		return nil, unavailable("scan medication", err)
	}
	m.StartDate = calendar.DateOf(start)
	m.EndDate = dateValue(end)
	return &m, nil
}

func scanVaccination(row pgx.Row) (*Vaccination, error) {
	var (
		v       Vaccination
		given   time.Time
		nextDue *time.Time
	)
	if err := row.Scan(&v.ID, &v.UserID, &v.Name, &given, &nextDue, &v.AdministeredBy); err != nil {
		return nil, unavailable("scan vaccination", err)
	}
	v.AdministeredOn = calendar.DateOf(given)
	v.NextDue = dateValue(nextDue)
	return &v, nil
}

func (r *PgRepository) CreateMedication(ctx context.Context, m *Medication) (uuid.UUID, error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO medications (id, user_id, name, dosage, frequency, prescribed_by, start_date, end_date, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
	`, m.ID, m.UserID, m.Name, m.Dosage, m.Frequency, m.PrescribedBy,
		m.StartDate.Midnight(time.UTC), dateParam(m.EndDate), m.Active)
	if err != nil {
		return uuid.Nil, unavailable("insert medication", err)
	}
	return m.ID, nil
}

func (r *PgRepository) CreateVaccination(ctx context.Context, v *Vaccination) (uuid.UUID, error) {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO vaccinations (id, user_id, name, administered_on, next_due, administered_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
	`, v.ID, v.UserID, v.Name, v.AdministeredOn.Midnight(time.UTC), dateParam(v.NextDue), v.AdministeredBy)
	if err != nil {
		return uuid.Nil, unavailable("insert vaccination", err)
	}
	return v.ID, nil
}

func (r *PgRepository) ListMedications(ctx context.Context, userID string) ([]Medication, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, name, dosage, frequency, prescribed_by, start_date, end_date, active
		FROM medications
		WHERE user_id = $1
		ORDER BY start_date DESC, created_at DESC
	`, userID)
	if err != nil {
		return nil, unavailable("list medications", err)
	}
	defer rows.Close()

	var result []Medication
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list medications", err)
	}
	return result, nil
}

func (r *PgRepository) ListVaccinations(ctx context.Context, userID string) ([]Vaccination, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, name, administered_on, next_due, administered_by
		FROM vaccinations
		WHERE user_id = $1
		ORDER BY administered_on DESC, created_at DESC
	`, userID)
	if err != nil {
		return nil, unavailable("list vaccinations", err)
	}
	defer rows.Close()

	var result []Vaccination
	for rows.Next() {
		v, err := scanVaccination(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list vaccinations", err)
	}
	return result, nil
}

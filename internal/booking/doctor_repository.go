package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hackgods/health-appointment-reminders/internal/calendar"
)

type DoctorRepository interface {
	OfferSource
	CreateDoctor(ctx context.Context, d *Doctor) (uuid.UUID, error)
	GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error)
	ListDoctors(ctx context.Context, f DoctorFilter) ([]Doctor, error)
	ListSpecialties(ctx context.Context) ([]string, error)
}

type PgDoctorRepository struct {
	pool *pgxpool.Pool
}

func NewPgDoctorRepository(pool *pgxpool.Pool) *PgDoctorRepository {
	return &PgDoctorRepository{pool: pool}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var (
		d       Doctor
		feeText string
	)
	if err := row.Scan(&d.ID, &d.Name, &d.Specialty, &d.City, &d.AvailableSlots, &feeText); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, unavailable("scan doctor", err)
	}
	fee, err := decimal.NewFromString(feeText)
	if err != nil {
		return nil, fmt.Errorf("doctor %s fee: %w", d.ID, err)
	}
	d.ConsultationFee = fee
	return &d, nil
}

func (r *PgDoctorRepository) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, city, available_slots, consultation_fee::text
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgDoctorRepository) GetSlotOffer(ctx context.Context, doctorID uuid.UUID, date calendar.Date) (*DoctorSlotOffer, error) {
	d, err := r.GetDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	return OfferFor(*d, date), nil
}

func (r *PgDoctorRepository) CreateDoctor(ctx context.Context, d *Doctor) (uuid.UUID, error) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO doctors (id, name, specialty, city, available_slots, consultation_fee, created_at)
		VALUES ($1, $2, $3, $4, $5, CAST($6::text AS numeric), now())
	`, d.ID, d.Name, d.Specialty, d.City, d.AvailableSlots, d.ConsultationFee.String())
	if err != nil {
		return uuid.Nil, unavailable("insert doctor", err)
	}
	return d.ID, nil
}

// ListDoctors returns the doctors matching f, ordered by name. An empty
// filter field matches everything.
func (r *PgDoctorRepository) ListDoctors(ctx context.Context, f DoctorFilter) ([]Doctor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, specialty, city, available_slots, consultation_fee::text
		FROM doctors
		WHERE strpos(lower(specialty), lower($1::text)) > 0
		  AND strpos(lower(city), lower($2::text)) > 0
		ORDER BY name
	`, f.Specialty, f.City)
	if err != nil {
		return nil, unavailable("list doctors", err)
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list doctors", err)
	}
	return result, nil
}

func (r *PgDoctorRepository) ListSpecialties(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT specialty
		FROM doctors
		WHERE specialty <> ''
		ORDER BY specialty
	`)
	if err != nil {
		return nil, unavailable("list specialties", err)
	}
	specialties, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, unavailable("list specialties", err)
	}
	return specialties, nil
}

// MemoryDoctorRepository keeps doctors in memory for tests and local runs.
type MemoryDoctorRepository struct {
	mu      sync.RWMutex
	doctors []Doctor
}

func NewMemoryDoctorRepository(doctors ...Doctor) *MemoryDoctorRepository {
	r := &MemoryDoctorRepository{}
	for i := range doctors {
		_, _ = r.CreateDoctor(context.Background(), &doctors[i])
	}
	return r
}

func (r *MemoryDoctorRepository) GetDoctor(_ context.Context, id uuid.UUID) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, d := range r.doctors {
		if d.ID == id {
			return &d, nil
		}
	}
	return nil, ErrDoctorNotFound
}

func (r *MemoryDoctorRepository) GetSlotOffer(ctx context.Context, doctorID uuid.UUID, date calendar.Date) (*DoctorSlotOffer, error) {
	d, err := r.GetDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	return OfferFor(*d, date), nil
}

func (r *MemoryDoctorRepository) CreateDoctor(_ context.Context, d *Doctor) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	r.doctors = append(r.doctors, *d)
	return d.ID, nil
}

// ListDoctors orders by name like the Postgres repository.
func (r *MemoryDoctorRepository) ListDoctors(_ context.Context, f DoctorFilter) ([]Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []Doctor{}
	for _, d := range r.doctors {
		if f.Matches(d) {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryDoctorRepository) ListSpecialties(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := map[string]bool{}
	out := []string{}
	for _, d := range r.doctors {
		if d.Specialty == "" || seen[d.Specialty] {
			continue
		}
		seen[d.Specialty] = true
		out = append(out, d.Specialty)
	}
	sort.Strings(out)
	return out, nil
}

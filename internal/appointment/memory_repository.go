package appointment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps appointments in process. It backs tests and local
// runs of the API without Postgres.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]Appointment
	now   func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		items: make(map[uuid.UUID]Appointment),
		now:   time.Now,
	}
}

func (r *MemoryRepository) Create(_ context.Context, a *Appointment) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := r.now()
	a.CreatedAt = now
	a.UpdatedAt = now
	r.items[a.ID] = *a
	return a.ID, nil
}

func (r *MemoryRepository) UpdateStatus(_ context.Context, id uuid.UUID, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.items[id]
	if !ok {
		return ErrAppointmentNotFound
	}
	a.Status = status
	a.UpdatedAt = r.now()
	r.items[id] = a
	return nil
}

func (r *MemoryRepository) ListByUser(_ context.Context, userID string) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Appointment
	for _, a := range r.items {
		if a.UserID == userID {
			out = append(out, a)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.After(out[j].Date)
		}
		return out[j].Time.Before(out[i].Time)
	})
	return out, nil
}

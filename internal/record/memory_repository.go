package record

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepository keeps records in insertion order per user.
type MemoryRepository struct {
	mu           sync.RWMutex
	medications  []Medication
	vaccinations []Vaccination
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) CreateMedication(_ context.Context, m *Medication) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r.medications = append(r.medications, *m)
	return m.ID, nil
}

func (r *MemoryRepository) CreateVaccination(_ context.Context, v *Vaccination) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	r.vaccinations = append(r.vaccinations, *v)
	return v.ID, nil
}

func (r *MemoryRepository) ListMedications(_ context.Context, userID string) ([]Medication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Medication
	for _, m := range r.medications {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *MemoryRepository) ListVaccinations(_ context.Context, userID string) ([]Vaccination, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Vaccination
	for _, v := range r.vaccinations {
		if v.UserID == userID {
			out = append(out, v)
		}
	}
	return out, nil
}

package record

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrUnavailable = errors.New("record store unavailable")

type Repository interface {
	CreateMedication(ctx context.Context, m *Medication) (uuid.UUID, error)
	CreateVaccination(ctx context.Context, v *Vaccination) (uuid.UUID, error)
	ListMedications(ctx context.Context, userID string) ([]Medication, error)
	ListVaccinations(ctx context.Context, userID string) ([]Vaccination, error)
}

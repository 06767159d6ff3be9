package appointment

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrUnavailable         = errors.New("appointment store unavailable")
)

// Repository is the data-source boundary for appointments.
// Implementations wrap transport and storage failures with ErrUnavailable.
type Repository interface {
	Create(ctx context.Context, a *Appointment) (uuid.UUID, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error

	// ListByUser returns the user's appointments, most recent date and time first.
	ListByUser(ctx context.Context, userID string) ([]Appointment, error)
}

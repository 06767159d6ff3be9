package booking

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hackgods/health-appointment-reminders/internal/calendar"
)

var (
	ErrDoctorNotFound = errors.New("doctor not found")
	ErrUnavailable    = errors.New("doctor store unavailable")
)

type Doctor struct {
	ID              uuid.UUID
	Name            string
	Specialty       string
	City            string
	AvailableSlots  []string
	ConsultationFee decimal.Decimal
}

// DoctorFilter narrows a doctor listing. Each set field must appear,
// case-insensitively, in the matching doctor field.
type DoctorFilter struct {
	Specialty string
	City      string
}

func (f DoctorFilter) Matches(d Doctor) bool {
	return containsFold(d.Specialty, f.Specialty) && containsFold(d.City, f.City)
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// DoctorSlotOffer is a read-only snapshot of what a doctor offers on a date.
type DoctorSlotOffer struct {
	DoctorID        uuid.UUID
	DoctorName      string
	Specialty       string
	Date            calendar.Date
	AvailableSlots  []string
	ConsultationFee decimal.Decimal
}

// Offers reports whether slot is one of the offered slots.
func (o DoctorSlotOffer) Offers(slot string) bool {
	for _, s := range o.AvailableSlots {
		if s == slot {
			return true
		}
	}
	return false
}

type OfferSource interface {
	GetSlotOffer(ctx context.Context, doctorID uuid.UUID, date calendar.Date) (*DoctorSlotOffer, error)
}

// OfferFor snapshots a doctor's declared slots for one date.
func OfferFor(d Doctor, date calendar.Date) *DoctorSlotOffer {
	slots := make([]string, len(d.AvailableSlots))
	copy(slots, d.AvailableSlots)
	return &DoctorSlotOffer{
		DoctorID:        d.ID,
		DoctorName:      d.Name,
		Specialty:       d.Specialty,
		Date:            date,
		AvailableSlots:  slots,
		ConsultationFee: d.ConsultationFee,
	}
}

package appointment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hackgods/health-appointment-reminders/internal/calendar"
)

type Type string

const (
	TypeConsultation Type = "consultation"
	TypeFollowUp     Type = "followup"
	TypeEmergency    Type = "emergency"
)

func (t Type) Valid() bool {
	switch t {
	case TypeConsultation, TypeFollowUp, TypeEmergency:
		return true
	}
	return false
}

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal statuses accept no further transition.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition allows only scheduled -> cancelled and scheduled -> completed.
func (s Status) CanTransition(to Status) bool {
	return s == StatusScheduled && to.Terminal()
}

type Appointment struct {
	ID              uuid.UUID
	UserID          string
	DoctorID        uuid.UUID
	DoctorName      string
	DoctorSpecialty string
	Date            calendar.Date
	Time            calendar.TimeOfDay
	Type            Type
	Status          Status
	Fee             decimal.Decimal
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Instant is the start of the appointment in loc.
func (a Appointment) Instant(loc *time.Location) time.Time {
	return a.Date.At(a.Time, loc)
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

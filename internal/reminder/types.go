// Package reminder computes when appointment, medication and vaccination
// reminders fire and registers them with a notification dispatcher.
package reminder

import (
	"errors"
	"fmt"
	"time"

	"github.com/hackgods/health-appointment-reminders/internal/calendar"
)

var (
	ErrPermissionDenied = errors.New("notification permission denied")
	ErrUnavailable      = errors.New("notification dispatcher unavailable")
)

type Kind string

const (
	KindAppointment Kind = "appointment"
	KindMedication  Kind = "medication"
	KindVaccination Kind = "vaccination"
)

// Data keys carried in the notification payload.
const (
	DataType            = "type"
	DataAppointmentID   = "appointmentId"
	DataDoctorName      = "doctorName"
	DataAppointmentTime = "appointmentTime"
	DataMedicationID    = "medicationId"
	DataMedicationName  = "medicationName"
	DataVaccinationID   = "vaccinationId"
	DataVaccinationName = "vaccinationName"
)

type Handle string

type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

type Content struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

type TriggerKind string

const (
	TriggerOnce      TriggerKind = "once"
	TriggerDaily     TriggerKind = "daily"
	TriggerImmediate TriggerKind = "immediate"
)

// Trigger is either a one-shot instant, a repeating daily time of day, or
// immediate delivery.
type Trigger struct {
	Kind      TriggerKind        `json:"kind"`
	At        time.Time          `json:"at,omitempty"`
	TimeOfDay calendar.TimeOfDay `json:"time_of_day"`
}

func Once(at time.Time) Trigger {
	return Trigger{Kind: TriggerOnce, At: at}
}

func Daily(tod calendar.TimeOfDay) Trigger {
	return Trigger{Kind: TriggerDaily, TimeOfDay: tod}
}

func Immediate() Trigger {
	return Trigger{Kind: TriggerImmediate}
}

func (t Trigger) Repeats() bool {
	return t.Kind == TriggerDaily
}

func (t Trigger) String() string {
	switch t.Kind {
	case TriggerOnce:
		return "once at " + t.At.Format(time.RFC3339)
	case TriggerDaily:
		return "daily at " + t.TimeOfDay.String()
	default:
		return string(t.Kind)
	}
}

// Scheduled is what a dispatcher holds for one registered notification.
type Scheduled struct {
	Handle  Handle  `json:"handle"`
	Content Content `json:"content"`
	Trigger Trigger `json:"trigger"`
}

// Request is a reminder as the scheduler sees it.
type Request struct {
	Handle   Handle
	Kind     Kind
	TargetID string
	Content  Content
	Trigger  Trigger
}

func (r Request) String() string {
	return fmt.Sprintf("%s reminder %s for %s (%s)", r.Kind, r.Handle, r.TargetID, r.Trigger)
}

// requestFromScheduled recovers kind and target from the payload data.
func requestFromScheduled(s Scheduled) Request {
	kind := Kind(s.Content.Data[DataType])
	var target string
	switch kind {
	case KindAppointment:
		target = s.Content.Data[DataAppointmentID]
	case KindMedication:
		target = s.Content.Data[DataMedicationID]
	case KindVaccination:
		target = s.Content.Data[DataVaccinationID]
	}
	return Request{
		Handle:   s.Handle,
		Kind:     kind,
		TargetID: target,
		Content:  s.Content,
		Trigger:  s.Trigger,
	}
}

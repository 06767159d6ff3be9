// Package record holds the medical-record entries that drive reminders:
// prescribed medications and vaccinations.
package record

import (
	"github.com/google/uuid"

	"github.com/hackgods/health-appointment-reminders/internal/calendar"
)

type Medication struct {
	ID           uuid.UUID
	UserID       string
	Name         string
	Dosage       string
	Frequency    string
	PrescribedBy string
	StartDate    calendar.Date
	EndDate      *calendar.Date
	Active       bool
}

type Vaccination struct {
	ID             uuid.UUID
	UserID         string
	Name           string
	AdministeredOn calendar.Date
	NextDue        *calendar.Date
	AdministeredBy string
}

// ActiveMedications keeps the input order.
func ActiveMedications(meds []Medication) []Medication {
	var out []Medication
	for _, m := range meds {
		if m.Active {
			out = append(out, m)
		}
	}
	return out
}

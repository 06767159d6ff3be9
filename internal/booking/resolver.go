// Package booking decides which dates and slots a patient may book and turns
// a completed draft into a scheduled appointment.
package booking

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/hackgods/health-appointment-reminders/internal/appointment"
	"github.com/hackgods/health-appointment-reminders/internal/calendar"
)

const DefaultHorizonDays = 7

var DefaultEmergencySurcharge = decimal.NewFromInt(20)

var (
	ErrDateOutOfWindow = errors.New("date outside booking window")
	ErrSlotNotOffered  = errors.New("slot not offered")
	ErrSlotInPast      = errors.New("slot already passed")
	ErrNoDateSelected  = errors.New("no date selected")
	ErrNoSlotSelected  = errors.New("no time slot selected")
	ErrInvalidType     = errors.New("invalid consultation type")
	ErrNotSignedIn     = errors.New("not signed in")
)

type Resolver struct {
	cal         *calendar.Calendar
	horizonDays int
	surcharge   decimal.Decimal
}

// NewResolver falls back to the 7 day horizon when horizonDays is not
// positive.
func NewResolver(cal *calendar.Calendar, horizonDays int, surcharge decimal.Decimal) *Resolver {
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}
	return &Resolver{cal: cal, horizonDays: horizonDays, surcharge: surcharge}
}

func (r *Resolver) Calendar() *calendar.Calendar {
	return r.cal
}

// ValidateDate accepts today and future dates up to the last day of the
// rolling horizon.
func (r *Resolver) ValidateDate(d calendar.Date) error {
	upcoming := r.cal.IsFuture(d.Midnight(r.cal.Location())) || r.cal.IsToday(d)
	last := r.cal.Today().AddDays(r.horizonDays - 1)
	if !upcoming || d.After(last) {
		return fmt.Errorf("%w: %s", ErrDateOutOfWindow, d)
	}
	return nil
}

func (r *Resolver) SelectableDates() []calendar.Date {
	return r.cal.NextNDays(r.horizonDays)
}

func (r *Resolver) TotalFee(base decimal.Decimal, t appointment.Type) decimal.Decimal {
	if t == appointment.TypeEmergency {
		return base.Add(r.surcharge)
	}
	return base
}

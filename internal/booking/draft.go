package booking

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hackgods/health-appointment-reminders/internal/appointment"
	"github.com/hackgods/health-appointment-reminders/internal/calendar"
)

// Draft is one patient's in-progress booking with a single doctor. Picking a
// new date clears the chosen time. Not safe for concurrent use.
type Draft struct {
	resolver *Resolver
	offers   OfferSource
	doctorID uuid.UUID

	offer *DoctorSlotOffer
	slot  string
	typ   appointment.Type
}

func NewDraft(resolver *Resolver, offers OfferSource, doctorID uuid.UUID) *Draft {
	return &Draft{
		resolver: resolver,
		offers:   offers,
		doctorID: doctorID,
		typ:      appointment.TypeConsultation,
	}
}

// SelectDate validates d against the booking window and returns the doctor's
// offered slots for it verbatim. A failed selection leaves the draft as it was.
func (d *Draft) SelectDate(ctx context.Context, date calendar.Date) ([]string, error) {
	if err := d.resolver.ValidateDate(date); err != nil {
		return nil, err
	}

	offer, err := d.offers.GetSlotOffer(ctx, d.doctorID, date)
	if err != nil {
		return nil, err
	}

	d.offer = offer
	d.slot = ""

	slots := make([]string, len(offer.AvailableSlots))
	copy(slots, offer.AvailableSlots)
	return slots, nil
}

func (d *Draft) SelectTime(slot string) error {
	if d.offer == nil {
		return ErrNoDateSelected
	}
	if !d.offer.Offers(slot) {
		return fmt.Errorf("%w: %s on %s", ErrSlotNotOffered, slot, d.offer.Date)
	}

	tod, err := calendar.ParseTimeOfDay(slot)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSlotNotOffered, slot, err)
	}
	cal := d.resolver.Calendar()
	if !cal.IsFuture(d.offer.Date.At(tod, cal.Location())) {
		return fmt.Errorf("%w: %s %s", ErrSlotInPast, d.offer.Date, slot)
	}

	d.slot = slot
	return nil
}

func (d *Draft) SetType(t appointment.Type) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, t)
	}
	d.typ = t
	return nil
}

func (d *Draft) DoctorID() uuid.UUID    { return d.doctorID }
func (d *Draft) Type() appointment.Type { return d.typ }
func (d *Draft) Slot() string           { return d.slot }

// Offer is the snapshot behind the selected date.
func (d *Draft) Offer() (DoctorSlotOffer, bool) {
	if d.offer == nil {
		return DoctorSlotOffer{}, false
	}
	return *d.offer, true
}

func (d *Draft) Date() (calendar.Date, bool) {
	if d.offer == nil {
		return calendar.Date{}, false
	}
	return d.offer.Date, true
}

// Fee is the base fee plus any surcharge for the current type; zero until a
// date is selected.
func (d *Draft) Fee() decimal.Decimal {
	if d.offer == nil {
		return decimal.Zero
	}
	return d.resolver.TotalFee(d.offer.ConsultationFee, d.typ)
}

// ready reports why the draft cannot be confirmed yet.
func (d *Draft) ready() error {
	if d.offer == nil {
		return ErrNoDateSelected
	}
	if d.slot == "" {
		return ErrNoSlotSelected
	}
	return nil
}

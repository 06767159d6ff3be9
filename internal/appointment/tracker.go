package appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hackgods/health-appointment-reminders/internal/calendar"
)

var ErrUnknownFilter = errors.New("unknown appointment filter")

type Filter string

const (
	FilterAll      Filter = "all"
	FilterUpcoming Filter = "upcoming"
	FilterPast     Filter = "past"
)

func ParseFilter(s string) (Filter, error) {
	switch f := Filter(s); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterUpcoming, FilterPast:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFilter, s)
}

// Tracker is a client-side view of one user's appointments. It is not safe
// for concurrent use; the order of the loaded collection is preserved.
type Tracker struct {
	repo  Repository
	cal   *calendar.Calendar
	items []Appointment
}

func NewTracker(repo Repository, cal *calendar.Calendar) *Tracker {
	return &Tracker{repo: repo, cal: cal}
}

// Load replaces the tracked collection with the user's appointments.
func (t *Tracker) Load(ctx context.Context, userID string) error {
	items, err := t.repo.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	t.items = items
	return nil
}

// Add tracks a freshly booked appointment.
func (t *Tracker) Add(a Appointment) {
	t.items = append(t.items, a)
}

func (t *Tracker) Get(id uuid.UUID) (Appointment, bool) {
	if i := t.index(id); i >= 0 {
		return t.items[i], true
	}
	return Appointment{}, false
}

func (t *Tracker) Filter(f Filter) []Appointment {
	out := make([]Appointment, 0, len(t.items))
	for _, a := range t.items {
		if t.matches(f, a) {
			out = append(out, a)
		}
	}
	return out
}

func (t *Tracker) matches(f Filter, a Appointment) bool {
	future := t.cal.IsFuture(a.Instant(t.cal.Location()))
	switch f {
	case FilterUpcoming:
		return a.Status == StatusScheduled && future
	case FilterPast:
		return !future || a.Status == StatusCompleted
	default:
		return true
	}
}

func (t *Tracker) Cancel(ctx context.Context, id uuid.UUID) (Appointment, error) {
	return t.transition(ctx, id, StatusCancelled)
}

func (t *Tracker) Complete(ctx context.Context, id uuid.UUID) (Appointment, error) {
	return t.transition(ctx, id, StatusCompleted)
}

// transition persists the new status first; a terminal appointment is
// returned unchanged without touching the repository.
func (t *Tracker) transition(ctx context.Context, id uuid.UUID, to Status) (Appointment, error) {
	i := t.index(id)
	if i < 0 {
		return Appointment{}, ErrAppointmentNotFound
	}

	current := t.items[i]
	if !current.Status.CanTransition(to) {
		return current, nil
	}

	if err := t.repo.UpdateStatus(ctx, id, to); err != nil {
		return current, err
	}

	current.Status = to
	current.UpdatedAt = t.cal.Now()
	t.items[i] = current
	return current, nil
}

func (t *Tracker) index(id uuid.UUID) int {
	for i := range t.items {
		if t.items[i].ID == id {
			return i
		}
	}
	return -1
}

// Package calendar holds the date and time-slot helpers shared by booking
// and reminder scheduling. Nothing here keeps state beyond the injected clock.
package calendar

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidSlotBounds = errors.New("invalid slot bounds")

// Clock is the source of "now" for every time comparison in the core.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always reports the same instant.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }

type Calendar struct {
	clock Clock
	loc   *time.Location
}

func New(clock Clock, loc *time.Location) *Calendar {
	if clock == nil {
		clock = SystemClock{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &Calendar{clock: clock, loc: loc}
}

func (c *Calendar) Now() time.Time {
	return c.clock.Now().In(c.loc)
}

func (c *Calendar) Location() *time.Location {
	return c.loc
}

func (c *Calendar) Today() Date {
	return DateOf(c.Now())
}

// IsFuture reports whether t is strictly after now.
func (c *Calendar) IsFuture(t time.Time) bool {
	return t.After(c.clock.Now())
}

func (c *Calendar) IsToday(d Date) bool {
	return d == c.Today()
}

// NextNDays returns n consecutive days starting with today.
func (c *Calendar) NextNDays(n int) []Date {
	if n <= 0 {
		return nil
	}
	today := c.Today()
	days := make([]Date, 0, n)
	for i := 0; i < n; i++ {
		days = append(days, today.AddDays(i))
	}
	return days
}

// GenerateTimeSlots returns the slot grid from startHour:00 up to, but not
// including, endHour:00. Minutes carry into the next hour so intervals that do
// not divide 60 keep a constant spacing.
func GenerateTimeSlots(startHour, endHour, intervalMinutes int) ([]TimeOfDay, error) {
	if startHour < 0 || startHour > 24 || endHour < 0 || endHour > 24 {
		return nil, fmt.Errorf("%w: hours %d-%d", ErrInvalidSlotBounds, startHour, endHour)
	}
	if intervalMinutes <= 0 {
		return nil, fmt.Errorf("%w: interval %d", ErrInvalidSlotBounds, intervalMinutes)
	}

	var slots []TimeOfDay
	for m := startHour * 60; m < endHour*60; m += intervalMinutes {
		slots = append(slots, TimeOfDay{Hour: m / 60, Minute: m % 60})
	}
	return slots, nil
}

// NextOccurrence returns the first instant strictly after now whose wall
// clock in loc reads tod.
func NextOccurrence(now time.Time, tod TimeOfDay, loc *time.Location) time.Time {
	if loc == nil {
		loc = now.Location()
	}
	day := DateOf(now.In(loc))
	candidate := day.At(tod, loc)
	if !candidate.After(now) {
		candidate = day.AddDays(1).At(tod, loc)
	}
	return candidate
}

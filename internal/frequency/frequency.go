// Package frequency turns a prescription frequency phrase into the daily
// clock times at which a medication reminder repeats.
package frequency

import (
	"strings"

	"github.com/hackgods/health-appointment-reminders/internal/calendar"
)

type Category string

const (
	OnceDaily   Category = "once_daily"
	TwiceDaily  Category = "twice_daily"
	ThriceDaily Category = "thrice_daily"
	Morning     Category = "morning"
	Evening     Category = "evening"
	Default     Category = "default"
)

var (
	morning   = calendar.TimeOfDay{Hour: 8}
	afternoon = calendar.TimeOfDay{Hour: 14}
	evening   = calendar.TimeOfDay{Hour: 20}
)

// Rule is one row of the decision table.
type Rule struct {
	Category Category
	Phrases  []string
	Times    []calendar.TimeOfDay
}

// Rules is evaluated top to bottom; the first row with a matching phrase wins.
var Rules = []Rule{
	{Category: OnceDaily, Phrases: []string{"1 fois par jour", "une fois par jour"}, Times: []calendar.TimeOfDay{morning}},
	{Category: TwiceDaily, Phrases: []string{"2 fois par jour", "deux fois par jour"}, Times: []calendar.TimeOfDay{morning, evening}},
	{Category: ThriceDaily, Phrases: []string{"3 fois par jour", "trois fois par jour"}, Times: []calendar.TimeOfDay{morning, afternoon, evening}},
	{Category: Morning, Phrases: []string{"matin"}, Times: []calendar.TimeOfDay{morning}},
	{Category: Evening, Phrases: []string{"soir"}, Times: []calendar.TimeOfDay{evening}},
}

var defaultTimes = []calendar.TimeOfDay{morning}

// Classify returns the category of the first matching rule, or Default.
func Classify(text string) Category {
	if r, ok := match(text); ok {
		return r.Category
	}
	return Default
}

// Parse never fails: unknown or empty text falls back to 08:00.
// The result is ascending and owned by the caller.
func Parse(text string) []calendar.TimeOfDay {
	times := defaultTimes
	if r, ok := match(text); ok {
		times = r.Times
	}
	out := make([]calendar.TimeOfDay, len(times))
	copy(out, times)
	return out
}

func match(text string) (Rule, bool) {
	lower := strings.ToLower(text)
	for _, r := range Rules {
		for _, p := range r.Phrases {
			if strings.Contains(lower, p) {
				return r, true
			}
		}
	}
	return Rule{}, false
}

package calendar

import "fmt"

var frenchMonths = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// FormatDate renders d as a French long date, e.g. "19 octobre 2026".
func FormatDate(d Date) string {
	if d.Month < 1 || d.Month > 12 {
		return d.String()
	}
	return fmt.Sprintf("%d %s %d", d.Day, frenchMonths[d.Month-1], d.Year)
}

package temporal

import (
	"regexp"
	"strings"
	"time"
)

// Range is an absolute [Start, End) window derived from a relative time
// expression, computed in the user's timezone.
type Range struct {
	Start time.Time
	End   time.Time
	Label string
}

// Status tags for calendar results relative to wall-clock now.
const (
	TagAlreadyHappened = "ALREADY_HAPPENED"
	TagHappeningNow    = "HAPPENING_NOW"
	TagUpcoming        = "UPCOMING"
)

var weekdayPattern = regexp.MustCompile(`\b(next|last)?\s*(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)

var weekdays = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

// Resolver maps relative time expressions to absolute ranges. Now is
// overridable so tests can pin the clock.
type Resolver struct {
	Now func() time.Time
}

func NewResolver() *Resolver {
	return &Resolver{Now: time.Now}
}

// Resolve returns the [start, end) range for the first recognized relative
// expression in the query, computed as wall-clock time in the given IANA
// zone. All day arithmetic goes through time.Date/AddDate in the loaded
// location, so DST transitions shift the absolute instants, never the wall
// clock. Returns nil when no expression matches; that is not an error.
func (r *Resolver) Resolve(query string, timezone string) *Range {
	loc, err := time.LoadLocation(timezone)
	if err != nil || timezone == "" {
		loc = time.UTC
	}

	q := strings.ToLower(query)
	now := r.Now().In(loc)
	today := midnight(now, loc)

	switch {
	case strings.Contains(q, "today"), strings.Contains(q, "tonight"):
		label := "today"
		if strings.Contains(q, "tonight") {
			label = "tonight"
		}
		return &Range{Start: today, End: today.AddDate(0, 0, 1), Label: label}

	case strings.Contains(q, "tomorrow"):
		start := today.AddDate(0, 0, 1)
		return &Range{Start: start, End: start.AddDate(0, 0, 1), Label: "tomorrow"}

	case strings.Contains(q, "yesterday"):
		start := today.AddDate(0, 0, -1)
		return &Range{Start: start, End: today, Label: "yesterday"}

	case strings.Contains(q, "this week"):
		start := startOfWeek(today)
		return &Range{Start: start, End: start.AddDate(0, 0, 7), Label: "this week"}

	case strings.Contains(q, "last week"):
		start := startOfWeek(today).AddDate(0, 0, -7)
		return &Range{Start: start, End: start.AddDate(0, 0, 7), Label: "last week"}

	case strings.Contains(q, "next week"):
		start := startOfWeek(today).AddDate(0, 0, 7)
		return &Range{Start: start, End: start.AddDate(0, 0, 7), Label: "next week"}

	case strings.Contains(q, "this month"):
		start := firstOfMonth(today, loc)
		return &Range{Start: start, End: start.AddDate(0, 1, 0), Label: "this month"}

	case strings.Contains(q, "last month"):
		end := firstOfMonth(today, loc)
		return &Range{Start: end.AddDate(0, -1, 0), End: end, Label: "last month"}
	}

	if m := weekdayPattern.FindStringSubmatch(q); m != nil {
		modifier, name := m[1], m[2]
		target := weekdays[name]
		start := weekdayStart(today, target, modifier)
		label := strings.TrimSpace(modifier + " " + name)
		return &Range{Start: start, End: start.AddDate(0, 0, 1), Label: label}
	}

	return nil
}

// Tag classifies an event window against wall-clock now. Events without an
// explicit end are treated as one hour long.
func Tag(start time.Time, end time.Time, now time.Time) string {
	if end.IsZero() {
		end = start.Add(time.Hour)
	}
	switch {
	case !now.Before(end):
		return TagAlreadyHappened
	case !now.Before(start):
		return TagHappeningNow
	default:
		return TagUpcoming
	}
}

func midnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func firstOfMonth(today time.Time, loc *time.Location) time.Time {
	y, m, _ := today.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, loc)
}

// startOfWeek returns the Monday midnight of the week containing t.
func startOfWeek(today time.Time) time.Time {
	wd := int(today.Weekday())
	if wd == 0 {
		wd = 7 // Sunday belongs to the week that started last Monday
	}
	return today.AddDate(0, 0, -(wd - 1))
}

// weekdayStart resolves a named weekday: bare names mean the upcoming
// occurrence (today counts), "next" strictly after today, "last" strictly
// before.
func weekdayStart(today time.Time, target time.Weekday, modifier string) time.Time {
	delta := (int(target) - int(today.Weekday()) + 7) % 7
	switch modifier {
	case "next":
		if delta == 0 {
			delta = 7
		}
	case "last":
		delta -= 7
	}
	return today.AddDate(0, 0, delta)
}

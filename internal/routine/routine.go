// Package routine expands recurring weekly busy blocks into concrete busy
// intervals. A routine captures the fixed rhythm of a member's week that
// never shows up as calendar events: school hours, commute, a standing
// practice slot. Expanded intervals feed the suggestion engine as imported
// calendar data so suggestions never land inside them.
package routine

import (
	"errors"
	"fmt"
	"time"

	"github.com/example/family-planner/internal/interval"
	"github.com/example/family-planner/internal/prefs"
)

// Block describes one recurring busy block in a member's weekly routine.
// Start and End are wall-clock times in the expander's zone; From and Until
// optionally bound the dates on which the block applies.
type Block struct {
	MemberID string   `json:"memberId"`
	Label    string   `json:"label,omitempty"`
	Weekdays []string `json:"weekdays,omitempty"`
	Start    string   `json:"start"`
	End      string   `json:"end"`
	From     string   `json:"from,omitempty"`
	Until    string   `json:"until,omitempty"`
}

var (
	// ErrInvalidClock indicates a Start or End value that is not an HH:MM
	// wall-clock time, or an End that does not fall after Start.
	ErrInvalidClock = errors.New("routine: block needs a valid HH:MM start and end")

	// ErrInvalidDate indicates a From or Until value that is not a
	// calendar date.
	ErrInvalidDate = errors.New("routine: block date bounds must be YYYY-MM-DD")

	// ErrUnknownWeekday indicates a weekday token that could not be parsed.
	ErrUnknownWeekday = errors.New("routine: unknown weekday")
)

// Expander turns blocks into busy intervals for a requested window. All
// wall-clock arithmetic happens in the expander's location.
type Expander struct {
	location *time.Location
}

// NewExpander constructs an expander. A nil location falls back to UTC.
func NewExpander(loc *time.Location) *Expander {
	if loc == nil {
		loc = time.UTC
	}
	return &Expander{location: loc}
}

// Expand produces the busy intervals a block contributes to the window.
// Intervals are clipped to the window and returned in chronological order.
// A window that never intersects the block yields an empty slice.
func (e *Expander) Expand(block Block, windowStart, windowEnd time.Time) ([]interval.Interval, error) {
	if !windowEnd.After(windowStart) {
		return nil, nil
	}

	startMinute, err := parseClock(block.Start)
	if err != nil {
		return nil, err
	}
	endMinute, err := parseClock(block.End)
	if err != nil {
		return nil, err
	}
	if endMinute <= startMinute {
		return nil, ErrInvalidClock
	}

	weekdays, err := parseWeekdays(block.Weekdays)
	if err != nil {
		return nil, err
	}

	lower := windowStart.In(e.location)
	upper := windowEnd.In(e.location)

	if block.From != "" {
		from, perr := time.ParseInLocation("2006-01-02", block.From, e.location)
		if perr != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDate, block.From)
		}
		if from.After(lower) {
			lower = from
		}
	}
	if block.Until != "" {
		until, perr := time.ParseInLocation("2006-01-02", block.Until, e.location)
		if perr != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDate, block.Until)
		}
		// Until is inclusive: the block still applies on that date.
		endOfDay := until.AddDate(0, 0, 1)
		if endOfDay.Before(upper) {
			upper = endOfDay
		}
	}
	if !upper.After(lower) {
		return nil, nil
	}

	var busy []interval.Interval
	day := time.Date(lower.Year(), lower.Month(), lower.Day(), 0, 0, 0, 0, e.location)
	for day.Before(upper) {
		if _, ok := weekdays[day.Weekday()]; ok || len(weekdays) == 0 {
			blockStart := day.Add(time.Duration(startMinute) * time.Minute)
			blockEnd := day.Add(time.Duration(endMinute) * time.Minute)
			if clipped, ok := clip(blockStart, blockEnd, windowStart, windowEnd); ok {
				busy = append(busy, clipped)
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return busy, nil
}

func parseClock(value string) (int, error) {
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}

func parseWeekdays(tokens []string) (map[time.Weekday]struct{}, error) {
	set := make(map[time.Weekday]struct{}, len(tokens))
	for _, token := range tokens {
		day, ok := prefs.ParseWeekday(token)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownWeekday, token)
		}
		set[day] = struct{}{}
	}
	return set, nil
}

func clip(start, end, windowStart, windowEnd time.Time) (interval.Interval, bool) {
	if start.Before(windowStart) {
		start = windowStart
	}
	if end.After(windowEnd) {
		end = windowEnd
	}
	if !end.After(start) {
		return interval.Interval{}, false
	}
	return interval.Interval{Start: start, End: end}, true
}

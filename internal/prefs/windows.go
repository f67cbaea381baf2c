package prefs

import (
	"strconv"
	"strings"
	"time"

	"github.com/example/family-planner/internal/interval"
)

// quietFloorMinute is the earliest minute of day any inherited window may
// begin at. Explicit windows are taken as given; inherited ones never start
// before 06:00.
const quietFloorMinute = 6 * 60

// FallbackWindow returns the built-in admissible window used for a weekday
// with no explicit or default specification: evenings on Monday through
// Thursday, late morning onward on weekend-type days.
func FallbackWindow(day time.Weekday) interval.Minutes {
	if IsWeekend(day) {
		return interval.Minutes{Start: 10 * 60, End: 23*60 + 59}
	}
	return interval.Minutes{Start: 16 * 60, End: 23*60 + 59}
}

// WindowSet is a normalized, complete weekday → merged minute-window map.
// Explicit records which weekdays carried a direct entry in the source spec;
// HasExplicit reports whether the spec contributed any usable windows at all
// (direct entries or a default list).
type WindowSet struct {
	ByDay       map[time.Weekday][]interval.Minutes
	Explicit    map[time.Weekday]bool
	HasExplicit bool
}

// NormalizeWindows parses a heterogeneous window specification into a
// complete WindowSet. Accepted forms:
//
//   - a list of "HH:MM-HH:MM" strings,
//   - a list of {start, end} pairs (minutes or "HH:MM" values),
//   - a per-weekday mapping of either of the above, with an optional
//     "default" entry inherited by unlisted weekdays.
//
// Flat lists act as a default for every weekday. Weekdays without an explicit
// or default entry fall back to FallbackWindow. Inherited entries are clamped
// to begin no earlier than the quiet-hours floor.
func NormalizeWindows(spec any) WindowSet {
	set := WindowSet{
		ByDay:    make(map[time.Weekday][]interval.Minutes, len(CanonicalWeekdays)),
		Explicit: make(map[time.Weekday]bool),
	}

	explicit := make(map[time.Weekday][]interval.Minutes)
	var defaultWindows []interval.Minutes
	hasDefault := false

	switch v := spec.(type) {
	case nil:
	case map[string]any:
		for key, raw := range v {
			windows := parseWindowList(raw)
			if strings.EqualFold(strings.TrimSpace(key), "default") {
				defaultWindows = windows
				hasDefault = len(windows) > 0
				continue
			}
			if day, ok := ParseWeekday(key); ok && len(windows) > 0 {
				explicit[day] = append(explicit[day], windows...)
			}
		}
	default:
		// Flat lists apply to every weekday.
		if windows := parseWindowList(spec); len(windows) > 0 {
			defaultWindows = windows
			hasDefault = true
		}
	}

	set.HasExplicit = hasDefault || len(explicit) > 0
	for _, day := range CanonicalWeekdays {
		if windows, ok := explicit[day]; ok {
			set.ByDay[day] = interval.MergeMinutes(windows)
			set.Explicit[day] = true
			continue
		}
		if hasDefault {
			set.ByDay[day] = applyQuietFloor(interval.MergeMinutes(defaultWindows))
			continue
		}
		set.ByDay[day] = applyQuietFloor([]interval.Minutes{FallbackWindow(day)})
	}
	return set
}

func applyQuietFloor(windows []interval.Minutes) []interval.Minutes {
	out := make([]interval.Minutes, 0, len(windows))
	for _, w := range windows {
		w = interval.ClampMinutes(w, quietFloorMinute, interval.MinutesPerDay)
		if w.Valid() {
			out = append(out, w)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// parseWindowList normalizes one window list value: a single span, a list of
// spans, or a list of {start,end} pairs. Malformed entries are dropped.
func parseWindowList(raw any) []interval.Minutes {
	var out []interval.Minutes
	switch v := raw.(type) {
	case nil:
	case string:
		if w, ok := parseSpan(v); ok {
			out = append(out, w)
		}
	case []string:
		for _, s := range v {
			if w, ok := parseSpan(s); ok {
				out = append(out, w)
			}
		}
	case []any:
		for _, item := range v {
			switch entry := item.(type) {
			case string:
				if w, ok := parseSpan(entry); ok {
					out = append(out, w)
				}
			case map[string]any:
				if w, ok := parsePair(entry); ok {
					out = append(out, w)
				}
			}
		}
	case []map[string]any:
		for _, entry := range v {
			if w, ok := parsePair(entry); ok {
				out = append(out, w)
			}
		}
	case map[string]any:
		if w, ok := parsePair(v); ok {
			out = append(out, w)
		}
	}
	return out
}

// parseSpan parses "HH:MM-HH:MM" into a minute window.
func parseSpan(s string) (interval.Minutes, bool) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return interval.Minutes{}, false
	}
	start, ok := parseMinuteOfDay(strings.TrimSpace(parts[0]))
	if !ok {
		return interval.Minutes{}, false
	}
	end, ok := parseMinuteOfDay(strings.TrimSpace(parts[1]))
	if !ok {
		return interval.Minutes{}, false
	}
	w := interval.ClampMinutes(interval.Minutes{Start: start, End: end}, 0, interval.MinutesPerDay)
	if !w.Valid() {
		return interval.Minutes{}, false
	}
	return w, true
}

func parsePair(entry map[string]any) (interval.Minutes, bool) {
	start, okStart := minuteValue(entry["start"])
	end, okEnd := minuteValue(entry["end"])
	if !okStart || !okEnd {
		return interval.Minutes{}, false
	}
	w := interval.ClampMinutes(interval.Minutes{Start: start, End: end}, 0, interval.MinutesPerDay)
	if !w.Valid() {
		return interval.Minutes{}, false
	}
	return w, true
}

// minuteValue interprets a pair field as either integer minutes since
// midnight or an "HH:MM" string.
func minuteValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		return parseMinuteOfDay(strings.TrimSpace(n))
	default:
		return 0, false
	}
}

// parseMinuteOfDay parses "HH:MM" or a bare integer string into minutes since
// midnight. "24:00" is accepted as the exclusive end of day.
func parseMinuteOfDay(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	if h, m, ok := strings.Cut(s, ":"); ok {
		hour, err := strconv.Atoi(h)
		if err != nil || hour < 0 || hour > 24 {
			return 0, false
		}
		minute, err := strconv.Atoi(m)
		if err != nil || minute < 0 || minute > 59 {
			return 0, false
		}
		total := hour*60 + minute
		if total > interval.MinutesPerDay {
			return 0, false
		}
		return total, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

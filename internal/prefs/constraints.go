package prefs

import (
	"time"

	"github.com/example/family-planner/internal/interval"
)

// DefaultTimeZone is the project-wide fallback when neither the group nor any
// participant declares a timezone.
const DefaultTimeZone = "UTC"

// GroupConstraints is the single resolved constraint value every downstream
// engine stage reads. A nil *GroupConstraints means the preference
// intersection left nothing usable; that is a normal outcome, not an error.
type GroupConstraints struct {
	AllowedWeekdays []time.Weekday
	AllowedWindows  map[time.Weekday][]interval.Minutes

	MinDurationMinutes       int
	MaxDurationMinutes       int
	PreferredDurationMinutes int
	SlotStepMinutes          int

	MaxSuggestionDaysPerWeek int // 0 means unlimited
	TimeZone                 string

	PeriodStart time.Time
	PeriodEnd   time.Time

	// HasWeekdayPreference marks that at least one party declared interest in
	// a Monday–Thursday day, so the selector must keep a weekday slot alive.
	HasWeekdayPreference bool
}

// WindowsFor returns the admissible windows for a weekday, or nil when the
// day is not schedulable.
func (c *GroupConstraints) WindowsFor(day time.Weekday) []interval.Minutes {
	if c == nil {
		return nil
	}
	return c.AllowedWindows[day]
}

// ResolveGroupConstraints folds the group preference record and all
// participant records into one GroupConstraints value. It returns nil when
// the weekday or window intersection becomes empty, with one compromise: when
// the strict intersection erased every Monday–Thursday window but some
// participant explicitly asked for one, that participant's earliest weekday
// window is injected back in.
func ResolveGroupConstraints(group Resolved, participants []Resolved, periodStart, periodEnd time.Time, defaultTimeZone string) *GroupConstraints {
	allowed := weekdaySet(group.AllowedWeekdays)
	for _, p := range participants {
		if !p.HasExplicitWeekdays {
			continue
		}
		allowed = intersectWeekdaySets(allowed, weekdaySet(p.AllowedWeekdays))
		if len(allowed) == 0 {
			return nil
		}
	}

	windows := make(map[time.Weekday][]interval.Minutes, len(allowed))
	for day := range allowed {
		windows[day] = append([]interval.Minutes(nil), group.Windows.ByDay[day]...)
	}
	for _, p := range participants {
		for day := range allowed {
			windows[day] = interval.IntersectMinutes(windows[day], p.Windows.ByDay[day])
		}
	}
	for day, list := range windows {
		if len(list) == 0 {
			delete(windows, day)
		}
	}

	hasWeekdayPreference := false
	if !hasWeekdayWindows(windows) {
		if day, window, ok := earliestDeclaredWeekdayWindow(participants); ok {
			windows[day] = []interval.Minutes{window}
			allowed[day] = struct{}{}
			hasWeekdayPreference = true
		}
	}

	if len(windows) == 0 {
		return nil
	}

	if !hasWeekdayPreference && hasWeekdayWindows(windows) && anyDeclaredWeekdayInterest(group, participants) {
		hasWeekdayPreference = true
	}

	constraints := &GroupConstraints{
		AllowedWindows:       windows,
		PeriodStart:          periodStart,
		PeriodEnd:            periodEnd,
		HasWeekdayPreference: hasWeekdayPreference,
	}
	for _, day := range CanonicalWeekdays {
		if _, ok := windows[day]; ok {
			constraints.AllowedWeekdays = append(constraints.AllowedWeekdays, day)
		}
	}

	resolveDurations(constraints, group, participants)
	constraints.TimeZone = resolveTimeZone(group, participants, defaultTimeZone)

	return constraints
}

// resolveDurations reconciles numeric bounds across all records: among the
// declared values the most restrictive low and high win, the finest slot step
// wins, the smallest weekly quota wins. Undeclared bounds collapse onto the
// reconciled preferred duration.
func resolveDurations(constraints *GroupConstraints, group Resolved, participants []Resolved) {
	records := append([]Resolved{group}, participants...)

	minDuration, maxDuration, preferred := 0, 0, 0
	step := group.SlotStepMinutes
	quota := 0

	for _, rec := range records {
		if rec.HasMinDuration && rec.MinDurationMinutes > minDuration {
			minDuration = rec.MinDurationMinutes
		}
		if rec.HasMaxDuration && (maxDuration == 0 || rec.MaxDurationMinutes < maxDuration) {
			maxDuration = rec.MaxDurationMinutes
		}
		if rec.HasPreferredDuration && (preferred == 0 || rec.PreferredDurationMinutes < preferred) {
			preferred = rec.PreferredDurationMinutes
		}
		if rec.HasSlotStep && rec.SlotStepMinutes < step {
			step = rec.SlotStepMinutes
		}
		if rec.MaxSuggestionDaysPerWeek > 0 && (quota == 0 || rec.MaxSuggestionDaysPerWeek < quota) {
			quota = rec.MaxSuggestionDaysPerWeek
		}
	}

	if preferred == 0 {
		preferred = group.PreferredDurationMinutes
	}
	if minDuration == 0 {
		minDuration = preferred
	}
	if maxDuration == 0 {
		maxDuration = max(preferred, minDuration)
	}
	if minDuration > maxDuration {
		minDuration = maxDuration
	}
	if step < MinSlotStepMinutes {
		step = MinSlotStepMinutes
	}

	constraints.MinDurationMinutes = minDuration
	constraints.MaxDurationMinutes = maxDuration
	constraints.PreferredDurationMinutes = clampInt(preferred, minDuration, maxDuration)
	constraints.SlotStepMinutes = step
	constraints.MaxSuggestionDaysPerWeek = quota
}

// resolveTimeZone picks the group's explicit zone, then the first participant
// declaration, then the supplied default, then the project default.
func resolveTimeZone(group Resolved, participants []Resolved, defaultTimeZone string) string {
	if group.TimeZone != "" {
		return group.TimeZone
	}
	for _, p := range participants {
		if p.TimeZone != "" {
			return p.TimeZone
		}
	}
	if defaultTimeZone != "" {
		return defaultTimeZone
	}
	return DefaultTimeZone
}

func weekdaySet(days []time.Weekday) map[time.Weekday]struct{} {
	set := make(map[time.Weekday]struct{}, len(days))
	for _, day := range days {
		set[day] = struct{}{}
	}
	return set
}

func intersectWeekdaySets(a, b map[time.Weekday]struct{}) map[time.Weekday]struct{} {
	out := make(map[time.Weekday]struct{})
	for day := range a {
		if _, ok := b[day]; ok {
			out[day] = struct{}{}
		}
	}
	return out
}

func hasWeekdayWindows(windows map[time.Weekday][]interval.Minutes) bool {
	for day, list := range windows {
		if !IsWeekend(day) && len(list) > 0 {
			return true
		}
	}
	return false
}

// earliestDeclaredWeekdayWindow scans participants in order for an explicitly
// declared Monday–Thursday window and returns the earliest-starting one of
// the first participant that has any.
func earliestDeclaredWeekdayWindow(participants []Resolved) (time.Weekday, interval.Minutes, bool) {
	for _, p := range participants {
		bestDay := time.Weekday(-1)
		var best interval.Minutes
		for _, day := range CanonicalWeekdays {
			if IsWeekend(day) || !p.Windows.Explicit[day] {
				continue
			}
			for _, w := range p.Windows.ByDay[day] {
				if bestDay < 0 || w.Start < best.Start {
					bestDay = day
					best = w
				}
			}
		}
		if bestDay >= 0 {
			return bestDay, best, true
		}
	}
	return 0, interval.Minutes{}, false
}

// anyDeclaredWeekdayInterest reports whether the group or any participant
// explicitly asked for a Monday–Thursday day, via weekday sets or direct
// window entries.
func anyDeclaredWeekdayInterest(group Resolved, participants []Resolved) bool {
	records := append([]Resolved{group}, participants...)
	for _, rec := range records {
		if rec.HasExplicitWeekdays {
			for _, day := range rec.AllowedWeekdays {
				if !IsWeekend(day) {
					return true
				}
			}
		}
		for day, explicit := range rec.Windows.Explicit {
			if explicit && !IsWeekend(day) {
				return true
			}
		}
	}
	return false
}

// Package suggest implements the mutual-availability and slot-suggestion
// engine: it intersects participants' free time under layered scheduling
// preferences and deterministically carves the result into a small set of
// concrete candidate appointment slots.
//
// The engine is a pure function of its inputs. It performs no I/O, retains no
// state between invocations, and never returns an error: malformed or
// contradictory input degrades to an empty result. Determinism is a hard
// requirement — identical inputs and seed key produce identical output, so a
// reactive caller can recompute on every upstream change without suggestion
// flicker.
package suggest

import (
	"time"

	"github.com/example/family-planner/internal/interval"
	"github.com/example/family-planner/internal/prefs"
)

// CalendarEntry is one participant's busy time and preference input. The busy
// list does not need to be sorted or merged; the engine normalizes it.
type CalendarEntry struct {
	ParticipantID string
	Busy          []interval.Interval
	Preferences   *prefs.Record
}

// Params carries one engine invocation's inputs.
type Params struct {
	Calendars   []CalendarEntry
	PeriodStart time.Time
	PeriodEnd   time.Time

	// GroupPreferences is the group-level default record; UserPreferences
	// overrides per participant and wins over CalendarEntry.Preferences.
	GroupPreferences *prefs.Record
	UserPreferences  map[string]*prefs.Record

	// GlobalBusy holds shared busy intervals (confirmed and pending group
	// events) that block every participant at once.
	GlobalBusy []interval.Interval

	MaxSuggestions             int // 0 means the default of 12
	DefaultSlotDurationMinutes int // 0 means the default of 60
	SeedKey                    string
}

// Suggestion is one presentable candidate appointment slot. The ID is derived
// deterministically from the slot bounds and position.
type Suggestion struct {
	ID    string    `json:"id"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Result is the engine output. Constraints is nil when the preference
// intersection was unsatisfiable; an empty Slots list with non-nil
// Constraints means the configuration is fine but nothing is currently free.
type Result struct {
	Slots       []Suggestion            `json:"slots"`
	Constraints *prefs.GroupConstraints `json:"constraints"`
}

// dayGroup is one local calendar day inside the horizon that has at least one
// admissible window.
type dayGroup struct {
	dayKey   string // local date, e.g. "2026-09-08"
	dayID    string // date plus weekday code, e.g. "2026-09-08-tue"
	weekKey  string // ISO year-week, e.g. "2026-W37"
	weekday  time.Weekday
	dayStart time.Time // instant of local midnight

	windows  []interval.Interval // admissible absolute windows, clipped to the horizon
	eligible []interval.Interval // windows ∩ common free time
}

func (g *dayGroup) isWeekend() bool {
	return prefs.IsWeekend(g.weekday)
}

// candidateSlot is a generated slot before quota selection.
type candidateSlot struct {
	start time.Time
	end   time.Time

	startMinute     int // minutes since local midnight
	durationMinutes int

	dayKey  string
	dayID   string
	weekKey string
	weekday time.Weekday
}

package suggest

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/family-planner/internal/prefs"
	"github.com/example/family-planner/internal/tzoffset"
)

// Defaults applied when Params leaves the corresponding field unset.
const (
	DefaultMaxSuggestions = 12
	DefaultSlotDuration   = 60
)

// suggestionNamespace seeds the deterministic SHA1 UUIDs assigned to slots.
var suggestionNamespace = uuid.MustParse("3f1aebb4-75d1-4a33-9c3f-2b6f3a8c5e17")

// Engine computes mutual-availability suggestions. It holds only injected
// collaborators (timezone offsets, clock) and is safe for concurrent use.
type Engine struct {
	offsets         tzoffset.Provider
	now             func() time.Time
	defaultTimeZone string
}

// Option configures an Engine.
type Option func(*Engine)

// WithDefaultTimeZone sets the zone used when neither the group nor any
// participant declares one.
func WithDefaultTimeZone(zoneID string) Option {
	return func(e *Engine) { e.defaultTimeZone = zoneID }
}

// NewEngine constructs an engine. A nil provider degrades to UTC offsets and
// a nil clock to time.Now.
func NewEngine(offsets tzoffset.Provider, now func() time.Time, opts ...Option) *Engine {
	if offsets == nil {
		offsets = tzoffset.UTC{}
	}
	if now == nil {
		now = time.Now
	}
	e := &Engine{offsets: offsets, now: now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ComputeSuggestions resolves group constraints, intersects everyone's free
// time with the admissible windows, and deterministically places candidate
// slots. It never returns an error: an invalid horizon or unsatisfiable
// constraints yield an empty result with nil Constraints, while a valid
// configuration with no common free time yields empty Slots alongside the
// resolved Constraints.
func (e *Engine) ComputeSuggestions(params Params) Result {
	maxSuggestions := params.MaxSuggestions
	if maxSuggestions <= 0 {
		maxSuggestions = DefaultMaxSuggestions
	}
	slotDuration := params.DefaultSlotDurationMinutes
	if slotDuration <= 0 {
		slotDuration = DefaultSlotDuration
	}

	if params.PeriodStart.IsZero() || params.PeriodEnd.IsZero() || !params.PeriodEnd.After(params.PeriodStart) {
		return Result{}
	}

	resolveOpts := prefs.ResolveOptions{DefaultPreferredDurationMinutes: slotDuration}
	group := prefs.Resolve(params.GroupPreferences, resolveOpts)
	participants := make([]prefs.Resolved, len(params.Calendars))
	for i, entry := range params.Calendars {
		record := entry.Preferences
		if override, ok := params.UserPreferences[entry.ParticipantID]; ok && override != nil {
			record = override
		}
		participants[i] = prefs.Resolve(record, resolveOpts)
	}

	constraints := prefs.ResolveGroupConstraints(group, participants, params.PeriodStart, params.PeriodEnd, e.defaultTimeZone)
	if constraints == nil {
		return Result{}
	}

	groups := e.segmentDays(constraints)
	if len(groups) == 0 {
		return Result{Constraints: constraints}
	}

	if !resolveEligible(groups, params, participants, constraints) {
		return Result{Constraints: constraints}
	}

	candidates := generateCandidates(groups, constraints, params.SeedKey)
	if len(candidates) == 0 {
		return Result{Constraints: constraints}
	}

	now := e.now()
	nowOffset := e.offsets.OffsetMinutes(now, constraints.TimeZone)
	selected := selectSlots(candidates, constraints, now, nowOffset, maxSuggestions, params.SeedKey)

	slots := make([]Suggestion, 0, len(selected))
	for i, slot := range selected {
		slots = append(slots, Suggestion{
			ID:    suggestionID(slot.start, slot.end, i),
			Start: slot.start,
			End:   slot.end,
		})
	}
	return Result{Slots: slots, Constraints: constraints}
}

// suggestionID derives a stable identifier from the slot bounds and its
// position, so repeated invocations hand the UI identical IDs.
func suggestionID(start, end time.Time, index int) string {
	name := fmt.Sprintf("%d|%d|%d", start.Unix(), end.Unix(), index)
	return uuid.NewSHA1(suggestionNamespace, []byte(name)).String()
}

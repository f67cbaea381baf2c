package prefs

import "time"

// Defaults applied during preference resolution. Undeclared duration bounds
// collapse onto the preferred duration, so a participant with no opinion
// contributes exactly one slot length.
const (
	DefaultPreferredDurationMinutes = 60
	DefaultSlotStepMinutes          = 15
	MinSlotStepMinutes              = 15
)

// Record is the loose, wire-shaped preference input supplied per participant
// and once for the whole group. Absent fields mean "no opinion"; TimeWindows
// carries any of the heterogeneous forms NormalizeWindows accepts.
type Record struct {
	AllowedWeekdays          []string `json:"allowedWeekdays,omitempty"`
	TimeWindows              any      `json:"timeWindows,omitempty"`
	MinDurationMinutes       *int     `json:"minDurationMinutes,omitempty"`
	MaxDurationMinutes       *int     `json:"maxDurationMinutes,omitempty"`
	PreferredDurationMinutes *int     `json:"preferredDurationMinutes,omitempty"`
	BufferBeforeMinutes      *int     `json:"bufferBeforeMinutes,omitempty"`
	BufferAfterMinutes       *int     `json:"bufferAfterMinutes,omitempty"`
	TimeZone                 string   `json:"timeZone,omitempty"`
	MaxSuggestionDaysPerWeek *int     `json:"maxSuggestionDaysPerWeek,omitempty"`
	SlotStepMinutes          *int     `json:"slotStepMinutes,omitempty"`
}

// Resolved is a preference record with every field filled in, built once so
// downstream logic never re-derives defaults. The HasExplicit* flags preserve
// whether the participant actually declared the corresponding field.
type Resolved struct {
	AllowedWeekdays     []time.Weekday
	HasExplicitWeekdays bool

	Windows WindowSet

	MinDurationMinutes       int
	HasMinDuration           bool
	MaxDurationMinutes       int
	HasMaxDuration           bool
	PreferredDurationMinutes int
	HasPreferredDuration     bool

	BufferBeforeMinutes int
	BufferAfterMinutes  int

	TimeZone string

	MaxSuggestionDaysPerWeek int // 0 means unlimited
	SlotStepMinutes          int
	HasSlotStep              bool
}

// ResolveOptions tunes the defaults applied while resolving a record.
type ResolveOptions struct {
	// DefaultPreferredDurationMinutes overrides the preferred-duration
	// default when positive.
	DefaultPreferredDurationMinutes int
}

// Resolve builds a fully-defaulted preference record from loose input. A nil
// record resolves to pure defaults. Numeric fields are floored at zero and
// min/max durations are reconciled so min never exceeds max.
func Resolve(rec *Record, opts ResolveOptions) Resolved {
	preferredDefault := opts.DefaultPreferredDurationMinutes
	if preferredDefault <= 0 {
		preferredDefault = DefaultPreferredDurationMinutes
	}

	resolved := Resolved{
		AllowedWeekdays:          append([]time.Weekday(nil), CanonicalWeekdays...),
		PreferredDurationMinutes: preferredDefault,
		SlotStepMinutes:          DefaultSlotStepMinutes,
	}
	minDeclared, maxDeclared := -1, -1

	if rec != nil {
		if days := ParseWeekdays(rec.AllowedWeekdays); len(days) > 0 {
			resolved.AllowedWeekdays = days
			resolved.HasExplicitWeekdays = true
		}
		resolved.Windows = NormalizeWindows(rec.TimeWindows)

		if v := intOrDefault(rec.PreferredDurationMinutes, -1); v > 0 {
			resolved.PreferredDurationMinutes = v
			resolved.HasPreferredDuration = true
		}
		if v := intOrDefault(rec.MinDurationMinutes, -1); v > 0 {
			minDeclared = v
			resolved.HasMinDuration = true
		}
		if v := intOrDefault(rec.MaxDurationMinutes, -1); v > 0 {
			maxDeclared = v
			resolved.HasMaxDuration = true
		}
		resolved.BufferBeforeMinutes = intOrDefault(rec.BufferBeforeMinutes, 0)
		resolved.BufferAfterMinutes = intOrDefault(rec.BufferAfterMinutes, 0)
		if resolved.BufferBeforeMinutes < 0 {
			resolved.BufferBeforeMinutes = 0
		}
		if resolved.BufferAfterMinutes < 0 {
			resolved.BufferAfterMinutes = 0
		}
		resolved.TimeZone = rec.TimeZone
		if v := intOrDefault(rec.MaxSuggestionDaysPerWeek, 0); v > 0 {
			resolved.MaxSuggestionDaysPerWeek = v
		}
		if v := intOrDefault(rec.SlotStepMinutes, 0); v > 0 {
			resolved.SlotStepMinutes = v
			resolved.HasSlotStep = true
		}
	}
	if resolved.Windows.ByDay == nil {
		resolved.Windows = NormalizeWindows(nil)
	}

	if resolved.SlotStepMinutes < MinSlotStepMinutes {
		resolved.SlotStepMinutes = MinSlotStepMinutes
	}

	resolved.MinDurationMinutes = minDeclared
	if resolved.MinDurationMinutes <= 0 {
		resolved.MinDurationMinutes = resolved.PreferredDurationMinutes
	}
	resolved.MaxDurationMinutes = maxDeclared
	if resolved.MaxDurationMinutes <= 0 {
		resolved.MaxDurationMinutes = max(resolved.PreferredDurationMinutes, resolved.MinDurationMinutes)
	}
	if resolved.MinDurationMinutes > resolved.MaxDurationMinutes {
		resolved.MinDurationMinutes = resolved.MaxDurationMinutes
	}
	resolved.PreferredDurationMinutes = clampInt(resolved.PreferredDurationMinutes, resolved.MinDurationMinutes, resolved.MaxDurationMinutes)

	return resolved
}

func intOrDefault(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

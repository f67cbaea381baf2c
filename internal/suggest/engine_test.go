package suggest

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/example/family-planner/internal/interval"
	"github.com/example/family-planner/internal/prefs"
	"github.com/example/family-planner/internal/tzoffset"
)

// fixedOffset is a test provider with a constant UTC offset.
type fixedOffset int

func (f fixedOffset) OffsetMinutes(time.Time, string) int { return int(f) }

func intPtr(v int) *int { return &v }

// testEngine returns an engine pinned to the Sunday before the default test
// horizon, so the same-day rule never interferes unless a test wants it to.
func testEngine() *Engine {
	now := time.Date(2026, 9, 6, 12, 0, 0, 0, time.UTC)
	return NewEngine(tzoffset.UTC{}, func() time.Time { return now })
}

// horizon returns a Monday-anchored period of the given length in days.
func horizon(days int) (time.Time, time.Time) {
	start := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, days)
}

func assertWellFormed(t *testing.T, result Result, periodStart, periodEnd time.Time) {
	t.Helper()
	seen := make(map[string]struct{}, len(result.Slots))
	for i, slot := range result.Slots {
		if slot.ID == "" {
			t.Fatalf("slot %d has empty ID", i)
		}
		if _, dup := seen[slot.ID]; dup {
			t.Fatalf("duplicate slot ID %s", slot.ID)
		}
		seen[slot.ID] = struct{}{}
		if !slot.End.After(slot.Start) {
			t.Fatalf("slot %d is not a positive interval: %v..%v", i, slot.Start, slot.End)
		}
		if slot.Start.Before(periodStart) || slot.End.After(periodEnd) {
			t.Fatalf("slot %d escapes the horizon: %v..%v", i, slot.Start, slot.End)
		}
		if i > 0 {
			prev := result.Slots[i-1]
			if slot.Start.Before(prev.Start) {
				t.Fatalf("slots out of order at %d", i)
			}
			if prev.End.After(slot.Start) {
				t.Fatalf("slots %d and %d overlap", i-1, i)
			}
		}
	}
}

func TestComputeSuggestionsDefaults(t *testing.T) {
	t.Parallel()

	start, end := horizon(21)
	result := testEngine().ComputeSuggestions(Params{
		Calendars: []CalendarEntry{
			{ParticipantID: "alice"},
			{ParticipantID: "bob"},
		},
		PeriodStart:    start,
		PeriodEnd:      end,
		MaxSuggestions: 5,
	})

	if result.Constraints == nil {
		t.Fatal("expected resolved constraints")
	}
	if len(result.Slots) != 5 {
		t.Fatalf("slots: got %d, want 5", len(result.Slots))
	}
	assertWellFormed(t, result, start, end)
	for i, slot := range result.Slots {
		if d := slot.End.Sub(slot.Start); d != time.Hour {
			t.Fatalf("slot %d duration %v, want 1h under default preferences", i, d)
		}
	}
}

func TestComputeSuggestionsDeterminism(t *testing.T) {
	t.Parallel()

	start, end := horizon(21)
	params := Params{
		Calendars: []CalendarEntry{
			{
				ParticipantID: "alice",
				Busy: []interval.Interval{
					{Start: start.Add(18 * time.Hour), End: start.Add(20 * time.Hour)},
					{Start: start.AddDate(0, 0, 5).Add(10 * time.Hour), End: start.AddDate(0, 0, 5).Add(14 * time.Hour)},
				},
				Preferences: &prefs.Record{
					MinDurationMinutes: intPtr(45),
					MaxDurationMinutes: intPtr(150),
				},
			},
			{
				ParticipantID: "bob",
				Preferences: &prefs.Record{
					BufferBeforeMinutes: intPtr(10),
					BufferAfterMinutes:  intPtr(10),
				},
			},
		},
		PeriodStart:    start,
		PeriodEnd:      end,
		MaxSuggestions: 4,
		SeedKey:        "family-42",
	}

	first := testEngine().ComputeSuggestions(params)
	second := testEngine().ComputeSuggestions(params)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("results differ across identical invocations:\n%+v\n%+v", first, second)
	}
	if len(first.Slots) == 0 {
		t.Fatal("expected at least one slot")
	}
	assertWellFormed(t, first, start, end)
}

func TestComputeSuggestionsFullyBusy(t *testing.T) {
	t.Parallel()

	start, end := horizon(14)
	result := testEngine().ComputeSuggestions(Params{
		Calendars: []CalendarEntry{
			{ParticipantID: "alice", Busy: []interval.Interval{{Start: start, End: end}}},
			{ParticipantID: "bob"},
		},
		PeriodStart: start,
		PeriodEnd:   end,
	})

	if result.Constraints == nil {
		t.Fatal("a blocked calendar must still resolve constraints")
	}
	if len(result.Slots) != 0 {
		t.Fatalf("expected no slots, got %d", len(result.Slots))
	}
}

func TestComputeSuggestionsContradictoryWeekdays(t *testing.T) {
	t.Parallel()

	start, end := horizon(14)
	result := testEngine().ComputeSuggestions(Params{
		Calendars: []CalendarEntry{
			{
				ParticipantID: "alice",
				Preferences:   &prefs.Record{AllowedWeekdays: []string{"saturday"}},
			},
		},
		GroupPreferences: &prefs.Record{AllowedWeekdays: []string{"monday"}},
		PeriodStart:      start,
		PeriodEnd:        end,
	})

	if result.Constraints != nil {
		t.Fatal("contradictory weekday sets must yield nil constraints")
	}
	if len(result.Slots) != 0 {
		t.Fatalf("expected no slots, got %d", len(result.Slots))
	}
}

func TestComputeSuggestionsInvalidHorizon(t *testing.T) {
	t.Parallel()

	start, _ := horizon(7)
	result := testEngine().ComputeSuggestions(Params{
		Calendars:   []CalendarEntry{{ParticipantID: "alice"}},
		PeriodStart: start,
		PeriodEnd:   start.AddDate(0, 0, -1),
	})
	if result.Constraints != nil || len(result.Slots) != 0 {
		t.Fatalf("inverted horizon must yield an empty result, got %+v", result)
	}
}

func TestComputeSuggestionsWeekdayWindowInjection(t *testing.T) {
	t.Parallel()

	start, end := horizon(21)
	result := testEngine().ComputeSuggestions(Params{
		Calendars: []CalendarEntry{
			{
				ParticipantID: "alice",
				Preferences: &prefs.Record{
					TimeWindows: map[string]any{"tuesday": []string{"17:00-20:00"}},
				},
			},
			{ParticipantID: "bob"},
		},
		GroupPreferences: &prefs.Record{AllowedWeekdays: []string{"saturday", "sunday"}},
		PeriodStart:      start,
		PeriodEnd:        end,
		MaxSuggestions:   6,
	})

	if result.Constraints == nil {
		t.Fatal("expected resolved constraints")
	}
	assertWellFormed(t, result, start, end)

	var tuesday, weekend bool
	for _, slot := range result.Slots {
		switch slot.Start.Weekday() {
		case time.Tuesday:
			tuesday = true
			startMinute := slot.Start.Hour()*60 + slot.Start.Minute()
			endMinute := slot.End.Hour()*60 + slot.End.Minute()
			if startMinute < 17*60 || endMinute > 20*60 {
				t.Fatalf("tuesday slot outside the declared window: %v..%v", slot.Start, slot.End)
			}
		case time.Saturday, time.Sunday:
			weekend = true
		default:
			t.Fatalf("unexpected weekday %v", slot.Start.Weekday())
		}
	}
	if !tuesday {
		t.Fatal("the declared tuesday window must contribute a slot")
	}
	if !weekend {
		t.Fatal("expected weekend slots alongside the tuesday one")
	}
}

func TestComputeSuggestionsBusyBuffers(t *testing.T) {
	t.Parallel()

	start, end := horizon(21)
	busy := interval.Interval{
		Start: start.Add(18 * time.Hour),
		End:   start.Add(19 * time.Hour),
	}
	blocked := interval.Interval{
		Start: busy.Start.Add(-15 * time.Minute),
		End:   busy.End.Add(15 * time.Minute),
	}

	result := testEngine().ComputeSuggestions(Params{
		Calendars: []CalendarEntry{
			{
				ParticipantID: "alice",
				Busy:          []interval.Interval{busy},
				Preferences: &prefs.Record{
					BufferBeforeMinutes: intPtr(15),
					BufferAfterMinutes:  intPtr(15),
				},
			},
		},
		PeriodStart:    start,
		PeriodEnd:      end,
		MaxSuggestions: 20,
	})

	if len(result.Slots) == 0 {
		t.Fatal("expected slots")
	}
	for _, slot := range result.Slots {
		if slot.Start.Before(blocked.End) && blocked.Start.Before(slot.End) {
			t.Fatalf("slot %v..%v intersects the buffered busy interval", slot.Start, slot.End)
		}
	}
}

func TestComputeSuggestionsWeeklyDayQuota(t *testing.T) {
	t.Parallel()

	start, end := horizon(7)
	result := testEngine().ComputeSuggestions(Params{
		Calendars: []CalendarEntry{
			{
				ParticipantID: "alice",
				Preferences:   &prefs.Record{MaxSuggestionDaysPerWeek: intPtr(1)},
			},
		},
		PeriodStart:    start,
		PeriodEnd:      end,
		MaxSuggestions: 6,
	})

	if len(result.Slots) == 0 {
		t.Fatal("expected at least one slot")
	}
	daysPerWeek := make(map[string]map[string]struct{})
	for _, slot := range result.Slots {
		isoYear, isoWeek := slot.Start.ISOWeek()
		week := fmt.Sprintf("%04d-W%02d", isoYear, isoWeek)
		days, ok := daysPerWeek[week]
		if !ok {
			days = make(map[string]struct{})
			daysPerWeek[week] = days
		}
		days[slot.Start.Format("2006-01-02")] = struct{}{}
		if len(days) > 1 {
			t.Fatalf("week %s uses %d distinct days, quota is 1", week, len(days))
		}
	}
}

func TestComputeSuggestionsDurationBounds(t *testing.T) {
	t.Parallel()

	start, end := horizon(21)
	result := testEngine().ComputeSuggestions(Params{
		Calendars: []CalendarEntry{
			{
				ParticipantID: "alice",
				Preferences: &prefs.Record{
					MinDurationMinutes: intPtr(30),
					MaxDurationMinutes: intPtr(240),
				},
			},
		},
		PeriodStart:    start,
		PeriodEnd:      end,
		MaxSuggestions: 10,
	})

	if len(result.Slots) == 0 {
		t.Fatal("expected slots")
	}
	for _, slot := range result.Slots {
		minutes := int(slot.End.Sub(slot.Start) / time.Minute)
		if minutes < 30 || minutes > 240 {
			t.Fatalf("slot duration %dm outside declared bounds", minutes)
		}
		switch slot.Start.Weekday() {
		case time.Friday, time.Saturday, time.Sunday:
			if minutes < 120 {
				t.Fatalf("weekend slot shorter than the raised floor: %dm", minutes)
			}
		default:
			if minutes > 180 {
				t.Fatalf("weekday slot longer than the cap: %dm", minutes)
			}
		}
		if minutes%15 != 0 {
			t.Fatalf("slot duration %dm not aligned to the slot step", minutes)
		}
	}
}

func TestComputeSuggestionsNarrowDurationBand(t *testing.T) {
	t.Parallel()

	// 70 to 70 minutes contains no multiple of the slot step; the declared
	// band still wins, so every slot is exactly 70 minutes long.
	start, end := horizon(14)
	result := testEngine().ComputeSuggestions(Params{
		Calendars: []CalendarEntry{
			{
				ParticipantID: "alice",
				Preferences: &prefs.Record{
					MinDurationMinutes: intPtr(70),
					MaxDurationMinutes: intPtr(70),
				},
			},
		},
		PeriodStart:    start,
		PeriodEnd:      end,
		MaxSuggestions: 10,
	})

	if len(result.Slots) == 0 {
		t.Fatal("expected slots")
	}
	for _, slot := range result.Slots {
		if minutes := int(slot.End.Sub(slot.Start) / time.Minute); minutes != 70 {
			t.Fatalf("expected exactly 70 minute slots, got %dm", minutes)
		}
	}
}

func TestComputeSuggestionsSameDayRule(t *testing.T) {
	t.Parallel()

	start, end := horizon(3)

	t.Run("morning invocation drops today", func(t *testing.T) {
		t.Parallel()

		now := start.Add(9 * time.Hour)
		engine := NewEngine(tzoffset.UTC{}, func() time.Time { return now })
		result := engine.ComputeSuggestions(Params{
			Calendars:      []CalendarEntry{{ParticipantID: "alice"}},
			PeriodStart:    start,
			PeriodEnd:      end,
			MaxSuggestions: 10,
		})
		for _, slot := range result.Slots {
			if slot.Start.Format("2006-01-02") == now.Format("2006-01-02") {
				t.Fatalf("morning invocation must not suggest today, got %v", slot.Start)
			}
		}
	})

	t.Run("afternoon invocation keeps only evening slots today", func(t *testing.T) {
		t.Parallel()

		now := start.Add(13 * time.Hour)
		engine := NewEngine(tzoffset.UTC{}, func() time.Time { return now })
		result := engine.ComputeSuggestions(Params{
			Calendars:      []CalendarEntry{{ParticipantID: "alice"}},
			PeriodStart:    start,
			PeriodEnd:      end,
			MaxSuggestions: 10,
		})
		for _, slot := range result.Slots {
			if slot.Start.Format("2006-01-02") != now.Format("2006-01-02") {
				continue
			}
			if slot.Start.Hour() < 17 {
				t.Fatalf("same-day slot before 17:00 local: %v", slot.Start)
			}
		}
	})
}

func TestComputeSuggestionsTimezoneOffsets(t *testing.T) {
	t.Parallel()

	start, end := horizon(14)
	offset := 9 * 60 // Tokyo-like fixed offset
	engine := NewEngine(fixedOffset(offset), func() time.Time {
		return time.Date(2026, 9, 6, 12, 0, 0, 0, time.UTC)
	})

	result := engine.ComputeSuggestions(Params{
		Calendars:        []CalendarEntry{{ParticipantID: "alice"}},
		GroupPreferences: &prefs.Record{TimeZone: "Asia/Tokyo"},
		PeriodStart:      start,
		PeriodEnd:        end,
		MaxSuggestions:   8,
	})

	if len(result.Slots) == 0 {
		t.Fatal("expected slots")
	}
	assertWellFormed(t, result, start, end)
	for _, slot := range result.Slots {
		local := slot.Start.Add(time.Duration(offset) * time.Minute)
		minute := local.Hour()*60 + local.Minute()
		if minute < 10*60 {
			t.Fatalf("slot starts before any admissible local window: %v (local %v)", slot.Start, local)
		}
	}
}

func TestComputeSuggestionsGlobalBusy(t *testing.T) {
	t.Parallel()

	start, end := horizon(14)
	shared := interval.Interval{
		Start: start.AddDate(0, 0, 5).Add(10 * time.Hour),
		End:   start.AddDate(0, 0, 5).Add(23 * time.Hour),
	}
	result := testEngine().ComputeSuggestions(Params{
		Calendars:      []CalendarEntry{{ParticipantID: "alice"}, {ParticipantID: "bob"}},
		GlobalBusy:     []interval.Interval{shared},
		PeriodStart:    start,
		PeriodEnd:      end,
		MaxSuggestions: 20,
	})

	if len(result.Slots) == 0 {
		t.Fatal("expected slots")
	}
	for _, slot := range result.Slots {
		if slot.Start.Before(shared.End) && shared.Start.Before(slot.End) {
			t.Fatalf("slot %v..%v intersects a shared busy interval", slot.Start, slot.End)
		}
	}
}

func TestComputeSuggestionsUserPreferenceOverride(t *testing.T) {
	t.Parallel()

	start, end := horizon(21)
	result := testEngine().ComputeSuggestions(Params{
		Calendars: []CalendarEntry{
			{
				ParticipantID: "alice",
				Preferences:   &prefs.Record{MaxDurationMinutes: intPtr(240)},
			},
		},
		UserPreferences: map[string]*prefs.Record{
			"alice": {
				MinDurationMinutes: intPtr(30),
				MaxDurationMinutes: intPtr(45),
			},
		},
		PeriodStart:    start,
		PeriodEnd:      end,
		MaxSuggestions: 8,
	})

	if result.Constraints == nil {
		t.Fatal("expected resolved constraints")
	}
	if result.Constraints.MaxDurationMinutes != 45 {
		t.Fatalf("override ignored: max duration %d", result.Constraints.MaxDurationMinutes)
	}
	for _, slot := range result.Slots {
		if d := int(slot.End.Sub(slot.Start) / time.Minute); d > 45 {
			t.Fatalf("slot duration %dm exceeds the overriding maximum", d)
		}
	}
}

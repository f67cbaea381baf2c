package routine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestExpanderExpand(t *testing.T) {
	t.Parallel()

	// Monday 2026-09-07 through the following Sunday.
	windowStart := time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC)
	windowEnd := windowStart.AddDate(0, 0, 7)

	t.Run("respects weekday selections", func(t *testing.T) {
		t.Parallel()

		expander := NewExpander(time.UTC)
		block := Block{
			MemberID: "kid-1",
			Label:    "school",
			Weekdays: []string{"mon", "wed", "fri"},
			Start:    "08:00",
			End:      "15:00",
		}

		busy, err := expander.Expand(block, windowStart, windowEnd)
		if err != nil {
			t.Fatalf("Expand returned error: %v", err)
		}
		if len(busy) != 3 {
			t.Fatalf("expected 3 intervals, got %d", len(busy))
		}
		wantDays := []time.Weekday{time.Monday, time.Wednesday, time.Friday}
		for i, iv := range busy {
			if iv.Start.Weekday() != wantDays[i] {
				t.Fatalf("interval %d on %s, want %s", i, iv.Start.Weekday(), wantDays[i])
			}
			if iv.Start.Hour() != 8 || iv.End.Hour() != 15 {
				t.Fatalf("interval %d spans %s to %s, want 08:00 to 15:00", i, iv.Start, iv.End)
			}
		}
	})

	t.Run("applies every day when no weekdays are given", func(t *testing.T) {
		t.Parallel()

		expander := NewExpander(time.UTC)
		block := Block{MemberID: "kid-1", Start: "21:00", End: "22:00"}

		busy, err := expander.Expand(block, windowStart, windowEnd)
		if err != nil {
			t.Fatalf("Expand returned error: %v", err)
		}
		if len(busy) != 7 {
			t.Fatalf("expected 7 intervals, got %d", len(busy))
		}
	})

	t.Run("clips intervals to the window", func(t *testing.T) {
		t.Parallel()

		expander := NewExpander(time.UTC)
		block := Block{MemberID: "kid-1", Start: "08:00", End: "15:00"}

		// Window opens mid-block on Monday and closes mid-block on Tuesday.
		narrowStart := windowStart.Add(10 * time.Hour)
		narrowEnd := windowStart.Add(24*time.Hour + 12*time.Hour)

		busy, err := expander.Expand(block, narrowStart, narrowEnd)
		if err != nil {
			t.Fatalf("Expand returned error: %v", err)
		}
		if len(busy) != 2 {
			t.Fatalf("expected 2 intervals, got %d", len(busy))
		}
		if !busy[0].Start.Equal(narrowStart) {
			t.Fatalf("first interval starts %s, want clipped to %s", busy[0].Start, narrowStart)
		}
		if !busy[1].End.Equal(narrowEnd) {
			t.Fatalf("last interval ends %s, want clipped to %s", busy[1].End, narrowEnd)
		}
	})

	t.Run("honors inclusive date bounds", func(t *testing.T) {
		t.Parallel()

		expander := NewExpander(time.UTC)
		block := Block{
			MemberID: "kid-1",
			Start:    "08:00",
			End:      "09:00",
			From:     "2026-09-09",
			Until:    "2026-09-10",
		}

		busy, err := expander.Expand(block, windowStart, windowEnd)
		if err != nil {
			t.Fatalf("Expand returned error: %v", err)
		}
		if len(busy) != 2 {
			t.Fatalf("expected 2 intervals, got %d", len(busy))
		}
		if busy[0].Start.Day() != 9 || busy[1].Start.Day() != 10 {
			t.Fatalf("unexpected dates: %s and %s", busy[0].Start, busy[1].Start)
		}
	})

	t.Run("evaluates wall clock in the expander zone", func(t *testing.T) {
		t.Parallel()

		berlin, err := time.LoadLocation("Europe/Berlin")
		if err != nil {
			t.Fatalf("load location: %v", err)
		}
		expander := NewExpander(berlin)
		block := Block{MemberID: "kid-1", Weekdays: []string{"mon"}, Start: "08:00", End: "09:00"}

		busy, err := expander.Expand(block, windowStart, windowEnd)
		if err != nil {
			t.Fatalf("Expand returned error: %v", err)
		}
		if len(busy) != 1 {
			t.Fatalf("expected 1 interval, got %d", len(busy))
		}
		// Berlin is UTC+2 in September, so 08:00 wall clock is 06:00 UTC.
		if got := busy[0].Start.UTC().Hour(); got != 6 {
			t.Fatalf("expected start at 06:00 UTC, got %02d:00", got)
		}
	})

	t.Run("rejects malformed blocks", func(t *testing.T) {
		t.Parallel()

		expander := NewExpander(time.UTC)
		cases := []struct {
			name  string
			block Block
			want  error
		}{
			{"bad clock", Block{Start: "8am", End: "15:00"}, ErrInvalidClock},
			{"end before start", Block{Start: "15:00", End: "08:00"}, ErrInvalidClock},
			{"bad weekday", Block{Weekdays: []string{"someday"}, Start: "08:00", End: "09:00"}, ErrUnknownWeekday},
			{"bad date bound", Block{Start: "08:00", End: "09:00", From: "Sept 9"}, ErrInvalidDate},
		}
		for _, tc := range cases {
			if _, err := expander.Expand(tc.block, windowStart, windowEnd); !errors.Is(err, tc.want) {
				t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
			}
		}
	})
}

func TestBridgeBusyIntervals(t *testing.T) {
	t.Parallel()

	windowStart := time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC)
	windowEnd := windowStart.AddDate(0, 0, 7)

	bridge := NewBridge([]Block{
		{MemberID: "kid-1", Label: "school", Weekdays: []string{"mon", "tue", "wed", "thu", "fri"}, Start: "08:00", End: "15:00"},
		{MemberID: "kid-1", Label: "practice", Weekdays: []string{"sat"}, Start: "10:00", End: "12:00"},
		{MemberID: "parent-1", Label: "work", Weekdays: []string{"mon", "tue", "wed", "thu", "fri"}, Start: "09:00", End: "17:00"},
	}, time.UTC)

	busy, err := bridge.BusyIntervals(context.Background(), "kid-1", windowStart, windowEnd)
	if err != nil {
		t.Fatalf("BusyIntervals returned error: %v", err)
	}
	if len(busy) != 6 {
		t.Fatalf("expected 6 intervals for kid-1, got %d", len(busy))
	}

	busy, err = bridge.BusyIntervals(context.Background(), "unknown-member", windowStart, windowEnd)
	if err != nil {
		t.Fatalf("BusyIntervals returned error: %v", err)
	}
	if len(busy) != 0 {
		t.Fatalf("unknown member should have no routine, got %d intervals", len(busy))
	}
}

func TestLoadBlocks(t *testing.T) {
	t.Parallel()

	t.Run("reads a block file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "routines.json")
		payload := `[
			{"memberId": "kid-1", "label": "school", "weekdays": ["mon", "tue"], "start": "08:00", "end": "15:00"},
			{"memberId": "parent-1", "start": "09:00", "end": "17:00", "until": "2026-12-18"}
		]`
		if err := os.WriteFile(path, []byte(payload), 0o600); err != nil {
			t.Fatalf("write routine file: %v", err)
		}

		blocks, err := LoadBlocks(path)
		if err != nil {
			t.Fatalf("LoadBlocks returned error: %v", err)
		}
		if len(blocks) != 2 {
			t.Fatalf("expected 2 blocks, got %d", len(blocks))
		}
		if blocks[0].Label != "school" || blocks[1].Until != "2026-12-18" {
			t.Fatalf("unexpected blocks: %+v", blocks)
		}
	})

	t.Run("rejects blocks without a member", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "routines.json")
		if err := os.WriteFile(path, []byte(`[{"start": "08:00", "end": "09:00"}]`), 0o600); err != nil {
			t.Fatalf("write routine file: %v", err)
		}
		if _, err := LoadBlocks(path); err == nil {
			t.Fatal("expected error for block without memberId")
		}
	})

	t.Run("fails on a missing file", func(t *testing.T) {
		t.Parallel()

		if _, err := LoadBlocks(filepath.Join(t.TempDir(), "absent.json")); err == nil {
			t.Fatal("expected error for missing file")
		}
	})
}

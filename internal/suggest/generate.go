package suggest

import (
	"sort"
	"time"

	"github.com/example/family-planner/internal/prefs"
)

type placementBias int

const (
	biasStart placementBias = iota
	biasMiddle
	biasEnd
)

// weekdayMaxDurationMinutes caps slot length on Monday–Thursday days;
// weekendMinDurationMinutes raises the floor on Friday–Sunday days. Neither
// adjustment ever crosses the opposite bound.
const (
	weekdayMaxDurationMinutes = 180
	weekendMinDurationMinutes = 120
)

// generateCandidates produces duration-bounded candidate slots for every day
// group, one seeded sequence per (seedKey, dayID, weekKey), then flattens and
// sorts them chronologically.
func generateCandidates(groups []*dayGroup, c *prefs.GroupConstraints, seedKey string) []candidateSlot {
	var out []candidateSlot
	for _, g := range groups {
		out = append(out, generateForDay(g, c, seedKey)...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].start.Before(out[j].start) })
	return out
}

func generateForDay(g *dayGroup, c *prefs.GroupConstraints, seedKey string) []candidateSlot {
	if len(g.eligible) == 0 {
		return nil
	}

	seq := NewSequence(seedKey + "|" + g.dayID + "|" + g.weekKey)

	durations := durationOptions(c, g.weekday)
	if len(durations) == 0 {
		return nil
	}

	slotCount := 1
	if g.isWeekend() {
		slotCount = 2
	}
	if slotCount > len(durations) {
		slotCount = len(durations)
	}

	seq.Shuffle(len(durations), func(i, j int) { durations[i], durations[j] = durations[j], durations[i] })
	biases := []placementBias{biasStart, biasMiddle, biasEnd}
	seq.Shuffle(len(biases), func(i, j int) { biases[i], biases[j] = biases[j], biases[i] })

	var slots []candidateSlot
	for _, bias := range biases {
		for _, duration := range durations {
			if len(slots) == slotCount {
				return slots
			}
			slot, ok := placeSlot(g, duration, bias, c.SlotStepMinutes)
			if !ok || duplicateSlot(slots, slot) {
				continue
			}
			slots = append(slots, slot)
		}
	}
	return slots
}

// durationOptions builds the low/mid/high duration candidates for a day,
// applying the asymmetric weekday/weekend profile and aligning each candidate
// to the slot step grid. When the min/max band is too narrow to contain any
// step-aligned value, the minimum duration is used as-is; the band is a user
// constraint while the grid is only a packing aid.
func durationOptions(c *prefs.GroupConstraints, day time.Weekday) []int {
	minD, maxD := c.MinDurationMinutes, c.MaxDurationMinutes
	if prefs.IsWeekend(day) {
		if raised := weekendMinDurationMinutes; raised > minD && raised <= maxD {
			minD = raised
		}
	} else {
		if capped := weekdayMaxDurationMinutes; capped < maxD && capped >= minD {
			maxD = capped
		}
	}

	step := c.SlotStepMinutes
	low := alignUp(minD, step)
	high := alignDown(maxD, step)
	mid := alignNearest((minD+maxD)/2, step)

	seen := make(map[int]struct{}, 3)
	var options []int
	for _, d := range []int{low, mid, high} {
		if d < minD || d > maxD || d <= 0 {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		options = append(options, d)
	}
	// A band narrower than one step admits no aligned duration. The declared
	// band outranks the step grid, so fall back to the exact minimum even
	// though the resulting slot length is off-grid.
	if len(options) == 0 && minD > 0 && minD <= maxD {
		options = append(options, minD)
	}
	sort.Ints(options)
	return options
}

// placeSlot attempts to fit one slot of the given duration into the day's
// eligible intervals using the requested bias. Alignment is relative to the
// local day start.
func placeSlot(g *dayGroup, durationMinutes int, bias placementBias, step int) (candidateSlot, bool) {
	switch bias {
	case biasStart:
		for _, iv := range g.eligible {
			startMin := alignUp(g.minutesInto(iv.Start), step)
			if startMin+durationMinutes <= g.minutesInto(iv.End) {
				return g.slotAt(startMin, durationMinutes), true
			}
		}
	case biasEnd:
		for i := len(g.eligible) - 1; i >= 0; i-- {
			iv := g.eligible[i]
			endMin := alignDown(g.minutesInto(iv.End), step)
			if endMin-durationMinutes >= g.minutesInto(iv.Start) {
				return g.slotAt(endMin-durationMinutes, durationMinutes), true
			}
		}
	case biasMiddle:
		longest := -1
		for i, iv := range g.eligible {
			if longest < 0 || iv.Duration() > g.eligible[longest].Duration() {
				longest = i
			}
		}
		if longest >= 0 {
			iv := g.eligible[longest]
			lo, hi := g.minutesInto(iv.Start), g.minutesInto(iv.End)
			if hi-lo >= durationMinutes {
				startMin := alignNearest(lo+(hi-lo-durationMinutes)/2, step)
				if startMin < lo {
					startMin = alignUp(lo, step)
				}
				if startMin+durationMinutes > hi {
					startMin = alignDown(hi-durationMinutes, step)
				}
				if startMin >= lo && startMin+durationMinutes <= hi {
					return g.slotAt(startMin, durationMinutes), true
				}
			}
		}
	}
	return candidateSlot{}, false
}

func (g *dayGroup) minutesInto(t time.Time) int {
	return int(t.Sub(g.dayStart) / time.Minute)
}

func (g *dayGroup) slotAt(startMinute, durationMinutes int) candidateSlot {
	start := g.dayStart.Add(time.Duration(startMinute) * time.Minute)
	return candidateSlot{
		start:           start,
		end:             start.Add(time.Duration(durationMinutes) * time.Minute),
		startMinute:     startMinute,
		durationMinutes: durationMinutes,
		dayKey:          g.dayKey,
		dayID:           g.dayID,
		weekKey:         g.weekKey,
		weekday:         g.weekday,
	}
}

func duplicateSlot(slots []candidateSlot, slot candidateSlot) bool {
	for _, s := range slots {
		if s.start.Equal(slot.start) && s.end.Equal(slot.end) {
			return true
		}
		if s.start.Before(slot.end) && slot.start.Before(s.end) {
			// Overlapping same-day slots read as duplicates to users.
			return true
		}
	}
	return false
}

func alignUp(v, step int) int {
	if step <= 0 {
		return v
	}
	if r := v % step; r != 0 {
		return v + step - r
	}
	return v
}

func alignDown(v, step int) int {
	if step <= 0 {
		return v
	}
	return v - v%step
}

func alignNearest(v, step int) int {
	if step <= 0 {
		return v
	}
	down := alignDown(v, step)
	if v-down >= step-(v-down) {
		return down + step
	}
	return down
}

package suggest

import (
	"sort"
	"time"

	"github.com/example/family-planner/internal/prefs"
)

// eveningCutoffMinute and middayMinute drive the same-day proximity rule: a
// slot on today's local date survives only when the invocation moment is
// already past midday and the slot starts in the evening.
const (
	middayMinute        = 12 * 60
	eveningCutoffMinute = 17 * 60
)

// selectSlots trims an oversupply of candidates to the requested count while
// keeping the result set representative: weekend day-groups are dropped first
// under a seeded draw, the weekly day quota is enforced, and a weekday slot
// is kept alive whenever the constraints indicate weekday interest.
func selectSlots(candidates []candidateSlot, c *prefs.GroupConstraints, now time.Time, nowOffsetMinutes int, maxSuggestions int, seedKey string) []candidateSlot {
	if len(candidates) == 0 || maxSuggestions <= 0 {
		return nil
	}

	trimmed := trimDayGroups(candidates, maxSuggestions, c.HasWeekdayPreference, seedKey)
	filtered := filterSameDay(trimmed, now, nowOffsetMinutes)
	filtered = applyWeeklyQuota(filtered, c.MaxSuggestionDaysPerWeek)

	selected := filtered
	if len(selected) > maxSuggestions {
		selected = append([]candidateSlot(nil), selected[:maxSuggestions]...)
	}

	if c.HasWeekdayPreference && !containsWeekday(selected) {
		if replacement, ok := earliestWeekdaySlot(filtered, candidates, now, nowOffsetMinutes); ok {
			if len(selected) < maxSuggestions {
				selected = append(selected, replacement)
			} else if len(selected) > 0 {
				selected[len(selected)-1] = replacement
			}
			sort.Slice(selected, func(i, j int) bool { return selected[i].start.Before(selected[j].start) })
		}
	}

	return selected
}

// trimDayGroups removes whole day-groups while more than twice the requested
// number of candidates remain. Weekend groups go first, chosen by a seeded
// draw so the trim is reproducible, then surplus weekday groups. When the
// trim erased every weekday group but weekday interest is flagged, one
// removed weekday group is swapped back in.
func trimDayGroups(candidates []candidateSlot, maxSuggestions int, hasWeekdayPreference bool, seedKey string) []candidateSlot {
	budget := 2 * maxSuggestions
	if len(candidates) <= budget {
		return candidates
	}

	var groups []*trimGroup
	byID := make(map[string]*trimGroup)
	for _, slot := range candidates {
		g, ok := byID[slot.dayID]
		if !ok {
			g = &trimGroup{dayID: slot.dayID, weekend: prefs.IsWeekend(slot.weekday)}
			byID[slot.dayID] = g
			groups = append(groups, g)
		}
		g.slots = append(g.slots, slot)
	}

	seq := NewSequence(seedKey + "|trim")
	remaining := append([]*trimGroup(nil), groups...)
	var removedWeekday []*trimGroup
	total := len(candidates)

	for total > budget && len(remaining) > 1 {
		idx := pickTrimIndex(remaining, seq)
		victim := remaining[idx]
		remaining = append(remaining[:idx], remaining[idx+1:]...)
		if !victim.weekend {
			removedWeekday = append(removedWeekday, victim)
		}
		total -= len(victim.slots)
	}

	if hasWeekdayPreference && len(removedWeekday) > 0 && !anyWeekdayGroup(remaining) {
		restored := removedWeekday[seq.Intn(len(removedWeekday))]
		if total+len(restored.slots) > budget {
			// Swap out one remaining weekend group to make room.
			for i, g := range remaining {
				if g.weekend {
					total -= len(g.slots)
					remaining = append(remaining[:i], remaining[i+1:]...)
					break
				}
			}
		}
		remaining = append(remaining, restored)
		total += len(restored.slots)
	}

	kept := make(map[string]struct{}, len(remaining))
	for _, g := range remaining {
		kept[g.dayID] = struct{}{}
	}
	out := make([]candidateSlot, 0, total)
	for _, slot := range candidates {
		if _, ok := kept[slot.dayID]; ok {
			out = append(out, slot)
		}
	}
	return out
}

type trimGroup struct {
	dayID   string
	weekend bool
	slots   []candidateSlot
}

// pickTrimIndex chooses the next day-group to drop: a seeded pick among
// weekend groups while any remain, then among weekday groups.
func pickTrimIndex(remaining []*trimGroup, seq *Sequence) int {
	var weekendIdx []int
	for i, g := range remaining {
		if g.weekend {
			weekendIdx = append(weekendIdx, i)
		}
	}
	if len(weekendIdx) > 0 {
		return weekendIdx[seq.Intn(len(weekendIdx))]
	}
	return seq.Intn(len(remaining))
}

func anyWeekdayGroup(groups []*trimGroup) bool {
	for _, g := range groups {
		if !g.weekend {
			return true
		}
	}
	return false
}

// filterSameDay discards slots that fall on the invocation's local calendar
// day unless now is past midday and the slot starts at or after 17:00 local.
func filterSameDay(candidates []candidateSlot, now time.Time, nowOffsetMinutes int) []candidateSlot {
	localNow := now.UTC().Add(time.Duration(nowOffsetMinutes) * time.Minute)
	todayKey := localNow.Format("2006-01-02")
	nowMinute := localNow.Hour()*60 + localNow.Minute()

	out := make([]candidateSlot, 0, len(candidates))
	for _, slot := range candidates {
		if slot.dayKey == todayKey {
			if nowMinute < middayMinute || slot.startMinute < eveningCutoffMinute {
				continue
			}
		}
		out = append(out, slot)
	}
	return out
}

// applyWeeklyQuota walks the candidates in time order and admits a slot only
// if its day is already in use this ISO week or the week still has day budget
// left. A zero quota means unlimited.
func applyWeeklyQuota(candidates []candidateSlot, quota int) []candidateSlot {
	if quota <= 0 {
		return candidates
	}
	usedDays := make(map[string]map[string]struct{})
	out := make([]candidateSlot, 0, len(candidates))
	for _, slot := range candidates {
		days, ok := usedDays[slot.weekKey]
		if !ok {
			days = make(map[string]struct{})
			usedDays[slot.weekKey] = days
		}
		if _, used := days[slot.dayKey]; !used && len(days) >= quota {
			continue
		}
		days[slot.dayKey] = struct{}{}
		out = append(out, slot)
	}
	return out
}

func containsWeekday(slots []candidateSlot) bool {
	for _, slot := range slots {
		if !prefs.IsWeekend(slot.weekday) {
			return true
		}
	}
	return false
}

// earliestWeekdaySlot finds a weekday slot to guarantee representation:
// preferably from the already-filtered list, otherwise from the full pre-trim
// candidate set (still honoring the same-day rule).
func earliestWeekdaySlot(filtered, allCandidates []candidateSlot, now time.Time, nowOffsetMinutes int) (candidateSlot, bool) {
	for _, slot := range filtered {
		if !prefs.IsWeekend(slot.weekday) {
			return slot, true
		}
	}
	for _, slot := range filterSameDay(allCandidates, now, nowOffsetMinutes) {
		if !prefs.IsWeekend(slot.weekday) {
			return slot, true
		}
	}
	return candidateSlot{}, false
}

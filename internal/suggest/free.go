package suggest

import (
	"github.com/example/family-planner/internal/interval"
	"github.com/example/family-planner/internal/prefs"
)

// resolveEligible computes the time every participant is simultaneously free
// and intersects it into each day group's admissible windows. It reports
// whether any eligible interval survived.
func resolveEligible(groups []*dayGroup, params Params, resolvedPrefs []prefs.Resolved, c *prefs.GroupConstraints) bool {
	horizon := []interval.Interval{{Start: c.PeriodStart, End: c.PeriodEnd}}

	commonFree := horizon
	for i, entry := range params.Calendars {
		busy := bufferedBusy(entry.Busy, resolvedPrefs[i], c)
		free := interval.Invert(busy, c.PeriodStart, c.PeriodEnd)
		commonFree = interval.Intersect(commonFree, free)
		if len(commonFree) == 0 {
			return false
		}
	}

	// Shared events block everyone regardless of attendance bookkeeping.
	if len(params.GlobalBusy) > 0 {
		globalBusy := clampedMerge(params.GlobalBusy, c)
		commonFree = interval.Intersect(commonFree, interval.Invert(globalBusy, c.PeriodStart, c.PeriodEnd))
		if len(commonFree) == 0 {
			return false
		}
	}

	any := false
	for _, g := range groups {
		g.eligible = interval.Intersect(commonFree, g.windows)
		if len(g.eligible) > 0 {
			any = true
		}
	}
	return any
}

// bufferedBusy merges a participant's busy list, widens every interval by the
// participant's transition buffers, clamps to the horizon, and re-merges.
func bufferedBusy(busy []interval.Interval, resolved prefs.Resolved, c *prefs.GroupConstraints) []interval.Interval {
	merged := interval.MergeSorted(busy)
	if len(merged) == 0 {
		return nil
	}
	expanded := make([]interval.Interval, 0, len(merged))
	for _, iv := range merged {
		iv = interval.ExpandBuffer(iv, resolved.BufferBeforeMinutes, resolved.BufferAfterMinutes)
		iv = interval.Clamp(iv, c.PeriodStart, c.PeriodEnd)
		if iv.Valid() {
			expanded = append(expanded, iv)
		}
	}
	return interval.MergeSorted(expanded)
}

func clampedMerge(intervals []interval.Interval, c *prefs.GroupConstraints) []interval.Interval {
	merged := interval.MergeSorted(intervals)
	out := make([]interval.Interval, 0, len(merged))
	for _, iv := range merged {
		iv = interval.Clamp(iv, c.PeriodStart, c.PeriodEnd)
		if iv.Valid() {
			out = append(out, iv)
		}
	}
	return out
}

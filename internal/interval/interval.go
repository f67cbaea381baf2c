// Package interval provides half-open interval arithmetic over absolute
// instants and minute-of-day windows. All functions are pure: inputs are never
// mutated and returned slices are freshly allocated.
package interval

import (
	"sort"
	"time"
)

// MinutesPerDay bounds the minute-of-day form.
const MinutesPerDay = 24 * 60

// Interval is a half-open [Start, End) span of absolute time.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether the interval covers any time at all.
func (iv Interval) Valid() bool {
	return iv.End.After(iv.Start)
}

// Duration returns the length of the interval.
func (iv Interval) Duration() time.Duration {
	if !iv.Valid() {
		return 0
	}
	return iv.End.Sub(iv.Start)
}

// Overlaps reports whether two half-open intervals intersect.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Minutes is a half-open [Start, End) span of minutes since local midnight.
type Minutes struct {
	Start int
	End   int
}

// Valid reports whether the window covers any time at all.
func (m Minutes) Valid() bool {
	return m.End > m.Start
}

// MergeSorted sorts the intervals and sweeps overlapping or adjacent entries
// into a single covering interval each. Invalid entries are dropped.
func MergeSorted(intervals []Interval) []Interval {
	cleaned := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if iv.Valid() {
			cleaned = append(cleaned, iv)
		}
	}
	if len(cleaned) == 0 {
		return nil
	}

	sort.Slice(cleaned, func(i, j int) bool {
		if cleaned[i].Start.Equal(cleaned[j].Start) {
			return cleaned[i].End.Before(cleaned[j].End)
		}
		return cleaned[i].Start.Before(cleaned[j].Start)
	})

	merged := []Interval{cleaned[0]}
	for _, iv := range cleaned[1:] {
		last := &merged[len(merged)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// Intersect computes the pairwise intersection of two sorted, non-overlapping
// interval lists using a two-pointer sweep.
func Intersect(a, b []Interval) []Interval {
	var out []Interval
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		start := a[i].Start
		if b[j].Start.After(start) {
			start = b[j].Start
		}
		end := a[i].End
		if b[j].End.Before(end) {
			end = b[j].End
		}
		if end.After(start) {
			out = append(out, Interval{Start: start, End: end})
		}
		if a[i].End.Before(b[j].End) {
			i++
		} else {
			j++
		}
	}
	return out
}

// Invert returns the complement of the busy list within [rangeStart, rangeEnd).
// The busy list must be sorted and non-overlapping (use MergeSorted first).
func Invert(busy []Interval, rangeStart, rangeEnd time.Time) []Interval {
	if !rangeEnd.After(rangeStart) {
		return nil
	}

	var free []Interval
	cursor := rangeStart
	for _, iv := range busy {
		if !iv.End.After(rangeStart) || !iv.Start.Before(rangeEnd) {
			continue
		}
		start := iv.Start
		if start.Before(rangeStart) {
			start = rangeStart
		}
		if start.After(cursor) {
			free = append(free, Interval{Start: cursor, End: start})
		}
		if iv.End.After(cursor) {
			cursor = iv.End
		}
	}
	if cursor.Before(rangeEnd) {
		free = append(free, Interval{Start: cursor, End: rangeEnd})
	}
	return free
}

// ExpandBuffer widens the interval by the given number of minutes on each
// side. Negative buffers are treated as zero.
func ExpandBuffer(iv Interval, beforeMinutes, afterMinutes int) Interval {
	if beforeMinutes < 0 {
		beforeMinutes = 0
	}
	if afterMinutes < 0 {
		afterMinutes = 0
	}
	return Interval{
		Start: iv.Start.Add(-time.Duration(beforeMinutes) * time.Minute),
		End:   iv.End.Add(time.Duration(afterMinutes) * time.Minute),
	}
}

// Clamp restricts the interval to [rangeStart, rangeEnd). The zero Interval is
// returned when nothing survives.
func Clamp(iv Interval, rangeStart, rangeEnd time.Time) Interval {
	start := iv.Start
	if start.Before(rangeStart) {
		start = rangeStart
	}
	end := iv.End
	if end.After(rangeEnd) {
		end = rangeEnd
	}
	if !end.After(start) {
		return Interval{}
	}
	return Interval{Start: start, End: end}
}

// MergeMinutes sorts minute windows, clamps them to [0, MinutesPerDay), and
// sweeps overlapping or adjacent entries together.
func MergeMinutes(windows []Minutes) []Minutes {
	cleaned := make([]Minutes, 0, len(windows))
	for _, w := range windows {
		w = ClampMinutes(w, 0, MinutesPerDay)
		if w.Valid() {
			cleaned = append(cleaned, w)
		}
	}
	if len(cleaned) == 0 {
		return nil
	}

	sort.Slice(cleaned, func(i, j int) bool {
		if cleaned[i].Start == cleaned[j].Start {
			return cleaned[i].End < cleaned[j].End
		}
		return cleaned[i].Start < cleaned[j].Start
	})

	merged := []Minutes{cleaned[0]}
	for _, w := range cleaned[1:] {
		last := &merged[len(merged)-1]
		if w.Start <= last.End {
			if w.End > last.End {
				last.End = w.End
			}
			continue
		}
		merged = append(merged, w)
	}
	return merged
}

// IntersectMinutes computes the intersection of two sorted, non-overlapping
// minute window lists.
func IntersectMinutes(a, b []Minutes) []Minutes {
	var out []Minutes
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		start := max(a[i].Start, b[j].Start)
		end := min(a[i].End, b[j].End)
		if end > start {
			out = append(out, Minutes{Start: start, End: end})
		}
		if a[i].End < b[j].End {
			i++
		} else {
			j++
		}
	}
	return out
}

// ClampMinutes restricts the window to [lo, hi). The zero Minutes is returned
// when nothing survives.
func ClampMinutes(w Minutes, lo, hi int) Minutes {
	if w.Start < lo {
		w.Start = lo
	}
	if w.End > hi {
		w.End = hi
	}
	if !w.Valid() {
		return Minutes{}
	}
	return w
}

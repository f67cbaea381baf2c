package suggest

import (
	"fmt"
	"time"

	"github.com/example/family-planner/internal/interval"
	"github.com/example/family-planner/internal/prefs"
)

// segmentGuardDays bounds the day walk against pathological horizons.
const segmentGuardDays = 400

// segmentDays walks the planning horizon one calendar day at a time in the
// resolved timezone and emits one dayGroup per local day that has at least
// one admissible window surviving the horizon clip. Offsets come exclusively
// from the injected provider, so the walk itself is timezone-agnostic.
func (e *Engine) segmentDays(c *prefs.GroupConstraints) []*dayGroup {
	var groups []*dayGroup
	lastDayKey := ""

	cursor := c.PeriodStart
	for i := 0; i < segmentGuardDays && cursor.Before(c.PeriodEnd); i++ {
		offset := time.Duration(e.offsets.OffsetMinutes(cursor, c.TimeZone)) * time.Minute
		local := cursor.UTC().Add(offset)
		year, month, day := local.Date()
		// The instant at which the local day begins.
		dayStart := time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Add(-offset)

		dayKey := fmt.Sprintf("%04d-%02d-%02d", year, month, day)
		if dayKey == lastDayKey {
			// A backward DST shift landed the cursor on the previous local
			// day again; nudge forward instead of emitting a duplicate.
			cursor = cursor.Add(time.Hour)
			continue
		}
		lastDayKey = dayKey

		weekday := local.Weekday()
		isoYear, isoWeek := local.ISOWeek()
		group := &dayGroup{
			dayKey:   dayKey,
			weekKey:  fmt.Sprintf("%04d-W%02d", isoYear, isoWeek),
			weekday:  weekday,
			dayStart: dayStart,
		}
		group.dayID = group.dayKey + "-" + prefs.WeekdayCode(weekday)

		for _, w := range c.WindowsFor(weekday) {
			abs := interval.Interval{
				Start: dayStart.Add(time.Duration(w.Start) * time.Minute),
				End:   dayStart.Add(time.Duration(w.End) * time.Minute),
			}
			abs = interval.Clamp(abs, c.PeriodStart, c.PeriodEnd)
			if abs.Valid() {
				group.windows = append(group.windows, abs)
			}
		}
		if len(group.windows) > 0 {
			groups = append(groups, group)
		}

		cursor = dayStart.Add(24 * time.Hour)
	}
	return groups
}

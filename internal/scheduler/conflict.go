// Package scheduler detects double-bookings between family events. Events
// occupy half-open time ranges; an event with no participants involves the
// whole family and clashes with every overlapping event.
package scheduler

import "time"

// Event is the minimal view of a family event needed for conflict detection.
type Event struct {
	ID           string
	Participants []string
	Start        time.Time
	End          time.Time
}

// Conflict details an overlapping event relation that callers can present to
// users. Participant is empty when the clash comes from a whole-family event
// rather than a specific double-booked member.
type Conflict struct {
	WithEventID string
	Participant string
}

// DetectConflicts identifies conflicts for the candidate event against
// existing ones. The candidate's own ID is skipped so updates do not report a
// conflict with their previous version. Results are ordered by the existing
// slice, then by the candidate's participant order.
func DetectConflicts(existing []Event, candidate Event) []Conflict {
	if candidate.Start.IsZero() || candidate.End.IsZero() || !candidate.Start.Before(candidate.End) {
		return nil
	}

	var conflicts []Conflict
	for _, other := range existing {
		if other.ID == candidate.ID {
			continue
		}
		if !overlaps(candidate, other) {
			continue
		}

		if len(candidate.Participants) == 0 || len(other.Participants) == 0 {
			conflicts = append(conflicts, Conflict{WithEventID: other.ID})
			continue
		}

		otherSet := make(map[string]struct{}, len(other.Participants))
		for _, id := range other.Participants {
			otherSet[id] = struct{}{}
		}
		for _, id := range candidate.Participants {
			if _, ok := otherSet[id]; ok {
				conflicts = append(conflicts, Conflict{WithEventID: other.ID, Participant: id})
			}
		}
	}
	return conflicts
}

func overlaps(a, b Event) bool {
	if b.Start.IsZero() || b.End.IsZero() || !b.Start.Before(b.End) {
		return false
	}
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestEventService_CreateEvent(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, time.September, 14, 17, 0, 0, 0, time.UTC)
	parent := Principal{MemberID: "parent-1", IsParent: true}

	t.Run("persists valid events with normalized participants", func(t *testing.T) {
		t.Parallel()

		repo := newEventRepositoryStub()
		svc := NewEventService(repo, &memberDirectoryStub{}, func() string { return "event-1" }, func() time.Time { return base })

		created, warnings, err := svc.CreateEvent(context.Background(), CreateEventParams{
			Principal: parent,
			Input: EventInput{
				Title:          "  Dinner  ",
				Start:          base,
				End:            base.Add(time.Hour),
				ParticipantIDs: []string{"kid-1", "parent-1", "kid-1", ""},
			},
		})
		if err != nil {
			t.Fatalf("CreateEvent failed: %v", err)
		}
		if warnings != nil {
			t.Fatalf("expected no warnings, got %#v", warnings)
		}

		if created.Title != "Dinner" || created.CreatorID != "parent-1" {
			t.Fatalf("unexpected event %#v", created)
		}
		if len(created.ParticipantIDs) != 2 || created.ParticipantIDs[0] != "kid-1" || created.ParticipantIDs[1] != "parent-1" {
			t.Fatalf("expected deduplicated sorted participants, got %#v", created.ParticipantIDs)
		}
		if created.Status != EventStatusConfirmed {
			t.Fatalf("expected confirmed default, got %s", created.Status)
		}
	})

	t.Run("reports double-booking warnings without blocking", func(t *testing.T) {
		t.Parallel()

		repo := newEventRepositoryStub()
		repo.seed(Event{ID: "soccer", Title: "Soccer", Start: base, End: base.Add(2 * time.Hour), ParticipantIDs: []string{"kid-1"}, Status: EventStatusConfirmed})
		svc := NewEventService(repo, &memberDirectoryStub{}, func() string { return "event-2" }, func() time.Time { return base })

		created, warnings, err := svc.CreateEvent(context.Background(), CreateEventParams{
			Principal: parent,
			Input: EventInput{
				Title:          "Homework",
				Start:          base.Add(30 * time.Minute),
				End:            base.Add(90 * time.Minute),
				ParticipantIDs: []string{"kid-1"},
			},
		})
		if err != nil {
			t.Fatalf("CreateEvent failed: %v", err)
		}
		if len(warnings) != 1 || warnings[0].WithEventID != "soccer" || warnings[0].ParticipantID != "kid-1" {
			t.Fatalf("expected one double-booking warning, got %#v", warnings)
		}
		if _, ok := repo.events[created.ID]; !ok {
			t.Fatalf("expected event persisted despite warning")
		}
	})

	t.Run("validates core fields", func(t *testing.T) {
		t.Parallel()

		svc := NewEventService(newEventRepositoryStub(), &memberDirectoryStub{}, nil, nil)
		_, _, err := svc.CreateEvent(context.Background(), CreateEventParams{
			Principal: parent,
			Input:     EventInput{Start: base.Add(time.Hour), End: base, Status: "maybe"},
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"title", "time", "status"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected %s error, got %#v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("rejects unknown participants", func(t *testing.T) {
		t.Parallel()

		directory := &memberDirectoryStub{missing: []string{"stranger"}}
		svc := NewEventService(newEventRepositoryStub(), directory, nil, nil)

		_, _, err := svc.CreateEvent(context.Background(), CreateEventParams{
			Principal: parent,
			Input: EventInput{
				Title:          "Dinner",
				Start:          base,
				End:            base.Add(time.Hour),
				ParticipantIDs: []string{"stranger"},
			},
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["participants"]; !ok {
			t.Fatalf("expected participants error, got %#v", vErr.FieldErrors)
		}
	})

	t.Run("requires an authenticated principal", func(t *testing.T) {
		t.Parallel()

		svc := NewEventService(newEventRepositoryStub(), &memberDirectoryStub{}, nil, nil)
		_, _, err := svc.CreateEvent(context.Background(), CreateEventParams{
			Input: EventInput{Title: "Dinner", Start: base, End: base.Add(time.Hour)},
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestEventService_UpdateEvent(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, time.September, 14, 17, 0, 0, 0, time.UTC)

	t.Run("only the creator or a parent may edit", func(t *testing.T) {
		t.Parallel()

		repo := newEventRepositoryStub()
		repo.seed(Event{ID: "event-1", Title: "Dinner", Start: base, End: base.Add(time.Hour), CreatorID: "parent-1", Status: EventStatusConfirmed})
		svc := NewEventService(repo, &memberDirectoryStub{}, nil, func() time.Time { return base })

		_, _, err := svc.UpdateEvent(context.Background(), UpdateEventParams{
			Principal: Principal{MemberID: "kid-1"},
			EventID:   "event-1",
			Input:     EventInput{Title: "Dinner", Start: base, End: base.Add(time.Hour)},
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}

		updated, _, err := svc.UpdateEvent(context.Background(), UpdateEventParams{
			Principal: Principal{MemberID: "parent-2", IsParent: true},
			EventID:   "event-1",
			Input:     EventInput{Title: "Family dinner", Start: base, End: base.Add(time.Hour), Status: EventStatusPending},
		})
		if err != nil {
			t.Fatalf("UpdateEvent failed: %v", err)
		}
		if updated.Title != "Family dinner" || updated.Status != EventStatusPending {
			t.Fatalf("unexpected update %#v", updated)
		}
		if updated.CreatorID != "parent-1" {
			t.Fatalf("expected creator preserved, got %s", updated.CreatorID)
		}
	})

	t.Run("does not warn about the event's previous version", func(t *testing.T) {
		t.Parallel()

		repo := newEventRepositoryStub()
		repo.seed(Event{ID: "event-1", Title: "Dinner", Start: base, End: base.Add(time.Hour), CreatorID: "parent-1", ParticipantIDs: []string{"kid-1"}, Status: EventStatusConfirmed})
		svc := NewEventService(repo, &memberDirectoryStub{}, nil, func() time.Time { return base })

		_, warnings, err := svc.UpdateEvent(context.Background(), UpdateEventParams{
			Principal: Principal{MemberID: "parent-1"},
			EventID:   "event-1",
			Input:     EventInput{Title: "Dinner", Start: base.Add(15 * time.Minute), End: base.Add(time.Hour), ParticipantIDs: []string{"kid-1"}},
		})
		if err != nil {
			t.Fatalf("UpdateEvent failed: %v", err)
		}
		if warnings != nil {
			t.Fatalf("expected no self conflict, got %#v", warnings)
		}
	})

	t.Run("surfaces ErrNotFound for missing events", func(t *testing.T) {
		t.Parallel()

		svc := NewEventService(newEventRepositoryStub(), &memberDirectoryStub{}, nil, nil)
		_, _, err := svc.UpdateEvent(context.Background(), UpdateEventParams{
			Principal: Principal{MemberID: "parent-1", IsParent: true},
			EventID:   "ghost",
			Input:     EventInput{Title: "Dinner", Start: base, End: base.Add(time.Hour)},
		})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestEventService_DeleteEvent(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, time.September, 14, 17, 0, 0, 0, time.UTC)

	t.Run("creator can delete", func(t *testing.T) {
		t.Parallel()

		repo := newEventRepositoryStub()
		repo.seed(Event{ID: "event-1", Title: "Dinner", Start: base, End: base.Add(time.Hour), CreatorID: "kid-1", Status: EventStatusConfirmed})
		svc := NewEventService(repo, &memberDirectoryStub{}, nil, nil)

		if err := svc.DeleteEvent(context.Background(), Principal{MemberID: "kid-1"}, "event-1"); err != nil {
			t.Fatalf("DeleteEvent failed: %v", err)
		}
		if _, ok := repo.events["event-1"]; ok {
			t.Fatalf("expected event removed")
		}
	})

	t.Run("non-creator non-parent cannot delete", func(t *testing.T) {
		t.Parallel()

		repo := newEventRepositoryStub()
		repo.seed(Event{ID: "event-1", Title: "Dinner", Start: base, End: base.Add(time.Hour), CreatorID: "kid-1", Status: EventStatusConfirmed})
		svc := NewEventService(repo, &memberDirectoryStub{}, nil, nil)

		if err := svc.DeleteEvent(context.Background(), Principal{MemberID: "kid-2"}, "event-1"); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestEventService_ListEvents(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, time.September, 14, 0, 0, 0, 0, time.UTC) // Monday

	seedThree := func() *eventRepositoryStub {
		repo := newEventRepositoryStub()
		repo.seed(Event{ID: "b", Title: "Late", Start: base.Add(20 * time.Hour), End: base.Add(21 * time.Hour), CreatorID: "p", ParticipantIDs: []string{"kid-1"}, Status: EventStatusConfirmed})
		repo.seed(Event{ID: "a", Title: "Early", Start: base.Add(9 * time.Hour), End: base.Add(10 * time.Hour), CreatorID: "p", ParticipantIDs: []string{"kid-1"}, Status: EventStatusConfirmed})
		repo.seed(Event{ID: "c", Title: "Overlap", Start: base.Add(9*time.Hour + 30*time.Minute), End: base.Add(11 * time.Hour), CreatorID: "p", ParticipantIDs: []string{"kid-1"}, Status: EventStatusPending})
		return repo
	}

	t.Run("orders by start time and reports overlaps", func(t *testing.T) {
		t.Parallel()

		svc := NewEventService(seedThree(), &memberDirectoryStub{}, nil, func() time.Time { return base })

		events, warnings, err := svc.ListEvents(context.Background(), ListEventsParams{
			Principal: Principal{MemberID: "kid-1"},
		})
		if err != nil {
			t.Fatalf("ListEvents failed: %v", err)
		}
		if len(events) != 3 || events[0].ID != "a" || events[1].ID != "c" || events[2].ID != "b" {
			t.Fatalf("unexpected order %#v", events)
		}
		if len(warnings) != 1 || warnings[0].EventID != "a" || warnings[0].WithEventID != "c" {
			t.Fatalf("expected overlap warning between a and c, got %#v", warnings)
		}
	})

	t.Run("week preset clips the window", func(t *testing.T) {
		t.Parallel()

		repo := seedThree()
		repo.seed(Event{ID: "next-week", Title: "Later", Start: base.AddDate(0, 0, 9), End: base.AddDate(0, 0, 9).Add(time.Hour), CreatorID: "p", Status: EventStatusConfirmed})
		svc := NewEventService(repo, &memberDirectoryStub{}, nil, func() time.Time { return base })

		events, _, err := svc.ListEvents(context.Background(), ListEventsParams{
			Principal:       Principal{MemberID: "kid-1"},
			Period:          ListPeriodWeek,
			PeriodReference: base.Add(26 * time.Hour), // Tuesday
		})
		if err != nil {
			t.Fatalf("ListEvents failed: %v", err)
		}
		for _, event := range events {
			if event.ID == "next-week" {
				t.Fatalf("expected next-week to be excluded, got %#v", events)
			}
		}
		if len(events) != 3 {
			t.Fatalf("expected the Monday-start week to include all three, got %#v", events)
		}
	})

	t.Run("serves cached warnings until a mutation invalidates them", func(t *testing.T) {
		t.Parallel()

		repo := seedThree()
		svc := NewEventService(repo, &memberDirectoryStub{}, func() string { return "event-x" }, func() time.Time { return base })
		params := ListEventsParams{Principal: Principal{MemberID: "kid-1"}}

		if _, _, err := svc.ListEvents(context.Background(), params); err != nil {
			t.Fatalf("ListEvents failed: %v", err)
		}
		listCalls := repo.listCalls

		// Second identical query recomputes the listing but not the warnings.
		if _, _, err := svc.ListEvents(context.Background(), params); err != nil {
			t.Fatalf("ListEvents failed: %v", err)
		}
		if repo.listCalls != listCalls+1 {
			t.Fatalf("expected exactly one more repository call, got %d", repo.listCalls)
		}

		if err := svc.DeleteEvent(context.Background(), Principal{MemberID: "p"}, "c"); err != nil {
			t.Fatalf("DeleteEvent failed: %v", err)
		}

		_, warnings, err := svc.ListEvents(context.Background(), params)
		if err != nil {
			t.Fatalf("ListEvents failed: %v", err)
		}
		if warnings != nil {
			t.Fatalf("expected warnings recomputed after mutation, got %#v", warnings)
		}
	})
}

// memberDirectoryStub reports the configured IDs as missing.
type memberDirectoryStub struct {
	missing []string
	err     error
}

func (m *memberDirectoryStub) MissingMemberIDs(ctx context.Context, ids []string) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	missingSet := make(map[string]struct{}, len(m.missing))
	for _, id := range m.missing {
		missingSet[id] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := missingSet[id]; ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// eventRepositoryStub implements EventRepository in memory for tests.
type eventRepositoryStub struct {
	events map[string]Event

	listCalls int
	listErr   error
}

func newEventRepositoryStub() *eventRepositoryStub {
	return &eventRepositoryStub{events: make(map[string]Event)}
}

func (e *eventRepositoryStub) seed(event Event) {
	e.events[event.ID] = event
}

func (e *eventRepositoryStub) CreateEvent(ctx context.Context, event Event) (Event, error) {
	e.events[event.ID] = event
	return event, nil
}

func (e *eventRepositoryStub) GetEvent(ctx context.Context, id string) (Event, error) {
	event, ok := e.events[id]
	if !ok {
		return Event{}, ErrNotFound
	}
	return event, nil
}

func (e *eventRepositoryStub) UpdateEvent(ctx context.Context, event Event) (Event, error) {
	if _, ok := e.events[event.ID]; !ok {
		return Event{}, ErrNotFound
	}
	e.events[event.ID] = event
	return event, nil
}

func (e *eventRepositoryStub) DeleteEvent(ctx context.Context, id string) error {
	if _, ok := e.events[id]; !ok {
		return ErrNotFound
	}
	delete(e.events, id)
	return nil
}

func (e *eventRepositoryStub) ListEvents(ctx context.Context, filter EventRepositoryFilter) ([]Event, error) {
	e.listCalls++
	if e.listErr != nil {
		return nil, e.listErr
	}

	var out []Event
	for _, event := range e.events {
		if filter.StartsAfter != nil && !event.End.After(*filter.StartsAfter) {
			continue
		}
		if filter.EndsBefore != nil && !event.Start.Before(*filter.EndsBefore) {
			continue
		}
		if len(filter.Statuses) > 0 {
			matched := false
			for _, status := range filter.Statuses {
				if event.Status == status {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		if len(filter.ParticipantIDs) > 0 {
			matched := false
			for _, want := range filter.ParticipantIDs {
				for _, id := range event.ParticipantIDs {
					if id == want {
						matched = true
						break
					}
				}
			}
			if !matched {
				continue
			}
		}
		out = append(out, event)
	}
	return out, nil
}

package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/family-planner/internal/persistence"
	"github.com/example/family-planner/internal/scheduler"
)

// EventRepository captures the persistence interactions needed by the event service.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) (Event, error)
	GetEvent(ctx context.Context, id string) (Event, error)
	UpdateEvent(ctx context.Context, event Event) (Event, error)
	DeleteEvent(ctx context.Context, id string) error
	ListEvents(ctx context.Context, filter EventRepositoryFilter) ([]Event, error)
}

// EventRepositoryFilter narrows queries issued to the event repository.
type EventRepositoryFilter struct {
	ParticipantIDs []string
	Statuses       []EventStatus
	StartsAfter    *time.Time
	EndsBefore     *time.Time
}

// MemberDirectory exposes member lookup operations.
type MemberDirectory interface {
	MissingMemberIDs(ctx context.Context, ids []string) ([]string, error)
}

// EventService orchestrates validation and persistence for family event operations.
type EventService struct {
	events      EventRepository
	members     MemberDirectory
	warnings    *warningCache
	idGenerator func() string
	now         func() time.Time
}

// NewEventService wires dependencies for event operations.
func NewEventService(events EventRepository, members MemberDirectory, idGenerator func() string, now func() time.Time) *EventService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &EventService{
		events:      events,
		members:     members,
		warnings:    newWarningCache(0, 0, now),
		idGenerator: idGenerator,
		now:         now,
	}
}

// CreateEvent validates the request before delegating to persistence. Overlap
// warnings are returned alongside the created event; they never block the write.
func (s *EventService) CreateEvent(ctx context.Context, params CreateEventParams) (Event, []ConflictWarning, error) {
	if s == nil {
		return Event{}, nil, fmt.Errorf("EventService is nil")
	}
	input := params.Input
	principal := params.Principal

	if principal.MemberID == "" {
		return Event{}, nil, ErrUnauthorized
	}

	vErr := &ValidationError{}
	validateEventCore(input, vErr)
	if vErr.HasErrors() {
		return Event{}, nil, vErr
	}

	if err := s.ensureParticipantsExist(ctx, input.ParticipantIDs); err != nil {
		return Event{}, nil, err
	}

	createdAt := s.now()
	event := Event{
		ID:             s.idGenerator(),
		Title:          strings.TrimSpace(input.Title),
		Start:          input.Start,
		End:            input.End,
		CreatorID:      principal.MemberID,
		ParticipantIDs: sortStrings(uniqueStrings(input.ParticipantIDs)),
		Status:         eventStatusOrDefault(input.Status),
		Notes:          input.Notes,
		Location:       input.Location,
		SuggestionID:   input.SuggestionID,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}

	if s.events == nil {
		return event, nil, nil
	}

	warnings, err := s.detectConflicts(ctx, event)
	if err != nil {
		return Event{}, nil, err
	}

	persisted, err := s.events.CreateEvent(ctx, event)
	if err != nil {
		return Event{}, nil, mapEventRepoError(err)
	}

	s.warnings.Invalidate()
	return persisted, warnings, nil
}

// UpdateEvent applies validation and authorization before updating persistence state.
func (s *EventService) UpdateEvent(ctx context.Context, params UpdateEventParams) (Event, []ConflictWarning, error) {
	if s == nil {
		return Event{}, nil, fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return Event{}, nil, fmt.Errorf("event repository not configured")
	}

	existing, err := s.events.GetEvent(ctx, params.EventID)
	if err != nil {
		return Event{}, nil, mapEventRepoError(err)
	}

	principal := params.Principal
	input := params.Input

	if existing.CreatorID != principal.MemberID && !principal.IsParent {
		return Event{}, nil, ErrUnauthorized
	}

	vErr := &ValidationError{}
	validateEventCore(input, vErr)
	if vErr.HasErrors() {
		return Event{}, nil, vErr
	}

	if err := s.ensureParticipantsExist(ctx, input.ParticipantIDs); err != nil {
		return Event{}, nil, err
	}

	updated := existing
	updated.Title = strings.TrimSpace(input.Title)
	updated.Start = input.Start
	updated.End = input.End
	updated.ParticipantIDs = sortStrings(uniqueStrings(input.ParticipantIDs))
	updated.Status = eventStatusOrDefault(input.Status)
	updated.Notes = input.Notes
	updated.Location = input.Location
	updated.SuggestionID = input.SuggestionID
	updated.UpdatedAt = s.now()

	warnings, err := s.detectConflicts(ctx, updated)
	if err != nil {
		return Event{}, nil, err
	}

	persisted, err := s.events.UpdateEvent(ctx, updated)
	if err != nil {
		return Event{}, nil, mapEventRepoError(err)
	}

	s.warnings.Invalidate()
	return persisted, warnings, nil
}

// DeleteEvent ensures authorization before delegating to persistence.
func (s *EventService) DeleteEvent(ctx context.Context, principal Principal, eventID string) error {
	if s == nil {
		return fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return fmt.Errorf("event repository not configured")
	}

	existing, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return mapEventRepoError(err)
	}

	if existing.CreatorID != principal.MemberID && !principal.IsParent {
		return ErrUnauthorized
	}

	if err := s.events.DeleteEvent(ctx, eventID); err != nil {
		return mapEventRepoError(err)
	}

	s.warnings.Invalidate()
	return nil
}

// GetEvent returns a single event. Any family member may view any event.
func (s *EventService) GetEvent(ctx context.Context, principal Principal, eventID string) (Event, error) {
	if s == nil {
		return Event{}, fmt.Errorf("EventService is nil")
	}
	if principal.MemberID == "" {
		return Event{}, ErrUnauthorized
	}
	if s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}

	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return Event{}, mapEventRepoError(err)
	}
	return event, nil
}

// ListEvents enumerates events in the requested window, ordered by start time,
// together with overlap warnings for the returned set. Warnings for identical
// queries are served from a short-lived cache that mutations invalidate.
func (s *EventService) ListEvents(ctx context.Context, params ListEventsParams) ([]Event, []ConflictWarning, error) {
	if s == nil {
		return nil, nil, fmt.Errorf("EventService is nil")
	}
	if params.Principal.MemberID == "" {
		return nil, nil, ErrUnauthorized
	}
	if s.events == nil {
		return nil, nil, fmt.Errorf("event repository not configured")
	}

	filter := buildEventListFilter(params)

	events, err := s.events.ListEvents(ctx, filter)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	ordered := make([]Event, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Start.Equal(ordered[j].Start) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].Start.Before(ordered[j].Start)
	})

	cacheKey := buildWarningCacheKey(params, filter)
	warnings, ok := s.warnings.Get(cacheKey)
	if !ok {
		warnings = detectListConflicts(ordered)
		s.warnings.Store(cacheKey, warnings)
	}

	return ordered, warnings, nil
}

func (s *EventService) ensureParticipantsExist(ctx context.Context, ids []string) error {
	if s.members == nil {
		return nil
	}
	ids = uniqueStrings(ids)
	if len(ids) == 0 {
		return nil
	}
	missing, err := s.members.MissingMemberIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		return nil
	}
	vErr := &ValidationError{}
	vErr.add("participants", fmt.Sprintf("unknown member ids: %s", strings.Join(missing, ", ")))
	return vErr
}

func (s *EventService) detectConflicts(ctx context.Context, candidate Event) ([]ConflictWarning, error) {
	if s == nil || s.events == nil {
		return nil, nil
	}

	startsAfter := candidate.Start
	endsBefore := candidate.End
	events, err := s.events.ListEvents(ctx, EventRepositoryFilter{
		StartsAfter: &startsAfter,
		EndsBefore:  &endsBefore,
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	existing := make([]scheduler.Event, 0, len(events))
	for _, event := range events {
		existing = append(existing, toSchedulerEvent(event))
	}

	conflicts := scheduler.DetectConflicts(existing, toSchedulerEvent(candidate))
	return toConflictWarnings(candidate.ID, conflicts), nil
}

func detectListConflicts(events []Event) []ConflictWarning {
	if len(events) <= 1 {
		return nil
	}

	converted := make([]scheduler.Event, len(events))
	for i, event := range events {
		converted[i] = toSchedulerEvent(event)
	}

	warnings := make([]ConflictWarning, 0)
	for i, candidate := range events {
		if i+1 >= len(events) {
			break
		}
		conflicts := scheduler.DetectConflicts(converted[i+1:], converted[i])
		warnings = append(warnings, toConflictWarnings(candidate.ID, conflicts)...)
	}

	if len(warnings) == 0 {
		return nil
	}
	return warnings
}

func toSchedulerEvent(event Event) scheduler.Event {
	participants := make([]string, len(event.ParticipantIDs))
	copy(participants, event.ParticipantIDs)

	return scheduler.Event{
		ID:           event.ID,
		Participants: participants,
		Start:        event.Start,
		End:          event.End,
	}
}

func toConflictWarnings(eventID string, conflicts []scheduler.Conflict) []ConflictWarning {
	if len(conflicts) == 0 {
		return nil
	}

	warnings := make([]ConflictWarning, 0, len(conflicts))
	for _, conflict := range conflicts {
		warnings = append(warnings, ConflictWarning{
			EventID:       eventID,
			WithEventID:   conflict.WithEventID,
			ParticipantID: conflict.Participant,
		})
	}
	return warnings
}

func validateEventCore(input EventInput, vErr *ValidationError) {
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}

	if input.Start.IsZero() {
		vErr.add("start", "start is required")
	}
	if input.End.IsZero() {
		vErr.add("end", "end is required")
	}
	if !input.Start.IsZero() && !input.End.IsZero() && !input.Start.Before(input.End) {
		vErr.add("time", "start must be before end")
	}

	switch input.Status {
	case "", EventStatusConfirmed, EventStatusPending:
	default:
		vErr.add("status", "status must be confirmed or pending")
	}
}

func eventStatusOrDefault(status EventStatus) EventStatus {
	if status == "" {
		return EventStatusConfirmed
	}
	return status
}

func buildEventListFilter(params ListEventsParams) EventRepositoryFilter {
	participants := sortStrings(uniqueStrings(params.ParticipantIDs))
	if len(participants) == 0 {
		participants = nil
	}

	startsAfter := params.StartsAfter
	endsBefore := params.EndsBefore

	if params.Period != ListPeriodNone {
		start, end := computePeriodRange(params.Period, params.PeriodReference)
		if startsAfter == nil {
			startsAfter = &start
		}
		if endsBefore == nil {
			endsBefore = &end
		}
	}

	return EventRepositoryFilter{
		ParticipantIDs: participants,
		Statuses:       params.Statuses,
		StartsAfter:    startsAfter,
		EndsBefore:     endsBefore,
	}
}

func computePeriodRange(period ListPeriod, reference time.Time) (time.Time, time.Time) {
	switch period {
	case ListPeriodDay:
		start := startOfDay(reference)
		return start, start.AddDate(0, 0, 1)
	case ListPeriodWeek:
		start := startOfWeek(reference)
		return start, start.AddDate(0, 0, 7)
	case ListPeriodMonth:
		start := startOfMonth(reference)
		return start, start.AddDate(0, 1, 0)
	default:
		return time.Time{}, time.Time{}
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func startOfWeek(t time.Time) time.Time {
	start := startOfDay(t)
	weekday := int(start.Weekday())
	// Adjust so Monday is start of week. In Go, Monday == 1, Sunday == 0.
	offset := (weekday + 6) % 7
	return start.AddDate(0, 0, -offset)
}

func startOfMonth(t time.Time) time.Time {
	start := startOfDay(t)
	return time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location())
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result
}

func sortStrings(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	sort.Strings(out)
	return out
}

func mapEventRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("time", "start must be before end")
		return vErr
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("participants", "related records are missing")
		return vErr
	}
	return err
}

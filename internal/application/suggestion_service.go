package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/family-planner/internal/interval"
	"github.com/example/family-planner/internal/prefs"
	"github.com/example/family-planner/internal/suggest"
)

const (
	// DefaultHorizonDays bounds the suggestion window when the caller omits an end.
	DefaultHorizonDays = 21
	// MaxHorizonDays caps the window an explicit end may request.
	MaxHorizonDays = 92
)

// MemberLister exposes the roster lookup the suggestion orchestrator needs.
type MemberLister interface {
	ListMembers(ctx context.Context) ([]Member, error)
}

// DeviceCalendarBridge supplies busy intervals imported from a member's device
// calendar. Implementations must tolerate unknown member IDs.
type DeviceCalendarBridge interface {
	BusyIntervals(ctx context.Context, memberID string, periodStart, periodEnd time.Time) ([]interval.Interval, error)
}

// SuggestParams captures one suggestion request. Zero Start means "now"; zero
// End means Start plus the configured horizon.
type SuggestParams struct {
	Principal      Principal
	Start          time.Time
	End            time.Time
	MaxSuggestions int
	Seed           string
}

// SuggestResult carries the engine output plus the resolved window it covers.
type SuggestResult struct {
	PeriodStart time.Time               `json:"periodStart"`
	PeriodEnd   time.Time               `json:"periodEnd"`
	Slots       []suggest.Suggestion    `json:"slots"`
	Constraints *prefs.GroupConstraints `json:"constraints"`
}

// SuggestionService assembles engine input from stored members, events, and
// preference documents, then runs the availability engine. It owns no state of
// its own; rerunning with unchanged storage yields identical output.
type SuggestionService struct {
	engine      *suggest.Engine
	members     MemberLister
	events      EventRepository
	preferences PreferenceRepository
	bridge      DeviceCalendarBridge
	horizonDays int
	now         func() time.Time
	logger      *slog.Logger
}

// NewSuggestionService wires dependencies for the suggestion orchestrator.
// bridge may be nil when no device calendar integration is configured.
func NewSuggestionService(engine *suggest.Engine, members MemberLister, events EventRepository, preferences PreferenceRepository, bridge DeviceCalendarBridge, horizonDays int, now func() time.Time, logger *slog.Logger) *SuggestionService {
	if horizonDays <= 0 || horizonDays > MaxHorizonDays {
		horizonDays = DefaultHorizonDays
	}
	if now == nil {
		now = time.Now
	}
	return &SuggestionService{
		engine:      engine,
		members:     members,
		events:      events,
		preferences: preferences,
		bridge:      bridge,
		horizonDays: horizonDays,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// Suggest computes candidate slots for the requested window. An empty slot
// list is a normal outcome, not an error.
func (s *SuggestionService) Suggest(ctx context.Context, params SuggestParams) (result SuggestResult, err error) {
	if s == nil {
		err = fmt.Errorf("SuggestionService is nil")
		return
	}
	if s.engine == nil {
		err = fmt.Errorf("suggestion engine not configured")
		return
	}
	if params.Principal.MemberID == "" {
		err = ErrUnauthorized
		return
	}

	start, end, vErr := s.resolveWindow(params)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	logger := serviceLogger(ctx, s.logger, "SuggestionService", "Suggest",
		"period_start", start,
		"period_end", end,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "suggestion computation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("slot_count", len(result.Slots)).InfoContext(ctx, "suggestions computed")
	}()

	var roster []Member
	if s.members != nil {
		roster, err = s.members.ListMembers(ctx)
		if err != nil {
			return
		}
	}

	busyByMember, globalBusy, err := s.collectBusy(ctx, roster, start, end)
	if err != nil {
		return
	}

	groupRecord, userRecords, err := s.collectPreferences(ctx)
	if err != nil {
		return
	}

	calendars := make([]suggest.CalendarEntry, 0, len(roster))
	for _, member := range roster {
		calendars = append(calendars, suggest.CalendarEntry{
			ParticipantID: member.ID,
			Busy:          busyByMember[member.ID],
		})
	}

	seed := params.Seed
	if seed == "" {
		seed = start.UTC().Format(time.RFC3339) + "|" + end.UTC().Format(time.RFC3339)
	}

	engineResult := s.engine.ComputeSuggestions(suggest.Params{
		Calendars:        calendars,
		PeriodStart:      start,
		PeriodEnd:        end,
		GroupPreferences: groupRecord,
		UserPreferences:  userRecords,
		GlobalBusy:       globalBusy,
		MaxSuggestions:   params.MaxSuggestions,
		SeedKey:          seed,
	})

	slots := engineResult.Slots
	if slots == nil {
		// An empty slot list marshals as [], matching the slot-bearing shape.
		slots = []suggest.Suggestion{}
	}
	result = SuggestResult{
		PeriodStart: start,
		PeriodEnd:   end,
		Slots:       slots,
		Constraints: engineResult.Constraints,
	}
	return
}

func (s *SuggestionService) resolveWindow(params SuggestParams) (time.Time, time.Time, *ValidationError) {
	vErr := &ValidationError{}

	start := params.Start
	if start.IsZero() {
		start = s.now()
	}
	end := params.End
	if end.IsZero() {
		end = start.AddDate(0, 0, s.horizonDays)
	}

	if !start.Before(end) {
		vErr.add("window", "start must be before end")
	} else if end.Sub(start) > time.Duration(MaxHorizonDays)*24*time.Hour {
		vErr.add("window", fmt.Sprintf("window must not exceed %d days", MaxHorizonDays))
	}
	if params.MaxSuggestions < 0 {
		vErr.add("max", "max must not be negative")
	}

	return start, end, vErr
}

// collectBusy splits stored events into per-member busy lists and the shared
// list. Events with no participants block the whole family.
func (s *SuggestionService) collectBusy(ctx context.Context, roster []Member, start, end time.Time) (map[string][]interval.Interval, []interval.Interval, error) {
	busyByMember := make(map[string][]interval.Interval)
	var globalBusy []interval.Interval

	if s.events != nil {
		startsAfter := start
		endsBefore := end
		events, err := s.events.ListEvents(ctx, EventRepositoryFilter{
			StartsAfter: &startsAfter,
			EndsBefore:  &endsBefore,
			Statuses:    []EventStatus{EventStatusConfirmed, EventStatusPending},
		})
		if err != nil {
			return nil, nil, err
		}

		for _, event := range events {
			busy := interval.Interval{Start: event.Start, End: event.End}
			if len(event.ParticipantIDs) == 0 {
				globalBusy = append(globalBusy, busy)
				continue
			}
			for _, id := range event.ParticipantIDs {
				busyByMember[id] = append(busyByMember[id], busy)
			}
		}
	}

	if s.bridge != nil {
		for _, member := range roster {
			imported, err := s.bridge.BusyIntervals(ctx, member.ID, start, end)
			if err != nil {
				return nil, nil, err
			}
			busyByMember[member.ID] = append(busyByMember[member.ID], imported...)
		}
	}

	return busyByMember, globalBusy, nil
}

func (s *SuggestionService) collectPreferences(ctx context.Context) (*prefs.Record, map[string]*prefs.Record, error) {
	if s.preferences == nil {
		return nil, nil, nil
	}

	stored, err := s.preferences.ListPreferences(ctx)
	if err != nil {
		return nil, nil, err
	}

	var group *prefs.Record
	userRecords := make(map[string]*prefs.Record, len(stored))
	for _, preference := range stored {
		doc := preference.Document
		if preference.MemberID == "" {
			group = &doc
			continue
		}
		userRecords[preference.MemberID] = &doc
	}
	if len(userRecords) == 0 {
		userRecords = nil
	}
	return group, userRecords, nil
}

package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/family-planner/internal/application"
)

type eventService interface {
	CreateEvent(ctx context.Context, params application.CreateEventParams) (application.Event, []application.ConflictWarning, error)
	UpdateEvent(ctx context.Context, params application.UpdateEventParams) (application.Event, []application.ConflictWarning, error)
	DeleteEvent(ctx context.Context, principal application.Principal, eventID string) error
	GetEvent(ctx context.Context, principal application.Principal, eventID string) (application.Event, error)
	ListEvents(ctx context.Context, params application.ListEventsParams) ([]application.Event, []application.ConflictWarning, error)
}

type EventHandler struct {
	service   eventService
	responder responder
}

func NewEventHandler(service eventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{service: service, responder: newResponder(logger)}
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	event, warnings, err := h.service.CreateEvent(r.Context(), application.CreateEventParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.renderEvent(r.Context(), w, event, warnings, http.StatusCreated)
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	event, warnings, err := h.service.UpdateEvent(r.Context(), application.UpdateEventParams{
		Principal: principal,
		EventID:   eventID,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.renderEvent(r.Context(), w, event, warnings, http.StatusOK)
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteEvent(r.Context(), principal, eventID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	event, err := h.service.GetEvent(r.Context(), principal, eventID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.renderEvent(r.Context(), w, event, nil, http.StatusOK)
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	params := buildListParams(r.URL.Query(), principal)

	events, warnings, err := h.service.ListEvents(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	response := listEventsResponse{
		Events:   toEventDTOs(events),
		Warnings: toWarningDTOs(warnings),
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, response)
}

func (h *EventHandler) renderEvent(ctx context.Context, w http.ResponseWriter, event application.Event, warnings []application.ConflictWarning, status int) {
	payload := eventResponse{
		Event:    toEventDTO(event),
		Warnings: toWarningDTOs(warnings),
	}
	h.responder.writeJSON(ctx, w, status, payload)
}

type eventRequest struct {
	Title          string   `json:"title"`
	Start          string   `json:"start"`
	End            string   `json:"end"`
	ParticipantIDs []string `json:"participant_ids"`
	Status         string   `json:"status"`
	Notes          *string  `json:"notes"`
	Location       *string  `json:"location"`
	SuggestionID   *string  `json:"suggestion_id"`
}

func (r eventRequest) toInput() application.EventInput {
	return application.EventInput{
		Title:          strings.TrimSpace(r.Title),
		Start:          parseTime(r.Start),
		End:            parseTime(r.End),
		ParticipantIDs: append([]string(nil), r.ParticipantIDs...),
		Status:         application.EventStatus(strings.TrimSpace(r.Status)),
		Notes:          r.Notes,
		Location:       r.Location,
		SuggestionID:   r.SuggestionID,
	}
}

func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Time{}
}

type eventResponse struct {
	Event    eventDTO             `json:"event"`
	Warnings []conflictWarningDTO `json:"warnings,omitempty"`
}

type listEventsResponse struct {
	Events   []eventDTO           `json:"events"`
	Warnings []conflictWarningDTO `json:"warnings,omitempty"`
}

type eventDTO struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Start          string   `json:"start"`
	End            string   `json:"end"`
	CreatorID      string   `json:"creator_id"`
	ParticipantIDs []string `json:"participant_ids"`
	Status         string   `json:"status"`
	Notes          *string  `json:"notes,omitempty"`
	Location       *string  `json:"location,omitempty"`
	SuggestionID   *string  `json:"suggestion_id,omitempty"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
}

func toEventDTO(event application.Event) eventDTO {
	return eventDTO{
		ID:             event.ID,
		Title:          event.Title,
		Start:          event.Start.UTC().Format(time.RFC3339Nano),
		End:            event.End.UTC().Format(time.RFC3339Nano),
		CreatorID:      event.CreatorID,
		ParticipantIDs: append([]string(nil), event.ParticipantIDs...),
		Status:         string(event.Status),
		Notes:          event.Notes,
		Location:       event.Location,
		SuggestionID:   event.SuggestionID,
		CreatedAt:      event.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:      event.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toEventDTOs(events []application.Event) []eventDTO {
	if len(events) == 0 {
		return nil
	}
	out := make([]eventDTO, 0, len(events))
	for _, event := range events {
		out = append(out, toEventDTO(event))
	}
	return out
}

type conflictWarningDTO struct {
	EventID       string `json:"event_id"`
	WithEventID   string `json:"with_event_id"`
	ParticipantID string `json:"participant_id,omitempty"`
}

func toWarningDTOs(warnings []application.ConflictWarning) []conflictWarningDTO {
	if len(warnings) == 0 {
		return nil
	}

	out := make([]conflictWarningDTO, 0, len(warnings))
	for _, warning := range warnings {
		out = append(out, conflictWarningDTO{
			EventID:       warning.EventID,
			WithEventID:   warning.WithEventID,
			ParticipantID: warning.ParticipantID,
		})
	}
	return out
}

func buildListParams(values url.Values, principal application.Principal) application.ListEventsParams {
	params := application.ListEventsParams{Principal: principal}

	if participants := strings.TrimSpace(values.Get("participants")); participants != "" {
		params.ParticipantIDs = parseCSV(participants)
	}

	if statuses := strings.TrimSpace(values.Get("statuses")); statuses != "" {
		for _, status := range parseCSV(statuses) {
			params.Statuses = append(params.Statuses, application.EventStatus(status))
		}
	}

	if after := strings.TrimSpace(values.Get("starts_after")); after != "" {
		if ts := parseTime(after); !ts.IsZero() {
			params.StartsAfter = &ts
		}
	}

	if before := strings.TrimSpace(values.Get("ends_before")); before != "" {
		if ts := parseTime(before); !ts.IsZero() {
			params.EndsBefore = &ts
		}
	}

	if day := strings.TrimSpace(values.Get("day")); day != "" {
		if ts, err := time.Parse("2006-01-02", day); err == nil {
			params.Period = application.ListPeriodDay
			params.PeriodReference = ts
		}
	} else if week := strings.TrimSpace(values.Get("week")); week != "" {
		if ts, err := time.Parse("2006-01-02", week); err == nil {
			params.Period = application.ListPeriodWeek
			params.PeriodReference = ts
		}
	} else if month := strings.TrimSpace(values.Get("month")); month != "" {
		if ts, err := time.Parse("2006-01", month); err == nil {
			params.Period = application.ListPeriodMonth
			params.PeriodReference = ts
		}
	}

	return params
}

func parseCSV(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

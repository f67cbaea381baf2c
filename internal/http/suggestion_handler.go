package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/family-planner/internal/application"
)

type suggestionService interface {
	Suggest(ctx context.Context, params application.SuggestParams) (application.SuggestResult, error)
}

type SuggestionHandler struct {
	service   suggestionService
	responder responder
	logger    *slog.Logger
}

func NewSuggestionHandler(service suggestionService, logger *slog.Logger) *SuggestionHandler {
	base := defaultLogger(logger)
	return &SuggestionHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *SuggestionHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SuggestionHandler", operation, attrs...)
}

func (h *SuggestionHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	values := r.URL.Query()

	params := application.SuggestParams{
		Principal: principal,
		Seed:      strings.TrimSpace(values.Get("seed")),
	}

	if start := strings.TrimSpace(values.Get("start")); start != "" {
		ts := parseTime(start)
		if ts.IsZero() {
			h.responder.writeJSON(r.Context(), w, http.StatusUnprocessableEntity, errorResponse{
				Message: "the submitted input is invalid",
				Errors:  map[string]string{"start": "must be an RFC 3339 timestamp"},
			})
			return
		}
		params.Start = ts
	}

	if end := strings.TrimSpace(values.Get("end")); end != "" {
		ts := parseTime(end)
		if ts.IsZero() {
			h.responder.writeJSON(r.Context(), w, http.StatusUnprocessableEntity, errorResponse{
				Message: "the submitted input is invalid",
				Errors:  map[string]string{"end": "must be an RFC 3339 timestamp"},
			})
			return
		}
		params.End = ts
	}

	if max := strings.TrimSpace(values.Get("max")); max != "" {
		n, err := strconv.Atoi(max)
		if err != nil || n < 0 {
			h.responder.writeJSON(r.Context(), w, http.StatusUnprocessableEntity, errorResponse{
				Message: "the submitted input is invalid",
				Errors:  map[string]string{"max": "must be a non-negative integer"},
			})
			return
		}
		params.MaxSuggestions = n
	}

	logger := h.log(r.Context(), "List", "principal_id", principal.MemberID)

	result, err := h.service.Suggest(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "suggestion run failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(result.Slots)).InfoContext(r.Context(), "suggestions computed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, result)
}

package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/family-planner/internal/application"
	"github.com/example/family-planner/internal/prefs"
)

type preferenceService interface {
	SaveMemberPreferences(ctx context.Context, params application.SaveMemberPreferenceParams) (application.Preference, error)
	SaveGroupPreferences(ctx context.Context, params application.SaveGroupPreferenceParams) (application.Preference, error)
	GetMemberPreferences(ctx context.Context, principal application.Principal, memberID string) (application.Preference, error)
	GetGroupPreferences(ctx context.Context, principal application.Principal) (application.Preference, error)
	DeleteMemberPreferences(ctx context.Context, principal application.Principal, memberID string) error
}

type PreferenceHandler struct {
	service   preferenceService
	responder responder
	logger    *slog.Logger
}

func NewPreferenceHandler(service preferenceService, logger *slog.Logger) *PreferenceHandler {
	base := defaultLogger(logger)
	return &PreferenceHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *PreferenceHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "PreferenceHandler", operation, attrs...)
}

func (h *PreferenceHandler) GetMember(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	memberID, ok := MemberIDFromContext(r.Context())
	if !ok || strings.TrimSpace(memberID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMemberID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	preference, err := h.service.GetMemberPreferences(r.Context(), principal, memberID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPreferenceDTO(preference))
}

func (h *PreferenceHandler) PutMember(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	memberID, ok := MemberIDFromContext(r.Context())
	if !ok || strings.TrimSpace(memberID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMemberID)
		return
	}

	var req preferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "PutMember", "principal_id", principal.MemberID, "member_id", memberID)

	preference, err := h.service.SaveMemberPreferences(r.Context(), application.SaveMemberPreferenceParams{
		Principal: principal,
		MemberID:  memberID,
		Document:  req.Document,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "preference save failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "member preferences saved")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPreferenceDTO(preference))
}

func (h *PreferenceHandler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	memberID, ok := MemberIDFromContext(r.Context())
	if !ok || strings.TrimSpace(memberID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMemberID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "DeleteMember", "principal_id", principal.MemberID, "member_id", memberID)

	if err := h.service.DeleteMemberPreferences(r.Context(), principal, memberID); err != nil {
		logger.ErrorContext(r.Context(), "preference delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "member preferences cleared")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *PreferenceHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	preference, err := h.service.GetGroupPreferences(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPreferenceDTO(preference))
}

func (h *PreferenceHandler) PutGroup(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req preferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "PutGroup", "principal_id", principal.MemberID)

	preference, err := h.service.SaveGroupPreferences(r.Context(), application.SaveGroupPreferenceParams{
		Principal: principal,
		Document:  req.Document,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "group preference save failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "group preferences saved")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPreferenceDTO(preference))
}

type preferenceRequest struct {
	Document prefs.Record `json:"document"`
}

type preferenceDTO struct {
	MemberID  string       `json:"member_id,omitempty"`
	Document  prefs.Record `json:"document"`
	CreatedAt string       `json:"created_at,omitempty"`
	UpdatedAt string       `json:"updated_at,omitempty"`
}

func toPreferenceDTO(preference application.Preference) preferenceDTO {
	dto := preferenceDTO{
		MemberID: preference.MemberID,
		Document: preference.Document,
	}
	if !preference.CreatedAt.IsZero() {
		dto.CreatedAt = preference.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	if !preference.UpdatedAt.IsZero() {
		dto.UpdatedAt = preference.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	return dto
}

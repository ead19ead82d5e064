package handlers

import (
	"errors"
	"net/http"

	"github.com/yeshi-rangzen/momomi-sub000/internal/pkg/validate"
	authsvc "github.com/yeshi-rangzen/momomi-sub000/internal/services/auth"
	matchessvc "github.com/yeshi-rangzen/momomi-sub000/internal/services/matches"
	"github.com/yeshi-rangzen/momomi-sub000/internal/transport/http/dto"
	httperrors "github.com/yeshi-rangzen/momomi-sub000/internal/transport/http/errors"
)

type MatchesHandler struct {
	service *matchessvc.Service
}

func NewMatchesHandler(service *matchessvc.Service) *MatchesHandler {
	return &MatchesHandler{service: service}
}

func (h *MatchesHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}

	items, err := h.service.List(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, matchessvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid matches request")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load matches")
		return
	}

	httperrors.Write(w, http.StatusOK, struct {
		Matches []matchessvc.MatchItem `json:"matches"`
	}{Matches: items})
}

func (h *MatchesHandler) Unmatch(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}

	var req dto.UnmatchRequest
	if err := decodeJSON(r, &req); err != nil || req.TargetID <= 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "target_id is required")
		return
	}

	if err := h.service.Unmatch(r.Context(), identity.UserID, req.TargetID); err != nil {
		switch {
		case errors.Is(err, matchessvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid unmatch request")
		case errors.Is(err, matchessvc.ErrMatchNotFound):
			writeNotFound(w, "MATCH_NOT_FOUND", "no match with this user")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to unmatch")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, struct {
		OK bool `json:"ok"`
	}{OK: true})
}

func (h *MatchesHandler) Block(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}

	var req dto.BlockRequest
	if err := decodeJSON(r, &req); err != nil || req.TargetID <= 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "target_id is required")
		return
	}

	if err := h.service.Block(r.Context(), identity.UserID, req.TargetID); err != nil {
		if errors.Is(err, matchessvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid block request")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to block user")
		return
	}

	httperrors.Write(w, http.StatusOK, struct {
		OK bool `json:"ok"`
	}{OK: true})
}

func (h *MatchesHandler) Report(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}

	var req dto.ReportRequest
	if err := decodeJSON(r, &req); err != nil || req.TargetID <= 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "target_id is required")
		return
	}
	if !validate.Required(req.Reason) {
		writeBadRequest(w, "VALIDATION_ERROR", "reason is required")
		return
	}

	if err := h.service.Report(r.Context(), identity.UserID, req.TargetID, req.Reason, req.Details); err != nil {
		switch {
		case errors.Is(err, matchessvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid report request")
		case errors.Is(err, matchessvc.ErrInvalidReportReason):
			writeBadRequest(w, "VALIDATION_ERROR", "unknown report reason")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to report user")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, struct {
		OK bool `json:"ok"`
	}{OK: true})
}

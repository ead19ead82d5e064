package handlers

import (
	"errors"
	"net/http"
	"time"

	authsvc "github.com/yeshi-rangzen/momomi-sub000/internal/services/auth"
	"github.com/yeshi-rangzen/momomi-sub000/internal/transport/http/dto"
	httperrors "github.com/yeshi-rangzen/momomi-sub000/internal/transport/http/errors"
)

// AuthHandler exposes session issuance for the identity gateway plus
// user-facing logout. Identity verification itself happens upstream.
type AuthHandler struct {
	service *authsvc.Service
}

func NewAuthHandler(service *authsvc.Service) *AuthHandler {
	return &AuthHandler{service: service}
}

func (h *AuthHandler) IssueSession(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "AUTH_SERVICE_UNAVAILABLE", "auth service is unavailable")
		return
	}

	var req dto.IssueSessionRequest
	if err := decodeJSON(r, &req); err != nil || req.UserID <= 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "user_id is required")
		return
	}

	result, err := h.service.IssueSession(r.Context(), req.UserID)
	if err != nil {
		if errors.Is(err, authsvc.ErrInvalidInput) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid session request")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to issue session")
		return
	}

	httperrors.Write(w, http.StatusOK, struct {
		AccessToken string    `json:"access_token"`
		ExpiresAt   time.Time `json:"expires_at"`
		UserID      int64     `json:"user_id"`
	}{
		AccessToken: result.AccessToken,
		ExpiresAt:   result.ExpiresAt.UTC(),
		UserID:      result.UserID,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "AUTH_SERVICE_UNAVAILABLE", "auth service is unavailable")
		return
	}

	if err := h.service.Logout(r.Context(), identity.SID); err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to log out")
		return
	}

	httperrors.Write(w, http.StatusOK, struct {
		OK bool `json:"ok"`
	}{OK: true})
}

func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "AUTH_SERVICE_UNAVAILABLE", "auth service is unavailable")
		return
	}

	if err := h.service.LogoutAll(r.Context(), identity.UserID); err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to log out")
		return
	}

	httperrors.Write(w, http.StatusOK, struct {
		OK bool `json:"ok"`
	}{OK: true})
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/yeshi-rangzen/momomi-sub000/internal/pkg/validate"
	authsvc "github.com/yeshi-rangzen/momomi-sub000/internal/services/auth"
	swipesvc "github.com/yeshi-rangzen/momomi-sub000/internal/services/swipes"
	usagesvc "github.com/yeshi-rangzen/momomi-sub000/internal/services/usage"
	"github.com/yeshi-rangzen/momomi-sub000/internal/transport/http/dto"
	httperrors "github.com/yeshi-rangzen/momomi-sub000/internal/transport/http/errors"
)

type SwipeHandler struct {
	service *swipesvc.Service
}

func NewSwipeHandler(service *swipesvc.Service) *SwipeHandler {
	return &SwipeHandler{service: service}
}

func (h *SwipeHandler) Handle(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "SWIPE_SERVICE_UNAVAILABLE", "swipe service is unavailable")
		return
	}

	var req dto.SwipeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if req.TargetID <= 0 || !validate.Required(req.Kind) {
		writeBadRequest(w, "VALIDATION_ERROR", "target_id and kind are required")
		return
	}

	result, err := h.service.RecordDecision(r.Context(), identity.UserID, req.TargetID, req.Kind, timezoneFromRequest(r))
	if err != nil {
		switch {
		case errors.Is(err, swipesvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid swipe request")
		case errors.Is(err, swipesvc.ErrTargetNotFound):
			writeNotFound(w, "TARGET_NOT_FOUND", "target user not found")
		case errors.Is(err, swipesvc.ErrPairBlocked):
			writeConflict(w, "PAIR_BLOCKED", "no decisions allowed for this pair")
		case errors.Is(err, swipesvc.ErrAlreadyProcessed):
			writeConflict(w, "ALREADY_PROCESSED", "decision already recorded for this pair")
		case errors.Is(err, usagesvc.ErrDailyLimit):
			writeTooMany(w, "LIKE_LIMIT_REACHED", "daily likes limit reached")
		case errors.Is(err, usagesvc.ErrSuperLikeLimit):
			writeTooMany(w, "SUPERLIKE_LIMIT_REACHED", "super-like limit reached")
		default:
			if tf, ok := usagesvc.IsTooFast(err); ok {
				httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
					Code:          "TOO_FAST",
					Message:       "too many like actions, slow down",
					RetryAfterSec: tf.RetryAfter(),
				})
				return
			}
			writeInternal(w, "INTERNAL_ERROR", "failed to process swipe")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, struct {
		Outcome      string               `json:"outcome"`
		MatchCreated bool                 `json:"match_created"`
		Quota        quotaResponsePayload `json:"quota"`
	}{
		Outcome:      result.Outcome,
		MatchCreated: result.MatchCreated,
		Quota:        mapQuotaSnapshot(result.Quota),
	})
}

func (h *SwipeHandler) Undo(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "SWIPE_SERVICE_UNAVAILABLE", "swipe service is unavailable")
		return
	}

	result, err := h.service.Undo(r.Context(), identity.UserID)
	if err != nil {
		switch {
		case errors.Is(err, swipesvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid undo request")
		case errors.Is(err, swipesvc.ErrNothingToUndo):
			writeNotFound(w, "NOTHING_TO_UNDO", "no decision to undo")
		case errors.Is(err, swipesvc.ErrUndoNotAllowed):
			writeConflict(w, "UNDO_NOT_ALLOWED", "only a pass can be undone")
		case errors.Is(err, swipesvc.ErrUndoExpired):
			writeConflict(w, "UNDO_EXPIRED", "undo window has elapsed")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to undo decision")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, struct {
		UndoneTargetID int64 `json:"undone_target_id"`
	}{UndoneTargetID: result.UndoneTargetID})
}

package handlers

import (
	"errors"
	"net/http"
	"time"

	authsvc "github.com/yeshi-rangzen/momomi-sub000/internal/services/auth"
	usagesvc "github.com/yeshi-rangzen/momomi-sub000/internal/services/usage"
	httperrors "github.com/yeshi-rangzen/momomi-sub000/internal/transport/http/errors"
)

type LimitsHandler struct {
	service *usagesvc.Service
}

type quotaResponsePayload struct {
	IsPremium      bool      `json:"is_premium"`
	LikesUsed      int       `json:"likes_used"`
	LikesLimit     int       `json:"likes_limit"`
	LikesLeft      int       `json:"likes_left"`
	BonusLikes     int       `json:"bonus_likes"`
	SuperLikesUsed int       `json:"super_likes_used"`
	SuperLikesMax  int       `json:"super_likes_limit"`
	SuperLikesLeft int       `json:"super_likes_left"`
	SuperLikesWkly bool      `json:"super_likes_weekly"`
	AdsWatched     int       `json:"ads_watched"`
	AdsLeft        int       `json:"ads_left"`
	ResetAt        time.Time `json:"reset_at"`
}

func NewLimitsHandler(service *usagesvc.Service) *LimitsHandler {
	return &LimitsHandler{service: service}
}

func (h *LimitsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "USAGE_SERVICE_UNAVAILABLE", "usage service is unavailable")
		return
	}

	snapshot, err := h.service.GetSnapshot(r.Context(), identity.UserID, timezoneFromRequest(r))
	if err != nil {
		if errors.Is(err, usagesvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid limits request")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load limits")
		return
	}

	httperrors.Write(w, http.StatusOK, mapQuotaSnapshot(snapshot))
}

func mapQuotaSnapshot(snapshot usagesvc.Snapshot) quotaResponsePayload {
	return quotaResponsePayload{
		IsPremium:      snapshot.IsPremium,
		LikesUsed:      snapshot.LikesUsed,
		LikesLimit:     snapshot.LikesLimit,
		LikesLeft:      snapshot.LikesLeft,
		BonusLikes:     snapshot.BonusLikes,
		SuperLikesUsed: snapshot.SuperLikesUsed,
		SuperLikesMax:  snapshot.SuperLikesLimit,
		SuperLikesLeft: snapshot.SuperLikesLeft,
		SuperLikesWkly: snapshot.SuperLikesWeekly,
		AdsWatched:     snapshot.AdsWatched,
		AdsLeft:        snapshot.AdsLeft,
		ResetAt:        snapshot.ResetAt.UTC(),
	}
}

package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/yeshi-rangzen/momomi-sub000/internal/services/auth"
	usagesvc "github.com/yeshi-rangzen/momomi-sub000/internal/services/usage"
	httperrors "github.com/yeshi-rangzen/momomi-sub000/internal/transport/http/errors"
)

type AdsHandler struct {
	service *usagesvc.Service
}

func NewAdsHandler(service *usagesvc.Service) *AdsHandler {
	return &AdsHandler{service: service}
}

func (h *AdsHandler) Watched(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "USAGE_SERVICE_UNAVAILABLE", "usage service is unavailable")
		return
	}

	snapshot, err := h.service.WatchAd(r.Context(), identity.UserID, timezoneFromRequest(r))
	if err != nil {
		switch {
		case errors.Is(err, usagesvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid ad watch request")
		case errors.Is(err, usagesvc.ErrAdLimit):
			writeTooMany(w, "AD_LIMIT_REACHED", "daily ad watch limit reached")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to record ad watch")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, mapQuotaSnapshot(snapshot))
}

package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	authsvc "github.com/yeshi-rangzen/momomi-sub000/internal/services/auth"
	discoverysvc "github.com/yeshi-rangzen/momomi-sub000/internal/services/discovery"
	httperrors "github.com/yeshi-rangzen/momomi-sub000/internal/transport/http/errors"
)

type DiscoveryHandler struct {
	service *discoverysvc.Service
}

func NewDiscoveryHandler(service *discoverysvc.Service) *DiscoveryHandler {
	return &DiscoveryHandler{service: service}
}

func (h *DiscoveryHandler) Handle(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "DISCOVERY_SERVICE_UNAVAILABLE", "discovery service is unavailable")
		return
	}

	mode := strings.TrimSpace(r.URL.Query().Get("mode"))
	count := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("count")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeBadRequest(w, "VALIDATION_ERROR", "count must be a positive integer")
			return
		}
		count = parsed
	}

	result, err := h.service.Discover(r.Context(), identity.UserID, mode, count)
	if err != nil {
		switch {
		case errors.Is(err, discoverysvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid discovery request")
		case errors.Is(err, discoverysvc.ErrViewerNotFound):
			writeNotFound(w, "VIEWER_NOT_FOUND", "viewer profile not found or not discoverable")
		case errors.Is(err, discoverysvc.ErrLocationRequired):
			writeBadRequest(w, "LOCATION_REQUIRED", "local discovery needs a recent location")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load candidates")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, result)
}

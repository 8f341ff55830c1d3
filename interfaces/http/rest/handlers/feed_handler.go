package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"tradepulse/application/services"
	pkgerrors "tradepulse/pkg/errors"

	"go.uber.org/zap"
)

const maxFeedLimit = 200

// FeedHandler handles feed HTTP requests
type FeedHandler struct {
	assembler *services.FeedAssembler
	logger    *zap.Logger
}

// NewFeedHandler creates a new feed handler
func NewFeedHandler(assembler *services.FeedAssembler, logger *zap.Logger) *FeedHandler {
	return &FeedHandler{assembler: assembler, logger: logger}
}

// GetFeed handles GET /feed
func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.respondError(w, http.StatusBadRequest, "Query parameter 'limit' must be a positive integer")
			return
		}
		if parsed > maxFeedLimit {
			parsed = maxFeedLimit
		}
		limit = parsed
	}

	posts, err := h.assembler.GetFeed(r.Context(), limit)
	if err != nil {
		if appErr := pkgerrors.GetAppError(err); appErr != nil {
			h.respondError(w, appErr.HTTPStatus, appErr.Message)
			return
		}
		h.logger.Error("Failed to assemble feed", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "Failed to assemble feed")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"posts": posts,
		"count": len(posts),
	})
}

// respondJSON sends a JSON response
func (h *FeedHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// respondError sends an error response
func (h *FeedHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    status,
	})
}

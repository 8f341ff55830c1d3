package handlers

import (
	"encoding/json"
	"net/http"

	"tradepulse/application/services"
	"tradepulse/domain/feed"
	"tradepulse/pkg/auth"
	pkgerrors "tradepulse/pkg/errors"
	"tradepulse/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// EngagementHandler handles vote, repost, and follow HTTP requests
type EngagementHandler struct {
	engagement *services.EngagementService
	logger     *zap.Logger
}

// NewEngagementHandler creates a new engagement handler
func NewEngagementHandler(engagement *services.EngagementService, logger *zap.Logger) *EngagementHandler {
	return &EngagementHandler{engagement: engagement, logger: logger}
}

// VoteRequest represents the request body for casting or removing a vote
type VoteRequest struct {
	Type string `json:"type" validate:"required,oneof=uptrend downtrend"`
}

// Vote handles POST /posts/{postID}/vote
func (h *EngagementHandler) Vote(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postID")
	if postID == "" {
		h.respondError(w, http.StatusBadRequest, "Post ID is required")
		return
	}

	var req VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	result, err := h.engagement.Vote(r.Context(), userCtx.Username, postID, feed.VoteType(req.Type))
	if err != nil {
		h.respondServiceError(w, err, "Failed to cast vote")
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// Unvote handles DELETE /posts/{postID}/vote
func (h *EngagementHandler) Unvote(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postID")
	if postID == "" {
		h.respondError(w, http.StatusBadRequest, "Post ID is required")
		return
	}

	voteType := feed.VoteType(r.URL.Query().Get("type"))
	if !voteType.Valid() {
		h.respondError(w, http.StatusBadRequest, "Query parameter 'type' must be uptrend or downtrend")
		return
	}

	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	result, err := h.engagement.Unvote(r.Context(), userCtx.Username, postID, voteType)
	if err != nil {
		h.respondServiceError(w, err, "Failed to remove vote")
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// Repost handles POST /posts/{postID}/repost
func (h *EngagementHandler) Repost(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postID")
	if postID == "" {
		h.respondError(w, http.StatusBadRequest, "Post ID is required")
		return
	}

	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	result, err := h.engagement.Repost(r.Context(), userCtx.Username, userCtx.DisplayName, postID)
	if err != nil {
		h.respondServiceError(w, err, "Failed to repost")
		return
	}

	status := http.StatusCreated
	if result.AlreadyReposted {
		status = http.StatusOK
	}
	h.respondJSON(w, status, result)
}

// Unrepost handles DELETE /posts/{postID}/repost
func (h *EngagementHandler) Unrepost(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postID")
	if postID == "" {
		h.respondError(w, http.StatusBadRequest, "Post ID is required")
		return
	}

	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	result, err := h.engagement.Unrepost(r.Context(), userCtx.Username, postID)
	if err != nil {
		h.respondServiceError(w, err, "Failed to remove repost")
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// Follow handles POST /users/{username}/follow
func (h *EngagementHandler) Follow(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		h.respondError(w, http.StatusBadRequest, "Username is required")
		return
	}

	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	result, err := h.engagement.Follow(r.Context(), userCtx.Username, username)
	if err != nil {
		h.respondServiceError(w, err, "Failed to follow user")
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// Unfollow handles DELETE /users/{username}/follow
func (h *EngagementHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		h.respondError(w, http.StatusBadRequest, "Username is required")
		return
	}

	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	result, err := h.engagement.Unfollow(r.Context(), userCtx.Username, username)
	if err != nil {
		h.respondServiceError(w, err, "Failed to unfollow user")
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// Followers handles GET /users/{username}/followers
func (h *EngagementHandler) Followers(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		h.respondError(w, http.StatusBadRequest, "Username is required")
		return
	}

	entries, err := h.engagement.Followers(r.Context(), username)
	if err != nil {
		h.respondServiceError(w, err, "Failed to list followers")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"followers": entries,
		"count":     len(entries),
	})
}

// Following handles GET /users/{username}/following
func (h *EngagementHandler) Following(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		h.respondError(w, http.StatusBadRequest, "Username is required")
		return
	}

	entries, err := h.engagement.Following(r.Context(), username)
	if err != nil {
		h.respondServiceError(w, err, "Failed to list following")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"following": entries,
		"count":     len(entries),
	})
}

// respondServiceError maps a service error to an HTTP response
func (h *EngagementHandler) respondServiceError(w http.ResponseWriter, err error, fallback string) {
	if appErr := pkgerrors.GetAppError(err); appErr != nil {
		h.respondError(w, appErr.HTTPStatus, appErr.Message)
		return
	}
	h.logger.Error(fallback, zap.Error(err))
	h.respondError(w, http.StatusInternalServerError, fallback)
}

// respondJSON sends a JSON response
func (h *EngagementHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// respondError sends an error response
func (h *EngagementHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    status,
	})
}

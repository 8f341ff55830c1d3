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

// PostHandler handles post and comment HTTP requests
type PostHandler struct {
	posts  *services.PostService
	logger *zap.Logger
}

// NewPostHandler creates a new post handler
func NewPostHandler(posts *services.PostService, logger *zap.Logger) *PostHandler {
	return &PostHandler{posts: posts, logger: logger}
}

// CreatePostRequest represents the request body for creating a post
type CreatePostRequest struct {
	Content   string   `json:"content" validate:"required,min=1,max=5000"`
	Tags      []string `json:"tags,omitempty" validate:"omitempty,max=10,dive,max=50"`
	Mentions  []string `json:"mentions,omitempty" validate:"omitempty,max=10,dive,max=10"`
	Sentiment string   `json:"sentiment,omitempty" validate:"omitempty,oneof=bullish bearish neutral"`
}

// UpdatePostRequest represents the request body for editing a post
type UpdatePostRequest struct {
	Content string   `json:"content" validate:"required,min=1,max=5000"`
	Tags    []string `json:"tags,omitempty" validate:"omitempty,max=10,dive,max=50"`
}

// AddCommentRequest represents the request body for commenting on a post
type AddCommentRequest struct {
	Content string `json:"content" validate:"required,min=1,max=1000"`
}

// CreatePost handles POST /posts
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req CreatePostRequest
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

	sentiment := feed.Sentiment(req.Sentiment)
	if sentiment == "" {
		sentiment = feed.SentimentNeutral
	}

	post, err := h.posts.CreatePost(r.Context(), userCtx.Username, userCtx.DisplayName, req.Content, req.Tags, req.Mentions, sentiment)
	if err != nil {
		h.respondServiceError(w, err, "Failed to create post")
		return
	}

	h.respondJSON(w, http.StatusCreated, post)
}

// GetPost handles GET /posts/{postID}
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postID")
	if postID == "" {
		h.respondError(w, http.StatusBadRequest, "Post ID is required")
		return
	}

	post, err := h.posts.GetPost(r.Context(), postID)
	if err != nil {
		h.respondServiceError(w, err, "Failed to get post")
		return
	}

	h.respondJSON(w, http.StatusOK, post)
}

// UpdatePost handles PUT /posts/{postID}
func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postID")
	if postID == "" {
		h.respondError(w, http.StatusBadRequest, "Post ID is required")
		return
	}

	var req UpdatePostRequest
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

	post, err := h.posts.UpdatePost(r.Context(), userCtx.Username, postID, req.Content, req.Tags)
	if err != nil {
		h.respondServiceError(w, err, "Failed to update post")
		return
	}

	h.respondJSON(w, http.StatusOK, post)
}

// DeletePost handles DELETE /posts/{postID}
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
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

	if err := h.posts.DeletePost(r.Context(), userCtx.Username, postID); err != nil {
		h.respondServiceError(w, err, "Failed to delete post")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Post deleted",
		"id":      postID,
	})
}

// AddComment handles POST /posts/{postID}/comments
func (h *PostHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postID")
	if postID == "" {
		h.respondError(w, http.StatusBadRequest, "Post ID is required")
		return
	}

	var req AddCommentRequest
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

	comment, err := h.posts.AddComment(r.Context(), userCtx.Username, postID, req.Content)
	if err != nil {
		h.respondServiceError(w, err, "Failed to add comment")
		return
	}

	h.respondJSON(w, http.StatusCreated, comment)
}

// ListComments handles GET /posts/{postID}/comments
func (h *PostHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postID")
	if postID == "" {
		h.respondError(w, http.StatusBadRequest, "Post ID is required")
		return
	}

	comments, count, err := h.posts.ListComments(r.Context(), postID)
	if err != nil {
		h.respondServiceError(w, err, "Failed to list comments")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"comments": comments,
		"count":    count,
	})
}

// DeleteComment handles DELETE /posts/{postID}/comments/{commentID}
func (h *PostHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postID")
	commentID := chi.URLParam(r, "commentID")
	if postID == "" || commentID == "" {
		h.respondError(w, http.StatusBadRequest, "Post ID and comment ID are required")
		return
	}

	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	wasNotPresent, err := h.posts.DeleteComment(r.Context(), userCtx.Username, postID, commentID)
	if err != nil {
		h.respondServiceError(w, err, "Failed to delete comment")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":       "Comment deleted",
		"wasNotPresent": wasNotPresent,
	})
}

// respondServiceError maps a service error to an HTTP response
func (h *PostHandler) respondServiceError(w http.ResponseWriter, err error, fallback string) {
	if appErr := pkgerrors.GetAppError(err); appErr != nil {
		h.respondError(w, appErr.HTTPStatus, appErr.Message)
		return
	}
	h.logger.Error(fallback, zap.Error(err))
	h.respondError(w, http.StatusInternalServerError, fallback)
}

// respondJSON sends a JSON response
func (h *PostHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// respondError sends an error response
func (h *PostHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    status,
	})
}

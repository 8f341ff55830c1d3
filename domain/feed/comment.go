package feed

import (
	"strings"
	"time"

	pkgerrors "tradepulse/pkg/errors"

	"github.com/google/uuid"
)

// Comment is an append-only reply to a post. Comments are never edited;
// the only mutation is an author-initiated delete.
type Comment struct {
	ID             string    `json:"id"`
	PostID         string    `json:"postId"`
	AuthorUsername string    `json:"authorUsername"`
	AuthorAvatar   string    `json:"authorAvatar,omitempty"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

// NewComment creates a comment on postID authored by username.
func NewComment(postID, username, content string) (*Comment, error) {
	username = NormalizeUsername(username)
	if !usernamePattern.MatchString(username) {
		return nil, pkgerrors.NewValidationError("invalid author username")
	}
	if postID == "" {
		return nil, pkgerrors.NewValidationError("postId cannot be empty")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, pkgerrors.NewValidationError("comment content cannot be empty")
	}

	return &Comment{
		ID:             uuid.New().String(),
		PostID:         postID,
		AuthorUsername: username,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

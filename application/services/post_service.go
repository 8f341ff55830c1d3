package services

import (
	"context"
	"strings"

	"tradepulse/application/ports"
	"tradepulse/domain/feed"
	pkgerrors "tradepulse/pkg/errors"

	"go.uber.org/zap"
)

// PostService owns the post lifecycle and the comment thread under each post.
type PostService struct {
	posts    ports.PostRepository
	comments ports.CommentRepository
	logger   *zap.Logger
}

// NewPostService creates a PostService.
func NewPostService(posts ports.PostRepository, comments ports.CommentRepository, logger *zap.Logger) *PostService {
	return &PostService{posts: posts, comments: comments, logger: logger}
}

// CreatePost validates and stores a new post.
func (s *PostService) CreatePost(ctx context.Context, username, displayName, content string, tags, mentions []string, sentiment feed.Sentiment) (*feed.Post, error) {
	post, err := feed.NewPost(username, displayName, content, tags, mentions, sentiment)
	if err != nil {
		return nil, err
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// GetPost fetches a post by id.
func (s *PostService) GetPost(ctx context.Context, id string) (*feed.Post, error) {
	return s.posts.GetByID(ctx, id)
}

// UpdatePost applies an author-initiated content edit.
func (s *PostService) UpdatePost(ctx context.Context, username, postID, content string, tags []string) (*feed.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorUsername != feed.NormalizeUsername(username) {
		return nil, pkgerrors.NewValidationError("only the author can edit a post")
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, pkgerrors.NewValidationError("post content cannot be empty")
	}

	post.Content = content
	if tags != nil {
		post.Tags = tags
	}
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// DeletePost removes an author's post along with its comment thread.
func (s *PostService) DeletePost(ctx context.Context, username, postID string) error {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			// Deleting an already-deleted post is a no-op, not an error.
			return nil
		}
		return err
	}
	if post.AuthorUsername != feed.NormalizeUsername(username) {
		return pkgerrors.NewValidationError("only the author can delete a post")
	}

	if err := s.posts.Delete(ctx, postID); err != nil {
		return err
	}
	if err := s.comments.DeleteAllForPost(ctx, postID); err != nil {
		s.logger.Warn("Failed to clean up comments for deleted post",
			zap.String("postID", postID), zap.Error(err))
	}
	return nil
}

// AddComment appends a comment to a post.
func (s *PostService) AddComment(ctx context.Context, username, postID, content string) (*feed.Comment, error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}

	comment, err := feed.NewComment(postID, username, content)
	if err != nil {
		return nil, err
	}
	if err := s.comments.Add(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// DeleteComment removes a comment; only its author may do so, and deleting a
// comment that is already gone succeeds with wasNotPresent set.
func (s *PostService) DeleteComment(ctx context.Context, username, postID, commentID string) (bool, error) {
	comments, err := s.comments.List(ctx, postID)
	if err != nil {
		return false, err
	}

	for _, c := range comments {
		if c.ID != commentID {
			continue
		}
		if c.AuthorUsername != feed.NormalizeUsername(username) {
			return false, pkgerrors.NewValidationError("only the author can delete a comment")
		}
		return s.comments.Delete(ctx, postID, commentID)
	}

	return true, nil
}

// ListComments returns a post's comments with the live count.
func (s *PostService) ListComments(ctx context.Context, postID string) ([]*feed.Comment, int, error) {
	comments, err := s.comments.List(ctx, postID)
	if err != nil {
		return nil, 0, err
	}
	return comments, len(comments), nil
}

// Package ports declares the interfaces the application layer depends on.
// Infrastructure packages provide the implementations; handlers and services
// only ever see these contracts.
package ports

import (
	"context"
	"time"

	"tradepulse/domain/feed"
)

// PostRepository owns the post lifecycle, including the repost-as-independent-
// post semantics.
type PostRepository interface {
	Create(ctx context.Context, post *feed.Post) error
	GetByID(ctx context.Context, id string) (*feed.Post, error)
	Update(ctx context.Context, post *feed.Post) error
	Delete(ctx context.Context, id string) error

	// ListPublished returns up to limit recent posts with status published,
	// newest first.
	ListPublished(ctx context.Context, limit int) ([]*feed.Post, error)

	// FindRepostByUser locates the materialized repost of originalPostID
	// authored by userID, or a NotFound error if the user has none.
	FindRepostByUser(ctx context.Context, userID, originalPostID string) (*feed.Post, error)
}

// VoteLedger owns uptrend/downtrend records, one per (user, post) pair.
type VoteLedger interface {
	// Upvote records an uptrend vote. It clears any downtrend vote for the
	// same pair first. Returns created=false when the uptrend vote already
	// existed (idempotent no-op).
	Upvote(ctx context.Context, userID, postID string) (created bool, err error)

	// Downvote is symmetric to Upvote, clearing any uptrend vote first.
	Downvote(ctx context.Context, userID, postID string) (created bool, err error)

	// RemoveVote deletes the vote row if present. Deleting a vote that does
	// not exist is not an error; wasNotPresent reports it.
	RemoveVote(ctx context.Context, userID, postID string, voteType feed.VoteType) (wasNotPresent bool, err error)

	HasVoted(ctx context.Context, userID, postID string, voteType feed.VoteType) (bool, error)
	CountVotes(ctx context.Context, postID string, voteType feed.VoteType) (int, error)
}

// RepostLedger owns repost-tracking records, distinct from the repost's
// materialized Post, and resolves per-post repost counts.
type RepostLedger interface {
	// Record stores a tracking record keyed by (user, acted-on post id).
	// Returns created=false if the record already existed.
	Record(ctx context.Context, rec *feed.RepostRecord) (created bool, err error)

	// Remove deletes the tracking record; absence is reported, not an error.
	Remove(ctx context.Context, userID, postID string) (wasNotPresent bool, err error)

	HasReposted(ctx context.Context, userID, postID string) (bool, error)
	GetRecord(ctx context.Context, userID, postID string) (*feed.RepostRecord, error)
	CountReposts(ctx context.Context, postID string) (int, error)
}

// FollowGraph owns directed follow edges between usernames.
type FollowGraph interface {
	// CreateEdge stores the edge; created=false when it already existed.
	CreateEdge(ctx context.Context, edge *feed.FollowEdge) (created bool, err error)

	// DeleteEdge removes the edge; absence is reported, not an error.
	DeleteEdge(ctx context.Context, follower, following string) (wasNotPresent bool, err error)

	IsFollowing(ctx context.Context, follower, following string) (bool, error)
	FollowersCount(ctx context.Context, username string) (int, error)
	FollowingCount(ctx context.Context, username string) (int, error)
	FollowersList(ctx context.Context, username string) ([]feed.FollowListEntry, error)
	FollowingList(ctx context.Context, username string) ([]feed.FollowListEntry, error)
}

// CommentRepository owns append-only comments per post.
type CommentRepository interface {
	Add(ctx context.Context, comment *feed.Comment) error
	Delete(ctx context.Context, postID, commentID string) (wasNotPresent bool, err error)
	DeleteAllForPost(ctx context.Context, postID string) error
	List(ctx context.Context, postID string) ([]*feed.Comment, error)
	Count(ctx context.Context, postID string) (int, error)
}

// Profile is the slice of the profile store this service reads. Profile
// writes happen in the account system, outside this service.
type Profile struct {
	Username    string
	DisplayName string
	Avatar      string
	Verified    bool
}

// ProfileReader reads current display fields for feed enrichment.
type ProfileReader interface {
	GetProfile(ctx context.Context, username string) (*Profile, error)
}

// NewsProvider supplies scraped market-news items already shaped as posts.
// The scraper itself is an external collaborator; implementations may be nil.
type NewsProvider interface {
	RecentNews(ctx context.Context, limit int) ([]*feed.Post, error)
}

// EngagementEvent is the best-effort notification emitted after a successful
// engagement write. Delivery is not guaranteed and failures never fail the
// originating operation.
type EngagementEvent struct {
	DetailType string    `json:"detailType"`
	UserID     string    `json:"userId"`
	PostID     string    `json:"postId,omitempty"`
	Target     string    `json:"target,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// EventPublisher publishes engagement events to the event bus.
type EventPublisher interface {
	Publish(ctx context.Context, event EngagementEvent) error
}

// MetricsRecorder counts operational events (degraded-mode scans, engagement
// writes). Implementations must never fail the caller.
type MetricsRecorder interface {
	IncrementCounter(ctx context.Context, name string, dimensions map[string]string)
}

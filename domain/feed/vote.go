package feed

import (
	"time"

	pkgerrors "tradepulse/pkg/errors"
)

// VoteType distinguishes the two mutually exclusive engagement directions.
type VoteType string

const (
	VoteUptrend   VoteType = "uptrend"
	VoteDowntrend VoteType = "downtrend"
)

// Opposite returns the other vote direction.
func (t VoteType) Opposite() VoteType {
	if t == VoteUptrend {
		return VoteDowntrend
	}
	return VoteUptrend
}

// Valid reports whether t is a known vote type.
func (t VoteType) Valid() bool {
	return t == VoteUptrend || t == VoteDowntrend
}

// Vote records a single user's trend call on a post. At most one Vote exists
// per (user, post) pair; changing direction is delete-then-create, never an
// in-place mutation.
type Vote struct {
	UserID    string    `json:"userId"`
	PostID    string    `json:"postId"`
	Type      VoteType  `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewVote builds a vote with the user id normalized for key construction.
func NewVote(userID, postID string, voteType VoteType) (*Vote, error) {
	userID = NormalizeUsername(userID)
	if userID == "" {
		return nil, pkgerrors.NewValidationError("userId cannot be empty")
	}
	if postID == "" {
		return nil, pkgerrors.NewValidationError("postId cannot be empty")
	}
	if !voteType.Valid() {
		return nil, pkgerrors.NewValidationError("vote type must be uptrend or downtrend")
	}
	return &Vote{
		UserID:    userID,
		PostID:    postID,
		Type:      voteType,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// RepostRecord tracks that a user reposted a post. PostID is the id of the
// post the user acted on, which may itself be a repost; repost counts are
// therefore per chain node even though display attribution is always
// root-level. This record is distinct from the repost's materialized Post.
type RepostRecord struct {
	UserID       string    `json:"userId"`
	PostID       string    `json:"postId"`
	RepostPostID string    `json:"repostPostId"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NewRepostRecord builds a tracking record for user reposting postID, where
// repostPostID is the id of the newly materialized repost.
func NewRepostRecord(userID, postID, repostPostID string) (*RepostRecord, error) {
	userID = NormalizeUsername(userID)
	if userID == "" {
		return nil, pkgerrors.NewValidationError("userId cannot be empty")
	}
	if postID == "" {
		return nil, pkgerrors.NewValidationError("postId cannot be empty")
	}
	return &RepostRecord{
		UserID:       userID,
		PostID:       postID,
		RepostPostID: repostPostID,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

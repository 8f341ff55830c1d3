package feed

import (
	"time"

	pkgerrors "tradepulse/pkg/errors"
)

// FollowEdge is a directed edge in the follow graph. Both usernames are
// stored lower-cased so case variance from upstream identity providers cannot
// produce duplicate edges.
type FollowEdge struct {
	FollowerUsername  string    `json:"followerUsername"`
	FollowingUsername string    `json:"followingUsername"`
	FollowedAt        time.Time `json:"followedAt"`
}

// FollowListEntry is one row of a followers/following listing, enriched with
// display fields from the profile store.
type FollowListEntry struct {
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName,omitempty"`
	Avatar      string    `json:"avatar,omitempty"`
	FollowedAt  time.Time `json:"followedAt"`
}

// NewFollowEdge validates and normalizes a follow relationship. Self-follows
// are rejected after normalization so "Alice" cannot follow "alice".
func NewFollowEdge(follower, following string) (*FollowEdge, error) {
	follower = NormalizeUsername(follower)
	following = NormalizeUsername(following)

	if !usernamePattern.MatchString(follower) || !usernamePattern.MatchString(following) {
		return nil, pkgerrors.NewValidationError("invalid username")
	}
	if follower == following {
		return nil, pkgerrors.NewValidationError("users cannot follow themselves")
	}

	return &FollowEdge{
		FollowerUsername:  follower,
		FollowingUsername: following,
		FollowedAt:        time.Now().UTC(),
	}, nil
}

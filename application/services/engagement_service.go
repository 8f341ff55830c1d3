package services

import (
	"context"
	"time"

	"tradepulse/application/ports"
	"tradepulse/domain/feed"

	"go.uber.org/zap"
)

// EngagementService orchestrates the vote, repost, and follow write paths.
// Every mutation recomputes the affected counter before returning so callers
// never have to trust a counter embedded in a stored item, and emits a
// best-effort event that is never allowed to fail the operation.
type EngagementService struct {
	posts    ports.PostRepository
	votes    ports.VoteLedger
	reposts  ports.RepostLedger
	follows  ports.FollowGraph
	comments ports.CommentRepository
	profiles ports.ProfileReader
	events   ports.EventPublisher
	metrics  ports.MetricsRecorder
	logger   *zap.Logger
}

// NewEngagementService creates an EngagementService.
func NewEngagementService(
	posts ports.PostRepository,
	votes ports.VoteLedger,
	reposts ports.RepostLedger,
	follows ports.FollowGraph,
	comments ports.CommentRepository,
	profiles ports.ProfileReader,
	events ports.EventPublisher,
	metrics ports.MetricsRecorder,
	logger *zap.Logger,
) *EngagementService {
	return &EngagementService{
		posts:    posts,
		votes:    votes,
		reposts:  reposts,
		follows:  follows,
		comments: comments,
		profiles: profiles,
		events:   events,
		metrics:  metrics,
		logger:   logger,
	}
}

// VoteResult reports a vote mutation plus fresh counts for the post.
type VoteResult struct {
	Created        bool `json:"created"`
	WasNotPresent  bool `json:"wasNotPresent,omitempty"`
	UptrendCount   int  `json:"uptrendCount"`
	DowntrendCount int  `json:"downtrendCount"`
}

// Vote casts a vote of the given type, clearing the opposite type first.
func (s *EngagementService) Vote(ctx context.Context, userID, postID string, voteType feed.VoteType) (*VoteResult, error) {
	// The post must exist; voting on a deleted post is a NotFound.
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}

	var created bool
	var err error
	if voteType == feed.VoteUptrend {
		created, err = s.votes.Upvote(ctx, userID, postID)
	} else {
		created, err = s.votes.Downvote(ctx, userID, postID)
	}
	if err != nil {
		return nil, err
	}

	result := &VoteResult{Created: created}
	result.UptrendCount, result.DowntrendCount = s.voteCounts(ctx, postID)

	if created {
		s.count(ctx, "VoteCast", map[string]string{"Type": string(voteType)})
		s.publish(ctx, ports.EngagementEvent{
			DetailType: "vote.cast",
			UserID:     feed.NormalizeUsername(userID),
			PostID:     postID,
			Target:     string(voteType),
			OccurredAt: time.Now().UTC(),
		})
	}

	return result, nil
}

// Unvote removes a vote of the given type if present.
func (s *EngagementService) Unvote(ctx context.Context, userID, postID string, voteType feed.VoteType) (*VoteResult, error) {
	wasNotPresent, err := s.votes.RemoveVote(ctx, userID, postID, voteType)
	if err != nil {
		return nil, err
	}

	result := &VoteResult{WasNotPresent: wasNotPresent}
	result.UptrendCount, result.DowntrendCount = s.voteCounts(ctx, postID)

	if !wasNotPresent {
		s.publish(ctx, ports.EngagementEvent{
			DetailType: "vote.removed",
			UserID:     feed.NormalizeUsername(userID),
			PostID:     postID,
			Target:     string(voteType),
			OccurredAt: time.Now().UTC(),
		})
	}

	return result, nil
}

// RepostResult reports a repost mutation: the materialized repost's id and
// the fresh count for the post the user acted on.
type RepostResult struct {
	RepostPostID    string `json:"repostPostId,omitempty"`
	RepostCount     int    `json:"repostCount"`
	AlreadyReposted bool   `json:"alreadyReposted,omitempty"`
	WasNotPresent   bool   `json:"wasNotPresent,omitempty"`
}

// Repost materializes a repost of postID by userID. Reposting a post the user
// already reposted returns the current count without creating anything.
// Attribution always resolves to the root author of the chain, while the
// tracking record is keyed to the post the user acted on: counts are per
// chain node, display attribution is root-level.
func (s *EngagementService) Repost(ctx context.Context, userID, displayName, postID string) (*RepostResult, error) {
	already, err := s.reposts.HasReposted(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if already {
		count, countErr := s.reposts.CountReposts(ctx, postID)
		if countErr != nil {
			s.logger.Warn("Failed to count reposts", zap.String("postID", postID), zap.Error(countErr))
		}
		result := &RepostResult{RepostCount: count, AlreadyReposted: true}
		if rec, recErr := s.reposts.GetRecord(ctx, userID, postID); recErr == nil {
			result.RepostPostID = rec.RepostPostID
		}
		return result, nil
	}

	target, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	repost, err := feed.NewRepostOf(target, userID, displayName)
	if err != nil {
		return nil, err
	}

	if err := s.posts.Create(ctx, repost); err != nil {
		return nil, err
	}

	rec, err := feed.NewRepostRecord(userID, postID, repost.ID)
	if err != nil {
		return nil, err
	}
	if _, err := s.reposts.Record(ctx, rec); err != nil {
		return nil, err
	}

	count, err := s.reposts.CountReposts(ctx, postID)
	if err != nil {
		s.logger.Warn("Failed to count reposts", zap.String("postID", postID), zap.Error(err))
	}

	s.count(ctx, "Repost", nil)
	s.publish(ctx, ports.EngagementEvent{
		DetailType: "post.reposted",
		UserID:     rec.UserID,
		PostID:     postID,
		Target:     repost.ID,
		OccurredAt: time.Now().UTC(),
	})

	return &RepostResult{RepostPostID: repost.ID, RepostCount: count}, nil
}

// Unrepost removes the user's tracking record and their own materialized
// repost of postID. Other users' reposts of the same post are untouched, and
// a missing repost post is not an error.
func (s *EngagementService) Unrepost(ctx context.Context, userID, postID string) (*RepostResult, error) {
	// Resolve the materialized repost through the tracking record before
	// removing it. The repost's own originalPostId points at the chain root,
	// not at postID, when the user reposted another repost, so an index lookup
	// by originalPostId cannot find it.
	var repostPostID string
	if rec, recErr := s.reposts.GetRecord(ctx, userID, postID); recErr == nil {
		repostPostID = rec.RepostPostID
	}

	wasNotPresent, err := s.reposts.Remove(ctx, userID, postID)
	if err != nil {
		return nil, err
	}

	if repostPostID == "" {
		// No tracking record survived; the index lookup still covers reposts
		// of a root post.
		if repost, findErr := s.posts.FindRepostByUser(ctx, userID, postID); findErr == nil {
			repostPostID = repost.ID
		}
	}

	if repostPostID != "" {
		if err := s.posts.Delete(ctx, repostPostID); err != nil {
			return nil, err
		}
		if err := s.comments.DeleteAllForPost(ctx, repostPostID); err != nil {
			s.logger.Warn("Failed to clean up repost comments",
				zap.String("postID", repostPostID), zap.Error(err))
		}
	}

	count, err := s.reposts.CountReposts(ctx, postID)
	if err != nil {
		s.logger.Warn("Failed to count reposts", zap.String("postID", postID), zap.Error(err))
	}

	return &RepostResult{RepostCount: count, WasNotPresent: wasNotPresent}, nil
}

// FollowResult reports a follow mutation plus the target's fresh follower
// count.
type FollowResult struct {
	Following      bool `json:"following"`
	WasNotPresent  bool `json:"wasNotPresent,omitempty"`
	FollowersCount int  `json:"followersCount"`
}

// Follow creates the directed edge. Self-follows are rejected; an existing
// edge makes the call an idempotent success.
func (s *EngagementService) Follow(ctx context.Context, follower, following string) (*FollowResult, error) {
	edge, err := feed.NewFollowEdge(follower, following)
	if err != nil {
		return nil, err
	}

	created, err := s.follows.CreateEdge(ctx, edge)
	if err != nil {
		return nil, err
	}

	count, err := s.follows.FollowersCount(ctx, edge.FollowingUsername)
	if err != nil {
		s.logger.Warn("Failed to count followers",
			zap.String("username", edge.FollowingUsername), zap.Error(err))
	}

	if created {
		s.count(ctx, "Follow", nil)
		s.publish(ctx, ports.EngagementEvent{
			DetailType: "user.followed",
			UserID:     edge.FollowerUsername,
			Target:     edge.FollowingUsername,
			OccurredAt: time.Now().UTC(),
		})
	}

	return &FollowResult{Following: true, FollowersCount: count}, nil
}

// Unfollow removes the directed edge if present.
func (s *EngagementService) Unfollow(ctx context.Context, follower, following string) (*FollowResult, error) {
	follower = feed.NormalizeUsername(follower)
	following = feed.NormalizeUsername(following)

	wasNotPresent, err := s.follows.DeleteEdge(ctx, follower, following)
	if err != nil {
		return nil, err
	}

	count, err := s.follows.FollowersCount(ctx, following)
	if err != nil {
		s.logger.Warn("Failed to count followers",
			zap.String("username", following), zap.Error(err))
	}

	return &FollowResult{Following: false, WasNotPresent: wasNotPresent, FollowersCount: count}, nil
}

// Followers returns the enriched follower list for username.
func (s *EngagementService) Followers(ctx context.Context, username string) ([]feed.FollowListEntry, error) {
	entries, err := s.follows.FollowersList(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.enrichEntries(ctx, entries), nil
}

// Following returns the enriched following list for username.
func (s *EngagementService) Following(ctx context.Context, username string) ([]feed.FollowListEntry, error) {
	entries, err := s.follows.FollowingList(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.enrichEntries(ctx, entries), nil
}

// enrichEntries fills display fields from the profile store. A missing or
// failing profile leaves the bare entry; lists never fail on enrichment.
func (s *EngagementService) enrichEntries(ctx context.Context, entries []feed.FollowListEntry) []feed.FollowListEntry {
	if s.profiles == nil {
		return entries
	}
	for i := range entries {
		profile, err := s.profiles.GetProfile(ctx, entries[i].Username)
		if err != nil {
			continue
		}
		entries[i].DisplayName = profile.DisplayName
		entries[i].Avatar = profile.Avatar
	}
	return entries
}

// voteCounts fetches both trend counts, degrading to zero so a missing index
// or store hiccup cannot fail the response.
func (s *EngagementService) voteCounts(ctx context.Context, postID string) (up, down int) {
	var err error
	if up, err = s.votes.CountVotes(ctx, postID, feed.VoteUptrend); err != nil {
		s.logger.Warn("Failed to count uptrend votes", zap.String("postID", postID), zap.Error(err))
		up = 0
	}
	if down, err = s.votes.CountVotes(ctx, postID, feed.VoteDowntrend); err != nil {
		s.logger.Warn("Failed to count downtrend votes", zap.String("postID", postID), zap.Error(err))
		down = 0
	}
	return up, down
}

func (s *EngagementService) publish(ctx context.Context, event ports.EngagementEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish engagement event",
			zap.String("detailType", event.DetailType), zap.Error(err))
	}
}

func (s *EngagementService) count(ctx context.Context, name string, dims map[string]string) {
	if s.metrics != nil {
		s.metrics.IncrementCounter(ctx, name, dims)
	}
}

package services

import (
	"context"
	"testing"

	"tradepulse/application/ports"
	"tradepulse/domain/feed"
	pkgerrors "tradepulse/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type engagementFixture struct {
	posts    *mockPostRepository
	votes    *mockVoteLedger
	reposts  *mockRepostLedger
	follows  *mockFollowGraph
	comments *mockCommentRepository
	profiles *mockProfileReader
	events   *mockEventPublisher
	service  *EngagementService
}

func newEngagementFixture() *engagementFixture {
	f := &engagementFixture{
		posts:    &mockPostRepository{},
		votes:    &mockVoteLedger{},
		reposts:  &mockRepostLedger{},
		follows:  &mockFollowGraph{},
		comments: &mockCommentRepository{},
		profiles: &mockProfileReader{},
		events:   &mockEventPublisher{},
	}
	f.service = NewEngagementService(
		f.posts, f.votes, f.reposts, f.follows, f.comments,
		f.profiles, f.events, nil, zap.NewNop(),
	)
	return f
}

func publishedPost(t *testing.T, username, content string) *feed.Post {
	t.Helper()
	post, err := feed.NewPost(username, username, content, nil, nil, feed.SentimentNeutral)
	require.NoError(t, err)
	return post
}

func TestEngagementService_Vote(t *testing.T) {
	f := newEngagementFixture()
	ctx := context.Background()

	post := publishedPost(t, "alice", "rate cut incoming")
	f.posts.On("GetByID", ctx, post.ID).Return(post, nil)
	f.votes.On("Upvote", ctx, "bob", post.ID).Return(true, nil)
	f.votes.On("CountVotes", ctx, post.ID, feed.VoteUptrend).Return(3, nil)
	f.votes.On("CountVotes", ctx, post.ID, feed.VoteDowntrend).Return(1, nil)
	f.events.On("Publish", ctx, mock.MatchedBy(func(e ports.EngagementEvent) bool {
		return e.DetailType == "vote.cast" && e.UserID == "bob" && e.PostID == post.ID
	})).Return(nil)

	result, err := f.service.Vote(ctx, "bob", post.ID, feed.VoteUptrend)
	require.NoError(t, err)

	assert.True(t, result.Created)
	assert.Equal(t, 3, result.UptrendCount)
	assert.Equal(t, 1, result.DowntrendCount)
	f.events.AssertExpectations(t)
}

func TestEngagementService_Vote_MissingPost(t *testing.T) {
	f := newEngagementFixture()
	ctx := context.Background()

	f.posts.On("GetByID", ctx, "gone").Return(nil, pkgerrors.NewNotFoundError("post"))

	_, err := f.service.Vote(ctx, "bob", "gone", feed.VoteUptrend)
	assert.True(t, pkgerrors.IsNotFound(err))
	f.votes.AssertNotCalled(t, "Upvote", mock.Anything, mock.Anything, mock.Anything)
}

func TestEngagementService_Unvote_NotPresent(t *testing.T) {
	f := newEngagementFixture()
	ctx := context.Background()

	f.votes.On("RemoveVote", ctx, "bob", "post-1", feed.VoteDowntrend).Return(true, nil)
	f.votes.On("CountVotes", ctx, "post-1", feed.VoteUptrend).Return(0, nil)
	f.votes.On("CountVotes", ctx, "post-1", feed.VoteDowntrend).Return(0, nil)

	result, err := f.service.Unvote(ctx, "bob", "post-1", feed.VoteDowntrend)
	require.NoError(t, err)

	assert.True(t, result.WasNotPresent)
	f.events.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestEngagementService_Repost_AttributesRootAuthor(t *testing.T) {
	f := newEngagementFixture()
	ctx := context.Background()

	original := publishedPost(t, "alice", "fed holds rates steady")

	var created *feed.Post
	f.reposts.On("HasReposted", ctx, "bob", original.ID).Return(false, nil)
	f.posts.On("GetByID", ctx, original.ID).Return(original, nil)
	f.posts.On("Create", ctx, mock.AnythingOfType("*feed.Post")).Run(func(args mock.Arguments) {
		created = args.Get(1).(*feed.Post)
	}).Return(nil)
	f.reposts.On("Record", ctx, mock.AnythingOfType("*feed.RepostRecord")).Return(true, nil)
	f.reposts.On("CountReposts", ctx, original.ID).Return(1, nil)
	f.events.On("Publish", ctx, mock.Anything).Return(nil)

	result, err := f.service.Repost(ctx, "bob", "Bob B.", original.ID)
	require.NoError(t, err)

	require.NotNil(t, created)
	assert.True(t, created.IsRepost)
	assert.Equal(t, "bob", created.AuthorUsername)
	assert.Equal(t, "alice", created.OriginalAuthorUsername)
	assert.Equal(t, original.ID, created.OriginalPostID)
	assert.Equal(t, created.ID, result.RepostPostID)
	assert.Equal(t, 1, result.RepostCount)
	assert.False(t, result.AlreadyReposted)
}

func TestEngagementService_Repost_ChainCountsPerNode(t *testing.T) {
	f := newEngagementFixture()
	ctx := context.Background()

	original := publishedPost(t, "alice", "fed holds rates steady")
	bobsRepost, err := feed.NewRepostOf(original, "bob", "Bob")
	require.NoError(t, err)

	var created *feed.Post
	f.reposts.On("HasReposted", ctx, "carol", bobsRepost.ID).Return(false, nil)
	f.posts.On("GetByID", ctx, bobsRepost.ID).Return(bobsRepost, nil)
	f.posts.On("Create", ctx, mock.AnythingOfType("*feed.Post")).Run(func(args mock.Arguments) {
		created = args.Get(1).(*feed.Post)
	}).Return(nil)
	f.reposts.On("Record", ctx, mock.MatchedBy(func(rec *feed.RepostRecord) bool {
		// The tracking record is keyed to the post carol clicked, not the root.
		return rec.UserID == "carol" && rec.PostID == bobsRepost.ID
	})).Return(true, nil)
	f.reposts.On("CountReposts", ctx, bobsRepost.ID).Return(1, nil)
	f.events.On("Publish", ctx, mock.Anything).Return(nil)

	_, err = f.service.Repost(ctx, "carol", "Carol", bobsRepost.ID)
	require.NoError(t, err)

	// Display attribution resolves through the chain to the root author.
	require.NotNil(t, created)
	assert.Equal(t, "alice", created.OriginalAuthorUsername)
	assert.Equal(t, original.ID, created.OriginalPostID)
	f.reposts.AssertExpectations(t)
}

func TestEngagementService_Repost_AlreadyReposted(t *testing.T) {
	f := newEngagementFixture()
	ctx := context.Background()

	f.reposts.On("HasReposted", ctx, "bob", "post-1").Return(true, nil)
	f.reposts.On("CountReposts", ctx, "post-1").Return(2, nil)
	f.reposts.On("GetRecord", ctx, "bob", "post-1").
		Return(&feed.RepostRecord{UserID: "bob", PostID: "post-1", RepostPostID: "repost-9"}, nil)

	result, err := f.service.Repost(ctx, "bob", "Bob B.", "post-1")
	require.NoError(t, err)

	assert.True(t, result.AlreadyReposted)
	assert.Equal(t, "repost-9", result.RepostPostID)
	assert.Equal(t, 2, result.RepostCount)
	f.posts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestEngagementService_Unrepost(t *testing.T) {
	f := newEngagementFixture()
	ctx := context.Background()

	original := publishedPost(t, "alice", "fed holds rates steady")
	bobsRepost, err := feed.NewRepostOf(original, "bob", "Bob")
	require.NoError(t, err)

	f.reposts.On("GetRecord", ctx, "bob", original.ID).
		Return(&feed.RepostRecord{UserID: "bob", PostID: original.ID, RepostPostID: bobsRepost.ID}, nil)
	f.reposts.On("Remove", ctx, "bob", original.ID).Return(false, nil)
	f.posts.On("Delete", ctx, bobsRepost.ID).Return(nil)
	f.comments.On("DeleteAllForPost", ctx, bobsRepost.ID).Return(nil)
	f.reposts.On("CountReposts", ctx, original.ID).Return(0, nil)

	result, err := f.service.Unrepost(ctx, "bob", original.ID)
	require.NoError(t, err)

	assert.False(t, result.WasNotPresent)
	assert.Equal(t, 0, result.RepostCount)
	f.posts.AssertExpectations(t)
	f.comments.AssertExpectations(t)
}

func TestEngagementService_Unrepost_IntermediateChainNode(t *testing.T) {
	f := newEngagementFixture()
	ctx := context.Background()

	original := publishedPost(t, "alice", "fed holds rates steady")
	bobsRepost, err := feed.NewRepostOf(original, "bob", "Bob")
	require.NoError(t, err)
	carolsRepost, err := feed.NewRepostOf(bobsRepost, "carol", "Carol")
	require.NoError(t, err)

	// carol reposted bob's repost, so carolsRepost.OriginalPostID points at
	// alice's root post. Only the tracking record can name her materialized
	// repost; an originalPostId lookup keyed to bob's repost finds nothing.
	f.reposts.On("GetRecord", ctx, "carol", bobsRepost.ID).
		Return(&feed.RepostRecord{UserID: "carol", PostID: bobsRepost.ID, RepostPostID: carolsRepost.ID}, nil)
	f.reposts.On("Remove", ctx, "carol", bobsRepost.ID).Return(false, nil)
	f.posts.On("Delete", ctx, carolsRepost.ID).Return(nil)
	f.comments.On("DeleteAllForPost", ctx, carolsRepost.ID).Return(nil)
	f.reposts.On("CountReposts", ctx, bobsRepost.ID).Return(0, nil)

	result, err := f.service.Unrepost(ctx, "carol", bobsRepost.ID)
	require.NoError(t, err)

	assert.False(t, result.WasNotPresent)
	f.posts.AssertExpectations(t)
	f.posts.AssertNotCalled(t, "FindRepostByUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestEngagementService_Unrepost_FallsBackToIndexLookup(t *testing.T) {
	f := newEngagementFixture()
	ctx := context.Background()

	original := publishedPost(t, "alice", "fed holds rates steady")
	bobsRepost, err := feed.NewRepostOf(original, "bob", "Bob")
	require.NoError(t, err)

	// Without a tracking record the materialized repost is still reachable
	// through the engagement index for reposts of a root post.
	f.reposts.On("GetRecord", ctx, "bob", original.ID).
		Return(nil, pkgerrors.NewNotFoundError("repost record"))
	f.reposts.On("Remove", ctx, "bob", original.ID).Return(true, nil)
	f.posts.On("FindRepostByUser", ctx, "bob", original.ID).Return(bobsRepost, nil)
	f.posts.On("Delete", ctx, bobsRepost.ID).Return(nil)
	f.comments.On("DeleteAllForPost", ctx, bobsRepost.ID).Return(nil)
	f.reposts.On("CountReposts", ctx, original.ID).Return(0, nil)

	result, err := f.service.Unrepost(ctx, "bob", original.ID)
	require.NoError(t, err)

	assert.True(t, result.WasNotPresent)
	f.posts.AssertExpectations(t)
}

func TestEngagementService_Unrepost_NoMaterializedRepost(t *testing.T) {
	f := newEngagementFixture()
	ctx := context.Background()

	f.reposts.On("GetRecord", ctx, "bob", "post-1").Return(nil, pkgerrors.NewNotFoundError("repost record"))
	f.reposts.On("Remove", ctx, "bob", "post-1").Return(true, nil)
	f.posts.On("FindRepostByUser", ctx, "bob", "post-1").Return(nil, pkgerrors.NewNotFoundError("repost"))
	f.reposts.On("CountReposts", ctx, "post-1").Return(0, nil)

	result, err := f.service.Unrepost(ctx, "bob", "post-1")
	require.NoError(t, err)

	assert.True(t, result.WasNotPresent)
	f.posts.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestEngagementService_Follow(t *testing.T) {
	f := newEngagementFixture()
	ctx := context.Background()

	f.follows.On("CreateEdge", ctx, mock.MatchedBy(func(edge *feed.FollowEdge) bool {
		return edge.FollowerUsername == "bob" && edge.FollowingUsername == "alice"
	})).Return(true, nil)
	f.follows.On("FollowersCount", ctx, "alice").Return(5, nil)
	f.events.On("Publish", ctx, mock.Anything).Return(nil)

	result, err := f.service.Follow(ctx, " Bob ", "Alice")
	require.NoError(t, err)

	assert.True(t, result.Following)
	assert.Equal(t, 5, result.FollowersCount)
}

func TestEngagementService_Follow_Idempotent(t *testing.T) {
	f := newEngagementFixture()
	ctx := context.Background()

	f.follows.On("CreateEdge", ctx, mock.Anything).Return(false, nil)
	f.follows.On("FollowersCount", ctx, "alice").Return(5, nil)

	result, err := f.service.Follow(ctx, "bob", "alice")
	require.NoError(t, err)

	// The edge already existed; the call still reports success.
	assert.True(t, result.Following)
	f.events.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestEngagementService_Follow_RejectsSelf(t *testing.T) {
	f := newEngagementFixture()

	_, err := f.service.Follow(context.Background(), "Alice", "alice")
	assert.True(t, pkgerrors.IsValidation(err))
	f.follows.AssertNotCalled(t, "CreateEdge", mock.Anything, mock.Anything)
}

func TestEngagementService_Unfollow(t *testing.T) {
	f := newEngagementFixture()
	ctx := context.Background()

	f.follows.On("DeleteEdge", ctx, "bob", "alice").Return(true, nil)
	f.follows.On("FollowersCount", ctx, "alice").Return(4, nil)

	result, err := f.service.Unfollow(ctx, "Bob", "ALICE")
	require.NoError(t, err)

	assert.False(t, result.Following)
	assert.True(t, result.WasNotPresent)
	assert.Equal(t, 4, result.FollowersCount)
}

func TestEngagementService_Followers_Enrichment(t *testing.T) {
	f := newEngagementFixture()
	ctx := context.Background()

	f.follows.On("FollowersList", ctx, "alice").Return([]feed.FollowListEntry{
		{Username: "bob"},
		{Username: "carol"},
	}, nil)
	f.profiles.On("GetProfile", ctx, "bob").
		Return(&ports.Profile{Username: "bob", DisplayName: "Bob B.", Avatar: "bob.png"}, nil)
	f.profiles.On("GetProfile", ctx, "carol").
		Return(nil, pkgerrors.NewNotFoundError("profile"))

	entries, err := f.service.Followers(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "Bob B.", entries[0].DisplayName)
	assert.Equal(t, "bob.png", entries[0].Avatar)
	// A missing profile leaves the bare entry rather than failing the list.
	assert.Empty(t, entries[1].DisplayName)
}

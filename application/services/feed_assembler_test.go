package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"tradepulse/domain/feed"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func feedPost(t *testing.T, username, content string, mentions []string, age time.Duration) *feed.Post {
	t.Helper()
	post, err := feed.NewPost(username, username, content, nil, mentions, feed.SentimentNeutral)
	require.NoError(t, err)
	post.CreatedAt = time.Now().UTC().Add(-age)
	return post
}

func TestDeduplicate_DropsIDDuplicates(t *testing.T) {
	a := feedPost(t, "alice", "fed holds rates steady", nil, time.Minute)
	posts := Deduplicate([]*feed.Post{a, a})
	assert.Len(t, posts, 1)
}

func TestDeduplicate_CollapsesContentDuplicates(t *testing.T) {
	a := feedPost(t, "newsbot", "BREAKING: Fed holds rates steady", nil, time.Minute)
	b := feedPost(t, "otherbot", "via @newsbot: Fed holds rates steady", nil, 2*time.Minute)
	c := feedPost(t, "alice", "Fed cuts rates by 25bps", nil, 3*time.Minute)

	posts := Deduplicate([]*feed.Post{a, b, c})

	require.Len(t, posts, 2)
	assert.Equal(t, a.ID, posts[0].ID, "first occurrence wins")
	assert.Equal(t, c.ID, posts[1].ID)
}

func TestDeduplicate_RepostsAreExempt(t *testing.T) {
	original := feedPost(t, "alice", "fed holds rates steady", nil, time.Hour)
	bobsRepost, err := feed.NewRepostOf(original, "bob", "Bob")
	require.NoError(t, err)
	carolsRepost, err := feed.NewRepostOf(original, "carol", "Carol")
	require.NoError(t, err)

	// Reposts share content with the root and each other by construction.
	posts := Deduplicate([]*feed.Post{original, bobsRepost, carolsRepost})
	assert.Len(t, posts, 3)
}

func TestSortForFeed(t *testing.T) {
	stockOld := feedPost(t, "alice", "long $TSLA here", []string{"TSLA"}, 2*time.Hour)
	stockNew := feedPost(t, "bob", "$NVDA earnings beat", []string{"NVDA"}, time.Minute)
	plainOld := feedPost(t, "carol", "good morning traders", nil, 3*time.Hour)
	plainNew := feedPost(t, "dave", "what a session", nil, 5*time.Minute)

	posts := []*feed.Post{plainOld, stockOld, plainNew, stockNew}
	SortForFeed(posts)

	// Stock-mention posts lead, newest first within each group.
	assert.Equal(t, []*feed.Post{stockNew, stockOld, plainNew, plainOld}, posts)
}

func TestFeedAssembler_GetFeed(t *testing.T) {
	posts := &mockPostRepository{}
	votes := &mockVoteLedger{}
	reposts := &mockRepostLedger{}
	comments := &mockCommentRepository{}
	news := &mockNewsProvider{}
	assembler := NewFeedAssembler(posts, votes, reposts, comments, nil, news, zap.NewNop())
	ctx := context.Background()

	stored := feedPost(t, "alice", "long $TSLA here", []string{"TSLA"}, time.Hour)
	newsItem := feedPost(t, "newsbot", "Fed holds rates steady", nil, time.Minute)

	posts.On("ListPublished", ctx, 20).Return([]*feed.Post{stored}, nil)
	news.On("RecentNews", ctx, 10).Return([]*feed.Post{newsItem}, nil)

	votes.On("CountVotes", ctx, stored.ID, feed.VoteUptrend).Return(7, nil)
	votes.On("CountVotes", ctx, stored.ID, feed.VoteDowntrend).Return(2, nil)
	reposts.On("CountReposts", ctx, stored.ID).Return(3, nil)
	comments.On("Count", ctx, stored.ID).Return(4, nil)

	// Counter failures on the news item degrade to zero instead of erroring.
	countErr := errors.New("index probe failed")
	votes.On("CountVotes", ctx, newsItem.ID, mock.Anything).Return(0, countErr)
	reposts.On("CountReposts", ctx, newsItem.ID).Return(0, countErr)
	comments.On("Count", ctx, newsItem.ID).Return(0, countErr)

	enriched, err := assembler.GetFeed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, enriched, 2)

	assert.Equal(t, stored.ID, enriched[0].ID, "stock mention sorts first")
	assert.Equal(t, 7, enriched[0].UptrendCount)
	assert.Equal(t, 2, enriched[0].DowntrendCount)
	assert.Equal(t, 3, enriched[0].RepostCount)
	assert.Equal(t, 4, enriched[0].CommentCount)

	assert.Equal(t, newsItem.ID, enriched[1].ID)
	assert.Zero(t, enriched[1].UptrendCount)
	assert.Zero(t, enriched[1].RepostCount)
}

func TestFeedAssembler_GetFeed_NewsFailureDegrades(t *testing.T) {
	posts := &mockPostRepository{}
	votes := &mockVoteLedger{}
	reposts := &mockRepostLedger{}
	comments := &mockCommentRepository{}
	news := &mockNewsProvider{}
	assembler := NewFeedAssembler(posts, votes, reposts, comments, nil, news, zap.NewNop())
	ctx := context.Background()

	stored := feedPost(t, "alice", "good morning traders", nil, time.Hour)
	posts.On("ListPublished", ctx, 20).Return([]*feed.Post{stored}, nil)
	news.On("RecentNews", ctx, 10).Return(nil, errors.New("upstream timeout"))

	votes.On("CountVotes", ctx, stored.ID, mock.Anything).Return(0, nil)
	reposts.On("CountReposts", ctx, stored.ID).Return(0, nil)
	comments.On("Count", ctx, stored.ID).Return(0, nil)

	enriched, err := assembler.GetFeed(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, enriched, 1)
}

func TestFeedAssembler_GetFeed_AppliesLimit(t *testing.T) {
	posts := &mockPostRepository{}
	votes := &mockVoteLedger{}
	reposts := &mockRepostLedger{}
	comments := &mockCommentRepository{}
	assembler := NewFeedAssembler(posts, votes, reposts, comments, nil, nil, zap.NewNop())
	ctx := context.Background()

	stored := []*feed.Post{
		feedPost(t, "alice", "post one", nil, time.Minute),
		feedPost(t, "bob", "post two", nil, 2*time.Minute),
		feedPost(t, "carol", "post three", nil, 3*time.Minute),
	}
	posts.On("ListPublished", ctx, 4).Return(stored, nil)

	votes.On("CountVotes", ctx, mock.Anything, mock.Anything).Return(0, nil)
	reposts.On("CountReposts", ctx, mock.Anything).Return(0, nil)
	comments.On("Count", ctx, mock.Anything).Return(0, nil)

	enriched, err := assembler.GetFeed(ctx, 2)
	require.NoError(t, err)
	require.Len(t, enriched, 2)
	assert.Equal(t, stored[0].ID, enriched[0].ID)
	assert.Equal(t, stored[1].ID, enriched[1].ID)
}

package services

import (
	"context"

	"tradepulse/application/ports"
	"tradepulse/domain/feed"

	"github.com/stretchr/testify/mock"
)

type mockPostRepository struct {
	mock.Mock
}

func (m *mockPostRepository) Create(ctx context.Context, post *feed.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *mockPostRepository) GetByID(ctx context.Context, id string) (*feed.Post, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*feed.Post), args.Error(1)
}

func (m *mockPostRepository) Update(ctx context.Context, post *feed.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *mockPostRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockPostRepository) ListPublished(ctx context.Context, limit int) ([]*feed.Post, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*feed.Post), args.Error(1)
}

func (m *mockPostRepository) FindRepostByUser(ctx context.Context, userID, originalPostID string) (*feed.Post, error) {
	args := m.Called(ctx, userID, originalPostID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*feed.Post), args.Error(1)
}

type mockVoteLedger struct {
	mock.Mock
}

func (m *mockVoteLedger) Upvote(ctx context.Context, userID, postID string) (bool, error) {
	args := m.Called(ctx, userID, postID)
	return args.Bool(0), args.Error(1)
}

func (m *mockVoteLedger) Downvote(ctx context.Context, userID, postID string) (bool, error) {
	args := m.Called(ctx, userID, postID)
	return args.Bool(0), args.Error(1)
}

func (m *mockVoteLedger) RemoveVote(ctx context.Context, userID, postID string, voteType feed.VoteType) (bool, error) {
	args := m.Called(ctx, userID, postID, voteType)
	return args.Bool(0), args.Error(1)
}

func (m *mockVoteLedger) HasVoted(ctx context.Context, userID, postID string, voteType feed.VoteType) (bool, error) {
	args := m.Called(ctx, userID, postID, voteType)
	return args.Bool(0), args.Error(1)
}

func (m *mockVoteLedger) CountVotes(ctx context.Context, postID string, voteType feed.VoteType) (int, error) {
	args := m.Called(ctx, postID, voteType)
	return args.Int(0), args.Error(1)
}

type mockRepostLedger struct {
	mock.Mock
}

func (m *mockRepostLedger) Record(ctx context.Context, rec *feed.RepostRecord) (bool, error) {
	args := m.Called(ctx, rec)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepostLedger) Remove(ctx context.Context, userID, postID string) (bool, error) {
	args := m.Called(ctx, userID, postID)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepostLedger) HasReposted(ctx context.Context, userID, postID string) (bool, error) {
	args := m.Called(ctx, userID, postID)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepostLedger) GetRecord(ctx context.Context, userID, postID string) (*feed.RepostRecord, error) {
	args := m.Called(ctx, userID, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*feed.RepostRecord), args.Error(1)
}

func (m *mockRepostLedger) CountReposts(ctx context.Context, postID string) (int, error) {
	args := m.Called(ctx, postID)
	return args.Int(0), args.Error(1)
}

type mockFollowGraph struct {
	mock.Mock
}

func (m *mockFollowGraph) CreateEdge(ctx context.Context, edge *feed.FollowEdge) (bool, error) {
	args := m.Called(ctx, edge)
	return args.Bool(0), args.Error(1)
}

func (m *mockFollowGraph) DeleteEdge(ctx context.Context, follower, following string) (bool, error) {
	args := m.Called(ctx, follower, following)
	return args.Bool(0), args.Error(1)
}

func (m *mockFollowGraph) IsFollowing(ctx context.Context, follower, following string) (bool, error) {
	args := m.Called(ctx, follower, following)
	return args.Bool(0), args.Error(1)
}

func (m *mockFollowGraph) FollowersCount(ctx context.Context, username string) (int, error) {
	args := m.Called(ctx, username)
	return args.Int(0), args.Error(1)
}

func (m *mockFollowGraph) FollowingCount(ctx context.Context, username string) (int, error) {
	args := m.Called(ctx, username)
	return args.Int(0), args.Error(1)
}

func (m *mockFollowGraph) FollowersList(ctx context.Context, username string) ([]feed.FollowListEntry, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]feed.FollowListEntry), args.Error(1)
}

func (m *mockFollowGraph) FollowingList(ctx context.Context, username string) ([]feed.FollowListEntry, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]feed.FollowListEntry), args.Error(1)
}

type mockCommentRepository struct {
	mock.Mock
}

func (m *mockCommentRepository) Add(ctx context.Context, comment *feed.Comment) error {
	args := m.Called(ctx, comment)
	return args.Error(0)
}

func (m *mockCommentRepository) Delete(ctx context.Context, postID, commentID string) (bool, error) {
	args := m.Called(ctx, postID, commentID)
	return args.Bool(0), args.Error(1)
}

func (m *mockCommentRepository) DeleteAllForPost(ctx context.Context, postID string) error {
	args := m.Called(ctx, postID)
	return args.Error(0)
}

func (m *mockCommentRepository) List(ctx context.Context, postID string) ([]*feed.Comment, error) {
	args := m.Called(ctx, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*feed.Comment), args.Error(1)
}

func (m *mockCommentRepository) Count(ctx context.Context, postID string) (int, error) {
	args := m.Called(ctx, postID)
	return args.Int(0), args.Error(1)
}

type mockProfileReader struct {
	mock.Mock
}

func (m *mockProfileReader) GetProfile(ctx context.Context, username string) (*ports.Profile, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.Profile), args.Error(1)
}

type mockEventPublisher struct {
	mock.Mock
}

func (m *mockEventPublisher) Publish(ctx context.Context, event ports.EngagementEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type mockNewsProvider struct {
	mock.Mock
}

func (m *mockNewsProvider) RecentNews(ctx context.Context, limit int) ([]*feed.Post, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*feed.Post), args.Error(1)
}

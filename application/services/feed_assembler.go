package services

import (
	"context"
	"sort"

	"tradepulse/application/ports"
	"tradepulse/domain/feed"

	"go.uber.org/zap"
)

// FeedAssembler builds the read-path feed: merge posts and news, deduplicate,
// sort, and enrich with live counts. Enrichment favors availability over
// correctness: a failing counter degrades to zero rather than failing the
// whole feed.
type FeedAssembler struct {
	posts    ports.PostRepository
	votes    ports.VoteLedger
	reposts  ports.RepostLedger
	comments ports.CommentRepository
	profiles ports.ProfileReader
	news     ports.NewsProvider
	logger   *zap.Logger
}

// NewFeedAssembler creates a FeedAssembler. news may be nil when no external
// news source is configured.
func NewFeedAssembler(
	posts ports.PostRepository,
	votes ports.VoteLedger,
	reposts ports.RepostLedger,
	comments ports.CommentRepository,
	profiles ports.ProfileReader,
	news ports.NewsProvider,
	logger *zap.Logger,
) *FeedAssembler {
	return &FeedAssembler{
		posts:    posts,
		votes:    votes,
		reposts:  reposts,
		comments: comments,
		profiles: profiles,
		news:     news,
		logger:   logger,
	}
}

const defaultFeedLimit = 50

// GetFeed returns up to limit enriched posts for the home feed.
func (a *FeedAssembler) GetFeed(ctx context.Context, limit int) ([]*feed.EnrichedPost, error) {
	if limit <= 0 {
		limit = defaultFeedLimit
	}

	posts, err := a.posts.ListPublished(ctx, limit*2)
	if err != nil {
		return nil, err
	}

	if a.news != nil {
		newsItems, newsErr := a.news.RecentNews(ctx, limit)
		if newsErr != nil {
			a.logger.Warn("News source unavailable, assembling feed without it", zap.Error(newsErr))
		} else {
			posts = append(posts, newsItems...)
		}
	}

	posts = Deduplicate(posts)
	SortForFeed(posts)
	if len(posts) > limit {
		posts = posts[:limit]
	}

	enriched := make([]*feed.EnrichedPost, 0, len(posts))
	for _, p := range posts {
		enriched = append(enriched, a.enrich(ctx, p))
	}

	return enriched, nil
}

// Deduplicate drops exact id duplicates, then collapses non-repost posts that
// share a normalized-content fingerprint. Reposts are exempt from the content
// pass: they legitimately share content with their root and with each other.
func Deduplicate(posts []*feed.Post) []*feed.Post {
	seenIDs := make(map[string]bool, len(posts))
	seenContent := make(map[string]bool, len(posts))
	out := make([]*feed.Post, 0, len(posts))

	for _, p := range posts {
		if seenIDs[p.ID] {
			continue
		}
		seenIDs[p.ID] = true

		if !p.IsRepost {
			fingerprint := feed.NormalizeForDedup(p.Content)
			if fingerprint != "" {
				if seenContent[fingerprint] {
					continue
				}
				seenContent[fingerprint] = true
			}
		}

		out = append(out, p)
	}

	return out
}

// SortForFeed orders posts carrying a stock symbol before those without one;
// within each group, newest first.
func SortForFeed(posts []*feed.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		iStock, jStock := posts[i].HasStockMention(), posts[j].HasStockMention()
		if iStock != jStock {
			return iStock
		}
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}

// enrich attaches live counters and, when the stored post lacks one, the
// author's current avatar. Every lookup degrades independently.
func (a *FeedAssembler) enrich(ctx context.Context, p *feed.Post) *feed.EnrichedPost {
	e := &feed.EnrichedPost{Post: *p}

	var err error
	if e.UptrendCount, err = a.votes.CountVotes(ctx, p.ID, feed.VoteUptrend); err != nil {
		a.logger.Warn("Failed to count uptrend votes", zap.String("postID", p.ID), zap.Error(err))
		e.UptrendCount = 0
	}
	if e.DowntrendCount, err = a.votes.CountVotes(ctx, p.ID, feed.VoteDowntrend); err != nil {
		a.logger.Warn("Failed to count downtrend votes", zap.String("postID", p.ID), zap.Error(err))
		e.DowntrendCount = 0
	}
	if e.RepostCount, err = a.reposts.CountReposts(ctx, p.ID); err != nil {
		a.logger.Warn("Failed to count reposts", zap.String("postID", p.ID), zap.Error(err))
		e.RepostCount = 0
	}
	if e.CommentCount, err = a.comments.Count(ctx, p.ID); err != nil {
		a.logger.Warn("Failed to count comments", zap.String("postID", p.ID), zap.Error(err))
		e.CommentCount = 0
	}

	if e.AuthorAvatar == "" && a.profiles != nil {
		if profile, profErr := a.profiles.GetProfile(ctx, p.AuthorUsername); profErr == nil {
			e.AuthorAvatar = profile.Avatar
		}
	}

	return e
}

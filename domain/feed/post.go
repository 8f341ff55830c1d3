package feed

import (
	"regexp"
	"strings"
	"time"

	pkgerrors "tradepulse/pkg/errors"

	"github.com/google/uuid"
)

// PostStatus represents the lifecycle state of a post.
type PostStatus string

const (
	StatusPublished PostStatus = "published"
	StatusHidden    PostStatus = "hidden"
	StatusDeleted   PostStatus = "deleted"
)

// Sentiment is the author-declared market sentiment of a post.
type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentBearish Sentiment = "bearish"
	SentimentNeutral Sentiment = "neutral"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_.-]{2,30}$`)

// Post is a feed entry. A repost is a full Post of its own: fresh id, its own
// engagement counters, content copied from the target. When IsRepost is set,
// the Original* fields always identify the root author of the repost chain,
// never an intermediate reposter.
type Post struct {
	ID                      string     `json:"id"`
	AuthorUsername          string     `json:"authorUsername"`
	AuthorDisplayName       string     `json:"authorDisplayName"`
	AuthorAvatar            string     `json:"authorAvatar,omitempty"`
	Content                 string     `json:"content"`
	Tags                    []string   `json:"tags,omitempty"`
	StockMentions           []string   `json:"stockMentions,omitempty"`
	Sentiment               Sentiment  `json:"sentiment,omitempty"`
	CreatedAt               time.Time  `json:"createdAt"`
	Status                  PostStatus `json:"status"`
	IsRepost                bool       `json:"isRepost"`
	OriginalPostID          string     `json:"originalPostId,omitempty"`
	OriginalAuthorUsername  string     `json:"originalAuthorUsername,omitempty"`
	OriginalAuthorName      string     `json:"originalAuthorDisplayName,omitempty"`
	OriginalAuthorAvatar    string     `json:"originalAuthorAvatar,omitempty"`
	OriginalAuthorVerified  bool       `json:"originalAuthorVerified,omitempty"`
}

// EnrichedPost is a Post plus counters recomputed from the ledgers at read
// time, so callers never have to trust counters embedded in the stored item.
type EnrichedPost struct {
	Post
	UptrendCount   int `json:"uptrendCount"`
	DowntrendCount int `json:"downtrendCount"`
	RepostCount    int `json:"repostCount"`
	CommentCount   int `json:"commentCount"`
}

// NewPost creates a published post authored by username.
func NewPost(username, displayName, content string, tags, mentions []string, sentiment Sentiment) (*Post, error) {
	username = NormalizeUsername(username)
	if !usernamePattern.MatchString(username) {
		return nil, pkgerrors.NewValidationError("invalid author username")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, pkgerrors.NewValidationError("post content cannot be empty")
	}

	return &Post{
		ID:                uuid.New().String(),
		AuthorUsername:    username,
		AuthorDisplayName: displayName,
		Content:           content,
		Tags:              tags,
		StockMentions:     mentions,
		Sentiment:         sentiment,
		CreatedAt:         time.Now().UTC(),
		Status:            StatusPublished,
	}, nil
}

// NewRepostOf materializes a repost of target as an independent post authored
// by username. The Original* fields are resolved to the root of the chain: if
// the target is itself a repost its attribution already points at the root and
// is carried forward unchanged.
func NewRepostOf(target *Post, username, displayName string) (*Post, error) {
	username = NormalizeUsername(username)
	if !usernamePattern.MatchString(username) {
		return nil, pkgerrors.NewValidationError("invalid reposter username")
	}
	if target == nil {
		return nil, pkgerrors.NewNotFoundError("post")
	}

	p := &Post{
		ID:                uuid.New().String(),
		AuthorUsername:    username,
		AuthorDisplayName: displayName,
		Content:           target.Content,
		Tags:              target.Tags,
		StockMentions:     target.StockMentions,
		Sentiment:         target.Sentiment,
		CreatedAt:         time.Now().UTC(),
		Status:            StatusPublished,
		IsRepost:          true,
	}

	if target.IsRepost {
		p.OriginalPostID = target.OriginalPostID
		p.OriginalAuthorUsername = target.OriginalAuthorUsername
		p.OriginalAuthorName = target.OriginalAuthorName
		p.OriginalAuthorAvatar = target.OriginalAuthorAvatar
		p.OriginalAuthorVerified = target.OriginalAuthorVerified
	} else {
		p.OriginalPostID = target.ID
		p.OriginalAuthorUsername = target.AuthorUsername
		p.OriginalAuthorName = target.AuthorDisplayName
		p.OriginalAuthorAvatar = target.AuthorAvatar
	}

	return p, nil
}

// HasStockMention reports whether the post carries at least one ticker symbol.
func (p *Post) HasStockMention() bool {
	return len(p.StockMentions) > 0
}

// NormalizeUsername lower-cases a human-chosen identifier for key
// construction. Opaque ids (post ids) are never normalized.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ValidUsername reports whether username is acceptable after normalization.
func ValidUsername(username string) bool {
	return usernamePattern.MatchString(NormalizeUsername(username))
}

package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"tradepulse/application/ports"
	"tradepulse/domain/feed"
	pkgerrors "tradepulse/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// PostRepository implements ports.PostRepository.
type PostRepository struct {
	store *Store
}

// NewPostRepository creates a PostRepository.
func NewPostRepository(store *Store) ports.PostRepository {
	return &PostRepository{store: store}
}

// postItem is the DynamoDB shape of a post. Published posts appear in the
// feed index ordered by creation time; materialized reposts additionally
// appear in the engagement index under their original post so unrepost can
// find them without a scan.
type postItem struct {
	PK                     string   `dynamodbav:"PK"`
	SK                     string   `dynamodbav:"SK"`
	GSI1PK                 string   `dynamodbav:"GSI1PK,omitempty"`
	GSI1SK                 string   `dynamodbav:"GSI1SK,omitempty"`
	GSI2PK                 string   `dynamodbav:"GSI2PK,omitempty"`
	GSI2SK                 string   `dynamodbav:"GSI2SK,omitempty"`
	EntityType             string   `dynamodbav:"EntityType"`
	PostID                 string   `dynamodbav:"PostID"`
	AuthorUsername         string   `dynamodbav:"AuthorUsername"`
	AuthorDisplayName      string   `dynamodbav:"AuthorDisplayName,omitempty"`
	AuthorAvatar           string   `dynamodbav:"AuthorAvatar,omitempty"`
	Content                string   `dynamodbav:"Content"`
	Tags                   []string `dynamodbav:"Tags,omitempty"`
	StockMentions          []string `dynamodbav:"StockMentions,omitempty"`
	Sentiment              string   `dynamodbav:"Sentiment,omitempty"`
	Status                 string   `dynamodbav:"Status"`
	IsRepost               bool     `dynamodbav:"IsRepost"`
	OriginalPostID         string   `dynamodbav:"OriginalPostID,omitempty"`
	OriginalAuthorUsername string   `dynamodbav:"OriginalAuthorUsername,omitempty"`
	OriginalAuthorName     string   `dynamodbav:"OriginalAuthorName,omitempty"`
	OriginalAuthorAvatar   string   `dynamodbav:"OriginalAuthorAvatar,omitempty"`
	OriginalAuthorVerified bool     `dynamodbav:"OriginalAuthorVerified,omitempty"`
	CreatedAt              string   `dynamodbav:"CreatedAt"`
}

func toPostItem(p *feed.Post) postItem {
	item := postItem{
		PK:                     postPK(p.ID),
		SK:                     metadataSK,
		EntityType:             "POST",
		PostID:                 p.ID,
		AuthorUsername:         p.AuthorUsername,
		AuthorDisplayName:      p.AuthorDisplayName,
		AuthorAvatar:           p.AuthorAvatar,
		Content:                p.Content,
		Tags:                   p.Tags,
		StockMentions:          p.StockMentions,
		Sentiment:              string(p.Sentiment),
		Status:                 string(p.Status),
		IsRepost:               p.IsRepost,
		OriginalPostID:         p.OriginalPostID,
		OriginalAuthorUsername: p.OriginalAuthorUsername,
		OriginalAuthorName:     p.OriginalAuthorName,
		OriginalAuthorAvatar:   p.OriginalAuthorAvatar,
		OriginalAuthorVerified: p.OriginalAuthorVerified,
		CreatedAt:              p.CreatedAt.Format(time.RFC3339Nano),
	}

	if p.Status == feed.StatusPublished {
		item.GSI2PK = "FEED"
		item.GSI2SK = item.CreatedAt + "#" + p.ID
	}
	if p.IsRepost {
		item.GSI1PK = postPK(p.OriginalPostID)
		item.GSI1SK = "REPOSTPOST#" + p.AuthorUsername
	}

	return item
}

func fromPostItem(item postItem) *feed.Post {
	createdAt, _ := time.Parse(time.RFC3339Nano, item.CreatedAt)
	return &feed.Post{
		ID:                     item.PostID,
		AuthorUsername:         item.AuthorUsername,
		AuthorDisplayName:      item.AuthorDisplayName,
		AuthorAvatar:           item.AuthorAvatar,
		Content:                item.Content,
		Tags:                   item.Tags,
		StockMentions:          item.StockMentions,
		Sentiment:              feed.Sentiment(item.Sentiment),
		CreatedAt:              createdAt,
		Status:                 feed.PostStatus(item.Status),
		IsRepost:               item.IsRepost,
		OriginalPostID:         item.OriginalPostID,
		OriginalAuthorUsername: item.OriginalAuthorUsername,
		OriginalAuthorName:     item.OriginalAuthorName,
		OriginalAuthorAvatar:   item.OriginalAuthorAvatar,
		OriginalAuthorVerified: item.OriginalAuthorVerified,
	}
}

// Create persists a new post. Post ids are fresh UUIDs, so a key collision
// means a retry of the same create; the conditional write makes it a no-op
// instead of a silent overwrite.
func (r *PostRepository) Create(ctx context.Context, post *feed.Post) error {
	av, err := attributevalue.MarshalMap(toPostItem(post))
	if err != nil {
		return fmt.Errorf("failed to marshal post: %w", err)
	}

	_, err = r.store.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.store.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil
		}
		return fmt.Errorf("failed to save post: %w", err)
	}

	r.store.logger.Debug("Post created",
		zap.String("postID", post.ID),
		zap.String("author", post.AuthorUsername),
		zap.Bool("isRepost", post.IsRepost),
	)

	return nil
}

// GetByID fetches a post by its id.
func (r *PostRepository) GetByID(ctx context.Context, id string) (*feed.Post, error) {
	out, err := r.store.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.store.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: postPK(id)},
			"SK": &types.AttributeValueMemberS{Value: metadataSK},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, pkgerrors.NewNotFoundError("post")
	}

	var item postItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal post: %w", err)
	}

	return fromPostItem(item), nil
}

// Update overwrites the stored post. Authorization (author-only edits) is
// enforced by the service layer before this is called.
func (r *PostRepository) Update(ctx context.Context, post *feed.Post) error {
	av, err := attributevalue.MarshalMap(toPostItem(post))
	if err != nil {
		return fmt.Errorf("failed to marshal post: %w", err)
	}

	_, err = r.store.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.store.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return pkgerrors.NewNotFoundError("post")
		}
		return fmt.Errorf("failed to update post: %w", err)
	}

	return nil
}

// Delete removes the post item. Comment items in the same partition are
// removed by the service through the comment repository.
func (r *PostRepository) Delete(ctx context.Context, id string) error {
	_, err := r.store.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.store.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: postPK(id)},
			"SK": &types.AttributeValueMemberS{Value: metadataSK},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	r.store.logger.Debug("Post deleted", zap.String("postID", id))
	return nil
}

// ListPublished returns up to limit published posts, newest first, from the
// feed index; when the index is absent it scans and sorts in memory.
func (r *PostRepository) ListPublished(ctx context.Context, limit int) ([]*feed.Post, error) {
	if limit <= 0 {
		limit = 50
	}

	if !r.store.probe.isMissing(r.store.feedIndex) {
		posts, err := r.queryPublished(ctx, limit)
		if err == nil {
			return posts, nil
		}
		if !isIndexMissing(err) {
			return nil, err
		}
		r.store.probe.markMissing(r.store.feedIndex)
	}

	r.store.degraded(ctx, r.store.feedIndex, "ListPublished")
	return r.scanPublished(ctx, limit)
}

func (r *PostRepository) queryPublished(ctx context.Context, limit int) ([]*feed.Post, error) {
	posts := make([]*feed.Post, 0, limit)
	var startKey map[string]types.AttributeValue

	for len(posts) < limit {
		out, err := r.store.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.store.tableName),
			IndexName:              aws.String(r.store.feedIndex),
			KeyConditionExpression: aws.String("GSI2PK = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: "FEED"},
			},
			ScanIndexForward:  aws.Bool(false),
			Limit:             aws.Int32(int32(limit)),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query feed: %w", err)
		}

		for _, raw := range out.Items {
			var item postItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.store.logger.Warn("Failed to unmarshal post item", zap.Error(err))
				continue
			}
			if item.Status != string(feed.StatusPublished) {
				continue
			}
			posts = append(posts, fromPostItem(item))
			if len(posts) == limit {
				break
			}
		}

		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	return posts, nil
}

func (r *PostRepository) scanPublished(ctx context.Context, limit int) ([]*feed.Post, error) {
	filt := expression.Name("EntityType").Equal(expression.Value("POST")).
		And(expression.Name("Status").Equal(expression.Value(string(feed.StatusPublished))))

	expr, err := expression.NewBuilder().WithFilter(filt).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build feed scan filter: %w", err)
	}

	var posts []*feed.Post
	var startKey map[string]types.AttributeValue

	for {
		out, err := r.store.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                 aws.String(r.store.tableName),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan posts: %w", err)
		}

		for _, raw := range out.Items {
			var item postItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.store.logger.Warn("Failed to unmarshal post item", zap.Error(err))
				continue
			}
			posts = append(posts, fromPostItem(item))
		}

		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	if len(posts) > limit {
		posts = posts[:limit]
	}

	return posts, nil
}

// FindRepostByUser locates the materialized repost of originalPostID authored
// by userID via the engagement index, scanning when the index is absent.
func (r *PostRepository) FindRepostByUser(ctx context.Context, userID, originalPostID string) (*feed.Post, error) {
	userID = feed.NormalizeUsername(userID)

	if !r.store.probe.isMissing(r.store.engagementIndex) {
		post, err := r.queryRepost(ctx, userID, originalPostID)
		if err == nil || !isIndexMissing(err) {
			return post, err
		}
		r.store.probe.markMissing(r.store.engagementIndex)
	}

	r.store.degraded(ctx, r.store.engagementIndex, "FindRepostByUser")
	return r.scanRepost(ctx, userID, originalPostID)
}

func (r *PostRepository) queryRepost(ctx context.Context, userID, originalPostID string) (*feed.Post, error) {
	out, err := r.store.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.store.tableName),
		IndexName:              aws.String(r.store.engagementIndex),
		KeyConditionExpression: aws.String("GSI1PK = :pk AND GSI1SK = :sk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: postPK(originalPostID)},
			":sk": &types.AttributeValueMemberS{Value: "REPOSTPOST#" + userID},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query repost: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, pkgerrors.NewNotFoundError("repost")
	}

	var item postItem
	if err := attributevalue.UnmarshalMap(out.Items[0], &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal repost: %w", err)
	}

	return fromPostItem(item), nil
}

func (r *PostRepository) scanRepost(ctx context.Context, userID, originalPostID string) (*feed.Post, error) {
	filt := expression.Name("EntityType").Equal(expression.Value("POST")).
		And(expression.Name("IsRepost").Equal(expression.Value(true))).
		And(expression.Name("OriginalPostID").Equal(expression.Value(originalPostID))).
		And(expression.Name("AuthorUsername").Equal(expression.Value(userID)))

	expr, err := expression.NewBuilder().WithFilter(filt).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build repost scan filter: %w", err)
	}

	var startKey map[string]types.AttributeValue
	for {
		out, err := r.store.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                 aws.String(r.store.tableName),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan for repost: %w", err)
		}

		if len(out.Items) > 0 {
			var item postItem
			if err := attributevalue.UnmarshalMap(out.Items[0], &item); err != nil {
				return nil, fmt.Errorf("failed to unmarshal repost: %w", err)
			}
			return fromPostItem(item), nil
		}

		if out.LastEvaluatedKey == nil {
			return nil, pkgerrors.NewNotFoundError("repost")
		}
		startKey = out.LastEvaluatedKey
	}
}

package dynamodb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"tradepulse/application/ports"
	"tradepulse/domain/feed"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// CommentRepository implements ports.CommentRepository. Comments live in the
// post's partition, so listing and counting never need a secondary index.
type CommentRepository struct {
	store *Store
}

// NewCommentRepository creates a CommentRepository.
func NewCommentRepository(store *Store) ports.CommentRepository {
	return &CommentRepository{store: store}
}

type commentItem struct {
	PK             string `dynamodbav:"PK"`
	SK             string `dynamodbav:"SK"`
	EntityType     string `dynamodbav:"EntityType"`
	CommentID      string `dynamodbav:"CommentID"`
	PostID         string `dynamodbav:"PostID"`
	AuthorUsername string `dynamodbav:"AuthorUsername"`
	AuthorAvatar   string `dynamodbav:"AuthorAvatar,omitempty"`
	Content        string `dynamodbav:"Content"`
	CreatedAt      string `dynamodbav:"CreatedAt"`
}

// Add persists a comment.
func (r *CommentRepository) Add(ctx context.Context, comment *feed.Comment) error {
	item := commentItem{
		PK:             postPK(comment.PostID),
		SK:             "COMMENT#" + comment.ID,
		EntityType:     "COMMENT",
		CommentID:      comment.ID,
		PostID:         comment.PostID,
		AuthorUsername: comment.AuthorUsername,
		AuthorAvatar:   comment.AuthorAvatar,
		Content:        comment.Content,
		CreatedAt:      comment.CreatedAt.Format(time.RFC3339Nano),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal comment: %w", err)
	}

	_, err = r.store.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.store.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to save comment: %w", err)
	}

	return nil
}

// Delete removes a single comment; absence is reported, not an error.
func (r *CommentRepository) Delete(ctx context.Context, postID, commentID string) (bool, error) {
	out, err := r.store.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.store.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: postPK(postID)},
			"SK": &types.AttributeValueMemberS{Value: "COMMENT#" + commentID},
		},
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete comment: %w", err)
	}

	return len(out.Attributes) == 0, nil
}

// DeleteAllForPost removes every comment in the post's partition. Called when
// the post itself is deleted; individual failures are logged and skipped so
// one bad item cannot strand the rest.
func (r *CommentRepository) DeleteAllForPost(ctx context.Context, postID string) error {
	comments, err := r.List(ctx, postID)
	if err != nil {
		return err
	}

	for _, c := range comments {
		if _, err := r.Delete(ctx, postID, c.ID); err != nil {
			r.store.logger.Warn("Failed to delete comment during post cleanup",
				zap.String("postID", postID),
				zap.String("commentID", c.ID),
				zap.Error(err),
			)
		}
	}

	return nil
}

// List returns the post's comments, oldest first.
func (r *CommentRepository) List(ctx context.Context, postID string) ([]*feed.Comment, error) {
	var comments []*feed.Comment
	var startKey map[string]types.AttributeValue

	for {
		out, err := r.store.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.store.tableName),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: postPK(postID)},
				":sk": &types.AttributeValueMemberS{Value: "COMMENT#"},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list comments: %w", err)
		}

		for _, raw := range out.Items {
			var item commentItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.store.logger.Warn("Failed to unmarshal comment item", zap.Error(err))
				continue
			}
			createdAt, _ := time.Parse(time.RFC3339Nano, item.CreatedAt)
			comments = append(comments, &feed.Comment{
				ID:             item.CommentID,
				PostID:         item.PostID,
				AuthorUsername: item.AuthorUsername,
				AuthorAvatar:   item.AuthorAvatar,
				Content:        item.Content,
				CreatedAt:      createdAt,
			})
		}

		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})

	return comments, nil
}

// Count counts the post's comments with a COUNT-mode partition query.
func (r *CommentRepository) Count(ctx context.Context, postID string) (int, error) {
	total := 0
	var startKey map[string]types.AttributeValue

	for {
		out, err := r.store.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.store.tableName),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: postPK(postID)},
				":sk": &types.AttributeValueMemberS{Value: "COMMENT#"},
			},
			Select:            types.SelectCount,
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return 0, fmt.Errorf("failed to count comments: %w", err)
		}

		total += int(out.Count)
		if out.LastEvaluatedKey == nil {
			return total, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tradepulse/application/ports"
	"tradepulse/domain/feed"
	pkgerrors "tradepulse/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// RepostLedger implements ports.RepostLedger. Tracking records are keyed by
// the post the user acted on, so counting is per chain node even when the
// materialized repost is attributed to the root author.
type RepostLedger struct {
	store *Store
}

// NewRepostLedger creates a RepostLedger.
func NewRepostLedger(store *Store) ports.RepostLedger {
	return &RepostLedger{store: store}
}

type repostItem struct {
	PK           string `dynamodbav:"PK"`
	SK           string `dynamodbav:"SK"`
	GSI1PK       string `dynamodbav:"GSI1PK"`
	GSI1SK       string `dynamodbav:"GSI1SK"`
	EntityType   string `dynamodbav:"EntityType"`
	UserID       string `dynamodbav:"UserID"`
	PostID       string `dynamodbav:"PostID"`
	RepostPostID string `dynamodbav:"RepostPostID"`
	CreatedAt    string `dynamodbav:"CreatedAt"`
}

// Record stores a tracking record with put-if-absent semantics.
func (l *RepostLedger) Record(ctx context.Context, rec *feed.RepostRecord) (bool, error) {
	item := repostItem{
		PK:           repostPK(rec.UserID, rec.PostID),
		SK:           metadataSK,
		GSI1PK:       postPK(rec.PostID),
		GSI1SK:       "REPOST#" + rec.UserID,
		EntityType:   "REPOST",
		UserID:       rec.UserID,
		PostID:       rec.PostID,
		RepostPostID: rec.RepostPostID,
		CreatedAt:    rec.CreatedAt.Format(time.RFC3339),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return false, fmt.Errorf("failed to marshal repost record: %w", err)
	}

	_, err = l.store.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(l.store.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, fmt.Errorf("failed to save repost record: %w", err)
	}

	return true, nil
}

// Remove deletes the tracking record for (userID, postID).
func (l *RepostLedger) Remove(ctx context.Context, userID, postID string) (bool, error) {
	userID = feed.NormalizeUsername(userID)

	out, err := l.store.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(l.store.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: repostPK(userID, postID)},
			"SK": &types.AttributeValueMemberS{Value: metadataSK},
		},
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete repost record: %w", err)
	}

	return len(out.Attributes) == 0, nil
}

// HasReposted reports whether userID already holds a tracking record for
// postID.
func (l *RepostLedger) HasReposted(ctx context.Context, userID, postID string) (bool, error) {
	rec, err := l.GetRecord(ctx, userID, postID)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return rec != nil, nil
}

// GetRecord fetches the tracking record for (userID, postID).
func (l *RepostLedger) GetRecord(ctx context.Context, userID, postID string) (*feed.RepostRecord, error) {
	userID = feed.NormalizeUsername(userID)

	out, err := l.store.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(l.store.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: repostPK(userID, postID)},
			"SK": &types.AttributeValueMemberS{Value: metadataSK},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get repost record: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, pkgerrors.NewNotFoundError("repost record")
	}

	var item repostItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal repost record: %w", err)
	}

	createdAt, _ := time.Parse(time.RFC3339, item.CreatedAt)
	return &feed.RepostRecord{
		UserID:       item.UserID,
		PostID:       item.PostID,
		RepostPostID: item.RepostPostID,
		CreatedAt:    createdAt,
	}, nil
}

// CountReposts counts tracking records for a post via the engagement index,
// with a COUNT-mode scan fallback.
func (l *RepostLedger) CountReposts(ctx context.Context, postID string) (int, error) {
	if !l.store.probe.isMissing(l.store.engagementIndex) {
		count, err := l.queryCount(ctx, postID)
		if err == nil {
			return count, nil
		}
		if !isIndexMissing(err) {
			return 0, err
		}
		l.store.probe.markMissing(l.store.engagementIndex)
	}

	l.store.degraded(ctx, l.store.engagementIndex, "CountReposts")
	return l.scanCount(ctx, postID)
}

func (l *RepostLedger) queryCount(ctx context.Context, postID string) (int, error) {
	total := 0
	var startKey map[string]types.AttributeValue

	for {
		out, err := l.store.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(l.store.tableName),
			IndexName:              aws.String(l.store.engagementIndex),
			KeyConditionExpression: aws.String("GSI1PK = :pk AND begins_with(GSI1SK, :sk)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: postPK(postID)},
				":sk": &types.AttributeValueMemberS{Value: "REPOST#"},
			},
			Select:            types.SelectCount,
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return 0, fmt.Errorf("failed to count reposts: %w", err)
		}

		total += int(out.Count)
		if out.LastEvaluatedKey == nil {
			return total, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

func (l *RepostLedger) scanCount(ctx context.Context, postID string) (int, error) {
	filt := expression.Name("EntityType").Equal(expression.Value("REPOST")).
		And(expression.Name("PostID").Equal(expression.Value(postID)))

	expr, err := expression.NewBuilder().WithFilter(filt).Build()
	if err != nil {
		return 0, fmt.Errorf("failed to build repost scan filter: %w", err)
	}

	total := 0
	var startKey map[string]types.AttributeValue

	for {
		out, err := l.store.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                 aws.String(l.store.tableName),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			Select:                    types.SelectCount,
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return 0, fmt.Errorf("failed to scan repost records: %w", err)
		}

		total += int(out.Count)
		if out.LastEvaluatedKey == nil {
			return total, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

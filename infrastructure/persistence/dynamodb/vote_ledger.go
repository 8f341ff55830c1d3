package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tradepulse/application/ports"
	"tradepulse/domain/feed"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// VoteLedger implements ports.VoteLedger on the shared store.
type VoteLedger struct {
	store *Store
}

// NewVoteLedger creates a VoteLedger.
func NewVoteLedger(store *Store) ports.VoteLedger {
	return &VoteLedger{store: store}
}

// voteItem is the DynamoDB shape of a vote row. The engagement index keys it
// by target post so counts are a single COUNT query.
type voteItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	GSI1PK     string `dynamodbav:"GSI1PK"`
	GSI1SK     string `dynamodbav:"GSI1SK"`
	EntityType string `dynamodbav:"EntityType"`
	UserID     string `dynamodbav:"UserID"`
	PostID     string `dynamodbav:"PostID"`
	VoteType   string `dynamodbav:"VoteType"`
	CreatedAt  string `dynamodbav:"CreatedAt"`
}

// Upvote records an uptrend vote, clearing any downtrend vote for the pair
// first. A second Upvote for the same pair is a no-op.
func (l *VoteLedger) Upvote(ctx context.Context, userID, postID string) (bool, error) {
	return l.cast(ctx, userID, postID, feed.VoteUptrend)
}

// Downvote records a downtrend vote, clearing any uptrend vote first.
func (l *VoteLedger) Downvote(ctx context.Context, userID, postID string) (bool, error) {
	return l.cast(ctx, userID, postID, feed.VoteDowntrend)
}

func (l *VoteLedger) cast(ctx context.Context, userID, postID string, voteType feed.VoteType) (bool, error) {
	vote, err := feed.NewVote(userID, postID, voteType)
	if err != nil {
		return false, err
	}

	already, err := l.HasVoted(ctx, vote.UserID, vote.PostID, voteType)
	if err != nil {
		return false, err
	}
	if already {
		return false, nil
	}

	// Mutual exclusivity: the store has no multi-item transaction here, so
	// the opposite vote is cleared before the new one is written.
	if _, err := l.RemoveVote(ctx, vote.UserID, vote.PostID, voteType.Opposite()); err != nil {
		return false, err
	}

	item := voteItem{
		PK:         votePK(vote.UserID, vote.PostID),
		SK:         voteSK(string(voteType)),
		GSI1PK:     postPK(vote.PostID),
		GSI1SK:     "VOTE#" + string(voteType) + "#" + vote.UserID,
		EntityType: "VOTE",
		UserID:     vote.UserID,
		PostID:     vote.PostID,
		VoteType:   string(voteType),
		CreatedAt:  vote.CreatedAt.Format(time.RFC3339),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return false, fmt.Errorf("failed to marshal vote: %w", err)
	}

	// Put-if-absent on the composite key closes the double-click race that a
	// bare existence check would leave open.
	_, err = l.store.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(l.store.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			// A concurrent duplicate landed first; the vote exists, so this
			// request simply didn't create it.
			return false, nil
		}
		return false, fmt.Errorf("failed to save vote: %w", err)
	}

	l.store.logger.Debug("Vote recorded",
		zap.String("userID", vote.UserID),
		zap.String("postID", vote.PostID),
		zap.String("type", string(voteType)),
	)

	return true, nil
}

// RemoveVote deletes the vote row for (userID, postID, voteType). Absence is
// reported through wasNotPresent, never as an error.
func (l *VoteLedger) RemoveVote(ctx context.Context, userID, postID string, voteType feed.VoteType) (bool, error) {
	userID = feed.NormalizeUsername(userID)

	out, err := l.store.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(l.store.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: votePK(userID, postID)},
			"SK": &types.AttributeValueMemberS{Value: voteSK(string(voteType))},
		},
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete vote: %w", err)
	}

	return len(out.Attributes) == 0, nil
}

// HasVoted reports whether a vote of the given type exists for the pair.
func (l *VoteLedger) HasVoted(ctx context.Context, userID, postID string, voteType feed.VoteType) (bool, error) {
	userID = feed.NormalizeUsername(userID)

	out, err := l.store.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(l.store.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: votePK(userID, postID)},
			"SK": &types.AttributeValueMemberS{Value: voteSK(string(voteType))},
		},
	})
	if err != nil {
		return false, fmt.Errorf("failed to get vote: %w", err)
	}

	return len(out.Item) > 0, nil
}

// CountVotes counts votes of one type for a post via the engagement index,
// falling back to a COUNT-mode scan when the index is absent.
func (l *VoteLedger) CountVotes(ctx context.Context, postID string, voteType feed.VoteType) (int, error) {
	if !l.store.probe.isMissing(l.store.engagementIndex) {
		count, err := l.queryCount(ctx, postID, voteType)
		if err == nil {
			return count, nil
		}
		if !isIndexMissing(err) {
			return 0, err
		}
		l.store.probe.markMissing(l.store.engagementIndex)
	}

	l.store.degraded(ctx, l.store.engagementIndex, "CountVotes")
	return l.scanCount(ctx, postID, voteType)
}

func (l *VoteLedger) queryCount(ctx context.Context, postID string, voteType feed.VoteType) (int, error) {
	total := 0
	var startKey map[string]types.AttributeValue

	for {
		out, err := l.store.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(l.store.tableName),
			IndexName:              aws.String(l.store.engagementIndex),
			KeyConditionExpression: aws.String("GSI1PK = :pk AND begins_with(GSI1SK, :sk)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: postPK(postID)},
				":sk": &types.AttributeValueMemberS{Value: "VOTE#" + string(voteType) + "#"},
			},
			Select:            types.SelectCount,
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return 0, fmt.Errorf("failed to count votes: %w", err)
		}

		total += int(out.Count)
		if out.LastEvaluatedKey == nil {
			return total, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

func (l *VoteLedger) scanCount(ctx context.Context, postID string, voteType feed.VoteType) (int, error) {
	filt := expression.Name("EntityType").Equal(expression.Value("VOTE")).
		And(expression.Name("PostID").Equal(expression.Value(postID))).
		And(expression.Name("VoteType").Equal(expression.Value(string(voteType))))

	expr, err := expression.NewBuilder().WithFilter(filt).Build()
	if err != nil {
		return 0, fmt.Errorf("failed to build vote scan filter: %w", err)
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
			return 0, fmt.Errorf("failed to scan votes: %w", err)
		}

		total += int(out.Count)
		if out.LastEvaluatedKey == nil {
			return total, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

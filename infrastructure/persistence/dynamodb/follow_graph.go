package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
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

// FollowGraph implements ports.FollowGraph. Following lookups use the main
// table partition; follower lookups use the engagement index reverse keys.
type FollowGraph struct {
	store *Store
}

// NewFollowGraph creates a FollowGraph.
func NewFollowGraph(store *Store) ports.FollowGraph {
	return &FollowGraph{store: store}
}

type followItem struct {
	PK                string `dynamodbav:"PK"`
	SK                string `dynamodbav:"SK"`
	GSI1PK            string `dynamodbav:"GSI1PK"`
	GSI1SK            string `dynamodbav:"GSI1SK"`
	EntityType        string `dynamodbav:"EntityType"`
	FollowerUsername  string `dynamodbav:"FollowerUsername"`
	FollowingUsername string `dynamodbav:"FollowingUsername"`
	FollowedAt        string `dynamodbav:"FollowedAt"`
}

// CreateEdge stores the follow edge with put-if-absent semantics. Username
// validation and self-follow rejection happen in feed.NewFollowEdge.
func (g *FollowGraph) CreateEdge(ctx context.Context, edge *feed.FollowEdge) (bool, error) {
	item := followItem{
		PK:                followPK(edge.FollowerUsername),
		SK:                followSK(edge.FollowingUsername),
		GSI1PK:            "FOLLOWED#" + edge.FollowingUsername,
		GSI1SK:            "FOLLOWER#" + edge.FollowerUsername,
		EntityType:        "FOLLOW",
		FollowerUsername:  edge.FollowerUsername,
		FollowingUsername: edge.FollowingUsername,
		FollowedAt:        edge.FollowedAt.Format(time.RFC3339),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return false, fmt.Errorf("failed to marshal follow edge: %w", err)
	}

	_, err = g.store.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(g.store.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, fmt.Errorf("failed to save follow edge: %w", err)
	}

	g.store.logger.Debug("Follow edge created",
		zap.String("follower", edge.FollowerUsername),
		zap.String("following", edge.FollowingUsername),
	)

	return true, nil
}

// DeleteEdge removes the edge; absence is reported, not an error.
func (g *FollowGraph) DeleteEdge(ctx context.Context, follower, following string) (bool, error) {
	follower = feed.NormalizeUsername(follower)
	following = feed.NormalizeUsername(following)

	out, err := g.store.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(g.store.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: followPK(follower)},
			"SK": &types.AttributeValueMemberS{Value: followSK(following)},
		},
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete follow edge: %w", err)
	}

	return len(out.Attributes) == 0, nil
}

// IsFollowing reports whether the directed edge exists.
func (g *FollowGraph) IsFollowing(ctx context.Context, follower, following string) (bool, error) {
	follower = feed.NormalizeUsername(follower)
	following = feed.NormalizeUsername(following)

	out, err := g.store.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(g.store.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: followPK(follower)},
			"SK": &types.AttributeValueMemberS{Value: followSK(following)},
		},
	})
	if err != nil {
		return false, fmt.Errorf("failed to get follow edge: %w", err)
	}

	return len(out.Item) > 0, nil
}

// FollowersCount counts edges pointing at username.
func (g *FollowGraph) FollowersCount(ctx context.Context, username string) (int, error) {
	username = feed.NormalizeUsername(username)

	if !g.store.probe.isMissing(g.store.engagementIndex) {
		count, err := g.countIndexed(ctx, "FOLLOWED#"+username, "FOLLOWER#")
		if err == nil {
			return count, nil
		}
		if !isIndexMissing(err) {
			return 0, err
		}
		g.store.probe.markMissing(g.store.engagementIndex)
	}

	g.store.degraded(ctx, g.store.engagementIndex, "FollowersCount")
	return g.scanCount(ctx, "FollowingUsername", username)
}

// FollowingCount counts edges originating from username. The main table
// partition already groups these, so no secondary index is needed.
func (g *FollowGraph) FollowingCount(ctx context.Context, username string) (int, error) {
	username = feed.NormalizeUsername(username)

	total := 0
	var startKey map[string]types.AttributeValue
	for {
		out, err := g.store.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(g.store.tableName),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: followPK(username)},
				":sk": &types.AttributeValueMemberS{Value: "USER#"},
			},
			Select:            types.SelectCount,
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return 0, fmt.Errorf("failed to count following: %w", err)
		}

		total += int(out.Count)
		if out.LastEvaluatedKey == nil {
			return total, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// FollowersList returns the users following username, most recent first.
func (g *FollowGraph) FollowersList(ctx context.Context, username string) ([]feed.FollowListEntry, error) {
	username = feed.NormalizeUsername(username)

	if !g.store.probe.isMissing(g.store.engagementIndex) {
		items, err := g.queryIndexed(ctx, "FOLLOWED#"+username, "FOLLOWER#")
		if err == nil {
			return followersEntries(items, true), nil
		}
		if !isIndexMissing(err) {
			return nil, err
		}
		g.store.probe.markMissing(g.store.engagementIndex)
	}

	g.store.degraded(ctx, g.store.engagementIndex, "FollowersList")
	items, err := g.scanEdges(ctx, "FollowingUsername", username)
	if err != nil {
		return nil, err
	}
	return followersEntries(items, true), nil
}

// FollowingList returns the users username follows, most recent first.
func (g *FollowGraph) FollowingList(ctx context.Context, username string) ([]feed.FollowListEntry, error) {
	username = feed.NormalizeUsername(username)

	var items []followItem
	var startKey map[string]types.AttributeValue
	for {
		out, err := g.store.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(g.store.tableName),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: followPK(username)},
				":sk": &types.AttributeValueMemberS{Value: "USER#"},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list following: %w", err)
		}

		for _, raw := range out.Items {
			var item followItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				g.store.logger.Warn("Failed to unmarshal follow item", zap.Error(err))
				continue
			}
			items = append(items, item)
		}

		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	return followersEntries(items, false), nil
}

func (g *FollowGraph) countIndexed(ctx context.Context, pk, skPrefix string) (int, error) {
	total := 0
	var startKey map[string]types.AttributeValue
	for {
		out, err := g.store.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(g.store.tableName),
			IndexName:              aws.String(g.store.engagementIndex),
			KeyConditionExpression: aws.String("GSI1PK = :pk AND begins_with(GSI1SK, :sk)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: pk},
				":sk": &types.AttributeValueMemberS{Value: skPrefix},
			},
			Select:            types.SelectCount,
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return 0, fmt.Errorf("failed to count followers: %w", err)
		}

		total += int(out.Count)
		if out.LastEvaluatedKey == nil {
			return total, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

func (g *FollowGraph) queryIndexed(ctx context.Context, pk, skPrefix string) ([]followItem, error) {
	var items []followItem
	var startKey map[string]types.AttributeValue
	for {
		out, err := g.store.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(g.store.tableName),
			IndexName:              aws.String(g.store.engagementIndex),
			KeyConditionExpression: aws.String("GSI1PK = :pk AND begins_with(GSI1SK, :sk)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: pk},
				":sk": &types.AttributeValueMemberS{Value: skPrefix},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list followers: %w", err)
		}

		for _, raw := range out.Items {
			var item followItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				g.store.logger.Warn("Failed to unmarshal follow item", zap.Error(err))
				continue
			}
			items = append(items, item)
		}

		if out.LastEvaluatedKey == nil {
			return items, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

func (g *FollowGraph) scanCount(ctx context.Context, attr, username string) (int, error) {
	filt := expression.Name("EntityType").Equal(expression.Value("FOLLOW")).
		And(expression.Name(attr).Equal(expression.Value(username)))

	expr, err := expression.NewBuilder().WithFilter(filt).Build()
	if err != nil {
		return 0, fmt.Errorf("failed to build follow scan filter: %w", err)
	}

	total := 0
	var startKey map[string]types.AttributeValue
	for {
		out, err := g.store.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                 aws.String(g.store.tableName),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			Select:                    types.SelectCount,
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return 0, fmt.Errorf("failed to scan follow edges: %w", err)
		}

		total += int(out.Count)
		if out.LastEvaluatedKey == nil {
			return total, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

func (g *FollowGraph) scanEdges(ctx context.Context, attr, username string) ([]followItem, error) {
	filt := expression.Name("EntityType").Equal(expression.Value("FOLLOW")).
		And(expression.Name(attr).Equal(expression.Value(username)))

	expr, err := expression.NewBuilder().WithFilter(filt).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build follow scan filter: %w", err)
	}

	var items []followItem
	var startKey map[string]types.AttributeValue
	for {
		out, err := g.store.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                 aws.String(g.store.tableName),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan follow edges: %w", err)
		}

		for _, raw := range out.Items {
			var item followItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				g.store.logger.Warn("Failed to unmarshal follow item", zap.Error(err))
				continue
			}
			items = append(items, item)
		}

		if out.LastEvaluatedKey == nil {
			return items, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// followersEntries converts edge items to list entries, taking the follower
// side when wantFollower is true and the followed side otherwise. Display
// fields are filled in later from the profile store.
func followersEntries(items []followItem, wantFollower bool) []feed.FollowListEntry {
	entries := make([]feed.FollowListEntry, 0, len(items))
	for _, item := range items {
		username := item.FollowerUsername
		if !wantFollower {
			username = item.FollowingUsername
		}
		followedAt, _ := time.Parse(time.RFC3339, item.FollowedAt)
		entries = append(entries, feed.FollowListEntry{
			Username:   username,
			FollowedAt: followedAt,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].FollowedAt.After(entries[j].FollowedAt)
	})

	return entries
}

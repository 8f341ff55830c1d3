package dynamodb

import (
	"context"
	"fmt"

	"tradepulse/application/ports"
	"tradepulse/domain/feed"
	pkgerrors "tradepulse/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ProfileStore implements ports.ProfileReader. Profile items are written by
// the account system; this service only reads them for feed enrichment.
type ProfileStore struct {
	store *Store
}

// NewProfileStore creates a ProfileStore.
func NewProfileStore(store *Store) ports.ProfileReader {
	return &ProfileStore{store: store}
}

type profileItem struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	Username    string `dynamodbav:"Username"`
	DisplayName string `dynamodbav:"DisplayName,omitempty"`
	Avatar      string `dynamodbav:"Avatar,omitempty"`
	Verified    bool   `dynamodbav:"Verified,omitempty"`
}

// GetProfile fetches the current display fields for a username.
func (s *ProfileStore) GetProfile(ctx context.Context, username string) (*ports.Profile, error) {
	username = feed.NormalizeUsername(username)

	out, err := s.store.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.store.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: profilePK(username)},
			"SK": &types.AttributeValueMemberS{Value: metadataSK},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, pkgerrors.NewNotFoundError("profile")
	}

	var item profileItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}

	return &ports.Profile{
		Username:    item.Username,
		DisplayName: item.DisplayName,
		Avatar:      item.Avatar,
		Verified:    item.Verified,
	}, nil
}

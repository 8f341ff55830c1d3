// Package dynamodb implements the application's repositories on a single
// DynamoDB table with composite PK/SK keys. Count and list queries go through
// two secondary indexes; when an index does not exist the implementation
// degrades to filtered scans and remembers the missing index so later calls
// skip the failed query entirely.
package dynamodb

import (
	"context"
	"errors"
	"strings"
	"sync"

	"tradepulse/application/ports"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

// Item layout:
//
//	POST#<id>            / METADATA            post (feed index: FEED / <createdAt>#<id>)
//	POST#<postID>        / COMMENT#<commentID> comment
//	VOTE#<user>_<postID> / TYPE#<voteType>     vote (engagement index: POST#<postID> / VOTE#<type>#<user>)
//	REPOST#<user>_<postID> / METADATA          repost record (engagement index: POST#<postID> / REPOST#<user>)
//	FOLLOW#<follower>    / USER#<following>    follow edge (engagement index: FOLLOWED#<following> / FOLLOWER#<follower>)
//	PROFILE#<username>   / METADATA            profile (read-only here)
//
// Human-chosen identifiers (usernames) are lower-cased before key
// construction; opaque ids (post ids) keep their case.

// DynamoAPI is the subset of the DynamoDB client the repositories use.
// *dynamodb.Client satisfies it; tests provide an in-memory fake.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Store bundles the client, table/index names, and the index capability cache
// shared by every repository in this package.
type Store struct {
	client          DynamoAPI
	tableName       string
	engagementIndex string
	feedIndex       string
	probe           *indexProbe
	metrics         ports.MetricsRecorder
	logger          *zap.Logger
}

// NewStore creates the shared store handle.
func NewStore(client DynamoAPI, tableName, engagementIndex, feedIndex string, metrics ports.MetricsRecorder, logger *zap.Logger) *Store {
	return &Store{
		client:          client,
		tableName:       tableName,
		engagementIndex: engagementIndex,
		feedIndex:       feedIndex,
		probe:           &indexProbe{},
		metrics:         metrics,
		logger:          logger,
	}
}

// indexProbe caches which secondary indexes are known to be absent. The first
// IndexUnavailable response flips the flag; every later call for that index
// goes straight to the scan path instead of paying the failed query again.
type indexProbe struct {
	missing sync.Map
}

func (p *indexProbe) markMissing(index string) {
	p.missing.Store(index, true)
}

func (p *indexProbe) isMissing(index string) bool {
	_, ok := p.missing.Load(index)
	return ok
}

// isIndexMissing reports whether err indicates the queried index does not
// exist on the table, as opposed to a genuine store failure.
func isIndexMissing(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.ErrorCode() != "ValidationException" && apiErr.ErrorCode() != "ResourceNotFoundException" {
		return false
	}
	msg := strings.ToLower(apiErr.ErrorMessage())
	return strings.Contains(msg, "index")
}

// degraded records that an index query fell back to a scan. Logged as a
// warning and counted; never surfaced to the caller.
func (s *Store) degraded(ctx context.Context, index, operation string) {
	s.logger.Warn("secondary index unavailable, serving from scan",
		zap.String("index", index),
		zap.String("operation", operation),
	)
	if s.metrics != nil {
		s.metrics.IncrementCounter(ctx, "DegradedScan", map[string]string{
			"Index":     index,
			"Operation": operation,
		})
	}
}

// Key builders. Composite keys join the normalized actor id and the target id
// with an underscore.

func postPK(postID string) string { return "POST#" + postID }

func votePK(userID, postID string) string { return "VOTE#" + userID + "_" + postID }

func voteSK(voteType string) string { return "TYPE#" + voteType }

func repostPK(userID, postID string) string { return "REPOST#" + userID + "_" + postID }

func followPK(follower string) string { return "FOLLOW#" + follower }

func followSK(following string) string { return "USER#" + following }

func profilePK(username string) string { return "PROFILE#" + username }

const metadataSK = "METADATA"

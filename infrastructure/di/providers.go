package di

import (
	"context"
	"fmt"

	"tradepulse/application/ports"
	"tradepulse/application/services"
	"tradepulse/infrastructure/config"
	"tradepulse/infrastructure/messaging/eventbridge"
	"tradepulse/infrastructure/persistence/dynamodb"
	"tradepulse/pkg/auth"
	"tradepulse/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config            *config.Config
	Logger            *zap.Logger
	Store             *dynamodb.Store
	PostRepo          ports.PostRepository
	VoteLedger        ports.VoteLedger
	RepostLedger      ports.RepostLedger
	FollowGraph       ports.FollowGraph
	CommentRepo       ports.CommentRepository
	ProfileReader     ports.ProfileReader
	EventPublisher    ports.EventPublisher
	Metrics           *observability.Metrics
	EngagementService *services.EngagementService
	PostService       *services.PostService
	FeedAssembler     *services.FeedAssembler
	JWTValidator      *auth.JWTValidator
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	if cfg.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		return nil, err
	}

	return logger, nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideMetrics creates a metrics recorder
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config, logger *zap.Logger) *observability.Metrics {
	if !cfg.EnableMetrics {
		return nil
	}
	namespace := fmt.Sprintf("TradePulse/%s", cfg.Environment)
	return observability.NewMetrics(client, namespace, logger)
}

// ProvideStore creates the shared DynamoDB store
func ProvideStore(client *awsdynamodb.Client, cfg *config.Config, metrics *observability.Metrics, logger *zap.Logger) *dynamodb.Store {
	return dynamodb.NewStore(
		client,
		cfg.DynamoDBTable,
		cfg.EngagementIndexName,
		cfg.FeedIndexName,
		metrics,
		logger,
	)
}

// ProvidePostRepository creates a post repository
func ProvidePostRepository(store *dynamodb.Store) ports.PostRepository {
	return dynamodb.NewPostRepository(store)
}

// ProvideVoteLedger creates a vote ledger
func ProvideVoteLedger(store *dynamodb.Store) ports.VoteLedger {
	return dynamodb.NewVoteLedger(store)
}

// ProvideRepostLedger creates a repost ledger
func ProvideRepostLedger(store *dynamodb.Store) ports.RepostLedger {
	return dynamodb.NewRepostLedger(store)
}

// ProvideFollowGraph creates a follow graph
func ProvideFollowGraph(store *dynamodb.Store) ports.FollowGraph {
	return dynamodb.NewFollowGraph(store)
}

// ProvideCommentRepository creates a comment repository
func ProvideCommentRepository(store *dynamodb.Store) ports.CommentRepository {
	return dynamodb.NewCommentRepository(store)
}

// ProvideProfileReader creates a profile reader
func ProvideProfileReader(store *dynamodb.Store) ports.ProfileReader {
	return dynamodb.NewProfileStore(store)
}

// ProvideEventPublisher creates an event publisher
func ProvideEventPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideEngagementService creates the engagement service
func ProvideEngagementService(
	posts ports.PostRepository,
	votes ports.VoteLedger,
	reposts ports.RepostLedger,
	follows ports.FollowGraph,
	comments ports.CommentRepository,
	profiles ports.ProfileReader,
	events ports.EventPublisher,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *services.EngagementService {
	return services.NewEngagementService(posts, votes, reposts, follows, comments, profiles, events, metricsRecorder(metrics), logger)
}

// ProvidePostService creates the post service
func ProvidePostService(posts ports.PostRepository, comments ports.CommentRepository, logger *zap.Logger) *services.PostService {
	return services.NewPostService(posts, comments, logger)
}

// ProvideFeedAssembler creates the feed assembler
func ProvideFeedAssembler(
	posts ports.PostRepository,
	votes ports.VoteLedger,
	reposts ports.RepostLedger,
	comments ports.CommentRepository,
	profiles ports.ProfileReader,
	logger *zap.Logger,
) *services.FeedAssembler {
	// No external news source is wired yet; the assembler handles nil.
	return services.NewFeedAssembler(posts, votes, reposts, comments, profiles, nil, logger)
}

// ProvideJWTValidator creates the JWT validator for the HTTP layer
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		secret = "development-secret-change-in-production"
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: secret,
		Issuer:    cfg.JWTIssuer,
	})
}

// metricsRecorder converts a possibly nil *Metrics into the port type.
// A typed nil inside a non-nil interface would defeat the service's nil
// checks, so map nil to nil explicitly.
func metricsRecorder(m *observability.Metrics) ports.MetricsRecorder {
	if m == nil {
		return nil
	}
	return m
}

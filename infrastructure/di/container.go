//go:build !wireinject
// +build !wireinject

package di

import (
	"context"

	"tradepulse/infrastructure/config"
)

// InitializeContainer creates a fully wired container. Kept in sync with the
// wire provider set by hand.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, err
	}

	awsCfg, err := ProvideAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	dynamoClient := ProvideDynamoDBClient(awsCfg)
	eventBridgeClient := ProvideEventBridgeClient(awsCfg)
	cloudWatchClient := ProvideCloudWatchClient(awsCfg)

	metrics := ProvideMetrics(cloudWatchClient, cfg, logger)
	store := ProvideStore(dynamoClient, cfg, metrics, logger)

	postRepo := ProvidePostRepository(store)
	voteLedger := ProvideVoteLedger(store)
	repostLedger := ProvideRepostLedger(store)
	followGraph := ProvideFollowGraph(store)
	commentRepo := ProvideCommentRepository(store)
	profileReader := ProvideProfileReader(store)
	eventPublisher := ProvideEventPublisher(eventBridgeClient, cfg, logger)

	engagementService := ProvideEngagementService(
		postRepo, voteLedger, repostLedger, followGraph,
		commentRepo, profileReader, eventPublisher, metrics, logger,
	)
	postService := ProvidePostService(postRepo, commentRepo, logger)
	feedAssembler := ProvideFeedAssembler(
		postRepo, voteLedger, repostLedger, commentRepo, profileReader, logger,
	)

	validator, err := ProvideJWTValidator(cfg)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:            cfg,
		Logger:            logger,
		Store:             store,
		PostRepo:          postRepo,
		VoteLedger:        voteLedger,
		RepostLedger:      repostLedger,
		FollowGraph:       followGraph,
		CommentRepo:       commentRepo,
		ProfileReader:     profileReader,
		EventPublisher:    eventPublisher,
		Metrics:           metrics,
		EngagementService: engagementService,
		PostService:       postService,
		FeedAssembler:     feedAssembler,
		JWTValidator:      validator,
	}, nil
}

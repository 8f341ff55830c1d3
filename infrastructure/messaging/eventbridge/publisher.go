// Package eventbridge publishes engagement events to an EventBridge bus.
// Delivery is best effort: the feed's write paths never fail because an event
// could not be put on the bus.
package eventbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"tradepulse/application/ports"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"
)

const eventSource = "tradepulse.engagement"

// Publisher implements ports.EventPublisher on EventBridge.
type Publisher struct {
	client  *eventbridge.Client
	busName string
	logger  *zap.Logger
}

// NewPublisher creates a Publisher.
func NewPublisher(client *eventbridge.Client, busName string, logger *zap.Logger) ports.EventPublisher {
	return &Publisher{
		client:  client,
		busName: busName,
		logger:  logger,
	}
}

// Publish puts a single engagement event on the bus.
func (p *Publisher) Publish(ctx context.Context, event ports.EngagementEvent) error {
	detail, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event detail: %w", err)
	}

	out, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []types.PutEventsRequestEntry{
			{
				EventBusName: aws.String(p.busName),
				Source:       aws.String(eventSource),
				DetailType:   aws.String(event.DetailType),
				Detail:       aws.String(string(detail)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to put event: %w", err)
	}
	if out.FailedEntryCount > 0 {
		return fmt.Errorf("event bus rejected %d entries", out.FailedEntryCount)
	}

	p.logger.Debug("Engagement event published",
		zap.String("detailType", event.DetailType),
		zap.String("userID", event.UserID),
	)

	return nil
}

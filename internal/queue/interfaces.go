package queue

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/BarkinBalci/attribution-relay/internal/domain"
)

// JobPublisher defines the interface for publishing jobs to the work queue
type JobPublisher interface {
	PublishJob(ctx context.Context, job *domain.Job) error
}

// QueueConsumer defines the interface for consuming messages from a queue
type QueueConsumer interface {
	ReceiveMessages(ctx context.Context, input *sqs.ReceiveMessageInput) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, input *sqs.DeleteMessageInput) (*sqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, input *sqs.ChangeMessageVisibilityInput) (*sqs.ChangeMessageVisibilityOutput, error)
	QueueURL() string
}

// OutcomePublisher streams processed conversion records to downstream consumers
type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, record *domain.ConversionRecord) error
	Close() error
}

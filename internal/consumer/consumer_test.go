package consumer

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BarkinBalci/attribution-relay/internal/config"
	"github.com/BarkinBalci/attribution-relay/internal/dispatcher"
	"github.com/BarkinBalci/attribution-relay/internal/domain"
)

func testConfig() *config.Config {
	return &config.Config{
		Consumer: config.Consumer{
			BatchSizeMax:    10,
			BatchTimeoutSec: 1,
			Workers:         2,
		},
		ConversionAPI: config.ConversionAPI{
			Timeout:        10 * time.Second,
			MaxAttempts:    3,
			InitialBackoff: time.Second,
		},
	}
}

func TestConsumer_Start_DeliversRedeliveredConfirmationOnce(t *testing.T) {
	p := newPipeline()
	source, campaign := "facebook", "promo"
	_, err := p.store.Put(context.Background(), "s1", domain.AttributionFields{Source: &source, Campaign: &campaign})
	require.NoError(t, err)

	p.sender.On("Send", mock.Anything, mock.Anything).
		Return(&dispatcher.Response{EventsReceived: 1, TraceID: "trace-t1"}, nil).Once()

	body := `{"type":"payment","payment":{"transaction_id":"t1","session_id":"s1","status":"paid","amount":27.9,"currency":"BRL","customer":{"email":"a@b.com"},"occurred_at":"2026-05-04T15:30:00Z"}}`
	messages := []types.Message{
		{MessageId: aws.String("msg-1"), Body: aws.String(body), ReceiptHandle: aws.String("receipt-1")},
		{MessageId: aws.String("msg-2"), Body: aws.String(body), ReceiptHandle: aws.String("receipt-2")},
	}

	mockConsumer := new(MockQueueConsumer)
	mockRepo := new(MockConversionRepository)
	mockConsumer.On("QueueURL").Return(testQueueURL)
	mockConsumer.On("ReceiveMessages", mock.Anything, mock.Anything).
		Return(&sqs.ReceiveMessageOutput{Messages: messages}, nil).Once()
	mockConsumer.On("ReceiveMessages", mock.Anything, mock.Anything).
		Return(&sqs.ReceiveMessageOutput{}, nil).Maybe()
	mockConsumer.On("DeleteMessage", mock.Anything, mock.Anything).
		Return(&sqs.DeleteMessageOutput{}, nil)

	var logged []*domain.ConversionRecord
	mockRepo.On("InsertBatch", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			logged = append(logged, args.Get(1).([]*domain.ConversionRecord)...)
		}).
		Return(2, nil)

	cfg := testConfig()
	cfg.Consumer.BatchSizeMax = 2
	cfg.Consumer.Workers = 1
	consumer := NewConsumer(cfg, mockConsumer, p.processor, mockRepo, nil, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	assert.NoError(t, consumer.Start(ctx))

	p.sender.AssertNumberOfCalls(t, "Send", 1)
	require.Len(t, logged, 2)
	statuses := []string{logged[0].Status, logged[1].Status}
	assert.ElementsMatch(t, []string{domain.StatusDelivered, domain.StatusDuplicate}, statuses)
	mockConsumer.AssertNumberOfCalls(t, "DeleteMessage", 2)
}

func TestConsumer_Start_GracefulShutdown(t *testing.T) {
	mockConsumer := new(MockQueueConsumer)
	mockRepo := new(MockConversionRepository)

	mockConsumer.On("QueueURL").Return(testQueueURL).Maybe()
	mockConsumer.On("ReceiveMessages", mock.Anything, mock.AnythingOfType("*sqs.ReceiveMessageInput")).
		Return(&sqs.ReceiveMessageOutput{Messages: []types.Message{}}, nil).Maybe()

	consumer := NewConsumer(testConfig(), mockConsumer, newPipeline().processor, mockRepo, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan bool)
	go func() {
		err := consumer.Start(ctx)
		assert.NoError(t, err)
		done <- true
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Graceful shutdown took too long")
	}
}

func TestConsumer_NewConsumer_ComponentInitialization(t *testing.T) {
	consumer := NewConsumer(testConfig(), new(MockQueueConsumer), newPipeline().processor, new(MockConversionRepository), nil, zap.NewNop())

	assert.NotNil(t, consumer)
	assert.NotNil(t, consumer.receiver)
	assert.NotNil(t, consumer.parser)
	assert.NotNil(t, consumer.processor)
	assert.NotNil(t, consumer.batchWriter)
	assert.Equal(t, 2, consumer.processor.workers)
}

func TestConsumer_Start_EmptyQueueScenario(t *testing.T) {
	mockConsumer := new(MockQueueConsumer)
	mockRepo := new(MockConversionRepository)

	mockConsumer.On("QueueURL").Return(testQueueURL)
	mockConsumer.On("ReceiveMessages", mock.Anything, mock.AnythingOfType("*sqs.ReceiveMessageInput")).
		Return(&sqs.ReceiveMessageOutput{Messages: []types.Message{}}, nil).Maybe()

	consumer := NewConsumer(testConfig(), mockConsumer, newPipeline().processor, mockRepo, nil, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	assert.NoError(t, consumer.Start(ctx))
	mockRepo.AssertNotCalled(t, "InsertBatch")
}

func TestVisibilityTimeout_CoversRetries(t *testing.T) {
	// 3 x 10s attempts + 1s + 2s backoff + 30s margin
	assert.Equal(t, int32(63), visibilityTimeout(config.ConversionAPI{
		Timeout:        10 * time.Second,
		MaxAttempts:    3,
		InitialBackoff: time.Second,
	}))
}

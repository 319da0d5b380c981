package consumer

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"github.com/BarkinBalci/attribution-relay/internal/config"
	"github.com/BarkinBalci/attribution-relay/internal/queue"
	"github.com/BarkinBalci/attribution-relay/internal/repository"
)

// Consumer orchestrates a pipeline of stages to process SQS messages
type Consumer struct {
	receiver    *Receiver
	parser      *ParserStage
	processor   *ProcessorStage
	batchWriter *BatchWriter
}

// NewConsumer creates a new consumer with a pipeline architecture
func NewConsumer(
	cfg *config.Config,
	queueConsumer queue.QueueConsumer,
	processor JobProcessor,
	repo repository.ConversionRepository,
	outcomes queue.OutcomePublisher,
	log *zap.Logger,
) *Consumer {
	receiver := NewReceiver(queueConsumer, ReceiverConfig{
		MaxMessages:       10,
		WaitTimeSeconds:   20,
		VisibilityTimeout: visibilityTimeout(cfg.ConversionAPI),
		BufferSize:        100,
		ErrorBackoff:      time.Second,
	}, log)

	parser := NewParserStage(queueConsumer, NewJSONJobParser(),
		time.Duration(cfg.Consumer.RetryDelaySec)*time.Second, log)

	processorStage := NewProcessorStage(processor, cfg.Consumer.Workers, log)

	batchWriter := NewBatchWriter(repo, outcomes, BatchWriterConfig{
		MaxBatchSize: cfg.Consumer.BatchSizeMax,
		FlushTimeout: time.Duration(cfg.Consumer.BatchTimeoutSec) * time.Second,
	}, log)

	return &Consumer{
		receiver:    receiver,
		parser:      parser,
		processor:   processorStage,
		batchWriter: batchWriter,
	}
}

// Start begins the consumer pipeline
func (c *Consumer) Start(ctx context.Context) error {
	messageChan := make(chan types.Message, 100)
	jobChan := make(chan *Envelope, 100)
	recordChan := make(chan *Envelope, 100)

	var wg sync.WaitGroup

	wg.Add(4)

	// Stage 1: Receive messages from SQS
	go func() {
		defer wg.Done()
		c.receiver.Start(ctx, messageChan)
	}()

	// Stage 2: Parse messages into job envelopes
	go func() {
		defer wg.Done()
		c.parser.Start(ctx, messageChan, jobChan)
	}()

	// Stage 3: Correlate, build and dispatch
	go func() {
		defer wg.Done()
		c.processor.Start(ctx, jobChan, recordChan)
	}()

	// Stage 4: Batch and write the conversion log
	go func() {
		defer wg.Done()
		c.batchWriter.Start(ctx, recordChan)
	}()

	wg.Wait()
	return nil
}

// visibilityTimeout covers the send budget plus a margin for correlation and
// the log write.
func visibilityTimeout(api config.ConversionAPI) int32 {
	total := api.SendBudget() + 30*time.Second
	return int32(total.Seconds())
}

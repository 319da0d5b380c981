package consumer

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// ProcessorStage fans envelopes out to a fixed number of workers. Settled
// envelopes continue to the batch writer; unsettled ones are nacked here.
type ProcessorStage struct {
	processor JobProcessor
	workers   int
	log       *zap.Logger
}

// NewProcessorStage creates a new processor stage
func NewProcessorStage(processor JobProcessor, workers int, log *zap.Logger) *ProcessorStage {
	if workers < 1 {
		workers = 1
	}
	return &ProcessorStage{
		processor: processor,
		workers:   workers,
		log:       log,
	}
}

// Start runs the workers until in is closed or ctx is done, then closes out
func (s *ProcessorStage) Start(ctx context.Context, in <-chan *Envelope, out chan<- *Envelope) {
	defer close(out)

	var wg sync.WaitGroup
	wg.Add(s.workers)
	for i := 0; i < s.workers; i++ {
		go func(id int) {
			defer wg.Done()
			s.work(ctx, id, in, out)
		}(i)
	}
	wg.Wait()

	s.log.Info("Processor stage shutting down")
}

func (s *ProcessorStage) work(ctx context.Context, id int, in <-chan *Envelope, out chan<- *Envelope) {
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-in:
			if !ok {
				return
			}

			record, err := s.processor.Process(ctx, env.Job)
			if err != nil {
				s.log.Warn("Job not settled, returning to queue",
					zap.Int("worker", id),
					zap.String("job_type", string(env.Job.Type)),
					zap.String("key", env.Job.Key()),
					zap.Error(err))
				if nackErr := env.Nack(context.WithoutCancel(ctx)); nackErr != nil {
					s.log.Error("Failed to nack envelope", zap.Error(nackErr))
				}
				continue
			}

			env.Record = record

			select {
			case <-ctx.Done():
				return
			case out <- env:
			}
		}
	}
}

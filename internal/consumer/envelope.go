package consumer

import (
	"context"

	"github.com/BarkinBalci/attribution-relay/internal/domain"
)

// Envelope wraps a job with acknowledgment callbacks. Record is set once the
// job has been processed.
type Envelope struct {
	Job    *domain.Job
	Record *domain.ConversionRecord
	ack    func(context.Context) error
	nack   func(context.Context) error
}

// NewEnvelope creates a new message envelope
func NewEnvelope(job *domain.Job, ack, nack func(context.Context) error) *Envelope {
	return &Envelope{
		Job:  job,
		ack:  ack,
		nack: nack,
	}
}

// Ack acknowledges successful processing
func (e *Envelope) Ack(ctx context.Context) error {
	if e.ack != nil {
		return e.ack(ctx)
	}
	return nil
}

// Nack negatively acknowledges processing
func (e *Envelope) Nack(ctx context.Context) error {
	if e.nack != nil {
		return e.nack(ctx)
	}
	return nil
}

package consumer

import (
	"context"

	"github.com/BarkinBalci/attribution-relay/internal/correlator"
	"github.com/BarkinBalci/attribution-relay/internal/dispatcher"
	"github.com/BarkinBalci/attribution-relay/internal/domain"
)

// MessageParser defines the interface for parsing raw message bytes into jobs
type MessageParser interface {
	Parse(body []byte) (*domain.Job, error)
}

// JobProcessor turns a job into a conversion log record. An error means the
// job could not be settled and its message must be redelivered.
type JobProcessor interface {
	Process(ctx context.Context, job *domain.Job) (*domain.ConversionRecord, error)
}

// Correlator resolves attribution for payments and funnel signals
type Correlator interface {
	Resolve(ctx context.Context, pc *domain.PaymentConfirmation) (*correlator.Resolution, error)
	ResolveSession(ctx context.Context, sessionID string) (*correlator.Resolution, error)
}

// EventBuilder maps correlated inputs to conversion events
type EventBuilder interface {
	BuildPurchase(pc *domain.PaymentConfirmation, rec *domain.AttributionRecord) (*domain.ConversionEvent, error)
	BuildFunnel(sig *domain.FunnelSignal, rec *domain.AttributionRecord) (*domain.ConversionEvent, error)
}

// Dispatcher delivers conversion events
type Dispatcher interface {
	Dispatch(ctx context.Context, event *domain.ConversionEvent) (*dispatcher.Result, error)
}

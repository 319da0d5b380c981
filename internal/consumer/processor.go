package consumer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BarkinBalci/attribution-relay/internal/conversion"
	"github.com/BarkinBalci/attribution-relay/internal/correlator"
	"github.com/BarkinBalci/attribution-relay/internal/dispatcher"
	"github.com/BarkinBalci/attribution-relay/internal/domain"
	"github.com/BarkinBalci/attribution-relay/internal/metrics"
)

// Processor runs one job through correlation, event building and dispatch.
type Processor struct {
	correlator Correlator
	builder    EventBuilder
	dispatcher Dispatcher
	now        func() time.Time
	log        *zap.Logger
}

// NewProcessor creates a new job processor
func NewProcessor(c Correlator, b EventBuilder, d Dispatcher, log *zap.Logger) *Processor {
	return &Processor{
		correlator: c,
		builder:    b,
		dispatcher: d,
		now:        time.Now,
		log:        log,
	}
}

// Process settles a job. Validation failures and delivery failures produce a
// record; store outages, in-flight claims and ledger errors are returned so the
// message is redelivered.
func (p *Processor) Process(ctx context.Context, job *domain.Job) (*domain.ConversionRecord, error) {
	switch job.Type {
	case domain.JobPayment:
		return p.processPayment(ctx, job.Payment)
	case domain.JobFunnel:
		return p.processFunnel(ctx, job.Funnel)
	default:
		return nil, fmt.Errorf("unknown job type: %q", job.Type)
	}
}

func (p *Processor) processPayment(ctx context.Context, pc *domain.PaymentConfirmation) (*domain.ConversionRecord, error) {
	record := &domain.ConversionRecord{
		EventName:     string(domain.EventPurchase),
		TransactionID: pc.TransactionID,
		SessionID:     pc.SessionID,
		Value:         pc.Amount,
		Currency:      pc.Currency,
		EventTime:     unixOrNow(pc.OccurredAt, p.now),
	}
	if pc.TransactionID != "" {
		record.EventID = conversion.EventID(pc.TransactionID, domain.EventPurchase)
	}

	if pc.Status != domain.PaymentPaid || pc.TransactionID == "" {
		_, err := p.builder.BuildPurchase(pc, nil)
		return p.rejected(record, err), nil
	}

	res, err := p.correlator.Resolve(ctx, pc)
	if err != nil {
		if errors.Is(err, correlator.ErrStoreUnavailable) {
			return nil, err
		}
		return p.rejected(record, err), nil
	}
	applyAttribution(record, res.Record)

	event, err := p.builder.BuildPurchase(pc, res.Record)
	if err != nil {
		return p.rejected(record, err), nil
	}

	return p.dispatch(ctx, record, event)
}

func (p *Processor) processFunnel(ctx context.Context, sig *domain.FunnelSignal) (*domain.ConversionRecord, error) {
	record := &domain.ConversionRecord{
		EventName: string(sig.EventName),
		SessionID: sig.SessionID,
		Value:     sig.Value,
		Currency:  sig.Currency,
		EventTime: unixOrNow(sig.OccurredAt, p.now),
	}
	if sig.SessionID != "" {
		record.EventID = conversion.EventID(sig.SessionID, sig.EventName)
	}

	var rec *domain.AttributionRecord
	if sig.SessionID != "" {
		res, err := p.correlator.ResolveSession(ctx, sig.SessionID)
		if err != nil {
			if errors.Is(err, correlator.ErrStoreUnavailable) {
				return nil, err
			}
			return p.rejected(record, err), nil
		}
		rec = res.Record
		applyAttribution(record, rec)
	}

	event, err := p.builder.BuildFunnel(sig, rec)
	if err != nil {
		return p.rejected(record, err), nil
	}

	return p.dispatch(ctx, record, event)
}

func (p *Processor) dispatch(ctx context.Context, record *domain.ConversionRecord, event *domain.ConversionEvent) (*domain.ConversionRecord, error) {
	record.EventID = event.EventID
	record.EventTime = event.EventTime
	record.Value = event.CustomData.Value
	record.Currency = event.CustomData.Currency

	result, err := p.dispatcher.Dispatch(ctx, event)
	if err == nil {
		record.TraceID = result.TraceID
		record.Attempts = attemptCount(result.Attempts)
		if result.Duplicate {
			return p.settled(record, domain.StatusDuplicate), nil
		}
		return p.settled(record, domain.StatusDelivered), nil
	}

	var derr *dispatcher.DeliveryError
	if !errors.As(err, &derr) || ctx.Err() != nil {
		// In flight elsewhere, ledger unavailable or shutting down.
		return nil, err
	}

	record.Attempts = attemptCount(derr.Attempts)
	record.LastError = derr.Err.Error()

	p.log.Error("Conversion delivery failed",
		zap.String("event_id", record.EventID),
		zap.String("event_name", record.EventName),
		zap.String("transaction_id", record.TransactionID),
		zap.Bool("terminal", derr.Terminal),
		zap.Int("attempts", derr.Attempts),
		zap.Error(derr.Err))

	return p.settled(record, domain.StatusFailed), nil
}

func (p *Processor) rejected(record *domain.ConversionRecord, err error) *domain.ConversionRecord {
	if record.EventID == "" {
		record.EventID = uuid.NewString()
	}
	if err != nil {
		record.LastError = err.Error()
	}

	p.log.Warn("Conversion rejected",
		zap.String("event_id", record.EventID),
		zap.String("event_name", record.EventName),
		zap.String("transaction_id", record.TransactionID),
		zap.String("session_id", record.SessionID),
		zap.Error(err))

	return p.settled(record, domain.StatusRejected)
}

func (p *Processor) settled(record *domain.ConversionRecord, status string) *domain.ConversionRecord {
	now := p.now()
	record.Status = status
	record.ProcessedAt = now
	record.Version = uint64(now.UnixNano())
	metrics.DispatchOutcomes.WithLabelValues(record.EventName, status).Inc()
	return record
}

func applyAttribution(record *domain.ConversionRecord, rec *domain.AttributionRecord) {
	if rec == nil {
		return
	}
	if rec.SessionID != "" {
		record.SessionID = rec.SessionID
	}
	record.Source = rec.Source
	record.Medium = rec.Medium
	record.Campaign = rec.Campaign
	record.Fallback = rec.Fallback
}

func unixOrNow(t time.Time, now func() time.Time) int64 {
	if t.IsZero() {
		return now().Unix()
	}
	return t.Unix()
}

// attemptCount saturates at the width of the attempts column.
func attemptCount(n int) uint8 {
	if n > math.MaxUint8 {
		return math.MaxUint8
	}
	if n < 0 {
		return 0
	}
	return uint8(n)
}

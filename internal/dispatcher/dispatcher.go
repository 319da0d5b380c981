// Package dispatcher delivers conversion events to the external API at most
// once per event id within the ledger's retention window.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BarkinBalci/attribution-relay/internal/domain"
	"github.com/BarkinBalci/attribution-relay/internal/ledger"
	"github.com/BarkinBalci/attribution-relay/internal/metrics"
)

const ledgerWriteTimeout = 5 * time.Second

// ErrInFlight means another worker holds the claim for the event id.
var ErrInFlight = errors.New("conversion event dispatch already in flight")

// DeliveryError is returned when every attempt failed or the API rejected the event.
type DeliveryError struct {
	EventID  string
	Terminal bool
	Attempts int
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery of event %s failed after %d attempt(s) (terminal=%t): %v",
		e.EventID, e.Attempts, e.Terminal, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Config controls retries. A positive ClaimTTL bounds the whole send so no
// attempt outlives the ledger claim.
type Config struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	AttemptTimeout time.Duration
	ClaimTTL       time.Duration
}

// Result describes a dispatch that did not fail.
type Result struct {
	EventID        string
	Duplicate      bool
	TraceID        string
	EventsReceived int
	Attempts       int
}

// Dispatcher checks the ledger, sends, and records the outcome.
type Dispatcher struct {
	sender Sender
	ledger ledger.Ledger
	cfg    Config
	log    *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// New creates a dispatcher
func New(sender Sender, l ledger.Ledger, cfg Config, log *zap.Logger) *Dispatcher {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Dispatcher{
		sender: sender,
		ledger: l,
		cfg:    cfg,
		log:    log,
		sleep:  sleepContext,
	}
}

// Dispatch delivers event unless its id is already delivered or claimed.
func (d *Dispatcher) Dispatch(ctx context.Context, event *domain.ConversionEvent) (*Result, error) {
	start := time.Now()
	defer func() {
		metrics.DispatchDuration.Observe(float64(time.Since(start).Milliseconds()))
	}()

	claimed, existing, err := d.ledger.Claim(ctx, event.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to claim event %s: %w", event.EventID, err)
	}

	if !claimed {
		if existing != nil && existing.State == ledger.StateDelivered {
			d.log.Info("Skipping already delivered conversion",
				zap.String("event_id", event.EventID),
				zap.String("event_name", string(event.EventName)),
				zap.String("trace_id", existing.TraceID))
			return &Result{
				EventID:        event.EventID,
				Duplicate:      true,
				TraceID:        existing.TraceID,
				EventsReceived: existing.EventsReceived,
			}, nil
		}
		return nil, ErrInFlight
	}

	sendCtx := ctx
	if d.cfg.ClaimTTL > 0 {
		var cancelSend context.CancelFunc
		sendCtx, cancelSend = context.WithTimeout(ctx, d.cfg.ClaimTTL)
		defer cancelSend()
	}

	resp, attempts, err := d.send(sendCtx, event)
	if err != nil {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ledgerWriteTimeout)
		defer cancel()
		if relErr := d.ledger.Release(releaseCtx, event.EventID); relErr != nil {
			d.log.Error("Failed to release ledger claim",
				zap.String("event_id", event.EventID),
				zap.Error(relErr))
		}
		return nil, &DeliveryError{
			EventID:  event.EventID,
			Terminal: !IsTransient(err),
			Attempts: attempts,
			Err:      err,
		}
	}

	markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ledgerWriteTimeout)
	defer cancel()
	receipt := ledger.Receipt{TraceID: resp.TraceID, EventsReceived: resp.EventsReceived}
	if err := d.ledger.MarkDelivered(markCtx, event.EventID, receipt); err != nil {
		// The API already has the event and dedups by event_id on its side.
		d.log.Error("Failed to mark conversion delivered",
			zap.String("event_id", event.EventID),
			zap.Error(err))
	}

	d.log.Info("Conversion delivered",
		zap.String("event_id", event.EventID),
		zap.String("event_name", string(event.EventName)),
		zap.String("trace_id", resp.TraceID),
		zap.Int("attempts", attempts))

	return &Result{
		EventID:        event.EventID,
		TraceID:        resp.TraceID,
		EventsReceived: resp.EventsReceived,
		Attempts:       attempts,
	}, nil
}

func (d *Dispatcher) send(ctx context.Context, event *domain.ConversionEvent) (*Response, int, error) {
	var lastErr error
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := d.sleep(ctx, backoff(d.cfg.InitialBackoff, attempt-1)); err != nil {
				return nil, attempt - 1, lastErr
			}
		}

		resp, err := d.attempt(ctx, event)
		if err == nil {
			metrics.DispatchAttempts.WithLabelValues("success").Inc()
			return resp, attempt, nil
		}
		lastErr = err

		transient := IsTransient(err)
		d.log.Warn("Conversion API attempt failed",
			zap.String("event_id", event.EventID),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", d.cfg.MaxAttempts),
			zap.Bool("transient", transient),
			zap.Error(err))

		if !transient {
			metrics.DispatchAttempts.WithLabelValues("terminal").Inc()
			return nil, attempt, err
		}
		metrics.DispatchAttempts.WithLabelValues("transient").Inc()
	}
	return nil, d.cfg.MaxAttempts, lastErr
}

func (d *Dispatcher) attempt(ctx context.Context, event *domain.ConversionEvent) (*Response, error) {
	if d.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.AttemptTimeout)
		defer cancel()
	}
	return d.sender.Send(ctx, []domain.ConversionEvent{*event})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

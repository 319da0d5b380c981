// Package correlator joins payment confirmations to the attribution captured
// for the buyer's session.
package correlator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BarkinBalci/attribution-relay/internal/domain"
	"github.com/BarkinBalci/attribution-relay/internal/metrics"
	"github.com/BarkinBalci/attribution-relay/internal/repository"
)

// ErrStoreUnavailable wraps any attribution store failure other than not-found.
// It is transient: the confirmation should be retried later.
var ErrStoreUnavailable = errors.New("attribution store unavailable")

// Method records how a resolution was reached.
type Method string

const (
	MethodByTransaction Method = "by_transaction"
	MethodBySession     Method = "by_session"
	MethodFallback      Method = "fallback"
	MethodNone          Method = "none"
)

// Resolution is the attribution record a conversion is credited to.
type Resolution struct {
	Record *domain.AttributionRecord
	Method Method
}

// Config holds the fallback labels and the per-call store timeout.
type Config struct {
	FallbackSource   string
	FallbackMedium   string
	FallbackCampaign string
	StoreTimeout     time.Duration
}

// Correlator resolves attribution for payments and funnel signals.
type Correlator struct {
	store repository.AttributionRepository
	cfg   Config
	log   *zap.Logger
}

// New creates a correlator
func New(store repository.AttributionRepository, cfg Config, log *zap.Logger) *Correlator {
	return &Correlator{store: store, cfg: cfg, log: log}
}

// Resolve finds the record for pc by transaction id, then by the echoed session
// id. On a miss it persists a fallback record keyed by the transaction id and
// returns the stored copy, so repeated confirmations resolve identically.
func (c *Correlator) Resolve(ctx context.Context, pc *domain.PaymentConfirmation) (*Resolution, error) {
	if pc.TransactionID == "" {
		return nil, fmt.Errorf("transaction_id is required for correlation")
	}

	rec, err := c.lookup(ctx, func(ctx context.Context) (*domain.AttributionRecord, error) {
		return c.store.GetByTransaction(ctx, pc.TransactionID)
	})
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return c.resolved(rec, MethodByTransaction, pc.TransactionID), nil
	}

	if pc.SessionID != "" {
		rec, err = c.lookup(ctx, func(ctx context.Context) (*domain.AttributionRecord, error) {
			return c.store.Get(ctx, pc.SessionID)
		})
		if err != nil {
			return nil, err
		}
		if rec != nil {
			return c.resolved(c.associate(ctx, rec, pc.TransactionID), MethodBySession, pc.TransactionID), nil
		}
	}

	stored, err := c.persistFallback(ctx, pc)
	if err != nil {
		return nil, err
	}
	return c.resolved(stored, MethodFallback, pc.TransactionID), nil
}

// ResolveSession looks up the record for a funnel signal. A miss yields an
// empty record for the session and nothing is persisted.
func (c *Correlator) ResolveSession(ctx context.Context, sessionID string) (*Resolution, error) {
	rec, err := c.lookup(ctx, func(ctx context.Context) (*domain.AttributionRecord, error) {
		return c.store.Get(ctx, sessionID)
	})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		metrics.Correlations.WithLabelValues(string(MethodNone)).Inc()
		return &Resolution{Record: &domain.AttributionRecord{SessionID: sessionID}, Method: MethodNone}, nil
	}
	metrics.Correlations.WithLabelValues(string(MethodBySession)).Inc()
	return &Resolution{Record: rec, Method: MethodBySession}, nil
}

// lookup runs fn under the store timeout. It returns (nil, nil) on not-found.
func (c *Correlator) lookup(ctx context.Context, fn func(ctx context.Context) (*domain.AttributionRecord, error)) (*domain.AttributionRecord, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	rec, err := fn(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return rec, nil
}

// associate links the transaction to the session so later confirmations hit
// the transaction index directly. Failure only costs a slower lookup next time.
func (c *Correlator) associate(ctx context.Context, rec *domain.AttributionRecord, transactionID string) *domain.AttributionRecord {
	if rec.TransactionID != "" {
		return rec
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	updated, err := c.store.Put(ctx, rec.SessionID, domain.AttributionFields{TransactionID: &transactionID})
	if err != nil {
		c.log.Warn("Failed to associate transaction with session",
			zap.String("session_id", rec.SessionID),
			zap.String("transaction_id", transactionID),
			zap.Error(err))
		return rec
	}
	return updated
}

func (c *Correlator) persistFallback(ctx context.Context, pc *domain.PaymentConfirmation) (*domain.AttributionRecord, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	fallback := &domain.AttributionRecord{
		SessionID:     pc.TransactionID,
		TransactionID: pc.TransactionID,
		Source:        c.cfg.FallbackSource,
		Medium:        c.cfg.FallbackMedium,
		Campaign:      c.cfg.FallbackCampaign,
		LandingPage:   pc.LandingPage,
		Email:         pc.Customer.Email,
		Phone:         pc.Customer.Phone,
		Name:          pc.Customer.Name,
		ClientIP:      pc.ClientIP,
		UserAgent:     pc.UserAgent,
		Fallback:      true,
	}

	stored, err := c.store.PutIfAbsent(ctx, fallback)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to persist fallback: %w", ErrStoreUnavailable, err)
	}

	c.log.Warn("Attribution lost, using fallback record",
		zap.String("transaction_id", pc.TransactionID),
		zap.String("session_id", pc.SessionID),
		zap.String("source", stored.Source))

	return stored, nil
}

func (c *Correlator) resolved(rec *domain.AttributionRecord, method Method, transactionID string) *Resolution {
	metrics.Correlations.WithLabelValues(string(method)).Inc()
	c.log.Debug("Payment correlated",
		zap.String("transaction_id", transactionID),
		zap.String("session_id", rec.SessionID),
		zap.String("method", string(method)))
	return &Resolution{Record: rec, Method: method}
}

func (c *Correlator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.cfg.StoreTimeout)
}

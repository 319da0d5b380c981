// Package memory provides an in-process AttributionRepository.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/BarkinBalci/attribution-relay/internal/domain"
	"github.com/BarkinBalci/attribution-relay/internal/repository"
)

// AttributionRepository keeps records in a map guarded by a single mutex, so
// every merge is atomic per key.
type AttributionRepository struct {
	mu            sync.Mutex
	bySession     map[string]*domain.AttributionRecord
	byTransaction map[string]string
	now           func() time.Time
}

// NewAttributionRepository creates an empty repository
func NewAttributionRepository() *AttributionRepository {
	return &AttributionRepository{
		bySession:     make(map[string]*domain.AttributionRecord),
		byTransaction: make(map[string]string),
		now:           time.Now,
	}
}

func (r *AttributionRepository) Put(ctx context.Context, sessionID string, fields domain.AttributionFields) (*domain.AttributionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	rec, ok := r.bySession[sessionID]
	if !ok {
		rec = &domain.AttributionRecord{SessionID: sessionID, CreatedAt: now}
		r.bySession[sessionID] = rec
	}

	previousTransaction := rec.TransactionID
	fields.Apply(rec)
	rec.UpdatedAt = now
	if previousTransaction != "" && previousTransaction != rec.TransactionID &&
		r.byTransaction[previousTransaction] == sessionID {
		delete(r.byTransaction, previousTransaction)
	}
	r.index(rec)

	out := *rec
	return &out, nil
}

func (r *AttributionRepository) PutIfAbsent(ctx context.Context, rec *domain.AttributionRecord) (*domain.AttributionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.bySession[rec.SessionID]; ok {
		out := *existing
		return &out, nil
	}

	now := r.now()
	stored := *rec
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.bySession[stored.SessionID] = &stored
	r.index(&stored)

	out := stored
	return &out, nil
}

func (r *AttributionRepository) Get(ctx context.Context, sessionID string) (*domain.AttributionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.bySession[sessionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *rec
	return &out, nil
}

func (r *AttributionRepository) GetByTransaction(ctx context.Context, transactionID string) (*domain.AttributionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sessionID, ok := r.byTransaction[transactionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *r.bySession[sessionID]
	return &out, nil
}

func (r *AttributionRepository) InitSchema(ctx context.Context) error { return nil }

func (r *AttributionRepository) Ping(ctx context.Context) error { return ctx.Err() }

func (r *AttributionRepository) Close() error { return nil }

// index must be called with mu held.
func (r *AttributionRepository) index(rec *domain.AttributionRecord) {
	if rec.TransactionID == "" {
		return
	}
	// A real session wins over a synthesized fallback for the same transaction.
	if current, ok := r.byTransaction[rec.TransactionID]; ok && current != rec.SessionID {
		if prev := r.bySession[current]; prev != nil && !prev.Fallback && rec.Fallback {
			return
		}
	}
	r.byTransaction[rec.TransactionID] = rec.SessionID
}

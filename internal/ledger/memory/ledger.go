// Package memory is a process-local ledger for single-consumer deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BarkinBalci/attribution-relay/internal/ledger"
)

type item struct {
	entry     ledger.Entry
	expiresAt time.Time
}

// Ledger is a mutex-guarded map with time-based eviction.
type Ledger struct {
	mu      sync.Mutex
	items   map[string]*item
	options ledger.Options
	now     func() time.Time
	log     *zap.Logger
}

// New creates an empty memory ledger
func New(options ledger.Options, log *zap.Logger) *Ledger {
	return &Ledger{
		items:   make(map[string]*item),
		options: options,
		now:     time.Now,
		log:     log,
	}
}

func (l *Ledger) Claim(ctx context.Context, eventID string) (bool, *ledger.Entry, error) {
	if err := ctx.Err(); err != nil {
		return false, nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if it, ok := l.items[eventID]; ok && now.Before(it.expiresAt) {
		existing := it.entry
		return false, &existing, nil
	}

	l.items[eventID] = &item{
		entry: ledger.Entry{
			EventID:   eventID,
			State:     ledger.StatePending,
			ClaimedAt: now,
		},
		expiresAt: now.Add(l.options.ClaimTTL),
	}
	return true, nil, nil
}

func (l *Ledger) MarkDelivered(ctx context.Context, eventID string, receipt ledger.Receipt) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry := ledger.Entry{EventID: eventID, ClaimedAt: now}
	if it, ok := l.items[eventID]; ok {
		entry = it.entry
	}
	entry.State = ledger.StateDelivered
	entry.TraceID = receipt.TraceID
	entry.EventsReceived = receipt.EventsReceived
	entry.DeliveredAt = now

	l.items[eventID] = &item{entry: entry, expiresAt: now.Add(l.options.Retention)}
	return nil
}

func (l *Ledger) Release(ctx context.Context, eventID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if it, ok := l.items[eventID]; ok && it.entry.State == ledger.StatePending {
		delete(l.items, eventID)
	}
	return nil
}

func (l *Ledger) Get(ctx context.Context, eventID string) (*ledger.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	it, ok := l.items[eventID]
	if !ok || !l.now().Before(it.expiresAt) {
		return nil, ledger.ErrNotFound
	}
	entry := it.entry
	return &entry, nil
}

// Sweep evicts every entry whose lease or retention has passed and returns the
// number removed.
func (l *Ledger) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, it := range l.items {
		if !now.Before(it.expiresAt) {
			delete(l.items, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries currently held, expired or not.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// StartSweeper runs Sweep every interval until ctx is done.
func (l *Ledger) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.log.Info("Ledger sweeper shutting down")
			return
		case <-ticker.C:
			if removed := l.Sweep(l.now()); removed > 0 {
				l.log.Info("Evicted expired ledger entries", zap.Int("count", removed))
			}
		}
	}
}

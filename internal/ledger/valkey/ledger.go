// Package valkey stores the dedup ledger in Valkey so it survives restarts and
// is shared by every consumer replica.
package valkey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
	"go.uber.org/zap"

	"github.com/BarkinBalci/attribution-relay/internal/config"
	"github.com/BarkinBalci/attribution-relay/internal/ledger"
)

// releaseScript deletes the key only while it still holds a pending claim.
var releaseScript = valkey.NewLuaScript(`
local v = redis.call('GET', KEYS[1])
if v and string.find(v, '"state":"pending"', 1, true) then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// NewClient creates a Valkey client with the given configuration
func NewClient(ctx context.Context, cfg config.Valkey, log *zap.Logger) (valkey.Client, error) {
	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)

	log.Info("Connecting to Valkey",
		zap.String("address", addr),
		zap.Int("db", cfg.DB))

	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Valkey: %w", err)
	}

	log.Info("Valkey connection established successfully")
	return client, nil
}

// Ledger implements ledger.Ledger on Valkey keys with native expiry
type Ledger struct {
	client  valkey.Client
	prefix  string
	options ledger.Options
	log     *zap.Logger
}

// New creates a Valkey-backed ledger
func New(client valkey.Client, prefix string, options ledger.Options, log *zap.Logger) *Ledger {
	return &Ledger{
		client:  client,
		prefix:  prefix,
		options: options,
		log:     log,
	}
}

func (l *Ledger) key(eventID string) string {
	return l.prefix + eventID
}

// Claim uses SET NX so check-and-mark is one round trip
func (l *Ledger) Claim(ctx context.Context, eventID string) (bool, *ledger.Entry, error) {
	payload, err := json.Marshal(ledger.Entry{
		EventID:   eventID,
		State:     ledger.StatePending,
		ClaimedAt: time.Now().UTC(),
	})
	if err != nil {
		return false, nil, fmt.Errorf("failed to marshal ledger entry: %w", err)
	}

	// The existing key can expire between SET NX and GET; one retry covers it.
	for attempt := 0; attempt < 2; attempt++ {
		cmd := l.client.B().Set().Key(l.key(eventID)).Value(string(payload)).
			Nx().PxMilliseconds(l.options.ClaimTTL.Milliseconds()).Build()

		err := l.client.Do(ctx, cmd).Error()
		if err == nil {
			return true, nil, nil
		}
		if !valkey.IsValkeyNil(err) {
			return false, nil, fmt.Errorf("failed to claim ledger entry: %w", err)
		}

		existing, err := l.Get(ctx, eventID)
		if errors.Is(err, ledger.ErrNotFound) {
			continue
		}
		if err != nil {
			return false, nil, err
		}
		return false, existing, nil
	}

	return false, nil, fmt.Errorf("failed to claim ledger entry %s: key expired during claim", eventID)
}

// MarkDelivered overwrites the claim with a delivered entry kept for the retention window
func (l *Ledger) MarkDelivered(ctx context.Context, eventID string, receipt ledger.Receipt) error {
	now := time.Now().UTC()
	entry := ledger.Entry{EventID: eventID, ClaimedAt: now}
	if existing, err := l.Get(ctx, eventID); err == nil {
		entry = *existing
	}
	entry.State = ledger.StateDelivered
	entry.TraceID = receipt.TraceID
	entry.EventsReceived = receipt.EventsReceived
	entry.DeliveredAt = now

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger entry: %w", err)
	}

	cmd := l.client.B().Set().Key(l.key(eventID)).Value(string(payload)).
		PxMilliseconds(l.options.Retention.Milliseconds()).Build()
	if err := l.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to mark ledger entry delivered: %w", err)
	}
	return nil
}

// Release drops a pending claim
func (l *Ledger) Release(ctx context.Context, eventID string) error {
	if err := releaseScript.Exec(ctx, l.client, []string{l.key(eventID)}, nil).Error(); err != nil {
		return fmt.Errorf("failed to release ledger entry: %w", err)
	}
	return nil
}

// Get returns the entry stored for eventID
func (l *Ledger) Get(ctx context.Context, eventID string) (*ledger.Entry, error) {
	raw, err := l.client.Do(ctx, l.client.B().Get().Key(l.key(eventID)).Build()).AsBytes()
	if valkey.IsValkeyNil(err) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger entry: %w", err)
	}

	var entry ledger.Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode ledger entry: %w", err)
	}
	return &entry, nil
}

// Ping checks if the Valkey connection is alive
func (l *Ledger) Ping(ctx context.Context) error {
	return l.client.Do(ctx, l.client.B().Ping().Build()).Error()
}

// Close closes the Valkey client
func (l *Ledger) Close() {
	l.client.Close()
}

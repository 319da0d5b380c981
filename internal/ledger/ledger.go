// Package ledger records which conversion events have already been delivered.
//
// A dispatch first claims its event id. The claim is a single conditional
// write, so of two concurrent dispatches for the same id exactly one wins and
// the other observes the winner's entry. Claims expire after a short lease so a
// crashed worker cannot block an event forever; delivered entries are kept for
// the external API's own dedup window and then evicted by time.
package ledger

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get for unknown or evicted event ids.
var ErrNotFound = errors.New("ledger entry not found")

// State is the lifecycle position of a ledger entry.
type State string

const (
	StatePending   State = "pending"
	StateDelivered State = "delivered"
)

// Entry is the persisted outcome for one event id.
type Entry struct {
	EventID        string    `json:"event_id"`
	State          State     `json:"state"`
	TraceID        string    `json:"trace_id,omitempty"`
	EventsReceived int       `json:"events_received,omitempty"`
	ClaimedAt      time.Time `json:"claimed_at"`
	DeliveredAt    time.Time `json:"delivered_at,omitempty"`
}

// Receipt is what the external API returned for a successful delivery.
type Receipt struct {
	TraceID        string
	EventsReceived int
}

// Ledger is the dedup store used by the dispatcher.
type Ledger interface {
	// Claim atomically creates a pending entry. When the id is already present it
	// returns claimed=false and the existing entry.
	Claim(ctx context.Context, eventID string) (claimed bool, existing *Entry, err error)

	// MarkDelivered records a successful delivery for the retention window.
	MarkDelivered(ctx context.Context, eventID string, receipt Receipt) error

	// Release drops a pending claim so a later attempt may deliver. Delivered
	// entries are left untouched.
	Release(ctx context.Context, eventID string) error

	// Get returns the current entry or ErrNotFound.
	Get(ctx context.Context, eventID string) (*Entry, error)
}

// Options are shared by all ledger backends.
type Options struct {
	Retention time.Duration
	ClaimTTL  time.Duration
}

package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BarkinBalci/attribution-relay/internal/ledger"
)

func newTestLedger() *Ledger {
	return New(ledger.Options{Retention: 48 * time.Hour, ClaimTTL: time.Minute}, zap.NewNop())
}

func TestLedger_Claim_FirstCallerWins(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	claimed, existing, err := l.Claim(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Nil(t, existing)

	claimed, existing, err = l.Claim(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, claimed)
	require.NotNil(t, existing)
	assert.Equal(t, ledger.StatePending, existing.State)
}

func TestLedger_Claim_ConcurrentCallersExactlyOneWins(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, _, err := l.Claim(ctx, "evt-race")
			if err == nil && claimed {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
}

func TestLedger_MarkDelivered_ReturnedToLaterClaims(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	_, _, err := l.Claim(ctx, "evt-1")
	require.NoError(t, err)
	require.NoError(t, l.MarkDelivered(ctx, "evt-1", ledger.Receipt{TraceID: "trace-abc", EventsReceived: 1}))

	claimed, existing, err := l.Claim(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, ledger.StateDelivered, existing.State)
	assert.Equal(t, "trace-abc", existing.TraceID)
	assert.Equal(t, 1, existing.EventsReceived)
}

func TestLedger_Release_OnlyDropsPendingClaims(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	_, _, err := l.Claim(ctx, "evt-pending")
	require.NoError(t, err)
	require.NoError(t, l.Release(ctx, "evt-pending"))

	claimed, _, err := l.Claim(ctx, "evt-pending")
	require.NoError(t, err)
	assert.True(t, claimed, "released claim should be claimable again")

	_, _, err = l.Claim(ctx, "evt-done")
	require.NoError(t, err)
	require.NoError(t, l.MarkDelivered(ctx, "evt-done", ledger.Receipt{TraceID: "t"}))
	require.NoError(t, l.Release(ctx, "evt-done"))

	entry, err := l.Get(ctx, "evt-done")
	require.NoError(t, err)
	assert.Equal(t, ledger.StateDelivered, entry.State)
}

func TestLedger_Claim_ExpiredLeaseCanBeReclaimed(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	claimed, _, err := l.Claim(ctx, "evt-1")
	require.NoError(t, err)
	require.True(t, claimed)

	now = now.Add(2 * time.Minute)

	claimed, _, err = l.Claim(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestLedger_Sweep_EvictsByAge(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	_, _, err := l.Claim(ctx, "old")
	require.NoError(t, err)
	require.NoError(t, l.MarkDelivered(ctx, "old", ledger.Receipt{TraceID: "a"}))

	now = now.Add(24 * time.Hour)
	_, _, err = l.Claim(ctx, "recent")
	require.NoError(t, err)
	require.NoError(t, l.MarkDelivered(ctx, "recent", ledger.Receipt{TraceID: "b"}))

	removed := l.Sweep(now.Add(25 * time.Hour))

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, l.Len())
	_, err = l.Get(ctx, "old")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestLedger_Get_NotFound(t *testing.T) {
	l := newTestLedger()

	entry, err := l.Get(context.Background(), "missing")

	assert.ErrorIs(t, err, ledger.ErrNotFound)
	assert.Nil(t, entry)
}

package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BarkinBalci/attribution-relay/internal/domain"
	"github.com/BarkinBalci/attribution-relay/internal/repository"
)

func str(s string) *string { return &s }

func TestAttributionRepository_Put_MergesFields(t *testing.T) {
	repo := NewAttributionRepository()
	ctx := context.Background()

	_, err := repo.Put(ctx, "s1", domain.AttributionFields{Source: str("a")})
	require.NoError(t, err)

	rec, err := repo.Put(ctx, "s1", domain.AttributionFields{Campaign: str("b")})
	require.NoError(t, err)

	assert.Equal(t, "s1", rec.SessionID)
	assert.Equal(t, "a", rec.Source)
	assert.Equal(t, "b", rec.Campaign)
}

func TestAttributionRepository_Put_LastWriteWins(t *testing.T) {
	repo := NewAttributionRepository()
	ctx := context.Background()

	_, err := repo.Put(ctx, "s1", domain.AttributionFields{Source: str("google"), Medium: str("cpc")})
	require.NoError(t, err)
	rec, err := repo.Put(ctx, "s1", domain.AttributionFields{Source: str("facebook")})
	require.NoError(t, err)

	assert.Equal(t, "facebook", rec.Source)
	assert.Equal(t, "cpc", rec.Medium)
}

func TestAttributionRepository_Put_RefreshesUpdatedAtOnly(t *testing.T) {
	repo := NewAttributionRepository()
	ctx := context.Background()

	first := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(time.Minute)

	repo.now = func() time.Time { return first }
	_, err := repo.Put(ctx, "s1", domain.AttributionFields{Source: str("a")})
	require.NoError(t, err)

	repo.now = func() time.Time { return second }
	rec, err := repo.Put(ctx, "s1", domain.AttributionFields{Term: str("shoes")})
	require.NoError(t, err)

	assert.Equal(t, first, rec.CreatedAt)
	assert.Equal(t, second, rec.UpdatedAt)
}

func TestAttributionRepository_Get_NotFound(t *testing.T) {
	repo := NewAttributionRepository()

	rec, err := repo.Get(context.Background(), "missing")

	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Nil(t, rec)
}

func TestAttributionRepository_GetByTransaction(t *testing.T) {
	repo := NewAttributionRepository()
	ctx := context.Background()

	_, err := repo.GetByTransaction(ctx, "t1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.Put(ctx, "s1", domain.AttributionFields{Source: str("facebook")})
	require.NoError(t, err)
	_, err = repo.Put(ctx, "s1", domain.AttributionFields{TransactionID: str("t1")})
	require.NoError(t, err)

	rec, err := repo.GetByTransaction(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "s1", rec.SessionID)
	assert.Equal(t, "facebook", rec.Source)
}

func TestAttributionRepository_PutIfAbsent_KeepsExisting(t *testing.T) {
	repo := NewAttributionRepository()
	ctx := context.Background()

	first, err := repo.PutIfAbsent(ctx, &domain.AttributionRecord{SessionID: "t2", TransactionID: "t2", Source: "x", Fallback: true})
	require.NoError(t, err)

	second, err := repo.PutIfAbsent(ctx, &domain.AttributionRecord{SessionID: "t2", TransactionID: "t2", Source: "y", Fallback: true})
	require.NoError(t, err)

	assert.Equal(t, "x", second.Source)
	assert.Equal(t, first, second)
}

func TestAttributionRepository_GetByTransaction_PrefersRealSession(t *testing.T) {
	repo := NewAttributionRepository()
	ctx := context.Background()

	_, err := repo.Put(ctx, "s1", domain.AttributionFields{TransactionID: str("t3"), Source: str("tiktok")})
	require.NoError(t, err)
	_, err = repo.PutIfAbsent(ctx, &domain.AttributionRecord{SessionID: "t3", TransactionID: "t3", Fallback: true})
	require.NoError(t, err)

	rec, err := repo.GetByTransaction(ctx, "t3")
	require.NoError(t, err)
	assert.Equal(t, "s1", rec.SessionID)
}

func TestAttributionRepository_Put_ConcurrentWritesDoNotLoseFields(t *testing.T) {
	repo := NewAttributionRepository()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, _ = repo.Put(ctx, "s1", domain.AttributionFields{Source: str(fmt.Sprintf("source-%d", i))})
		}(i)
		go func(i int) {
			defer wg.Done()
			_, _ = repo.Put(ctx, "s1", domain.AttributionFields{Campaign: str(fmt.Sprintf("campaign-%d", i))})
		}(i)
	}
	wg.Wait()

	rec, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.NotEmpty(t, rec.Source)
	assert.NotEmpty(t, rec.Campaign)
}

func TestAttributionRepository_ReturnsCopies(t *testing.T) {
	repo := NewAttributionRepository()
	ctx := context.Background()

	rec, err := repo.Put(ctx, "s1", domain.AttributionFields{Source: str("a")})
	require.NoError(t, err)
	rec.Source = "mutated"

	stored, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "a", stored.Source)
}

func TestAttributionRepository_GetByTransaction_ForgetsReplacedTransaction(t *testing.T) {
	repo := NewAttributionRepository()
	ctx := context.Background()

	_, err := repo.Put(ctx, "s1", domain.AttributionFields{TransactionID: str("t1")})
	require.NoError(t, err)
	_, err = repo.Put(ctx, "s1", domain.AttributionFields{TransactionID: str("t2")})
	require.NoError(t, err)

	_, err = repo.GetByTransaction(ctx, "t1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	rec, err := repo.GetByTransaction(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, "s1", rec.SessionID)
}

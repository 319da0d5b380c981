package repository

import (
	"context"
	"errors"

	"github.com/BarkinBalci/attribution-relay/internal/domain"
)

// ErrNotFound is returned when a lookup key has no stored record
var ErrNotFound = errors.New("record not found")

// AttributionRepository defines the interface for attribution storage operations
type AttributionRepository interface {
	// Put creates the session record or merges non-nil fields into it
	Put(ctx context.Context, sessionID string, fields domain.AttributionFields) (*domain.AttributionRecord, error)

	// PutIfAbsent stores rec unless its session key exists and returns the stored record
	PutIfAbsent(ctx context.Context, rec *domain.AttributionRecord) (*domain.AttributionRecord, error)

	// Get returns the record for a session or ErrNotFound
	Get(ctx context.Context, sessionID string) (*domain.AttributionRecord, error)

	// GetByTransaction returns the record associated with a transaction or ErrNotFound
	GetByTransaction(ctx context.Context, transactionID string) (*domain.AttributionRecord, error)

	// InitSchema initializes the database schema (creates tables if they don't exist)
	InitSchema(ctx context.Context) error

	// Ping checks if the database connection is alive
	Ping(ctx context.Context) error

	// Close closes the repository and releases resources
	Close() error
}

// MetricsQuery represents a metrics query parameters
type MetricsQuery struct {
	EventName string
	From      int64
	To        int64
	GroupBy   string
}

// MetricsGroupResult represents aggregated metrics for a specific group
type MetricsGroupResult struct {
	GroupValue string
	TotalCount uint64
	TotalValue float64
}

// MetricsResult represents the result of a metrics query
type MetricsResult struct {
	TotalCount    uint64
	TotalValue    float64
	FallbackCount uint64
	Groups        []MetricsGroupResult
}

// ConversionRepository defines the interface for the conversion log
type ConversionRepository interface {
	// InsertBatch inserts a batch of conversion records into the storage
	InsertBatch(ctx context.Context, records []*domain.ConversionRecord) (int, error)

	// InitSchema initializes the database schema (creates tables if they don't exist)
	InitSchema(ctx context.Context) error

	// Ping checks if the database connection is alive
	Ping(ctx context.Context) error

	// Close closes the repository and releases resources
	Close() error

	// GetMetrics retrieves aggregated metrics based on the query
	GetMetrics(ctx context.Context, query MetricsQuery) (*MetricsResult, error)
}

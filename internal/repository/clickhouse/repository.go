package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/BarkinBalci/attribution-relay/internal/domain"
	"github.com/BarkinBalci/attribution-relay/internal/repository"
)

// Repository implements ConversionRepository for ClickHouse
type Repository struct {
	client *Client
	log    *zap.Logger
}

// NewRepository creates a new ClickHouse repository
func NewRepository(client *Client, log *zap.Logger) *Repository {
	return &Repository{
		client: client,
		log:    log,
	}
}

// InitSchema initializes the ClickHouse schema with ReplacingMergeTree engine.
// Redelivered queue messages produce the same event_id and status, so the latest
// version wins while a delivered row and its later duplicate rows coexist.
func (r *Repository) InitSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS conversions (
		event_id String,
		event_name LowCardinality(String),
		transaction_id String,
		session_id String,
		source LowCardinality(String),
		medium LowCardinality(String),
		campaign String,
		value Float64,
		currency LowCardinality(String),
		status LowCardinality(String),
		trace_id String,
		attempts UInt8,
		last_error String,
		fallback Bool,
		event_time Int64,
		processed_at DateTime64(3) DEFAULT now64(3),
		version UInt64
	) ENGINE = ReplacingMergeTree(version)
	PRIMARY KEY (event_id, status)
	ORDER BY (event_id, status, event_time)
	PARTITION BY toYYYYMM(toDateTime(event_time))
	SETTINGS index_granularity = 8192
	`

	if err := r.client.Conn().Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create conversions table: %w", err)
	}

	r.log.Info("ClickHouse schema initialized successfully")
	return nil
}

// InsertBatch inserts a batch of conversion records into ClickHouse
func (r *Repository) InsertBatch(ctx context.Context, records []*domain.ConversionRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	batch, err := r.client.Conn().PrepareBatch(ctx, "INSERT INTO conversions")
	if err != nil {
		return 0, fmt.Errorf("failed to prepare batch: %w", err)
	}

	insertedCount := 0
	for _, rec := range records {
		if rec.Version == 0 {
			rec.Version = uint64(time.Now().UnixNano())
		}
		if rec.ProcessedAt.IsZero() {
			rec.ProcessedAt = time.Now()
		}

		err := batch.Append(
			rec.EventID,
			rec.EventName,
			rec.TransactionID,
			rec.SessionID,
			rec.Source,
			rec.Medium,
			rec.Campaign,
			rec.Value,
			rec.Currency,
			rec.Status,
			rec.TraceID,
			rec.Attempts,
			rec.LastError,
			rec.Fallback,
			rec.EventTime,
			rec.ProcessedAt,
			rec.Version,
		)

		if err != nil {
			return 0, fmt.Errorf("failed to append record to batch: %w", err)
		}
		insertedCount++
	}

	if insertedCount == 0 {
		return 0, fmt.Errorf("no records could be appended to batch")
	}

	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("failed to send batch: %w", err)
	}

	return insertedCount, nil
}

// Ping checks if the ClickHouse connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Conn().Ping(ctx)
}

// Close closes the ClickHouse connection
func (r *Repository) Close() error {
	return r.client.Close()
}

// grouping describes how one group_by value selects, groups and orders rows.
type grouping struct {
	selectExpr string
	groupBy    string
	orderBy    string
	countExpr  string
}

// deliveredCount counts conversions that reached the API. Duplicate, failed and
// rejected rows are outcomes of the same or an undelivered sale.
const deliveredCount = "countIf(status = 'delivered')"

var groupings = map[string]grouping{
	"source":   {"source", "GROUP BY source", "ORDER BY total_count DESC", deliveredCount},
	"campaign": {"campaign", "GROUP BY campaign", "ORDER BY total_count DESC", deliveredCount},
	// Grouping by status reports every outcome, so it counts all rows.
	"status": {"status", "GROUP BY status", "ORDER BY total_count DESC", "count()"},
	"day": {
		"formatDateTime(toStartOfDay(toDateTime(event_time)), '%Y-%m-%d')",
		"GROUP BY toStartOfDay(toDateTime(event_time))",
		"ORDER BY group_value ASC",
		deliveredCount,
	},
}

const metricsWhere = "WHERE event_name = ? AND event_time >= ? AND event_time <= ?"

func overallMetricsQuery() string {
	return fmt.Sprintf(`
		SELECT
			%s as total_count,
			sumIf(value, status = 'delivered') as total_value,
			countIf(fallback AND status = 'delivered') as fallback_count
		FROM conversions FINAL
		%s
	`, deliveredCount, metricsWhere)
}

func groupedMetricsQuery(g grouping) string {
	return fmt.Sprintf(`
		SELECT
			%s as group_value,
			%s as total_count,
			sumIf(value, status = 'delivered') as total_value
		FROM conversions FINAL
		%s
		%s
		%s
	`, g.selectExpr, g.countExpr, metricsWhere, g.groupBy, g.orderBy)
}

// GetMetrics retrieves aggregated delivered conversions from ClickHouse
func (r *Repository) GetMetrics(ctx context.Context, query repository.MetricsQuery) (*repository.MetricsResult, error) {
	result := &repository.MetricsResult{
		Groups: []repository.MetricsGroupResult{},
	}

	args := []interface{}{query.EventName, query.From, query.To}

	row := r.client.Conn().QueryRow(ctx, overallMetricsQuery(), args...)
	if err := row.Scan(&result.TotalCount, &result.TotalValue, &result.FallbackCount); err != nil {
		return nil, fmt.Errorf("failed to query overall metrics: %w", err)
	}

	if query.GroupBy == "" {
		return result, nil
	}

	g, ok := groupings[query.GroupBy]
	if !ok {
		return nil, fmt.Errorf("unsupported group_by value: %s (supported: source, campaign, status, day)", query.GroupBy)
	}

	rows, err := r.client.Conn().Query(ctx, groupedMetricsQuery(g), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query grouped metrics: %w", err)
	}
	defer func(rows driver.Rows) {
		err := rows.Close()
		if err != nil {
			r.log.Error("Failed to close grouped metrics rows", zap.Error(err))
		}
	}(rows)

	for rows.Next() {
		var group repository.MetricsGroupResult
		if err := rows.Scan(&group.GroupValue, &group.TotalCount, &group.TotalValue); err != nil {
			return nil, fmt.Errorf("failed to scan grouped metrics row: %w", err)
		}
		result.Groups = append(result.Groups, group)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating grouped metrics rows: %w", err)
	}

	return result, nil
}

package clickhouse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverallMetricsQuery_CountsDeliveredOnly(t *testing.T) {
	q := overallMetricsQuery()

	assert.Contains(t, q, "countIf(status = 'delivered') as total_count")
	assert.NotContains(t, q, "count() as total_count")
	assert.Contains(t, q, "WHERE event_name = ? AND event_time >= ? AND event_time <= ?")
}

func TestGroupedMetricsQuery_CountExpression(t *testing.T) {
	tests := []struct {
		groupBy string
		count   string
	}{
		{"source", "countIf(status = 'delivered') as total_count"},
		{"campaign", "countIf(status = 'delivered') as total_count"},
		{"day", "countIf(status = 'delivered') as total_count"},
		{"status", "count() as total_count"},
	}

	for _, tt := range tests {
		t.Run(tt.groupBy, func(t *testing.T) {
			g, ok := groupings[tt.groupBy]
			assert.True(t, ok)

			q := groupedMetricsQuery(g)

			assert.Contains(t, q, tt.count)
			assert.Contains(t, q, g.groupBy)
			assert.Contains(t, q, "sumIf(value, status = 'delivered') as total_value")
		})
	}
}

package domain

import "time"

// Conversion outcome statuses written to the conversion log.
const (
	StatusDelivered = "delivered"
	StatusDuplicate = "duplicate"
	StatusFailed    = "failed"
	StatusRejected  = "rejected"
)

// ConversionRecord represents a processed conversion stored in ClickHouse
type ConversionRecord struct {
	EventID       string    `ch:"event_id" json:"event_id"`
	EventName     string    `ch:"event_name" json:"event_name"`
	TransactionID string    `ch:"transaction_id" json:"transaction_id"`
	SessionID     string    `ch:"session_id" json:"session_id"`
	Source        string    `ch:"source" json:"source"`
	Medium        string    `ch:"medium" json:"medium"`
	Campaign      string    `ch:"campaign" json:"campaign"`
	Value         float64   `ch:"value" json:"value"`
	Currency      string    `ch:"currency" json:"currency"`
	Status        string    `ch:"status" json:"status"`
	TraceID       string    `ch:"trace_id" json:"trace_id"`
	Attempts      uint8     `ch:"attempts" json:"attempts"`
	LastError     string    `ch:"last_error" json:"last_error,omitempty"`
	Fallback      bool      `ch:"fallback" json:"fallback"`
	EventTime     int64     `ch:"event_time" json:"event_time"`
	ProcessedAt   time.Time `ch:"processed_at" json:"processed_at"`
	Version       uint64    `ch:"version" json:"-"`
}

package domain

import "time"

// PaymentStatus is the state reported by the payment processor.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
	PaymentExpired PaymentStatus = "expired"
)

// Valid reports whether s is a known status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentExpired:
		return true
	}
	return false
}

// Customer holds the personal identifiers supplied with a payment or signal.
type Customer struct {
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Name     string `json:"name,omitempty"`
	Document string `json:"document,omitempty"`
}

// IsEmpty reports whether no identifier is present.
func (c Customer) IsEmpty() bool {
	return c.Email == "" && c.Phone == "" && c.Name == "" && c.Document == ""
}

// PaymentConfirmation is a payment processor notification. It is never
// persisted; it travels on the work queue until it is dispatched.
type PaymentConfirmation struct {
	TransactionID string        `json:"transaction_id"`
	ExternalID    string        `json:"external_id,omitempty"`
	SessionID     string        `json:"session_id,omitempty"`
	Status        PaymentStatus `json:"status"`
	Amount        float64       `json:"amount"`
	Currency      string        `json:"currency"`
	Customer      Customer      `json:"customer"`
	ProductIDs    []string      `json:"product_ids,omitempty"`
	LandingPage   string        `json:"landing_page,omitempty"`
	ClientIP      string        `json:"client_ip,omitempty"`
	UserAgent     string        `json:"user_agent,omitempty"`
	OccurredAt    time.Time     `json:"occurred_at"`
}

// FunnelSignal is a non-purchase workflow point (checkout start, lead capture).
type FunnelSignal struct {
	EventName  EventName `json:"event_name"`
	SessionID  string    `json:"session_id"`
	Value      float64   `json:"value,omitempty"`
	Currency   string    `json:"currency,omitempty"`
	Customer   Customer  `json:"customer"`
	ProductIDs []string  `json:"product_ids,omitempty"`
	SourceURL  string    `json:"source_url,omitempty"`
	ClientIP   string    `json:"client_ip,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

package dto

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error" example:"validation_error"`
	Message string `json:"message,omitempty" example:"session_id is required"`
}

// AttributionResponse represents a stored attribution record
type AttributionResponse struct {
	SessionID     string `json:"session_id" example:"s1"`
	TransactionID string `json:"transaction_id,omitempty" example:"t1"`
	Source        string `json:"source,omitempty" example:"facebook"`
	Medium        string `json:"medium,omitempty" example:"cpc"`
	Campaign      string `json:"campaign,omitempty" example:"promo"`
	Term          string `json:"term,omitempty"`
	Content       string `json:"content,omitempty"`
	ClickID       string `json:"click_id,omitempty"`
	BrowserID     string `json:"browser_id,omitempty"`
	LandingPage   string `json:"landing_page,omitempty"`
	Referrer      string `json:"referrer,omitempty"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Name          string `json:"name,omitempty"`
	ClientIP      string `json:"client_ip,omitempty"`
	UserAgent     string `json:"user_agent,omitempty"`
	Fallback      bool   `json:"fallback" example:"false"`
	CreatedAt     int64  `json:"created_at" example:"1723475612"`
	UpdatedAt     int64  `json:"updated_at" example:"1723475699"`
}

// JobAcceptedResponse represents a payment or funnel signal queued for dispatch
type JobAcceptedResponse struct {
	Status  string `json:"status" example:"accepted"`
	EventID string `json:"event_id,omitempty" example:"0b8e5a6c-58a4-5d2e-9a57-1f9e3c0d7b21"`
	Reason  string `json:"reason,omitempty" example:"status pending does not trigger a conversion"`
}

// MetricsGroupData represents aggregated metrics for a specific group
type MetricsGroupData struct {
	GroupValue string  `json:"group_value" example:"facebook"`
	TotalCount uint64  `json:"total_count" example:"1500"`
	TotalValue float64 `json:"total_value" example:"41850.00"`
}

// GetMetricsResponse represents the conversion metrics query response
type GetMetricsResponse struct {
	EventName     string             `json:"event_name" example:"Purchase"`
	From          int64              `json:"from" example:"1723475612"`
	To            int64              `json:"to" example:"1723562012"`
	TotalCount    uint64             `json:"total_count" example:"5000"`
	TotalValue    float64            `json:"total_value" example:"139500.00"`
	FallbackCount uint64             `json:"fallback_count" example:"120"`
	GroupBy       string             `json:"group_by,omitempty" example:"source"`
	Groups        []MetricsGroupData `json:"groups,omitempty"`
}

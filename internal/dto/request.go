package dto

// AttributionRequest represents an attribution write for a session. Omitted
// fields keep their stored value.
type AttributionRequest struct {
	SessionID     string  `json:"session_id" binding:"required,max=128" example:"s1"`
	TransactionID *string `json:"transaction_id" binding:"omitempty,max=128" example:"t1"`
	Source        *string `json:"source" example:"facebook"`
	Medium        *string `json:"medium" example:"cpc"`
	Campaign      *string `json:"campaign" example:"promo"`
	Term          *string `json:"term" example:"running shoes"`
	Content       *string `json:"content" example:"banner_a"`
	ClickID       *string `json:"click_id" example:"IwAR0abc"`
	BrowserID     *string `json:"browser_id" example:"fb.1.1700000000000.123456789"`
	LandingPage   *string `json:"landing_page" binding:"omitempty,max=2048" example:"https://shop.example/promo"`
	Referrer      *string `json:"referrer" binding:"omitempty,max=2048" example:"https://facebook.com/"`
	Email         *string `json:"email" binding:"omitempty,email" example:"a@b.com"`
	Phone         *string `json:"phone" example:"+55 11 98765-4321"`
	Name          *string `json:"name" example:"Ana Souza"`
	ClientIP      *string `json:"client_ip" binding:"omitempty,ip" example:"203.0.113.9"`
	UserAgent     *string `json:"user_agent" example:"Mozilla/5.0"`
}

// CustomerRequest represents the buyer identifiers sent with a payment or signal
type CustomerRequest struct {
	Email    string `json:"email" binding:"omitempty,email" example:"a@b.com"`
	Phone    string `json:"phone" example:"+55 11 98765-4321"`
	Name     string `json:"name" example:"Ana Souza"`
	Document string `json:"document" example:"123.456.789-09"`
}

// PaymentConfirmationRequest represents a payment processor webhook
type PaymentConfirmationRequest struct {
	TransactionID string          `json:"transaction_id" binding:"required,max=128" example:"t1"`
	ExternalID    string          `json:"external_id" example:"ch_3Nx"`
	SessionID     string          `json:"session_id" binding:"max=128" example:"s1"`
	Status        string          `json:"status" binding:"required,oneof=pending paid failed expired" example:"paid"`
	Amount        float64         `json:"amount" binding:"gte=0" example:"27.90"`
	Currency      string          `json:"currency" binding:"omitempty,len=3" example:"BRL"`
	Customer      CustomerRequest `json:"customer"`
	ProductIDs    []string        `json:"product_ids" example:"sku-1,sku-2"`
	LandingPage   string          `json:"landing_page" binding:"omitempty,max=2048" example:"https://pay.example/checkout"`
	ClientIP      string          `json:"client_ip" binding:"omitempty,ip" example:"203.0.113.9"`
	UserAgent     string          `json:"user_agent" example:"Mozilla/5.0"`
	OccurredAt    int64           `json:"occurred_at" example:"1723475612"`
}

// FunnelEventRequest represents a checkout start or lead capture
type FunnelEventRequest struct {
	SessionID  string          `json:"session_id" binding:"required,max=128" example:"s1"`
	Value      float64         `json:"value" binding:"gte=0" example:"49.90"`
	Currency   string          `json:"currency" binding:"omitempty,len=3" example:"BRL"`
	Customer   CustomerRequest `json:"customer"`
	ProductIDs []string        `json:"product_ids" example:"sku-1"`
	SourceURL  string          `json:"source_url" binding:"omitempty,max=2048" example:"https://shop.example/checkout"`
	ClientIP   string          `json:"client_ip" binding:"omitempty,ip" example:"203.0.113.9"`
	UserAgent  string          `json:"user_agent" example:"Mozilla/5.0"`
	OccurredAt int64           `json:"occurred_at" example:"1723475612"`
}

// GetMetricsRequest represents a conversion metrics query request
type GetMetricsRequest struct {
	EventName string `form:"event_name" binding:"required,oneof=Purchase InitiateCheckout Lead" example:"Purchase"`
	From      int64  `form:"from" binding:"required" example:"1723475612"`
	To        int64  `form:"to" binding:"required" example:"1723562012"`
	GroupBy   string `form:"group_by" example:"source"`
}

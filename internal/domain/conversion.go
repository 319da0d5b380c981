package domain

// EventName identifies a conversion type understood by the advertising API.
type EventName string

const (
	EventPurchase         EventName = "Purchase"
	EventInitiateCheckout EventName = "InitiateCheckout"
	EventLead             EventName = "Lead"
)

// ActionSourceServer marks events produced by backend dispatch, as opposed to
// the browser pixel.
const ActionSourceServer = "server"

// ConversionEvent is the payload sent to the conversion API.
type ConversionEvent struct {
	EventID        string     `json:"event_id"`
	EventName      EventName  `json:"event_name"`
	EventTime      int64      `json:"event_time"`
	EventSourceURL string     `json:"event_source_url,omitempty"`
	ActionSource   string     `json:"action_source"`
	UserData       UserData   `json:"user_data"`
	CustomData     CustomData `json:"custom_data"`
}

// UserData carries hashed personal identifiers plus unhashed request context.
type UserData struct {
	Emails          []string `json:"em,omitempty"`
	Phones          []string `json:"ph,omitempty"`
	FirstNames      []string `json:"fn,omitempty"`
	LastNames       []string `json:"ln,omitempty"`
	ExternalIDs     []string `json:"external_id,omitempty"`
	ClientIPAddress string   `json:"client_ip_address,omitempty"`
	ClientUserAgent string   `json:"client_user_agent,omitempty"`
	ClickID         string   `json:"fbc,omitempty"`
	BrowserID       string   `json:"fbp,omitempty"`
}

// CustomData carries the business value of the conversion.
type CustomData struct {
	Value       float64  `json:"value"`
	Currency    string   `json:"currency,omitempty"`
	ContentIDs  []string `json:"content_ids,omitempty"`
	ContentType string   `json:"content_type,omitempty"`
	OrderID     string   `json:"order_id,omitempty"`
}

package domain

import "time"

// AttributionRecord is the marketing context captured for a browsing session.
type AttributionRecord struct {
	SessionID     string    `json:"session_id"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Source        string    `json:"source,omitempty"`
	Medium        string    `json:"medium,omitempty"`
	Campaign      string    `json:"campaign,omitempty"`
	Term          string    `json:"term,omitempty"`
	Content       string    `json:"content,omitempty"`
	ClickID       string    `json:"click_id,omitempty"`
	BrowserID     string    `json:"browser_id,omitempty"`
	LandingPage   string    `json:"landing_page,omitempty"`
	Referrer      string    `json:"referrer,omitempty"`
	Email         string    `json:"email,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Name          string    `json:"name,omitempty"`
	ClientIP      string    `json:"client_ip,omitempty"`
	UserAgent     string    `json:"user_agent,omitempty"`
	Fallback      bool      `json:"fallback"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AttributionFields is a partial write for a session. Nil fields leave the
// stored value untouched.
type AttributionFields struct {
	TransactionID *string
	Source        *string
	Medium        *string
	Campaign      *string
	Term          *string
	Content       *string
	ClickID       *string
	BrowserID     *string
	LandingPage   *string
	Referrer      *string
	Email         *string
	Phone         *string
	Name          *string
	ClientIP      *string
	UserAgent     *string
}

// Apply merges f into rec, last write wins per field.
func (f AttributionFields) Apply(rec *AttributionRecord) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}

	set(&rec.TransactionID, f.TransactionID)
	set(&rec.Source, f.Source)
	set(&rec.Medium, f.Medium)
	set(&rec.Campaign, f.Campaign)
	set(&rec.Term, f.Term)
	set(&rec.Content, f.Content)
	set(&rec.ClickID, f.ClickID)
	set(&rec.BrowserID, f.BrowserID)
	set(&rec.LandingPage, f.LandingPage)
	set(&rec.Referrer, f.Referrer)
	set(&rec.Email, f.Email)
	set(&rec.Phone, f.Phone)
	set(&rec.Name, f.Name)
	set(&rec.ClientIP, f.ClientIP)
	set(&rec.UserAgent, f.UserAgent)
}

// StringField returns a pointer to s, or nil when s is blank.
func StringField(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

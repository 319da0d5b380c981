// Package conversion turns correlated payments and funnel signals into
// conversion API events. It performs no I/O.
package conversion

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BarkinBalci/attribution-relay/internal/domain"
)

// ErrInvalidEvent is wrapped by every ValidationError.
var ErrInvalidEvent = errors.New("invalid conversion event")

// ValidationError is a structural problem with the input; retrying cannot fix it.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid conversion event: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidEvent
}

// eventNamespace scopes the UUIDv5 event ids.
var eventNamespace = uuid.MustParse("8d3f52a4-6c1e-4b7a-9f20-3e5b1c7d9a64")

// EventID derives the dedup key for a conversion. The same key and event name
// always produce the same id.
func EventID(key string, name domain.EventName) string {
	return uuid.NewSHA1(eventNamespace, []byte(key+"|"+string(name))).String()
}

// Options configures normalization.
type Options struct {
	DefaultCountryCode string
	DefaultCurrency    string
	Now                func() time.Time
}

// Builder maps domain inputs to ConversionEvents.
type Builder struct {
	opts Options
}

// NewBuilder creates a builder
func NewBuilder(opts Options) *Builder {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Builder{opts: opts}
}

// BuildPurchase builds the Purchase event for a paid confirmation. rec may be nil.
func (b *Builder) BuildPurchase(pc *domain.PaymentConfirmation, rec *domain.AttributionRecord) (*domain.ConversionEvent, error) {
	if pc.Status != domain.PaymentPaid {
		return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("must be %q, got %q", domain.PaymentPaid, pc.Status)}
	}
	if pc.TransactionID == "" {
		return nil, &ValidationError{Field: "transaction_id", Reason: "is required for Purchase"}
	}
	if pc.Amount <= 0 || math.IsNaN(pc.Amount) || math.IsInf(pc.Amount, 0) {
		return nil, &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}

	userData := b.userData(pc.Customer, rec, pc.ClientIP, pc.UserAgent, pc.OccurredAt)
	if !hasIdentifier(userData) {
		return nil, &ValidationError{Field: "customer", Reason: "has no identifier"}
	}

	return &domain.ConversionEvent{
		EventID:        EventID(pc.TransactionID, domain.EventPurchase),
		EventName:      domain.EventPurchase,
		EventTime:      b.eventTime(pc.OccurredAt),
		EventSourceURL: firstNonEmpty(landingPage(rec), pc.LandingPage),
		ActionSource:   domain.ActionSourceServer,
		UserData:       userData,
		CustomData: domain.CustomData{
			Value:       roundCents(pc.Amount),
			Currency:    b.currency(pc.Currency),
			ContentIDs:  pc.ProductIDs,
			ContentType: contentType(pc.ProductIDs),
			OrderID:     pc.TransactionID,
		},
	}, nil
}

// BuildFunnel builds InitiateCheckout and Lead events. rec may be nil.
func (b *Builder) BuildFunnel(sig *domain.FunnelSignal, rec *domain.AttributionRecord) (*domain.ConversionEvent, error) {
	switch sig.EventName {
	case domain.EventInitiateCheckout:
		if sig.Value <= 0 {
			return nil, &ValidationError{Field: "value", Reason: "must be greater than zero"}
		}
	case domain.EventLead:
		if sig.Value < 0 {
			return nil, &ValidationError{Field: "value", Reason: "must not be negative"}
		}
	default:
		return nil, &ValidationError{Field: "event_name", Reason: fmt.Sprintf("unsupported %q", sig.EventName)}
	}
	if sig.SessionID == "" {
		return nil, &ValidationError{Field: "session_id", Reason: "is required"}
	}

	userData := b.userData(sig.Customer, rec, sig.ClientIP, sig.UserAgent, sig.OccurredAt)
	if !hasIdentifier(userData) {
		return nil, &ValidationError{Field: "customer", Reason: "has no identifier"}
	}

	return &domain.ConversionEvent{
		EventID:        EventID(sig.SessionID, sig.EventName),
		EventName:      sig.EventName,
		EventTime:      b.eventTime(sig.OccurredAt),
		EventSourceURL: firstNonEmpty(sig.SourceURL, landingPage(rec)),
		ActionSource:   domain.ActionSourceServer,
		UserData:       userData,
		CustomData: domain.CustomData{
			Value:       roundCents(sig.Value),
			Currency:    b.currency(sig.Currency),
			ContentIDs:  sig.ProductIDs,
			ContentType: contentType(sig.ProductIDs),
		},
	}, nil
}

// userData prefers identifiers supplied with the payment and falls back to what
// the session captured before checkout.
func (b *Builder) userData(c domain.Customer, rec *domain.AttributionRecord, ip, ua string, occurredAt time.Time) domain.UserData {
	var r domain.AttributionRecord
	if rec != nil {
		r = *rec
	}

	email := firstNonEmpty(c.Email, r.Email)
	phone := firstNonEmpty(c.Phone, r.Phone)
	name := firstNonEmpty(c.Name, r.Name)

	var ud domain.UserData
	if h := HashEmail(email); h != "" {
		ud.Emails = []string{h}
	}
	if h := HashPhone(phone, b.opts.DefaultCountryCode); h != "" {
		ud.Phones = []string{h}
	}
	first, last := SplitName(name)
	if h := Hash(NormalizeName(first)); h != "" {
		ud.FirstNames = []string{h}
	}
	if h := Hash(NormalizeName(last)); h != "" {
		ud.LastNames = []string{h}
	}
	if h := Hash(NormalizeDocument(c.Document)); h != "" {
		ud.ExternalIDs = []string{h}
	}

	ud.ClientIPAddress = firstNonEmpty(ip, r.ClientIP)
	ud.ClientUserAgent = firstNonEmpty(ua, r.UserAgent)
	ud.ClickID = formatClickID(r.ClickID, firstNonZero(r.CreatedAt, occurredAt, b.opts.Now()))
	ud.BrowserID = r.BrowserID
	return ud
}

func (b *Builder) eventTime(occurredAt time.Time) int64 {
	if occurredAt.IsZero() {
		return b.opts.Now().Unix()
	}
	return occurredAt.Unix()
}

func (b *Builder) currency(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return b.opts.DefaultCurrency
	}
	return c
}

func hasIdentifier(ud domain.UserData) bool {
	return len(ud.Emails) > 0 || len(ud.Phones) > 0 || len(ud.ExternalIDs) > 0 ||
		ud.ClickID != "" || ud.BrowserID != ""
}

// formatClickID renders a raw ad-click id in the platform's fbc cookie format.
func formatClickID(clickID string, seenAt time.Time) string {
	clickID = strings.TrimSpace(clickID)
	if clickID == "" {
		return ""
	}
	if strings.HasPrefix(clickID, "fb.") {
		return clickID
	}
	return fmt.Sprintf("fb.1.%d.%s", seenAt.UnixMilli(), clickID)
}

func landingPage(rec *domain.AttributionRecord) string {
	if rec == nil {
		return ""
	}
	return rec.LandingPage
}

func contentType(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	return "product"
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonZero(values ...time.Time) time.Time {
	for _, v := range values {
		if !v.IsZero() {
			return v
		}
	}
	return time.Time{}
}

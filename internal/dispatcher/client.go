package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BarkinBalci/attribution-relay/internal/config"
	"github.com/BarkinBalci/attribution-relay/internal/domain"
)

// throttlingCodes are platform error codes that signal rate limiting or a
// temporary outage even when the HTTP status is 4xx.
var throttlingCodes = map[int]bool{
	1:     true,
	2:     true,
	4:     true,
	17:    true,
	32:    true,
	341:   true,
	613:   true,
	80004: true,
}

// Sender delivers a batch of events to the conversion API.
type Sender interface {
	Send(ctx context.Context, events []domain.ConversionEvent) (*Response, error)
}

// Response is the API acknowledgement for a delivered batch.
type Response struct {
	EventsReceived int      `json:"events_received"`
	Messages       []string `json:"messages"`
	TraceID        string   `json:"fbtrace_id"`
}

// APIError is a failed call. Transient errors are worth retrying.
type APIError struct {
	StatusCode int
	Code       int
	Type       string
	Message    string
	TraceID    string
	Transient  bool
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("conversion API request failed: %s", e.Message)
	}
	return fmt.Sprintf("conversion API error (%d, code %d): %s", e.StatusCode, e.Code, e.Message)
}

// IsTransient reports whether err is worth another attempt.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient
	}
	return false
}

type sendRequest struct {
	Data          []domain.ConversionEvent `json:"data"`
	AccessToken   string                   `json:"access_token"`
	TestEventCode string                   `json:"test_event_code,omitempty"`
}

type errorEnvelope struct {
	Error struct {
		Message   string `json:"message"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		FBTraceID string `json:"fbtrace_id"`
	} `json:"error"`
}

// Client is the HTTP Sender.
type Client struct {
	endpoint      string
	accessToken   string
	testEventCode string
	httpClient    *http.Client
	log           *zap.Logger
}

// NewClient creates a conversion API client
func NewClient(cfg config.ConversionAPI, log *zap.Logger) *Client {
	endpoint := fmt.Sprintf("%s/%s/%s/events",
		strings.TrimRight(cfg.BaseURL, "/"), cfg.Version, cfg.AccountID)

	return &Client{
		endpoint:      endpoint,
		accessToken:   cfg.AccessToken,
		testEventCode: cfg.TestEventCode,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		log:           log,
	}
}

// Send performs a single POST. It never retries; the Dispatcher owns retries.
func (c *Client) Send(ctx context.Context, events []domain.ConversionEvent) (*Response, error) {
	body, err := json.Marshal(sendRequest{
		Data:          events,
		AccessToken:   c.accessToken,
		TestEventCode: c.testEventCode,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Message: err.Error(), Transient: true}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: "failed to read response body: " + err.Error(), Transient: true}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, classify(resp.StatusCode, respBody)
	}

	var out Response
	if err := json.Unmarshal(respBody, &out); err != nil {
		// The API took the batch; only the receipt is unreadable.
		c.log.Warn("Conversion API accepted events with an unreadable body",
			zap.Int("status", resp.StatusCode),
			zap.Int("events", len(events)),
			zap.Error(err))
		return &Response{EventsReceived: len(events)}, nil
	}

	if out.EventsReceived < len(events) {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("accepted %d of %d events: %s", out.EventsReceived, len(events), strings.Join(out.Messages, "; ")),
			TraceID:    out.TraceID,
		}
	}

	c.log.Debug("Conversion API accepted events",
		zap.Int("events_received", out.EventsReceived),
		zap.String("trace_id", out.TraceID))

	return &out, nil
}

func classify(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var env errorEnvelope
	if json.Unmarshal(body, &env) == nil && env.Error.Message != "" {
		apiErr.Message = env.Error.Message
		apiErr.Type = env.Error.Type
		apiErr.Code = env.Error.Code
		apiErr.TraceID = env.Error.FBTraceID
	} else {
		apiErr.Message = string(body)
	}

	apiErr.Transient = status == http.StatusTooManyRequests || status >= 500 || throttlingCodes[apiErr.Code]
	return apiErr
}

// backoff returns the delay before the given 1-based retry.
func backoff(initial time.Duration, retry int) time.Duration {
	return initial << (retry - 1)
}

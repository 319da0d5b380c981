package consumer

import (
	"encoding/json"
	"fmt"

	"github.com/BarkinBalci/attribution-relay/internal/domain"
)

// JSONJobParser implements MessageParser for JSON-formatted job messages
type JSONJobParser struct{}

// NewJSONJobParser creates a new JSON job parser
func NewJSONJobParser() *JSONJobParser {
	return &JSONJobParser{}
}

// Parse parses a JSON message body into a Job. A job whose payload does not
// match its type is malformed.
func (p *JSONJobParser) Parse(body []byte) (*domain.Job, error) {
	var job domain.Job
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message body: %w", err)
	}

	switch job.Type {
	case domain.JobPayment:
		if job.Payment == nil {
			return nil, fmt.Errorf("payment job without payment payload")
		}
	case domain.JobFunnel:
		if job.Funnel == nil {
			return nil, fmt.Errorf("funnel job without funnel payload")
		}
	default:
		return nil, fmt.Errorf("unknown job type: %q", job.Type)
	}

	return &job, nil
}

package domain

// JobType discriminates queue messages.
type JobType string

const (
	JobPayment JobType = "payment"
	JobFunnel  JobType = "funnel"
)

// Job is the unit of work carried from the API to the consumer.
type Job struct {
	Type    JobType              `json:"type"`
	Payment *PaymentConfirmation `json:"payment,omitempty"`
	Funnel  *FunnelSignal        `json:"funnel,omitempty"`
}

// Key returns the identifier used to trace a job through logs.
func (j *Job) Key() string {
	switch {
	case j.Payment != nil:
		return j.Payment.TransactionID
	case j.Funnel != nil:
		return j.Funnel.SessionID
	}
	return ""
}

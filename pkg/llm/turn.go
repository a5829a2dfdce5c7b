package llm

import "time"

// Turn is one recorded chat exchange: the request sent upstream and, when the
// call succeeded, its aggregated result.
type Turn struct {
	ID             string             `json:"id"`
	ConversationID string             `json:"conversation_id,omitempty"`
	Location       string             `json:"location,omitempty"`
	Request        *CompletionRequest `json:"request"`
	Result         *Result            `json:"result,omitempty"`
	Streaming      bool               `json:"streaming"`
	Error          string             `json:"error,omitempty"`
	StartedAt      time.Time          `json:"started_at"`
	CompletedAt    time.Time          `json:"completed_at"`
}

// Duration returns the wall time of the exchange.
func (t *Turn) Duration() time.Duration {
	if t.CompletedAt.IsZero() {
		return 0
	}
	return t.CompletedAt.Sub(t.StartedAt)
}

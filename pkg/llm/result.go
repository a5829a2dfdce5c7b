package llm

// FinishReason describes why a completion stopped. Values outside the known
// set are carried through verbatim.
type FinishReason string

const (
	FinishReasonStop          FinishReason = "stop"
	FinishReasonLength        FinishReason = "length"
	FinishReasonContentFilter FinishReason = "content_filter"
	FinishReasonToolCalls     FinishReason = "tool_calls"
)

// Known reports whether r is one of the enumerated finish reasons.
func (r FinishReason) Known() bool {
	switch r {
	case FinishReasonStop, FinishReasonLength, FinishReasonContentFilter, FinishReasonToolCalls:
		return true
	default:
		return false
	}
}

// Chunk is the normalized shape every recognized streaming payload dialect is
// converted into. Nil pointers mean "not present in this chunk".
type Chunk struct {
	Content          string        `json:"content"`
	Reasoning        *string       `json:"reasoning"`
	ReasoningContent *string       `json:"reasoning_content"`
	FinishReason     *FinishReason `json:"finish_reason"`
	ID               *string       `json:"id"`
}

// Result is the terminal value of a completion call.
type Result struct {
	// Result is the concatenation of all content deltas.
	Result string `json:"result"`

	// Reasoning channels are nil when never populated.
	Reasoning        *string `json:"reasoning"`
	ReasoningContent *string `json:"reasoning_content"`

	// FinishReason defaults to "stop" when the stream never supplied one.
	FinishReason FinishReason `json:"finish_reason"`

	// ID is the last completion id observed, or empty.
	ID string `json:"id"`
}

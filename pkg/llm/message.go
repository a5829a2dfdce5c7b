// Package llm holds the provider-agnostic chat types shared by the folio client,
// server and recorder.
package llm

// Role values used in conversation messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single message in a conversation.
// Reasoning fields are only ever populated on assistant messages by models that
// expose their reasoning channel.
type Message struct {
	Role             string  `json:"role"`    // "system", "user", "assistant"
	Content          string  `json:"content"` // plain text content
	Reasoning        *string `json:"reasoning,omitempty"`
	ReasoningContent *string `json:"reasoning_content,omitempty"`
}

// NewTextMessage creates a simple text message with the given role and content.
func NewTextMessage(role, text string) Message {
	return Message{
		Role:    role,
		Content: text,
	}
}

// ErrorResponse is the JSON body returned by folio HTTP handlers on failure.
type ErrorResponse struct {
	Error string `json:"error"`
}

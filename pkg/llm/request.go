package llm

// CompletionRequest is a caller-supplied chat completion request. It is treated
// as immutable for the duration of one call.
type CompletionRequest struct {
	// Model is the target model id (e.g., "openai/gpt-oss-120b")
	Model string `json:"model"`

	// Input is the new user message for this turn.
	Input string `json:"input"`

	// SystemPrompt, when set, is sent as the first message.
	SystemPrompt string `json:"system_prompt,omitempty"`

	// History is the prior turn history, oldest first.
	History []Message `json:"history,omitempty"`

	// Sampling parameters
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`

	// Stream asks the upstream for incremental delivery even when no chunk
	// callback is supplied.
	Stream bool `json:"stream,omitempty"`
}

// Messages flattens the system prompt, history and input into the ordered
// message list sent upstream. Empty system prompt and input are skipped.
func (r *CompletionRequest) Messages() []Message {
	messages := make([]Message, 0, len(r.History)+2)
	if r.SystemPrompt != "" {
		messages = append(messages, NewTextMessage(RoleSystem, r.SystemPrompt))
	}

	for _, msg := range r.History {
		messages = append(messages, Message{Role: msg.Role, Content: msg.Content})
	}

	if r.Input != "" {
		messages = append(messages, NewTextMessage(RoleUser, r.Input))
	}

	return messages
}

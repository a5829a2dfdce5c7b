package openai

// Object discriminators carried in the "object" field of OpenAI-compatible
// payloads.
const (
	ObjectChatCompletion      = "chat.completion"
	ObjectChatCompletionChunk = "chat.completion.chunk"
)

// ChatCompletionRequest is the upstream request body.
type ChatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
	TopP        *float64  `json:"top_p,omitempty"`
}

// Message is a chat message in OpenAI's format. Reasoning fields are vendor
// extensions emitted by reasoning models.
type Message struct {
	Role             string  `json:"role"`
	Content          string  `json:"content"`
	Reasoning        *string `json:"reasoning,omitempty"`
	ReasoningContent *string `json:"reasoning_content,omitempty"`
}

// Delta is the incremental part of a streaming choice. Every field is a
// pointer so that explicit nulls and absent keys decode the same way.
type Delta struct {
	Role             *string `json:"role,omitempty"`
	Content          *string `json:"content,omitempty"`
	Reasoning        *string `json:"reasoning,omitempty"`
	ReasoningContent *string `json:"reasoning_content,omitempty"`
}

// ChunkChoice is a single choice of a chat.completion.chunk.
type ChunkChoice struct {
	Index        int     `json:"index"`
	Delta        *Delta  `json:"delta,omitempty"`
	FinishReason *string `json:"finish_reason"` // pointer to distinguish null from ""
}

// ChatCompletionChunk is one streamed chunk (object = "chat.completion.chunk").
type ChatCompletionChunk struct {
	ID      *string       `json:"id,omitempty"`
	Object  string        `json:"object"`
	Created int64         `json:"created,omitempty"`
	Model   string        `json:"model,omitempty"`
	Choices []ChunkChoice `json:"choices"`
	Usage   *Usage        `json:"usage,omitempty"`
}

// CompletionChoice is a single choice of a full chat.completion.
type CompletionChoice struct {
	Index        int      `json:"index"`
	Message      *Message `json:"message,omitempty"`
	FinishReason *string  `json:"finish_reason"`
}

// ChatCompletion is a full, non-incremental completion (object = "chat.completion").
type ChatCompletion struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created,omitempty"`
	Model   string             `json:"model,omitempty"`
	Choices []CompletionChoice `json:"choices"`
	Usage   *Usage             `json:"usage,omitempty"`
}

// Usage holds token counts when the upstream reports them.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// envelope is the minimal shape used to read the discriminator before
// decoding a payload fully.
type envelope struct {
	Object string `json:"object"`
}

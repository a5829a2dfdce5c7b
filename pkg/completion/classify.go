package completion

import (
	"encoding/json"

	"github.com/papercomputeco/folio/pkg/llm"
	"github.com/papercomputeco/folio/pkg/llm/openai"
	"github.com/papercomputeco/folio/pkg/sse"
)

// payload is the closed set of shapes a frame's data can take.
type payload interface {
	isPayload()
}

// donePayload is the literal [DONE] sentinel.
type donePayload struct{}

// doneEventPayload is a frame whose event type is "done". Its body is read
// as a terminal result, not as a delta.
type doneEventPayload struct {
	values resultFields
}

// chunkPayload is an incremental chat.completion.chunk.
type chunkPayload struct {
	chunk llm.Chunk
}

// completionPayload is a full chat.completion, finalizing the call.
type completionPayload struct {
	result llm.Result
}

// unrecognizedPayload is valid JSON in no known dialect; it acts as a no-op chunk.
type unrecognizedPayload struct{}

func (donePayload) isPayload()         {}
func (doneEventPayload) isPayload()    {}
func (chunkPayload) isPayload()        {}
func (completionPayload) isPayload()   {}
func (unrecognizedPayload) isPayload() {}

// resultFields is the flat, Result-shaped document used by "done" events and
// by the single-document fallback.
type resultFields struct {
	Result           *string `json:"result"`
	Reasoning        *string `json:"reasoning"`
	ReasoningContent *string `json:"reasoning_content"`
	FinishReason     *string `json:"finish_reason"`
	ID               *string `json:"id"`
}

// classify converts one frame into a payload. The sentinel is recognized
// before any parsing. Structurally invalid data yields a *ParseError.
func classify(frame *sse.Frame) (payload, error) {
	if frame.IsDone() {
		return donePayload{}, nil
	}

	data := []byte(frame.Data)

	if frame.Event == sse.EventDone {
		var values resultFields
		if err := json.Unmarshal(data, &values); err != nil {
			if !json.Valid(data) {
				return nil, &ParseError{Data: frame.Data, Err: err}
			}
			values = resultFields{}
		}
		return doneEventPayload{values: values}, nil
	}

	object, err := openai.ObjectOf(data)
	if err != nil {
		return nil, &ParseError{Data: frame.Data, Err: err}
	}

	switch object {
	case openai.ObjectChatCompletionChunk:
		var c openai.ChatCompletionChunk
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, &ParseError{Data: frame.Data, Err: err}
		}
		return chunkPayload{chunk: normalizeChunk(&c)}, nil

	case openai.ObjectChatCompletion:
		var c openai.ChatCompletion
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, &ParseError{Data: frame.Data, Err: err}
		}
		return completionPayload{result: normalizeCompletion(&c)}, nil

	default:
		return unrecognizedPayload{}, nil
	}
}

// normalizeChunk reads the first choice of a streamed chunk.
func normalizeChunk(c *openai.ChatCompletionChunk) llm.Chunk {
	chunk := llm.Chunk{ID: nonEmpty(c.ID)}
	if len(c.Choices) == 0 {
		return chunk
	}

	choice := c.Choices[0]
	if choice.Delta != nil {
		if choice.Delta.Content != nil {
			chunk.Content = *choice.Delta.Content
		}
		chunk.Reasoning = choice.Delta.Reasoning
		chunk.ReasoningContent = choice.Delta.ReasoningContent
	}
	if reason := nonEmpty(choice.FinishReason); reason != nil {
		fr := llm.FinishReason(*reason)
		chunk.FinishReason = &fr
	}
	return chunk
}

// normalizeCompletion reads the first choice of a full completion.
func normalizeCompletion(c *openai.ChatCompletion) llm.Result {
	result := llm.Result{
		FinishReason: llm.FinishReasonStop,
		ID:           c.ID,
	}
	if len(c.Choices) == 0 {
		return result
	}

	choice := c.Choices[0]
	if choice.Message != nil {
		result.Result = choice.Message.Content
	}
	if reason := nonEmpty(choice.FinishReason); reason != nil {
		result.FinishReason = llm.FinishReason(*reason)
	}
	return result
}

// nonEmpty maps an empty string to nil.
func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

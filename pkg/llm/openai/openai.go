// Package openai holds the OpenAI-compatible chat completion wire format spoken
// by the upstream model API and re-emitted by the folio chat server.
package openai

import (
	"encoding/json"
	"time"

	"github.com/papercomputeco/folio/pkg/llm"
)

// ObjectOf returns the "object" discriminator of a JSON payload. A payload
// that is valid JSON but not an object, or has no discriminator, yields "".
func ObjectOf(payload []byte) (string, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		var probe any
		if err2 := json.Unmarshal(payload, &probe); err2 == nil {
			return "", nil
		}
		return "", err
	}
	return env.Object, nil
}

// NewChatCompletionRequest converts a CompletionRequest into the upstream body.
func NewChatCompletionRequest(req *llm.CompletionRequest, stream bool) ChatCompletionRequest {
	msgs := req.Messages()
	messages := make([]Message, 0, len(msgs))
	for _, msg := range msgs {
		messages = append(messages, Message{Role: msg.Role, Content: msg.Content})
	}

	return ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Stream:      stream,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		TopP:        req.TopP,
	}
}

// NewChunk builds a chat.completion.chunk carrying a normalized chunk.
func NewChunk(id, model string, created time.Time, chunk llm.Chunk) ChatCompletionChunk {
	delta := &Delta{
		Reasoning:        chunk.Reasoning,
		ReasoningContent: chunk.ReasoningContent,
	}
	if chunk.Content != "" {
		content := chunk.Content
		delta.Content = &content
	}

	var finish *string
	if chunk.FinishReason != nil {
		reason := string(*chunk.FinishReason)
		finish = &reason
	}

	if chunk.ID != nil && *chunk.ID != "" {
		id = *chunk.ID
	}

	return ChatCompletionChunk{
		ID:      &id,
		Object:  ObjectChatCompletionChunk,
		Created: created.Unix(),
		Model:   model,
		Choices: []ChunkChoice{{
			Index:        0,
			Delta:        delta,
			FinishReason: finish,
		}},
	}
}

// NewCompletion builds a full chat.completion document from an aggregated result.
func NewCompletion(id, model string, created time.Time, result *llm.Result) ChatCompletion {
	if result.ID != "" {
		id = result.ID
	}
	reason := string(result.FinishReason)

	return ChatCompletion{
		ID:      id,
		Object:  ObjectChatCompletion,
		Created: created.Unix(),
		Model:   model,
		Choices: []CompletionChoice{{
			Index: 0,
			Message: &Message{
				Role:             llm.RoleAssistant,
				Content:          result.Result,
				Reasoning:        result.Reasoning,
				ReasoningContent: result.ReasoningContent,
			},
			FinishReason: &reason,
		}},
	}
}

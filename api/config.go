// Package api provides the folio chat HTTP server: an OpenAI-compatible chat
// completions endpoint backed by the completion client, plus read access to
// recorded turns.
package api

import (
	"strings"

	"github.com/papercomputeco/folio/pkg/llm"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	ChatDefaults
}

// ChatDefaults are applied to every chat request. They can be swapped at
// runtime with Server.UpdateChatDefaults.
type ChatDefaults struct {
	Model        string
	SystemPrompt string
	Temperature  *float64
	MaxTokens    *int
	TopP         *float64
}

// completionRequest turns a validated chat body into an upstream request. The
// last message is the input. Caller system messages are dropped so the
// server's prompt stays authoritative.
func (d ChatDefaults) completionRequest(body *ChatRequest) *llm.CompletionRequest {
	n := len(body.Messages)

	history := make([]llm.Message, 0, n-1)
	for _, msg := range body.Messages[:n-1] {
		if msg.Role == llm.RoleSystem {
			continue
		}
		history = append(history, llm.Message{Role: msg.Role, Content: msg.Content})
	}

	prompt := d.SystemPrompt
	if loc := strings.TrimSpace(body.Location); loc != "" {
		prompt = strings.TrimSpace(prompt + "\n\nVisitor location: " + loc)
	}

	return &llm.CompletionRequest{
		Model:        d.Model,
		Input:        body.Messages[n-1].Content,
		SystemPrompt: prompt,
		History:      history,
		Temperature:  d.Temperature,
		MaxTokens:    d.MaxTokens,
		TopP:         d.TopP,
	}
}

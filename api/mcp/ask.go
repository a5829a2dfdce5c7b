package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/folio/pkg/llm"
)

var (
	askToolName    = "ask"
	askDescription = "Ask the portfolio assistant a question about the site owner's projects, writing and experience. Returns the assistant's full answer."
)

// AskInput represents the input arguments for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to ask the portfolio assistant"`
	Location string `json:"location,omitempty" jsonschema:"optional visitor location used to tailor the answer"`
}

// AskOutput represents the structured output of the ask tool.
type AskOutput struct {
	Answer       string `json:"answer"`
	FinishReason string `json:"finish_reason"`
	ID           string `json:"id"`
}

// handleAsk runs the question in promise mode.
func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	logger := s.config.Logger

	question := strings.TrimSpace(input.Question)
	if question == "" {
		return errorResult("question is required"), AskOutput{}, nil
	}

	prompt := s.config.SystemPrompt
	if loc := strings.TrimSpace(input.Location); loc != "" {
		prompt = strings.TrimSpace(prompt + "\n\nVisitor location: " + loc)
	}

	logger.Debug("MCP ask request", "question_len", len(question), "location", input.Location)

	result, err := s.config.Completer.Call(ctx, &llm.CompletionRequest{
		Model:        s.config.Model,
		Input:        question,
		SystemPrompt: prompt,
	}, nil)
	if err != nil {
		logger.Error("ask completion failed", "error", err)
		return errorResult(fmt.Sprintf("Failed to answer: %v", err)), AskOutput{}, nil
	}
	if result == nil {
		return errorResult("request cancelled"), AskOutput{}, nil
	}

	out := AskOutput{
		Answer:       result.Result,
		FinishReason: string(result.FinishReason),
		ID:           result.ID,
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: result.Result},
		},
	}, out, nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}

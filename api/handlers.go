package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/papercomputeco/folio/pkg/completion"
	"github.com/papercomputeco/folio/pkg/llm"
	"github.com/papercomputeco/folio/pkg/llm/openai"
	"github.com/papercomputeco/folio/pkg/sse"
	"github.com/papercomputeco/folio/pkg/storage"
	"github.com/papercomputeco/folio/recorder"
)

// HeaderConversationID carries the conversation a chat response belongs to.
// Clients that cannot set conversation_id in the body may send it here.
const HeaderConversationID = "X-Folio-Conversation-Id"

// ChatRequest is the body accepted by POST /api/chat/completions.
type ChatRequest struct {
	Messages       []llm.Message `json:"messages"`
	Location       string        `json:"location,omitempty"`
	Stream         bool          `json:"stream,omitempty"`
	ConversationID string        `json:"conversation_id,omitempty"`
}

// StreamError is the payload of an "error" SSE frame.
type StreamError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// TurnsResponse is returned by GET /api/turns.
type TurnsResponse struct {
	Count int         `json:"count"`
	Turns []*llm.Turn `json:"turns"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleChatCompletions answers a chat request, streaming when the caller
// accepts an event stream or asks for one.
func (s *Server) handleChatCompletions(c *fiber.Ctx) error {
	body, err := s.parseChatRequest(c.Body())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
	}

	streaming := body.Stream || strings.Contains(c.Get(fiber.HeaderAccept), sse.ContentType)

	turn := &llm.Turn{
		ID:             uuid.NewString(),
		ConversationID: body.ConversationID,
		Location:       strings.TrimSpace(body.Location),
		Request:        s.chatDefaults().completionRequest(body),
		Streaming:      streaming,
		StartedAt:      time.Now().UTC(),
	}
	if turn.ConversationID == "" {
		turn.ConversationID = strings.TrimSpace(c.Get(HeaderConversationID))
	}
	if turn.ConversationID == "" {
		turn.ConversationID = uuid.NewString()
	}
	c.Set(HeaderConversationID, turn.ConversationID)

	s.logger.Debug("chat request",
		"turn_id", turn.ID,
		"conversation_id", turn.ConversationID,
		"streaming", streaming,
		"history", len(turn.Request.History),
	)

	if streaming {
		return s.streamChat(c, turn)
	}
	return s.completeChat(c, turn)
}

func (s *Server) parseChatRequest(raw []byte) (*ChatRequest, error) {
	if err := validateJSON(s.schema, raw); err != nil {
		return nil, err
	}

	var body ChatRequest
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}

	last := body.Messages[len(body.Messages)-1]
	if last.Role != llm.RoleUser {
		return nil, errors.New("invalid request: last message must have role user")
	}
	if strings.TrimSpace(last.Content) == "" {
		return nil, errors.New("invalid request: last message is empty")
	}

	return &body, nil
}

// completeChat runs the call in promise mode and answers with one document.
func (s *Server) completeChat(c *fiber.Ctx, turn *llm.Turn) error {
	result, err := s.deps.Completer.Call(c.UserContext(), turn.Request, nil)
	s.record(turn, result, err)

	if err != nil {
		s.logger.Warn("completion failed", "turn_id", turn.ID, "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(llm.ErrorResponse{Error: err.Error()})
	}
	if result == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(llm.ErrorResponse{Error: "request cancelled"})
	}

	return c.JSON(openai.NewCompletion(responseID(turn), turn.Request.Model, turn.StartedAt, result))
}

// streamChat relays the call in callback mode as chat.completion.chunk frames.
func (s *Server) streamChat(c *fiber.Ctx, turn *llm.Turn) error {
	c.Set(fiber.HeaderContentType, sse.ContentType)
	c.Set(fiber.HeaderCacheControl, "no-cache, no-transform")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	// pw.Write blocks until fasthttp drains the reader and flushes the chunk,
	// giving per-frame delivery with backpressure.
	pr, pw := io.Pipe()
	go s.relayStream(turn, pw)

	c.Context().Response.SetBodyStream(pr, -1)
	return nil
}

// relayStream runs on its own goroutine because fasthttp recycles the request
// context once the handler returns. A failed write means the client left, so
// the upstream call is cancelled.
func (s *Server) relayStream(turn *llm.Turn, pw *io.PipeWriter) {
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := sse.NewWriter(pw)
	id := responseID(turn)
	model := turn.Request.Model

	write := func(err error) {
		if err != nil && ctx.Err() == nil {
			s.logger.Debug("client went away, cancelling completion", "turn_id", turn.ID, "error", err)
			cancel()
		}
	}

	var (
		result   *llm.Result
		callErr  error
		relayed  strings.Builder
		finished bool
	)

	_, _ = s.deps.Completer.Call(ctx, turn.Request, &completion.Options{Callbacks: &completion.Callbacks{
		OnChunk: func(chunk llm.Chunk) {
			relayed.WriteString(chunk.Content)
			finished = finished || chunk.FinishReason != nil
			write(w.WriteJSON("", openai.NewChunk(id, model, turn.StartedAt, chunk)))
		},
		OnDone: func(r llm.Result) {
			result = &r
			if last, ok := closingChunk(relayed.String(), finished, &r); ok {
				write(w.WriteJSON("", openai.NewChunk(id, model, turn.StartedAt, last)))
			}
		},
		OnError: func(err error) {
			callErr = err
			s.logger.Warn("streamed completion failed", "turn_id", turn.ID, "error", err)
			write(w.WriteJSON(sse.EventError, StreamError{Type: "error", Error: err.Error()}))
		},
	}})

	if result == nil && callErr == nil {
		callErr = context.Canceled
	}
	s.record(turn, result, callErr)

	if ctx.Err() == nil {
		write(w.WriteDone())
	}
}

// closingChunk returns the chunk that brings a relayed stream in line with the
// final result. Full completions and done events finalize a call without a
// delta for the text they carry, so the missing tail, or the whole result
// when it diverges from what was relayed, is sent once with the finish reason.
func closingChunk(relayed string, finished bool, r *llm.Result) (llm.Chunk, bool) {
	rest := r.Result
	if strings.HasPrefix(r.Result, relayed) {
		rest = r.Result[len(relayed):]
	}
	if rest == "" && finished {
		return llm.Chunk{}, false
	}

	reason := r.FinishReason
	chunk := llm.Chunk{Content: rest, FinishReason: &reason}
	if r.ID != "" {
		chunk.ID = &r.ID
	}
	return chunk, true
}

// record stamps the outcome on turn and hands it to the recorder.
func (s *Server) record(turn *llm.Turn, result *llm.Result, err error) {
	turn.CompletedAt = time.Now().UTC()
	turn.Result = result
	if err != nil {
		turn.Error = err.Error()
	}

	if s.deps.Recorder == nil {
		return
	}
	s.deps.Recorder.Enqueue(recorder.Job{Turn: turn})
}

func responseID(turn *llm.Turn) string {
	return "chatcmpl-" + turn.ID
}

// handleListTurns returns recorded turns, newest first.
func (s *Server) handleListTurns(c *fiber.Ctx) error {
	if s.deps.Storage == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(llm.ErrorResponse{Error: "turn storage is disabled"})
	}

	limit := c.QueryInt("limit", storage.DefaultListLimit)
	turns, err := s.deps.Storage.List(c.UserContext(), limit)
	if err != nil {
		s.logger.Error("failed to list turns", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to list turns"})
	}

	if turns == nil {
		turns = []*llm.Turn{}
	}
	return c.JSON(TurnsResponse{Count: len(turns), Turns: turns})
}

// handleGetTurn returns a single turn by its ID.
func (s *Server) handleGetTurn(c *fiber.Ctx) error {
	if s.deps.Storage == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(llm.ErrorResponse{Error: "turn storage is disabled"})
	}

	turn, err := s.deps.Storage.Get(c.UserContext(), c.Params("id"))
	if storage.IsNotFound(err) {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "turn not found"})
	}
	if err != nil {
		s.logger.Error("failed to get turn", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to get turn"})
	}

	return c.JSON(turn)
}

package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/papercomputeco/folio/pkg/llm"
)

// Record is the row shape shared by the SQL drivers. Request and Result hold
// JSON documents; Result is nil for failed turns.
type Record struct {
	ID             string
	ConversationID string
	Location       string
	Streaming      bool
	Error          string
	Request        []byte
	Result         []byte
	StartedAt      time.Time
	CompletedAt    time.Time
}

// NewRecord flattens a turn into its row form.
func NewRecord(turn *llm.Turn) (*Record, error) {
	if turn == nil || turn.ID == "" {
		return nil, ErrNilTurn
	}

	rec := &Record{
		ID:             turn.ID,
		ConversationID: turn.ConversationID,
		Location:       turn.Location,
		Streaming:      turn.Streaming,
		Error:          turn.Error,
		StartedAt:      turn.StartedAt.UTC(),
		CompletedAt:    turn.CompletedAt.UTC(),
	}

	var err error
	if rec.Request, err = json.Marshal(turn.Request); err != nil {
		return nil, fmt.Errorf("encoding turn request: %w", err)
	}

	if turn.Result != nil {
		if rec.Result, err = json.Marshal(turn.Result); err != nil {
			return nil, fmt.Errorf("encoding turn result: %w", err)
		}
	}

	return rec, nil
}

// Turn rebuilds the turn a Record was created from.
func (r *Record) Turn() (*llm.Turn, error) {
	turn := &llm.Turn{
		ID:             r.ID,
		ConversationID: r.ConversationID,
		Location:       r.Location,
		Streaming:      r.Streaming,
		Error:          r.Error,
		StartedAt:      r.StartedAt.UTC(),
		CompletedAt:    r.CompletedAt.UTC(),
	}

	if len(r.Request) > 0 && string(r.Request) != "null" {
		turn.Request = &llm.CompletionRequest{}
		if err := json.Unmarshal(r.Request, turn.Request); err != nil {
			return nil, fmt.Errorf("decoding turn %s request: %w", r.ID, err)
		}
	}

	if len(r.Result) > 0 && string(r.Result) != "null" {
		turn.Result = &llm.Result{}
		if err := json.Unmarshal(r.Result, turn.Result); err != nil {
			return nil, fmt.Errorf("decoding turn %s result: %w", r.ID, err)
		}
	}

	return turn, nil
}

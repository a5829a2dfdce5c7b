package eventstream

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/papercomputeco/folio/pkg/llm"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTurnRecorded is emitted after a chat turn is stored.
	EventTypeTurnRecorded = "folio.turn.recorded"
)

// TurnRecordedEvent is a transport-neutral event payload for a recorded turn.
type TurnRecordedEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	Meta          TurnMeta  `json:"meta"`
	Turn          *llm.Turn `json:"turn"`
}

// TurnMeta summarizes the turn so consumers can filter without decoding it.
type TurnMeta struct {
	Model        string           `json:"model,omitempty"`
	Streaming    bool             `json:"streaming"`
	DurationMs   int64            `json:"duration_ms"`
	FinishReason llm.FinishReason `json:"finish_reason,omitempty"`
	Failed       bool             `json:"failed"`
}

// NewTurnRecordedEvent wraps turn in a v1 event with a fresh ULID.
func NewTurnRecordedEvent(turn *llm.Turn) (*TurnRecordedEvent, error) {
	if turn == nil {
		return nil, ErrNilTurnEvent
	}

	now := time.Now().UTC()
	id, err := ulid.New(ulid.Timestamp(now), ulid.Monotonic(rand.Reader, 0))
	if err != nil {
		return nil, err
	}

	meta := TurnMeta{
		Streaming:  turn.Streaming,
		DurationMs: turn.Duration().Milliseconds(),
		Failed:     turn.Error != "",
	}
	if turn.Request != nil {
		meta.Model = turn.Request.Model
	}
	if turn.Result != nil {
		meta.FinishReason = turn.Result.FinishReason
	}

	return &TurnRecordedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeTurnRecorded,
		EventID:       id.String(),
		EmittedAt:     now,
		Meta:          meta,
		Turn:          turn,
	}, nil
}

// Key returns the partition key for the event: the conversation when known,
// otherwise the turn ID.
func (e *TurnRecordedEvent) Key() string {
	if e.Turn == nil {
		return e.EventID
	}
	if e.Turn.ConversationID != "" {
		return e.Turn.ConversationID
	}
	return e.Turn.ID
}

// Package nop provides the Publisher used when eventstream.provider is "none".
package nop

import (
	"context"
	"sync/atomic"

	"github.com/papercomputeco/folio/pkg/eventstream"
)

// Publisher validates and discards events, counting how many it accepted.
type Publisher struct {
	published atomic.Int64
}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishTurn rejects nil events and otherwise drops the event.
func (p *Publisher) PublishTurn(_ context.Context, event *eventstream.TurnRecordedEvent) error {
	if event == nil {
		return eventstream.ErrNilTurnEvent
	}

	p.published.Add(1)
	return nil
}

// Published returns the number of accepted events.
func (p *Publisher) Published() int64 {
	return p.published.Load()
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}

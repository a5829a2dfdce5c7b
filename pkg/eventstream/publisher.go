// Package eventstream publishes recorded chat turns to an event backend.
package eventstream

import "context"

// Publisher publishes turn events to an event stream backend.
type Publisher interface {
	PublishTurn(ctx context.Context, event *TurnRecordedEvent) error
	Close() error
}

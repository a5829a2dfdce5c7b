// Package storage defines the Driver interface used to persist recorded chat
// turns, with inmemory, sqlite and postgres implementations in subpackages.
package storage

import (
	"context"

	"github.com/papercomputeco/folio/pkg/llm"
)

// DefaultListLimit bounds List when the caller passes a non-positive limit.
const DefaultListLimit = 50

// Driver defines the interface for persisting and retrieving turns in a
// storage backend.
type Driver interface {
	// Put stores a turn. Storing a turn whose ID already exists replaces it.
	Put(ctx context.Context, turn *llm.Turn) error

	// Get retrieves a turn by its ID. Returns NotFoundError when missing.
	Get(ctx context.Context, id string) (*llm.Turn, error)

	// List returns up to limit turns, most recently started first.
	List(ctx context.Context, limit int) ([]*llm.Turn, error)

	// Close closes the store and releases any resources.
	Close() error
}

// Limit normalizes a caller supplied list limit.
func Limit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

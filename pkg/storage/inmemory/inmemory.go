// Package inmemory provides a map-backed storage.Driver for tests and
// ephemeral servers.
package inmemory

import (
	"context"
	"slices"
	"sync"

	"github.com/papercomputeco/folio/pkg/llm"
	"github.com/papercomputeco/folio/pkg/storage"
)

// Driver implements storage.Driver using an in-memory map.
type Driver struct {
	// mu is a read write sync mutex for locking the mapping of turns
	mu sync.RWMutex

	// turns is keyed by turn ID
	turns map[string]*llm.Turn

	// order holds IDs in insertion order
	order []string
}

// NewDriver creates a new in-memory storer.
func NewDriver() *Driver {
	return &Driver{
		turns: make(map[string]*llm.Turn),
	}
}

// Put stores a copy of turn, replacing any turn with the same ID.
func (s *Driver) Put(_ context.Context, turn *llm.Turn) error {
	if turn == nil || turn.ID == "" {
		return storage.ErrNilTurn
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.turns[turn.ID]; !ok {
		s.order = append(s.order, turn.ID)
	}

	stored := *turn
	s.turns[turn.ID] = &stored
	return nil
}

// Get retrieves a turn by its ID.
func (s *Driver) Get(_ context.Context, id string) (*llm.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turn, ok := s.turns[id]
	if !ok {
		return nil, storage.NotFoundError{ID: id}
	}

	out := *turn
	return &out, nil
}

// List returns the most recently started turns first. Turns with the same
// start time keep reverse insertion order.
func (s *Driver) List(_ context.Context, limit int) ([]*llm.Turn, error) {
	limit = storage.Limit(limit)

	s.mu.RLock()
	result := make([]*llm.Turn, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		turn := *s.turns[s.order[i]]
		result = append(result, &turn)
	}
	s.mu.RUnlock()

	slices.SortStableFunc(result, func(a, b *llm.Turn) int {
		return b.StartedAt.Compare(a.StartedAt)
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Count returns the number of stored turns.
func (s *Driver) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// Close is a no-op for the in-memory driver.
func (s *Driver) Close() error {
	return nil
}

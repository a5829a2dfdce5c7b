package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/papercomputeco/folio/pkg/llm"
)

const sessionFile = "session.json"

// Session is the chat state kept between `folio chat` runs.
type Session struct {
	ConversationID string `json:"conversation_id"`

	// Messages is the conversation so far, oldest first.
	Messages []llm.Message `json:"messages"`

	UpdatedAt time.Time `json:"updated_at"`
}

// LoadSession reads session.json. It returns nil, nil when there is none.
func (m *Manager) LoadSession(overrideDir string) (*Session, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, sessionFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading chat session: %w", err)
	}

	session := &Session{}
	if err := json.Unmarshal(data, session); err != nil {
		return nil, fmt.Errorf("parsing chat session: %w", err)
	}

	return session, nil
}

// SaveSession writes session.json, stamping UpdatedAt.
func (m *Manager) SaveSession(session *Session, overrideDir string) error {
	if session == nil {
		return errors.New("cannot save nil chat session")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	session.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling chat session: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, sessionFile), data, 0o600); err != nil {
		return fmt.Errorf("writing chat session: %w", err)
	}

	return nil
}

// ClearSession removes session.json so the next chat starts a new
// conversation. A missing file is not an error.
func (m *Manager) ClearSession(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(dir, sessionFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing chat session: %w", err)
	}

	return nil
}

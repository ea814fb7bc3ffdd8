package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const threadFile = "thread.json"

// ThreadState is the conversation the chat command continues with --continue.
type ThreadState struct {
	ThreadID string          `json:"thread_id"`
	Messages []ThreadMessage `json:"messages"`
}

// ThreadMessage is one turn of a saved conversation.
type ThreadMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LoadThread loads .flowstream/thread.json. It returns nil, nil when no
// thread has been saved.
func (m *Manager) LoadThread(overrideDir string) (*ThreadState, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, threadFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading thread state: %w", err)
	}

	state := &ThreadState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parsing thread state: %w", err)
	}

	return state, nil
}

// SaveThread persists state to .flowstream/thread.json.
func (m *Manager) SaveThread(state *ThreadState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil thread state")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling thread state: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, threadFile), data, 0o600); err != nil {
		return fmt.Errorf("writing thread state: %w", err)
	}

	return nil
}

// ClearThread removes the saved thread. A missing file is not an error.
func (m *Manager) ClearThread(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(dir, threadFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing thread state: %w", err)
	}

	return nil
}

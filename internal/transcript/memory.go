// Package transcript holds an in-process conversation transcript used by the
// local server and the CLI.
package transcript

import (
	"context"
	"errors"
	"strings"
	"sync"

	"pubmed-chat/internal/domain"
)

// Memory is an append-only transcript kept in memory. It is safe for
// concurrent use; turns are never reordered or removed.
type Memory struct {
	mu    sync.RWMutex
	turns map[string][]domain.ConversationTurn
}

func NewMemory() *Memory {
	return &Memory{turns: make(map[string][]domain.ConversationTurn)}
}

func (m *Memory) AppendTurn(_ context.Context, conversationID string, turn domain.ConversationTurn) error {
	if strings.TrimSpace(conversationID) == "" {
		return errors.New("transcript: conversation id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns[conversationID] = append(m.turns[conversationID], turn)
	return nil
}

// GetTranscript returns a copy of the last limit turns, oldest first. A
// non-positive limit returns everything.
func (m *Memory) GetTranscript(_ context.Context, conversationID string, limit int) ([]domain.ConversationTurn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	turns := m.turns[conversationID]
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]domain.ConversationTurn, len(turns))
	copy(out, turns)
	return out, nil
}

// Package chat keeps per-session conversation memory and turns a user
// question into the message and context sent to the oracle.
package chat

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/joescharf/crv/internal/models"
)

// History holds the recent turns of many sessions. The least recently used
// session is forgotten once MaxSessions is exceeded.
type History struct {
	mu         sync.Mutex
	sessions   *lru.Cache[string, []models.ChatTurn]
	maxHistory int
	trimTo     int
}

// NewHistory creates a History. A session's turns are cut back to the last
// trimTo once they exceed maxHistory.
func NewHistory(maxSessions, maxHistory, trimTo int) (*History, error) {
	cache, err := lru.New[string, []models.ChatTurn](maxSessions)
	if err != nil {
		return nil, err
	}
	return &History{sessions: cache, maxHistory: maxHistory, trimTo: trimTo}, nil
}

// Turns returns a copy of the session's turns, oldest first.
func (h *History) Turns(sessionID string) []models.ChatTurn {
	h.mu.Lock()
	defer h.mu.Unlock()
	turns, _ := h.sessions.Get(sessionID)
	out := make([]models.ChatTurn, len(turns))
	copy(out, turns)
	return out
}

// Append records a turn for the session.
func (h *History) Append(sessionID string, turn models.ChatTurn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	turns, _ := h.sessions.Get(sessionID)
	turns = append(turns, turn)
	if len(turns) > h.maxHistory {
		turns = append([]models.ChatTurn(nil), turns[len(turns)-h.trimTo:]...)
	}
	h.sessions.Add(sessionID, turns)
}

// Len reports how many sessions are remembered.
func (h *History) Len() int {
	return h.sessions.Len()
}

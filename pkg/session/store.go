// Package session implements the rolling chat-history window kept per
// conversation.
package session

import (
	"context"
	"sync"

	"github.com/andrew/llm-rag-poc/pkg/models"
)

// Store is the session context skill's storage interface.
type Store interface {
	// Append adds a message to the session's history, trimming to the
	// configured window once it grows past it.
	Append(ctx context.Context, sessionID string, msg models.SessionMessage) error
	// Recent returns up to n of the most recent messages for the session,
	// oldest first.
	Recent(ctx context.Context, sessionID string, n int) ([]models.SessionMessage, error)
}

// IsAnonymous reports whether a session id should never be persisted.
func IsAnonymous(sessionID string) bool {
	return sessionID == "" || sessionID == "anonymous"
}

// MemoryStore keeps each session's rolling window in memory behind a
// per-session mutex, so concurrent requests against different sessions
// never contend on a single lock.
type MemoryStore struct {
	window int

	mu       sync.Mutex
	sessions map[string]*sessionState
}

type sessionState struct {
	mu       sync.Mutex
	messages []models.SessionMessage
}

// NewMemoryStore returns a MemoryStore that keeps the last `window`
// messages per session (defaulting to models.HistoryWindow).
func NewMemoryStore(window int) *MemoryStore {
	if window <= 0 {
		window = models.HistoryWindow
	}
	return &MemoryStore{window: window, sessions: make(map[string]*sessionState)}
}

func (s *MemoryStore) stateFor(sessionID string) *sessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[sessionID]
	if !ok {
		st = &sessionState{}
		s.sessions[sessionID] = st
	}
	return st
}

func (s *MemoryStore) Append(ctx context.Context, sessionID string, msg models.SessionMessage) error {
	// A caller that still has no session id at this point (the pipeline
	// normally allocates one per request before ever reaching here) gets
	// no persistence at all, rather than collapsing onto a single shared
	// "anonymous" bucket that would leak one caller's history into
	// another's.
	if IsAnonymous(sessionID) {
		return nil
	}

	st := s.stateFor(sessionID)
	st.mu.Lock()
	defer st.mu.Unlock()

	st.messages = append(st.messages, msg)
	if len(st.messages) > s.window {
		st.messages = st.messages[len(st.messages)-s.window:]
	}
	return nil
}

func (s *MemoryStore) Recent(ctx context.Context, sessionID string, n int) ([]models.SessionMessage, error) {
	if IsAnonymous(sessionID) {
		return nil, nil
	}

	st := s.stateFor(sessionID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if n <= 0 || n > len(st.messages) {
		n = len(st.messages)
	}
	out := make([]models.SessionMessage, n)
	copy(out, st.messages[len(st.messages)-n:])
	return out, nil
}

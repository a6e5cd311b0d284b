// ABOUTME: Per-identity protocol sessions and the durable store for the delegated lane
// ABOUTME: Key-lane sessions live in the LRU identity cache; delegated sessions persist for the process

package mcp

import (
	"context"
	"sync"
	"time"
)

// Session is a live protocol-server instance scoped to one identity. It is
// created on first successful authentication and reused until evicted (key
// lane) or process teardown (delegated lane).
type Session struct {
	dispatcher *Dispatcher
	createdAt  time.Time
}

// newSession binds a dispatcher into a session.
func newSession(d *Dispatcher) *Session {
	return &Session{
		dispatcher: d,
		createdAt:  time.Now(),
	}
}

// Handle dispatches one JSON-RPC message for this session's identity.
func (s *Session) Handle(ctx context.Context, body []byte) *JSONRPCResponse {
	return s.dispatcher.Handle(ctx, body)
}

// durableStore holds delegated-lane sessions. Unlike the identity cache it
// never evicts; the authorization flow owns the lifecycle of these identities.
type durableStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func newDurableStore() *durableStore {
	return &durableStore{sessions: make(map[string]*Session)}
}

// getOrCreate returns the session for an identity, building one with the
// factory on first use.
func (s *durableStore) getOrCreate(identity string, build func() *Session) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[identity]; ok {
		return sess
	}
	sess := build()
	s.sessions[identity] = sess
	return sess
}

// size returns the number of durable sessions (for the stats resource).
func (s *durableStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

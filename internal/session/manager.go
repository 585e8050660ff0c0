package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager tracks the live sessions of this process, one per attached client.
// A session stays registered for the lifetime of its transport connection and
// is torn down when the client exits or the connection drops.
type Manager struct {
	directory Directory
	responder Responder
	tick      time.Duration

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

func NewManager(directory Directory, responder Responder, tick time.Duration) *Manager {
	if tick <= 0 {
		tick = time.Second
	}
	return &Manager{
		directory: directory,
		responder: responder,
		tick:      tick,
		sessions:  make(map[uuid.UUID]*Session),
	}
}

// Open fetches the interview, seeds a tracker from its persisted responses
// and starts the session event loop.
func (m *Manager) Open(ctx context.Context, interviewID uuid.UUID, source SourceFactory, sink Sink) (*Session, error) {
	iv, err := m.directory.Get(ctx, interviewID)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	id := uuid.New()
	tracker := NewTracker(m.directory, m.responder, iv)
	s := New(context.WithoutCancel(ctx), id, tracker, source(), sink, NewTicker(m.tick))

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	return s, nil
}

// Get returns a live session by ID.
func (m *Manager) Get(id uuid.UUID) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Close tears one session down and unregisters it. Safe to call twice.
func (m *Manager) Close(id uuid.UUID) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
}

// Shutdown closes every live session; used on process exit.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	live := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.sessions = make(map[uuid.UUID]*Session)
	m.mu.Unlock()

	for _, s := range live {
		s.Close()
	}
}

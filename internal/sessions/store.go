// Package sessions keeps per-conversation memory for the canvas agent.
// Memory is bounded to a window of recent turns and evicted after idle
// expiry. All map access goes through one mutex; the lock is never held
// across an LLM call.
package sessions

import (
	"sync"
	"time"
)

const (
	// DefaultWindowSize is the number of retained (command, response) turns.
	DefaultWindowSize = 6

	// DefaultIdleTimeout evicts sessions untouched for this long.
	DefaultIdleTimeout = 30 * time.Minute
)

// Turn is one completed exchange: the user's command and the agent's reply.
type Turn struct {
	Command  string
	Response string
}

// Memory holds the bounded conversation window for one session.
type Memory struct {
	mu     sync.Mutex
	window int
	turns  []Turn
}

// History returns a copy of the retained turns, oldest first.
func (m *Memory) History() []Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Turn, len(m.turns))
	copy(out, m.turns)
	return out
}

// AddTurn appends a completed exchange, discarding the oldest turn once the
// window is full.
func (m *Memory) AddTurn(command, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, Turn{Command: command, Response: response})
	if len(m.turns) > m.window {
		m.turns = m.turns[len(m.turns)-m.window:]
	}
}

// Len returns the number of retained turns.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.turns)
}

type entry struct {
	memory     *Memory
	lastAccess time.Time
}

// Store owns all session memories.
type Store struct {
	mu          sync.Mutex
	sessions    map[string]*entry
	window      int
	idleTimeout time.Duration

	// nowFunc allows tests to control time.
	nowFunc func() time.Time

	// onCountChange, when set, observes the live session count after every
	// mutation. Used to keep the active-sessions gauge current.
	onCountChange func(count int)
}

// Option configures a Store.
type Option func(*Store)

// WithWindowSize overrides the retained turn window.
func WithWindowSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.window = n
		}
	}
}

// WithIdleTimeout overrides the idle expiry duration.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.idleTimeout = d
		}
	}
}

// WithNowFunc overrides the time source. Tests only.
func WithNowFunc(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.nowFunc = now
		}
	}
}

// WithCountObserver registers a callback invoked with the live session count
// after every mutation.
func WithCountObserver(fn func(count int)) Option {
	return func(s *Store) { s.onCountChange = fn }
}

// NewStore creates a session store with the given options.
func NewStore(opts ...Option) *Store {
	s := &Store{
		sessions:    map[string]*entry{},
		window:      DefaultWindowSize,
		idleTimeout: DefaultIdleTimeout,
		nowFunc:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrCreate returns the memory for sessionID, creating it if absent and
// refreshing its last-access time. Every call first sweeps all expired
// sessions, so expiry needs no background goroutine.
func (s *Store) GetOrCreate(sessionID string) *Memory {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	s.sweepLocked(now)

	e, ok := s.sessions[sessionID]
	if !ok {
		e = &entry{memory: &Memory{window: s.window}}
		s.sessions[sessionID] = e
	}
	e.lastAccess = now
	s.notifyLocked()
	return e.memory
}

// Clear removes a session's memory and reports whether it existed.
func (s *Store) Clear(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
		s.notifyLocked()
	}
	return ok
}

// CountActive returns the number of live sessions after sweeping expired ones.
func (s *Store) CountActive() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(s.nowFunc())
	s.notifyLocked()
	return len(s.sessions)
}

func (s *Store) sweepLocked(now time.Time) {
	for id, e := range s.sessions {
		if now.Sub(e.lastAccess) > s.idleTimeout {
			delete(s.sessions, id)
		}
	}
}

func (s *Store) notifyLocked() {
	if s.onCountChange != nil {
		s.onCountChange(len(s.sessions))
	}
}

package calculator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"vector-core/internal/visual"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("too many sessions")
)

// Session is one calculator instance. Events on a session are serialised:
// each update runs to completion before the next one starts.
type Session struct {
	ID string

	mu        sync.Mutex
	state     State
	dimension visual.Dimension
	lastSeen  time.Time
}

// SessionView is a read-only copy of a session's state.
type SessionView struct {
	ID         string           `json:"id"`
	Display    string           `json:"display"`
	Expression string           `json:"expression"`
	NewInput   bool             `json:"new_input"`
	LastResult float64          `json:"last_result"`
	History    []HistoryEntry   `json:"history"`
	Dimension  visual.Dimension `json:"dimension"`
}

// Update runs fn on a copy of the session state and commits the result only
// when fn returns no error.
func (s *Session) Update(fn func(State) (State, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.state)
	if err != nil {
		return err
	}

	s.state = next
	return nil
}

// SetDimension changes the visualization dimension shown with this session.
func (s *Session) SetDimension(d visual.Dimension) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dimension = d
}

// Snapshot returns the current state of the session.
func (s *Session) Snapshot() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := make([]HistoryEntry, len(s.state.History))
	copy(history, s.state.History)

	return SessionView{
		ID:         s.ID,
		Display:    s.state.Operand,
		Expression: s.state.Expression,
		NewInput:   s.state.NewInput,
		LastResult: s.state.LastResult,
		History:    history,
		Dimension:  s.dimension,
	}
}

// Visual returns the snapshot the visualization panel draws from.
func (s *Session) Visual() visual.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return visual.NewSnapshot(s.state.Operand, s.dimension)
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	return now.Sub(s.lastSeen)
}

// StoreConfig bounds the session store.
type StoreConfig struct {
	// IdleTTL evicts sessions not used for this long. Zero disables eviction.
	IdleTTL time.Duration
	// MaxSessions caps the number of live sessions. Zero means no cap.
	MaxSessions int
}

// Store keeps calculator sessions in memory, keyed by UUID.
type Store struct {
	cfg StoreConfig
	now func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore(cfg StoreConfig) *Store {
	return &Store{
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new cleared session.
func (st *Store) Create() (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.cfg.MaxSessions > 0 && len(st.sessions) >= st.cfg.MaxSessions {
		return nil, ErrTooManySessions
	}

	s := &Session{
		ID:        uuid.New().String(),
		state:     NewState(),
		dimension: visual.DefaultDimension,
		lastSeen:  st.now(),
	}
	st.sessions[s.ID] = s

	return s, nil
}

// Get returns the session with the given id and marks it as used.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}

	s.touch(st.now())
	return s, nil
}

// Delete removes a session. It reports whether the session existed.
func (st *Store) Delete(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.sessions[id]; !ok {
		return false
	}
	delete(st.sessions, id)
	return true
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()

	return len(st.sessions)
}

// Sweep evicts sessions idle for longer than IdleTTL and returns how many
// were removed.
func (st *Store) Sweep(now time.Time) int {
	if st.cfg.IdleTTL <= 0 {
		return 0
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, s := range st.sessions {
		if s.idleSince(now) > st.cfg.IdleTTL {
			delete(st.sessions, id)
			removed++
		}
	}

	return removed
}

// Run sweeps idle sessions every interval until ctx is done. onSweep, when
// non-nil, is called with the number of sessions removed by each sweep.
func (st *Store) Run(ctx context.Context, interval time.Duration, onSweep func(removed int)) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := st.Sweep(st.now())
			if onSweep != nil {
				onSweep(removed)
			}
		}
	}
}

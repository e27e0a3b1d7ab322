package models

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Turn struct {
	UserMessage string          `json:"user_message"`
	BotResponse string          `json:"bot_response"`
	Emotions    *EmotionProfile `json:"emotions,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ConversationSession holds the turns of one conversation. It is owned by the caller
// and passed into the assistant on every turn. Safe for concurrent use.
type ConversationSession struct {
	ID       string
	MaxTurns int

	mu        sync.RWMutex
	turns     []Turn
	createdAt time.Time
	updatedAt time.Time
}

// NewConversationSession creates a session. A maxTurns of 0 keeps every turn.
func NewConversationSession(id string, maxTurns int) *ConversationSession {
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	return &ConversationSession{
		ID:        id,
		MaxTurns:  maxTurns,
		createdAt: now,
		updatedAt: now,
	}
}

// AppendTurn records a turn, dropping the oldest turns beyond MaxTurns.
func (s *ConversationSession) AppendTurn(turn Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	s.turns = append(s.turns, turn)
	if s.MaxTurns > 0 && len(s.turns) > s.MaxTurns {
		s.turns = append([]Turn(nil), s.turns[len(s.turns)-s.MaxTurns:]...)
	}
	s.updatedAt = turn.CreatedAt
}

// Turns returns a copy of the recorded turns, oldest first.
func (s *ConversationSession) Turns() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

func (s *ConversationSession) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

func (s *ConversationSession) Snapshot() SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := make([]Turn, len(s.turns))
	copy(turns, s.turns)
	return SessionSnapshot{
		ID:        s.ID,
		Turns:     turns,
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
	}
}

type SessionSnapshot struct {
	ID        string    `json:"id"`
	Turns     []Turn    `json:"turns"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	DefaultMaxSessions    = 1000
	DefaultSessionIdleTTL = time.Hour
)

type registryEntry struct {
	session  *ConversationSession
	lastUsed time.Time
}

// SessionRegistry keeps server-side sessions keyed by id. It holds at most maxSessions
// sessions: idle sessions expire after idleTTL, and when the registry is full the least
// recently used session is evicted to make room.
type SessionRegistry struct {
	mu          sync.Mutex
	sessions    map[string]*registryEntry
	maxTurns    int
	maxSessions int
	idleTTL     time.Duration
	now         func() time.Time
}

type RegistryOption func(*SessionRegistry)

// WithMaxSessions caps the number of live sessions. Zero or less keeps the default.
func WithMaxSessions(n int) RegistryOption {
	return func(r *SessionRegistry) {
		if n > 0 {
			r.maxSessions = n
		}
	}
}

// WithIdleTTL sets how long an unused session is kept. Zero disables expiry.
func WithIdleTTL(d time.Duration) RegistryOption {
	return func(r *SessionRegistry) {
		if d >= 0 {
			r.idleTTL = d
		}
	}
}

func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *SessionRegistry) {
		if now != nil {
			r.now = now
		}
	}
}

func NewSessionRegistry(maxTurns int, opts ...RegistryOption) *SessionRegistry {
	r := &SessionRegistry{
		sessions:    make(map[string]*registryEntry),
		maxTurns:    maxTurns,
		maxSessions: DefaultMaxSessions,
		idleTTL:     DefaultSessionIdleTTL,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetOrCreate returns the session with the given id, creating it if needed.
// An empty id always creates a new session.
func (r *SessionRegistry) GetOrCreate(id string) *ConversationSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if id != "" {
		if e, ok := r.sessions[id]; ok && !r.expired(e, now) {
			e.lastUsed = now
			return e.session
		}
	}

	r.sweep(now)
	for len(r.sessions) >= r.maxSessions {
		r.evictOldest()
	}

	s := NewConversationSession(id, r.maxTurns)
	r.sessions[s.ID] = &registryEntry{session: s, lastUsed: now}
	return s
}

func (r *SessionRegistry) Get(id string) (*ConversationSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok || r.expired(e, r.now()) {
		return nil, NewNotFoundError("session " + id)
	}
	return e.session, nil
}

func (r *SessionRegistry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return NewNotFoundError("session " + id)
	}
	delete(r.sessions, id)
	return nil
}

func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops expired sessions and returns how many were dropped.
func (r *SessionRegistry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweep(r.now())
}

// RunSweeper calls Sweep every interval until ctx is done.
func (r *SessionRegistry) RunSweeper(ctx context.Context, interval time.Duration) {
	if r.idleTTL == 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *SessionRegistry) expired(e *registryEntry, now time.Time) bool {
	return r.idleTTL > 0 && now.Sub(e.lastUsed) > r.idleTTL
}

func (r *SessionRegistry) sweep(now time.Time) int {
	var dropped int
	for id, e := range r.sessions {
		if r.expired(e, now) {
			delete(r.sessions, id)
			dropped++
		}
	}
	return dropped
}

func (r *SessionRegistry) evictOldest() {
	var oldestID string
	var oldest time.Time
	for id, e := range r.sessions {
		if oldestID == "" || e.lastUsed.Before(oldest) {
			oldestID, oldest = id, e.lastUsed
		}
	}
	delete(r.sessions, oldestID)
}

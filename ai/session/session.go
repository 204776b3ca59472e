// Package session tracks conversation sessions and their turn history.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"
)

// Turn is one completed exchange in a session.
type Turn struct {
	Prompt     string    `json:"prompt"`
	AgentIDs   []string  `json:"agent_ids"`
	Response   string    `json:"response"`
	TokensUsed int       `json:"tokens_used"`
	CreatedAt  time.Time `json:"created_at"`
}

// Session is an append-only conversation log. Sessions are partitioned by
// UID; concurrent requests for the same session are the caller's
// responsibility to serialize.
type Session struct {
	UID       string    `json:"uid"`
	UserID    string    `json:"user_id"`
	Turns     []Turn    `json:"turns"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists sessions. Implementations live in the store package.
type Store interface {
	SaveSession(ctx context.Context, s *Session) error
	LoadSession(ctx context.Context, uid string) (*Session, error)
}

// ErrSessionNotFound is returned by Store implementations for unknown UIDs.
var ErrSessionNotFound = errors.New("session: not found")

// Manager keeps active sessions in memory and writes through to the store.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	store    Store // nil keeps sessions memory-only
}

// NewManager creates a session manager. store may be nil.
func NewManager(store Store) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		store:    store,
	}
}

// GetOrCreate returns the session with the given UID, loading it from the
// store if needed. An empty UID creates a fresh session.
func (m *Manager) GetOrCreate(ctx context.Context, uid, userID string) *Session {
	if uid == "" {
		uid = shortuuid.New()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[uid]; ok {
		return s
	}

	if m.store != nil {
		s, err := m.store.LoadSession(ctx, uid)
		if err == nil {
			m.sessions[uid] = s
			return s
		}
		if !errors.Is(err, ErrSessionNotFound) {
			slog.Warn("session: load failed, starting fresh", "session", uid, "error", err)
		}
	}

	now := time.Now()
	s := &Session{UID: uid, UserID: userID, CreatedAt: now, UpdatedAt: now}
	m.sessions[uid] = s
	return s
}

// AppendTurn records a completed turn. Persistence is best-effort; a store
// failure keeps the in-memory session intact.
func (m *Manager) AppendTurn(ctx context.Context, uid string, turn Turn) error {
	m.mu.Lock()
	s, ok := m.sessions[uid]
	if !ok {
		m.mu.Unlock()
		return errors.Wrap(ErrSessionNotFound, uid)
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}
	s.Turns = append(s.Turns, turn)
	s.UpdatedAt = turn.CreatedAt
	snapshot := *s
	snapshot.Turns = append([]Turn(nil), s.Turns...)
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.SaveSession(ctx, &snapshot); err != nil {
			slog.Error("session: persist failed", "session", uid, "error", err)
		}
	}
	return nil
}

// History returns the last n turns of a session, oldest first. n <= 0 means
// all turns.
func (m *Manager) History(uid string, n int) []Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[uid]
	if !ok {
		return nil
	}
	turns := s.Turns
	if n > 0 && len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// Active returns the number of sessions currently held in memory.
func (m *Manager) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Evict drops a session from memory. The persisted copy is untouched.
func (m *Manager) Evict(uid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, uid)
}

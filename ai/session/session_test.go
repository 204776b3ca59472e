package session

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu       sync.Mutex
	saved    map[string]*Session
	saveErr  error
	loadMiss bool
}

func newMemStore() *memStore {
	return &memStore{saved: make(map[string]*Session)}
}

func (s *memStore) SaveSession(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved[sess.UID] = sess
	return nil
}

func (s *memStore) LoadSession(ctx context.Context, uid string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadMiss {
		return nil, ErrSessionNotFound
	}
	sess, ok := s.saved[uid]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func TestGetOrCreateGeneratesUID(t *testing.T) {
	m := NewManager(nil)
	s := m.GetOrCreate(context.Background(), "", "user-1")

	assert.NotEmpty(t, s.UID)
	assert.Equal(t, "user-1", s.UserID)
	assert.Empty(t, s.Turns)
}

func TestGetOrCreateReturnsSameSession(t *testing.T) {
	m := NewManager(nil)
	first := m.GetOrCreate(context.Background(), "s1", "user-1")
	second := m.GetOrCreate(context.Background(), "s1", "user-1")
	assert.Same(t, first, second)
}

func TestAppendTurnIsAppendOnly(t *testing.T) {
	m := NewManager(nil)
	s := m.GetOrCreate(context.Background(), "s1", "user-1")

	require.NoError(t, m.AppendTurn(context.Background(), "s1", Turn{Prompt: "hola", Response: "buenas"}))
	require.NoError(t, m.AppendTurn(context.Background(), "s1", Turn{Prompt: "adiós", Response: "hasta luego"}))

	require.Len(t, s.Turns, 2)
	assert.Equal(t, "hola", s.Turns[0].Prompt)
	assert.Equal(t, "adiós", s.Turns[1].Prompt)
	assert.False(t, s.Turns[0].CreatedAt.IsZero())
}

func TestAppendTurnUnknownSession(t *testing.T) {
	m := NewManager(nil)
	err := m.AppendTurn(context.Background(), "missing", Turn{})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestAppendTurnPersistsToStore(t *testing.T) {
	store := newMemStore()
	m := NewManager(store)
	m.GetOrCreate(context.Background(), "s1", "user-1")

	require.NoError(t, m.AppendTurn(context.Background(), "s1", Turn{Prompt: "hola", Response: "buenas"}))

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Contains(t, store.saved, "s1")
	assert.Len(t, store.saved["s1"].Turns, 1)
}

func TestAppendTurnStoreFailureKeepsMemory(t *testing.T) {
	store := newMemStore()
	store.saveErr = assert.AnError
	m := NewManager(store)
	m.GetOrCreate(context.Background(), "s1", "user-1")

	require.NoError(t, m.AppendTurn(context.Background(), "s1", Turn{Prompt: "hola"}))
	assert.Len(t, m.History("s1", 0), 1)
}

func TestGetOrCreateLoadsFromStore(t *testing.T) {
	store := newMemStore()
	store.saved["s9"] = &Session{UID: "s9", UserID: "user-9", Turns: []Turn{{Prompt: "antes"}}}

	m := NewManager(store)
	s := m.GetOrCreate(context.Background(), "s9", "user-9")
	require.Len(t, s.Turns, 1)
	assert.Equal(t, "antes", s.Turns[0].Prompt)
}

func TestHistoryLimitsTurns(t *testing.T) {
	m := NewManager(nil)
	m.GetOrCreate(context.Background(), "s1", "user-1")
	for _, p := range []string{"a", "b", "c", "d"} {
		require.NoError(t, m.AppendTurn(context.Background(), "s1", Turn{Prompt: p}))
	}

	last2 := m.History("s1", 2)
	require.Len(t, last2, 2)
	assert.Equal(t, "c", last2[0].Prompt)
	assert.Equal(t, "d", last2[1].Prompt)
	assert.Len(t, m.History("s1", 0), 4)
}

func TestDifferentSessionsDoNotContend(t *testing.T) {
	m := NewManager(nil)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			uid := string(rune('a' + i))
			m.GetOrCreate(context.Background(), uid, "user")
			for j := 0; j < 20; j++ {
				_ = m.AppendTurn(context.Background(), uid, Turn{Prompt: "p"})
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 10, m.Active())
	for i := 0; i < 10; i++ {
		assert.Len(t, m.History(string(rune('a'+i)), 0), 20)
	}
}

func TestEvict(t *testing.T) {
	m := NewManager(nil)
	m.GetOrCreate(context.Background(), "s1", "user-1")
	m.Evict("s1")
	assert.Equal(t, 0, m.Active())
}

package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngxlabs/ngx-agents/ai/session"
	"github.com/ngxlabs/ngx-agents/internal/profile"
	"github.com/ngxlabs/ngx-agents/store"
	"github.com/ngxlabs/ngx-agents/store/db/sqlite"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	p := &profile.Profile{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "test.db")}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })
	require.NoError(t, driver.Migrate(context.Background()))
	return store.New(driver, p)
}

func TestSessionAdapterRoundTrip(t *testing.T) {
	adapter := store.NewSessionAdapter(newTestStore(t))
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	s := &session.Session{
		UID:       "sess-1",
		UserID:    "user-1",
		CreatedAt: now,
		UpdatedAt: now,
		Turns: []session.Turn{
			{
				Prompt:     "¿Qué debo comer?",
				AgentIDs:   []string{"sage_nutrition"},
				Response:   "Come avena.",
				TokensUsed: 12,
				CreatedAt:  now,
			},
		},
	}
	require.NoError(t, adapter.SaveSession(ctx, s))

	loaded, err := adapter.LoadSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", loaded.UserID)
	require.Len(t, loaded.Turns, 1)
	assert.Equal(t, "¿Qué debo comer?", loaded.Turns[0].Prompt)
	assert.Equal(t, []string{"sage_nutrition"}, loaded.Turns[0].AgentIDs)
	assert.Equal(t, 12, loaded.Turns[0].TokensUsed)
}

func TestSessionAdapterIncrementalSave(t *testing.T) {
	adapter := store.NewSessionAdapter(newTestStore(t))
	ctx := context.Background()
	now := time.Now()

	s := &session.Session{UID: "sess-1", UserID: "user-1", CreatedAt: now, UpdatedAt: now}
	s.Turns = append(s.Turns, session.Turn{Prompt: "uno", Response: "r1", CreatedAt: now})
	require.NoError(t, adapter.SaveSession(ctx, s))

	// Saving again with one more turn persists only the new one.
	s.Turns = append(s.Turns, session.Turn{Prompt: "dos", Response: "r2", CreatedAt: now})
	require.NoError(t, adapter.SaveSession(ctx, s))
	require.NoError(t, adapter.SaveSession(ctx, s))

	loaded, err := adapter.LoadSession(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, loaded.Turns, 2)
	assert.Equal(t, "uno", loaded.Turns[0].Prompt)
	assert.Equal(t, "dos", loaded.Turns[1].Prompt)
}

func TestSessionAdapterSaveBehindDatabase(t *testing.T) {
	adapter := store.NewSessionAdapter(newTestStore(t))
	ctx := context.Background()
	now := time.Now()

	full := &session.Session{UID: "sess-1", UserID: "user-1", CreatedAt: now, UpdatedAt: now}
	full.Turns = append(full.Turns,
		session.Turn{Prompt: "uno", Response: "r1", CreatedAt: now},
		session.Turn{Prompt: "dos", Response: "r2", CreatedAt: now},
	)
	require.NoError(t, adapter.SaveSession(ctx, full))

	// A session that knows fewer turns than the database holds (another
	// process wrote them, or this one started fresh after a read failure)
	// must not panic or duplicate anything.
	stale := &session.Session{UID: "sess-1", UserID: "user-1", CreatedAt: now, UpdatedAt: now}
	stale.Turns = append(stale.Turns, session.Turn{Prompt: "uno", Response: "r1", CreatedAt: now})
	require.NoError(t, adapter.SaveSession(ctx, stale))

	loaded, err := adapter.LoadSession(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, loaded.Turns, 2)
	assert.Equal(t, "uno", loaded.Turns[0].Prompt)
	assert.Equal(t, "dos", loaded.Turns[1].Prompt)
}

func TestSessionAdapterLoadMissing(t *testing.T) {
	adapter := store.NewSessionAdapter(newTestStore(t))

	_, err := adapter.LoadSession(context.Background(), "missing")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

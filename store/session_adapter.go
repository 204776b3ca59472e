package store

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/ngxlabs/ngx-agents/ai/session"
)

// SessionAdapter exposes the store as a session.Store so the in-memory
// session manager can write through to the database.
type SessionAdapter struct {
	store *Store
}

// NewSessionAdapter creates a session.Store backed by the given store.
func NewSessionAdapter(s *Store) *SessionAdapter {
	return &SessionAdapter{store: s}
}

// SaveSession upserts the session row and appends any turns not yet
// persisted. Sessions are append-only, so persisted turn count is a valid
// high-water mark.
func (a *SessionAdapter) SaveSession(ctx context.Context, s *session.Session) error {
	_, err := a.store.UpsertConversationSession(ctx, &ConversationSession{
		UID:       s.UID,
		UserID:    s.UserID,
		CreatedTs: s.CreatedAt.Unix(),
		UpdatedTs: s.UpdatedAt.Unix(),
	})
	if err != nil {
		return errors.Wrap(err, "upsert conversation session")
	}

	existing, err := a.store.ListSessionTurns(ctx, &FindSessionTurn{SessionUID: s.UID})
	if err != nil {
		return errors.Wrap(err, "list session turns")
	}
	if len(existing) >= len(s.Turns) {
		// The database is ahead of this process (fresh in-memory session
		// against an already-persisted conversation). Nothing to append.
		return nil
	}
	for _, turn := range s.Turns[len(existing):] {
		_, err := a.store.CreateSessionTurn(ctx, &SessionTurn{
			SessionUID: s.UID,
			Prompt:     turn.Prompt,
			AgentIDs:   turn.AgentIDs,
			Response:   turn.Response,
			TokensUsed: turn.TokensUsed,
			CreatedTs:  turn.CreatedAt.Unix(),
		})
		if err != nil {
			return errors.Wrap(err, "create session turn")
		}
	}
	return nil
}

// LoadSession reconstructs a session and its turns from the database.
func (a *SessionAdapter) LoadSession(ctx context.Context, uid string) (*session.Session, error) {
	row, err := a.store.GetConversationSession(ctx, uid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, session.ErrSessionNotFound
		}
		return nil, errors.Wrap(err, "get conversation session")
	}

	turns, err := a.store.ListSessionTurns(ctx, &FindSessionTurn{SessionUID: uid})
	if err != nil {
		return nil, errors.Wrap(err, "list session turns")
	}

	s := &session.Session{
		UID:       row.UID,
		UserID:    row.UserID,
		CreatedAt: time.Unix(row.CreatedTs, 0),
		UpdatedAt: time.Unix(row.UpdatedTs, 0),
	}
	for _, t := range turns {
		s.Turns = append(s.Turns, session.Turn{
			Prompt:     t.Prompt,
			AgentIDs:   t.AgentIDs,
			Response:   t.Response,
			TokensUsed: t.TokensUsed,
			CreatedAt:  time.Unix(t.CreatedTs, 0),
		})
	}
	return s, nil
}

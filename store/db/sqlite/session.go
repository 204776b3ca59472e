package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/ngxlabs/ngx-agents/store"
)

func (d *DB) UpsertConversationSession(ctx context.Context, upsert *store.ConversationSession) (*store.ConversationSession, error) {
	stmt := `
		INSERT INTO conversation_session (uid, user_id, created_ts, updated_ts)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (uid) DO UPDATE SET updated_ts = EXCLUDED.updated_ts
		RETURNING id
	`
	err := d.db.QueryRowContext(ctx, stmt,
		upsert.UID,
		upsert.UserID,
		upsert.CreatedTs,
		upsert.UpdatedTs,
	).Scan(&upsert.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert conversation session")
	}
	return upsert, nil
}

func (d *DB) GetConversationSession(ctx context.Context, uid string) (*store.ConversationSession, error) {
	query := `
		SELECT id, uid, user_id, created_ts, updated_ts
		FROM conversation_session
		WHERE uid = ?
	`
	var s store.ConversationSession
	err := d.db.QueryRowContext(ctx, query, uid).Scan(
		&s.ID,
		&s.UID,
		&s.UserID,
		&s.CreatedTs,
		&s.UpdatedTs,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get conversation session")
	}
	return &s, nil
}

func (d *DB) CreateSessionTurn(ctx context.Context, create *store.SessionTurn) (*store.SessionTurn, error) {
	agentIDs, err := marshalAgentIDs(create.AgentIDs)
	if err != nil {
		return nil, err
	}
	stmt := `
		INSERT INTO session_turn (session_uid, prompt, agent_ids, response, tokens_used, created_ts)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	err = d.db.QueryRowContext(ctx, stmt,
		create.SessionUID,
		create.Prompt,
		agentIDs,
		create.Response,
		create.TokensUsed,
		create.CreatedTs,
	).Scan(&create.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create session turn")
	}
	return create, nil
}

func (d *DB) ListSessionTurns(ctx context.Context, find *store.FindSessionTurn) ([]*store.SessionTurn, error) {
	query := `
		SELECT id, session_uid, prompt, agent_ids, response, tokens_used, created_ts
		FROM session_turn
		WHERE session_uid = ?
		ORDER BY id
	`
	rows, err := d.db.QueryContext(ctx, query, find.SessionUID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list session turns")
	}
	defer rows.Close()

	list := []*store.SessionTurn{}
	for rows.Next() {
		var turn store.SessionTurn
		var agentIDs string
		err := rows.Scan(
			&turn.ID,
			&turn.SessionUID,
			&turn.Prompt,
			&agentIDs,
			&turn.Response,
			&turn.TokensUsed,
			&turn.CreatedTs,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan session turn")
		}
		if turn.AgentIDs, err = unmarshalAgentIDs(agentIDs); err != nil {
			return nil, err
		}
		list = append(list, &turn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if find.Limit > 0 && len(list) > find.Limit {
		list = list[len(list)-find.Limit:]
	}
	return list, nil
}

func marshalAgentIDs(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal agent_ids")
	}
	return string(raw), nil
}

func unmarshalAgentIDs(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal agent_ids")
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return ids, nil
}

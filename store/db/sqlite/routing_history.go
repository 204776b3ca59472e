package sqlite

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ngxlabs/ngx-agents/store"
)

// CreateRoutingRecord stores the routing decision without its embedding;
// SQLite has no vector type.
func (d *DB) CreateRoutingRecord(ctx context.Context, create *store.RoutingRecord, _ []float32) (*store.RoutingRecord, error) {
	agentIDs, err := marshalAgentIDs(create.AgentIDs)
	if err != nil {
		return nil, err
	}
	stmt := `
		INSERT INTO routing_history (user_id, prompt, intent, method, confidence, agent_ids, mode, created_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	err = d.db.QueryRowContext(ctx, stmt,
		create.UserID,
		create.Prompt,
		create.Intent,
		create.Method,
		create.Confidence,
		agentIDs,
		create.Mode,
		create.CreatedTs,
	).Scan(&create.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create routing record")
	}
	return create, nil
}

func (d *DB) RoutingVectorSearch(ctx context.Context, opts *store.RoutingVectorSearchOptions) ([]*store.RoutingMatch, error) {
	return nil, errors.New("routing vector search not supported in SQLite (use PostgreSQL)")
}

package postgres

import (
	"context"
	"strings"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/ngxlabs/ngx-agents/store"
)

func (d *DB) CreateRoutingRecord(ctx context.Context, create *store.RoutingRecord, embedding []float32) (*store.RoutingRecord, error) {
	stmt := `
		INSERT INTO routing_history (user_id, prompt, intent, method, confidence, agent_ids, mode, embedding, created_ts)
		VALUES (` + placeholders(9) + `)
		RETURNING id
	`
	var vector any
	if len(embedding) > 0 {
		vector = pgvector.NewVector(embedding)
	}
	err := d.db.QueryRowContext(ctx, stmt,
		create.UserID,
		create.Prompt,
		create.Intent,
		create.Method,
		create.Confidence,
		pq.Array(create.AgentIDs),
		create.Mode,
		vector,
		create.CreatedTs,
	).Scan(&create.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create routing record")
	}
	return create, nil
}

// RoutingVectorSearch finds past routing decisions whose prompt embeddings
// are closest to the query vector. The <=> operator computes cosine
// distance, so ascending order yields the most similar first.
func (d *DB) RoutingVectorSearch(ctx context.Context, opts *store.RoutingVectorSearchOptions) ([]*store.RoutingMatch, error) {
	if len(opts.Vector) == 0 {
		return nil, errors.New("routing vector search requires a query vector")
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 5
	}

	where, args := []string{"embedding IS NOT NULL"}, []any{}
	if opts.UserID != "" {
		args = append(args, opts.UserID)
		where = append(where, "user_id = "+placeholder(len(args)))
	}
	argIdx := len(args) + 1

	query := `
		SELECT
			id, user_id, prompt, intent, method, confidence, agent_ids, mode, created_ts,
			1 - (embedding <=> ` + placeholder(argIdx) + `) AS score
		FROM routing_history
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY embedding <=> ` + placeholder(argIdx+1) + `
		LIMIT ` + placeholder(argIdx+2)

	vector := pgvector.NewVector(opts.Vector)
	args = append(args, vector, vector, limit)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to routing vector search")
	}
	defer rows.Close()

	results := []*store.RoutingMatch{}
	for rows.Next() {
		var match store.RoutingMatch
		var record store.RoutingRecord
		err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.Prompt,
			&record.Intent,
			&record.Method,
			&record.Confidence,
			pq.Array(&record.AgentIDs),
			&record.Mode,
			&record.CreatedTs,
			&match.Score,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan routing vector search result")
		}
		match.RoutingRecord = &record
		results = append(results, &match)
	}
	return results, rows.Err()
}

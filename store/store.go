// Package store provides database access to all persisted objects.
package store

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/ngxlabs/ngx-agents/internal/profile"
)

// ErrNotFound is returned when a requested object does not exist.
var ErrNotFound = errors.New("store: not found")

// ConversationSession is one persisted conversation.
type ConversationSession struct {
	ID        int32  `json:"id"`
	UID       string `json:"uid"`
	UserID    string `json:"user_id"`
	CreatedTs int64  `json:"created_ts"`
	UpdatedTs int64  `json:"updated_ts"`
}

// SessionTurn is one completed exchange within a conversation session.
type SessionTurn struct {
	ID         int64    `json:"id"`
	SessionUID string   `json:"session_uid"`
	Prompt     string   `json:"prompt"`
	AgentIDs   []string `json:"agent_ids"`
	Response   string   `json:"response"`
	TokensUsed int      `json:"tokens_used"`
	CreatedTs  int64    `json:"created_ts"`
}

// FindSessionTurn filters session turn listings. Turns come back oldest
// first; Limit keeps the most recent N.
type FindSessionTurn struct {
	SessionUID string
	Limit      int
}

// RoutingRecord is one routing decision kept for analysis and for the
// semantic routing cache.
type RoutingRecord struct {
	ID         int64    `json:"id"`
	UserID     string   `json:"user_id"`
	Prompt     string   `json:"prompt"`
	Intent     string   `json:"intent"`
	Method     string   `json:"method"`
	Confidence float64  `json:"confidence"`
	AgentIDs   []string `json:"agent_ids"`
	Mode       string   `json:"mode"`
	CreatedTs  int64    `json:"created_ts"`
}

// RoutingMatch is a routing record with its similarity score.
type RoutingMatch struct {
	*RoutingRecord
	Score float64 `json:"score"`
}

// RoutingVectorSearchOptions configures semantic routing search.
type RoutingVectorSearchOptions struct {
	UserID string // empty searches across users
	Vector []float32
	Limit  int
}

// Driver is the database abstraction implemented per backend.
type Driver interface {
	GetDB() *sql.DB
	Close() error
	Migrate(ctx context.Context) error
	IsInitialized(ctx context.Context) (bool, error)

	UpsertConversationSession(ctx context.Context, upsert *ConversationSession) (*ConversationSession, error)
	GetConversationSession(ctx context.Context, uid string) (*ConversationSession, error)
	CreateSessionTurn(ctx context.Context, create *SessionTurn) (*SessionTurn, error)
	ListSessionTurns(ctx context.Context, find *FindSessionTurn) ([]*SessionTurn, error)

	CreateRoutingRecord(ctx context.Context, create *RoutingRecord, embedding []float32) (*RoutingRecord, error)
	RoutingVectorSearch(ctx context.Context, opts *RoutingVectorSearchOptions) ([]*RoutingMatch, error)
}

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{driver: driver, profile: profile}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) UpsertConversationSession(ctx context.Context, upsert *ConversationSession) (*ConversationSession, error) {
	return s.driver.UpsertConversationSession(ctx, upsert)
}

func (s *Store) GetConversationSession(ctx context.Context, uid string) (*ConversationSession, error) {
	return s.driver.GetConversationSession(ctx, uid)
}

func (s *Store) CreateSessionTurn(ctx context.Context, create *SessionTurn) (*SessionTurn, error) {
	return s.driver.CreateSessionTurn(ctx, create)
}

func (s *Store) ListSessionTurns(ctx context.Context, find *FindSessionTurn) ([]*SessionTurn, error) {
	return s.driver.ListSessionTurns(ctx, find)
}

func (s *Store) CreateRoutingRecord(ctx context.Context, create *RoutingRecord, embedding []float32) (*RoutingRecord, error) {
	return s.driver.CreateRoutingRecord(ctx, create, embedding)
}

func (s *Store) RoutingVectorSearch(ctx context.Context, opts *RoutingVectorSearchOptions) ([]*RoutingMatch, error) {
	return s.driver.RoutingVectorSearch(ctx, opts)
}

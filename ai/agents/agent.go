// Package agents defines the specialist agent abstraction and its registry.
package agents

import (
	"context"
	"time"
)

// Built-in specialist identifiers.
const (
	AgentBlaze   = "blaze_training"
	AgentSage    = "sage_nutrition"
	AgentWave    = "wave_recovery"
	AgentSpark   = "spark_motivation"
	AgentCode    = "code_genetics"
	AgentLuna    = "luna_wellness"
	AgentStella  = "stella_progress"
	AgentNova    = "nova_biohacking"
	AgentGeneral = "nexus_general"
)

// Request is one unit of work handed to an agent.
type Request struct {
	UserID    string
	SessionID string
	Content   string
	// History carries prior turns as alternating user/assistant content.
	History []HistoryTurn
	// Directives are personalization hints rendered into the system prompt.
	Directives map[string]string
}

// HistoryTurn is one prior exchange in the conversation.
type HistoryTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response is the buffered output of one agent execution.
type Response struct {
	AgentID    string        `json:"agent_id"`
	Content    string        `json:"content"`
	TokensUsed int           `json:"tokens_used"`
	Confidence float32       `json:"confidence"`
	Duration   time.Duration `json:"-"`
}

// ChunkFunc receives incremental content during streaming execution.
// Returning an error aborts the stream.
type ChunkFunc func(chunk string) error

// Agent is a specialist capable of answering requests in its domain.
type Agent interface {
	ID() string
	Card() Card

	// Execute runs the request to completion and returns the full response.
	Execute(ctx context.Context, req Request) (*Response, error)

	// ExecuteStream runs the request delivering content incrementally via
	// emit. The returned Response carries the accumulated content and stats.
	ExecuteStream(ctx context.Context, req Request, emit ChunkFunc) (*Response, error)
}

// Card is the A2A discovery document for one agent.
type Card struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Emoji        string   `json:"emoji,omitempty"`
	Capabilities []string `json:"capabilities"`
	Endpoints    Endpoint `json:"endpoints"`
	Version      string   `json:"version"`
}

// Endpoint lists the invocation URLs for a card.
type Endpoint struct {
	Run    string `json:"run"`
	Status string `json:"status"`
}

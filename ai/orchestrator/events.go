package orchestrator

import (
	"time"

	"github.com/ngxlabs/ngx-agents/ai/intent"
)

// EventType enumerates the closed set of stream event variants.
type EventType string

const (
	EventStart          EventType = "start"
	EventStatus         EventType = "status"
	EventIntentAnalysis EventType = "intent_analysis"
	EventAgentsSelected EventType = "agents_selected"
	EventAgentStart     EventType = "agent_start"
	EventContent        EventType = "content"
	EventArtifacts      EventType = "artifacts"
	EventAgentError     EventType = "agent_error"
	EventComplete       EventType = "complete"
	EventError          EventType = "error"
)

// Terminal reports whether the event ends the stream.
func (t EventType) Terminal() bool {
	return t == EventComplete || t == EventError
}

// Artifact is a structured attachment produced by an agent.
type Artifact struct {
	Type string `json:"type"`
	Name string `json:"name"`
	Data string `json:"data"`
}

// StreamEvent is one unit of the incremental response protocol. Exactly the
// fields of the active variant are set; everything else stays at its zero
// value and is omitted from JSON.
type StreamEvent struct {
	Type      EventType `json:"type"`
	TraceID   string    `json:"trace_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	AgentID   string    `json:"agent_id,omitempty"`

	// status
	Stage string `json:"stage,omitempty"`

	// intent_analysis
	Intent *intent.Analysis `json:"intent,omitempty"`

	// agents_selected
	Agents []string `json:"agents,omitempty"`
	Mode   string   `json:"mode,omitempty"`

	// content
	ChunkIndex int    `json:"chunk_index,omitempty"`
	Text       string `json:"text,omitempty"`
	IsFinal    bool   `json:"is_final,omitempty"`

	// artifacts
	Artifacts []Artifact `json:"artifacts,omitempty"`

	// agent_error / error / complete
	Message string `json:"message,omitempty"`

	// complete
	Content  string         `json:"content,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

func newEvent(t EventType) StreamEvent {
	return StreamEvent{Type: t, Timestamp: time.Now()}
}

// StartEvent opens the stream.
func StartEvent(traceID, sessionID string) StreamEvent {
	e := newEvent(EventStart)
	e.TraceID = traceID
	e.SessionID = sessionID
	return e
}

// StatusEvent reports a stage transition.
func StatusEvent(stage string) StreamEvent {
	e := newEvent(EventStatus)
	e.Stage = stage
	return e
}

// IntentEvent carries the classification result.
func IntentEvent(analysis intent.Analysis) StreamEvent {
	e := newEvent(EventIntentAnalysis)
	e.Intent = &analysis
	return e
}

// AgentsSelectedEvent announces the routing decision.
func AgentsSelectedEvent(agentIDs []string, mode string) StreamEvent {
	e := newEvent(EventAgentsSelected)
	e.Agents = agentIDs
	e.Mode = mode
	return e
}

// AgentStartEvent marks the beginning of one agent dispatch.
func AgentStartEvent(agentID string) StreamEvent {
	e := newEvent(EventAgentStart)
	e.AgentID = agentID
	return e
}

// ContentEvent carries one chunk of agent output. ChunkIndex is assigned by
// the dispatcher, not the caller.
func ContentEvent(agentID, text string, final bool) StreamEvent {
	e := newEvent(EventContent)
	e.AgentID = agentID
	e.Text = text
	e.IsFinal = final
	return e
}

// ArtifactsEvent carries structured attachments from an agent.
func ArtifactsEvent(agentID string, artifacts []Artifact) StreamEvent {
	e := newEvent(EventArtifacts)
	e.AgentID = agentID
	e.Artifacts = artifacts
	return e
}

// AgentErrorEvent isolates a single agent failure.
func AgentErrorEvent(agentID, message string) StreamEvent {
	e := newEvent(EventAgentError)
	e.AgentID = agentID
	e.Message = message
	return e
}

// CompleteEvent ends the stream successfully with the synthesized response.
func CompleteEvent(content string, metadata map[string]any) StreamEvent {
	e := newEvent(EventComplete)
	e.Content = content
	e.Metadata = metadata
	return e
}

// ErrorEvent ends the stream with a whole-request failure.
func ErrorEvent(message string) StreamEvent {
	e := newEvent(EventError)
	e.Message = message
	return e
}

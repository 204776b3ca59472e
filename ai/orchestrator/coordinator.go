// Package orchestrator coordinates multi-agent request processing: intent
// analysis, routing, dispatch, and streaming synthesis.
package orchestrator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"github.com/ngxlabs/ngx-agents/ai/agents"
	"github.com/ngxlabs/ngx-agents/ai/budget"
	"github.com/ngxlabs/ngx-agents/ai/intent"
	"github.com/ngxlabs/ngx-agents/ai/metrics"
	"github.com/ngxlabs/ngx-agents/ai/personalization"
	"github.com/ngxlabs/ngx-agents/ai/ratelimit"
	"github.com/ngxlabs/ngx-agents/ai/routing"
	"github.com/ngxlabs/ngx-agents/ai/session"
	"github.com/ngxlabs/ngx-agents/ai/synthesis"
)

// Pipeline stages reported via status events.
const (
	StageIntentAnalysis = "intent_analysis"
	StageAgentSelection = "agent_selection"
	StageDispatch       = "dispatch"
	StageSynthesis      = "synthesis"
)

// User-facing messages for whole-request failures.
const (
	NoAgentsMessage = "No pude identificar agentes apropiados para tu consulta. " +
		"Intenta reformularla o pregunta por nutrición, entrenamiento o recuperación."
	AllFailedMessage = "Los especialistas no están disponibles en este momento. " +
		"Inténtalo de nuevo en unos minutos."
)

// Config tunes the coordinator.
type Config struct {
	// MaxParallelAgents caps concurrent dispatches in parallel mode.
	MaxParallelAgents int64

	// AgentTimeout bounds each dispatch attempt.
	AgentTimeout time.Duration

	// MaxRetries is the number of retries after the first failed attempt.
	MaxRetries int

	// RetryBackoff is the initial backoff, doubled per retry.
	RetryBackoff time.Duration

	// ChunkSize bounds re-emitted content chunks, in characters.
	ChunkSize int

	// HistoryTurns is how many prior turns agents see.
	HistoryTurns int
}

// DefaultConfig returns the default coordinator configuration.
func DefaultConfig() Config {
	return Config{
		MaxParallelAgents: 3,
		AgentTimeout:      60 * time.Second,
		MaxRetries:        2,
		RetryBackoff:      time.Second,
		ChunkSize:         DefaultChunkSize,
		HistoryTurns:      6,
	}
}

// Request is one orchestrated user message.
type Request struct {
	UserID    string
	SessionID string
	Prompt    string
	Profile   *personalization.UserProfile
	Mode      personalization.Mode
}

// Result is the buffered outcome of one orchestrated request.
type Result struct {
	TraceID         string                 `json:"trace_id"`
	SessionID       string                 `json:"session_id"`
	Content         string                 `json:"content"`
	Analysis        intent.Analysis        `json:"analysis"`
	Decision        routing.Decision       `json:"decision"`
	Responses       []*agents.Response     `json:"responses"`
	FailedAgents    []string               `json:"failed_agents,omitempty"`
	TokensUsed      int                    `json:"tokens_used"`
	ErrorMessage    string                 `json:"error_message,omitempty"`
	Personalization personalization.Result `json:"-"`
}

// Failed reports whether the request ended in the error state.
func (r *Result) Failed() bool { return r.ErrorMessage != "" }

// Deps are the coordinator's collaborators. Budget, Limiter, and Metrics may
// be nil.
type Deps struct {
	Classifier  *intent.Classifier
	Engine      *personalization.Engine
	Router      *routing.Router
	Registry    *agents.Registry
	Synthesizer *synthesis.Synthesizer
	Sessions    *session.Manager
	History     *routing.History
	Budget      *budget.Manager
	Limiter     *ratelimit.Limiter
	Metrics     *metrics.Exporter
}

// Coordinator runs the request state machine. All dependencies are injected
// at construction; it holds no per-request state.
type Coordinator struct {
	deps   Deps
	config Config
}

// NewCoordinator creates a coordinator.
func NewCoordinator(deps Deps, config Config) *Coordinator {
	if config.MaxParallelAgents <= 0 {
		config.MaxParallelAgents = DefaultConfig().MaxParallelAgents
	}
	if config.AgentTimeout <= 0 {
		config.AgentTimeout = DefaultConfig().AgentTimeout
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = DefaultConfig().RetryBackoff
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultChunkSize
	}
	return &Coordinator{deps: deps, config: config}
}

// Process handles one request end to end, streaming events to emit (which
// may be nil for buffered callers). Business failures (no routable agents,
// all dispatches failed) are reported in the Result, not as an error; only
// malformed requests return one.
func (c *Coordinator) Process(ctx context.Context, req Request, emit EmitFunc) (*Result, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, errInvalidRequest
	}

	traceID := uuid.NewString()
	sess := c.deps.Sessions.GetOrCreate(ctx, req.SessionID, req.UserID)

	if c.deps.Metrics != nil {
		c.deps.Metrics.StreamStarted()
		defer c.deps.Metrics.StreamFinished()
	}

	d := NewDispatcher(traceID, emit)
	defer d.Close()

	d.Send(StartEvent(traceID, sess.UID))
	result := &Result{TraceID: traceID, SessionID: sess.UID}

	// INTENT_ANALYSIS
	d.Send(StatusEvent(StageIntentAnalysis))
	var analysis intent.Analysis
	if hit := c.deps.History.Lookup(ctx, req.UserID, req.Prompt); hit != nil {
		analysis = intent.Analysis{
			Primary:    hit.Intent,
			Confidence: float32(hit.Confidence),
			Method:     "cache",
		}
	} else {
		analysis = c.deps.Classifier.Analyze(ctx, req.Prompt)
	}
	result.Analysis = analysis
	if c.deps.Metrics != nil {
		c.deps.Metrics.RecordIntent(string(analysis.Primary), analysis.Method)
	}
	d.Send(IntentEvent(analysis))

	// AGENT_SELECTION
	d.Send(StatusEvent(StageAgentSelection))
	pres := c.deps.Engine.Personalize(personalization.Context{
		Profile:        req.Profile,
		AgentType:      "orchestrator",
		RequestContent: req.Prompt,
	}, req.Mode)
	result.Personalization = pres

	decision, err := c.deps.Router.Route(analysis, req.Profile, pres)
	if err != nil {
		if c.deps.Metrics != nil {
			c.deps.Metrics.RecordRoutingError()
		}
		slog.Info("coordinator: no routable agents",
			"trace_id", traceID,
			"intent", analysis.Primary,
		)
		result.Content = NoAgentsMessage
		result.ErrorMessage = NoAgentsMessage
		d.Send(ErrorEvent(NoAgentsMessage))
		return result, nil
	}
	result.Decision = decision
	if c.deps.Metrics != nil {
		c.deps.Metrics.RecordRoutingDecision(string(decision.Mode))
	}
	d.Send(AgentsSelectedEvent(decision.AgentIDs, string(decision.Mode)))
	if analysis.Method != "cache" {
		c.deps.History.Record(context.WithoutCancel(ctx), req.UserID, req.Prompt, analysis, decision)
	}

	// DISPATCH
	d.Send(StatusEvent(StageDispatch))
	outcomes := c.dispatchAll(ctx, decision, req, sess.UID, d)

	for _, o := range outcomes {
		if o.err != nil {
			result.FailedAgents = append(result.FailedAgents, o.agentID)
			continue
		}
		result.Responses = append(result.Responses, o.response)
		result.TokensUsed += o.response.TokensUsed
	}

	if len(result.Responses) == 0 {
		slog.Error("coordinator: all dispatches failed",
			"trace_id", traceID,
			"agents", decision.AgentIDs,
		)
		result.Content = AllFailedMessage
		result.ErrorMessage = AllFailedMessage
		d.Send(ErrorEvent(AllFailedMessage))
		return result, nil
	}

	// SYNTHESIS
	d.Send(StatusEvent(StageSynthesis))
	synthRes := c.deps.Synthesizer.Synthesize(ctx, result.Responses, decision.SynthesisApproach, pres)
	result.Content = synthRes.Content
	// Synthesis totals already include the agent tokens.
	result.TokensUsed = synthRes.TokensUsed

	// Session accounting survives client cancellation.
	c.appendTurn(context.WithoutCancel(ctx), sess.UID, req, result)

	// COMPLETE
	d.Send(CompleteEvent(synthRes.Content, map[string]any{
		"trace_id":     traceID,
		"session_id":   sess.UID,
		"agents":       decision.AgentIDs,
		"failed":       result.FailedAgents,
		"tokens_used":  result.TokensUsed,
		"confidence":   decision.Confidence,
		"attributions": synthRes.Attributions,
	}))
	return result, nil
}

var errInvalidRequest = errors.New("orchestrator: empty prompt")

type outcome struct {
	agentID  string
	response *agents.Response
	err      error
}

// dispatchAll fans the request out to the selected agents. Client
// cancellation stops launching new dispatches; in-flight ones run to
// completion for accounting.
func (c *Coordinator) dispatchAll(ctx context.Context, decision routing.Decision, req Request, sessionUID string, d *Dispatcher) []outcome {
	history := c.historyFor(sessionUID)
	outcomes := make([]outcome, len(decision.AgentIDs))

	if decision.Mode == routing.ModeParallel && len(decision.AgentIDs) > 1 {
		var wg sync.WaitGroup
		sem := semaphore.NewWeighted(c.config.MaxParallelAgents)
		for i, agentID := range decision.AgentIDs {
			if ctx.Err() != nil {
				outcomes[i] = outcome{agentID: agentID, err: ctx.Err()}
				continue
			}
			wg.Add(1)
			go func(idx int, id string) {
				defer wg.Done()
				if err := sem.Acquire(ctx, 1); err != nil {
					outcomes[idx] = outcome{agentID: id, err: err}
					return
				}
				defer sem.Release(1)
				outcomes[idx] = c.dispatchOne(ctx, id, req, history, decision, d)
			}(i, agentID)
		}
		wg.Wait()
	} else {
		for i, agentID := range decision.AgentIDs {
			if ctx.Err() != nil {
				outcomes[i] = outcome{agentID: agentID, err: ctx.Err()}
				continue
			}
			outcomes[i] = c.dispatchOne(ctx, agentID, req, history, decision, d)
		}
	}

	for _, o := range outcomes {
		if o.err != nil {
			d.Send(AgentErrorEvent(o.agentID, userFacingError(o.err)))
			if c.deps.Metrics != nil {
				c.deps.Metrics.RecordAgentError(o.agentID, errorType(o.err))
			}
		}
	}
	return outcomes
}

// dispatchOne runs a single agent with gating, retry, and chunked re-emission.
func (c *Coordinator) dispatchOne(ctx context.Context, agentID string, req Request, history []agents.HistoryTurn, decision routing.Decision, d *Dispatcher) outcome {
	agent, err := c.deps.Registry.Get(agentID)
	if err != nil {
		return outcome{agentID: agentID, err: err}
	}
	if c.deps.Budget != nil && !c.deps.Budget.Allow(agentID) {
		return outcome{agentID: agentID, err: errBudgetExhausted}
	}
	if c.deps.Limiter != nil && !c.deps.Limiter.Allow(agentID) {
		return outcome{agentID: agentID, err: errRateLimited}
	}

	d.Send(AgentStartEvent(agentID))
	start := time.Now()

	agentReq := agents.Request{
		UserID:     req.UserID,
		SessionID:  req.SessionID,
		Content:    req.Prompt,
		History:    history,
		Directives: c.directivesFor(agentID, req),
	}

	// Dispatches already in flight finish even if the client goes away;
	// the per-attempt timeout still bounds them.
	baseCtx := context.WithoutCancel(ctx)

	var resp *agents.Response
	backoff := c.config.RetryBackoff
	for attempt := 0; ; attempt++ {
		attemptCtx, cancel := context.WithTimeout(baseCtx, c.config.AgentTimeout)
		resp, err = agent.Execute(attemptCtx, agentReq)
		cancel()
		if err == nil {
			break
		}
		if attempt >= c.config.MaxRetries {
			break
		}
		slog.Warn("coordinator: dispatch attempt failed, retrying",
			"agent", agentID,
			"attempt", attempt+1,
			"backoff", backoff,
			"error", err,
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			// No new attempts after client cancellation.
			return outcome{agentID: agentID, err: err}
		}
		backoff *= 2
	}

	if c.deps.Metrics != nil {
		c.deps.Metrics.RecordDispatch(agentID, string(decision.Mode), time.Since(start), err == nil)
	}
	if err != nil {
		return outcome{agentID: agentID, err: err}
	}

	if c.deps.Budget != nil {
		c.deps.Budget.Record(agentID, resp.TokensUsed)
	}
	if c.deps.Metrics != nil {
		c.deps.Metrics.RecordTokens(agentID, resp.TokensUsed)
	}

	// Uniform incremental delivery: buffered output is re-emitted as
	// bounded content chunks.
	chunks := SplitChunks(resp.Content, c.config.ChunkSize)
	for i, chunk := range chunks {
		d.Content(agentID, chunk, i == len(chunks)-1)
	}
	d.FinishAgent(agentID)

	return outcome{agentID: agentID, response: resp}
}

// directivesFor computes per-agent personalization directives using the
// agent's strategy type.
func (c *Coordinator) directivesFor(agentID string, req Request) map[string]string {
	pres := c.deps.Engine.Personalize(personalization.Context{
		Profile:        req.Profile,
		AgentType:      strategyType(agentID),
		RequestContent: req.Prompt,
	}, req.Mode)
	if pres.Meta.FallbackMode {
		return nil
	}
	return pres.Content
}

// strategyType maps an agent ID like "sage_nutrition" to its adaptation
// strategy "nutrition".
func strategyType(agentID string) string {
	if _, suffix, ok := strings.Cut(agentID, "_"); ok {
		return suffix
	}
	return agentID
}

func (c *Coordinator) historyFor(sessionUID string) []agents.HistoryTurn {
	if c.deps.Sessions == nil {
		return nil
	}
	var history []agents.HistoryTurn
	for _, turn := range c.deps.Sessions.History(sessionUID, c.config.HistoryTurns) {
		history = append(history,
			agents.HistoryTurn{Role: "user", Content: turn.Prompt},
			agents.HistoryTurn{Role: "assistant", Content: turn.Response},
		)
	}
	return history
}

func (c *Coordinator) appendTurn(ctx context.Context, sessionUID string, req Request, result *Result) {
	agentIDs := make([]string, 0, len(result.Responses))
	for _, resp := range result.Responses {
		agentIDs = append(agentIDs, resp.AgentID)
	}
	err := c.deps.Sessions.AppendTurn(ctx, sessionUID, session.Turn{
		Prompt:     req.Prompt,
		AgentIDs:   agentIDs,
		Response:   result.Content,
		TokensUsed: result.TokensUsed,
	})
	if err != nil {
		slog.Error("coordinator: session append failed", "session", sessionUID, "error", err)
	}
}

var (
	errBudgetExhausted = errors.New("orchestrator: agent token budget exhausted")
	errRateLimited     = errors.New("orchestrator: agent rate limited")
)

func userFacingError(err error) string {
	switch {
	case errors.Is(err, errBudgetExhausted):
		return "presupuesto de tokens agotado para este especialista"
	case errors.Is(err, errRateLimited):
		return "especialista temporalmente saturado, inténtalo de nuevo"
	case errors.Is(err, agents.ErrLLMUnavailable):
		return "el especialista no está disponible en este momento"
	case errors.Is(err, context.DeadlineExceeded):
		return "el especialista tardó demasiado en responder"
	case errors.Is(err, context.Canceled):
		return "consulta cancelada"
	default:
		return "el especialista no pudo completar la consulta"
	}
}

func errorType(err error) string {
	switch {
	case errors.Is(err, errBudgetExhausted):
		return "budget"
	case errors.Is(err, errRateLimited):
		return "rate_limited"
	case errors.Is(err, agents.ErrLLMUnavailable):
		return "unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "execution"
	}
}

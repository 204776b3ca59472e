// Package budget tracks per-agent token budgets and usage.
package budget

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ErrUnknownBudget is returned when no budget exists for an agent.
var ErrUnknownBudget = errors.New("budget: no budget configured for agent")

// Budget is the token allowance for one agent over a rolling period.
type Budget struct {
	AgentID        string        `json:"agent_id"`
	MaxTokens      int           `json:"max_tokens"`
	Period         time.Duration `json:"period"`
	AlertThreshold float64       `json:"alert_threshold"` // fraction of MaxTokens, 0 disables
}

// Usage is the consumption within the current period.
type Usage struct {
	AgentID     string    `json:"agent_id"`
	TokensUsed  int       `json:"tokens_used"`
	Requests    int       `json:"requests"`
	PeriodStart time.Time `json:"period_start"`
}

// Status combines a budget with its current usage.
type Status struct {
	Budget      Budget  `json:"budget"`
	Usage       Usage   `json:"usage"`
	Remaining   int     `json:"remaining"`
	PercentUsed float64 `json:"percent_used"`
	Exhausted   bool    `json:"exhausted"`
}

// Alert records one threshold crossing.
type Alert struct {
	AgentID     string    `json:"agent_id"`
	TokensUsed  int       `json:"tokens_used"`
	MaxTokens   int       `json:"max_tokens"`
	PercentUsed float64   `json:"percent_used"`
	At          time.Time `json:"at"`
}

// Notifier delivers budget alerts to an external channel.
type Notifier interface {
	NotifyBudgetAlert(ctx context.Context, alert Alert) error
}

// Manager tracks budgets and usage. It is constructed at startup and passed
// explicitly to its consumers; safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	budgets  map[string]Budget
	usage    map[string]*Usage
	alerted  map[string]bool // reset on period rollover
	alerts   []Alert
	notifier Notifier // nil disables notifications
	now      func() time.Time
}

// NewManager creates a budget manager. notifier may be nil.
func NewManager(notifier Notifier) *Manager {
	return &Manager{
		budgets:  make(map[string]Budget),
		usage:    make(map[string]*Usage),
		alerted:  make(map[string]bool),
		notifier: notifier,
		now:      time.Now,
	}
}

// SetBudget creates or replaces an agent's budget. Current-period usage is
// kept so an update cannot be used to dodge an exhausted budget.
func (m *Manager) SetBudget(b Budget) error {
	if b.AgentID == "" {
		return errors.New("budget: agent_id is required")
	}
	if b.MaxTokens <= 0 {
		return errors.Errorf("budget %s: max_tokens must be positive", b.AgentID)
	}
	if b.Period <= 0 {
		b.Period = 24 * time.Hour
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.budgets[b.AgentID] = b
	if _, ok := m.usage[b.AgentID]; !ok {
		m.usage[b.AgentID] = &Usage{AgentID: b.AgentID, PeriodStart: m.now()}
	}
	return nil
}

// Record adds consumed tokens for an agent. Unbudgeted agents are tracked
// with usage only. Threshold alerts fire once per period.
func (m *Manager) Record(agentID string, tokens int) {
	if tokens < 0 {
		tokens = 0
	}

	m.mu.Lock()
	u, ok := m.usage[agentID]
	if !ok {
		u = &Usage{AgentID: agentID, PeriodStart: m.now()}
		m.usage[agentID] = u
	}
	b, budgeted := m.budgets[agentID]
	if budgeted {
		m.rolloverLocked(u, b)
	}
	u.TokensUsed += tokens
	u.Requests++

	var alert *Alert
	if budgeted && b.AlertThreshold > 0 && !m.alerted[agentID] {
		percent := float64(u.TokensUsed) / float64(b.MaxTokens)
		if percent >= b.AlertThreshold {
			m.alerted[agentID] = true
			a := Alert{
				AgentID:     agentID,
				TokensUsed:  u.TokensUsed,
				MaxTokens:   b.MaxTokens,
				PercentUsed: percent,
				At:          m.now(),
			}
			m.alerts = append(m.alerts, a)
			alert = &a
		}
	}
	m.mu.Unlock()

	if alert != nil {
		slog.Warn("budget: threshold crossed",
			"agent", alert.AgentID,
			"tokens_used", alert.TokensUsed,
			"max_tokens", alert.MaxTokens,
		)
		if m.notifier != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := m.notifier.NotifyBudgetAlert(ctx, *alert); err != nil {
				slog.Error("budget: alert notification failed", "agent", alert.AgentID, "error", err)
			}
		}
	}
}

// Allow reports whether the agent still has budget left. Agents without a
// configured budget are always allowed.
func (m *Manager) Allow(agentID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.budgets[agentID]
	if !ok {
		return true
	}
	u := m.usage[agentID]
	if u == nil {
		return true
	}
	m.rolloverLocked(u, b)
	return u.TokensUsed < b.MaxTokens
}

// GetStatus returns the status for one agent.
func (m *Manager) GetStatus(agentID string) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.budgets[agentID]
	if !ok {
		return Status{}, errors.Wrap(ErrUnknownBudget, agentID)
	}
	u := m.usage[agentID]
	if u == nil {
		u = &Usage{AgentID: agentID, PeriodStart: m.now()}
	}
	m.rolloverLocked(u, b)
	return statusFor(b, u), nil
}

// AllStatuses returns the status of every budgeted agent.
func (m *Manager) AllStatuses() []Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Status, 0, len(m.budgets))
	for id, b := range m.budgets {
		u := m.usage[id]
		if u == nil {
			u = &Usage{AgentID: id, PeriodStart: m.now()}
		}
		m.rolloverLocked(u, b)
		out = append(out, statusFor(b, u))
	}
	return out
}

// AllUsage returns usage for every tracked agent, budgeted or not.
func (m *Manager) AllUsage() []Usage {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Usage, 0, len(m.usage))
	for _, u := range m.usage {
		out = append(out, *u)
	}
	return out
}

// Reset clears the current-period usage for an agent.
func (m *Manager) Reset(agentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.usage[agentID]
	if !ok {
		return errors.Wrap(ErrUnknownBudget, agentID)
	}
	u.TokensUsed = 0
	u.Requests = 0
	u.PeriodStart = m.now()
	delete(m.alerted, agentID)
	return nil
}

// Alerts returns the alert history, oldest first.
func (m *Manager) Alerts() []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Alert(nil), m.alerts...)
}

// rolloverLocked resets usage when its period has elapsed.
func (m *Manager) rolloverLocked(u *Usage, b Budget) {
	if b.Period <= 0 {
		return
	}
	if m.now().Sub(u.PeriodStart) >= b.Period {
		u.TokensUsed = 0
		u.Requests = 0
		u.PeriodStart = m.now()
		delete(m.alerted, u.AgentID)
	}
}

func statusFor(b Budget, u *Usage) Status {
	remaining := b.MaxTokens - u.TokensUsed
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		Budget:      b,
		Usage:       *u,
		Remaining:   remaining,
		PercentUsed: float64(u.TokensUsed) / float64(b.MaxTokens),
		Exhausted:   u.TokensUsed >= b.MaxTokens,
	}
}

package routing

import (
	"log/slog"

	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"

	"github.com/ngxlabs/ngx-agents/ai/agents"
	"github.com/ngxlabs/ngx-agents/ai/intent"
	"github.com/ngxlabs/ngx-agents/ai/personalization"
)

// RuleConfig is one operator-defined routing override. The expression is a
// CEL boolean over the request variables; when it evaluates true the rule's
// actions are applied to the decision.
//
// Available variables: archetype, primary_intent (string);
// readiness, stress_level, energy_level, sleep_quality, recovery_score
// (double, -1.0 when the signal is absent); agent_count (int).
type RuleConfig struct {
	Name       string   `json:"name" yaml:"name"`
	Expression string   `json:"expression" yaml:"expression"`
	AddAgents  []string `json:"add_agents,omitempty" yaml:"add_agents,omitempty"`
	ForceMode  string   `json:"force_mode,omitempty" yaml:"force_mode,omitempty"`
	Priority   string   `json:"priority,omitempty" yaml:"priority,omitempty"`
}

type compiledRule struct {
	cfg     RuleConfig
	program cel.Program
}

// Policy is a compiled set of routing override rules. Rules apply in order.
type Policy struct {
	rules []compiledRule
}

// NewPolicy compiles the rules. Invalid expressions are rejected here, never
// at request time.
func NewPolicy(configs []RuleConfig) (*Policy, error) {
	env, err := cel.NewEnv(
		cel.Variable("archetype", cel.StringType),
		cel.Variable("primary_intent", cel.StringType),
		cel.Variable("readiness", cel.DoubleType),
		cel.Variable("stress_level", cel.DoubleType),
		cel.Variable("energy_level", cel.DoubleType),
		cel.Variable("sleep_quality", cel.DoubleType),
		cel.Variable("recovery_score", cel.DoubleType),
		cel.Variable("agent_count", cel.IntType),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create CEL environment")
	}

	p := &Policy{}
	for _, cfg := range configs {
		celAST, issues := env.Compile(cfg.Expression)
		if issues != nil && issues.Err() != nil {
			return nil, errors.Wrapf(issues.Err(), "invalid rule expression %q", cfg.Name)
		}
		if !celAST.OutputType().IsExactType(cel.BoolType) {
			return nil, errors.Errorf("rule %q: expression must be boolean, got %s", cfg.Name, celAST.OutputType())
		}
		program, err := env.Program(celAST)
		if err != nil {
			return nil, errors.Wrapf(err, "build program for rule %q", cfg.Name)
		}
		p.rules = append(p.rules, compiledRule{cfg: cfg, program: program})
	}
	return p, nil
}

// Apply evaluates every rule against the request and mutates the decision for
// those that match. Evaluation errors skip the rule. Returns the agent IDs the
// matched rules added; the caller treats them as mandatory when capping.
func (p *Policy) Apply(d *Decision, analysis intent.Analysis, profile *personalization.UserProfile, pres personalization.Result, registry *agents.Registry) []string {
	vars := policyVars(analysis, profile, pres, len(d.AgentIDs))

	var added []string
	for _, rule := range p.rules {
		out, _, err := rule.program.Eval(vars)
		if err != nil {
			slog.Warn("routing: policy rule evaluation failed", "rule", rule.cfg.Name, "error", err)
			continue
		}
		matched, ok := out.Value().(bool)
		if !ok || !matched {
			continue
		}

		slog.Info("routing: policy rule matched", "rule", rule.cfg.Name)
		for _, id := range rule.cfg.AddAgents {
			if _, err := registry.Get(id); err != nil {
				slog.Warn("routing: policy rule names unknown agent", "rule", rule.cfg.Name, "agent", id)
				continue
			}
			d.AgentIDs = prependUnique(d.AgentIDs, id)
			added = append(added, id)
		}
		switch Mode(rule.cfg.ForceMode) {
		case ModeParallel, ModeSequential:
			d.Mode = Mode(rule.cfg.ForceMode)
		}
		switch Priority(rule.cfg.Priority) {
		case PriorityNormal, PriorityCritical:
			d.Priority = Priority(rule.cfg.Priority)
		}
	}
	return added
}

func policyVars(analysis intent.Analysis, profile *personalization.UserProfile, pres personalization.Result, agentCount int) map[string]any {
	var b personalization.BiometricSnapshot
	if profile != nil {
		b = profile.Biometrics
	}
	vars := map[string]any{
		"archetype":      string(pres.Meta.Archetype),
		"primary_intent": string(analysis.Primary),
		"readiness":      pres.Physiological.ReadinessScore,
		"stress_level":   signalOrMissing(b.StressLevel),
		"energy_level":   signalOrMissing(b.EnergyLevel),
		"sleep_quality":  signalOrMissing(b.SleepQuality),
		"recovery_score": signalOrMissing(b.RecoveryScore),
		"agent_count":    agentCount,
	}
	return vars
}

// signalOrMissing maps an absent biometric to -1 so rules can distinguish
// "no data" from a true zero.
func signalOrMissing(v *float64) float64 {
	if v == nil {
		return -1
	}
	return *v
}

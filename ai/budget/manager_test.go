package budget

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []Alert
}

func (n *recordingNotifier) NotifyBudgetAlert(ctx context.Context, alert Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
	return nil
}

func TestSetBudgetValidation(t *testing.T) {
	m := NewManager(nil)
	assert.Error(t, m.SetBudget(Budget{MaxTokens: 100}))
	assert.Error(t, m.SetBudget(Budget{AgentID: "a", MaxTokens: 0}))
	assert.NoError(t, m.SetBudget(Budget{AgentID: "a", MaxTokens: 100}))
}

func TestRecordAndStatus(t *testing.T) {
	m := NewManager(nil)
	require.NoError(t, m.SetBudget(Budget{AgentID: "sage_nutrition", MaxTokens: 1000}))

	m.Record("sage_nutrition", 300)
	m.Record("sage_nutrition", 200)

	st, err := m.GetStatus("sage_nutrition")
	require.NoError(t, err)
	assert.Equal(t, 500, st.Usage.TokensUsed)
	assert.Equal(t, 2, st.Usage.Requests)
	assert.Equal(t, 500, st.Remaining)
	assert.InDelta(t, 0.5, st.PercentUsed, 1e-9)
	assert.False(t, st.Exhausted)
}

func TestUsageMonotonicWithinPeriod(t *testing.T) {
	m := NewManager(nil)
	require.NoError(t, m.SetBudget(Budget{AgentID: "a", MaxTokens: 10000, Period: time.Hour}))

	last := 0
	for i := 0; i < 50; i++ {
		m.Record("a", i%7)
		st, err := m.GetStatus("a")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, st.Usage.TokensUsed, last)
		last = st.Usage.TokensUsed
	}
}

func TestAllowExhaustion(t *testing.T) {
	m := NewManager(nil)
	require.NoError(t, m.SetBudget(Budget{AgentID: "a", MaxTokens: 100}))

	assert.True(t, m.Allow("a"))
	m.Record("a", 100)
	assert.False(t, m.Allow("a"))
	assert.True(t, m.Allow("unbudgeted"))
}

func TestThresholdAlertFiresOnce(t *testing.T) {
	notifier := &recordingNotifier{}
	m := NewManager(notifier)
	require.NoError(t, m.SetBudget(Budget{AgentID: "a", MaxTokens: 100, AlertThreshold: 0.8}))

	m.Record("a", 70)
	assert.Empty(t, m.Alerts())

	m.Record("a", 15) // crosses 80%
	require.Len(t, m.Alerts(), 1)
	assert.Equal(t, "a", m.Alerts()[0].AgentID)

	m.Record("a", 10) // still over, no second alert
	assert.Len(t, m.Alerts(), 1)

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	assert.Len(t, notifier.alerts, 1)
}

func TestResetClearsUsageAndAlertLatch(t *testing.T) {
	m := NewManager(nil)
	require.NoError(t, m.SetBudget(Budget{AgentID: "a", MaxTokens: 100, AlertThreshold: 0.5}))

	m.Record("a", 60)
	require.Len(t, m.Alerts(), 1)
	require.NoError(t, m.Reset("a"))

	st, err := m.GetStatus("a")
	require.NoError(t, err)
	assert.Equal(t, 0, st.Usage.TokensUsed)

	m.Record("a", 60)
	assert.Len(t, m.Alerts(), 2)
}

func TestPeriodRollover(t *testing.T) {
	m := NewManager(nil)
	require.NoError(t, m.SetBudget(Budget{AgentID: "a", MaxTokens: 100, Period: time.Hour}))

	m.Record("a", 90)
	clock := time.Now()
	m.now = func() time.Time { return clock.Add(2 * time.Hour) }

	assert.True(t, m.Allow("a"))
	st, err := m.GetStatus("a")
	require.NoError(t, err)
	assert.Equal(t, 0, st.Usage.TokensUsed)
}

func TestGetStatusUnknownAgent(t *testing.T) {
	m := NewManager(nil)
	_, err := m.GetStatus("nope")
	assert.ErrorIs(t, err, ErrUnknownBudget)
}

func TestAllUsageTracksUnbudgetedAgents(t *testing.T) {
	m := NewManager(nil)
	m.Record("free_agent", 42)

	usage := m.AllUsage()
	require.Len(t, usage, 1)
	assert.Equal(t, "free_agent", usage[0].AgentID)
	assert.Equal(t, 42, usage[0].TokensUsed)
}

package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ngxlabs/ngx-agents/ai/budget"
)

// ListBudgetStatuses returns the status of every configured budget.
func (s *APIV1Service) ListBudgetStatuses(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"budgets": s.Budget.AllStatuses(),
	})
}

// GetBudgetStatus returns one agent's budget status.
func (s *APIV1Service) GetBudgetStatus(c echo.Context) error {
	status, err := s.Budget.GetStatus(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "no budget configured for agent")
	}
	return c.JSON(http.StatusOK, status)
}

type updateBudgetRequest struct {
	AgentID        string  `json:"agent_id"`
	MaxTokens      int     `json:"max_tokens"`
	PeriodHours    int     `json:"period_hours,omitempty"`
	AlertThreshold float64 `json:"alert_threshold,omitempty"`
}

// UpdateBudget creates or replaces an agent's token budget.
func (s *APIV1Service) UpdateBudget(c echo.Context) error {
	var body updateBudgetRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	b := budget.Budget{
		AgentID:        body.AgentID,
		MaxTokens:      body.MaxTokens,
		Period:         time.Duration(body.PeriodHours) * time.Hour,
		AlertThreshold: body.AlertThreshold,
	}
	if err := s.Budget.SetBudget(b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	status, err := s.Budget.GetStatus(body.AgentID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, status)
}

// ResetBudget clears an agent's usage for the current period.
func (s *APIV1Service) ResetBudget(c echo.Context) error {
	if err := s.Budget.Reset(c.Param("id")); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "no budget configured for agent")
	}
	status, err := s.Budget.GetStatus(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, status)
}

// ListBudgetAlerts returns the alerts fired since startup.
func (s *APIV1Service) ListBudgetAlerts(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"alerts": s.Budget.Alerts(),
	})
}

// GetBudgetSummary aggregates usage across all tracked agents.
func (s *APIV1Service) GetBudgetSummary(c echo.Context) error {
	usages := s.Budget.AllUsage()
	totalTokens := 0
	for _, u := range usages {
		totalTokens += u.TokensUsed
	}
	return c.JSON(http.StatusOK, map[string]any{
		"total_tokens": totalTokens,
		"agents":       usages,
	})
}

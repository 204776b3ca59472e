// Package v1 implements the HTTP/JSON API surface, including the A2A agent
// endpoints and the orchestrated chat stream.
package v1

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ngxlabs/ngx-agents/ai/agents"
	"github.com/ngxlabs/ngx-agents/ai/budget"
	"github.com/ngxlabs/ngx-agents/ai/core/embedding"
	"github.com/ngxlabs/ngx-agents/ai/core/llm"
	"github.com/ngxlabs/ngx-agents/ai/intent"
	"github.com/ngxlabs/ngx-agents/ai/metrics"
	"github.com/ngxlabs/ngx-agents/ai/orchestrator"
	"github.com/ngxlabs/ngx-agents/ai/personalization"
	"github.com/ngxlabs/ngx-agents/ai/ratelimit"
	"github.com/ngxlabs/ngx-agents/ai/routing"
	"github.com/ngxlabs/ngx-agents/ai/session"
	"github.com/ngxlabs/ngx-agents/ai/synthesis"
	"github.com/ngxlabs/ngx-agents/internal/profile"
	"github.com/ngxlabs/ngx-agents/plugin/notifier"
	"github.com/ngxlabs/ngx-agents/plugin/wearables"
	"github.com/ngxlabs/ngx-agents/server/auth"
	"github.com/ngxlabs/ngx-agents/store"
)

type APIV1Service struct {
	Profile *profile.Profile
	Store   *store.Store
	Secret  string

	Registry    *agents.Registry
	Coordinator *orchestrator.Coordinator
	Budget      *budget.Manager
	Metrics     *metrics.Exporter
	Wearables   *wearables.Client
}

// NewAPIV1Service wires the AI pipeline from the instance profile. Optional
// collaborators (LLM, embeddings, Telegram, wearables) degrade to nil with a
// warning instead of failing startup.
func NewAPIV1Service(secret string, instanceProfile *profile.Profile, st *store.Store) *APIV1Service {
	var llmService llm.Service
	if instanceProfile.LLMModel != "" {
		svc, err := llm.NewService(&llm.Config{
			Provider: instanceProfile.LLMProvider,
			Model:    instanceProfile.LLMModel,
			APIKey:   instanceProfile.LLMAPIKey,
			BaseURL:  instanceProfile.LLMBaseURL,
			Timeout:  instanceProfile.LLMTimeout,
		})
		if err != nil {
			slog.Warn("failed to initialize LLM service, agent executions will report unavailable", "error", err)
		} else {
			llmService = svc
			// Warm up the connection so the first request is not paying
			// for the TLS handshake. Best effort.
			go func() {
				warmupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				llmService.Warmup(warmupCtx)
			}()
		}
	}

	var embeddingService embedding.Service
	if instanceProfile.EmbeddingModel != "" {
		svc, err := embedding.NewService(&embedding.Config{
			Provider: instanceProfile.EmbeddingProvider,
			Model:    instanceProfile.EmbeddingModel,
			APIKey:   instanceProfile.EmbeddingAPIKey,
			BaseURL:  instanceProfile.EmbeddingBaseURL,
		})
		if err != nil {
			slog.Warn("failed to initialize embedding service, semantic routing cache disabled", "error", err)
		} else {
			embeddingService = svc
		}
	}

	personas := agents.DefaultPersonas()
	if instanceProfile.AgentConfigDir != "" {
		loaded, err := agents.LoadPersonaDir(instanceProfile.AgentConfigDir)
		if err != nil {
			slog.Warn("failed to load agent personas, using defaults", "dir", instanceProfile.AgentConfigDir, "error", err)
		} else {
			personas = agents.MergePersonas(personas, loaded)
		}
	}
	registry := agents.BuildRegistry(personas, llmService, instanceProfile.Version)

	var policy *routing.Policy
	if instanceProfile.AgentConfigDir != "" {
		rules, err := routing.LoadRuleFile(filepath.Join(instanceProfile.AgentConfigDir, "routing_rules.yaml"))
		if err != nil {
			slog.Warn("failed to load routing rules", "error", err)
		} else if len(rules) > 0 {
			policy, err = routing.NewPolicy(rules)
			if err != nil {
				slog.Warn("failed to compile routing rules, continuing without policy", "error", err)
				policy = nil
			}
		}
	}

	var budgetNotifier budget.Notifier
	if instanceProfile.TelegramBotToken != "" && instanceProfile.TelegramChatID != 0 {
		tn, err := notifier.NewTelegramNotifier(&notifier.TelegramConfig{
			BotToken: instanceProfile.TelegramBotToken,
			ChatID:   instanceProfile.TelegramChatID,
		})
		if err != nil {
			slog.Warn("failed to initialize Telegram notifier, budget alerts are log-only", "error", err)
		} else {
			budgetNotifier = tn
		}
	}

	var wearableClient *wearables.Client
	if instanceProfile.WearableBaseURL != "" {
		wc, err := wearables.NewClient(&wearables.Config{
			BaseURL:      instanceProfile.WearableBaseURL,
			TokenURL:     instanceProfile.WearableTokenURL,
			ClientID:     instanceProfile.WearableClientID,
			ClientSecret: instanceProfile.WearableClientSecret,
		})
		if err != nil {
			slog.Warn("failed to initialize wearables client, biometric signals disabled", "error", err)
		} else {
			wearableClient = wc
		}
	}

	budgetManager := budget.NewManager(budgetNotifier)
	metricsExporter := metrics.NewExporter(metrics.DefaultConfig())

	coordinator := orchestrator.NewCoordinator(orchestrator.Deps{
		Classifier:  intent.NewClassifier(intent.DefaultRegistry(), llmService),
		Engine:      personalization.NewEngine(personalization.EngineConfig{}),
		Router:      routing.NewRouter(registry, policy),
		Registry:    registry,
		Synthesizer: synthesis.NewSynthesizer(llmService),
		Sessions:    session.NewManager(store.NewSessionAdapter(st)),
		History:     routing.NewHistory(st, embeddingService, 0),
		Budget:      budgetManager,
		Limiter:     ratelimit.NewLimiter(5, 10),
		Metrics:     metricsExporter,
	}, orchestrator.DefaultConfig())

	return &APIV1Service{
		Profile:     instanceProfile,
		Store:       st,
		Secret:      secret,
		Registry:    registry,
		Coordinator: coordinator,
		Budget:      budgetManager,
		Metrics:     metricsExporter,
		Wearables:   wearableClient,
	}
}

// Register attaches all v1 routes to the Echo instance.
func (s *APIV1Service) Register(e *echo.Echo) {
	e.GET("/.well-known/agent.json", s.GetAgentDirectory)
	e.POST("/api/v1/auth/token", s.CreateAccessToken)

	api := e.Group("/api/v1", s.authMiddleware)
	api.POST("/agents/:id/run", s.RunAgent)
	api.GET("/agents/:id/status", s.GetAgentStatus)
	api.POST("/chat/stream", s.ChatStream)

	budgetGroup := e.Group("/api/budget", s.authMiddleware)
	budgetGroup.GET("/status", s.ListBudgetStatuses)
	budgetGroup.GET("/status/:id", s.GetBudgetStatus)
	budgetGroup.POST("/update", s.UpdateBudget)
	budgetGroup.POST("/reset/:id", s.ResetBudget)
	budgetGroup.GET("/alerts", s.ListBudgetAlerts)
	budgetGroup.GET("/summary", s.GetBudgetSummary)
}

// authMiddleware enforces Bearer auth when a secret is configured. Tokens
// are HS256 JWTs; the static service API key is accepted when its bcrypt
// hash is configured.
func (s *APIV1Service) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.Secret == "" {
			return next(c)
		}
		token, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
		if !ok || token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		}
		if s.Profile.APIKeyHash != "" && auth.VerifyAPIKey(token, s.Profile.APIKeyHash) {
			return next(c)
		}
		userID, err := auth.VerifyAccessToken(token, []byte(s.Secret))
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		}
		c.Set("user_id", userID)
		return next(c)
	}
}

// CreateAccessToken exchanges the static service API key for a short-lived
// bearer token.
func (s *APIV1Service) CreateAccessToken(c echo.Context) error {
	var body struct {
		APIKey string `json:"api_key"`
		UserID string `json:"user_id"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	if s.Profile.APIKeyHash == "" || !auth.VerifyAPIKey(body.APIKey, s.Profile.APIKeyHash) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid api key")
	}
	userID := body.UserID
	if userID == "" {
		userID = "service"
	}
	expires := time.Now().Add(auth.AccessTokenDuration)
	token, err := auth.GenerateAccessToken(userID, expires, []byte(s.Secret))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to issue token")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"access_token": token,
		"expires_at":   expires.Unix(),
	})
}

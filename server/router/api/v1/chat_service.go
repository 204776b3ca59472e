package v1

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ngxlabs/ngx-agents/ai/orchestrator"
	"github.com/ngxlabs/ngx-agents/ai/personalization"
)

type chatStreamRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`

	// Optional personalization layer. Biometrics left empty are filled from
	// the wearables feed when one is configured.
	Archetype  string                             `json:"archetype,omitempty"`
	Biometrics *personalization.BiometricSnapshot `json:"biometrics,omitempty"`
	Mode       string                             `json:"personalization_mode,omitempty"`
}

// ChatStream runs the full orchestration pipeline and streams events over
// SSE, one JSON object per data line, terminated by a complete or error
// event. Routing failures are business outcomes and still stream as 200.
func (s *APIV1Service) ChatStream(c echo.Context) error {
	var body chatStreamRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	if strings.TrimSpace(body.Message) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}
	userID := body.UserID
	if id, ok := c.Get("user_id").(string); ok && id != "" && userID == "" {
		userID = id
	}

	req := orchestrator.Request{
		UserID:    userID,
		SessionID: body.SessionID,
		Prompt:    body.Message,
		Profile:   s.buildProfile(c, userID, &body),
		Mode:      personalization.Mode(body.Mode),
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	_, err := s.Coordinator.Process(c.Request().Context(), req, func(e orchestrator.StreamEvent) {
		if err := writeSSE(w, e); err != nil {
			slog.Debug("chat stream: client write failed", "error", err)
		}
	})
	if err != nil {
		return writeSSE(w, orchestrator.ErrorEvent("consulta inválida"))
	}
	return nil
}

// buildProfile assembles the personalization profile for the request. An
// unknown archetype or missing data yields a nil profile and the pipeline
// proceeds unpersonalized.
func (s *APIV1Service) buildProfile(c echo.Context, userID string, body *chatStreamRequest) *personalization.UserProfile {
	archetype := personalization.Archetype(strings.ToUpper(body.Archetype))
	if !archetype.Valid() {
		return nil
	}
	profile := &personalization.UserProfile{
		UserID:    userID,
		Archetype: archetype,
	}
	if body.Biometrics != nil {
		profile.Biometrics = *body.Biometrics
	} else if s.Wearables != nil && userID != "" {
		snap, err := s.Wearables.Latest(c.Request().Context(), userID)
		if err != nil {
			slog.Warn("wearables fetch failed, continuing without biometrics", "user_id", userID, "error", err)
		} else if snap != nil {
			profile.Biometrics = *snap
		}
	}
	return profile
}

// writeSSE writes one event as a data line and flushes it to the client.
func writeSSE(w *echo.Response, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := w.Write(append(append([]byte("data: "), raw...), '\n', '\n')); err != nil {
		return err
	}
	w.Flush()
	return nil
}

// Package wearables pulls biometric snapshots from the wearable vendor API.
package wearables

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/ngxlabs/ngx-agents/ai/personalization"
)

// Config holds the vendor API connection settings. The vendor uses OAuth2
// client credentials; leaving ClientID empty skips token handling, which is
// how tests talk to a local server.
type Config struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// Client fetches biometric data for users.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a wearables API client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("wearables: base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var httpClient *http.Client
	if cfg.ClientID != "" {
		oauth := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		httpClient = oauth.Client(context.Background())
		httpClient.Timeout = timeout
	} else {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{baseURL: cfg.BaseURL, http: httpClient}, nil
}

// biometricsPayload is the vendor's latest-readings response. All readings
// are normalized to [0, 1] by the vendor.
type biometricsPayload struct {
	SleepQuality  *float64 `json:"sleep_quality"`
	StressLevel   *float64 `json:"stress_level"`
	EnergyLevel   *float64 `json:"energy_level"`
	RecoveryScore *float64 `json:"recovery_score"`
	RecordedAt    string   `json:"recorded_at"`
}

// Latest returns the most recent biometric snapshot for the user. A nil
// snapshot with no error means the vendor has no data for the user yet.
func (c *Client) Latest(ctx context.Context, userID string) (*personalization.BiometricSnapshot, error) {
	url := fmt.Sprintf("%s/v1/users/%s/biometrics/latest", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "wearables: build request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "wearables: request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.Errorf("wearables: unexpected status %d: %s", resp.StatusCode, body)
	}

	var payload biometricsPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "wearables: decode response")
	}

	return &personalization.BiometricSnapshot{
		SleepQuality:  clampSignal(payload.SleepQuality),
		StressLevel:   clampSignal(payload.StressLevel),
		EnergyLevel:   clampSignal(payload.EnergyLevel),
		RecoveryScore: clampSignal(payload.RecoveryScore),
	}, nil
}

// clampSignal bounds a vendor reading to [0, 1]; out-of-range values are
// kept but clamped rather than discarded.
func clampSignal(v *float64) *float64 {
	if v == nil {
		return nil
	}
	clamped := *v
	if clamped < 0 {
		clamped = 0
	}
	if clamped > 1 {
		clamped = 1
	}
	return &clamped
}

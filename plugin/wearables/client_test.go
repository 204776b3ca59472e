package wearables

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(&Config{BaseURL: srv.URL})
	require.NoError(t, err)
	return client
}

func TestLatestParsesSnapshot(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/users/user-1/biometrics/latest", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"sleep_quality": 0.8,
			"stress_level": 0.3,
			"energy_level": 0.7,
			"recovery_score": 0.9,
			"recorded_at": "2026-09-01T07:00:00Z"
		}`))
	})

	snap, err := client.Latest(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 4, snap.SignalCount())
	assert.InDelta(t, 0.8, *snap.SleepQuality, 1e-9)
	assert.InDelta(t, 0.3, *snap.StressLevel, 1e-9)
}

func TestLatestPartialSignals(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"sleep_quality": 0.6}`))
	})

	snap, err := client.Latest(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 1, snap.SignalCount())
	assert.Nil(t, snap.StressLevel)
}

func TestLatestClampsOutOfRange(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"sleep_quality": 1.7, "stress_level": -0.2}`))
	})

	snap, err := client.Latest(context.Background(), "user-1")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, *snap.SleepQuality, 1e-9)
	assert.InDelta(t, 0.0, *snap.StressLevel, 1e-9)
}

func TestLatestNoData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	snap, err := client.Latest(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestLatestServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Latest(context.Background(), "user-1")
	assert.Error(t, err)
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(&Config{})
	assert.Error(t, err)
}

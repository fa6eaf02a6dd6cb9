package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth_Healthy(t *testing.T) {
	env := newTestEnv(t, &stubRepo{})

	rec := doRequest(env, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "connected", body["database"])
	assert.Equal(t, "active", body["feed"])
	assert.Equal(t, float64(0), body["connectedClients"])
}

func TestHealth_DatabaseDown(t *testing.T) {
	env := newTestEnv(t, &stubRepo{})
	env.srv.db = &stubPinger{err: errors.New("connection refused")}

	rec := doRequest(env, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body["status"])
	assert.Equal(t, "disconnected", body["database"])
}

func TestHealth_CountsConnectedClients(t *testing.T) {
	env := newTestEnv(t, &stubRepo{})

	env.dialWS(t)
	env.dialWS(t)

	// The hub registers asynchronously from the dial's perspective.
	for i := 0; i < 100; i++ {
		if env.hub.Count() == 2 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	require.Equal(t, 2, env.hub.Count())

	rec := doRequest(env, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(2), body["connectedClients"])
}

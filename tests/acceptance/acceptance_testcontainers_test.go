package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testcontainers "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	httpPkg "github.com/elevatorsim/engine/internal/http"
)

// TestEngineServiceIntegration boots the engine binary in a real container
// (built from build/package/Dockerfile) and drives its RPC surface over the
// network, the way the teacher's testcontainers acceptance test exercises
// its elevator HTTP API end-to-end.
func TestEngineServiceIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping testcontainers test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		FromDockerfile: testcontainers.FromDockerfile{
			Context:    "../..",
			Dockerfile: "build/package/Dockerfile",
		},
		ExposedPorts: []string{"6660/tcp"},
		Env: map[string]string{
			"ENV":               "testing",
			"LOG_LEVEL":         "WARN",
			"PORT":              "6660",
			"TRAFFIC_DIR":       "./traffic",
			"METRICS_ENABLED":   "true",
			"HEALTH_ENABLED":    "true",
			"WEBSOCKET_ENABLED": "false",
		},
		WaitingFor: wait.ForHTTP("/health").
			WithPort("6660/tcp").
			WithStartupTimeout(90 * time.Second).
			WithPollInterval(2 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = container.Terminate(ctx) }()

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6660")
	require.NoError(t, err)
	baseURL := fmt.Sprintf("http://%s:%s", host, port.Port())

	t.Run("get_state reports the loaded scenario", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/v1/state")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body httpPkg.APIResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.True(t, body.Success)
	})

	t.Run("step advances the tick", func(t *testing.T) {
		resp, err := http.Post(baseURL+"/v1/step", "application/json", nil)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("readiness reflects engine liveness", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/health/ready")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

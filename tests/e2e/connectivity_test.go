package e2e

import (
	"net/http"
	"testing"
	"time"

	"github.com/fleet-e2e/device-dialog/tests/e2e/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConnectivity verifies the configured application answers before any
// browser is launched.
func TestConnectivity(t *testing.T) {
	cfg, err := config.Load(".")
	require.NoError(t, err)
	if cfg.BaseURL == "" {
		t.Skip("BASE_URL not set, the suite runs against the in-process stub")
	}
	if !config.Reachable(cfg.BaseURL) {
		t.Skipf("%s not reachable", cfg.BaseURL)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(cfg.BaseURL)
	require.NoError(t, err, "Failed to connect to %s", cfg.BaseURL)
	defer resp.Body.Close()

	assert.Less(t, resp.StatusCode, http.StatusInternalServerError)
	t.Logf("connected to %s (status %d)", cfg.BaseURL, resp.StatusCode)
}

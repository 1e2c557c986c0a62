//go:build integration

package integration

import (
	"net/http"
	"os"
	"testing"
	"time"
)

// BaseURL points at a running API started with STORE_DRIVER=memory or a
// scratch database.
var BaseURL = "http://localhost:8080"

func TestMain(m *testing.M) {
	if u := os.Getenv("INTEGRATION_BASE_URL"); u != "" {
		BaseURL = u
	}

	// wait for the service to come up
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(BaseURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}
		time.Sleep(500 * time.Millisecond)
	}

	os.Exit(m.Run())
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		mode       string
		checks     map[string]CheckFunc
		wantStatus int
		wantChecks map[string]string
	}{
		{
			name:       "basic mode skips checks",
			checks:     map[string]CheckFunc{"storage": down},
			wantStatus: http.StatusOK,
		},
		{
			name:       "extended all healthy",
			mode:       "extended",
			checks:     map[string]CheckFunc{"storage": ok, "queue": nil},
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"storage": "healthy", "queue": "not configured"},
		},
		{
			name:       "extended with failure",
			mode:       "extended",
			checks:     map[string]CheckFunc{"storage": ok, "queue": down},
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"storage": "healthy", "queue": "unhealthy: connection refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewHealthChecker("test", tt.checks)
			w := httptest.NewRecorder()
			h.HealthCheck(w, httptest.NewRequest(http.MethodGet, "/healthz?mode="+tt.mode, nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var resp HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if len(resp.Checks) != len(tt.wantChecks) {
				t.Fatalf("checks = %v, want %v", resp.Checks, tt.wantChecks)
			}
			for k, v := range tt.wantChecks {
				if resp.Checks[k] != v {
					t.Errorf("check[%s] = %q, want %q", k, resp.Checks[k], v)
				}
			}
		})
	}
}

func TestVersion(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	NewHealthChecker("1.2.3", nil).Version(w, httptest.NewRequest(http.MethodGet, "/version", nil))
	body := decodeBody(t, w.Result())
	data, _ := body["data"].(map[string]any)
	if data["version"] != "1.2.3" {
		t.Errorf("version = %v", data["version"])
	}
}

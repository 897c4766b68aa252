package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogging(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		method    string
		path      string
		status    int
		wantLevel zapcore.Level
	}{
		{name: "GET request", method: "GET", path: "/api/v1/schedule", status: http.StatusOK, wantLevel: zapcore.InfoLevel},
		{name: "POST request", method: "POST", path: "/api/v1/tasks", status: http.StatusCreated, wantLevel: zapcore.InfoLevel},
		{name: "bad gateway", method: "POST", path: "/api/v1/schedule/generate", status: http.StatusBadGateway, wantLevel: zapcore.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zapcore.DebugLevel)
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			chain := RequestID(Logging(zap.New(core))(handler))

			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.RemoteAddr = "192.0.2.7:5555"
			w := httptest.NewRecorder()
			chain.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			entries := logs.FilterMessage("http_request").All()
			if len(entries) != 1 {
				t.Fatalf("expected one http_request entry, got %d", len(entries))
			}
			e := entries[0]
			if e.Level != tt.wantLevel {
				t.Errorf("level = %v, want %v", e.Level, tt.wantLevel)
			}
			fields := e.ContextMap()
			if fields["path"] != tt.path || fields["status_code"] != int64(tt.status) || fields["client_ip"] != "192.0.2.7" {
				t.Errorf("fields = %v", fields)
			}
			if fields["request_id"] == "" || fields["request_id"] != w.Header().Get("X-Request-ID") {
				t.Errorf("request_id = %v, header = %q", fields["request_id"], w.Header().Get("X-Request-ID"))
			}
		})
	}
}

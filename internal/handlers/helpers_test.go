package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
)

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return body
}

func TestRespondJSON(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	respondJSON(w, http.StatusCreated, map[string]string{"message": "hello"})

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected Content-Type 'application/json', got '%s'", ct)
	}
	body := decodeBody(t, resp)
	if success, ok := body["success"].(bool); !ok || !success {
		t.Error("Expected success to be true")
	}
	data, _ := body["data"].(map[string]any)
	if data["message"] != "hello" {
		t.Errorf("Expected message 'hello', got %v", data["message"])
	}
	ts, _ := body["timestamp"].(string)
	if _, err := time.Parse(time.RFC3339, ts); err != nil {
		t.Errorf("Timestamp '%s' is not valid RFC3339: %v", ts, err)
	}
}

func TestRespondJSONError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		status      int
		message     string
		wantMessage string
	}{
		{name: "short message", status: http.StatusBadRequest, message: "Invalid input", wantMessage: "Invalid input"},
		{
			name:        "long message truncated",
			status:      http.StatusBadGateway,
			message:     strings.Repeat("x", 250),
			wantMessage: strings.Repeat("x", maxErrorMessageLength) + "...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			respondJSONError(w, tt.status, "Error", tt.message)
			resp := w.Result()
			defer resp.Body.Close()

			if resp.StatusCode != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, resp.StatusCode)
			}
			body := decodeBody(t, resp)
			if success, ok := body["success"].(bool); !ok || success {
				t.Error("Expected success to be false")
			}
			if body["message"] != tt.wantMessage {
				t.Errorf("message = %v", body["message"])
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	type payload struct {
		Label string `json:"label"`
	}

	tests := []struct {
		name       string
		body       string
		allowEmpty bool
		limit      int64
		wantOK     bool
		wantStatus int
	}{
		{name: "valid", body: `{"label":"monday"}`, wantOK: true},
		{name: "empty allowed", body: "", allowEmpty: true, wantOK: true},
		{name: "empty rejected", body: "", wantStatus: http.StatusBadRequest},
		{name: "unknown field", body: `{"lable":"x"}`, wantStatus: http.StatusBadRequest},
		{name: "malformed", body: `{"label":`, wantStatus: http.StatusBadRequest},
		{name: "too large", body: `{"label":"` + strings.Repeat("a", 64) + `"}`, limit: 16, wantStatus: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(tt.body))
			if tt.limit > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, tt.limit)
			}
			var dst payload
			ok := decodeJSON(w, r, &dst, tt.allowEmpty)
			if ok != tt.wantOK {
				t.Fatalf("decodeJSON() = %v, want %v", ok, tt.wantOK)
			}
			if !ok && w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestPathParams(t *testing.T) {
	t.Parallel()

	r := mux.NewRouter()
	r.HandleFunc("/u/{id}", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := pathUUID(w, r, "id"); ok {
			w.WriteHeader(http.StatusOK)
		}
	})
	r.HandleFunc("/i/{index}", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := pathInt(w, r, "index"); ok {
			w.WriteHeader(http.StatusOK)
		}
	})

	tests := map[string]int{
		"/u/7d1d4c1e-3f0a-4c5e-9a55-1c2b3d4e5f60": http.StatusOK,
		"/u/not-a-uuid":                          http.StatusBadRequest,
		"/i/3":                                   http.StatusOK,
		"/i/three":                               http.StatusBadRequest,
	}
	for path, want := range tests {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != want {
			t.Errorf("%s: status = %d, want %d", path, w.Code, want)
		}
	}
}

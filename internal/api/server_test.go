package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ankify-dev/ankify/internal/pipeline"
)

func testStatus() pipeline.Status {
	return pipeline.Status{
		RunID:         "run-1",
		Stage:         "extract",
		Conversations: 4,
		Candidates:    12,
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := NewServer(8750, testStatus)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv := NewServer(8750, testStatus)

	req := httptest.NewRequest("GET", "/api/v1/ankify/status", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body pipeline.Status
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Stage != "extract" {
		t.Errorf("expected stage extract, got %q", body.Stage)
	}
	if body.Candidates != 12 {
		t.Errorf("expected 12 candidates, got %d", body.Candidates)
	}
}

func TestNotFoundEndpoint(t *testing.T) {
	srv := NewServer(8750, testStatus)

	req := httptest.NewRequest("GET", "/nonexistent", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

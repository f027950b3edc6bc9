package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

func TestList_PagesThroughListing(t *testing.T) {
	all := []ConversationStub{
		{ID: "c1", Title: "DNA Basics"},
		{ID: "c2", Title: "Threads in C"},
		{ID: "c3", Title: "Untitled"},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sess-token" {
			t.Errorf("expected bearer token, got %q", got)
		}
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit := 2

		end := offset + limit
		if end > len(all) {
			end = len(all)
		}
		page := listResponse{Total: len(all), Offset: offset, Limit: limit}
		if offset < len(all) {
			page.Items = all[offset:end]
		}
		json.NewEncoder(w).Encode(page)
	}))
	defer server.Close()

	c := NewClient(server.URL, "sess-token", 5*time.Second, 3)
	items, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 conversations, got %d", len(items))
	}
	if items[2].ID != "c3" {
		t.Errorf("items[2] = %+v", items[2])
	}
}

func TestFetch_ReturnsRawBody(t *testing.T) {
	raw := `{"id":"c1","title":"DNA Basics","current_node":"n2","mapping":{}}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/conversation/c1" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(raw))
	}))
	defer server.Close()

	c := NewClient(server.URL, "sess-token", 5*time.Second, 3)
	body, err := c.Fetch(context.Background(), "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != raw {
		t.Errorf("body altered: %q", body)
	}
}

func TestFetch_ExpiredSessionNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	c := NewClient(server.URL, "stale", 5*time.Second, 3)
	_, err := c.Fetch(context.Background(), "c1")
	if err == nil {
		t.Fatal("expected error for expired session")
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call for a 401, got %d", calls.Load())
	}
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"id":"c1"}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "sess", 5*time.Second, 3)
	c.backoff = time.Millisecond

	body, err := c.Fetch(context.Background(), "c1")
	if err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if string(body) != `{"id":"c1"}` {
		t.Errorf("unexpected body %q", body)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
}

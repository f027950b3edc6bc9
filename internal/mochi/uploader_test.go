package mochi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ankify-dev/ankify/internal/cards"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestUploadAll_PostsEachCard(t *testing.T) {
	var mu sync.Mutex
	var payloads []cardPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cards" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Basic ") {
			t.Errorf("expected basic auth, got %q", auth)
		}

		var p cardPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		mu.Lock()
		payloads = append(payloads, p)
		mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	u := NewUploader("mochi-key", "deck-1", "", 0, discard())
	u.SetTestTransport(server.URL)

	records := []cards.FinalRecord{
		{Question: "What pairs with adenine?", Answer: "Thymine.", Title: "DNA Basics"},
		{Question: "Which bases pair together?", Answer: "A-T and G-C.", Title: "DNA Basics"},
	}

	created, failed, err := u.UploadAll(context.Background(), records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created != 2 || failed != 0 {
		t.Errorf("created=%d failed=%d, want 2/0", created, failed)
	}

	if len(payloads) != 2 {
		t.Fatalf("expected 2 payloads, got %d", len(payloads))
	}
	if payloads[0].Content != "What pairs with adenine?\n---\nThymine." {
		t.Errorf("content = %q", payloads[0].Content)
	}
	if payloads[0].DeckID != "deck-1" {
		t.Errorf("deck-id = %q", payloads[0].DeckID)
	}
	want := []string{"chatgpt", "socratic", "dna", "auto-generated"}
	if len(payloads[0].ManualTags) != len(want) {
		t.Fatalf("tags = %v, want %v", payloads[0].ManualTags, want)
	}
	for i, tag := range want {
		if payloads[0].ManualTags[i] != tag {
			t.Errorf("tags[%d] = %q, want %q", i, payloads[0].ManualTags[i], tag)
		}
	}
}

func TestUploadAll_FailureIsolation(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	u := NewUploader("mochi-key", "deck-1", "", 0, discard())
	u.SetTestTransport(server.URL)

	records := []cards.FinalRecord{
		{Question: "Bad card?", Answer: ""},
		{Question: "Good card?", Answer: "Yes."},
	}

	created, failed, err := u.UploadAll(context.Background(), records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created != 1 || failed != 1 {
		t.Errorf("created=%d failed=%d, want 1/1", created, failed)
	}
}

func TestUploadAll_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	u := NewUploader("mochi-key", "deck-1", "", 0, discard())
	_, _, err := u.UploadAll(ctx, []cards.FinalRecord{{Question: "Q?"}})
	if err == nil {
		t.Fatal("expected context error")
	}
}

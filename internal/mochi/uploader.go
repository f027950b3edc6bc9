// Package mochi pushes finished flashcards to the Mochi cards API.
package mochi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ankify-dev/ankify/internal/cards"
)

const defaultBaseURL = "https://app.mochi.cards/api"

type Uploader struct {
	apiKey string
	deckID string
	delay  time.Duration
	client *http.Client
	logger *slog.Logger
	apiURL string
}

func NewUploader(apiKey, deckID, baseURL string, delay time.Duration, logger *slog.Logger) *Uploader {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Uploader{
		apiKey: apiKey,
		deckID: deckID,
		delay:  delay,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
		apiURL: baseURL,
	}
}

// SetTestTransport points the uploader at a test server.
func (u *Uploader) SetTestTransport(url string) {
	u.apiURL = url
}

type cardPayload struct {
	Content       string   `json:"content"`
	DeckID        string   `json:"deck-id"`
	ReviewReverse bool     `json:"review-reverse?"`
	ManualTags    []string `json:"manual-tags,omitempty"`
}

// UploadAll pushes each record as one card, pausing between calls to respect
// the API's rate limit. Per-card failures are logged and skipped; the return
// values report how many cards were created and how many failed.
func (u *Uploader) UploadAll(ctx context.Context, records []cards.FinalRecord) (created, failed int, err error) {
	for i, r := range records {
		if err := ctx.Err(); err != nil {
			return created, failed, err
		}

		if err := u.uploadOne(ctx, r); err != nil {
			u.logger.Warn("card upload failed",
				"error", err,
				"question", r.Question,
				"conversation", r.SourceConversation,
			)
			failed++
		} else {
			created++
		}

		if i < len(records)-1 && u.delay > 0 {
			select {
			case <-ctx.Done():
				return created, failed, ctx.Err()
			case <-time.After(u.delay):
			}
		}
	}
	return created, failed, nil
}

func (u *Uploader) uploadOne(ctx context.Context, r cards.FinalRecord) error {
	payload := cardPayload{
		Content:    r.Question + "\n---\n" + r.Answer,
		DeckID:     u.deckID,
		ManualTags: append(cards.Tags(r), "auto-generated"),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal card: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.apiURL+"/cards", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+basicAuth(u.apiKey))

	resp, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("mochi post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("mochi error %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// basicAuth encodes the API key in Mochi's "key as username, blank password"
// scheme.
func basicAuth(apiKey string) string {
	return base64.StdEncoding.EncodeToString([]byte(apiKey + ":"))
}

// Package source fetches raw conversation trees from the upstream
// conversational service's backend API. Acquiring the session token is out of
// scope; it arrives through configuration and this client only spends it.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

type Client struct {
	baseURL    string
	token      string
	client     *http.Client
	maxRetries int
	backoff    time.Duration
}

func NewClient(baseURL, token string, timeout time.Duration, maxRetries int) *Client {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		client:     &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		backoff:    time.Second,
	}
}

// ConversationStub is one entry of the conversations listing.
type ConversationStub struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type listResponse struct {
	Items  []ConversationStub `json:"items"`
	Total  int                `json:"total"`
	Offset int                `json:"offset"`
	Limit  int                `json:"limit"`
}

// List pages through the conversations listing until the reported total is
// reached.
func (c *Client) List(ctx context.Context) ([]ConversationStub, error) {
	const pageSize = 100

	var items []ConversationStub
	offset := 0
	for {
		endpoint := fmt.Sprintf("%s/conversations?offset=%d&limit=%d&order=updated", c.baseURL, offset, pageSize)
		body, err := c.get(ctx, endpoint)
		if err != nil {
			return nil, fmt.Errorf("list conversations: %w", err)
		}

		var page listResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("parse conversations list: %w", err)
		}

		items = append(items, page.Items...)
		offset += len(page.Items)
		if len(page.Items) == 0 || offset >= page.Total {
			return items, nil
		}
	}
}

// Fetch retrieves one conversation's raw tree JSON, unparsed: the fetch stage
// persists trees byte-for-byte and leaves interpretation to later stages.
func (c *Client) Fetch(ctx context.Context, conversationID string) ([]byte, error) {
	endpoint := c.baseURL + "/conversation/" + url.PathEscape(conversationID)
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch conversation %s: %w", conversationID, err)
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	var lastErr error
	backoff := c.backoff
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		body, retryable, err := c.doGet(ctx, endpoint)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}
	return nil, fmt.Errorf("after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *Client) doGet(ctx context.Context, endpoint string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, false, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// Expired or missing session credentials: retrying will not help.
		return nil, false, fmt.Errorf("session rejected (%d): refresh the session token", resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("api error %d", resp.StatusCode)
	default:
		return nil, false, fmt.Errorf("api error %d: %s", resp.StatusCode, string(body))
	}
}

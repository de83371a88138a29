/**
 * @description
 * Client for the Interac e-Transfer request API. The service only generates
 * request links; it never moves money itself.
 */
package interacclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a client for the Interac request-link API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new Interac client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type requestLinkPayload struct {
	RecipientEmail string `json:"recipient_email"`
	RecipientName  string `json:"recipient_name"`
	AmountCents    int64  `json:"amount_cents"`
	Message        string `json:"message"`
}

type requestLinkResponse struct {
	URL string `json:"url"`
}

// CreateRequestLink creates a payment request link for the given recipient
// and amount (in cents) and returns its URL.
func (c *Client) CreateRequestLink(ctx context.Context, recipientEmail, recipientName string, amount int64, message string) (string, error) {
	if c.baseURL == "" {
		return "", fmt.Errorf("interac API base URL is not configured")
	}

	body, err := json.Marshal(requestLinkPayload{
		RecipientEmail: recipientEmail,
		RecipientName:  recipientName,
		AmountCents:    amount,
		Message:        message,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request-link payload: %w", err)
	}

	url := fmt.Sprintf("%s/request-links", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(c.apiKey) != "" {
		req.Header.Set("X-API-Key", strings.TrimSpace(c.apiKey))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request to interac API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("interac API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed requestLinkResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode interac response: %w", err)
	}
	if parsed.URL == "" {
		return "", fmt.Errorf("interac response contained no request link URL")
	}

	return parsed.URL, nil
}

/**
 * @description
 * Client for the document render service, which fills Ontario LTB form
 * templates (N4 notice, L1 application) and returns the PDF bytes.
 */
package docrender

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

// Client is a client for the document render service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new render service client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type renderRequest struct {
	FormType string            `json:"form_type"`
	Fields   map[string]string `json:"fields"`
}

// Render fills the named form template with the given fields and returns
// the rendered PDF.
func (c *Client) Render(ctx context.Context, formType string, fields map[string]string) ([]byte, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("render service base URL is not configured")
	}

	body, err := json.Marshal(renderRequest{FormType: formType, Fields: fields})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal render request: %w", err)
	}

	url := fmt.Sprintf("%s/render", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/pdf")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request to render service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("render service returned status %d: %s", resp.StatusCode, string(respBody))
	}

	document, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered document: %w", err)
	}
	if len(document) == 0 {
		return nil, fmt.Errorf("render service returned an empty document")
	}

	return document, nil
}

/**
 * @description
 * Client for the WhatsApp Cloud API. It sends template messages (rent due,
 * late notices, receipts) and documents (rendered LTB forms). Documents are
 * uploaded to the media endpoint first, then referenced by media id in the
 * message send.
 */
package whatsappclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"
	"time"
)

// Client is a client for the WhatsApp Cloud API.
type Client struct {
	baseURL       string
	accessToken   string
	phoneNumberID string
	httpClient    *http.Client
}

// NewClient creates a new WhatsApp client.
func NewClient(baseURL, accessToken, phoneNumberID string) *Client {
	return &Client{
		baseURL:       strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		accessToken:   accessToken,
		phoneNumberID: phoneNumberID,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
	}
}

type templateParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type templateComponent struct {
	Type       string              `json:"type"`
	Parameters []templateParameter `json:"parameters"`
}

type templatePayload struct {
	Name       string              `json:"name"`
	Language   map[string]string   `json:"language"`
	Components []templateComponent `json:"components,omitempty"`
}

type messagePayload struct {
	MessagingProduct string           `json:"messaging_product"`
	To               string           `json:"to"`
	Type             string           `json:"type"`
	Template         *templatePayload `json:"template,omitempty"`
	Document         *documentPayload `json:"document,omitempty"`
}

type documentPayload struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
}

type messageResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// SendTemplate sends an approved message template to a phone number and
// returns the WhatsApp message id. Body parameters are passed in key order
// so the same params map always yields the same message.
func (c *Client) SendTemplate(ctx context.Context, phone, template string, params map[string]string) (string, error) {
	payload := messagePayload{
		MessagingProduct: "whatsapp",
		To:               phone,
		Type:             "template",
		Template: &templatePayload{
			Name:     template,
			Language: map[string]string{"code": "en"},
		},
	}

	if len(params) > 0 {
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		component := templateComponent{Type: "body"}
		for _, k := range keys {
			component.Parameters = append(component.Parameters, templateParameter{Type: "text", Text: params[k]})
		}
		payload.Template.Components = []templateComponent{component}
	}

	return c.sendMessage(ctx, payload)
}

// SendDocument uploads a document and sends it to a phone number, returning
// the WhatsApp message id.
func (c *Client) SendDocument(ctx context.Context, phone, filename string, document []byte) (string, error) {
	mediaID, err := c.uploadMedia(ctx, filename, document)
	if err != nil {
		return "", err
	}

	payload := messagePayload{
		MessagingProduct: "whatsapp",
		To:               phone,
		Type:             "document",
		Document:         &documentPayload{ID: mediaID, Filename: filename},
	}

	return c.sendMessage(ctx, payload)
}

func (c *Client) sendMessage(ctx context.Context, payload messagePayload) (string, error) {
	if c.baseURL == "" {
		return "", fmt.Errorf("whatsapp API base URL is not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal message payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request to whatsapp API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("whatsapp API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed messageResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode whatsapp response: %w", err)
	}
	if len(parsed.Messages) == 0 {
		return "", fmt.Errorf("whatsapp response contained no message id")
	}

	return parsed.Messages[0].ID, nil
}

func (c *Client) uploadMedia(ctx context.Context, filename string, content []byte) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("messaging_product", "whatsapp"); err != nil {
		return "", fmt.Errorf("failed to build media upload: %w", err)
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to build media upload: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return "", fmt.Errorf("failed to build media upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to build media upload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/media", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("whatsapp media upload returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode media upload response: %w", err)
	}
	if parsed.ID == "" {
		return "", fmt.Errorf("whatsapp media upload returned no id")
	}

	return parsed.ID, nil
}

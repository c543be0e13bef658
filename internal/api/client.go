package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the support backend REST API. Request and response bodies
// are the backend's snake_case contracts; everything here is a thin wire
// wrapper, no business logic.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// NewClient builds a client for the given API base URL, e.g.
// "http://localhost:8000/api". An empty authToken means anonymous access.
func NewClient(baseURL, authToken string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authToken:  authToken,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// APIError is a non-2xx backend response.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Detail)
}

// Reply is the backend's answer to a sent chat message.
type Reply struct {
	ConversationID  string           `json:"conversation_id"`
	MessageID       string           `json:"message_id,omitempty"`
	Content         string           `json:"content"`
	ConfidenceScore *float64         `json:"confidence_score,omitempty"`
	Sources         []map[string]any `json:"sources,omitempty"`
	Escalated       bool             `json:"escalated,omitempty"`
}

// ChatbotConfig is the public widget configuration for one chatbot.
type ChatbotConfig struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	WelcomeMessage string `json:"welcome_message"`
	PrimaryColor   string `json:"primary_color"`
	AvatarURL      string `json:"avatar_url,omitempty"`
}

// SendMessage posts a dashboard chat message for the given organization.
func (c *Client) SendMessage(ctx context.Context, organizationID, sessionID, content string) (*Reply, error) {
	payload := struct {
		Content   string `json:"content"`
		SessionID string `json:"session_id,omitempty"`
	}{Content: content, SessionID: sessionID}

	query := url.Values{"organization_id": {organizationID}}

	var reply Reply
	if err := c.do(ctx, http.MethodPost, "/chat/message", query, payload, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// WidgetMessage posts a message through the public widget endpoint.
func (c *Client) WidgetMessage(ctx context.Context, chatbotID, sessionID, content string) (*Reply, error) {
	payload := struct {
		ChatbotID string `json:"chatbot_id"`
		SessionID string `json:"session_id"`
		Content   string `json:"content"`
	}{ChatbotID: chatbotID, SessionID: sessionID, Content: content}

	var reply Reply
	if err := c.do(ctx, http.MethodPost, "/chat/widget-message", nil, payload, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// PublicConfig fetches the public chatbot configuration used by the widget.
func (c *Client) PublicConfig(ctx context.Context, chatbotID string) (*ChatbotConfig, error) {
	var cfg ChatbotConfig
	path := "/chatbots/" + url.PathEscape(chatbotID) + "/public-config"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// BaseURL exposes the configured API base, used to derive websocket URLs.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var detail struct {
			Detail string `json:"detail"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&detail); decodeErr == nil {
			apiErr.Detail = detail.Detail
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

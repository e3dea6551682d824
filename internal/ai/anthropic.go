package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultEndpoint = "https://api.anthropic.com/v1/messages"
	DefaultVersion  = "2023-06-01"
	DefaultTimeout  = 60 * time.Second
)

// Request is a single-turn completion request.
type Request struct {
	Model     string
	MaxTokens int
	Prompt    string
}

// Completer sends a prompt and returns the model's reply text.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

// Client talks to an Anthropic-style messages endpoint.
type Client struct {
	endpoint string
	apiKey   string
	version  string
	client   *http.Client
}

var _ Completer = (*Client)(nil)

func NewClient(endpoint, apiKey, version string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if version == "" {
		version = DefaultVersion
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		version:  version,
		client:   &http.Client{Timeout: DefaultTimeout},
	}
}

// Complete posts the prompt as a single user message. Only the first content
// block of the reply is used.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("completion client has no API key")
	}

	body, err := json.Marshal(messagesRequest{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
		Messages:  []message{{Role: "user", Content: req.Prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", c.version)
	httpReq.Header.Set("content-type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("sending request to completion API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}

	var out messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(out.Content) == 0 {
		return "", nil
	}
	return out.Content[0].Text, nil
}

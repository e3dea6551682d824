package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	ollama "github.com/ollama/ollama/api"
)

const DefaultOllamaHost = "http://localhost:11434"

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// OllamaClient runs completions against a local Ollama server.
type OllamaClient struct {
	model  string
	client *ollama.Client
}

var _ Completer = (*OllamaClient)(nil)

// NewOllamaClient connects to host. The model, when set, overrides the model
// named in each request since local model names differ from hosted ones.
func NewOllamaClient(host, model string) (*OllamaClient, error) {
	if host == "" {
		host = DefaultOllamaHost
	}
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parsing ollama host %q: %w", host, err)
	}

	return &OllamaClient{
		model:  model,
		client: ollama.NewClient(base, &http.Client{Timeout: DefaultTimeout}),
	}, nil
}

func (c *OllamaClient) Complete(ctx context.Context, req Request) (string, error) {
	model := req.Model
	if c.model != "" {
		model = c.model
	}

	stream := false
	var reply strings.Builder
	err := c.client.Generate(ctx, &ollama.GenerateRequest{
		Model:  model,
		Prompt: req.Prompt,
		Stream: &stream,
		Options: map[string]interface{}{
			"temperature": 0.2,
			"num_predict": req.MaxTokens,
		},
	}, func(res ollama.GenerateResponse) error {
		reply.WriteString(res.Response)
		return nil
	})
	if err != nil {
		var se ollama.StatusError
		if errors.As(err, &se) {
			return "", &APIError{StatusCode: se.StatusCode, Body: se.ErrorMessage}
		}
		return "", fmt.Errorf("sending request to ollama: %w", err)
	}

	return strings.TrimSpace(thinkBlock.ReplaceAllString(reply.String(), "")), nil
}

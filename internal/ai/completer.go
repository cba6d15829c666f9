// Package ai builds prompts for the form generator, document extractor and
// form auto-filler, calls a completion model and turns its answers into
// validated, typed results.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"
)

var (
	// ErrUpstream wraps transport failures and timeouts of the completion API
	ErrUpstream = errors.New("completion service unavailable")
	// ErrInvalidResponse is returned when the model output does not match the
	// expected schema
	ErrInvalidResponse = errors.New("invalid completion response")
)

// CompletionRequest is a single prompt sent to the model
type CompletionRequest struct {
	Prompt      string
	Temperature float32
	// JSONOutput asks the model to answer with a JSON document
	JSONOutput bool
}

// Completer returns the raw text answer for a prompt
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// GenAICompleter calls the Gemini API
type GenAICompleter struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGenAICompleter creates a completer for model. Each call is bounded by
// timeout.
func NewGenAICompleter(ctx context.Context, apiKey, model string, timeout time.Duration) (*GenAICompleter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GenAICompleter{client: client, model: model, timeout: timeout}, nil
}

func (c *GenAICompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if req.JSONOutput {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w: empty response", ErrUpstream)
	}
	return text, nil
}

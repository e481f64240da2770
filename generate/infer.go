// Package generate talks to an OpenAI-compatible chat-completions API,
// either as one blocking request or as an incremental token stream.
package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/syngh-ai/syngh"
)

// Options are the sampling parameters for one request.
type Options struct {
	Model       string
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// OptionsFor builds request options from a config profile.
func OptionsFor(p syngh.ProfileConfig) Options {
	return Options{
		Model:       syngh.ResolveModel(p),
		Temperature: p.Temperature,
		TopP:        p.TopP,
		MaxTokens:   p.MaxTokens,
	}
}

// Generator performs text generation via an OpenAI-compatible API.
type Generator struct {
	baseURL string
	apiKey  string
	timeout time.Duration // applies to blocking requests only
	client  *http.Client
}

// NewGenerator creates a generator for the given endpoint. A zero timeout
// leaves blocking requests bounded only by their context.
func NewGenerator(baseURL, apiKey string, timeout time.Duration) *Generator {
	return &Generator{
		baseURL: baseURL,
		apiKey:  apiKey,
		timeout: timeout,
		client:  &http.Client{},
	}
}

type chatCompletionsRequest struct {
	Model       string          `json:"model"`
	Messages    []syngh.Message `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
	TopP        float64         `json:"top_p,omitempty"`
	MaxTokens   int             `json:"max_completion_tokens,omitempty"`
	Stream      bool            `json:"stream"`
}

type chatCompletionsResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *apiError    `json:"error,omitempty"`
}

type chatChoice struct {
	Message syngh.Message `json:"message"`
	Delta   *chatDelta    `json:"delta,omitempty"`
}

type chatDelta struct {
	Content string `json:"content"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Complete sends msgs and returns the full response text.
func (g *Generator) Complete(ctx context.Context, msgs []syngh.Message, opts Options) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.post(ctx, msgs, opts, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var result chatCompletionsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w (body: %s)", err, string(body))
	}

	if result.Error != nil {
		return "", fmt.Errorf("API error: %s", result.Error.Message)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	slog.Debug("completion finished", "model", opts.Model, "elapsed", time.Since(start))
	return result.Choices[0].Message.Content, nil
}

// Stream sends msgs with streaming enabled. The returned Stream must be
// drained or closed by the caller.
func (g *Generator) Stream(ctx context.Context, msgs []syngh.Message, opts Options) (*Stream, error) {
	resp, err := g.post(ctx, msgs, opts, true)
	if err != nil {
		return nil, err
	}
	return newStream(resp.Body), nil
}

// post sends the request and returns the response when the status is 200.
func (g *Generator) post(ctx context.Context, msgs []syngh.Message, opts Options, stream bool) (*http.Response, error) {
	reqBody := chatCompletionsRequest{
		Model:       opts.Model,
		Messages:    msgs,
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
		MaxTokens:   opts.MaxTokens,
		Stream:      stream,
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	g.setHeaders(httpReq, stream)

	slog.Debug("sending completion request", "model", opts.Model, "messages", len(msgs), "stream", stream)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}
	return resp, nil
}

// setHeaders sets common headers for API requests.
func (g *Generator) setHeaders(req *http.Request, stream bool) {
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}
}

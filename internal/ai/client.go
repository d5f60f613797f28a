// Package ai wraps the generative model provider behind a small completion
// interface. The provider speaks the OpenAI chat-completions dialect; the
// client carries an ordered chain of model identifiers, and requests that opt
// in advance to the next entry only when the provider answers 429 or 503.
package ai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nandhanalahari/preva/internal/config"
)

var (
	// ErrNotConfigured means the provider credential is missing
	ErrNotConfigured = errors.New("ai provider is not configured")
	// ErrEmptyResponse means the model returned no usable text
	ErrEmptyResponse = errors.New("empty response from model")
)

// Completer is the surface the workflows depend on
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Request is one completion call. When JSONOnly is set the provider is asked
// for a JSON-object response where it supports that; output still goes
// through the repair parser because not every host honors it. Fallback opts
// the call into the model chain; without it the primary model is tried once
// and any failure surfaces to the caller.
type Request struct {
	System   string
	Prompt   string
	JSONOnly bool
	Fallback bool
}

// Client calls an OpenAI-compatible inference host
type Client struct {
	api        *openai.Client
	models     []string
	configured bool
}

// NewClient constructs a provider client. A missing API key is not an error
// here; calls fail with ErrNotConfigured so the condition surfaces per
// request, matching the rest of the error taxonomy.
func NewClient(cfg config.AIConfig) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &Client{
		api:        openai.NewClientWithConfig(oc),
		models:     cfg.Models,
		configured: cfg.APIKey != "",
	}
}

// Complete runs the prompt and returns the completion text. The primary
// model is tried once; only requests with Fallback set walk the rest of the
// chain, and only on 429/503.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if !c.configured {
		return "", ErrNotConfigured
	}
	if len(c.models) == 0 {
		return "", ErrNotConfigured
	}

	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	ccr := openai.ChatCompletionRequest{
		Messages:    messages,
		Temperature: 0.2,
	}
	if req.JSONOnly {
		ccr.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	models := c.models
	if !req.Fallback {
		models = models[:1]
	}

	var lastErr error
	for _, model := range models {
		ccr.Model = model
		resp, err := c.api.CreateChatCompletion(ctx, ccr)
		if err != nil {
			lastErr = err
			if req.Fallback && isOverloaded(err) {
				continue
			}
			return "", fmt.Errorf("model call failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", ErrEmptyResponse
		}
		return resp.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("all models unavailable: %w", lastErr)
}

// isOverloaded reports whether the provider asked us to back off. Only these
// two statuses advance the fallback chain; anything else propagates.
func isOverloaded(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode == 503
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode == 503
	}
	return false
}

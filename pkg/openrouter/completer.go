package openrouter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
)

// CompletionRequest is a single-shot chat completion. JSONOnly turns on the
// provider's constrained JSON-object output mode.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	JSONOnly     bool
}

// Completer performs plain chat completions through the OpenAI SDK, outside
// the eino graph machinery. The router uses it for its constrained
// classification call.
type Completer struct {
	client      *openaisdk.Client
	model       string
	temperature float32
}

func NewCompleter(cfg Config) (*Completer, error) {
	client := NewClient(cfg)
	if client == nil {
		return nil, errors.New("openrouter: api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, errors.New("openrouter: model is required")
	}
	return &Completer{
		client:      client,
		model:       model,
		temperature: cfg.Temperature,
	}, nil
}

func (c *Completer) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	params := openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(c.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(req.SystemPrompt),
			openaisdk.UserMessage(req.UserPrompt),
		},
		Temperature: openaisdk.Float(float64(c.temperature)),
	}
	if req.JSONOnly {
		params.ResponseFormat = openaisdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openaisdk.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openrouter: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openrouter: completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

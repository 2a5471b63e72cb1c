package completer

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/docling-graph/core/internal/xerrors"
)

// OpenAICompleter is a JsonCompleter backed by OpenAI chat completions
// with JSON response-format mode, generalizing coderisk's
// internal/llm/client.go completeOpenAI path.
type OpenAICompleter struct {
	client       *openai.Client
	model        string
	contextLimit int
}

// NewOpenAICompleter constructs a completer against the public OpenAI API
// (or a compatible base URL, e.g. an OpenAI-compatible gateway).
func NewOpenAICompleter(apiKey, model, baseURL string, contextLimit int) *OpenAICompleter {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if contextLimit == 0 {
		contextLimit = 128_000
	}
	return &OpenAICompleter{client: openai.NewClientWithConfig(cfg), model: model, contextLimit: contextLimit}
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt Prompt, schema JsonSchema, params Params) (Result, error) {
	if params.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, params.Deadline)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.System},
			{Role: openai.ChatMessageRoleUser, Content: prompt.User},
		},
		Temperature:    float32(params.Temperature),
		MaxTokens:      params.MaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, xerrors.CompletionTimeout(err)
		}
		return Result{}, xerrors.CompletionFailure(err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, xerrors.CompletionFailure(fmt.Errorf("completion returned no choices"))
	}

	return Result{
		JSON:         resp.Choices[0].Message.Content,
		PromptTokens: resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

func (c *OpenAICompleter) ContextLimit() int { return c.contextLimit }

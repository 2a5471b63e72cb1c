package completer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/docling-graph/core/internal/xerrors"
)

// OpenAIStructuredCompleter uses the official SDK's structured-output
// path (response_format: json_schema) to satisfy config.StructuredOutput
// — the completer enforces the IR envelope rather than merely requesting
// JSON, closing the gap the plain OpenAICompleter leaves open.
type OpenAIStructuredCompleter struct {
	client       openai.Client
	model        string
	contextLimit int
}

// NewOpenAIStructuredCompleter constructs a structured-output completer.
func NewOpenAIStructuredCompleter(apiKey, model, baseURL string, contextLimit int) *OpenAIStructuredCompleter {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if contextLimit == 0 {
		contextLimit = 128_000
	}
	return &OpenAIStructuredCompleter{client: openai.NewClient(opts...), model: model, contextLimit: contextLimit}
}

func (c *OpenAIStructuredCompleter) Complete(ctx context.Context, prompt Prompt, schema JsonSchema, params Params) (Result, error) {
	if params.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, params.Deadline)
		defer cancel()
	}

	schemaParam := shared.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "batch_ir",
		Schema:      map[string]any(schema),
		Strict:      openai.Bool(true),
		Description: openai.String("delta extraction IR envelope"),
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt.System),
			openai.UserMessage(prompt.User),
		},
		Temperature: openai.Float(params.Temperature),
		MaxTokens:   openai.Int(int64(params.MaxTokens)),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{JSONSchema: schemaParam},
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, xerrors.CompletionTimeout(err)
		}
		return Result{}, xerrors.CompletionFailure(err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, xerrors.CompletionFailure(fmt.Errorf("completion returned no choices"))
	}

	content := resp.Choices[0].Message.Content
	if !json.Valid([]byte(content)) {
		return Result{}, xerrors.SchemaEnforcementFailure("structured completion returned invalid JSON")
	}

	return Result{
		JSON:         content,
		PromptTokens: int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}, nil
}

func (c *OpenAIStructuredCompleter) ContextLimit() int { return c.contextLimit }

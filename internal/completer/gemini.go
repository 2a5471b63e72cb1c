package completer

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/docling-graph/core/internal/xerrors"
)

// GeminiCompleter is a third JsonCompleter backend, generalizing the
// Gemini usage the teacher's internal/llm package carries alongside its
// OpenAI/Anthropic paths.
type GeminiCompleter struct {
	client       *genai.Client
	model        string
	contextLimit int
}

// NewGeminiCompleter constructs a completer against the Gemini API.
func NewGeminiCompleter(ctx context.Context, apiKey, model string, contextLimit int) (*GeminiCompleter, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, xerrors.ConfigurationError("create gemini client: %v", err)
	}
	if contextLimit == 0 {
		contextLimit = 1_000_000
	}
	return &GeminiCompleter{client: client, model: model, contextLimit: contextLimit}, nil
}

func (c *GeminiCompleter) Complete(ctx context.Context, prompt Prompt, schema JsonSchema, params Params) (Result, error) {
	if params.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, params.Deadline)
		defer cancel()
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(prompt.System, genai.RoleUser),
		Temperature:       genai.Ptr(float32(params.Temperature)),
		MaxOutputTokens:   int32(params.MaxTokens),
		ResponseMIMEType:  "application/json",
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt.User), cfg)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, xerrors.CompletionTimeout(err)
		}
		return Result{}, xerrors.CompletionFailure(err)
	}

	text := resp.Text()
	if text == "" {
		return Result{}, xerrors.CompletionFailure(fmt.Errorf("gemini completion returned no text"))
	}

	var promptTokens, outputTokens int
	if resp.UsageMetadata != nil {
		promptTokens = int(resp.UsageMetadata.PromptTokenCount)
		outputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	return Result{JSON: text, PromptTokens: promptTokens, OutputTokens: outputTokens}, nil
}

func (c *GeminiCompleter) ContextLimit() int { return c.contextLimit }

package main

import (
	"context"
	"fmt"

	"github.com/docling-graph/core/internal/completer"
	"github.com/docling-graph/core/internal/completer/ratelimit"
	"github.com/docling-graph/core/internal/config"
)

// buildCompleter resolves cfg.Completer.Provider into a concrete
// JsonCompleter, wrapping it in a rate limiter when RPM/TPM limits are
// configured (spec §6 "Consumed").
func buildCompleter(ctx context.Context, ccfg config.CompleterConfig) (completer.JsonCompleter, error) {
	var base completer.JsonCompleter

	switch ccfg.Provider {
	case "", "fake":
		base = completer.NewFake(`{}`)
	case "openai":
		base = completer.NewOpenAICompleter(ccfg.APIKey, ccfg.Model, ccfg.BaseURL, contextLimitFor(ccfg.Model))
	case "openai-structured":
		base = completer.NewOpenAIStructuredCompleter(ccfg.APIKey, ccfg.Model, ccfg.BaseURL, contextLimitFor(ccfg.Model))
	case "gemini":
		g, err := completer.NewGeminiCompleter(ctx, ccfg.APIKey, ccfg.Model, contextLimitFor(ccfg.Model))
		if err != nil {
			return nil, fmt.Errorf("build gemini completer: %w", err)
		}
		base = g
	default:
		return nil, fmt.Errorf("unknown completer provider %q", ccfg.Provider)
	}

	if ccfg.RedisURL != "" {
		return ratelimit.NewRedisLimited(base, ccfg.RedisURL, ccfg.RPMLimit, "docling-graph")
	}
	if ccfg.RPMLimit > 0 || ccfg.TPMLimit > 0 {
		return ratelimit.New(base, ccfg.RPMLimit, ccfg.TPMLimit), nil
	}
	return base, nil
}

// contextLimitFor gives a conservative default context window of 128k
// tokens; it returns the same value for every model.
func contextLimitFor(model string) int {
	return 128_000
}

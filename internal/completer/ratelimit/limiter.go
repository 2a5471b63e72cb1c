// Package ratelimit wraps a JsonCompleter with request-per-minute and
// token-per-minute gates, generalizing coderisk's internal/llm/rate_limiter.go.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/docling-graph/core/internal/completer"
)

// DefaultRPM and DefaultTPM mirror the teacher's conservative defaults
// for a single-key provider account.
const (
	DefaultRPM = 500
	DefaultTPM = 200_000
)

// Limited wraps a JsonCompleter with local (in-process) token-bucket
// limiters for requests/minute and tokens/minute (spec §5 "Timeouts" —
// the limiter sits alongside each complete call's own deadline).
type Limited struct {
	inner        completer.JsonCompleter
	requests     *rate.Limiter
	tokenEstimate int // conservative per-call token estimate used to reserve budget before the call
	tokens       *rate.Limiter
}

// New wraps inner with RPM/TPM limiters. rpm/tpm of 0 fall back to the
// package defaults.
func New(inner completer.JsonCompleter, rpm, tpm int64) *Limited {
	if rpm <= 0 {
		rpm = DefaultRPM
	}
	if tpm <= 0 {
		tpm = DefaultTPM
	}
	return &Limited{
		inner:         inner,
		requests:      rate.NewLimiter(rate.Limit(float64(rpm)/60.0), int(rpm)),
		tokens:        rate.NewLimiter(rate.Limit(float64(tpm)/60.0), int(tpm)),
		tokenEstimate: 2000,
	}
}

func (l *Limited) Complete(ctx context.Context, prompt completer.Prompt, schema completer.JsonSchema, params completer.Params) (completer.Result, error) {
	if err := l.requests.Wait(ctx); err != nil {
		return completer.Result{}, err
	}
	estimate := params.MaxTokens
	if estimate <= 0 {
		estimate = l.tokenEstimate
	}
	if err := l.tokens.WaitN(ctx, estimate); err != nil {
		return completer.Result{}, err
	}
	return l.inner.Complete(ctx, prompt, schema, params)
}

func (l *Limited) ContextLimit() int { return l.inner.ContextLimit() }

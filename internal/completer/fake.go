package completer

import (
	"context"
	"sync"
)

// Fake is a deterministic JsonCompleter returning canned JSON per call,
// used by tests in place of a live provider (spec §2.4 "Test tooling").
type Fake struct {
	mu       sync.Mutex
	Queue    []string // responses, consumed in order
	Default  string   // returned once Queue is exhausted
	Err      error    // if set, returned on every call instead of a result
	Calls    []Prompt // records every prompt seen, for assertions
	Contexts []context.Context
}

// NewFake returns a Fake completer seeded with a single canned response.
func NewFake(json string) *Fake {
	return &Fake{Default: json}
}

func (f *Fake) Complete(ctx context.Context, prompt Prompt, schema JsonSchema, params Params) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, prompt)
	f.Contexts = append(f.Contexts, ctx)

	if f.Err != nil {
		return Result{}, f.Err
	}

	if len(f.Queue) > 0 {
		next := f.Queue[0]
		f.Queue = f.Queue[1:]
		return Result{JSON: next}, nil
	}
	return Result{JSON: f.Default}, nil
}

func (f *Fake) ContextLimit() int { return 128_000 }

// CallCount returns the number of Complete invocations observed so far.
func (f *Fake) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

package config

import (
	"fmt"

	"github.com/docling-graph/core/internal/xerrors"
)

// validationResult accumulates configuration problems the way the
// teacher's validator does; ValidateConfig reports every accumulated
// problem together in a single xerrors.ConfigurationError.
type validationResult struct {
	errors []string
}

func (r *validationResult) add(format string, args ...any) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func (r *validationResult) hasErrors() bool {
	return len(r.errors) > 0
}

// ValidateConfig rejects contradictory option combinations before an
// extraction starts, returning xerrors.ConfigurationError (exit code 1 per
// spec §7) describing every problem found.
func ValidateConfig(cfg *Config) error {
	r := &validationResult{}

	switch cfg.ExtractionContract {
	case ContractDelta, ContractStaged, ContractDirect:
	default:
		r.add("extraction_contract must be one of delta, staged, direct; got %q", cfg.ExtractionContract)
	}

	if cfg.ChunkMaxTokens <= 0 {
		r.add("chunk_max_tokens must be positive; got %d", cfg.ChunkMaxTokens)
	}

	if cfg.MergeThreshold < 0 || cfg.MergeThreshold > 1 {
		r.add("merge_threshold must be in [0,1]; got %.2f", cfg.MergeThreshold)
	}

	if cfg.StagedPassRetries < 0 {
		r.add("staged_pass_retries must be non-negative; got %d", cfg.StagedPassRetries)
	}

	if cfg.StagedNodesFillCap < 0 {
		r.add("staged_nodes_fill_cap must be non-negative; got %d", cfg.StagedNodesFillCap)
	}

	switch cfg.DeltaResolversMode {
	case ResolversOff, ResolversExact, ResolversFuzzy:
	default:
		r.add("delta_resolvers_mode must be one of off, exact, fuzzy; got %q", cfg.DeltaResolversMode)
	}

	if cfg.DeltaQualityMinInstances < 0 {
		r.add("delta_quality_min_instances must be non-negative; got %d", cfg.DeltaQualityMinInstances)
	}

	if cfg.GleaningEnabled && cfg.GleaningMaxPasses < 1 {
		r.add("gleaning_max_passes must be at least 1 when gleaning_enabled is true; got %d", cfg.GleaningMaxPasses)
	}
	if cfg.GleaningMaxPasses < 0 {
		r.add("gleaning_max_passes must be non-negative; got %d", cfg.GleaningMaxPasses)
	}

	if cfg.BatchWorkers < 1 {
		r.add("batch_workers must be at least 1; got %d", cfg.BatchWorkers)
	}

	if cfg.Completer.Provider == "" {
		r.add("completer.provider must be set")
	}
	if cfg.Completer.Deadline < 0 {
		r.add("completer.deadline must be non-negative")
	}
	if cfg.Completer.RPMLimit < 0 || cfg.Completer.TPMLimit < 0 {
		r.add("completer rate limits must be non-negative")
	}

	switch cfg.Storage.Type {
	case "", "sqlite", "postgres":
	default:
		r.add("storage.type must be one of \"\", sqlite, postgres; got %q", cfg.Storage.Type)
	}
	if cfg.Storage.Type == "postgres" && cfg.Storage.PostgresDSN == "" {
		r.add("storage.postgres_dsn is required when storage.type is postgres")
	}

	if !r.hasErrors() {
		return nil
	}

	msg := "invalid configuration:"
	for _, e := range r.errors {
		msg += "\n  - " + e
	}
	return xerrors.ConfigurationError("%s", msg)
}

// Package config loads the pipeline's configuration surface (spec.md §6)
// from defaults, a YAML file, environment variables, and optionally the OS
// keychain. The completer API key is taken from COMPLETER_API_KEY first,
// then the keychain, then the config file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ExtractionContract selects the top-level extraction flow.
type ExtractionContract string

const (
	ContractDelta  ExtractionContract = "delta"
	ContractStaged ExtractionContract = "staged"
	ContractDirect ExtractionContract = "direct"
)

// ResolversMode controls how aggressively the normalizer repairs
// off-by-one parent references (spec §4.5).
type ResolversMode string

const (
	ResolversOff   ResolversMode = "off"
	ResolversExact ResolversMode = "exact"
	ResolversFuzzy ResolversMode = "fuzzy"
)

// Config holds every recognized option from spec.md §6 plus the ambient
// completer/storage sub-configs needed to run the pipeline.
type Config struct {
	ExtractionContract ExtractionContract `yaml:"extraction_contract" mapstructure:"extraction_contract"`

	ChunkMaxTokens    int     `yaml:"chunk_max_tokens" mapstructure:"chunk_max_tokens"`
	MergeThreshold    float64 `yaml:"merge_threshold" mapstructure:"merge_threshold"`
	StagedPassRetries int     `yaml:"staged_pass_retries" mapstructure:"staged_pass_retries"`

	StagedNodesFillCap           int  `yaml:"staged_nodes_fill_cap" mapstructure:"staged_nodes_fill_cap"`
	DeltaNormalizerValidatePaths bool `yaml:"delta_normalizer_validate_paths" mapstructure:"delta_normalizer_validate_paths"`

	DeltaResolversMode       ResolversMode `yaml:"delta_resolvers_mode" mapstructure:"delta_resolvers_mode"`
	DeltaQualityMinInstances int           `yaml:"delta_quality_min_instances" mapstructure:"delta_quality_min_instances"`

	GleaningEnabled   bool `yaml:"gleaning_enabled" mapstructure:"gleaning_enabled"`
	GleaningMaxPasses int  `yaml:"gleaning_max_passes" mapstructure:"gleaning_max_passes"`

	StructuredOutput      bool `yaml:"structured_output" mapstructure:"structured_output"`
	StructuredSparseCheck bool `yaml:"structured_sparse_check" mapstructure:"structured_sparse_check"`

	// BatchWorkers bounds the concurrent JsonCompleter calls dispatched over
	// independent batches (spec §5); 1 means single-threaded.
	BatchWorkers int `yaml:"batch_workers" mapstructure:"batch_workers"`

	// Debug enables the full TraceData snapshot (SPEC_FULL §4) in addition
	// to the coarse TraceEvent ring.
	Debug bool `yaml:"debug" mapstructure:"debug"`

	Completer CompleterConfig `yaml:"completer" mapstructure:"completer"`
	Storage   StorageConfig   `yaml:"storage" mapstructure:"storage"`
}

// CompleterConfig selects and authenticates the JsonCompleter backend.
type CompleterConfig struct {
	Provider    string        `yaml:"provider" mapstructure:"provider"` // "openai", "openai-structured", "gemini", "fake"
	Model       string        `yaml:"model" mapstructure:"model"`
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	UseKeychain bool          `yaml:"use_keychain" mapstructure:"use_keychain"`
	Deadline    time.Duration `yaml:"deadline" mapstructure:"deadline"`

	RPMLimit int64  `yaml:"rpm_limit" mapstructure:"rpm_limit"`
	TPMLimit int64  `yaml:"tpm_limit" mapstructure:"tpm_limit"`
	RedisURL string `yaml:"redis_url" mapstructure:"redis_url"` // shared cross-process limiter, optional
}

// StorageConfig selects the persistence backend for the node ID registry
// and the trace store. The pipeline runs fully in-memory when Type is "".
type StorageConfig struct {
	Type        string `yaml:"type" mapstructure:"type"` // "", "sqlite", "postgres"
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn" mapstructure:"postgres_dsn"`
	BoltPath    string `yaml:"bolt_path" mapstructure:"bolt_path"`

	Neo4jURI      string `yaml:"neo4j_uri" mapstructure:"neo4j_uri"`
	Neo4jDatabase string `yaml:"neo4j_database" mapstructure:"neo4j_database"`
	Neo4jUser     string `yaml:"neo4j_user" mapstructure:"neo4j_user"`
	Neo4jPassword string `yaml:"neo4j_password" mapstructure:"neo4j_password"`
}

// Default returns the spec-mandated defaults (spec.md §6 table).
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		ExtractionContract:           ContractDelta,
		ChunkMaxTokens:               512,
		MergeThreshold:               0.85,
		StagedPassRetries:            2,
		StagedNodesFillCap:           200,
		DeltaNormalizerValidatePaths: false,
		DeltaResolversMode:           ResolversOff,
		DeltaQualityMinInstances:     1,
		GleaningEnabled:              true,
		GleaningMaxPasses:            2,
		StructuredOutput:             true,
		StructuredSparseCheck:        true,
		BatchWorkers:                 4,
		Completer: CompleterConfig{
			Provider: "fake",
			Model:    "gpt-4o-mini",
			Deadline: 60 * time.Second,
			RPMLimit: 1000,
			TPMLimit: 1_000_000,
		},
		Storage: StorageConfig{
			SQLitePath: filepath.Join(homeDir, ".docling-graph", "registry.db"),
			BoltPath:   filepath.Join(homeDir, ".docling-graph", "trace.bolt"),
		},
	}
}

// Load reads configuration from .env files, an optional YAML file, and
// environment variables (prefix DOCGRAPH_), in that order of increasing
// precedence, layered over Default().
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("extraction_contract", cfg.ExtractionContract)
	v.SetDefault("chunk_max_tokens", cfg.ChunkMaxTokens)
	v.SetDefault("merge_threshold", cfg.MergeThreshold)
	v.SetDefault("staged_pass_retries", cfg.StagedPassRetries)
	v.SetDefault("staged_nodes_fill_cap", cfg.StagedNodesFillCap)
	v.SetDefault("delta_normalizer_validate_paths", cfg.DeltaNormalizerValidatePaths)
	v.SetDefault("delta_resolvers_mode", cfg.DeltaResolversMode)
	v.SetDefault("delta_quality_min_instances", cfg.DeltaQualityMinInstances)
	v.SetDefault("gleaning_enabled", cfg.GleaningEnabled)
	v.SetDefault("gleaning_max_passes", cfg.GleaningMaxPasses)
	v.SetDefault("structured_output", cfg.StructuredOutput)
	v.SetDefault("structured_sparse_check", cfg.StructuredSparseCheck)
	v.SetDefault("batch_workers", cfg.BatchWorkers)
	v.SetDefault("completer", cfg.Completer)
	v.SetDefault("storage", cfg.Storage)

	v.SetEnvPrefix("DOCGRAPH")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".docling-graph")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".docling-graph"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadEnvFiles loads .env files in order of precedence.
func loadEnvFiles() {
	for _, file := range []string{".env.local", ".env"} {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}
	homeDir, _ := os.UserHomeDir()
	home := filepath.Join(homeDir, ".docling-graph", ".env")
	if _, err := os.Stat(home); err == nil {
		godotenv.Load(home)
	}
}

// applyEnvOverrides applies the handful of env vars that need custom
// parsing (durations, keychain precedence) beyond viper's automatic binding.
func applyEnvOverrides(cfg *Config) {
	if key := os.Getenv("COMPLETER_API_KEY"); key != "" {
		cfg.Completer.APIKey = key
	} else if cfg.Completer.UseKeychain {
		km := NewKeyringManager()
		if km.IsAvailable() {
			if key, err := km.GetAPIKey(cfg.Completer.Provider); err == nil && key != "" {
				cfg.Completer.APIKey = key
			}
		}
	}
	if deadline := os.Getenv("COMPLETER_DEADLINE_SECONDS"); deadline != "" {
		if secs, err := strconv.Atoi(deadline); err == nil {
			cfg.Completer.Deadline = time.Duration(secs) * time.Second
		}
	}
	if rpm := os.Getenv("COMPLETER_RPM_LIMIT"); rpm != "" {
		if n, err := strconv.ParseInt(rpm, 10, 64); err == nil {
			cfg.Completer.RPMLimit = n
		}
	}
	if path := os.Getenv("STORAGE_SQLITE_PATH"); path != "" {
		cfg.Storage.SQLitePath = expandPath(path)
	}
	if dsn := os.Getenv("STORAGE_POSTGRES_DSN"); dsn != "" {
		cfg.Storage.PostgresDSN = dsn
	}
	if threshold := os.Getenv("MERGE_THRESHOLD"); threshold != "" {
		if f, err := strconv.ParseFloat(threshold, 64); err == nil {
			cfg.MergeThreshold = f
		}
	}
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, path[1:])
}

// Save writes the configuration back to a YAML file, mirroring the
// teacher's config.Save so a `configure` CLI command can persist edits.
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("extraction_contract", c.ExtractionContract)
	v.Set("chunk_max_tokens", c.ChunkMaxTokens)
	v.Set("merge_threshold", c.MergeThreshold)
	v.Set("staged_pass_retries", c.StagedPassRetries)
	v.Set("staged_nodes_fill_cap", c.StagedNodesFillCap)
	v.Set("delta_normalizer_validate_paths", c.DeltaNormalizerValidatePaths)
	v.Set("delta_resolvers_mode", c.DeltaResolversMode)
	v.Set("delta_quality_min_instances", c.DeltaQualityMinInstances)
	v.Set("gleaning_enabled", c.GleaningEnabled)
	v.Set("gleaning_max_passes", c.GleaningMaxPasses)
	v.Set("structured_output", c.StructuredOutput)
	v.Set("structured_sparse_check", c.StructuredSparseCheck)
	v.Set("batch_workers", c.BatchWorkers)
	v.Set("completer", c.Completer)
	v.Set("storage", c.Storage)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

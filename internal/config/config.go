// Package config defines the on-disk configuration record and loads
// it through viper, binding file, environment, and default values;
// environment overrides the file, which overrides the defaults — the same layering josephgoksu-TaskWing's
// cmd/config.go wires for its own AppConfig. The record shape mirrors
// original_source/src/config.rs's Config section-by-section, down to
// its default constants, since the workspace/analysis/architecture/
// memgraph/embeddings/performance/framework/cross_crate split is what
// §6.1 names.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"crateindex/internal/discover"
	"crateindex/internal/errs"
)

// Config is the full on-disk configuration record.
type Config struct {
	Workspace    WorkspaceConfig    `mapstructure:"workspace" validate:"required"`
	Analysis     AnalysisConfig     `mapstructure:"analysis"`
	Architecture ArchitectureConfig `mapstructure:"architecture"`
	Memgraph     MemgraphConfig     `mapstructure:"memgraph" validate:"required"`
	Embeddings   EmbeddingsConfig   `mapstructure:"embeddings"`
	Performance  PerformanceConfig  `mapstructure:"performance"`
	Framework    FrameworkConfig    `mapstructure:"framework"`
	CrossCrate   CrossCrateConfig   `mapstructure:"cross_crate"`
}

// WorkspaceConfig names the workspace root(s) to scan.
type WorkspaceConfig struct {
	Root            string   `mapstructure:"root" validate:"required"`
	AdditionalRoots []string `mapstructure:"additional_roots"`
}

// AnalysisConfig controls what the discoverer walks.
type AnalysisConfig struct {
	RecursiveScan       bool     `mapstructure:"recursive_scan"`
	IncludeDevDeps      bool     `mapstructure:"include_dev_deps"`
	IncludeBuildDeps    bool     `mapstructure:"include_build_deps"`
	WorkspaceMembersOnly bool    `mapstructure:"workspace_members_only"`
	ExcludeCrates       []string `mapstructure:"exclude_crates"`
}

// ArchitectureConfig carries the ordered layer list the in-core
// violation checker (internal/architecture) evaluates against.
type ArchitectureConfig struct {
	Layers []discover.Layer `mapstructure:"layers"`
}

// MemgraphConfig configures the Bolt connection and upsert behavior.
type MemgraphConfig struct {
	URI         string                    `mapstructure:"uri" validate:"required"`
	Username    string                    `mapstructure:"username"`
	Password    string                    `mapstructure:"password"`
	CleanStart  bool                      `mapstructure:"clean_start"`
	BatchSize   int                       `mapstructure:"batch_size" validate:"min=1"`
	Performance MemgraphPerformanceConfig `mapstructure:"performance"`
	Retry       MemgraphRetryConfig       `mapstructure:"retry"`
	Memory      MemgraphMemoryConfig      `mapstructure:"memory"`
}

// MemgraphPerformanceConfig tunes the connection pool (internal/graph/pool.go).
type MemgraphPerformanceConfig struct {
	UseAnalyticalMode   bool `mapstructure:"use_analytical_mode"`
	ConnectionPoolSize  int  `mapstructure:"connection_pool_size" validate:"min=1"`
	ConnectionTimeoutMs int  `mapstructure:"connection_timeout_ms" validate:"min=1"`
	QueryTimeoutMs      int  `mapstructure:"query_timeout_ms" validate:"min=1"`
}

// MemgraphRetryConfig holds the retry/backoff settings for transient
// graph errors. They are loaded and validated, but the exporter does
// not read them: graph writes are not retried.
type MemgraphRetryConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	MaxAttempts     int     `mapstructure:"max_attempts" validate:"min=1"`
	InitialDelayMs  int     `mapstructure:"initial_delay_ms" validate:"min=1"`
	MaxDelayMs      int     `mapstructure:"max_delay_ms" validate:"min=1"`
	ExponentialBase float64 `mapstructure:"exponential_base" validate:"min=1"`
}

// MemgraphMemoryConfig mirrors the original's memory-pressure monitor
// knobs; crateindex does not itself run the monitor loop (§5 Non-goals
// leave the store's own implementation out of scope) but keeps the
// fields so operators can still author one config file for the whole
// pipeline.
type MemgraphMemoryConfig struct {
	MonitorIntervalMs   int     `mapstructure:"monitor_interval_ms" validate:"min=1"`
	AutoFreeThresholdMB float64 `mapstructure:"auto_free_threshold_mb"`
}

// EmbeddingsConfig describes the deterministic embedding text the core
// produces for an external collaborator to vectorize (§4.9 Non-goal:
// no embedding model is called from here).
type EmbeddingsConfig struct {
	Enabled            bool     `mapstructure:"enabled"`
	Model              string   `mapstructure:"model"`
	IncludeInEmbedding []string `mapstructure:"include_in_embedding"`
}

// PerformanceConfig bounds worker concurrency and cache sizing.
type PerformanceConfig struct {
	MaxThreads  int  `mapstructure:"max_threads" validate:"min=1"`
	CacheSizeMB int  `mapstructure:"cache_size_mb" validate:"min=1"`
	Incremental bool `mapstructure:"incremental"`
}

// FrameworkConfig controls the pattern-directed synthesis pass
// (internal/frameworkpattern, internal/macroexpand).
type FrameworkConfig struct {
	Enabled                  bool     `mapstructure:"enabled"`
	PatternsPath             string   `mapstructure:"patterns_path"`
	ExcludedFunctions        []string `mapstructure:"excluded_functions"`
	SyntheticCallGeneration  bool     `mapstructure:"synthetic_call_generation"`
	CustomPatterns           []string `mapstructure:"custom_patterns"`
	SupportedFrameworks      []string `mapstructure:"supported_frameworks"`
}

// CrossCrateConfig controls the global symbol index (internal/index).
type CrossCrateConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	GlobalIndexPath    string `mapstructure:"global_index_path"`
	UseCache           bool   `mapstructure:"use_cache"`
	IncrementalUpdates bool   `mapstructure:"incremental_updates"`
	MaxIndexMemoryMB   int    `mapstructure:"max_index_memory_mb" validate:"min=1"`
}

const envPrefix = "CRATEINDEX"

// Default returns the zero-touch configuration, matching
// original_source's Config::default(): a workspace rooted at ".", a
// local Memgraph instance, and every feature switch on except build
// dependencies and a clean start.
func Default() Config {
	return Config{
		Workspace: WorkspaceConfig{Root: "."},
		Analysis: AnalysisConfig{
			RecursiveScan:        true,
			IncludeDevDeps:       true,
			WorkspaceMembersOnly: true,
		},
		Memgraph: MemgraphConfig{
			URI:       "bolt://localhost:7687",
			BatchSize: 1000,
			Performance: MemgraphPerformanceConfig{
				UseAnalyticalMode:   true,
				ConnectionPoolSize:  4,
				ConnectionTimeoutMs: 5000,
				QueryTimeoutMs:      30000,
			},
			Retry: MemgraphRetryConfig{
				Enabled:         true,
				MaxAttempts:     5,
				InitialDelayMs:  100,
				MaxDelayMs:      5000,
				ExponentialBase: 2.0,
			},
			Memory: MemgraphMemoryConfig{
				MonitorIntervalMs:   60000,
				AutoFreeThresholdMB: 1000.0,
			},
		},
		Embeddings: EmbeddingsConfig{
			Enabled: true,
			Model:   "text-embedding-3-small",
			IncludeInEmbedding: []string{
				"function_name", "module_path", "crate_name",
				"doc_comments", "parameter_types", "return_type",
			},
		},
		Performance: PerformanceConfig{
			MaxThreads:  4,
			CacheSizeMB: 100,
			Incremental: true,
		},
		Framework: FrameworkConfig{
			Enabled:                 true,
			SyntheticCallGeneration: true,
			SupportedFrameworks:     []string{"tokio", "actix-web", "async-std", "kameo"},
		},
		CrossCrate: CrossCrateConfig{
			Enabled:            true,
			UseCache:           true,
			IncrementalUpdates: true,
			MaxIndexMemoryMB:   100,
		},
	}
}

var validate = validator.New()

// Load binds defaults, an optional config file, and environment
// overrides (CRATEINDEX_MEMGRAPH_URI etc., "." replaced with "_" as
// TaskWing's own loader does), unmarshals into Config, and validates
// the result. A missing configFile is not an error — the defaults
// plus any environment overrides still produce a usable Config.
func Load(configFile string) (Config, error) {
	v := viper.New()
	bindDefaults(v, Default())

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("%w: reading %s: %v", errs.ConfigError, configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: unmarshal: %v", errs.ConfigError, err)
	}

	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", errs.ConfigError, err)
	}
	return cfg, nil
}

// bindDefaults seeds viper with every Default() field so a partial
// config file (or none at all) still resolves every key.
func bindDefaults(v *viper.Viper, d Config) {
	v.SetDefault("workspace.root", d.Workspace.Root)
	v.SetDefault("workspace.additional_roots", d.Workspace.AdditionalRoots)

	v.SetDefault("analysis.recursive_scan", d.Analysis.RecursiveScan)
	v.SetDefault("analysis.include_dev_deps", d.Analysis.IncludeDevDeps)
	v.SetDefault("analysis.include_build_deps", d.Analysis.IncludeBuildDeps)
	v.SetDefault("analysis.workspace_members_only", d.Analysis.WorkspaceMembersOnly)
	v.SetDefault("analysis.exclude_crates", d.Analysis.ExcludeCrates)

	v.SetDefault("memgraph.uri", d.Memgraph.URI)
	v.SetDefault("memgraph.batch_size", d.Memgraph.BatchSize)
	v.SetDefault("memgraph.performance.use_analytical_mode", d.Memgraph.Performance.UseAnalyticalMode)
	v.SetDefault("memgraph.performance.connection_pool_size", d.Memgraph.Performance.ConnectionPoolSize)
	v.SetDefault("memgraph.performance.connection_timeout_ms", d.Memgraph.Performance.ConnectionTimeoutMs)
	v.SetDefault("memgraph.performance.query_timeout_ms", d.Memgraph.Performance.QueryTimeoutMs)
	v.SetDefault("memgraph.retry.enabled", d.Memgraph.Retry.Enabled)
	v.SetDefault("memgraph.retry.max_attempts", d.Memgraph.Retry.MaxAttempts)
	v.SetDefault("memgraph.retry.initial_delay_ms", d.Memgraph.Retry.InitialDelayMs)
	v.SetDefault("memgraph.retry.max_delay_ms", d.Memgraph.Retry.MaxDelayMs)
	v.SetDefault("memgraph.retry.exponential_base", d.Memgraph.Retry.ExponentialBase)
	v.SetDefault("memgraph.memory.monitor_interval_ms", d.Memgraph.Memory.MonitorIntervalMs)
	v.SetDefault("memgraph.memory.auto_free_threshold_mb", d.Memgraph.Memory.AutoFreeThresholdMB)

	v.SetDefault("embeddings.enabled", d.Embeddings.Enabled)
	v.SetDefault("embeddings.model", d.Embeddings.Model)
	v.SetDefault("embeddings.include_in_embedding", d.Embeddings.IncludeInEmbedding)

	v.SetDefault("performance.max_threads", d.Performance.MaxThreads)
	v.SetDefault("performance.cache_size_mb", d.Performance.CacheSizeMB)
	v.SetDefault("performance.incremental", d.Performance.Incremental)

	v.SetDefault("framework.enabled", d.Framework.Enabled)
	v.SetDefault("framework.synthetic_call_generation", d.Framework.SyntheticCallGeneration)
	v.SetDefault("framework.supported_frameworks", d.Framework.SupportedFrameworks)

	v.SetDefault("cross_crate.enabled", d.CrossCrate.Enabled)
	v.SetDefault("cross_crate.use_cache", d.CrossCrate.UseCache)
	v.SetDefault("cross_crate.incremental_updates", d.CrossCrate.IncrementalUpdates)
	v.SetDefault("cross_crate.max_index_memory_mb", d.CrossCrate.MaxIndexMemoryMB)
}

// AllWorkspaceRoots returns the primary root followed by any
// additional roots, matching Config::all_workspace_roots.
func (c Config) AllWorkspaceRoots() []string {
	roots := make([]string, 0, 1+len(c.Workspace.AdditionalRoots))
	roots = append(roots, c.Workspace.Root)
	roots = append(roots, c.Workspace.AdditionalRoots...)
	return roots
}

// ArchitecturePolicy adapts the configured layer list to the shape
// internal/architecture.Check expects.
func (c Config) ArchitecturePolicy() []discover.Layer {
	return c.Architecture.Layers
}

// Package config loads and validates dive-engine configuration.
//
// Resolution order, lowest to highest priority:
//  1. Built-in defaults
//  2. Project config file (.divengine.yaml in the project root)
//  3. Environment variables (DIVENGINE_*)
//
// Validation fails fast: a config that cannot pass Validate never reaches
// the engine, so no query runs against bad weights or chunk options.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	enginerrors "github.com/duclm1x1/dive-engine/internal/errors"
)

// ConfigFileName is the per-project config file name.
const ConfigFileName = ".divengine.yaml"

// DefaultIndexDir is the per-project index directory name.
const DefaultIndexDir = ".divengine"

// weightEpsilon is the tolerance when checking that fusion weights sum to 1.0.
const weightEpsilon = 1e-6

// Config is the complete dive-engine configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Index      IndexConfig      `yaml:"index" json:"index"`
	Chunking   ChunkingConfig   `yaml:"chunking" json:"chunking"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Corrective CorrectiveConfig `yaml:"corrective" json:"corrective"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// IndexConfig configures index storage and backends.
type IndexConfig struct {
	// Dir is the data directory holding all index files.
	Dir string `yaml:"dir" json:"dir"`

	// BM25Backend selects the lexical index backend.
	// Options: "bleve" (default) or "sqlite" (FTS5, concurrent multi-process access).
	BM25Backend string `yaml:"bm25_backend" json:"bm25_backend"`

	// K1 is the BM25 term frequency saturation parameter. Both
	// backends score at the standard 1.2; the value is recorded but
	// not applied (see store.BM25Config).
	K1 float64 `yaml:"bm25_k1" json:"bm25_k1"`

	// B is the BM25 length normalization parameter. Recorded but not
	// applied; both backends score at the standard 0.75.
	B float64 `yaml:"bm25_b" json:"bm25_b"`
}

// ChunkingConfig configures the default chunking options.
type ChunkingConfig struct {
	// Strategy is the default chunk strategy: char_window, csv_row, proposition.
	Strategy string `yaml:"strategy" json:"strategy"`

	// ChunkSize is the window size in characters for char_window.
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`

	// Overlap is the number of characters shared between consecutive windows.
	Overlap int `yaml:"overlap" json:"overlap"`

	// MinChunkChars drops proposition fragments shorter than this.
	MinChunkChars int `yaml:"min_chunk_chars" json:"min_chunk_chars"`

	// ColumnTolerance is the allowed CSV column count drift per row.
	ColumnTolerance int `yaml:"column_tolerance" json:"column_tolerance"`
}

// SearchConfig configures retrieval and fusion.
type SearchConfig struct {
	// Fusion selects the fusion algorithm: "weighted" (min-max normalized
	// weighted sum, default) or "rrf" (reciprocal rank fusion).
	Fusion string `yaml:"fusion" json:"fusion"`

	// BM25Weight, DenseWeight and StructuralWeight are the fusion weights.
	// They must sum to 1.0.
	BM25Weight       float64 `yaml:"bm25_weight" json:"bm25_weight"`
	DenseWeight      float64 `yaml:"dense_weight" json:"dense_weight"`
	StructuralWeight float64 `yaml:"structural_weight" json:"structural_weight"`

	// RRFConstant is the RRF smoothing parameter k (only used when Fusion=rrf).
	RRFConstant int `yaml:"rrf_constant" json:"rrf_constant"`

	// TopK is the default number of ranked candidates to return.
	TopK int `yaml:"top_k" json:"top_k"`

	// MaxTopK caps caller-supplied top_k values.
	MaxTopK int `yaml:"max_top_k" json:"max_top_k"`

	// MaxContextChars is the default context budget for assembly.
	MaxContextChars int `yaml:"max_context_chars" json:"max_context_chars"`

	// KindBoosts maps document kind (text, csv, code) to a structural boost
	// in [0,1]. Values outside the range are clamped at fusion time.
	KindBoosts map[string]float64 `yaml:"kind_boosts" json:"kind_boosts"`
}

// CorrectiveConfig configures the bounded corrective retrieval pass.
type CorrectiveConfig struct {
	// Enabled turns the corrective pass on or off.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// MinTopScore is the fused-score adequacy threshold. A top result
	// scoring below this triggers one reformulated retrieval.
	MinTopScore float64 `yaml:"min_top_score" json:"min_top_score"`

	// MinTermOverlap is the minimum number of distinct query terms that
	// must match somewhere in the top-k candidates.
	MinTermOverlap int `yaml:"min_term_overlap" json:"min_term_overlap"`
}

// EmbeddingsConfig configures the dense retrieval backend.
type EmbeddingsConfig struct {
	// Provider selects the embedder: "static" (deterministic hash
	// embeddings, default) or "none" (dense search disabled).
	Provider string `yaml:"provider" json:"provider"`

	// Dimensions is the embedding dimension.
	Dimensions int `yaml:"dimensions" json:"dimensions"`

	// CacheSize is the LRU embedding cache capacity.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level         string `yaml:"level" json:"level"`
	File          string `yaml:"file" json:"file"`
	MaxSizeMB     int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles      int    `yaml:"max_files" json:"max_files"`
	WriteToStderr bool   `yaml:"write_to_stderr" json:"write_to_stderr"`
}

// WatchConfig is reused by the ingest --watch mode.
type WatchConfig struct {
	DebounceWindow time.Duration
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Version: 1,
		Index: IndexConfig{
			Dir:         DefaultIndexDir,
			BM25Backend: "bleve",
			K1:          1.2,
			B:           0.75,
		},
		Chunking: ChunkingConfig{
			Strategy:        "char_window",
			ChunkSize:       800,
			Overlap:         100,
			MinChunkChars:   24,
			ColumnTolerance: 0,
		},
		Search: SearchConfig{
			Fusion:           "weighted",
			BM25Weight:       0.5,
			DenseWeight:      0.4,
			StructuralWeight: 0.1,
			RRFConstant:      60,
			TopK:             10,
			MaxTopK:          100,
			MaxContextChars:  4000,
			KindBoosts:       map[string]float64{},
		},
		Corrective: CorrectiveConfig{
			Enabled:        true,
			MinTopScore:    0.25,
			MinTermOverlap: 1,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "static",
			Dimensions: 256,
			CacheSize:  1000,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// Load reads the config for a project directory: defaults, then the
// project file if present, then environment overrides. The returned
// config is already validated.
func Load(dir string) (*Config, error) {
	cfg := New()

	path := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(path); err == nil {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// A relative index dir is anchored to the project directory, so
	// commands behave the same no matter where they are run from.
	if !filepath.IsAbs(cfg.Index.Dir) {
		cfg.Index.Dir = filepath.Join(dir, cfg.Index.Dir)
	}
	return cfg, nil
}

// loadYAML merges values from a YAML file over the current config.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return enginerrors.Wrap(enginerrors.ErrCodeConfigNotFound, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return enginerrors.ConfigError(fmt.Sprintf("parse %s: %v", path, err), err)
	}
	return nil
}

// applyEnvOverrides applies DIVENGINE_* environment variables.
// Invalid values are ignored; Validate catches anything out of range.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DIVENGINE_INDEX_DIR"); v != "" {
		c.Index.Dir = v
	}
	if v := os.Getenv("DIVENGINE_BM25_BACKEND"); v != "" {
		c.Index.BM25Backend = v
	}
	if v, err := envFloat("DIVENGINE_BM25_WEIGHT"); err == nil {
		c.Search.BM25Weight = v
	}
	if v, err := envFloat("DIVENGINE_DENSE_WEIGHT"); err == nil {
		c.Search.DenseWeight = v
	}
	if v, err := envFloat("DIVENGINE_STRUCTURAL_WEIGHT"); err == nil {
		c.Search.StructuralWeight = v
	}
	if v := os.Getenv("DIVENGINE_FUSION"); v != "" {
		c.Search.Fusion = v
	}
	if v := os.Getenv("DIVENGINE_EMBED_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("DIVENGINE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func envFloat(key string) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, fmt.Errorf("unset")
	}
	return strconv.ParseFloat(v, 64)
}

// Validate checks the configuration for invalid values.
// Returns a config error with an actionable suggestion on failure.
func (c *Config) Validate() error {
	if c.Index.Dir == "" {
		return enginerrors.ConfigError("index.dir must not be empty", nil)
	}
	switch c.Index.BM25Backend {
	case "bleve", "sqlite":
	default:
		return enginerrors.ConfigError(
			fmt.Sprintf("unknown bm25 backend %q", c.Index.BM25Backend), nil).
			WithSuggestion(`use "bleve" or "sqlite"`)
	}
	if c.Index.K1 <= 0 || c.Index.B < 0 || c.Index.B > 1 {
		return enginerrors.ConfigError(
			fmt.Sprintf("bm25 parameters out of range: k1=%.2f b=%.2f", c.Index.K1, c.Index.B), nil)
	}

	if c.Chunking.ChunkSize <= 0 {
		return enginerrors.New(enginerrors.ErrCodeBadChunkOpts,
			fmt.Sprintf("chunk_size must be positive, got %d", c.Chunking.ChunkSize), nil)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.ChunkSize {
		return enginerrors.New(enginerrors.ErrCodeBadChunkOpts,
			fmt.Sprintf("overlap %d must be in [0, chunk_size)", c.Chunking.Overlap), nil)
	}
	if c.Chunking.MinChunkChars < 0 || c.Chunking.ColumnTolerance < 0 {
		return enginerrors.New(enginerrors.ErrCodeBadChunkOpts,
			"min_chunk_chars and column_tolerance must be non-negative", nil)
	}

	switch c.Search.Fusion {
	case "weighted", "rrf":
	default:
		return enginerrors.ConfigError(
			fmt.Sprintf("unknown fusion mode %q", c.Search.Fusion), nil).
			WithSuggestion(`use "weighted" or "rrf"`)
	}
	sum := c.Search.BM25Weight + c.Search.DenseWeight + c.Search.StructuralWeight
	if math.Abs(sum-1.0) > weightEpsilon {
		return enginerrors.New(enginerrors.ErrCodeBadWeights,
			fmt.Sprintf("fusion weights must sum to 1.0, got %.4f", sum), nil).
			WithDetail("sum", strconv.FormatFloat(sum, 'f', 4, 64)).
			WithSuggestion("adjust search.bm25_weight, dense_weight and structural_weight")
	}
	if c.Search.BM25Weight < 0 || c.Search.DenseWeight < 0 || c.Search.StructuralWeight < 0 {
		return enginerrors.New(enginerrors.ErrCodeBadWeights, "fusion weights must be non-negative", nil)
	}
	if c.Search.TopK <= 0 || c.Search.MaxTopK < c.Search.TopK {
		return enginerrors.ConfigError(
			fmt.Sprintf("top_k=%d max_top_k=%d out of range", c.Search.TopK, c.Search.MaxTopK), nil)
	}
	if c.Search.MaxContextChars <= 0 {
		return enginerrors.ConfigError("max_context_chars must be positive", nil)
	}

	if c.Corrective.MinTopScore < 0 || c.Corrective.MinTopScore > 1 {
		return enginerrors.ConfigError("corrective.min_top_score must be in [0,1]", nil)
	}
	if c.Corrective.MinTermOverlap < 0 {
		return enginerrors.ConfigError("corrective.min_term_overlap must be non-negative", nil)
	}

	switch c.Embeddings.Provider {
	case "static", "none":
	default:
		return enginerrors.ConfigError(
			fmt.Sprintf("unknown embeddings provider %q", c.Embeddings.Provider), nil).
			WithSuggestion(`use "static" or "none"`)
	}
	if c.Embeddings.Provider == "static" && c.Embeddings.Dimensions <= 0 {
		return enginerrors.ConfigError("embeddings.dimensions must be positive", nil)
	}

	return nil
}

// WriteYAML writes the config to path in YAML format.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

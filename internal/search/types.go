// Package search implements hybrid retrieval: BM25 and dense results
// are merged, fused with weighted min-max scoring, optionally corrected
// with a single reformulation pass, and assembled into a bounded
// context string with a full decision trace.
package search

import (
	"fmt"
	"math"
	"time"

	"github.com/duclm1x1/dive-engine/internal/chunk"
	enginerrors "github.com/duclm1x1/dive-engine/internal/errors"
	"github.com/duclm1x1/dive-engine/internal/store"
)

// FusionMode selects the score combination algorithm.
type FusionMode string

const (
	// FusionWeighted min-max normalizes each leg's scores and combines
	// them with configured weights. The default.
	FusionWeighted FusionMode = "weighted"

	// FusionRRF combines by reciprocal rank instead of raw scores.
	// More robust when the legs' score scales drift apart.
	FusionRRF FusionMode = "rrf"
)

// DefaultRRFConstant is the standard RRF smoothing parameter, validated
// across domains (Azure AI Search, OpenSearch use the same value).
const DefaultRRFConstant = 60

// Weights balances the retrieval legs during fusion. BM25 + Dense +
// Structural must sum to 1.
type Weights struct {
	BM25       float64
	Dense      float64
	Structural float64
}

// DefaultWeights returns the default fusion weights.
func DefaultWeights() Weights {
	return Weights{BM25: 0.5, Dense: 0.4, Structural: 0.1}
}

// Validate applies the same rule config enforces for configured
// weights: non-negative components summing to 1.0.
func (w Weights) Validate() error {
	if w.BM25 < 0 || w.Dense < 0 || w.Structural < 0 {
		return enginerrors.ConfigError("fusion weights must be non-negative", nil)
	}
	sum := w.BM25 + w.Dense + w.Structural
	if math.Abs(sum-1.0) > 1e-6 {
		return enginerrors.ConfigError(fmt.Sprintf("fusion weights must sum to 1.0, got %.4f", sum), nil)
	}
	return nil
}

// Candidate is a retrieval hit enriched with chunk metadata and fusion
// scores. One candidate exists per chunk id even when both legs hit it.
type Candidate struct {
	// Chunk identity and content.
	ChunkID  string
	DocID    string
	Offset   int
	Text     string
	Strategy chunk.Strategy

	// Kind of the parent document, used for structural boosts.
	Kind chunk.Kind

	// Per-leg raw scores and 1-indexed ranks (0 = absent from leg).
	BM25Score  float64
	BM25Rank   int
	DenseScore float64
	DenseRank  int

	// MatchedTerms are the lexical query terms that hit this chunk.
	MatchedTerms []string

	// InBoth marks candidates both legs agreed on.
	InBoth bool

	// Boost is the structural contribution applied during fusion.
	Boost float64

	// Score is the final fused score.
	Score float64
}

// QueryOptions configures a single query.
type QueryOptions struct {
	// TopK is the number of ranked candidates to return.
	TopK int

	// Weights overrides the configured fusion weights.
	Weights *Weights

	// FusionMode overrides the configured fusion mode ("" = configured).
	FusionMode FusionMode

	// MaxContextChars overrides the configured context budget.
	// 0 means use the configured value.
	MaxContextChars int

	// BM25Only skips the dense leg entirely.
	BM25Only bool

	// NoCorrective disables the corrective pass for this query.
	NoCorrective bool
}

// CorrectiveState is a step in the corrective pass.
type CorrectiveState string

const (
	StateInitialRetrieve     CorrectiveState = "INITIAL_RETRIEVE"
	StateEvaluate            CorrectiveState = "EVALUATE"
	StateAccept              CorrectiveState = "ACCEPT"
	StateReformulateRetrieve CorrectiveState = "REFORMULATE_RETRIEVE"
	StateDone                CorrectiveState = "DONE"
)

// TraceEntry records the assembly decision for one candidate.
type TraceEntry struct {
	ChunkID      string  `json:"chunk_id"`
	DocID        string  `json:"doc_id"`
	Score        float64 `json:"score"`
	BM25Score    float64 `json:"bm25_score"`
	DenseScore   float64 `json:"dense_score"`
	Boost        float64 `json:"boost,omitempty"`
	Chars        int     `json:"chars"`
	RunningChars int     `json:"running_chars"`
	Included     bool    `json:"included"`
	Reason       string  `json:"reason"`
}

// Assembly decision reasons.
const (
	ReasonIncluded       = "included"
	ReasonBudgetExceeded = "budget_exceeded"
	ReasonBudgetFull     = "budget_full"
)

// Why the corrective pass decided the way it did.
const (
	CorrectiveAdequate       = "adequate"
	CorrectiveNoCandidates   = "no_candidates"
	CorrectiveLowTopScore    = "top_score_below_threshold"
	CorrectiveLowTermOverlap = "term_overlap_below_minimum"
	CorrectiveSameQuery      = "reformulation_unchanged"
	CorrectiveDisabled       = "corrective_disabled"
)

// RetrievalTrace explains how a query produced its context.
type RetrievalTrace struct {
	Query            string            `json:"query"`
	EffectiveQuery   string            `json:"effective_query"`
	FusionMode       FusionMode        `json:"fusion_mode"`
	Weights          Weights           `json:"weights"`
	BM25Count        int               `json:"bm25_count"`
	DenseCount       int               `json:"dense_count"`
	DenseSkipped     bool              `json:"dense_skipped,omitempty"`
	States           []CorrectiveState `json:"states"`
	Reformulated     bool              `json:"reformulated"`
	CorrectiveReason string            `json:"corrective_reason"`
	ContextBudget    int               `json:"context_budget"`
	ContextChars     int               `json:"context_chars"`
	Entries          []TraceEntry      `json:"entries"`
	Elapsed          time.Duration     `json:"elapsed_ns"`
}

// QueryResult is a complete answer: ranked candidates, the assembled
// context and the trace.
type QueryResult struct {
	Candidates []*Candidate
	Context    string
	Trace      *RetrievalTrace
}

// EngineStats summarizes the engine's stores.
type EngineStats struct {
	Documents  int
	Chunks     int
	BM25Stats  *store.IndexStats
	Vectors    int
	DenseReady bool
}

package match

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"github.com/accredmap/backend/pkg/ai"
	"github.com/accredmap/backend/pkg/common"
	"github.com/accredmap/backend/pkg/logger"
	"github.com/accredmap/backend/pkg/standards"

	"golang.org/x/sync/errgroup"
)

// ErrNoGeneration means Analyze was called before any corpus generation was
// published. Distinct from an unknown scope, which yields an empty result.
var ErrNoGeneration = errors.New("no standards graph generation available")

// Config holds the matching weights and thresholds. The numeric defaults
// are tunable constants, not load-bearing contract values; every deployment
// can override them.
type Config struct {
	// LexicalWeight, SemanticWeight, and StructuralWeight sum to 1. When no
	// embedding backend is available the semantic weight is folded into the
	// lexical weight and analysis proceeds.
	LexicalWeight    float64
	SemanticWeight   float64
	StructuralWeight float64

	MeetsThreshold   float64
	PartialThreshold float64
	NoiseFloor       float64

	// StructuralTrigger is the clause-level overlap that counts as a sibling
	// hit; IndicatorTrigger is the overlap that counts an indicator as matched.
	StructuralTrigger float64
	IndicatorTrigger  float64

	// TopK caps the returned candidates; 0 means all above the noise floor.
	TopK int

	TokenEncoder string
	Parallelism  int
}

// DefaultConfig returns the stock weights and thresholds.
func DefaultConfig() Config {
	return Config{
		LexicalWeight:    0.55,
		SemanticWeight:   0.35,
		StructuralWeight: 0.10,

		MeetsThreshold:   0.75,
		PartialThreshold: 0.40,
		NoiseFloor:       0.15,

		StructuralTrigger: 0.35,
		IndicatorTrigger:  0.50,

		TokenEncoder: "cl100k_base",
		Parallelism:  8,
	}
}

// Candidate is a scored association between the analyzed document and one
// standard, ready to be persisted as a mapping.
type Candidate struct {
	StandardID        string   `json:"standard_id"`
	Confidence        float64  `json:"confidence"`
	Classification    string   `json:"classification"`
	MatchType         string   `json:"match_type"`
	RationaleSpans    []string `json:"rationale_spans,omitempty"`
	MatchedIndicators int      `json:"matched_indicators"`

	LexicalScore    float64 `json:"lexical_score"`
	SemanticScore   float64 `json:"semantic_score"`
	StructuralBonus float64 `json:"structural_bonus"`
}

// EmbeddingSource supplies pre-computed standard-text embeddings for a
// generation, typically the pgvector-backed cache warmed on reload. A miss
// is not an error; the engine embeds the standard text on the fly.
type EmbeddingSource interface {
	Get(ctx context.Context, generationID int64, standardID string) ([]float32, bool, error)
}

// Engine scores document text against the standards of a pinned graph
// generation. Analyze performs no writes and is safe to run concurrently
// for different documents.
type Engine struct {
	embedder   ai.EmbeddingClient
	embeddings EmbeddingSource
	cfg        Config
}

// NewEngineParams configures an Engine. Embedder and Embeddings may both be
// nil, which degrades scoring to lexical-plus-structural.
type NewEngineParams struct {
	Config     Config
	Embedder   ai.EmbeddingClient
	Embeddings EmbeddingSource
}

func NewEngine(params NewEngineParams) *Engine {
	cfg := params.Config
	if cfg.LexicalWeight == 0 && cfg.SemanticWeight == 0 {
		cfg = DefaultConfig()
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 8
	}
	if cfg.TokenEncoder == "" {
		cfg.TokenEncoder = "cl100k_base"
	}
	return &Engine{
		embedder:   params.Embedder,
		embeddings: params.Embeddings,
		cfg:        cfg,
	}
}

// Analyze scores the document text against every standard in scope and
// returns the candidates above the noise floor, sorted by descending
// confidence with a deterministic tie-break. An unknown or empty scope
// yields an empty list, not an error: "no evidence found" is a valid
// outcome distinct from "the engine broke".
func (e *Engine) Analyze(
	ctx context.Context,
	gen *standards.Generation,
	documentText string,
	scope []string,
) ([]Candidate, error) {
	if gen == nil {
		return nil, ErrNoGeneration
	}

	stds := standards.ScopeStandards(gen, scope)
	if len(stds) == 0 {
		return []Candidate{}, nil
	}

	docTokens := tokenSet(documentText)

	var docVec []float32
	if e.embedder != nil {
		vec, err := embedDocument(ctx, e.embedder, e.cfg.TokenEncoder, documentText)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("[Match] Embedding backend unavailable, scoring lexical-only", "err", err)
		} else {
			docVec = vec
		}
	}
	semanticAvailable := len(docVec) > 0

	w1 := e.cfg.LexicalWeight
	w2 := e.cfg.SemanticWeight
	if !semanticAvailable {
		w1 += w2
		w2 = 0
	}

	results := make([]*Candidate, len(stds))
	skipped := 0
	var mu sync.Mutex

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(e.cfg.Parallelism)

	for i, std := range stds {
		idx := i
		s := std
		eg.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			cand, err := e.scoreStandard(gCtx, gen, s, documentText, docTokens, docVec, w1, w2)
			if err != nil {
				if gCtx.Err() != nil {
					return gCtx.Err()
				}
				logger.Warn("[Match] Skipping candidate standard", "standard_id", s.ID, "err", err)
				mu.Lock()
				skipped++
				mu.Unlock()
				return nil
			}
			results[idx] = cand
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(results))
	for _, cand := range results {
		if cand != nil && cand.Confidence >= e.cfg.NoiseFloor {
			candidates = append(candidates, *cand)
		}
	}

	// Ties at two decimal places prefer more matched indicators, then the
	// lexicographically smaller standard id, so repeated runs are
	// byte-identical.
	sort.Slice(candidates, func(i, j int) bool {
		ci := math.Round(candidates[i].Confidence * 100)
		cj := math.Round(candidates[j].Confidence * 100)
		if ci != cj {
			return ci > cj
		}
		if candidates[i].MatchedIndicators != candidates[j].MatchedIndicators {
			return candidates[i].MatchedIndicators > candidates[j].MatchedIndicators
		}
		return candidates[i].StandardID < candidates[j].StandardID
	})

	if e.cfg.TopK > 0 && len(candidates) > e.cfg.TopK {
		candidates = candidates[:e.cfg.TopK]
	}

	logger.Debug("[Match] Analysis completed",
		"generation", gen.ID(),
		"scoped_standards", len(stds),
		"candidates", len(candidates),
		"skipped", skipped,
		"semantic", semanticAvailable,
	)

	return candidates, nil
}

func (e *Engine) scoreStandard(
	ctx context.Context,
	gen *standards.Generation,
	std *common.Standard,
	documentText string,
	docTokens map[string]struct{},
	docVec []float32,
	w1, w2 float64,
) (*Candidate, error) {
	terms := standardTerms(std)
	lex := lexicalScore(docTokens, terms)

	sem := 0.0
	semUsed := false
	if len(docVec) > 0 {
		stdVec, err := e.standardVector(ctx, gen, std)
		if err != nil {
			return nil, err
		}
		if len(stdVec) > 0 {
			sem = clamp01(cosineSimilarity(docVec, stdVec))
			semUsed = true
		}
	}

	siblingHits := 0
	matchedIndicators := 0
	for _, clause := range std.Clauses {
		if textOverlap(docTokens, clause.Text) >= e.cfg.StructuralTrigger {
			siblingHits++
		}
		for _, ind := range clause.Indicators {
			if textOverlap(docTokens, ind.Text) >= e.cfg.IndicatorTrigger {
				matchedIndicators++
				siblingHits++
			}
		}
	}
	// The bonus rewards evidence touching more than one part of the same
	// standard; a single hit is already captured by the lexical term.
	structural := 0.0
	if siblingHits > 1 {
		structural = clamp01(float64(siblingHits-1) / 4)
	}

	confidence := clamp01(w1*lex + w2*sem + e.cfg.StructuralWeight*structural)

	matchType := common.MatchTypeHybrid
	switch {
	case !semUsed || sem < 0.05:
		matchType = common.MatchTypeLexical
	case lex < 0.05:
		matchType = common.MatchTypeSemantic
	}

	classification := common.ClassificationDoesNotMeet
	switch {
	case confidence >= e.cfg.MeetsThreshold:
		classification = common.ClassificationMeets
	case confidence >= e.cfg.PartialThreshold:
		classification = common.ClassificationPartial
	}

	return &Candidate{
		StandardID:        std.ID,
		Confidence:        confidence,
		Classification:    classification,
		MatchType:         matchType,
		RationaleSpans:    rationaleSpans(documentText, docTokens, terms),
		MatchedIndicators: matchedIndicators,

		LexicalScore:    lex,
		SemanticScore:   sem,
		StructuralBonus: e.cfg.StructuralWeight * structural,
	}, nil
}

// standardVector reads the standard's embedding from the cache when one is
// configured, falling back to an ad hoc embed of the flattened text.
func (e *Engine) standardVector(ctx context.Context, gen *standards.Generation, std *common.Standard) ([]float32, error) {
	if e.embeddings != nil {
		vec, ok, err := e.embeddings.Get(ctx, gen.ID(), std.ID)
		if err != nil {
			return nil, err
		}
		if ok {
			return vec, nil
		}
	}
	if e.embedder == nil {
		return nil, nil
	}
	return embedStandard(ctx, e.embedder, std)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

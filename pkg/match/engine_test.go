package match

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/accredmap/backend/pkg/common"
	"github.com/accredmap/backend/pkg/standards"
)

func testGeneration(t *testing.T) *standards.Generation {
	t.Helper()
	gen, err := standards.Build([]common.Accreditor{
		{
			Code: "TSTA",
			Name: "Test Accreditor A",
			Standards: []common.Standard{
				{
					ID:          "TSTA.1",
					Accreditor:  "TSTA",
					Title:       "Mission and Integrity",
					Description: "The mission guides operations with integrity.",
					Clauses: []common.Clause{
						{
							ID:   "TSTA.1.A",
							Text: "The mission statement is articulated publicly and guides planning.",
							Indicators: []common.Indicator{
								{ID: "TSTA.1.A.1", Text: "Mission statement published on the public website.", Weight: 1},
							},
						},
					},
				},
				{
					ID:          "TSTA.2",
					Accreditor:  "TSTA",
					Title:       "Assessment of student learning outcomes",
					Description: "The institution assesses achievement of student learning outcomes in its programs.",
					Clauses: []common.Clause{
						{
							ID:   "TSTA.2.A",
							Text: "Clearly stated learning outcomes exist for each program and course.",
							Indicators: []common.Indicator{
								{ID: "TSTA.2.A.1", Text: "Program level learning outcomes are documented and reviewed.", Weight: 0.5},
								{ID: "TSTA.2.A.2", Text: "Assessment results inform curriculum improvement.", Weight: 0.5},
							},
						},
					},
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	return gen
}

const evidenceText = "Our annual report covers the assessment of student learning outcomes. " +
	"Program learning outcomes are documented for each course and reviewed every year. " +
	"Assessment results inform curriculum improvement across programs."

func newLexicalEngine() *Engine {
	return NewEngine(NewEngineParams{Config: DefaultConfig()})
}

func TestAnalyzeFindsRelevantStandard(t *testing.T) {
	gen := testGeneration(t)
	engine := newLexicalEngine()

	candidates, err := engine.Analyze(context.Background(), gen, evidenceText, nil)
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate above the noise floor, got %d: %+v", len(candidates), candidates)
	}

	cand := candidates[0]
	if cand.StandardID != "TSTA.2" {
		t.Errorf("expected TSTA.2, got %s", cand.StandardID)
	}
	if cand.Classification != common.ClassificationPartial {
		t.Errorf("expected partial classification, got %s (confidence %v)", cand.Classification, cand.Confidence)
	}
	if cand.MatchType != common.MatchTypeLexical {
		t.Errorf("expected lexical match type without embedder, got %s", cand.MatchType)
	}
	if cand.MatchedIndicators != 2 {
		t.Errorf("expected 2 matched indicators, got %d", cand.MatchedIndicators)
	}
	if len(cand.RationaleSpans) == 0 {
		t.Fatal("expected rationale spans")
	}
	found := false
	for _, span := range cand.RationaleSpans {
		if !strings.Contains(evidenceText, span) {
			t.Errorf("rationale span not verbatim from document: %q", span)
		}
		if strings.Contains(span, "learning outcomes") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a rationale span mentioning learning outcomes, got %v", cand.RationaleSpans)
	}
}

func TestAnalyzeMeetsWithFullCoverage(t *testing.T) {
	gen := testGeneration(t)
	engine := newLexicalEngine()

	text := "The institution clearly stated learning outcomes exist for each program and course at every level. " +
		"Assessment of student learning outcomes is documented and reviewed. " +
		"Assessment results inform curriculum improvement and the achievement of student learning outcomes."

	candidates, err := engine.Analyze(context.Background(), gen, text, nil)
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if len(candidates) == 0 {
		t.Fatal("expected candidates")
	}
	if candidates[0].StandardID != "TSTA.2" {
		t.Fatalf("expected TSTA.2 first, got %s", candidates[0].StandardID)
	}
	if candidates[0].Classification != common.ClassificationMeets {
		t.Errorf("expected meets classification, got %s (confidence %v)",
			candidates[0].Classification, candidates[0].Confidence)
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	gen := testGeneration(t)
	engine := newLexicalEngine()

	first, err := engine.Analyze(context.Background(), gen, evidenceText, nil)
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	second, err := engine.Analyze(context.Background(), gen, evidenceText, nil)
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected identical results across runs:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestAnalyzeTieBreakByStandardID(t *testing.T) {
	gen, err := standards.Build([]common.Accreditor{
		{
			Code: "TSTB",
			Name: "Tie Accreditor",
			Standards: []common.Standard{
				{ID: "TSTB.2", Accreditor: "TSTB", Title: "Financial audits conducted annually"},
				{ID: "TSTB.1", Accreditor: "TSTB", Title: "Financial audits conducted annually"},
			},
		},
	})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	engine := newLexicalEngine()
	candidates, err := engine.Analyze(context.Background(), gen,
		"Independent financial audits are conducted annually.", nil)
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].StandardID != "TSTB.1" || candidates[1].StandardID != "TSTB.2" {
		t.Errorf("expected tie broken by id asc, got [%s %s]",
			candidates[0].StandardID, candidates[1].StandardID)
	}
}

func TestAnalyzeUnknownScope(t *testing.T) {
	gen := testGeneration(t)
	engine := newLexicalEngine()

	candidates, err := engine.Analyze(context.Background(), gen, evidenceText, []string{"NOPE"})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("expected empty result for unknown scope, got %d candidates", len(candidates))
	}
}

func TestAnalyzeNilGeneration(t *testing.T) {
	engine := newLexicalEngine()
	if _, err := engine.Analyze(context.Background(), nil, evidenceText, nil); !errors.Is(err, ErrNoGeneration) {
		t.Fatalf("expected ErrNoGeneration, got %v", err)
	}
}

func TestAnalyzeNoiseFloorFiltersIrrelevant(t *testing.T) {
	gen := testGeneration(t)
	engine := newLexicalEngine()

	candidates, err := engine.Analyze(context.Background(), gen,
		"Cafeteria menu options for the spring semester.", nil)
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("expected no candidates for irrelevant text, got %+v", candidates)
	}
}

func TestAnalyzeTopK(t *testing.T) {
	gen := testGeneration(t)
	cfg := DefaultConfig()
	cfg.TopK = 1
	cfg.NoiseFloor = 0.0
	engine := NewEngine(NewEngineParams{Config: cfg})

	candidates, err := engine.Analyze(context.Background(), gen, evidenceText, nil)
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if len(candidates) != 1 {
		t.Errorf("expected TopK to cap results at 1, got %d", len(candidates))
	}
}

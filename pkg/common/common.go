package common

import "time"

// Classification values assigned to a mapping based on its confidence.
const (
	ClassificationMeets         = "meets"
	ClassificationPartial       = "partial"
	ClassificationDoesNotMeet   = "does_not_meet"
	ClassificationNotApplicable = "not_applicable"
)

// Match types describing which signals produced a mapping.
const (
	MatchTypeLexical  = "lexical"
	MatchTypeSemantic = "semantic"
	MatchTypeHybrid   = "hybrid"
)

// Subject kinds for trust scores.
const (
	SubjectKindDocument = "document"
	SubjectKindStandard = "standard"
)

// Accreditor represents a standards-issuing body. Its code is a stable
// short identifier and is immutable once a corpus referencing it has been
// published.
type Accreditor struct {
	Code          string     `json:"code"`
	Name          string     `json:"name"`
	CorpusVersion string     `json:"corpus_version"`
	SourceFile    string     `json:"source_file,omitempty"`
	Standards     []Standard `json:"standards"`
}

// Standard is a top-level requirement under an accreditor. Its ID is
// namespaced as ACCREDITOR.N and unique within the accreditor.
type Standard struct {
	ID          string   `json:"id"`
	Accreditor  string   `json:"accreditor"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Clauses     []Clause `json:"clauses"`
	// CrossRefs lists ids of related standards, possibly under other
	// accreditors. Rendered as "references" edges in projections.
	CrossRefs []string `json:"cross_refs,omitempty"`
}

// Clause is a sub-requirement of a standard.
type Clause struct {
	ID         string      `json:"id"`
	Text       string      `json:"text"`
	Indicators []Indicator `json:"indicators"`
}

// Indicator is a leaf, checkable criterion of a clause. Weight is in [0,1]
// and defaults to an equal split among siblings when the corpus omits it.
type Indicator struct {
	ID     string  `json:"id"`
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

// Mapping is a scored association between one evidentiary document and one
// standard. It is unique per (document_id, standard_id); re-analysis
// overwrites in place.
type Mapping struct {
	ID             string    `json:"id"`
	DocumentID     string    `json:"document_id"`
	StandardID     string    `json:"standard_id"`
	Confidence     float64   `json:"confidence"`
	Classification string    `json:"classification"`
	MatchType      string    `json:"match_type"`
	RationaleSpans []string  `json:"rationale_spans,omitempty"`
	ComputedAt     time.Time `json:"computed_at"`
}

// TrustScore is the aggregated confidence for a document or standard. It is
// derived state, recomputed from mappings, never hand-edited.
type TrustScore struct {
	SubjectID              string    `json:"subject_id"`
	SubjectKind            string    `json:"subject_kind"`
	Overall                float64   `json:"overall"`
	SupportingMappingCount int       `json:"supporting_mapping_count"`
	LastUpdated            time.Time `json:"last_updated"`
}

// Node kinds used in graph projections.
const (
	NodeKindAccreditor = "accreditor"
	NodeKindStandard   = "standard"
	NodeKindClause     = "clause"
	NodeKindIndicator  = "indicator"
)

// Edge relations used in graph projections.
const (
	EdgeRelationContains   = "contains"
	EdgeRelationReferences = "references"
)

// ProjectionNode is a single node in a visualization payload.
type ProjectionNode struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Label string `json:"label"`
}

// ProjectionEdge is a directed edge in a visualization payload.
type ProjectionEdge struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Relation string `json:"relation"`
}

// GraphProjection is a visualization-ready subgraph with coverage metrics.
// It is derived from the current standards graph and mapping state and is
// never persisted.
type GraphProjection struct {
	Nodes                []ProjectionNode `json:"nodes"`
	Edges                []ProjectionEdge `json:"edges"`
	TotalStandards       int              `json:"total_standards"`
	CoveragePercentage   float64          `json:"coverage_percentage"`
	AvailableAccreditors []string         `json:"available_accreditors"`
}

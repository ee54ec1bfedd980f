package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/accredmap/backend/pkg/ai"
	"github.com/accredmap/backend/pkg/common"
	"github.com/accredmap/backend/pkg/match"
	"github.com/accredmap/backend/pkg/standards"
)

// ErrAnalysisInProgress is returned when an upsert is requested for a
// document whose previous upsert has not finished. The caller should retry
// later; this is flow control, not a failure.
var ErrAnalysisInProgress = errors.New("analysis already in progress for document")

// MappingStore persists scored document-to-standard mappings. Upsert is a
// set-replace per document: all prior mappings for the document are
// atomically replaced by the new set, so re-analysis never leaves stale
// mappings from a previous corpus generation dangling. Upserts for the same
// document serialize; upserts for different documents are independent.
type MappingStore interface {
	Upsert(ctx context.Context, documentID string, candidates []match.Candidate) (int, error)
	Get(ctx context.Context, documentID string) ([]common.Mapping, error)
	GetForStandard(ctx context.Context, standardID string) ([]common.Mapping, error)
	// MappedStandardIDs lists the distinct standard ids that currently have
	// at least one mapping, sorted. Drives coverage in graph projections.
	MappedStandardIDs(ctx context.Context) ([]string, error)
	// MappedDocumentIDs lists the distinct document ids that currently have
	// at least one mapping, sorted. Drives the default trust-score listing.
	MappedDocumentIDs(ctx context.Context) ([]string, error)
	DeleteForDocument(ctx context.Context, documentID string) error
}

// EmbeddingCache stores standard-text embeddings keyed by graph generation,
// warmed after a reload so analysis does not re-embed the corpus per call.
type EmbeddingCache interface {
	Get(ctx context.Context, generationID int64, standardID string) ([]float32, bool, error)
	Warm(ctx context.Context, gen *standards.Generation, client ai.EmbeddingClient) error
}

// MappingFromCandidate converts an engine candidate to the persisted shape.
// The mapping id is deterministic so re-analysis of an unchanged document
// produces an identical set.
func MappingFromCandidate(documentID string, cand match.Candidate, computedAt time.Time) common.Mapping {
	return common.Mapping{
		ID:             fmt.Sprintf("%s:%s", documentID, cand.StandardID),
		DocumentID:     documentID,
		StandardID:     cand.StandardID,
		Confidence:     cand.Confidence,
		Classification: cand.Classification,
		MatchType:      cand.MatchType,
		RationaleSpans: cand.RationaleSpans,
		ComputedAt:     computedAt,
	}
}

// ChunkRange invokes fn over [start,end) chunks covering total elements.
func ChunkRange(total, chunkSize int, fn func(start, end int) error) error {
	if total <= 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = total
	}
	for start := 0; start < total; start += chunkSize {
		end := min(start+chunkSize, total)
		if err := fn(start, end); err != nil {
			return err
		}
	}
	return nil
}

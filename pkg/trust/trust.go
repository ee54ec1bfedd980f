// Package trust derives trust scores from persisted mappings. Scores are
// computed on demand from the mapping store, never persisted, so deleting a
// document's mappings immediately lowers every score it supported.
package trust

import (
	"context"
	"time"

	"github.com/accredmap/backend/pkg/common"
	"github.com/accredmap/backend/pkg/store"
)

// Config holds the aggregation tuning knobs.
type Config struct {
	// RecencyHorizon is the age at which a mapping's contribution bottoms
	// out at the decay floor. Zero means the default of 180 days.
	RecencyHorizon time.Duration

	// Now is swappable for tests that need fixed timestamps.
	Now func() time.Time
}

const (
	defaultRecencyHorizon = 180 * 24 * time.Hour

	// Aged evidence keeps half its weight rather than vanishing; stale
	// corroboration is still corroboration.
	decayFloor = 0.5
)

// Aggregator computes trust scores over a mapping store.
type Aggregator struct {
	mappings store.MappingStore
	cfg      Config
}

func NewAggregator(mappings store.MappingStore, cfg Config) *Aggregator {
	if cfg.RecencyHorizon <= 0 {
		cfg.RecencyHorizon = defaultRecencyHorizon
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Aggregator{mappings: mappings, cfg: cfg}
}

// ForDocument scores how well the document's evidence holds up across all
// standards it maps to. A single document cannot corroborate itself, so no
// corroboration multiplier applies.
func (a *Aggregator) ForDocument(ctx context.Context, documentID string) (common.TrustScore, error) {
	mappings, err := a.mappings.Get(ctx, documentID)
	if err != nil {
		return common.TrustScore{}, err
	}
	return a.aggregate(documentID, common.SubjectKindDocument, mappings, 1.0), nil
}

// ForStandard scores how well the standard is evidenced across documents.
// Corroboration scales with the number of distinct supporting documents and
// saturates once five or more agree.
func (a *Aggregator) ForStandard(ctx context.Context, standardID string) (common.TrustScore, error) {
	mappings, err := a.mappings.GetForStandard(ctx, standardID)
	if err != nil {
		return common.TrustScore{}, err
	}

	docs := make(map[string]struct{}, len(mappings))
	for _, m := range mappings {
		docs[m.DocumentID] = struct{}{}
	}
	corroboration := 1.0
	if len(docs) > 0 {
		corroboration = min(1.0, 0.5+0.1*float64(len(docs)))
	}

	return a.aggregate(standardID, common.SubjectKindStandard, mappings, corroboration), nil
}

func (a *Aggregator) aggregate(subjectID, subjectKind string, mappings []common.Mapping, corroboration float64) common.TrustScore {
	now := a.cfg.Now().UTC()

	score := common.TrustScore{
		SubjectID:              subjectID,
		SubjectKind:            subjectKind,
		SupportingMappingCount: len(mappings),
		LastUpdated:            now,
	}
	if len(mappings) == 0 {
		return score
	}

	sum := 0.0
	for _, m := range mappings {
		sum += m.Confidence * a.recencyWeight(now, m.ComputedAt)
	}
	score.Overall = clamp01(sum / float64(len(mappings)) * corroboration)
	return score
}

// recencyWeight decays linearly from 1 at age zero to the floor at the
// horizon, holding the floor beyond it.
func (a *Aggregator) recencyWeight(now, computedAt time.Time) float64 {
	age := now.Sub(computedAt)
	if age <= 0 {
		return 1.0
	}
	if age >= a.cfg.RecencyHorizon {
		return decayFloor
	}
	frac := float64(age) / float64(a.cfg.RecencyHorizon)
	return 1.0 - (1.0-decayFloor)*frac
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

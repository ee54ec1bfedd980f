// Package memory provides in-memory implementations of the store
// interfaces for tests and pool-less deployments.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/accredmap/backend/pkg/ai"
	"github.com/accredmap/backend/pkg/common"
	"github.com/accredmap/backend/pkg/match"
	"github.com/accredmap/backend/pkg/standards"
	"github.com/accredmap/backend/pkg/store"
)

// MappingMemoryStore implements store.MappingStore with process-local maps.
type MappingMemoryStore struct {
	mu       sync.Mutex
	byDoc    map[string]map[string]common.Mapping
	inFlight map[string]struct{}

	// Now is swappable for tests that need fixed timestamps.
	Now func() time.Time
}

func NewMappingMemoryStore() *MappingMemoryStore {
	return &MappingMemoryStore{
		byDoc:    make(map[string]map[string]common.Mapping),
		inFlight: make(map[string]struct{}),
		Now:      time.Now,
	}
}

// Upsert atomically replaces the document's mapping set. A concurrent
// upsert for the same document is rejected with ErrAnalysisInProgress.
func (s *MappingMemoryStore) Upsert(ctx context.Context, documentID string, candidates []match.Candidate) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	if _, busy := s.inFlight[documentID]; busy {
		s.mu.Unlock()
		return 0, store.ErrAnalysisInProgress
	}
	s.inFlight[documentID] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inFlight, documentID)
		s.mu.Unlock()
	}()

	computedAt := s.Now().UTC()
	next := make(map[string]common.Mapping, len(candidates))
	for _, cand := range candidates {
		next[cand.StandardID] = store.MappingFromCandidate(documentID, cand, computedAt)
	}

	s.mu.Lock()
	s.byDoc[documentID] = next
	s.mu.Unlock()

	return len(next), nil
}

// Get returns the document's mappings sorted by standard id.
func (s *MappingMemoryStore) Get(ctx context.Context, documentID string) ([]common.Mapping, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mappings := make([]common.Mapping, 0, len(s.byDoc[documentID]))
	for _, m := range s.byDoc[documentID] {
		mappings = append(mappings, m)
	}
	sort.Slice(mappings, func(i, j int) bool {
		return mappings[i].StandardID < mappings[j].StandardID
	})
	return mappings, nil
}

// GetForStandard returns every document's mapping against the standard,
// sorted by document id.
func (s *MappingMemoryStore) GetForStandard(ctx context.Context, standardID string) ([]common.Mapping, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var mappings []common.Mapping
	for _, docMappings := range s.byDoc {
		if m, ok := docMappings[standardID]; ok {
			mappings = append(mappings, m)
		}
	}
	sort.Slice(mappings, func(i, j int) bool {
		return mappings[i].DocumentID < mappings[j].DocumentID
	})
	return mappings, nil
}

// MappedStandardIDs returns the distinct standard ids with at least one
// mapping, sorted.
func (s *MappingMemoryStore) MappedStandardIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	set := make(map[string]struct{})
	for _, docMappings := range s.byDoc {
		for standardID := range docMappings {
			set[standardID] = struct{}{}
		}
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// MappedDocumentIDs returns the distinct document ids with at least one
// mapping, sorted.
func (s *MappingMemoryStore) MappedDocumentIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.byDoc))
	for documentID, docMappings := range s.byDoc {
		if len(docMappings) > 0 {
			ids = append(ids, documentID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// DeleteForDocument removes all mappings of a document. Part of the
// document-deletion cascade owned by the external document lifecycle.
func (s *MappingMemoryStore) DeleteForDocument(ctx context.Context, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byDoc, documentID)
	return nil
}

// EmbeddingMemoryCache implements store.EmbeddingCache with a process-local map.
type EmbeddingMemoryCache struct {
	mu      sync.RWMutex
	vectors map[int64]map[string][]float32
}

func NewEmbeddingMemoryCache() *EmbeddingMemoryCache {
	return &EmbeddingMemoryCache{
		vectors: make(map[int64]map[string][]float32),
	}
}

func (c *EmbeddingMemoryCache) Get(ctx context.Context, generationID int64, standardID string) ([]float32, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	vec, ok := c.vectors[generationID][standardID]
	return vec, ok, nil
}

// Warm embeds every standard of the generation and drops vectors for older
// generations.
func (c *EmbeddingMemoryCache) Warm(ctx context.Context, gen *standards.Generation, client ai.EmbeddingClient) error {
	if client == nil {
		return nil
	}

	var ids []string
	var inputs [][]byte
	for _, acc := range gen.Accreditors() {
		for _, std := range gen.StandardsFor(acc.Code) {
			ids = append(ids, std.ID)
			inputs = append(inputs, []byte(match.StandardText(std)))
		}
	}

	vectors, err := ai.GenerateEmbeddings(ctx, client, inputs)
	if err != nil {
		return err
	}

	byStandard := make(map[string][]float32, len(ids))
	for i, id := range ids {
		byStandard[id] = vectors[i]
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.vectors = map[int64]map[string][]float32{gen.ID(): byStandard}
	return nil
}

package memory

import (
	"context"
	"testing"

	"github.com/accredmap/backend/pkg/ai"
	"github.com/accredmap/backend/pkg/common"
	"github.com/accredmap/backend/pkg/standards"
)

type fakeEmbedder struct{}

func (fakeEmbedder) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	return []float32{float32(len(input)), 1}, nil
}

func (fakeEmbedder) ResetMetrics() {}

func (fakeEmbedder) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

func TestEmbeddingCacheWarmAndGet(t *testing.T) {
	ctx := context.Background()
	gen, err := standards.Build([]common.Accreditor{
		{
			Code: "TSTA",
			Name: "Test Accreditor A",
			Standards: []common.Standard{
				{ID: "TSTA.1", Accreditor: "TSTA", Title: "Governance"},
				{ID: "TSTA.2", Accreditor: "TSTA", Title: "Finance"},
			},
		},
	})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	cache := NewEmbeddingMemoryCache()
	if err := cache.Warm(ctx, gen, fakeEmbedder{}); err != nil {
		t.Fatalf("Warm returned error: %v", err)
	}

	vec, ok, err := cache.Get(ctx, gen.ID(), "TSTA.1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if !ok || len(vec) == 0 {
		t.Errorf("expected cached vector for TSTA.1, ok=%v vec=%v", ok, vec)
	}

	if _, ok, _ := cache.Get(ctx, gen.ID(), "TSTA.99"); ok {
		t.Error("expected cache miss for unknown standard")
	}
}

func TestEmbeddingCacheWarmNilClient(t *testing.T) {
	cache := NewEmbeddingMemoryCache()
	if err := cache.Warm(context.Background(), nil, nil); err != nil {
		t.Fatalf("Warm with nil client should be a no-op, got %v", err)
	}
}

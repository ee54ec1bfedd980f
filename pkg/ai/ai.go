package ai

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ModelMetrics contains accumulated usage metrics from embedding operations.
type ModelMetrics struct {
	InputTokens    int     `json:"input_tokens"`
	TotalTokens    int     `json:"total_tokens"`
	DurationMs     int64   `json:"duration_ms"`
	TokenPerSecond float32 `json:"tokens_per_second"`
}

// EmbeddingClient defines the interface for embedding backends used by the
// matching engine. A nil client is a valid deployment: semantic scoring is
// then skipped and its weight redistributed to the lexical term.
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error)
	ResetMetrics()
	GetMetrics() ModelMetrics
}

type embeddingBatcher interface {
	GenerateEmbeddings(ctx context.Context, inputs [][]byte) ([][]float32, error)
}

// GenerateEmbeddings embeds multiple inputs, using the client's batch fast
// path when it has one and falling back to parallel single calls otherwise.
// Output order matches input order.
func GenerateEmbeddings(
	ctx context.Context,
	client EmbeddingClient,
	inputs [][]byte,
) ([][]float32, error) {
	if client == nil {
		return nil, fmt.Errorf("embedding client is nil")
	}
	if len(inputs) == 0 {
		return nil, nil
	}
	if b, ok := client.(embeddingBatcher); ok {
		return b.GenerateEmbeddings(ctx, inputs)
	}

	out := make([][]float32, len(inputs))

	eg, ectx := errgroup.WithContext(ctx)
	for i := range inputs {
		idx := i
		in := inputs[i]
		eg.Go(func() error {
			emb, err := client.GenerateEmbedding(ectx, in)
			if err != nil {
				return err
			}
			out[idx] = emb
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

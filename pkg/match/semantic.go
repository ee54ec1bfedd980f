package match

import (
	"context"
	"math"
	"strings"

	"github.com/accredmap/backend/pkg/ai"
	"github.com/accredmap/backend/pkg/common"

	"github.com/pkoukk/tiktoken-go"
)

// maxEmbedTokens bounds the text sent to the embedding backend per request.
// Longer documents are chunked and their chunk vectors averaged.
const maxEmbedTokens = 512

// embedDocument produces a single vector for the document text, chunking on
// the token budget and averaging chunk vectors so long documents do not
// overflow the backend's context window.
func embedDocument(ctx context.Context, client ai.EmbeddingClient, encoder, text string) ([]float32, error) {
	chunks, err := chunkByTokens(text, encoder, maxEmbedTokens)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	inputs := make([][]byte, len(chunks))
	for i, chunk := range chunks {
		inputs[i] = []byte(chunk)
	}

	vectors, err := ai.GenerateEmbeddings(ctx, client, inputs)
	if err != nil {
		return nil, err
	}

	return meanVector(vectors), nil
}

// embedStandard produces the vector for a standard's full text (title,
// description, clauses, indicators joined).
func embedStandard(ctx context.Context, client ai.EmbeddingClient, std *common.Standard) ([]float32, error) {
	return client.GenerateEmbedding(ctx, []byte(StandardText(std)))
}

// StandardText flattens a standard into the text embedded for semantic
// scoring. The same flattening feeds the embedding cache warmup so cached
// and ad hoc vectors agree.
func StandardText(std *common.Standard) string {
	var b strings.Builder
	b.WriteString(std.Title)
	if std.Description != "" {
		b.WriteString("\n")
		b.WriteString(std.Description)
	}
	for _, clause := range std.Clauses {
		b.WriteString("\n")
		b.WriteString(clause.Text)
		for _, ind := range clause.Indicators {
			b.WriteString("\n")
			b.WriteString(ind.Text)
		}
	}
	return b.String()
}

func chunkByTokens(text string, encoder string, maxTokens int) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	enc, err := tiktoken.GetEncoding(encoder)
	if err != nil {
		return nil, err
	}

	ids := enc.Encode(text, nil, nil)
	if len(ids) <= maxTokens {
		return []string{text}, nil
	}

	var chunks []string
	for start := 0; start < len(ids); start += maxTokens {
		end := min(start+maxTokens, len(ids))
		chunks = append(chunks, enc.Decode(ids[start:end]))
	}
	return chunks, nil
}

func meanVector(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	if len(vectors) == 1 {
		return vectors[0]
	}
	out := make([]float32, len(vectors[0]))
	for _, vec := range vectors {
		for i := range vec {
			if i < len(out) {
				out[i] += vec[i]
			}
		}
	}
	n := float32(len(vectors))
	for i := range out {
		out[i] /= n
	}
	return out
}

// cosineSimilarity computes cosine similarity between two vectors.
// Returns 0.0 for zero-norm vectors or mismatched lengths.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	na := math.Sqrt(normA)
	nb := math.Sqrt(normB)
	if na == 0 || nb == 0 {
		return 0.0
	}

	return dot / (na * nb)
}

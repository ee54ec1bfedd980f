package pgx

import (
	"context"

	"github.com/accredmap/backend/internal/util"
	"github.com/accredmap/backend/pkg/ai"
	"github.com/accredmap/backend/pkg/logger"
	"github.com/accredmap/backend/pkg/match"
	"github.com/accredmap/backend/pkg/standards"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

const warmBatchSize = 64

// EmbeddingDBCache implements store.EmbeddingCache on a pgvector table keyed
// by graph generation, so a reload warms fresh vectors without disturbing
// reads pinned to the previous generation.
type EmbeddingDBCache struct {
	conn pgxIConn
}

func NewEmbeddingDBCache(pool *pgxpool.Pool) *EmbeddingDBCache {
	return &EmbeddingDBCache{conn: pool}
}

func (c *EmbeddingDBCache) Get(ctx context.Context, generationID int64, standardID string) ([]float32, bool, error) {
	var vec pgvector.Vector
	err := c.conn.QueryRow(ctx, selectEmbeddingSQL, generationID, standardID).Scan(&vec)
	if err != nil {
		if err == pgxv5.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return vec.Slice(), true, nil
}

// Warm embeds the flattened text of every standard in the generation and
// stores the vectors, then purges vectors of older generations. Purging
// after the insert keeps the previous generation queryable for in-flight
// analyses until the new one is fully written.
func (c *EmbeddingDBCache) Warm(ctx context.Context, gen *standards.Generation, client ai.EmbeddingClient) error {
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

	for start := 0; start < len(ids); start += warmBatchSize {
		end := min(start+warmBatchSize, len(ids))

		batchInputs := inputs[start:end]
		vectors, err := util.RetryWithContext(ctx, 3, func(ctx context.Context) ([][]float32, error) {
			return ai.GenerateEmbeddings(ctx, client, batchInputs)
		})
		if err != nil {
			return err
		}

		batch := &pgxv5.Batch{}
		for i, id := range ids[start:end] {
			batch.Queue(upsertEmbeddingSQL, gen.ID(), id, pgvector.NewVector(vectors[i]))
		}
		if err := c.conn.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
	}

	if _, err := c.conn.Exec(ctx, purgeEmbeddingsSQL, gen.ID()); err != nil {
		return err
	}

	logger.Info("[Store] Embedding cache warmed", "generation", gen.ID(), "standards", len(ids))
	return nil
}

const selectEmbeddingSQL = `
SELECT embedding
FROM standard_embeddings
WHERE generation_id = $1 AND standard_id = $2;
`

const upsertEmbeddingSQL = `
INSERT INTO standard_embeddings (generation_id, standard_id, embedding)
VALUES ($1, $2, $3)
ON CONFLICT (generation_id, standard_id)
DO UPDATE SET embedding = EXCLUDED.embedding;
`

const purgeEmbeddingsSQL = `
DELETE FROM standard_embeddings
WHERE generation_id < $1;
`

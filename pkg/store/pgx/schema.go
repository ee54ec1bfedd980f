package pgx

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the tables the store relies on if they do not exist.
// Called once at process boot; every statement is idempotent.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS vector;`,

	`CREATE TABLE IF NOT EXISTS mappings (
		public_id       TEXT PRIMARY KEY,
		document_id     TEXT NOT NULL,
		standard_id     TEXT NOT NULL,
		confidence      DOUBLE PRECISION NOT NULL,
		classification  TEXT NOT NULL,
		match_type      TEXT NOT NULL,
		rationale_spans TEXT[] NOT NULL DEFAULT '{}',
		computed_at     TIMESTAMPTZ NOT NULL
	);`,

	`CREATE INDEX IF NOT EXISTS mappings_document_id_idx ON mappings (document_id);`,

	`CREATE INDEX IF NOT EXISTS mappings_standard_id_idx ON mappings (standard_id);`,

	`CREATE TABLE IF NOT EXISTS standard_embeddings (
		generation_id BIGINT NOT NULL,
		standard_id   TEXT NOT NULL,
		embedding     vector,
		PRIMARY KEY (generation_id, standard_id)
	);`,

	`CREATE TABLE IF NOT EXISTS app_locks (
		lock_key   TEXT PRIMARY KEY,
		locked_by  TEXT NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL
	);`,
}

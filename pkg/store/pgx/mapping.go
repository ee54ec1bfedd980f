package pgx

import (
	"context"
	"errors"
	"time"

	"github.com/accredmap/backend/internal/util"
	"github.com/accredmap/backend/pkg/common"
	"github.com/accredmap/backend/pkg/leaselock"
	"github.com/accredmap/backend/pkg/logger"
	"github.com/accredmap/backend/pkg/match"
	"github.com/accredmap/backend/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
	SendBatch(ctx context.Context, b *pgxv5.Batch) pgxv5.BatchResults
}

const upsertLeaseTTL = 2 * time.Minute

// MappingDBStore implements store.MappingStore on PostgreSQL. Same-document
// upserts are serialized with a database lease so concurrent re-analysis of
// one document across processes resolves to at most one in-flight write.
type MappingDBStore struct {
	conn  pgxIConn
	lease *leaselock.Client
}

// NewMappingDBStore creates a mapping store over a pgx pool. The pool is
// also used for the per-document upsert leases.
func NewMappingDBStore(pool *pgxpool.Pool) *MappingDBStore {
	return &MappingDBStore{
		conn:  pool,
		lease: leaselock.New(pool),
	}
}

// Upsert replaces the document's mapping set in one transaction: delete all
// prior rows, insert the new set. Re-running analysis on an unchanged
// document refreshes values without creating duplicate rows.
func (s *MappingDBStore) Upsert(ctx context.Context, documentID string, candidates []match.Candidate) (int, error) {
	lease, err := s.lease.Acquire(ctx, "mapping:doc:"+documentID, leaselock.Options{TTL: upsertLeaseTTL})
	if err != nil {
		if errors.Is(err, leaselock.ErrBusy) {
			return 0, store.ErrAnalysisInProgress
		}
		return 0, err
	}
	defer func() {
		_ = lease.Release(context.Background())
	}()

	computedAt := time.Now().UTC()

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, deleteMappingsSQL, documentID); err != nil {
		return 0, err
	}

	batch := &pgxv5.Batch{}
	for _, cand := range candidates {
		m := store.MappingFromCandidate(documentID, cand, computedAt)
		spans := make([]string, len(m.RationaleSpans))
		for i, span := range m.RationaleSpans {
			spans[i] = util.SanitizePostgresText(span)
		}
		batch.Queue(insertMappingSQL,
			m.ID,
			m.DocumentID,
			m.StandardID,
			m.Confidence,
			m.Classification,
			m.MatchType,
			spans,
			m.ComputedAt,
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	logger.Debug("[Store] Mapping set replaced", "document_id", documentID, "mappings", len(candidates))
	return len(candidates), nil
}

// Get returns the document's mappings ordered by standard id.
func (s *MappingDBStore) Get(ctx context.Context, documentID string) ([]common.Mapping, error) {
	rows, err := s.conn.Query(ctx, selectByDocumentSQL, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMappings(rows)
}

// GetForStandard returns every mapping against the standard ordered by
// document id.
func (s *MappingDBStore) GetForStandard(ctx context.Context, standardID string) ([]common.Mapping, error) {
	rows, err := s.conn.Query(ctx, selectByStandardSQL, standardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMappings(rows)
}

// MappedStandardIDs lists the distinct mapped standard ids, sorted.
func (s *MappingDBStore) MappedStandardIDs(ctx context.Context) ([]string, error) {
	rows, err := s.conn.Query(ctx, selectMappedStandardsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MappedDocumentIDs lists the distinct mapped document ids, sorted.
func (s *MappingDBStore) MappedDocumentIDs(ctx context.Context) ([]string, error) {
	rows, err := s.conn.Query(ctx, selectMappedDocumentsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteForDocument removes the document's mappings. Called by the external
// document lifecycle when a document is deleted.
func (s *MappingDBStore) DeleteForDocument(ctx context.Context, documentID string) error {
	_, err := s.conn.Exec(ctx, deleteMappingsSQL, documentID)
	return err
}

func scanMappings(rows pgxv5.Rows) ([]common.Mapping, error) {
	mappings := make([]common.Mapping, 0)
	for rows.Next() {
		var m common.Mapping
		if err := rows.Scan(
			&m.ID,
			&m.DocumentID,
			&m.StandardID,
			&m.Confidence,
			&m.Classification,
			&m.MatchType,
			&m.RationaleSpans,
			&m.ComputedAt,
		); err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

const deleteMappingsSQL = `
DELETE FROM mappings
WHERE document_id = $1;
`

const insertMappingSQL = `
INSERT INTO mappings (
	public_id, document_id, standard_id, confidence,
	classification, match_type, rationale_spans, computed_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`

const selectByDocumentSQL = `
SELECT public_id, document_id, standard_id, confidence,
       classification, match_type, rationale_spans, computed_at
FROM mappings
WHERE document_id = $1
ORDER BY standard_id;
`

const selectMappedStandardsSQL = `
SELECT DISTINCT standard_id
FROM mappings
ORDER BY standard_id;
`

const selectMappedDocumentsSQL = `
SELECT DISTINCT document_id
FROM mappings
ORDER BY document_id;
`

const selectByStandardSQL = `
SELECT public_id, document_id, standard_id, confidence,
       classification, match_type, rationale_spans, computed_at
FROM mappings
WHERE standard_id = $1
ORDER BY document_id;
`

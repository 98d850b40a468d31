package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// UpsertDocumentParams are the parameters for Querier.UpsertDocument.
type UpsertDocumentParams struct {
	ID        string
	Content   string
	Embedding *pgvector.Vector
	Metadata  []byte // JSON-encoded metadata
	CreatedAt pgtype.Timestamptz
}

// SearchDocumentsParams are the parameters for Querier.SearchDocuments.
// A nil FilterMetadata means no filter.
type SearchDocumentsParams struct {
	QueryEmbedding *pgvector.Vector
	FilterMetadata []byte // JSONB containment filter, nil = unfiltered
	ResultLimit    int32
}

// SearchDocumentsRow is one row returned by Querier.SearchDocuments.
type SearchDocumentsRow struct {
	ID         string
	Content    string
	Metadata   []byte
	CreatedAt  pgtype.Timestamptz
	Similarity float64
}

// Queries implements Querier on a pgx connection pool.
//
// All statements are parameterized; filter metadata is always JSON produced
// by json.Marshal, so the JSONB @> containment operator is injection-safe.
type Queries struct {
	pool *pgxpool.Pool
}

// NewQueries creates a Queries instance over the given pool.
func NewQueries(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}

const upsertDocumentSQL = `
INSERT INTO documents (id, content, embedding, metadata, created_at)
VALUES ($1, $2, $3, $4, COALESCE($5, now()))
ON CONFLICT (id) DO UPDATE
SET content = EXCLUDED.content,
    embedding = EXCLUDED.embedding,
    metadata = EXCLUDED.metadata,
    created_at = EXCLUDED.created_at
`

// UpsertDocument inserts or replaces a document row.
func (q *Queries) UpsertDocument(ctx context.Context, arg UpsertDocumentParams) error {
	var createdAt any
	if arg.CreatedAt.Valid {
		createdAt = arg.CreatedAt
	}
	_, err := q.pool.Exec(ctx, upsertDocumentSQL,
		arg.ID, arg.Content, arg.Embedding, arg.Metadata, createdAt)
	if err != nil {
		return fmt.Errorf("upserting document: %w", err)
	}
	return nil
}

const searchDocumentsSQL = `
SELECT id, content, metadata, created_at,
       1 - (embedding <=> $1) AS similarity
FROM documents
WHERE $2::jsonb IS NULL OR metadata @> $2::jsonb
ORDER BY embedding <=> $1
LIMIT $3
`

// SearchDocuments performs a cosine-similarity search, optionally filtered
// by JSONB metadata containment.
func (q *Queries) SearchDocuments(ctx context.Context, arg SearchDocumentsParams) ([]SearchDocumentsRow, error) {
	rows, err := q.pool.Query(ctx, searchDocumentsSQL,
		arg.QueryEmbedding, arg.FilterMetadata, arg.ResultLimit)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	defer rows.Close()

	var results []SearchDocumentsRow
	for rows.Next() {
		var r SearchDocumentsRow
		if err := rows.Scan(&r.ID, &r.Content, &r.Metadata, &r.CreatedAt, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search rows: %w", err)
	}
	return results, nil
}

const countDocumentsSQL = `
SELECT count(*) FROM documents
WHERE $1::jsonb IS NULL OR metadata @> $1::jsonb
`

// CountDocuments counts documents matching the filter (nil = all).
func (q *Queries) CountDocuments(ctx context.Context, filterMetadata []byte) (int64, error) {
	var count int64
	if err := q.pool.QueryRow(ctx, countDocumentsSQL, filterMetadata).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return count, nil
}

const deleteDocumentSQL = `DELETE FROM documents WHERE id = $1`

// DeleteDocument deletes a document by ID.
func (q *Queries) DeleteDocument(ctx context.Context, id string) error {
	if _, err := q.pool.Exec(ctx, deleteDocumentSQL, id); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

const deleteDocumentsBySourceSQL = `DELETE FROM documents WHERE metadata->>'source' = $1`

// DeleteDocumentsBySource deletes every chunk indexed from the given source.
// Returns the number of rows removed.
func (q *Queries) DeleteDocumentsBySource(ctx context.Context, source string) (int64, error) {
	tag, err := q.pool.Exec(ctx, deleteDocumentsBySourceSQL, source)
	if err != nil {
		return 0, fmt.Errorf("deleting documents for source %q: %w", source, err)
	}
	return tag.RowsAffected(), nil
}

// SourceSummary is one indexed source with its page count.
type SourceSummary struct {
	Source string
	Pages  int64
}

const listSourcesSQL = `
SELECT metadata->>'source' AS source, count(*) AS pages
FROM documents
WHERE metadata ? 'source'
GROUP BY 1
ORDER BY 1
`

// ListSources returns every indexed source with the number of pages stored
// for it, sorted by source name.
func (q *Queries) ListSources(ctx context.Context) ([]SourceSummary, error) {
	rows, err := q.pool.Query(ctx, listSourcesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	defer rows.Close()

	var sources []SourceSummary
	for rows.Next() {
		var s SourceSummary
		if err := rows.Scan(&s.Source, &s.Pages); err != nil {
			return nil, fmt.Errorf("scanning source row: %w", err)
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating source rows: %w", err)
	}
	return sources, nil
}

// NewTimestamptz converts a time.Time to pgtype.Timestamptz, mapping the
// zero time to NULL.
func NewTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: !t.IsZero()}
}

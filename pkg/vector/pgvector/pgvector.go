// Package pgvector provides a vector.Driver on PostgreSQL with the pgvector
// extension.
package pgvector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/papercomputeco/ragline/pkg/vector"
)

// DefaultTable is the chunk table used when none is configured.
const DefaultTable = "ragline_chunks"

var validTable = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config holds configuration for the pgvector driver.
type Config struct {
	// ConnString is a PostgreSQL connection string or URI.
	ConnString string

	// Table defaults to DefaultTable.
	Table string

	// Dimensions sizes the embedding column. Required.
	Dimensions uint
}

// Driver implements vector.Driver using a pgx connection pool.
type Driver struct {
	pool   *pgxpool.Pool
	table  string
	logger *slog.Logger
}

// NewDriver connects, enables the vector extension and creates the chunk table.
func NewDriver(ctx context.Context, c Config, logger *slog.Logger) (*Driver, error) {
	if c.ConnString == "" {
		return nil, errors.New("postgres connection string is required")
	}
	if c.Dimensions == 0 {
		return nil, errors.New("pgvector embedding dimensions cannot be 0, must be configured")
	}
	table := c.Table
	if table == "" {
		table = DefaultTable
	}
	if !validTable.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	pool, err := pgxpool.New(ctx, c.ConnString)
	if err != nil {
		return nil, fmt.Errorf("%w: creating pool: %w", vector.ErrConnection, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: pinging database: %w", vector.ErrConnection, err)
	}

	ddl := fmt.Sprintf(`
		CREATE EXTENSION IF NOT EXISTS vector;
		CREATE TABLE IF NOT EXISTS %[1]s (
			id           TEXT PRIMARY KEY,
			document_id  TEXT NOT NULL,
			seq          INTEGER NOT NULL,
			text         TEXT NOT NULL,
			start_offset INTEGER NOT NULL,
			end_offset   INTEGER NOT NULL,
			metadata     JSONB NOT NULL DEFAULT '{}',
			ingested_at  TIMESTAMPTZ NOT NULL,
			embedding    vector(%[2]d) NOT NULL
		);
		CREATE INDEX IF NOT EXISTS %[1]s_document_id ON %[1]s (document_id);
	`, table, c.Dimensions)
	if _, err := pool.Exec(ctx, ddl); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("pgvector driver initialized", "table", table, "dimensions", c.Dimensions)

	return &Driver{pool: pool, table: table, logger: logger}, nil
}

// Upsert writes all records in one transaction.
func (d *Driver) Upsert(ctx context.Context, records []vector.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", vector.ErrConnection, err)
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf(`
		INSERT INTO %s (id, document_id, seq, text, start_offset, end_offset, metadata, ingested_at, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			seq = EXCLUDED.seq,
			text = EXCLUDED.text,
			start_offset = EXCLUDED.start_offset,
			end_offset = EXCLUDED.end_offset,
			metadata = EXCLUDED.metadata,
			ingested_at = EXCLUDED.ingested_at,
			embedding = EXCLUDED.embedding`, d.table)

	for _, r := range records {
		meta := r.Metadata
		if meta == nil {
			meta = map[string]string{}
		}
		if _, err := tx.Exec(ctx, query,
			r.ID, r.DocumentID, r.Index, r.Text, r.Start, r.End, meta, r.IngestedAt,
			pgvector.NewVector(r.Embedding),
		); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("upserted chunks to pgvector", "count", len(records))
	return nil
}

// Search orders by cosine distance, breaking ties by ingestion time and then
// by chunk index within a document.
func (d *Driver) Search(ctx context.Context, query []float32, k int) ([]vector.QueryResult, error) {
	if k <= 0 {
		return nil, nil
	}

	rows, err := d.pool.Query(ctx, fmt.Sprintf(`
		SELECT id, document_id, seq, text, start_offset, end_offset, metadata, ingested_at,
			embedding <=> $1 AS distance
		FROM %s
		ORDER BY distance ASC, ingested_at ASC, document_id ASC, seq ASC
		LIMIT $2`, d.table),
		pgvector.NewVector(query), k,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: querying chunks: %w", vector.ErrConnection, err)
	}
	defer rows.Close()

	var results []vector.QueryResult
	for rows.Next() {
		var (
			r        vector.QueryResult
			distance float64
		)
		if err := rows.Scan(
			&r.ID, &r.DocumentID, &r.Index, &r.Text, &r.Start, &r.End,
			&r.Metadata, &r.IngestedAt, &distance,
		); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		r.Score = float32(1 - distance)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	d.logger.Debug("queried pgvector", "results", len(results))
	return vector.Top(results, k), nil
}

// Delete removes every chunk of documentID.
func (d *Driver) Delete(ctx context.Context, documentID string) error {
	tag, err := d.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE document_id = $1`, d.table), documentID)
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", documentID, err)
	}

	d.logger.Debug("deleted chunks from pgvector", "document_id", documentID, "count", tag.RowsAffected())
	return nil
}

// DeleteChunks removes the chunks with the given IDs.
func (d *Driver) DeleteChunks(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tag, err := d.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1)`, d.table), ids)
	if err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}

	d.logger.Debug("deleted chunks from pgvector", "count", tag.RowsAffected())
	return nil
}

// Close closes the pool.
func (d *Driver) Close() error {
	d.pool.Close()
	return nil
}

// Package sqldriver implements storage.Driver over database/sql. The sqlite
// and postgres packages open the connection and embed this driver.
package sqldriver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/papercomputeco/ragline/pkg/storage"
)

// Dialect selects the bind variable style.
type Dialect int

const (
	// SQLite uses ? placeholders.
	SQLite Dialect = iota

	// Postgres uses $n placeholders.
	Postgres
)

// Schema creates the documents table. created_at holds Unix nanoseconds so the
// same DDL works on both dialects.
const Schema = `
CREATE TABLE IF NOT EXISTS documents (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL DEFAULT '',
	category    TEXT NOT NULL DEFAULT '',
	source      TEXT NOT NULL DEFAULT '',
	chunk_count INTEGER NOT NULL DEFAULT 0,
	characters  INTEGER NOT NULL DEFAULT 0,
	metadata    TEXT NOT NULL DEFAULT '{}',
	created_at  BIGINT NOT NULL,
	version     TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS documents_created_at ON documents (created_at, id);
`

const selectColumns = `SELECT id, title, category, source, chunk_count, characters, metadata, created_at, version FROM documents`

// Driver implements storage.Driver using a *sql.DB.
type Driver struct {
	DB      *sql.DB
	Dialect Dialect
}

// Migrate runs Schema statement by statement.
func (d *Driver) Migrate(ctx context.Context) error {
	for stmt := range strings.SplitSeq(Schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := d.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Put inserts or replaces a document record.
func (d *Driver) Put(ctx context.Context, doc *storage.Document) error {
	if doc == nil {
		return errors.New("cannot store nil document")
	}
	if doc.ID == "" {
		return errors.New("document ID is required")
	}

	meta := doc.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = d.DB.ExecContext(ctx, d.rebind(`
		INSERT INTO documents (id, title, category, source, chunk_count, characters, metadata, created_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			category = excluded.category,
			source = excluded.source,
			chunk_count = excluded.chunk_count,
			characters = excluded.characters,
			metadata = excluded.metadata,
			created_at = excluded.created_at,
			version = excluded.version`),
		doc.ID, doc.Title, doc.Category, doc.Source, doc.ChunkCount, doc.Characters,
		string(metaJSON), doc.CreatedAt.UnixNano(), doc.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to put document %s: %w", doc.ID, err)
	}
	return nil
}

// Get retrieves a document by ID.
func (d *Driver) Get(ctx context.Context, id string) (*storage.Document, error) {
	row := d.DB.QueryRowContext(ctx, d.rebind(selectColumns+` WHERE id = ?`), id)
	doc, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	return doc, nil
}

// List returns every document ordered by creation time, then ID.
func (d *Driver) List(ctx context.Context) ([]*storage.Document, error) {
	rows, err := d.DB.QueryContext(ctx, selectColumns+` ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*storage.Document
	for rows.Next() {
		doc, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Delete removes a document by ID.
func (d *Driver) Delete(ctx context.Context, id string) error {
	res, err := d.DB.ExecContext(ctx, d.rebind(`DELETE FROM documents WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	if n == 0 {
		return storage.NotFoundError{ID: id}
	}
	return nil
}

// Close closes the underlying database.
func (d *Driver) Close() error {
	return d.DB.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*storage.Document, error) {
	var (
		doc       storage.Document
		metaJSON  string
		createdAt int64
	)
	if err := s.Scan(&doc.ID, &doc.Title, &doc.Category, &doc.Source,
		&doc.ChunkCount, &doc.Characters, &metaJSON, &createdAt, &doc.Version); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(metaJSON), &doc.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	if len(doc.Metadata) == 0 {
		doc.Metadata = nil
	}
	doc.CreatedAt = time.Unix(0, createdAt).UTC()
	return &doc, nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func (d *Driver) rebind(query string) string {
	if d.Dialect != Postgres {
		return query
	}

	var (
		b strings.Builder
		n int
	)
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var _ storage.Driver = (*Driver)(nil)

// Package sqlitevec provides a SQLite-backed vector driver using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/ragline/pkg/vector"
)

// Driver implements vector.Driver using SQLite with sqlite-vec.
type Driver struct {
	db         *sql.DB
	dimensions uint
	logger     *slog.Logger
}

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the embedding dimensionality. Required.
	Dimensions uint
}

const schema = `
CREATE TABLE IF NOT EXISTS vec_chunks (
	rowid        INTEGER PRIMARY KEY AUTOINCREMENT,
	chunk_id     TEXT NOT NULL UNIQUE,
	document_id  TEXT NOT NULL,
	seq          INTEGER NOT NULL,
	text         TEXT NOT NULL,
	start_offset INTEGER NOT NULL,
	end_offset   INTEGER NOT NULL,
	metadata     TEXT NOT NULL DEFAULT '{}',
	ingested_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS vec_chunks_document_id ON vec_chunks(document_id);
`

// NewDriver opens the database and creates the chunk and vec0 tables.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, errors.New("database path is required")
	}
	if c.Dimensions == 0 {
		return nil, errors.New("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// vec0 and :memory: databases are per connection.
	db.SetMaxOpenConns(1)

	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating chunks table: %w", err)
	}

	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(embedding float[%d] distance_metric=cosine)`,
		c.Dimensions,
	)
	if _, err := db.Exec(createVec); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vec0 table: %w", err)
	}

	logger.Info("sqlite-vec vector driver initialized",
		"db_path", c.DBPath,
		"dimensions", c.Dimensions,
		"vec_version", vecVersion,
	)

	return &Driver{
		db:         db,
		dimensions: c.Dimensions,
		logger:     logger,
	}, nil
}

// serializeFloat32 converts a float32 slice to the little-endian BLOB format
// sqlite-vec expects.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Upsert writes records in a single transaction.
func (d *Driver) Upsert(ctx context.Context, records []vector.Record) error {
	if len(records) == 0 {
		return nil
	}

	for _, r := range records {
		if uint(len(r.Embedding)) != d.dimensions {
			return fmt.Errorf("%w: chunk %s has %d dimensions, store has %d",
				vector.ErrDimensionMismatch, r.ID, len(r.Embedding), d.dimensions)
		}
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, r := range records {
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata for chunk %s: %w", r.ID, err)
		}

		var rowID int64
		err = tx.QueryRowContext(ctx,
			`SELECT rowid FROM vec_chunks WHERE chunk_id = ?`, r.ID,
		).Scan(&rowID)

		switch {
		case err == nil:
			if _, err := tx.ExecContext(ctx, `
				UPDATE vec_chunks
				SET document_id = ?, seq = ?, text = ?, start_offset = ?, end_offset = ?, metadata = ?, ingested_at = ?
				WHERE rowid = ?`,
				r.DocumentID, r.Index, r.Text, r.Start, r.End, string(meta), r.IngestedAt.UnixNano(), rowID,
			); err != nil {
				return fmt.Errorf("updating chunk %s: %w", r.ID, err)
			}
			// vec0 does not support UPDATE
			if _, err := tx.ExecContext(ctx, `DELETE FROM vec_embeddings WHERE rowid = ?`, rowID); err != nil {
				return fmt.Errorf("deleting old embedding for chunk %s: %w", r.ID, err)
			}
		case errors.Is(err, sql.ErrNoRows):
			result, err := tx.ExecContext(ctx, `
				INSERT INTO vec_chunks(chunk_id, document_id, seq, text, start_offset, end_offset, metadata, ingested_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				r.ID, r.DocumentID, r.Index, r.Text, r.Start, r.End, string(meta), r.IngestedAt.UnixNano(),
			)
			if err != nil {
				return fmt.Errorf("inserting chunk %s: %w", r.ID, err)
			}
			if rowID, err = result.LastInsertId(); err != nil {
				return fmt.Errorf("getting rowid for chunk %s: %w", r.ID, err)
			}
		default:
			return fmt.Errorf("checking for existing chunk %s: %w", r.ID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
			rowID, serializeFloat32(r.Embedding),
		); err != nil {
			return fmt.Errorf("inserting embedding for chunk %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("upserted chunks to sqlite-vec", "count", len(records))
	return nil
}

// Search runs a KNN query through vec0 MATCH and joins the chunk rows back.
func (d *Driver) Search(ctx context.Context, query []float32, k int) ([]vector.QueryResult, error) {
	if k <= 0 {
		return nil, nil
	}
	if uint(len(query)) != d.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, store has %d",
			vector.ErrDimensionMismatch, len(query), d.dimensions)
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT
			c.rowid, c.chunk_id, c.document_id, c.seq, c.text,
			c.start_offset, c.end_offset, c.metadata, c.ingested_at,
			ve.distance
		FROM vec_embeddings ve
		INNER JOIN vec_chunks c ON c.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
		ORDER BY ve.distance, c.rowid
	`, serializeFloat32(query), k)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var results []vector.QueryResult
	for rows.Next() {
		var (
			rowID      int64
			meta       string
			ingestedAt int64
			distance   float64
			r          vector.QueryResult
		)
		if err := rows.Scan(
			&rowID, &r.ID, &r.DocumentID, &r.Index, &r.Text,
			&r.Start, &r.End, &meta, &ingestedAt, &distance,
		); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &r.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata for chunk %s: %w", r.ID, err)
		}
		r.IngestedAt = time.Unix(0, ingestedAt).UTC()
		// cosine distance is in [0, 2]
		r.Score = float32(1 - distance)
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	d.logger.Debug("queried sqlite-vec", "results", len(results))
	return vector.Top(results, k), nil
}

// Delete removes every chunk of documentID.
func (d *Driver) Delete(ctx context.Context, documentID string) error {
	n, err := d.deleteWhere(ctx, "document_id", []string{documentID})
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", documentID, err)
	}
	d.logger.Debug("deleted chunks from sqlite-vec", "document_id", documentID, "count", n)
	return nil
}

// DeleteChunks removes the chunks with the given IDs.
func (d *Driver) DeleteChunks(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	n, err := d.deleteWhere(ctx, "chunk_id", ids)
	if err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	d.logger.Debug("deleted chunks from sqlite-vec", "count", n)
	return nil
}

// deleteWhere removes the chunks whose column equals any of values, together
// with their embeddings, in one transaction. column is never user input.
func (d *Driver) deleteWhere(ctx context.Context, column string, values []string) (int, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var rowIDs []int64
	for _, v := range values {
		rows, err := tx.QueryContext(ctx, `SELECT rowid FROM vec_chunks WHERE `+column+` = ?`, v)
		if err != nil {
			return 0, fmt.Errorf("querying rowids: %w", err)
		}
		for rows.Next() {
			var rowID int64
			if err := rows.Scan(&rowID); err != nil {
				rows.Close()
				return 0, fmt.Errorf("scanning rowid: %w", err)
			}
			rowIDs = append(rowIDs, rowID)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return 0, fmt.Errorf("iterating rowids: %w", err)
		}
	}

	for _, rowID := range rowIDs {
		if _, err := tx.ExecContext(ctx, `DELETE FROM vec_embeddings WHERE rowid = ?`, rowID); err != nil {
			return 0, fmt.Errorf("deleting embedding rowid %d: %w", rowID, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM vec_chunks WHERE rowid = ?`, rowID); err != nil {
			return 0, fmt.Errorf("deleting chunk rowid %d: %w", rowID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return len(rowIDs), nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return d.db.Close()
}

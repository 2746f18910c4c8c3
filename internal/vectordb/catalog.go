package vectordb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ziadkadry99/pdfqa/internal/db"
)

// Catalog records, per collection, the dimensionality and embedder it was
// created with and how many chunks it holds. It lives beside the vector
// data so both survive restarts.
type Catalog struct {
	db *db.DB
}

// NewCatalog creates a Catalog backed by database.
func NewCatalog(database *db.DB) *Catalog {
	return &Catalog{db: database}
}

// Get returns the record for id, or an error wrapping ErrCollectionNotFound.
func (c *Catalog) Get(ctx context.Context, id string) (*CollectionInfo, error) {
	var info CollectionInfo
	err := c.db.QueryRowContext(ctx,
		`SELECT id, dimensions, embedder, chunk_count, next_seq, created_at, updated_at
		 FROM collections WHERE id = ?`, id,
	).Scan(&info.ID, &info.Dimensions, &info.Embedder, &info.ChunkCount, &info.NextSeq, &info.CreatedAt, &info.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get collection %s: %w", id, err)
	}
	return &info, nil
}

// List returns every collection, most recently updated first.
func (c *Catalog) List(ctx context.Context) ([]CollectionInfo, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, dimensions, embedder, chunk_count, next_seq, created_at, updated_at
		 FROM collections ORDER BY updated_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var out []CollectionInfo
	for rows.Next() {
		var info CollectionInfo
		if err := rows.Scan(&info.ID, &info.Dimensions, &info.Embedder, &info.ChunkCount, &info.NextSeq, &info.CreatedAt, &info.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// recordWrite creates the collection record if needed and advances its
// chunk count and sequence counter by added.
func (c *Catalog) recordWrite(ctx context.Context, id string, dims int, embedder string, added int) error {
	now := time.Now().UTC()
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO collections (id, dimensions, embedder, chunk_count, next_seq, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     chunk_count = chunk_count + excluded.chunk_count,
		     next_seq = next_seq + excluded.next_seq,
		     updated_at = excluded.updated_at`,
		id, dims, embedder, added, added, now, now,
	)
	if err != nil {
		return fmt.Errorf("record write for %s: %w", id, err)
	}
	return nil
}

package vectordb

import (
	"errors"
	"time"
)

// ErrCollectionNotFound is returned when a collection holds no data.
// An existing collection whose search matches nothing is not an error.
var ErrCollectionNotFound = errors.New("collection not found")

// SearchResult is one retrieved chunk with its cosine similarity to the query.
type SearchResult struct {
	ID         string
	Content    string
	Similarity float32
	// Seq is the chunk's insertion position within its collection.
	Seq int
}

// CollectionInfo is the catalog record for a collection.
type CollectionInfo struct {
	ID         string    `json:"id"`
	Dimensions int       `json:"dimensions"`
	Embedder   string    `json:"embedder"`
	ChunkCount int       `json:"chunk_count"`
	NextSeq    int       `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Contents returns the chunk text of each result in order.
func Contents(results []SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Content
	}
	return out
}

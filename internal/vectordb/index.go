package vectordb

import "context"

// Index stores chunk text and vectors in named collections and answers
// nearest-neighbour queries against one collection at a time.
//
// Write appends: writing to an existing collection adds entries and never
// clears what is there. A single Write is all-or-nothing.
type Index interface {
	// Write persists chunks[i] with vectors[i] under collectionID.
	Write(ctx context.Context, collectionID string, chunks []string, vectors [][]float32) error

	// Search returns at most k chunks ordered by similarity, highest first;
	// equal scores keep insertion order.
	Search(ctx context.Context, collectionID string, vector []float32, k int) ([]SearchResult, error)

	// Info returns the catalog record of a collection.
	Info(ctx context.Context, collectionID string) (*CollectionInfo, error)

	// List returns all catalogued collections.
	List(ctx context.Context) ([]CollectionInfo, error)
}

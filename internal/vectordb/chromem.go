package vectordb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"sync"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"

	"github.com/ziadkadry99/pdfqa/internal/db"
	"github.com/ziadkadry99/pdfqa/internal/embeddings"
)

const seqKey = "seq"

// ChromemIndex implements Index using chromem-go for vectors and a SQLite
// catalog for per-collection bookkeeping.
type ChromemIndex struct {
	db       *chromem.DB
	catalog  *Catalog
	embedder embeddings.Embedder
	embedFn  chromem.EmbeddingFunc

	// mu serializes writes so sequence numbers are allocated without gaps.
	mu sync.Mutex
}

// NewChromemIndex wires an existing chromem DB and catalog together.
// embedder names the embedding source every collection written through
// this index is tagged with.
func NewChromemIndex(chromDB *chromem.DB, catalog *Catalog, embedder embeddings.Embedder) *ChromemIndex {
	return &ChromemIndex{
		db:       chromDB,
		catalog:  catalog,
		embedder: embedder,
		embedFn:  embeddings.ToChromemFunc(embedder),
	}
}

// OpenChromemIndex opens (or creates) a persistent index rooted at dataDir.
// Vectors live under dataDir/vectordb and the catalog in dataDir/catalog.db.
// The returned close func releases the catalog database.
func OpenChromemIndex(dataDir string, embedder embeddings.Embedder) (*ChromemIndex, func() error, error) {
	chromDB, err := chromem.NewPersistentDB(filepath.Join(dataDir, "vectordb"), true)
	if err != nil {
		return nil, nil, fmt.Errorf("open vector store: %w", err)
	}
	catalogDB, err := db.Open(filepath.Join(dataDir, "catalog.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("open catalog: %w", err)
	}
	return NewChromemIndex(chromDB, NewCatalog(catalogDB), embedder), catalogDB.Close, nil
}

func (x *ChromemIndex) Write(ctx context.Context, collectionID string, chunks []string, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("write %s: %d chunks but %d vectors", collectionID, len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	dims := len(vectors[0])
	startSeq := 0
	info, err := x.catalog.Get(ctx, collectionID)
	switch {
	case errors.Is(err, ErrCollectionNotFound):
	case err != nil:
		return err
	default:
		dims = info.Dimensions
		startSeq = info.NextSeq
		if info.Embedder != x.embedder.Name() {
			return &embeddings.DimensionMismatchError{
				Collection: collectionID, Want: info.Dimensions, Got: len(vectors[0]),
				WantEmbedder: info.Embedder, GotEmbedder: x.embedder.Name(),
			}
		}
	}
	if dims == 0 {
		return fmt.Errorf("write %s: empty vector", collectionID)
	}
	for _, v := range vectors {
		if len(v) != dims {
			return &embeddings.DimensionMismatchError{
				Collection: collectionID, Want: dims, Got: len(v),
				WantEmbedder: x.embedder.Name(), GotEmbedder: x.embedder.Name(),
			}
		}
	}

	col, err := x.db.GetOrCreateCollection(collectionID, nil, x.embedFn)
	if err != nil {
		return fmt.Errorf("open collection %s: %w", collectionID, err)
	}

	docs := make([]chromem.Document, len(chunks))
	ids := make([]string, len(chunks))
	for i, text := range chunks {
		ids[i] = uuid.NewString()
		docs[i] = chromem.Document{
			ID:        ids[i],
			Content:   text,
			Embedding: vectors[i],
			Metadata:  map[string]string{seqKey: strconv.Itoa(startSeq + i)},
		}
	}

	if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		x.rollback(collectionID, col, ids, info == nil)
		return fmt.Errorf("write %s: %w", collectionID, err)
	}
	if err := x.catalog.recordWrite(ctx, collectionID, dims, x.embedder.Name(), len(chunks)); err != nil {
		x.rollback(collectionID, col, ids, info == nil)
		return err
	}
	return nil
}

// rollback removes the entries of a failed write. A collection created by
// that write is dropped entirely.
func (x *ChromemIndex) rollback(collectionID string, col *chromem.Collection, ids []string, created bool) {
	if created {
		if err := x.db.DeleteCollection(collectionID); err != nil {
			logf("vectordb: rollback of %s failed: %v", collectionID, err)
		}
		return
	}
	if err := col.Delete(context.Background(), nil, nil, ids...); err != nil {
		logf("vectordb: rollback of %d entries in %s failed: %v", len(ids), collectionID, err)
	}
}

func (x *ChromemIndex) Search(ctx context.Context, collectionID string, vector []float32, k int) ([]SearchResult, error) {
	info, err := x.catalog.Get(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	if len(vector) != info.Dimensions || info.Embedder != x.embedder.Name() {
		return nil, &embeddings.DimensionMismatchError{
			Collection: collectionID, Want: info.Dimensions, Got: len(vector),
			WantEmbedder: info.Embedder, GotEmbedder: x.embedder.Name(),
		}
	}
	if k <= 0 {
		return nil, nil
	}

	col := x.db.GetCollection(collectionID, x.embedFn)
	if col == nil || col.Count() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collectionID)
	}

	// chromem requires nResults <= collection size. Fetch everything so ties
	// at the cut-off can be broken by insertion order.
	results, err := col.QueryEmbedding(ctx, vector, col.Count(), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collectionID, err)
	}

	out := make([]SearchResult, len(results))
	for i, r := range results {
		seq, _ := strconv.Atoi(r.Metadata[seqKey])
		out[i] = SearchResult{ID: r.ID, Content: r.Content, Similarity: r.Similarity, Seq: seq}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].Seq < out[j].Seq
	})
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (x *ChromemIndex) Info(ctx context.Context, collectionID string) (*CollectionInfo, error) {
	return x.catalog.Get(ctx, collectionID)
}

func (x *ChromemIndex) List(ctx context.Context) ([]CollectionInfo, error) {
	return x.catalog.List(ctx)
}

// Package pipeline wires parsing, chunking, embedding, indexing and answer
// generation into the upload and ask flows.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ziadkadry99/pdfqa/internal/answer"
	"github.com/ziadkadry99/pdfqa/internal/chunker"
	"github.com/ziadkadry99/pdfqa/internal/embeddings"
	"github.com/ziadkadry99/pdfqa/internal/parser"
	"github.com/ziadkadry99/pdfqa/internal/registry"
	"github.com/ziadkadry99/pdfqa/internal/stream"
	"github.com/ziadkadry99/pdfqa/internal/vectordb"
)

// ErrEmptyQuestion is returned by Ask for a blank question.
var ErrEmptyQuestion = errors.New("question is empty")

// Options tunes retrieval and delivery.
type Options struct {
	TopK int
	// EmbedTimeout bounds each embedding call; 0 means no deadline.
	EmbedTimeout time.Duration
	// Incremental streams model tokens when the backend supports it.
	Incremental bool
}

// Deps are the collaborators a Pipeline is built from.
type Deps struct {
	Parser    *parser.Registry
	Splitter  *chunker.Splitter
	Embedder  embeddings.Embedder
	Index     vectordb.Index
	Registry  *registry.Registry
	Generator *answer.Generator
	Streamer  *stream.Streamer
}

// Pipeline runs uploads and questions against one embedder and one index.
type Pipeline struct {
	parser    *parser.Registry
	splitter  *chunker.Splitter
	embedder  embeddings.Embedder
	index     vectordb.Index
	registry  *registry.Registry
	generator *answer.Generator
	streamer  *stream.Streamer
	opts      Options

	// indexing collapses concurrent uploads of one collection id into a
	// single check-and-write.
	indexing singleflight.Group
}

// New creates a Pipeline. The embedder is wrapped with embeddings.Checked.
func New(deps Deps, opts Options) *Pipeline {
	if opts.TopK <= 0 {
		opts.TopK = 2
	}
	return &Pipeline{
		parser:    deps.Parser,
		splitter:  deps.Splitter,
		embedder:  embeddings.Checked(deps.Embedder),
		index:     deps.Index,
		registry:  deps.Registry,
		generator: deps.Generator,
		streamer:  deps.Streamer,
		opts:      opts,
	}
}

// UploadResult describes an indexed document.
type UploadResult struct {
	Key          string `json:"path"`
	CollectionID string `json:"collection"`
	Chunks       int    `json:"chunks"`
	// Reused is set when identical content was already indexed.
	Reused bool `json:"reused"`
}

// Upload parses data, indexes it and registers key for later questions.
// The parser is chosen from key's extension. Nothing is registered unless
// every step succeeds.
func (p *Pipeline) Upload(ctx context.Context, key string, data []byte) (*UploadResult, error) {
	name := filepath.Base(key)
	text, err := p.parser.Parse(name, data)
	if err != nil {
		return nil, err
	}

	id := CollectionID(name, data)
	v, err, _ := p.indexing.Do(id, func() (any, error) {
		return p.indexCollection(ctx, id, name, text)
	})
	if err != nil {
		return nil, fmt.Errorf("indexing %s: %w", key, err)
	}
	res := v.(indexed)

	p.registry.Register(key, id, res.chunks)
	if res.reused {
		log.Printf("pipeline: %s already indexed as %s (%d chunks)", key, id, res.chunks)
	} else {
		log.Printf("pipeline: indexed %s into %s (%d chunks)", key, id, res.chunks)
	}
	return &UploadResult{Key: key, CollectionID: id, Chunks: res.chunks, Reused: res.reused}, nil
}

type indexed struct {
	chunks int
	reused bool
}

// indexCollection writes text into collection id unless it already exists.
// Callers must hold the id's flight in p.indexing.
func (p *Pipeline) indexCollection(ctx context.Context, id, name, text string) (indexed, error) {
	info, err := p.index.Info(ctx, id)
	switch {
	case errors.Is(err, vectordb.ErrCollectionNotFound):
	case err != nil:
		return indexed{}, err
	case info.Embedder != p.embedder.Name():
		return indexed{}, &embeddings.DimensionMismatchError{
			Collection: id, Want: info.Dimensions, Got: p.embedder.Dimensions(),
			WantEmbedder: info.Embedder, GotEmbedder: p.embedder.Name(),
		}
	default:
		return indexed{chunks: info.ChunkCount, reused: true}, nil
	}

	chunks, err := p.splitter.Split(text)
	if err != nil {
		return indexed{}, &parser.ParseError{Name: name, Err: err}
	}
	texts := chunker.Texts(chunks)

	vectors, err := p.embed(ctx, texts)
	if err != nil {
		return indexed{}, err
	}
	if err := p.index.Write(ctx, id, texts, vectors); err != nil {
		return indexed{}, err
	}
	return indexed{chunks: len(chunks)}, nil
}

func (p *Pipeline) embed(ctx context.Context, texts []string) ([][]float32, error) {
	if p.opts.EmbedTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.EmbedTimeout)
		defer cancel()
	}
	return p.embedder.Embed(ctx, texts)
}

// Lookup returns the collection registered for key.
func (p *Pipeline) Lookup(key string) (string, error) {
	return p.registry.Lookup(key)
}

// Documents returns the registered documents.
func (p *Pipeline) Documents() []registry.Entry {
	return p.registry.Entries()
}

// Collections returns every collection in the index, registered or not.
func (p *Pipeline) Collections(ctx context.Context) ([]vectordb.CollectionInfo, error) {
	return p.index.List(ctx)
}

// Retrieve returns the k chunks of collectionID most similar to query.
func (p *Pipeline) Retrieve(ctx context.Context, collectionID, query string, k int) ([]vectordb.SearchResult, error) {
	vectors, err := p.embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return p.index.Search(ctx, collectionID, vectors[0], k)
}

// Search resolves key and retrieves up to limit chunks for query.
func (p *Pipeline) Search(ctx context.Context, key, query string, limit int) ([]vectordb.SearchResult, error) {
	id, err := p.registry.Lookup(key)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = p.opts.TopK
	}
	return p.Retrieve(ctx, id, query, limit)
}

// Answer resolves key and returns the complete answer without streaming.
func (p *Pipeline) Answer(ctx context.Context, key, question string) (string, error) {
	id, err := p.prepare(key, question)
	if err != nil {
		return "", err
	}
	results, err := p.Retrieve(ctx, id, question, p.opts.TopK)
	if err != nil {
		return "", err
	}
	return p.generator.Answer(ctx, question, vectordb.Contents(results))
}

// Ask answers question about the document registered as key, streaming the
// answer to the emitter returned by open. Lookup failures are returned
// before open is called, so an unknown document produces no events.
func (p *Pipeline) Ask(ctx context.Context, key, question string, open func() (stream.Emitter, error)) error {
	id, err := p.prepare(key, question)
	if err != nil {
		return err
	}
	em, err := open()
	if err != nil {
		return err
	}
	return p.StreamAnswer(ctx, id, question, em)
}

// StreamAnswer retrieves context from collectionID and streams the answer.
// Failures after the start event are reported in-band.
func (p *Pipeline) StreamAnswer(ctx context.Context, collectionID, question string, em stream.Emitter) error {
	if p.opts.Incremental && p.generator.CanStream() {
		return p.streamer.StreamIncremental(ctx, em, func(ctx context.Context, onDelta func(string) error) error {
			results, err := p.Retrieve(ctx, collectionID, question, p.opts.TopK)
			if err != nil {
				return err
			}
			_, err = p.generator.AnswerStream(ctx, question, vectordb.Contents(results), onDelta)
			return err
		})
	}
	return p.streamer.Stream(ctx, em, func(ctx context.Context) (string, error) {
		results, err := p.Retrieve(ctx, collectionID, question, p.opts.TopK)
		if err != nil {
			return "", err
		}
		return p.generator.Answer(ctx, question, vectordb.Contents(results))
	})
}

func (p *Pipeline) prepare(key, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrEmptyQuestion
	}
	return p.registry.Lookup(key)
}

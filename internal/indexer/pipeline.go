package indexer

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks flowmind/internal/indexer Embedder

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"flowmind/internal/contextutil"
	"flowmind/internal/ingest"
	"flowmind/internal/vectorstore"
)

// Embedder generates embedding vectors for batches of text.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Pipeline turns ingested corpora into similarity-searchable retrievers.
// Indexing is content-addressed: the corpus fingerprint is the cache key, and
// a fingerprint that has already been indexed in this process reuses the
// existing retriever instead of running a second embedding pass.
type Pipeline struct {
	embedder    Embedder
	vectorStore vectorstore.VectorStore
	vectorSize  int

	mu    sync.Mutex
	cache map[string]*Retriever // fingerprint -> retriever
}

// NewPipeline creates a new indexing pipeline.
func NewPipeline(embedder Embedder, vectorStore vectorstore.VectorStore, vectorSize int) *Pipeline {
	return &Pipeline{
		embedder:    embedder,
		vectorStore: vectorStore,
		vectorSize:  vectorSize,
		cache:       make(map[string]*Retriever),
	}
}

// collectionName derives the Qdrant collection for a corpus fingerprint.
func collectionName(fingerprint string) string {
	if len(fingerprint) > 16 {
		fingerprint = fingerprint[:16]
	}
	return "doc_" + fingerprint
}

// Index builds (or reuses) a retriever for the corpus. Embedding is the
// expensive step, so a cache hit returns without touching either backend.
// Duplicate concurrent uploads of identical bytes are harmless: rebuilds are
// idempotent and last-writer-wins over identical content.
func (p *Pipeline) Index(ctx context.Context, corpus *ingest.Corpus) (*Retriever, error) {
	logger := contextutil.LoggerFromContext(ctx)

	p.mu.Lock()
	if cached, ok := p.cache[corpus.Fingerprint]; ok {
		p.mu.Unlock()
		logger.InfoContext(ctx, "index cache hit", "fingerprint", corpus.Fingerprint, "filename", corpus.Filename)
		return cached, nil
	}
	p.mu.Unlock()

	embeddings, err := p.embedder.EmbedTexts(ctx, corpus.Chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(embeddings) != len(corpus.Chunks) {
		return nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(corpus.Chunks), len(embeddings))
	}

	collection := collectionName(corpus.Fingerprint)
	if err := p.vectorStore.EnsureCollection(ctx, collection, p.vectorSize); err != nil {
		return nil, fmt.Errorf("failed to ensure collection: %w", err)
	}

	points := make([]vectorstore.Point, len(corpus.Chunks))
	for i, chunk := range corpus.Chunks {
		points[i] = vectorstore.Point{
			ID:  uuid.New().String(),
			Vec: embeddings[i],
			Meta: map[string]any{
				"text":        chunk,
				"chunk_index": i,
				"fingerprint": corpus.Fingerprint,
				"filename":    corpus.Filename,
			},
		}
	}

	if err := p.vectorStore.Upsert(ctx, collection, points); err != nil {
		return nil, fmt.Errorf("failed to upsert vectors: %w", err)
	}

	retriever := &Retriever{
		embedder:    p.embedder,
		vectorStore: p.vectorStore,
		collection:  collection,
		Fingerprint: corpus.Fingerprint,
		Filename:    corpus.Filename,
	}

	p.mu.Lock()
	p.cache[corpus.Fingerprint] = retriever
	p.mu.Unlock()

	logger.InfoContext(ctx, "corpus indexed", "fingerprint", corpus.Fingerprint, "filename", corpus.Filename, "chunks", len(corpus.Chunks))
	return retriever, nil
}

// Cached returns the retriever for a fingerprint if one has been built in
// this process lifetime.
func (p *Pipeline) Cached(fingerprint string) (*Retriever, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.cache[fingerprint]
	return r, ok
}

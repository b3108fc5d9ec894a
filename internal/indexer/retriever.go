package indexer

import (
	"context"
	"fmt"

	"flowmind/internal/vectorstore"
)

// RetrievedChunk is one chunk returned by a similarity search.
type RetrievedChunk struct {
	Text       string
	ChunkIndex int
	Score      float32
}

// Retriever answers nearest-neighbor queries over one indexed corpus.
type Retriever struct {
	embedder    Embedder
	vectorStore vectorstore.VectorStore
	collection  string

	Fingerprint string
	Filename    string
}

// Retrieve returns the k chunks most similar to the query, ordered by
// decreasing similarity.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]RetrievedChunk, error) {
	if k <= 0 {
		k = 4
	}

	embeddings, err := r.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned for query")
	}

	results, err := r.vectorStore.Search(ctx, r.collection, embeddings[0], k)
	if err != nil {
		return nil, fmt.Errorf("failed to search vector store: %w", err)
	}

	chunks := make([]RetrievedChunk, 0, len(results))
	for _, result := range results {
		text, _ := result.Meta["text"].(string)
		if text == "" {
			continue
		}
		index := 0
		switch v := result.Meta["chunk_index"].(type) {
		case int64:
			index = int(v)
		case float64:
			index = int(v)
		case int:
			index = v
		}
		chunks = append(chunks, RetrievedChunk{
			Text:       text,
			ChunkIndex: index,
			Score:      result.Score,
		})
	}
	return chunks, nil
}

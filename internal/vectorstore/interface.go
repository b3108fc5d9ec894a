package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks flowmind/internal/vectorstore VectorStore

import "context"

// Point represents a vector point with metadata.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// SearchResult represents a search result from vector search.
type SearchResult struct {
	PointID string
	Score   float32
	Meta    map[string]any
}

// VectorStore defines the interface for vector storage operations.
// Each ingested corpus gets its own collection, so searches never need
// cross-corpus filtering.
type VectorStore interface {
	// EnsureCollection creates the collection if missing and validates the
	// vector size if it already exists.
	EnsureCollection(ctx context.Context, collection string, vectorSize int) error

	// CollectionExists checks if a collection exists.
	CollectionExists(ctx context.Context, collection string) (bool, error)

	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search returns the k nearest points by similarity, best first.
	Search(ctx context.Context, collection string, query []float32, k int) ([]SearchResult, error)

	// DropCollection removes a collection and all its points.
	DropCollection(ctx context.Context, collection string) error
}

package indexer

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	indexermocks "flowmind/internal/indexer/mocks"
	"flowmind/internal/ingest"
	"flowmind/internal/vectorstore"
	vectormocks "flowmind/internal/vectorstore/mocks"
)

func testCorpus() *ingest.Corpus {
	return &ingest.Corpus{
		Filename:    "notes.txt",
		Format:      ingest.FormatTXT,
		Fingerprint: "abcdef0123456789abcdef0123456789",
		Chunks:      []string{"first chunk", "second chunk"},
	}
}

func TestPipeline_Index(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	embedder := indexermocks.NewMockEmbedder(ctrl)
	store := vectormocks.NewMockVectorStore(ctrl)
	pipeline := NewPipeline(embedder, store, 3)

	corpus := testCorpus()
	vectors := [][]float32{{1, 0, 0}, {0, 1, 0}}

	embedder.EXPECT().EmbedTexts(gomock.Any(), corpus.Chunks).Return(vectors, nil)
	store.EXPECT().EnsureCollection(gomock.Any(), "doc_abcdef0123456789", 3).Return(nil)
	store.EXPECT().
		Upsert(gomock.Any(), "doc_abcdef0123456789", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, points []vectorstore.Point) error {
			if len(points) != 2 {
				t.Errorf("Upsert() got %d points, want 2", len(points))
			}
			if points[0].Meta["text"] != "first chunk" {
				t.Errorf("Upsert() point meta text = %v", points[0].Meta["text"])
			}
			if points[1].Meta["chunk_index"] != 1 {
				t.Errorf("Upsert() point chunk_index = %v, want 1", points[1].Meta["chunk_index"])
			}
			return nil
		})

	retriever, err := pipeline.Index(context.Background(), corpus)
	if err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	if retriever.Fingerprint != corpus.Fingerprint {
		t.Errorf("Index() fingerprint = %q, want %q", retriever.Fingerprint, corpus.Fingerprint)
	}
}

func TestPipeline_Index_CacheHit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	embedder := indexermocks.NewMockEmbedder(ctrl)
	store := vectormocks.NewMockVectorStore(ctrl)
	pipeline := NewPipeline(embedder, store, 3)

	corpus := testCorpus()

	// The whole backend path runs exactly once; re-indexing identical
	// content must not embed or upsert again.
	embedder.EXPECT().EmbedTexts(gomock.Any(), corpus.Chunks).Return([][]float32{{1, 0, 0}, {0, 1, 0}}, nil).Times(1)
	store.EXPECT().EnsureCollection(gomock.Any(), gomock.Any(), 3).Return(nil).Times(1)
	store.EXPECT().Upsert(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(1)

	first, err := pipeline.Index(context.Background(), corpus)
	if err != nil {
		t.Fatalf("Index() first error = %v", err)
	}
	second, err := pipeline.Index(context.Background(), testCorpus())
	if err != nil {
		t.Fatalf("Index() second error = %v", err)
	}
	if first != second {
		t.Error("Index() cache miss: second call returned a different retriever")
	}

	cached, ok := pipeline.Cached(corpus.Fingerprint)
	if !ok || cached != first {
		t.Error("Cached() did not return the indexed retriever")
	}
}

func TestPipeline_Index_EmbedFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	embedder := indexermocks.NewMockEmbedder(ctrl)
	store := vectormocks.NewMockVectorStore(ctrl)
	pipeline := NewPipeline(embedder, store, 3)

	embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return(nil, errors.New("backend down"))

	if _, err := pipeline.Index(context.Background(), testCorpus()); err == nil {
		t.Fatal("Index() error = nil, want error")
	}
}

func TestPipeline_Index_CountMismatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	embedder := indexermocks.NewMockEmbedder(ctrl)
	store := vectormocks.NewMockVectorStore(ctrl)
	pipeline := NewPipeline(embedder, store, 3)

	embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return([][]float32{{1, 0, 0}}, nil)

	if _, err := pipeline.Index(context.Background(), testCorpus()); err == nil {
		t.Fatal("Index() error = nil, want mismatch error")
	}
}

func TestRetriever_Retrieve(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	embedder := indexermocks.NewMockEmbedder(ctrl)
	store := vectormocks.NewMockVectorStore(ctrl)

	retriever := &Retriever{
		embedder:    embedder,
		vectorStore: store,
		collection:  "doc_test",
	}

	query := []float32{0.5, 0.5, 0}
	embedder.EXPECT().EmbedTexts(gomock.Any(), []string{"what is this"}).Return([][]float32{query}, nil)
	store.EXPECT().Search(gomock.Any(), "doc_test", query, 2).Return([]vectorstore.SearchResult{
		{PointID: "a", Score: 0.9, Meta: map[string]any{"text": "best match", "chunk_index": int64(3)}},
		{PointID: "b", Score: 0.7, Meta: map[string]any{"text": "next match", "chunk_index": float64(1)}},
		{PointID: "c", Score: 0.1, Meta: map[string]any{"chunk_index": int64(9)}}, // no text, dropped
	}, nil)

	chunks, err := retriever.Retrieve(context.Background(), "what is this", 2)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("Retrieve() returned %d chunks, want 2", len(chunks))
	}
	if chunks[0].Text != "best match" || chunks[0].ChunkIndex != 3 {
		t.Errorf("Retrieve() chunk[0] = %+v", chunks[0])
	}
	if chunks[1].Text != "next match" || chunks[1].ChunkIndex != 1 {
		t.Errorf("Retrieve() chunk[1] = %+v", chunks[1])
	}
}

func TestRetriever_Retrieve_DefaultK(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	embedder := indexermocks.NewMockEmbedder(ctrl)
	store := vectormocks.NewMockVectorStore(ctrl)

	retriever := &Retriever{
		embedder:    embedder,
		vectorStore: store,
		collection:  "doc_test",
	}

	embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return([][]float32{{1}}, nil)
	store.EXPECT().Search(gomock.Any(), "doc_test", gomock.Any(), 4).Return(nil, nil)

	if _, err := retriever.Retrieve(context.Background(), "q", 0); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
}

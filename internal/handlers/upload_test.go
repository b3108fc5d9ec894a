package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/mock/gomock"

	"flowmind/internal/chat"
	chatmocks "flowmind/internal/chat/mocks"
	"flowmind/internal/indexer"
	indexermocks "flowmind/internal/indexer/mocks"
	vectormocks "flowmind/internal/vectorstore/mocks"
)

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestUploadHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	embedder := indexermocks.NewMockEmbedder(ctrl)
	store := vectormocks.NewMockVectorStore(ctrl)
	pipeline := indexer.NewPipeline(embedder, store, 3)
	svc := chat.NewService(chatmocks.NewMockLLMClient(ctrl), "m", "m", t.TempDir())
	uploadDir := t.TempDir()
	handler := NewUploadHandler(pipeline, svc, uploadDir)

	embedder.EXPECT().
		EmbedTexts(gomock.Any(), []string{"hello corpus"}).
		Return([][]float32{{1, 0, 0}}, nil)
	store.EXPECT().EnsureCollection(gomock.Any(), gomock.Any(), 3).Return(nil)
	store.EXPECT().Upsert(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	body, contentType := multipartBody(t, "notes.txt", "hello corpus")
	r := withSession(httptest.NewRequest(http.MethodPost, "/api/assistant/upload", body), "alice")
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
	if _, err := os.Stat(filepath.Join(uploadDir, "notes.txt")); err != nil {
		t.Errorf("uploaded file not saved: %v", err)
	}

	var resp UploadResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Chunks != 1 || resp.Format != "txt" {
		t.Errorf("response = %+v", resp)
	}
	if _, ok := pipeline.Cached(resp.Fingerprint); !ok {
		t.Error("corpus not cached under its fingerprint")
	}
}

func TestUploadHandler_UnsupportedExtension(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	pipeline := indexer.NewPipeline(indexermocks.NewMockEmbedder(ctrl), vectormocks.NewMockVectorStore(ctrl), 3)
	svc := chat.NewService(chatmocks.NewMockLLMClient(ctrl), "m", "m", t.TempDir())
	uploadDir := t.TempDir()
	handler := NewUploadHandler(pipeline, svc, uploadDir)

	body, contentType := multipartBody(t, "malware.exe", "nope")
	r := withSession(httptest.NewRequest(http.MethodPost, "/api/assistant/upload", body), "alice")
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	// Nothing may reach the upload directory for a rejected extension.
	entries, err := os.ReadDir(uploadDir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("upload dir has %d entries, want 0", len(entries))
	}
}

func TestUploadHandler_EmptyDocument(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	pipeline := indexer.NewPipeline(indexermocks.NewMockEmbedder(ctrl), vectormocks.NewMockVectorStore(ctrl), 3)
	svc := chat.NewService(chatmocks.NewMockLLMClient(ctrl), "m", "m", t.TempDir())
	handler := NewUploadHandler(pipeline, svc, t.TempDir())

	body, contentType := multipartBody(t, "blank.txt", "   ")
	r := withSession(httptest.NewRequest(http.MethodPost, "/api/assistant/upload", body), "alice")
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestUploadHandler_MissingFile(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	pipeline := indexer.NewPipeline(indexermocks.NewMockEmbedder(ctrl), vectormocks.NewMockVectorStore(ctrl), 3)
	svc := chat.NewService(chatmocks.NewMockLLMClient(ctrl), "m", "m", t.TempDir())
	handler := NewUploadHandler(pipeline, svc, t.TempDir())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("other", "value")
	_ = mw.Close()

	r := withSession(httptest.NewRequest(http.MethodPost, "/api/assistant/upload", &buf), "alice")
	r.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

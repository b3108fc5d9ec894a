package handlers

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"flowmind/internal/auth"
	"flowmind/internal/chat"
	"flowmind/internal/contextutil"
	"flowmind/internal/indexer"
	"flowmind/internal/ingest"
)

// maxUploadBytes caps the size of a single uploaded document.
const maxUploadBytes = 32 << 20

// UploadHandler handles document uploads for the assistant.
type UploadHandler struct {
	pipeline  *indexer.Pipeline
	chat      *chat.Service
	uploadDir string
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(pipeline *indexer.Pipeline, chatService *chat.Service, uploadDir string) *UploadHandler {
	return &UploadHandler{
		pipeline:  pipeline,
		chat:      chatService,
		uploadDir: uploadDir,
	}
}

// UploadResponse represents the result of a successful upload.
type UploadResponse struct {
	Filename    string `json:"filename"`
	Format      string `json:"format"`
	Fingerprint string `json:"fingerprint"`
	Chunks      int    `json:"chunks"`
}

// ServeHTTP handles POST /api/assistant/upload. The uploaded file becomes the
// user's current corpus, replacing any previous one.
func (h *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	session, ok := auth.SessionFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		logger.WarnContext(ctx, "invalid multipart form", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing file field")
		return
	}
	defer func() {
		_ = file.Close()
	}()

	filename := filepath.Base(header.Filename)

	// Reject unsupported extensions before anything touches disk.
	format, err := ingest.FormatForFilename(filename)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unsupported file type")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		logger.ErrorContext(ctx, "failed to read upload", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to read upload")
		return
	}

	if err := os.WriteFile(filepath.Join(h.uploadDir, filename), data, 0644); err != nil {
		logger.ErrorContext(ctx, "failed to save upload", "filename", filename, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to save upload")
		return
	}

	corpus, err := ingest.Ingest(ctx, filename, data)
	if err != nil {
		if errors.Is(err, ingest.ErrUnsupportedFormat) || errors.Is(err, ingest.ErrEmptyDocument) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.ErrorContext(ctx, "ingestion failed", "filename", filename, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to process document")
		return
	}

	retriever, err := h.pipeline.Index(ctx, corpus)
	if err != nil {
		logger.ErrorContext(ctx, "indexing failed", "filename", filename, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to index document")
		return
	}

	if err := h.chat.SetRetriever(session.Username, retriever); err != nil {
		logger.ErrorContext(ctx, "failed to attach corpus", "username", session.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to attach document")
		return
	}

	logger.InfoContext(ctx, "document uploaded", "username", session.Username, "filename", filename, "format", format.String())
	writeJSON(w, http.StatusOK, UploadResponse{
		Filename:    filename,
		Format:      format.String(),
		Fingerprint: corpus.Fingerprint,
		Chunks:      len(corpus.Chunks),
	})
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"flowmind/internal/contextutil"
	"flowmind/internal/vectorstore"
)

// probeTimeout bounds each backend availability check.
const probeTimeout = 5 * time.Second

// Prober reports whether a backend is reachable and serving the configured model.
type Prober interface {
	Health(ctx context.Context) error
}

// HealthHandler reports the status of the service and its backends.
type HealthHandler struct {
	llm     Prober
	vectors vectorstore.VectorStore
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(llm Prober, vectors vectorstore.VectorStore) *HealthHandler {
	return &HealthHandler{
		llm:     llm,
		vectors: vectors,
	}
}

// HealthResponse represents the health status payload.
type HealthResponse struct {
	Status      string `json:"status"`
	LLM         string `json:"llm"`
	VectorStore string `json:"vector_store"`
}

// ServeHTTP handles GET /api/health.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()
	logger := contextutil.LoggerFromContext(r.Context())

	resp := HealthResponse{Status: "ok", LLM: "ok", VectorStore: "ok"}

	if err := h.llm.Health(ctx); err != nil {
		logger.WarnContext(ctx, "llm backend unhealthy", "error", err)
		resp.Status = "degraded"
		resp.LLM = err.Error()
	}

	// A reachable vector store answers existence checks even for collections
	// that were never created.
	if _, err := h.vectors.CollectionExists(ctx, "healthcheck"); err != nil {
		logger.WarnContext(ctx, "vector store unhealthy", "error", err)
		resp.Status = "degraded"
		resp.VectorStore = err.Error()
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

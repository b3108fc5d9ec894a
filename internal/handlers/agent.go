package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"flowmind/internal/auth"
	"flowmind/internal/chat"
	"flowmind/internal/contextutil"
	"flowmind/internal/dbagent"
)

// AgentHandler handles the database-analysis agent endpoints.
type AgentHandler struct {
	chat *chat.Service
}

// NewAgentHandler creates a new AgentHandler.
func NewAgentHandler(chatService *chat.Service) *AgentHandler {
	return &AgentHandler{chat: chatService}
}

// ConnectResponse represents a successful database connection.
type ConnectResponse struct {
	Database string `json:"database"`
	Schema   string `json:"schema"`
}

// AgentAskRequest represents the HTTP request payload for an agent question.
type AgentAskRequest struct {
	Question string `json:"question"`
	Mode     string `json:"mode"`
}

// Connect handles POST /api/agent/connect. The database is inspected once at
// connect time; the rendered schema becomes the user's agent context and the
// connection is not held open afterwards.
func (h *AgentHandler) Connect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	session, ok := auth.SessionFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var params dbagent.Params
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	inspector, err := dbagent.Connect(ctx, params)
	if err != nil {
		logger.WarnContext(ctx, "database connection failed", "database", params.Database, "error", err)
		writeError(w, http.StatusBadGateway, "Failed to connect to database")
		return
	}
	defer func() {
		_ = inspector.Close()
	}()

	schema, err := inspector.Inspect(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "schema inspection failed", "database", params.Database, "error", err)
		writeError(w, http.StatusBadGateway, "Failed to inspect database schema")
		return
	}

	if err := h.chat.SetSchemaContext(session.Username, schema); err != nil {
		logger.ErrorContext(ctx, "failed to attach schema context", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to attach schema")
		return
	}

	writeJSON(w, http.StatusOK, ConnectResponse{
		Database: params.Database,
		Schema:   schema,
	})
}

// Ask handles POST /api/agent/ask. With ?stream=true the answer is delivered
// as Server-Sent Events.
func (h *AgentHandler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	session, ok := auth.SessionFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req AgentAskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	run := func(ctx context.Context, callback func(chunk string) error) error {
		return h.chat.AskAgent(ctx, session.Username, req.Mode, req.Question, callback)
	}

	if wantsStream(r) {
		streamSSE(w, r, run)
		return
	}

	response, err := collectResponse(ctx, run)
	if err != nil {
		if errors.Is(err, chat.ErrNoContext) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.ErrorContext(ctx, "agent question failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to answer question")
		return
	}

	writeJSON(w, http.StatusOK, AskResponse{Response: response})
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"flowmind/internal/auth"
	"flowmind/internal/chat"
	"flowmind/internal/contextutil"
)

// AssistantHandler handles questions against the uploaded corpus.
type AssistantHandler struct {
	chat *chat.Service
}

// NewAssistantHandler creates a new AssistantHandler.
func NewAssistantHandler(chatService *chat.Service) *AssistantHandler {
	return &AssistantHandler{chat: chatService}
}

// AskRequest represents the HTTP request payload for a question.
type AskRequest struct {
	Question string `json:"question"`
}

// AskResponse represents the HTTP response payload for a question.
type AskResponse struct {
	Response string `json:"response"`
}

// ServeHTTP handles POST /api/assistant/ask. With ?stream=true the answer is
// delivered as Server-Sent Events.
func (h *AssistantHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	session, ok := auth.SessionFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req AskRequest
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
		return h.chat.AskAssistant(ctx, session.Username, req.Question, callback)
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
		logger.ErrorContext(ctx, "failed to answer question", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to answer question")
		return
	}

	writeJSON(w, http.StatusOK, AskResponse{Response: response})
}

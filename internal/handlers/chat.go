package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"flowmind/internal/auth"
	"flowmind/internal/chat"
	"flowmind/internal/contextutil"
	"flowmind/internal/history"
)

// ChatHandler handles free-form conversational chat.
type ChatHandler struct {
	chat *chat.Service
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService *chat.Service) *ChatHandler {
	return &ChatHandler{chat: chatService}
}

// ChatRequest represents the HTTP request payload for chat.
type ChatRequest struct {
	Message   string `json:"message"`
	DeepThink bool   `json:"deep_think"`
}

// ChatResponse represents the HTTP response payload for chat.
type ChatResponse struct {
	Response string `json:"response"`
}

// ServeHTTP handles POST /api/chat. With ?stream=true the answer is delivered
// as Server-Sent Events.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	session, ok := auth.SessionFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	run := func(ctx context.Context, callback func(chunk string) error) error {
		return h.chat.Chat(ctx, session.Username, req.Message, req.DeepThink, callback)
	}

	if wantsStream(r) {
		streamSSE(w, r, run)
		return
	}

	response, err := collectResponse(ctx, run)
	if err != nil {
		logger.ErrorContext(ctx, "chat failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Chat failed")
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{Response: response})
}

// ConversationsHandler manages the user's conversation list.
type ConversationsHandler struct {
	chat *chat.Service
}

// NewConversationsHandler creates a new ConversationsHandler.
func NewConversationsHandler(chatService *chat.Service) *ConversationsHandler {
	return &ConversationsHandler{chat: chatService}
}

// ConversationsResponse lists conversation titles and the active selection.
type ConversationsResponse struct {
	Conversations []string       `json:"conversations"`
	Current       int            `json:"current"`
	Turns         []history.Turn `json:"turns"`
}

// SelectRequest represents the HTTP request payload for switching conversations.
type SelectRequest struct {
	Index int `json:"index"`
}

// List handles GET /api/conversations.
func (h *ConversationsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	session, ok := auth.SessionFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	titles, err := h.chat.Conversations(session.Username)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list conversations", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list conversations")
		return
	}
	current, index, err := h.chat.CurrentConversation(session.Username)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load current conversation", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list conversations")
		return
	}

	writeJSON(w, http.StatusOK, ConversationsResponse{
		Conversations: titles,
		Current:       index,
		Turns:         current.Turns,
	})
}

// New handles POST /api/conversations and starts a fresh conversation.
func (h *ConversationsHandler) New(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	session, ok := auth.SessionFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	index, err := h.chat.NewConversation(session.Username)
	if err != nil {
		logger.ErrorContext(ctx, "failed to create conversation", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create conversation")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]int{"index": index})
}

// Select handles POST /api/conversations/select.
func (h *ConversationsHandler) Select(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	session, ok := auth.SessionFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.chat.SelectConversation(session.Username, req.Index); err != nil {
		if errors.Is(err, history.ErrNoSuchConversation) {
			writeError(w, http.StatusNotFound, "No such conversation")
			return
		}
		logger.ErrorContext(ctx, "failed to select conversation", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to select conversation")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"index": req.Index})
}

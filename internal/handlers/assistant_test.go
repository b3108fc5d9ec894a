package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"flowmind/internal/auth"
	"flowmind/internal/chat"
	"flowmind/internal/chat/mocks"
	"flowmind/internal/indexer"
)

func withSession(r *http.Request, username string) *http.Request {
	return r.WithContext(auth.WithSession(r.Context(), auth.Session{Username: username}))
}

func TestAssistantHandler_NoSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := chat.NewService(mocks.NewMockLLMClient(ctrl), "m", "m", t.TempDir())
	handler := NewAssistantHandler(svc)

	r := httptest.NewRequest(http.MethodPost, "/api/assistant/ask", jsonBody(t, AskRequest{Question: "q"}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAssistantHandler_NoContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := chat.NewService(mocks.NewMockLLMClient(ctrl), "m", "m", t.TempDir())
	handler := NewAssistantHandler(svc)

	r := withSession(httptest.NewRequest(http.MethodPost, "/api/assistant/ask", jsonBody(t, AskRequest{Question: "q"})), "alice")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 without a corpus", w.Code)
	}
}

func TestAssistantHandler_Streaming(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	llm := mocks.NewMockLLMClient(ctrl)
	retriever := mocks.NewMockContextRetriever(ctrl)
	svc := chat.NewService(llm, "m", "m", t.TempDir())
	if err := svc.SetRetriever("alice", retriever); err != nil {
		t.Fatalf("SetRetriever() error = %v", err)
	}

	retriever.EXPECT().
		Retrieve(gomock.Any(), "q", gomock.Any()).
		Return([]indexer.RetrievedChunk{{Text: "ctx"}}, nil)
	llm.EXPECT().
		Stream(gomock.Any(), "m", gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, _ string, callback func(string) error) error {
			if err := callback("Hel"); err != nil {
				return err
			}
			return callback("lo")
		})

	r := withSession(httptest.NewRequest(http.MethodPost, "/api/assistant/ask?stream=true", jsonBody(t, AskRequest{Question: "q"})), "alice")
	w := httptest.NewRecorder()
	NewAssistantHandler(svc).ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "data: Hel\n\n") || !strings.Contains(body, "data: lo\n\n") {
		t.Errorf("body missing chunks: %q", body)
	}
	if !strings.Contains(body, "data: [DONE]\n\n") {
		t.Errorf("body missing done marker: %q", body)
	}
}

func TestChatHandler_Synchronous(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	llm := mocks.NewMockLLMClient(ctrl)
	svc := chat.NewService(llm, "m", "m", t.TempDir())

	llm.EXPECT().
		Stream(gomock.Any(), "m", gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, _ string, callback func(string) error) error {
			return callback("full answer")
		})

	r := withSession(httptest.NewRequest(http.MethodPost, "/api/chat", jsonBody(t, ChatRequest{Message: "hi"})), "alice")
	w := httptest.NewRecorder()
	NewChatHandler(svc).ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"response":"full answer"`) {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestChatHandler_EmptyMessage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := chat.NewService(mocks.NewMockLLMClient(ctrl), "m", "m", t.TempDir())

	r := withSession(httptest.NewRequest(http.MethodPost, "/api/chat", jsonBody(t, ChatRequest{})), "alice")
	w := httptest.NewRecorder()
	NewChatHandler(svc).ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestConversationsHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := chat.NewService(mocks.NewMockLLMClient(ctrl), "m", "m", t.TempDir())
	handler := NewConversationsHandler(svc)

	// Start a conversation.
	w := httptest.NewRecorder()
	handler.New(w, withSession(httptest.NewRequest(http.MethodPost, "/api/conversations", nil), "alice"))
	if w.Code != http.StatusCreated {
		t.Fatalf("New() status = %d, want 201", w.Code)
	}

	// List shows it as current.
	w = httptest.NewRecorder()
	handler.List(w, withSession(httptest.NewRequest(http.MethodGet, "/api/conversations", nil), "alice"))
	if w.Code != http.StatusOK {
		t.Fatalf("List() status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"current":0`) {
		t.Errorf("List() body = %q", w.Body.String())
	}

	// Selecting a nonexistent conversation fails.
	w = httptest.NewRecorder()
	handler.Select(w, withSession(httptest.NewRequest(http.MethodPost, "/api/conversations/select", jsonBody(t, SelectRequest{Index: 7})), "alice"))
	if w.Code != http.StatusNotFound {
		t.Errorf("Select() status = %d, want 404", w.Code)
	}
}

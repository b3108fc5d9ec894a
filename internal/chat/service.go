package chat

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_llm_client.go -package=mocks flowmind/internal/chat LLMClient
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_context_retriever.go -package=mocks flowmind/internal/chat ContextRetriever

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"flowmind/internal/contextutil"
	"flowmind/internal/history"
	"flowmind/internal/indexer"
	"flowmind/internal/prompt"
)

// ErrNoContext is returned when a retrieval-backed question arrives before
// any data source (file corpus or database) has been supplied. The caller
// prompts the user for a source instead of querying the model context-free.
var ErrNoContext = errors.New("no data source available: upload a file or connect a database first")

// FallbackMessage is shown (and recorded as the assistant turn) when the
// language-model backend fails mid-request.
const FallbackMessage = "Sorry, an error occurred while generating the response. Please try again."

// retrieveK is the number of chunks fetched per question.
const retrieveK = 4

// LLMClient is the generation backend as seen by the chat layer.
type LLMClient interface {
	// Generate returns a complete response for the prompt.
	Generate(ctx context.Context, model, prompt string) (string, error)
	// Stream delivers the response incrementally via callback.
	Stream(ctx context.Context, model, prompt string, callback func(chunk string) error) error
}

// ContextRetriever supplies similarity-ranked chunks for a query.
type ContextRetriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]indexer.RetrievedChunk, error)
}

// Service orchestrates the three chat front ends. State is scoped per portal
// user: the current retriever, the optional database schema context, and the
// conversation history. Each user's state is single-writer in practice, but
// the locks keep concurrent handlers safe.
type Service struct {
	llm        LLMClient
	chatModel  string
	agentModel string
	historyDir string

	mu    sync.Mutex
	users map[string]*userState
}

type userState struct {
	mu            sync.Mutex
	retriever     ContextRetriever
	schemaContext string
	history       *history.Store
}

// NewService creates the chat orchestration service. Conversation histories
// are persisted as one JSON file per user under historyDir.
func NewService(llm LLMClient, chatModel, agentModel, historyDir string) *Service {
	return &Service{
		llm:        llm,
		chatModel:  chatModel,
		agentModel: agentModel,
		historyDir: historyDir,
		users:      make(map[string]*userState),
	}
}

// state returns (lazily creating) the per-user state, loading any persisted
// history from disk.
func (s *Service) state(username string) (*userState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.users[username]; ok {
		return st, nil
	}
	store, err := history.NewStore(filepath.Join(s.historyDir, username+".json"))
	if err != nil {
		return nil, fmt.Errorf("failed to load history for %s: %w", username, err)
	}
	st := &userState{history: store}
	s.users[username] = st
	return st, nil
}

// SetRetriever installs the retriever for a user's current corpus. A new
// upload supersedes the previous corpus; corpora are never merged.
func (s *Service) SetRetriever(username string, retriever ContextRetriever) error {
	st, err := s.state(username)
	if err != nil {
		return err
	}
	st.mu.Lock()
	st.retriever = retriever
	st.mu.Unlock()
	return nil
}

// SetSchemaContext installs the database schema summary for a user.
func (s *Service) SetSchemaContext(username, schema string) error {
	st, err := s.state(username)
	if err != nil {
		return err
	}
	st.mu.Lock()
	st.schemaContext = schema
	st.mu.Unlock()
	return nil
}

// AskAssistant answers a question against the user's uploaded corpus,
// streaming fragments through callback. Requires an indexed corpus.
func (s *Service) AskAssistant(ctx context.Context, username, question string, callback func(chunk string) error) error {
	st, err := s.state(username)
	if err != nil {
		return err
	}

	st.mu.Lock()
	retriever := st.retriever
	st.mu.Unlock()
	if retriever == nil {
		return ErrNoContext
	}

	contextText, err := s.retrieveContext(ctx, retriever, question)
	if err != nil {
		return err
	}

	return s.converse(ctx, st, s.chatModel, prompt.RAG(contextText, question), question, callback)
}

// AskAgent answers a question in the analysis agent, streaming fragments
// through callback. Context comes from the user's corpus and/or connected
// database schema; with neither available the question is refused.
// The question text itself is used as the retrieval query for both sources.
func (s *Service) AskAgent(ctx context.Context, username, mode, question string, callback func(chunk string) error) error {
	st, err := s.state(username)
	if err != nil {
		return err
	}

	st.mu.Lock()
	retriever := st.retriever
	schema := st.schemaContext
	st.mu.Unlock()

	if retriever == nil && schema == "" {
		return ErrNoContext
	}

	var parts []string
	if retriever != nil {
		contextText, err := s.retrieveContext(ctx, retriever, question)
		if err != nil {
			return err
		}
		if contextText != "" {
			parts = append(parts, contextText)
		}
	}
	if schema != "" {
		parts = append(parts, schema)
	}

	return s.converse(ctx, st, s.agentModel, prompt.Agent(mode, strings.Join(parts, "\n\n"), question), question, callback)
}

// Chat answers a free-form conversational message with the prior turns of
// the current conversation as context, streaming fragments through callback.
func (s *Service) Chat(ctx context.Context, username, input string, deepThink bool, callback func(chunk string) error) error {
	st, err := s.state(username)
	if err != nil {
		return err
	}

	current, _ := st.history.Current()
	return s.converse(ctx, st, s.chatModel, prompt.Conversation(current.Turns, input, deepThink), input, callback)
}

// Conversations returns the titles of the user's conversations.
func (s *Service) Conversations(username string) ([]string, error) {
	st, err := s.state(username)
	if err != nil {
		return nil, err
	}
	return st.history.List(), nil
}

// CurrentConversation returns the active conversation for a user.
func (s *Service) CurrentConversation(username string) (history.Conversation, int, error) {
	st, err := s.state(username)
	if err != nil {
		return history.Conversation{}, -1, err
	}
	conv, index := st.history.Current()
	return conv, index, nil
}

// NewConversation starts a fresh conversation for a user.
func (s *Service) NewConversation(username string) (int, error) {
	st, err := s.state(username)
	if err != nil {
		return 0, err
	}
	return st.history.New(prompt.DefaultTitle), nil
}

// SelectConversation switches the user's active conversation.
func (s *Service) SelectConversation(username string, index int) error {
	st, err := s.state(username)
	if err != nil {
		return err
	}
	return st.history.Select(index)
}

// retrieveContext runs the similarity search and concatenates chunk texts.
func (s *Service) retrieveContext(ctx context.Context, retriever ContextRetriever, question string) (string, error) {
	chunks, err := retriever.Retrieve(ctx, question, retrieveK)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve context: %w", err)
	}
	texts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		texts = append(texts, chunk.Text)
	}
	return strings.Join(texts, "\n\n"), nil
}

// converse records the user turn, streams the model response, records the
// assistant turn, and persists history. Backend failures degrade to the
// fallback message: it is streamed to the caller and recorded as the
// assistant turn so history stays consistent, and no error is returned.
func (s *Service) converse(ctx context.Context, st *userState, model, fullPrompt, userInput string, callback func(chunk string) error) error {
	logger := contextutil.LoggerFromContext(ctx)

	st.history.Append(history.Turn{Role: "user", Content: userInput})
	if conv, _ := st.history.Current(); conv.Title == "" || conv.Title == prompt.DefaultTitle {
		st.history.SetTitle(prompt.Title(conv.Turns[0].Content))
	}

	var response strings.Builder
	err := s.llm.Stream(ctx, model, fullPrompt, func(chunk string) error {
		response.WriteString(chunk)
		return callback(chunk)
	})
	if err != nil {
		logger.ErrorContext(ctx, "generation failed, using fallback", "error", err)
		response.Reset()
		response.WriteString(FallbackMessage)
		if cbErr := callback(FallbackMessage); cbErr != nil {
			logger.WarnContext(ctx, "failed to deliver fallback message", "error", cbErr)
		}
	}

	st.history.Append(history.Turn{Role: "assistant", Content: response.String()})
	if err := st.history.Save(); err != nil {
		logger.ErrorContext(ctx, "failed to persist conversation history", "error", err)
	}
	return nil
}

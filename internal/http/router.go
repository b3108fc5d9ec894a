package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"flowmind/internal/auth"
	"flowmind/internal/chat"
	"flowmind/internal/handlers"
	"flowmind/internal/indexer"
	"flowmind/internal/storage"
	"flowmind/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Users         storage.UserStore
	Authenticator *auth.Authenticator
	Sessions      *auth.Sessions
	Pipeline      *indexer.Pipeline
	Chat          *chat.Service
	LLM           handlers.Prober
	Vectors       vectorstore.VectorStore
	UploadDir     string
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(CORS)
	r.Use(NoCache)

	authHandler := handlers.NewAuthHandler(deps.Users, deps.Authenticator, deps.Sessions)
	uploadHandler := handlers.NewUploadHandler(deps.Pipeline, deps.Chat, deps.UploadDir)
	assistantHandler := handlers.NewAssistantHandler(deps.Chat)
	chatHandler := handlers.NewChatHandler(deps.Chat)
	conversationsHandler := handlers.NewConversationsHandler(deps.Chat)
	agentHandler := handlers.NewAgentHandler(deps.Chat)
	healthHandler := handlers.NewHealthHandler(deps.LLM, deps.Vectors)

	// Public routes
	r.Post("/register", authHandler.Register)
	r.Post("/login", authHandler.Login)
	r.Get("/logout", authHandler.Logout)
	r.Post("/forgot-password", authHandler.ForgotPassword)
	r.Method(http.MethodGet, "/api/health", healthHandler)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(RequireSession(deps.Sessions))

		r.Get("/api/me", authHandler.Me)

		r.Method(http.MethodPost, "/api/assistant/upload", uploadHandler)
		r.Method(http.MethodPost, "/api/assistant/ask", assistantHandler)

		r.Method(http.MethodPost, "/api/chat", chatHandler)
		r.Get("/api/conversations", conversationsHandler.List)
		r.Post("/api/conversations", conversationsHandler.New)
		r.Post("/api/conversations/select", conversationsHandler.Select)

		r.Post("/api/agent/connect", agentHandler.Connect)
		r.Post("/api/agent/ask", agentHandler.Ask)
	})

	return r
}

package main

import (
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"time"

	"flowmind/internal/auth"
	"flowmind/internal/chat"
	"flowmind/internal/config"
	"flowmind/internal/http"
	"flowmind/internal/indexer"
	"flowmind/internal/llm"
	"flowmind/internal/storage"
	"flowmind/internal/vectorstore"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	userRepo := storage.NewUserRepo(db)

	// Initialize Qdrant vector store
	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}
	slog.Info("Qdrant client ready", "url", cfg.QdrantURL, "vector_size", cfg.QdrantVectorSize)

	// Embeddings and indexing pipeline
	embedder := llm.NewEmbeddingsClient(cfg.OllamaBaseURL, cfg.EmbeddingModel, cfg.QdrantVectorSize)
	pipeline := indexer.NewPipeline(embedder, vectorStore, cfg.QdrantVectorSize)

	// LLM client and chat orchestration
	llmClient := llm.NewClient(cfg.OllamaBaseURL, cfg.ChatModel)
	chatService := chat.NewService(llmClient, cfg.ChatModel, cfg.AgentModel, cfg.HistoryDir)
	slog.Info("Chat service initialized", "chat_model", cfg.ChatModel, "agent_model", cfg.AgentModel)

	// Authentication
	authenticator := auth.NewAuthenticator(userRepo, cfg.BcryptCost)
	sessions := auth.NewSessions(cfg.SessionSecret, time.Duration(cfg.SessionTTLMinutes)*time.Minute)

	// Create router with dependencies
	deps := &http.Deps{
		Users:         userRepo,
		Authenticator: authenticator,
		Sessions:      sessions,
		Pipeline:      pipeline,
		Chat:          chatService,
		LLM:           llmClient,
		Vectors:       vectorStore,
		UploadDir:     cfg.UploadDir,
	}
	router := http.NewRouter(deps)

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.OllamaBaseURL, "chat_model", cfg.ChatModel)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}

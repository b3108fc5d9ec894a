package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	APIPort           string
	SessionSecret     string
	SessionTTLMinutes int
	BcryptCost        int

	DBPath     string
	UploadDir  string
	HistoryDir string

	OllamaBaseURL  string
	ChatModel      string
	AgentModel     string
	EmbeddingModel string

	QdrantURL        string
	QdrantVectorSize int

	LogLevel  slog.Level
	LogFormat string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	// Check current directory first, then walk up to find project root (where go.mod is)
	_ = godotenv.Load() // Try current directory

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ { // Limit search depth
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break // Reached filesystem root
			}
			dir = parent
		}
	}

	cfg := &Config{
		APIPort:        getEnv("API_PORT", "5000"),
		SessionSecret:  getEnv("SECRET_KEY", ""),
		DBPath:         getEnv("DB_PATH", "./data/users.db"),
		UploadDir:      getEnv("UPLOAD_DIR", "./data/uploads"),
		HistoryDir:     getEnv("HISTORY_DIR", "./data/history"),
		OllamaBaseURL:  getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		ChatModel:      getEnv("CHAT_MODEL", "llama3.2:latest"),
		AgentModel:     getEnv("AGENT_MODEL", "deepseek-r1:1.5b"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "llama3.2:latest"),
		QdrantURL:      getEnv("QDRANT_URL", "http://localhost:6333"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
	}

	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("SECRET_KEY is required")
	}

	ttl, err := intEnv("SESSION_TTL_MINUTES", 30)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("SESSION_TTL_MINUTES must be greater than 0")
	}
	cfg.SessionTTLMinutes = ttl

	cost, err := intEnv("BCRYPT_COST", 10)
	if err != nil {
		return nil, err
	}
	cfg.BcryptCost = cost

	// Must match the output vector size of the embedding model. If the size
	// changes, existing Qdrant collections must be recreated.
	vectorSize, err := intEnv("QDRANT_VECTOR_SIZE", 0)
	if err != nil {
		return nil, err
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE is required and must be greater than 0")
	}
	cfg.QdrantVectorSize = vectorSize

	switch strings.ToLower(getEnv("LOG_LEVEL", "info")) {
	case "debug":
		cfg.LogLevel = slog.LevelDebug
	case "warn":
		cfg.LogLevel = slog.LevelWarn
	case "error":
		cfg.LogLevel = slog.LevelError
	default:
		cfg.LogLevel = slog.LevelInfo
	}

	// Create data directories up front so storage init can fail fast on
	// permission problems instead of on first write.
	for _, dir := range []string{filepath.Dir(cfg.DBPath), cfg.UploadDir, cfg.HistoryDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
		}
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// intEnv parses an integer environment variable or returns a default value.
func intEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return n, nil
}

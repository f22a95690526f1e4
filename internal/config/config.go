package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"docchat-be/pkg/chunk"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Ai       AIConfig
	Vector   VectorConfig
	Rag      RagConfig
}

type AppConfig struct {
	Port               string `validate:"required"`
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string // empty disables lifecycle events
	RedisURL           string // empty keeps progress in memory
	StoreBackend       string `validate:"oneof=postgres memory"`
	OtelEnabled        bool
	OtelEndpoint       string
	MaxUploadBytes     int `validate:"gt=0"`
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	GoogleGemini string
	Jina         string
}

type AIConfig struct {
	EmbeddingProvider string `validate:"oneof=ollama gemini jina"`
	EmbeddingModel    string
	OllamaBaseURL     string `validate:"required"`
	LLMProvider       string `validate:"required"`
	LLMModel          string `validate:"required"`
	TikaURL           string `validate:"required"`
	GenerationTimeout time.Duration
}

type VectorConfig struct {
	Backend           string `validate:"oneof=qdrant pgvector memory"`
	Dimension         int    `validate:"gt=0"`
	CollectionPrefix  string `validate:"required"`
	UpsertBatchSize   int    `validate:"gt=0"`
	UpsertConcurrency int    `validate:"gt=0"`
	QdrantHost        string
	QdrantPort        int
	QdrantAPIKey      string
	QdrantUseTLS      bool
}

type RagConfig struct {
	ChunkSize        int     `validate:"gt=0"`
	ChunkOverlap     int     `validate:"gte=0"`
	EmbedBatchSize   int     `validate:"gt=0"`
	EmbedConcurrency int     `validate:"gt=0"`
	EmbedRateLimit   float64 `validate:"gte=0"`
	Limit            int     `validate:"gt=0"`
	ScoreThreshold   float64 `validate:"gte=0,lte=1"`
	MaxContextChars  int     `validate:"gt=0"`
	PromptHistory    int     `validate:"gte=0"`
	HistoryCap       int     `validate:"gt=0"`
	NoContextMessage string
	SessionTTL       time.Duration
	IngestAsync      bool
	IngestTopic      string `validate:"required"`
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			StoreBackend:       getEnv("STORE_BACKEND", "postgres"),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			MaxUploadBytes:     getEnvAsInt("MAX_UPLOAD_BYTES", 50*1024*1024),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			Jina:         getEnv("JINA_API_KEY", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			EmbeddingModel:    getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3.2:3b"),
			TikaURL:           getEnv("TIKA_URL", "http://localhost:9998"),
			GenerationTimeout: getEnvAsDuration("GENERATION_TIMEOUT", 5*time.Minute),
		},
		Vector: VectorConfig{
			Backend:           getEnv("VECTOR_BACKEND", "qdrant"),
			Dimension:         getEnvAsInt("VECTOR_DIMENSION", 768),
			CollectionPrefix:  getEnv("QDRANT_COLLECTION_PREFIX", "pdf_docs_"),
			UpsertBatchSize:   getEnvAsInt("UPSERT_BATCH_SIZE", 100),
			UpsertConcurrency: getEnvAsInt("UPSERT_CONCURRENCY", 1),
			QdrantHost:        getEnv("QDRANT_HOST", "localhost"),
			QdrantPort:        getEnvAsInt("QDRANT_GRPC_PORT", 6334),
			QdrantAPIKey:      getEnv("QDRANT_API_KEY", ""),
			QdrantUseTLS:      getEnvAsBool("QDRANT_USE_TLS", false),
		},
		Rag: RagConfig{
			ChunkSize:        getEnvAsInt("CHUNK_SIZE", 800),
			ChunkOverlap:     getEnvAsInt("CHUNK_OVERLAP", 100),
			EmbedBatchSize:   getEnvAsInt("EMBED_BATCH_SIZE", 8),
			EmbedConcurrency: getEnvAsInt("EMBED_CONCURRENCY", 1),
			EmbedRateLimit:   getEnvAsFloat("EMBED_RATE_LIMIT_RPS", 20),
			Limit:            getEnvAsInt("RAG_LIMIT", 5),
			ScoreThreshold:   getEnvAsFloat("RAG_SCORE_THRESHOLD", 0.5),
			MaxContextChars:  getEnvAsInt("RAG_MAX_CONTEXT_CHARS", 6000),
			PromptHistory:    getEnvAsInt("CHAT_PROMPT_HISTORY", 5),
			HistoryCap:       getEnvAsInt("CHAT_HISTORY_CAP", 20),
			NoContextMessage: getEnv("RAG_NO_CONTEXT_MESSAGE", "No relevant information found in the document."),
			SessionTTL:       getEnvAsDuration("SESSION_TTL", time.Hour),
			IngestAsync:      getEnvAsBool("INGEST_ASYNC", false),
			IngestTopic:      getEnv("INGEST_TOPIC", "INDEX_DOCUMENT"),
		},
	}
}

// Validate rejects unusable tunables before any component is built.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", chunk.ErrInvalidConfiguration, err)
	}
	if err := chunk.Validate(c.Rag.ChunkSize, c.Rag.ChunkOverlap); err != nil {
		return err
	}
	if c.App.StoreBackend == "postgres" && c.Database.Connection == "" {
		return fmt.Errorf("%w: DB_CONNECTION_STRING is required when STORE_BACKEND=postgres", chunk.ErrInvalidConfiguration)
	}
	if c.Vector.Backend == "pgvector" && c.Database.Connection == "" {
		return fmt.Errorf("%w: DB_CONNECTION_STRING is required when VECTOR_BACKEND=pgvector", chunk.ErrInvalidConfiguration)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

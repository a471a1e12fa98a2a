package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Ai       AIConfig
	Rag      RAGConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	LLMTraceLogPath    string // empty disables prompt tracing
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JwtSecret          string
	OtelEnabled        bool
	OtelEndpoint       string
}

type DatabaseConfig struct {
	Connection string
	LogLevel   string // "silent", "error", "warn", "info"
}

type APIKeys struct {
	GoogleGemini string
	OpenAI       string
	EmbedTopic   string // Watermill topic for single-notebook embedding jobs
}

type AIConfig struct {
	EmbeddingProvider   string // "ollama", "openai" or "gemini"
	EmbeddingBaseURL    string
	EmbeddingModel      string
	EmbeddingDimension  int
	EmbeddingMaxChars   int
	EmbeddingMaxRetries int
	EmbeddingCacheTTL   time.Duration
	LLMProvider         string // "ollama" or "openai"
	LLMBaseURL          string
	LLMModel            string
	LLMTemperature      float64
	HTTPTimeout         time.Duration
}

type RAGConfig struct {
	TopK            int
	MinSimilarity   float64
	ExcerptChars    int
	ContextMaxChars int
	HistoryTurns    int
	SweepPageSize   int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			LLMTraceLogPath:    getEnv("LLM_TRACE_LOG_PATH", ""),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JwtSecret:          getEnv("JWT_SECRET", ""),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
			LogLevel:   getEnv("DB_LOG_LEVEL", "warn"),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			OpenAI:       getEnv("OPENAI_API_KEY", ""),
			EmbedTopic:   getEnv("EMBED_NOTEBOOK_TOPIC_NAME", "EMBED_NOTEBOOK_CONTENT"),
		},
		Ai: AIConfig{
			EmbeddingProvider:   getEnv("EMBEDDING_PROVIDER", "ollama"),
			EmbeddingBaseURL:    getEnv("EMBEDDING_BASE_URL", "http://localhost:11434"),
			EmbeddingModel:      getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
			EmbeddingDimension:  getEnvAsInt("AI_EMBEDDING_DIMENSION", 768),
			EmbeddingMaxChars:   getEnvAsInt("AI_EMBEDDING_MAX_CHARS", 8000),
			EmbeddingMaxRetries: getEnvAsInt("AI_EMBEDDING_MAX_RETRIES", 3),
			EmbeddingCacheTTL:   getEnvAsDuration("AI_EMBEDDING_CACHE_TTL", 24*time.Hour),
			LLMProvider:         getEnv("LLM_PROVIDER", "ollama"),
			LLMBaseURL:          getEnv("LLM_BASE_URL", "http://localhost:11434"),
			LLMModel:            getEnv("LLM_MODEL", "llama3"),
			LLMTemperature:      getEnvAsFloat("LLM_TEMPERATURE", 0.7),
			HTTPTimeout:         getEnvAsDuration("AI_HTTP_TIMEOUT", 120*time.Second),
		},
		Rag: RAGConfig{
			TopK:            getEnvAsInt("RAG_TOP_K", 5),
			MinSimilarity:   getEnvAsFloat("RAG_MIN_SIMILARITY", -1),
			ExcerptChars:    getEnvAsInt("RAG_EXCERPT_CHARS", 500),
			ContextMaxChars: getEnvAsInt("RAG_CONTEXT_MAX_CHARS", 4000),
			HistoryTurns:    getEnvAsInt("RAG_HISTORY_TURNS", 6),
			SweepPageSize:   getEnvAsInt("EMBEDDING_SWEEP_PAGE_SIZE", 50),
		},
	}
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

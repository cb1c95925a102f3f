package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	ServerPort string
	GinMode    string
	LogLevel   string
	LogFormat  string
	RedisURL   string
	// AllowedOrigins controls HTTP CORS and WebSocket origin validation.
	// Empty slice means all origins are permitted (dev default).
	AllowedOrigins []string

	// LLM
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	LLMModel       string
	EmbeddingModel string
	LLMTimeout     time.Duration

	// Web search (Google Custom Search)
	GoogleAPIKey          string
	GoogleCSEID           string
	SearchQueries         int
	SearchMaxResults      int
	ImageSearchQueries    int
	ImageSearchMaxResults int

	// Retrieval
	RetrieverTopK      int
	ImageRetrieverTopK int
	ChunkSize          int
	ChunkOverlap       int

	// Ingestion
	DownloadTimeout     time.Duration
	ConcurrentDownloads int
	MaxDiscoveredURLs   int
	CrawlerUserAgent    string
	MaxUploadBytes      int64

	// Pipeline
	StageTimeout time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load() // Ignore error — .env is optional

	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "pretty"),
		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379/0"),
		AllowedOrigins: parseOrigins(getEnv("ALLOWED_ORIGINS", "")),

		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", ""),
		LLMModel:       getEnv("LLM_MODEL", "gpt-4.1"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		LLMTimeout:     time.Duration(getEnvInt("LLM_TIMEOUT_SECONDS", 120)) * time.Second,

		GoogleAPIKey:          getEnv("GOOGLE_API_KEY", ""),
		GoogleCSEID:           getEnv("GOOGLE_CSE_ID", ""),
		SearchQueries:         getEnvInt("SEARCH_QUERIES_TO_GENERATE", 2),
		SearchMaxResults:      getEnvInt("SEARCH_MAX_RESULTS_PER_QUERY", 10),
		ImageSearchQueries:    getEnvInt("IMAGE_SEARCH_QUERIES_TO_GENERATE", 2),
		ImageSearchMaxResults: getEnvInt("IMAGE_SEARCH_MAX_RESULTS_PER_QUERY", 10),

		RetrieverTopK:      getEnvInt("RETRIEVER_TOP_K", 10),
		ImageRetrieverTopK: getEnvInt("IMAGE_RETRIEVER_TOP_K", 5),
		ChunkSize:          getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap:       getEnvInt("CHUNK_OVERLAP", 200),

		DownloadTimeout:     time.Duration(getEnvInt("DOWNLOADER_TIMEOUT_SECONDS", 15)) * time.Second,
		ConcurrentDownloads: getEnvInt("INGESTION_CONCURRENT_DOWNLOADS", 5),
		MaxDiscoveredURLs:   getEnvInt("CRAWLER_MAX_DISCOVERED_URLS", 10),
		CrawlerUserAgent:    getEnv("CRAWLER_USER_AGENT", "ExamGeneratorBot/1.0 (Educational Research)"),
		MaxUploadBytes:      int64(getEnvInt("MAX_UPLOAD_SIZE_MB", 10)) * 1024 * 1024,

		StageTimeout: time.Duration(getEnvInt("STAGE_TIMEOUT_SECONDS", 300)) * time.Second,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

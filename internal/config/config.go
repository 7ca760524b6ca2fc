package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI    string
	DBName      string
	Port        string
	GinMode     string
	CORSOrigins []string

	// Tracing
	TracingEnabled bool
	OTLPEndpoint   string

	// Gemini / completion service
	GeminiAPIKey    string
	GeminiModel     string
	GeminiTier      string
	DailyTokenLimit int

	// Embeddings
	EmbeddingsProvider    string // "google" (default)
	GoogleEmbeddingsModel string // e.g. "text-embedding-004"

	// Redis
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Object storage (MinIO / S3-compatible)
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	// OCR sidecar for scanned PDFs and images
	OCRServiceURL     string
	OCRServiceEnabled bool
	OCRTimeout        int // seconds

	// Upload limits
	MaxFileSize       int64
	AllowedExtensions []string

	// Segmentation
	ChunkSize    int // characters per classification chunk
	ChunkOverlap int // characters of overlap between chunks

	// Vector search over prior approved answers
	VectorSearchEnabled bool
	VectorIndexName     string
	VectorDimensions    int
	SimilarityThreshold float64
	SnippetLimit        int
	EmbedQuestionCap    int

	// Generation
	AnswerBatchSize int
	MaxContextWords int

	// Pipeline
	PipelineTimeout    int // seconds, overall deadline per run
	StuckTenderTimeout int // seconds before a processing tender is reaped

	// HTTP rate limiting
	RateLimitReqs   int
	RateLimitWindow int
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017/tender_platform"),
		DBName:      getEnv("DB_NAME", "tender_platform"),
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", "localhost:4317"),

		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiTier:      getEnv("GEMINI_TIER", "free"),
		DailyTokenLimit: getEnvInt("DAILY_TOKEN_LIMIT", 100000),

		EmbeddingsProvider:    getEnv("EMBEDDINGS_PROVIDER", "google"),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "tenders"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		OCRServiceURL:     getEnv("OCR_SERVICE_URL", "http://localhost:8001"),
		OCRServiceEnabled: getEnvBool("OCR_SERVICE_ENABLED", false),
		OCRTimeout:        getEnvInt("OCR_TIMEOUT", 300),

		MaxFileSize:       getEnvInt64("MAX_FILE_SIZE", 52428800), // 50MB
		AllowedExtensions: strings.Split(getEnv("ALLOWED_EXTENSIONS", ".txt,.md,.pdf,.docx,.xlsx,.rtf,.png,.jpg,.jpeg,.tiff"), ","),

		ChunkSize:    getEnvInt("CHUNK_SIZE", 2500),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 500),

		VectorSearchEnabled: getEnvBool("MONGODB_VECTOR_ENABLED", false),
		VectorIndexName:     getEnv("MONGODB_VECTOR_INDEX", "answer_snippets_vector"),
		VectorDimensions:    getEnvInt("VECTOR_DIM", 768),
		SimilarityThreshold: getEnvFloat64("SIMILARITY_THRESHOLD", 0.7),
		SnippetLimit:        getEnvInt("SNIPPET_LIMIT", 5),
		EmbedQuestionCap:    getEnvInt("EMBED_QUESTION_CAP", 10),

		AnswerBatchSize: getEnvInt("ANSWER_BATCH_SIZE", 5),
		MaxContextWords: getEnvInt("MAX_CONTEXT_WORDS", 1000),

		PipelineTimeout:    getEnvInt("PIPELINE_TIMEOUT", 900),
		StuckTenderTimeout: getEnvInt("STUCK_TENDER_TIMEOUT", 1800),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),
	}

	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)", cfg.ChunkOverlap, cfg.ChunkSize)
	}

	// GEMINI_API_KEY is deliberately optional: without it, segmentation runs
	// heuristics-only and generation emits fallback answers.

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

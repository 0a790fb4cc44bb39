package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI     string
	DBName       string
	JWTSecret    string
	JWTExpiresIn time.Duration
	Port         string
	GinMode      string
	CORSOrigins  []string
	BcryptCost   int

	// Redis (rate limiting + background indexing queue)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	RateLimitReqs   int
	RateLimitWindow int

	// Uploads
	UploadDir           string
	MaxFileSize         int64
	SyncProcessingLimit int64

	// Model service (Gemini)
	GeminiAPIKey        string
	EmbeddingModel      string
	GenerationModel     string
	ModelRequestTimeout time.Duration

	// Vector index
	IndexPersistDir  string
	IndexCollection  string
	SimilarityMetric string
	VectorDimensions int

	// Chunking and retrieval. Changing chunk size or the embedding model after
	// the index contains data produces a mixed index; rebuild with cmd/reindex.
	ChunkSize     int
	ChunkOverlap  int
	TopKRetrieval int

	// Orphaned-vector sweep
	OrphanSweepMinutes int
}

func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI:     getEnv("MONGO_URI", "mongodb://localhost:27017/elearning_chat"),
		DBName:       getEnv("DB_NAME", "elearning_chat"),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		JWTExpiresIn: getEnvDuration("JWT_EXPIRES_IN", 24*time.Hour),
		Port:         getEnv("PORT", "8080"),
		GinMode:      getEnv("GIN_MODE", "debug"),
		CORSOrigins:  strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		BcryptCost:   getEnvInt("BCRYPT_COST", 12),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		UploadDir:           getEnv("UPLOAD_DIR", "./uploads"),
		MaxFileSize:         getEnvInt64("MAX_FILE_SIZE", 52428800), // 50MB
		SyncProcessingLimit: getEnvInt64("SYNC_PROCESSING_LIMIT", 5242880),

		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		EmbeddingModel:      getEnv("EMBEDDING_MODEL", "text-embedding-004"),
		GenerationModel:     getEnv("GENERATION_MODEL", "gemini-2.0-flash"),
		ModelRequestTimeout: time.Duration(getEnvInt("MODEL_REQUEST_TIMEOUT", 120)) * time.Second,

		IndexPersistDir:  getEnv("INDEX_PERSIST_DIR", "./vector_index"),
		IndexCollection:  getEnv("INDEX_COLLECTION", "course_materials"),
		SimilarityMetric: getEnv("SIMILARITY_METRIC", "cosine"),
		VectorDimensions: getEnvInt("VECTOR_DIMENSIONS", 768),

		ChunkSize:     getEnvInt("CHUNK_SIZE", 1024),
		ChunkOverlap:  getEnvInt("CHUNK_OVERLAP", 200),
		TopKRetrieval: getEnvInt("TOP_K_RETRIEVAL", 5),

		OrphanSweepMinutes: getEnvInt("ORPHAN_SWEEP_MINUTES", 30),
	}

	// Validate required fields
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required - set it in .env file")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	// The index is built with cosine similarity; any other metric would make
	// existing vectors incomparable, so refuse to start rather than guess.
	if cfg.SimilarityMetric != "cosine" {
		return nil, fmt.Errorf("unsupported SIMILARITY_METRIC %q: the vector index only supports cosine", cfg.SimilarityMetric)
	}

	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)", cfg.ChunkOverlap, cfg.ChunkSize)
	}

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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
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

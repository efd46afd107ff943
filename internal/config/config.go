package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port        string `yaml:"port" validate:"required,numeric"`
	DatabaseURL string `yaml:"database_url" validate:"required"`
	LogLevel    string `yaml:"log_level" validate:"oneof=debug info warn error"`
	UploadDir   string `yaml:"upload_dir" validate:"required"`
	MaxFileSize int64  `yaml:"max_file_size" validate:"gt=0"`

	// S3
	S3Enabled         bool   `yaml:"s3_enabled"`
	S3Endpoint        string `yaml:"s3_endpoint" validate:"required_if=S3Enabled true"`
	S3AccessKeyID     string `yaml:"s3_access_key_id"`
	S3SecretAccessKey string `yaml:"s3_secret_access_key"`
	S3BucketName      string `yaml:"s3_bucket_name" validate:"required_if=S3Enabled true"`
	S3UseSSL          bool   `yaml:"s3_use_ssl"`

	// OpenRouter; an empty key disables the LLM and leaves the fallbacks in charge.
	OpenRouterAPIKey  string `yaml:"openrouter_api_key"`
	OpenRouterModel   string `yaml:"openrouter_model"`
	OpenRouterBaseURL string `yaml:"openrouter_base_url" validate:"omitempty,url"`

	// Embeddings
	EmbeddingProvider   string `yaml:"embedding_provider" validate:"oneof=openai hash"`
	EmbeddingBaseURL    string `yaml:"embedding_base_url" validate:"required_if=EmbeddingProvider openai"`
	EmbeddingAPIKey     string `yaml:"embedding_api_key"`
	EmbeddingModel      string `yaml:"embedding_model" validate:"required"`
	EmbeddingDimensions int    `yaml:"embedding_dimensions" validate:"gt=0"`

	// Vector backend
	VectorBackend    string `yaml:"vector_backend" validate:"oneof=memory qdrant pgvector"`
	QdrantAddr       string `yaml:"qdrant_addr" validate:"required_if=VectorBackend qdrant"`
	QdrantCollection string `yaml:"qdrant_collection" validate:"required_if=VectorBackend qdrant"`
	PGVectorURL      string `yaml:"pgvector_url" validate:"required_if=VectorBackend pgvector"`
	PGVectorTable    string `yaml:"pgvector_table" validate:"required_if=VectorBackend pgvector"`

	// Redis backs the intent history when set.
	RedisAddr         string `yaml:"redis_addr"`
	RedisPassword     string `yaml:"redis_password"`
	RedisDB           int    `yaml:"redis_db" validate:"gte=0"`
	IntentHistorySize int    `yaml:"intent_history_size" validate:"gt=0"`

	// Vectorization
	ChunkSize       int           `yaml:"chunk_size" validate:"gt=0"`
	ChunkOverlap    int           `yaml:"chunk_overlap" validate:"gte=0,ltfield=ChunkSize"`
	RunStopTimeout  time.Duration `yaml:"run_stop_timeout" validate:"gt=0"`
	DocumentTimeout time.Duration `yaml:"document_timeout" validate:"gt=0"`
	// Uploads within this window share one run; zero starts a run per upload.
	RunTriggerDelay time.Duration `yaml:"run_trigger_delay" validate:"gte=0"`
}

func defaults() *Config {
	return &Config{
		Port:                "8080",
		DatabaseURL:         "data/docvault.db",
		LogLevel:            "info",
		UploadDir:           "data/uploads",
		MaxFileSize:         50 * 1024 * 1024,
		S3Endpoint:          "localhost:9000",
		S3AccessKeyID:       "minioadmin",
		S3SecretAccessKey:   "minioadmin",
		S3BucketName:        "documents",
		OpenRouterModel:     "openai/gpt-4o-mini",
		OpenRouterBaseURL:   "https://openrouter.ai/api/v1",
		EmbeddingProvider:   "openai",
		EmbeddingBaseURL:    "http://localhost:11434/v1",
		EmbeddingModel:      "nomic-embed-text",
		EmbeddingDimensions: 768,
		VectorBackend:       "memory",
		QdrantAddr:          "localhost:6334",
		QdrantCollection:    "docvault_chunks",
		PGVectorTable:       "document_vectors",
		IntentHistorySize:   100,
		ChunkSize:           1000,
		ChunkOverlap:        200,
		RunStopTimeout:      5 * time.Second,
		DocumentTimeout:     10 * time.Minute,
		RunTriggerDelay:     2 * time.Second,
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// CONFIG_FILE, and finally the environment (including a local .env file).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

func applyEnv(cfg *Config) error {
	var errs []error

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.UploadDir = getEnv("UPLOAD_DIR", cfg.UploadDir)

	cfg.S3Enabled = getEnvBool("S3_ENABLED", cfg.S3Enabled)
	cfg.S3Endpoint = getEnv("S3_ENDPOINT", cfg.S3Endpoint)
	cfg.S3AccessKeyID = getEnv("S3_ACCESS_KEY_ID", cfg.S3AccessKeyID)
	cfg.S3SecretAccessKey = getEnv("S3_SECRET_ACCESS_KEY", cfg.S3SecretAccessKey)
	cfg.S3BucketName = getEnv("S3_BUCKET_NAME", cfg.S3BucketName)
	cfg.S3UseSSL = getEnvBool("S3_USE_SSL", cfg.S3UseSSL)

	cfg.OpenRouterAPIKey = getEnv("OPENROUTER_API_KEY", cfg.OpenRouterAPIKey)
	cfg.OpenRouterModel = getEnv("OPENROUTER_MODEL", cfg.OpenRouterModel)
	cfg.OpenRouterBaseURL = getEnv("OPENROUTER_BASE_URL", cfg.OpenRouterBaseURL)

	cfg.EmbeddingProvider = getEnv("EMBEDDING_PROVIDER", cfg.EmbeddingProvider)
	cfg.EmbeddingBaseURL = getEnv("EMBEDDING_BASE_URL", cfg.EmbeddingBaseURL)
	cfg.EmbeddingAPIKey = getEnv("EMBEDDING_API_KEY", cfg.EmbeddingAPIKey)
	cfg.EmbeddingModel = getEnv("EMBEDDING_MODEL", cfg.EmbeddingModel)

	cfg.VectorBackend = getEnv("VECTOR_BACKEND", cfg.VectorBackend)
	cfg.QdrantAddr = getEnv("QDRANT_ADDR", cfg.QdrantAddr)
	cfg.QdrantCollection = getEnv("QDRANT_COLLECTION", cfg.QdrantCollection)
	cfg.PGVectorURL = getEnv("PGVECTOR_URL", cfg.PGVectorURL)
	cfg.PGVectorTable = getEnv("PGVECTOR_TABLE", cfg.PGVectorTable)

	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)

	var err error
	if cfg.MaxFileSize, err = getEnvInt64("MAX_FILE_SIZE", cfg.MaxFileSize); err != nil {
		errs = append(errs, err)
	}
	if cfg.EmbeddingDimensions, err = getEnvInt("EMBEDDING_DIMENSIONS", cfg.EmbeddingDimensions); err != nil {
		errs = append(errs, err)
	}
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", cfg.RedisDB); err != nil {
		errs = append(errs, err)
	}
	if cfg.IntentHistorySize, err = getEnvInt("INTENT_HISTORY_SIZE", cfg.IntentHistorySize); err != nil {
		errs = append(errs, err)
	}
	if cfg.ChunkSize, err = getEnvInt("CHUNK_SIZE", cfg.ChunkSize); err != nil {
		errs = append(errs, err)
	}
	if cfg.ChunkOverlap, err = getEnvInt("CHUNK_OVERLAP", cfg.ChunkOverlap); err != nil {
		errs = append(errs, err)
	}
	if cfg.RunStopTimeout, err = getEnvDuration("RUN_STOP_TIMEOUT", cfg.RunStopTimeout); err != nil {
		errs = append(errs, err)
	}
	if cfg.DocumentTimeout, err = getEnvDuration("DOCUMENT_TIMEOUT", cfg.DocumentTimeout); err != nil {
		errs = append(errs, err)
	}
	if cfg.RunTriggerDelay, err = getEnvDuration("RUN_TRIGGER_DELAY", cfg.RunTriggerDelay); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// LLMEnabled reports whether an LLM gateway can be built from this config.
func (c *Config) LLMEnabled() bool {
	return c.OpenRouterAPIKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1"
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvInt64(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}

package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"

	"docsense-backend/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	Env             string
	LogLevel        string
	DatabaseURL     string

	ObjectStoreType string
	LocalStoreDir   string
	PublicBaseURL   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	MinioEndpoint   string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioBucket     string
	MinioUseSSL     bool

	SearchBackend   string
	SearchIndexPath string

	LLMProvider       string
	LLMModel          string
	LLMAPIKey         string
	LLMBaseURL        string
	LLMTimeoutSeconds int

	OCRAPIKey   string
	OCRURL      string
	OCRLanguage string

	MaxUploadBytes       int64
	MaxIngestions        int
	MaxIngestionsPerUser int
	UploadRatePerMinute  float64
	UploadBurst          int
}

// Load reads configuration from environment variables with sensible defaults.
// A local .env file, when present, fills in anything the environment leaves unset.
func Load() Config {
	v := viper.New()
	setDefaults(v)
	readEnvFiles(v, ".env", "cmd/.env")
	v.AutomaticEnv()

	env := normalizeEnv(v.GetString("ENV"))
	dbURL := strings.TrimSpace(v.GetString("DATABASE_URL"))
	if env == "production" && dbURL == "" {
		telemetry.Warn("config.missing", map[string]any{"key": "DATABASE_URL"})
	}

	apiKey := v.GetString("LLM_API_KEY")
	if apiKey == "" {
		apiKey = v.GetString("OPENAI_API_KEY")
	}
	if apiKey == "" {
		apiKey = v.GetString("GROQ_API_KEY")
	}

	return Config{
		Port:            v.GetString("PORT"),
		CORSAllowOrigin: splitAndTrim(v.GetString("CORS_ALLOW_ORIGINS")),
		Env:             env,
		LogLevel:        v.GetString("LOG_LEVEL"),
		DatabaseURL:     dbURL,

		ObjectStoreType: normalizeStoreType(v.GetString("OBJECT_STORE")),
		LocalStoreDir:   v.GetString("LOCAL_STORE_DIR"),
		PublicBaseURL:   strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
		AWSRegion:       v.GetString("AWS_REGION"),
		S3Bucket:        v.GetString("S3_BUCKET"),
		S3Prefix:        v.GetString("S3_PREFIX"),
		SSEKMSKeyID:     v.GetString("SSE_KMS_KEY_ID"),
		MinioEndpoint:   v.GetString("MINIO_ENDPOINT"),
		MinioAccessKey:  v.GetString("MINIO_ACCESS_KEY"),
		MinioSecretKey:  v.GetString("MINIO_SECRET_KEY"),
		MinioBucket:     v.GetString("MINIO_BUCKET"),
		MinioUseSSL:     v.GetBool("MINIO_USE_SSL"),

		SearchBackend:   normalizeSearchBackend(v.GetString("SEARCH_BACKEND")),
		SearchIndexPath: v.GetString("SEARCH_INDEX_PATH"),

		LLMProvider:       strings.ToLower(strings.TrimSpace(v.GetString("LLM_PROVIDER"))),
		LLMModel:          v.GetString("LLM_MODEL"),
		LLMAPIKey:         apiKey,
		LLMBaseURL:        v.GetString("LLM_BASE_URL"),
		LLMTimeoutSeconds: v.GetInt("LLM_TIMEOUT_SECONDS"),

		OCRAPIKey:   v.GetString("OCR_API_KEY"),
		OCRURL:      v.GetString("OCR_URL"),
		OCRLanguage: v.GetString("OCR_LANGUAGE"),

		MaxUploadBytes:       v.GetInt64("MAX_UPLOAD_BYTES"),
		MaxIngestions:        v.GetInt("MAX_CONCURRENT_INGESTIONS"),
		MaxIngestionsPerUser: v.GetInt("MAX_CONCURRENT_INGESTIONS_PER_USER"),
		UploadRatePerMinute:  v.GetFloat64("UPLOAD_RATE_PER_MINUTE"),
		UploadBurst:          v.GetInt("UPLOAD_BURST"),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("CORS_ALLOW_ORIGINS", "http://localhost:5173")
	v.SetDefault("ENV", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("OBJECT_STORE", "local")
	v.SetDefault("LOCAL_STORE_DIR", "./data")
	v.SetDefault("SEARCH_BACKEND", "bleve")
	v.SetDefault("LLM_PROVIDER", "openai")
	v.SetDefault("LLM_MODEL", "llama-3.3-70b-versatile")
	v.SetDefault("LLM_TIMEOUT_SECONDS", 120)
	v.SetDefault("OCR_URL", "https://api.ocr.space/parse/image")
	v.SetDefault("OCR_LANGUAGE", "eng")
	v.SetDefault("MAX_UPLOAD_BYTES", 10<<20)
	v.SetDefault("MAX_CONCURRENT_INGESTIONS", 16)
	v.SetDefault("MAX_CONCURRENT_INGESTIONS_PER_USER", 2)
	v.SetDefault("UPLOAD_RATE_PER_MINUTE", 10)
	v.SetDefault("UPLOAD_BURST", 5)
}

// readEnvFiles merges dotenv files that exist; missing or malformed files are skipped.
func readEnvFiles(v *viper.Viper, paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		v.SetConfigFile(p)
		v.SetConfigType("env")
		if err := v.MergeInConfig(); err != nil {
			telemetry.Warn("config.env_file_invalid", map[string]any{"path": p, "error": err.Error()})
		}
	}
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "test":
		return "test"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "minio":
		return "minio"
	default:
		return "local"
	}
}

func normalizeSearchBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "postgres", "pg":
		return "postgres"
	default:
		return "bleve"
	}
}

package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"docsense-backend/internal/classify"
	"docsense-backend/internal/documents"
	"docsense-backend/internal/extract"
	"docsense-backend/internal/llm"
	"docsense-backend/internal/llm/langchain"
	openai "docsense-backend/internal/llm/openai"
	"docsense-backend/internal/ocr"
	"docsense-backend/internal/search"
	"docsense-backend/internal/services/health"
	"docsense-backend/internal/shared/config"
	"docsense-backend/internal/shared/server"
	"docsense-backend/internal/shared/server/middleware"
	"docsense-backend/internal/shared/storage/db"
	"docsense-backend/internal/shared/storage/object"
	localstore "docsense-backend/internal/shared/storage/object/local"
	miniostore "docsense-backend/internal/shared/storage/object/minio"
	s3store "docsense-backend/internal/shared/storage/object/s3"
	"docsense-backend/internal/shared/telemetry"
	"docsense-backend/internal/summarize"
	"docsense-backend/internal/textinsights"
)

// App holds shared dependencies.
type App struct {
	Config           config.Config
	Router           *gin.Engine
	DB               *sql.DB
	Store            object.ObjectStore
	Index            *search.Index
	LLM              llm.Client
	DocumentsRepo    documents.Repo
	DocumentsService *documents.Service
	DocumentsHandler *documents.Handler
	TextHandler      *textinsights.Handler
}

// Build prepares every dependency and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	llmClient, err := buildLLM(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		LLM:    llmClient,
	}

	if err := buildServices(ctx, app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:   app.Config,
		Handlers: []server.RouteRegistrar{app.DocumentsHandler, app.TextHandler},
		Limiter:  middleware.NewRateLimiter(time.Now),
		Health:   buildHealth(app),
	})

	return app, nil
}

// Close releases the database and search index.
func (a *App) Close() error {
	var firstErr error
	if a.Index != nil {
		firstErr = a.Index.Close()
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repo", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repo", map[string]any{"reason": "database connect failed", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "minio":
		return miniostore.New(ctx, miniostore.Options{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			Region:    cfg.AWSRegion,
			UseSSL:    cfg.MinioUseSSL,
		})
	default:
		return localstore.New(cfg.LocalStoreDir, cfg.PublicBaseURL), nil
	}
}

// buildLLM picks the provider backend and wraps it with retries. Without an
// API key every call fails with llm.ErrNotConfigured, which classification
// absorbs and summarization reports.
func buildLLM(cfg config.Config) (llm.Client, error) {
	if strings.TrimSpace(cfg.LLMAPIKey) == "" {
		telemetry.Warn("bootstrap.llm_unconfigured", map[string]any{"provider": cfg.LLMProvider})
		return llm.Unconfigured{}, nil
	}

	var base llm.Client
	switch cfg.LLMProvider {
	case "langchain", "groq":
		baseURL := cfg.LLMBaseURL
		if baseURL == "" && cfg.LLMProvider == "groq" {
			baseURL = langchain.GroqBaseURL
		}
		client, err := langchain.New(langchain.Config{
			APIKey:  cfg.LLMAPIKey,
			Model:   cfg.LLMModel,
			BaseURL: baseURL,
		})
		if err != nil {
			return nil, err
		}
		base = client
	default:
		client, err := openai.NewClient(openai.Options{
			APIKey:  cfg.LLMAPIKey,
			Model:   cfg.LLMModel,
			BaseURL: cfg.LLMBaseURL,
			Timeout: time.Duration(cfg.LLMTimeoutSeconds) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		base = client
	}
	return llm.WithRetry(base), nil
}

func buildServices(ctx context.Context, app *App) error {
	cfg := app.Config

	var repo documents.Repo
	if app.DB != nil {
		repo = &documents.PGRepo{DB: app.DB}
	} else {
		repo = documents.NewMemoryRepo()
	}

	ocrClient := ocr.New(ocr.Options{
		APIKey:   cfg.OCRAPIKey,
		Endpoint: cfg.OCRURL,
		Language: cfg.OCRLanguage,
	})
	summarizer := summarize.New(app.LLM)

	svc := &documents.Service{
		Repo:       repo,
		Store:      app.Store,
		Extractor:  extract.New(ocrClient),
		Summarizer: summarizer,
		Classifier: classify.New(app.LLM),
		Admission:  documents.NewAdmission(cfg.MaxIngestions, cfg.MaxIngestionsPerUser),
	}

	// Postgres ranks with its own tsvector index; everything else uses bleve.
	if cfg.SearchBackend != "postgres" || app.DB == nil {
		idx, err := search.Open(cfg.SearchIndexPath)
		if err != nil {
			return err
		}
		app.Index = idx
		svc.Searcher = idx
		if err := warmIndex(ctx, svc, idx); err != nil {
			telemetry.Warn("bootstrap.reindex_failed", map[string]any{"error": err.Error()})
		}
	}

	app.DocumentsRepo = repo
	app.DocumentsService = svc
	app.DocumentsHandler = documents.NewHandler(svc, cfg.MaxUploadBytes)
	app.TextHandler = textinsights.NewHandler(summarizer)
	return nil
}

// warmIndex fills an empty index from the repository.
func warmIndex(ctx context.Context, svc *documents.Service, idx *search.Index) error {
	n, err := idx.Count()
	if err != nil || n > 0 {
		return err
	}
	indexed, err := svc.Reindex(ctx)
	if indexed > 0 {
		telemetry.Info("bootstrap.reindexed", map[string]any{"documents": indexed})
	}
	return err
}

func buildHealth(app *App) *health.Service {
	svc := health.NewService()
	if app.DB != nil {
		svc.Register("database", app.DB.PingContext)
	}
	if app.Index != nil {
		svc.Register("search_index", func(ctx context.Context) error {
			_, err := app.Index.Count()
			return err
		})
	}
	return svc
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}

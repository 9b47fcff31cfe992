package main

// Rebuild the bleve search index from Postgres:
//   go run ./cmd/reindex

import (
	"context"
	"log"
	"os"

	"docsense-backend/internal/documents"
	"docsense-backend/internal/search"
	"docsense-backend/internal/shared/config"
	"docsense-backend/internal/shared/storage/db"
	"docsense-backend/internal/shared/telemetry"
)

const batchSize = 200

func main() {
	cfg := config.Load()
	telemetry.Init(cfg.LogLevel)
	ctx := context.Background()

	if cfg.SearchIndexPath == "" {
		log.Printf("SEARCH_INDEX_PATH is required")
		os.Exit(1)
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	if err != nil {
		log.Printf("failed to connect database: %v", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	idx, err := search.Open(cfg.SearchIndexPath)
	if err != nil {
		log.Printf("failed to open index: %v", err)
		os.Exit(1)
	}
	defer idx.Close()

	if err := idx.Reset(); err != nil {
		log.Printf("failed to reset index: %v", err)
		os.Exit(1)
	}

	repo := &documents.PGRepo{DB: sqlDB}
	total := 0
	batch := make([]documents.Document, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := idx.IndexBatch(batch); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	err = repo.Each(ctx, func(doc documents.Document) error {
		batch = append(batch, doc)
		if len(batch) < batchSize {
			return nil
		}
		return flush()
	})
	if err == nil {
		err = flush()
	}
	if err != nil {
		log.Printf("reindex failed after %d documents: %v", total, err)
		os.Exit(1)
	}

	count, _ := idx.Count()
	telemetry.Info("reindex.done", map[string]any{"indexed": total, "index_count": count})
}

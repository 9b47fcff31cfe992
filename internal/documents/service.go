package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"docsense-backend/internal/classify"
	"docsense-backend/internal/extract"
	"docsense-backend/internal/pii"
	"docsense-backend/internal/shared/metrics"
	"docsense-backend/internal/shared/storage/object"
	"docsense-backend/internal/shared/telemetry"
	"docsense-backend/internal/summarize"
)

const (
	defaultPageLimit    = 10
	maxPageLimit        = 100
	defaultHistoryLimit = 20
)

// Extractor turns an uploaded file into raw text.
type Extractor interface {
	Extract(ctx context.Context, src extract.Source) (string, error)
}

// Summarizer produces the four derived texts.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (summarize.Set, error)
}

// Classifier assigns a document type and never fails.
type Classifier interface {
	Classify(ctx context.Context, text string) classify.Result
	ClassifyBatch(ctx context.Context, inputs []classify.Input) []classify.BatchResult
}

// Service contains the ingestion pipeline and document queries.
type Service struct {
	Repo       Repo
	Store      object.ObjectStore
	Extractor  Extractor
	Summarizer Summarizer
	Classifier Classifier
	// Searcher is optional; without it search falls back to Repo.Search.
	Searcher  Searcher
	Admission *Admission
	Now       func() time.Time
}

// UploadInput is one uploaded file.
type UploadInput struct {
	UserID    string
	FileName  string
	MediaType string
	Data      []byte
}

// Page is one page of documents plus pagination totals.
type Page struct {
	Documents  []Document
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

// ReclassifyResult reports batch classification of owned documents.
type ReclassifyResult struct {
	Results []classify.BatchResult
	Missing []string
}

// ResolveMediaType prefers the declared type unless it is empty or generic,
// in which case the content is sniffed.
func ResolveMediaType(declared string, data []byte) string {
	mt := extract.Normalize(declared)
	switch mt {
	case "", "application/octet-stream", "application/zip", "binary/octet-stream":
		return extract.Normalize(mimetype.Detect(data).String())
	}
	return mt
}

// Ingest runs the full pipeline for one upload. Once a record exists every
// failure is persisted on it before the error is returned; the returned
// Document always reflects the last persisted state.
func (s *Service) Ingest(ctx context.Context, in UploadInput) (Document, error) {
	if len(in.Data) == 0 || strings.TrimSpace(in.FileName) == "" {
		return Document{}, fmt.Errorf("%w: no file uploaded", ErrInvalidInput)
	}
	if strings.TrimSpace(in.UserID) == "" {
		return Document{}, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}

	mediaType := ResolveMediaType(in.MediaType, in.Data)
	if !extract.Supported(mediaType) {
		metrics.IncIngestion("unsupported")
		return Document{}, fmt.Errorf("%w: %s", extract.ErrUnsupportedFormat, mediaType)
	}

	release, ok := s.Admission.TryAcquire(in.UserID)
	if !ok {
		return Document{}, ErrBusy
	}
	defer release()
	defer metrics.IngestionStarted()()

	ctx = context.WithoutCancel(ctx)
	isImage := extract.IsImage(mediaType)

	var (
		text       string
		extractErr error
	)
	if !isImage {
		start := time.Now()
		text, extractErr = s.Extractor.Extract(ctx, extract.Source{Data: in.Data, MediaType: mediaType, FileName: in.FileName})
		metrics.ObserveStage("extracting", time.Since(start))
	}

	obj, err := s.Store.Save(ctx, in.UserID, in.FileName, mediaType, bytes.NewReader(in.Data))
	if err != nil {
		metrics.IncIngestion("storage_failed")
		telemetry.Error("documents.upload_failed", map[string]any{
			"user_id":   in.UserID,
			"file_name": in.FileName,
			"error":     err.Error(),
		})
		return Document{}, fmt.Errorf("%w: %v", ErrStorageUpload, err)
	}

	now := s.now()
	doc := Document{
		ID:              uuid.NewString(),
		UserID:          in.UserID,
		FileName:        path.Base(obj.Key),
		OriginalName:    in.FileName,
		MimeType:        mediaType,
		SizeBytes:       int64(len(in.Data)),
		StorageProvider: obj.Provider,
		StorageURL:      obj.URL,
		StorageKey:      obj.Key,
		DocumentType:    string(classify.Other),
		MaskedFields:    []string{},
		Status:          StatusPending,
		Stage:           StagePending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := doc.advance(StageProcessing); err != nil {
		return Document{}, err
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		s.deleteObject(ctx, obj.Key)
		metrics.IncIngestion("failed")
		return Document{}, fmt.Errorf("create document: %w", err)
	}
	s.index(ctx, doc)
	telemetry.Info("documents.created", map[string]any{
		"document_id": doc.ID,
		"user_id":     doc.UserID,
		"mime_type":   mediaType,
		"size_bytes":  doc.SizeBytes,
	})

	if isImage {
		start := time.Now()
		text, extractErr = s.Extractor.Extract(ctx, extract.Source{MediaType: mediaType, URL: obj.URL, FileName: in.FileName})
		metrics.ObserveStage("extracting", time.Since(start))
	}
	if extractErr != nil {
		return s.failed(ctx, doc, extractErr)
	}
	if strings.TrimSpace(text) == "" {
		doc.fail(noTextMessage)
		if err := s.save(ctx, &doc); err != nil {
			s.logPersistError(doc, err)
		}
		metrics.IncIngestion("empty")
		return doc, nil
	}

	return s.process(ctx, doc, text)
}

func (s *Service) process(ctx context.Context, doc Document, text string) (Document, error) {
	doc.RawText = strPtr(text)
	if err := s.transition(ctx, &doc, StageMasking); err != nil {
		return s.failed(ctx, doc, err)
	}

	start := time.Now()
	masked := pii.Process(text)
	metrics.ObserveStage(string(StageMasking), time.Since(start))
	doc.MaskedText = strPtr(masked.MaskedText)
	doc.HasSensitiveData = masked.Detection.HasSensitiveData
	doc.MaskedFields = categoryNames(masked.MaskedFields)
	doc.MaskingFailed = masked.Failed
	if masked.Failed {
		telemetry.Warn("documents.masking_failed", map[string]any{
			"document_id": doc.ID,
			"error":       masked.Err,
		})
	}
	if err := s.transition(ctx, &doc, StageSummarizing); err != nil {
		return s.failed(ctx, doc, err)
	}

	start = time.Now()
	cctx, cancel := context.WithCancel(ctx)
	classified := make(chan classify.Result, 1)
	go func() {
		classified <- s.Classifier.Classify(cctx, text)
	}()
	set, err := s.Summarizer.Summarize(ctx, text)
	if err != nil {
		cancel()
	}
	result := <-classified
	cancel()
	metrics.ObserveStage(string(StageSummarizing), time.Since(start))
	if err != nil {
		return s.failed(ctx, doc, err)
	}

	doc.Summary = strPtr(set.Summary)
	doc.ExecutiveSummary = strPtr(set.ExecutiveSummary)
	doc.KeyPoints = strPtr(set.KeyPoints)
	doc.Analysis = strPtr(set.Analysis)
	if err := s.transition(ctx, &doc, StageClassifying); err != nil {
		return s.failed(ctx, doc, err)
	}

	applyClassification(&doc, result)
	if result.Degraded {
		telemetry.Warn("documents.classification_degraded", map[string]any{
			"document_id": doc.ID,
			"error":       errString(result.Err),
		})
	}
	if err := s.save(ctx, &doc); err != nil {
		return s.failed(ctx, doc, err)
	}

	if !doc.complete() {
		return s.failed(ctx, doc, errors.New("derived content incomplete"))
	}
	if err := s.transition(ctx, &doc, StageCompleted); err != nil {
		return s.failed(ctx, doc, err)
	}
	metrics.IncIngestion("completed")
	telemetry.Info("documents.completed", map[string]any{
		"document_id":   doc.ID,
		"document_type": doc.DocumentType,
		"sensitive":     doc.HasSensitiveData,
	})
	return doc, nil
}

// transition advances the stage and persists the whole record.
func (s *Service) transition(ctx context.Context, doc *Document, to Stage) error {
	if err := doc.advance(to); err != nil {
		return err
	}
	return s.save(ctx, doc)
}

func (s *Service) save(ctx context.Context, doc *Document) error {
	doc.UpdatedAt = s.now()
	if err := s.Repo.Update(ctx, *doc); err != nil {
		return fmt.Errorf("persist document: %w", err)
	}
	s.index(ctx, *doc)
	return nil
}

// failed records cause on the document and returns it to the caller.
func (s *Service) failed(ctx context.Context, doc Document, cause error) (Document, error) {
	doc.fail(cause.Error())
	if err := s.save(ctx, &doc); err != nil {
		s.logPersistError(doc, err)
	}
	metrics.IncIngestion("failed")
	telemetry.Error("documents.failed", map[string]any{
		"document_id": doc.ID,
		"user_id":     doc.UserID,
		"error":       cause.Error(),
	})
	return doc, cause
}

func (s *Service) logPersistError(doc Document, err error) {
	telemetry.Error("documents.persist_failed", map[string]any{
		"document_id": doc.ID,
		"stage":       string(doc.Stage),
		"error":       err.Error(),
	})
}

func (s *Service) index(ctx context.Context, doc Document) {
	if s.Searcher == nil {
		return
	}
	if err := s.Searcher.IndexDocument(ctx, doc); err != nil {
		telemetry.Warn("documents.index_failed", map[string]any{
			"document_id": doc.ID,
			"error":       err.Error(),
		})
	}
}

func (s *Service) deleteObject(ctx context.Context, key string) {
	if key == "" || s.Store == nil {
		return
	}
	if err := s.Store.Delete(ctx, key); err != nil && !errors.Is(err, object.ErrNotFound) {
		telemetry.Warn("documents.object_delete_failed", map[string]any{
			"storage_key": key,
			"error":       err.Error(),
		})
	}
}

// Get returns one owned document.
func (s *Service) Get(ctx context.Context, userID, id string) (Document, error) {
	if strings.TrimSpace(id) == "" {
		return Document{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, userID, id)
}

// List returns a user's documents newest first.
func (s *Service) List(ctx context.Context, userID string, page, limit int) (Page, error) {
	page, limit = normalizePage(page, limit)
	docs, total, err := s.Repo.ListByUser(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return Page{}, err
	}
	return newPage(docs, total, page, limit), nil
}

// Search returns a user's documents matching query, most relevant first.
func (s *Service) Search(ctx context.Context, userID, query string, page, limit int) (Page, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Page{}, ErrSearchQueryEmpty
	}
	page, limit = normalizePage(page, limit)
	offset := (page - 1) * limit

	if s.Searcher == nil {
		docs, total, err := s.Repo.Search(ctx, userID, query, limit, offset)
		if err != nil {
			return Page{}, err
		}
		return newPage(docs, total, page, limit), nil
	}

	// Stale hits are pruned from the index and the page is fetched again, so
	// total only counts documents that still exist.
	for attempt := 0; ; attempt++ {
		ids, total, err := s.Searcher.SearchIDs(ctx, userID, query, limit, offset)
		if err != nil {
			return Page{}, err
		}
		docs, stale, err := s.loadHits(ctx, userID, ids)
		if err != nil {
			return Page{}, err
		}
		if len(stale) == 0 {
			return newPage(docs, total, page, limit), nil
		}
		if attempt >= maxStaleRetries || !s.pruneStale(ctx, stale) {
			return newPage(docs, max(total-len(stale), 0), page, limit), nil
		}
	}
}

const maxStaleRetries = 2

// loadHits reads search hits back from the repo in hit order. Ids the repo no
// longer knows are returned as stale.
func (s *Service) loadHits(ctx context.Context, userID string, ids []string) ([]Document, []string, error) {
	docs := make([]Document, 0, len(ids))
	var stale []string
	for _, id := range ids {
		doc, err := s.Repo.GetByID(ctx, userID, id)
		if errors.Is(err, ErrNotFound) {
			stale = append(stale, id)
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		docs = append(docs, doc)
	}
	return docs, stale, nil
}

// pruneStale removes ids from the index and reports whether all succeeded.
func (s *Service) pruneStale(ctx context.Context, ids []string) bool {
	ok := true
	for _, id := range ids {
		if err := s.Searcher.RemoveDocument(ctx, id); err != nil {
			ok = false
			telemetry.Warn("documents.prune_stale_failed", map[string]any{
				"document_id": id,
				"error":       err.Error(),
			})
		}
	}
	telemetry.Info("documents.pruned_stale", map[string]any{"count": len(ids)})
	return ok
}

// History returns the most recent documents.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	docs, _, err := s.Repo.ListByUser(ctx, userID, limit, 0)
	return docs, err
}

// Delete removes the record, its index entry and the stored object. Index and
// object cleanup are best effort.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	doc, err := s.Repo.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	if s.Searcher != nil {
		if err := s.Searcher.RemoveDocument(ctx, doc.ID); err != nil {
			telemetry.Warn("documents.unindex_failed", map[string]any{
				"document_id": doc.ID,
				"error":       err.Error(),
			})
		}
	}
	s.deleteObject(ctx, doc.StorageKey)
	telemetry.Info("documents.deleted", map[string]any{
		"document_id": doc.ID,
		"user_id":     userID,
	})
	return nil
}

// Reclassify classifies owned documents again. Degraded results are reported
// but never overwrite a stored classification.
func (s *Service) Reclassify(ctx context.Context, userID string, ids []string) (ReclassifyResult, error) {
	if len(ids) == 0 {
		return ReclassifyResult{}, fmt.Errorf("%w: ids required", ErrInvalidInput)
	}
	out := ReclassifyResult{Missing: []string{}}
	docs := make(map[string]Document, len(ids))
	seen := make(map[string]struct{}, len(ids))
	var inputs []classify.Input
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		doc, err := s.Repo.GetByID(ctx, userID, id)
		if errors.Is(err, ErrNotFound) || (err == nil && deref(doc.RawText) == "") {
			out.Missing = append(out.Missing, id)
			continue
		}
		if err != nil {
			return ReclassifyResult{}, err
		}
		docs[id] = doc
		inputs = append(inputs, classify.Input{ID: id, Text: *doc.RawText})
	}

	out.Results = s.Classifier.ClassifyBatch(ctx, inputs)
	for _, res := range out.Results {
		if res.Degraded {
			continue
		}
		doc := docs[res.ID]
		applyClassification(&doc, res.Result)
		if err := s.save(ctx, &doc); err != nil {
			return ReclassifyResult{}, err
		}
	}
	return out, nil
}

// Reindex rebuilds the search index from the repo. Indexes that can be reset
// are emptied first so entries for deleted documents do not survive.
func (s *Service) Reindex(ctx context.Context) (int, error) {
	if s.Searcher == nil {
		return 0, errors.New("search index not configured")
	}
	if r, ok := s.Searcher.(interface{ Reset() error }); ok {
		if err := r.Reset(); err != nil {
			return 0, fmt.Errorf("reset index: %w", err)
		}
	}
	count := 0
	err := s.Repo.Each(ctx, func(doc Document) error {
		if err := s.Searcher.IndexDocument(ctx, doc); err != nil {
			return fmt.Errorf("index %s: %w", doc.ID, err)
		}
		count++
		return nil
	})
	return count, err
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func applyClassification(doc *Document, res classify.Result) {
	doc.DocumentType = string(res.DocumentType)
	doc.ClassificationConfidence = math.Max(0, math.Min(1, res.Confidence))
	doc.ClassificationReasoning = res.Reasoning
}

func categoryNames(cats []pii.Category) []string {
	out := make([]string, 0, len(cats))
	for _, c := range cats {
		out = append(out, string(c))
	}
	return out
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

func newPage(docs []Document, total, page, limit int) Page {
	if docs == nil {
		docs = []Document{}
	}
	return Page{
		Documents:  docs,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: int(math.Ceil(float64(total) / float64(limit))),
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

package documents

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// PGRepo implements Repo using Postgres. Full-text search runs against the
// generated search_vector column.
type PGRepo struct {
	DB *sql.DB
}

const documentColumns = `id, user_id, file_name, original_name, mime_type, size_bytes,
    storage_provider, storage_url, storage_key,
    raw_text, masked_text, summary, executive_summary, key_points, analysis,
    document_type, classification_confidence, classification_reasoning,
    has_sensitive_data, array_to_string(masked_fields, ','), masking_failed,
    status, stage, processing_error, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(s rowScanner) (Document, error) {
	var doc Document
	var rawText, maskedText, summary, execSummary, keyPoints, analysis sql.NullString
	var maskedFields string
	var status, stage string
	err := s.Scan(
		&doc.ID,
		&doc.UserID,
		&doc.FileName,
		&doc.OriginalName,
		&doc.MimeType,
		&doc.SizeBytes,
		&doc.StorageProvider,
		&doc.StorageURL,
		&doc.StorageKey,
		&rawText,
		&maskedText,
		&summary,
		&execSummary,
		&keyPoints,
		&analysis,
		&doc.DocumentType,
		&doc.ClassificationConfidence,
		&doc.ClassificationReasoning,
		&doc.HasSensitiveData,
		&maskedFields,
		&doc.MaskingFailed,
		&status,
		&stage,
		&doc.ProcessingError,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return Document{}, err
	}
	doc.RawText = nullable(rawText)
	doc.MaskedText = nullable(maskedText)
	doc.Summary = nullable(summary)
	doc.ExecutiveSummary = nullable(execSummary)
	doc.KeyPoints = nullable(keyPoints)
	doc.Analysis = nullable(analysis)
	doc.MaskedFields = splitFields(maskedFields)
	doc.Status = Status(status)
	doc.Stage = Stage(stage)
	return doc, nil
}

// Create inserts a new document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id,
    user_id,
    file_name,
    original_name,
    mime_type,
    size_bytes,
    storage_provider,
    storage_url,
    storage_key,
    document_type,
    status,
    stage,
    processing_error,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	originalName := doc.OriginalName
	if originalName == "" {
		originalName = doc.FileName
	}
	storageProvider := doc.StorageProvider
	if storageProvider == "" {
		storageProvider = "local"
	}
	documentType := doc.DocumentType
	if documentType == "" {
		documentType = "Other"
	}

	_, err := r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.UserID,
		doc.FileName,
		originalName,
		doc.MimeType,
		doc.SizeBytes,
		storageProvider,
		doc.StorageURL,
		doc.StorageKey,
		documentType,
		string(doc.Status),
		string(doc.Stage),
		doc.ProcessingError,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	return err
}

// Update writes every mutable column of doc.
func (r *PGRepo) Update(ctx context.Context, doc Document) error {
	const query = `
UPDATE documents SET
    raw_text = $1,
    masked_text = $2,
    summary = $3,
    executive_summary = $4,
    key_points = $5,
    analysis = $6,
    document_type = $7,
    classification_confidence = $8,
    classification_reasoning = $9,
    has_sensitive_data = $10,
    masked_fields = string_to_array($11, ','),
    masking_failed = $12,
    status = $13,
    stage = $14,
    processing_error = $15,
    updated_at = $16
WHERE id = $17 AND user_id = $18`

	documentType := doc.DocumentType
	if documentType == "" {
		documentType = "Other"
	}

	res, err := r.DB.ExecContext(
		ctx,
		query,
		doc.RawText,
		doc.MaskedText,
		doc.Summary,
		doc.ExecutiveSummary,
		doc.KeyPoints,
		doc.Analysis,
		documentType,
		doc.ClassificationConfidence,
		doc.ClassificationReasoning,
		doc.HasSensitiveData,
		strings.Join(doc.MaskedFields, ","),
		doc.MaskingFailed,
		string(doc.Status),
		string(doc.Stage),
		doc.ProcessingError,
		doc.UpdatedAt,
		doc.ID,
		doc.UserID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID fetches a document by ID for a user.
func (r *PGRepo) GetByID(ctx context.Context, userID, id string) (Document, error) {
	query := `SELECT ` + documentColumns + `
FROM documents
WHERE user_id = $1 AND id = $2
LIMIT 1`
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, userID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

// ListByUser lists documents ordered newest-first with the user's total.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, int, error) {
	limit, offset = clampPage(limit, offset)

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + documentColumns + `
FROM documents
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`
	docs, err := r.queryDocuments(ctx, query, userID, limit, offset)
	return docs, total, err
}

// Search ranks by ts_rank over original name, summary and raw text.
func (r *PGRepo) Search(ctx context.Context, userID, query string, limit, offset int) ([]Document, int, error) {
	limit, offset = clampPage(limit, offset)

	var total int
	const countQuery = `
SELECT COUNT(*)
FROM documents
WHERE user_id = $1 AND search_vector @@ websearch_to_tsquery('english', $2)`
	if err := r.DB.QueryRowContext(ctx, countQuery, userID, query).Scan(&total); err != nil {
		return nil, 0, err
	}

	pageQuery := `SELECT ` + documentColumns + `
FROM documents
WHERE user_id = $1 AND search_vector @@ websearch_to_tsquery('english', $2)
ORDER BY ts_rank(search_vector, websearch_to_tsquery('english', $2)) DESC, created_at DESC
LIMIT $3 OFFSET $4`
	docs, err := r.queryDocuments(ctx, pageQuery, userID, query, limit, offset)
	return docs, total, err
}

// Delete removes a document and returns the deleted row.
func (r *PGRepo) Delete(ctx context.Context, userID, id string) (Document, error) {
	query := `DELETE FROM documents
WHERE user_id = $1 AND id = $2
RETURNING ` + documentColumns
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, userID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

// Each streams every document in creation order.
func (r *PGRepo) Each(ctx context.Context, fn func(Document) error) error {
	query := `SELECT ` + documentColumns + `
FROM documents
ORDER BY created_at ASC`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *PGRepo) queryDocuments(ctx context.Context, query string, args ...any) ([]Document, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func splitFields(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}

var _ Repo = (*PGRepo)(nil)

package documents

import (
	"time"

	"docsense-backend/internal/textinsights"
)

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	ID                       string    `json:"id"`
	UserID                   string    `json:"userId"`
	FileName                 string    `json:"filename"`
	OriginalName             string    `json:"originalName"`
	MimeType                 string    `json:"mimeType"`
	SizeBytes                int64     `json:"size"`
	StorageProvider          string    `json:"storageProvider"`
	StorageURL               string    `json:"storageUrl"`
	StorageKey               string    `json:"storageKey"`
	RawText                  *string   `json:"rawText"`
	MaskedText               *string   `json:"maskedText"`
	Summary                  *string   `json:"summary"`
	ExecutiveSummary         *string   `json:"executiveSummary"`
	KeyPoints                *string   `json:"keyPoints"`
	Analysis                 *string   `json:"analysis"`
	DocumentType             string    `json:"documentType"`
	ClassificationConfidence float64   `json:"classificationConfidence"`
	ClassificationReasoning  string    `json:"classificationReasoning"`
	HasSensitiveData         bool      `json:"hasSensitiveData"`
	MaskedFields             []string  `json:"maskedFields"`
	MaskingFailed            bool      `json:"maskingFailed"`
	ProcessingStatus         Status    `json:"processingStatus"`
	ProcessingStage          Stage     `json:"processingStage"`
	ProcessingError          string    `json:"processingError,omitempty"`
	CreatedAt                time.Time `json:"createdAt"`
	UpdatedAt                time.Time `json:"updatedAt"`
}

// DetailResponse adds text statistics to the full record.
type DetailResponse struct {
	DocumentResponse
	TextStats *textinsights.Stats `json:"textStats,omitempty"`
}

// ListItem omits the large text fields.
type ListItem struct {
	ID                       string    `json:"id"`
	FileName                 string    `json:"filename"`
	OriginalName             string    `json:"originalName"`
	MimeType                 string    `json:"mimeType"`
	SizeBytes                int64     `json:"size"`
	StorageURL               string    `json:"storageUrl"`
	Summary                  *string   `json:"summary"`
	ExecutiveSummary         *string   `json:"executiveSummary"`
	KeyPoints                *string   `json:"keyPoints"`
	DocumentType             string    `json:"documentType"`
	ClassificationConfidence float64   `json:"classificationConfidence"`
	HasSensitiveData         bool      `json:"hasSensitiveData"`
	MaskedFields             []string  `json:"maskedFields"`
	ProcessingStatus         Status    `json:"processingStatus"`
	ProcessingStage          Stage     `json:"processingStage"`
	ProcessingError          string    `json:"processingError,omitempty"`
	CreatedAt                time.Time `json:"createdAt"`
	UpdatedAt                time.Time `json:"updatedAt"`
}

// HistoryItem is the compact recent-activity projection.
type HistoryItem struct {
	ID               string    `json:"id"`
	OriginalName     string    `json:"originalName"`
	DocumentType     string    `json:"documentType"`
	ExecutiveSummary *string   `json:"executiveSummary"`
	ProcessingStatus Status    `json:"processingStatus"`
	CreatedAt        time.Time `json:"createdAt"`
}

type pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

type pageResponse struct {
	Documents  []ListItem `json:"documents"`
	Pagination pagination `json:"pagination"`
	Query      string     `json:"query,omitempty"`
}

type classifyRequest struct {
	IDs []string `json:"ids"`
}

type classifyItem struct {
	ID                       string  `json:"id"`
	DocumentType             string  `json:"documentType"`
	ClassificationConfidence float64 `json:"classificationConfidence"`
	ClassificationReasoning  string  `json:"classificationReasoning"`
	Degraded                 bool    `json:"degraded"`
}

type classifyResponse struct {
	Results []classifyItem `json:"results"`
	Missing []string       `json:"missing"`
}

func toResponse(doc Document) DocumentResponse {
	fields := doc.MaskedFields
	if fields == nil {
		fields = []string{}
	}
	return DocumentResponse{
		ID:                       doc.ID,
		UserID:                   doc.UserID,
		FileName:                 doc.FileName,
		OriginalName:             doc.OriginalName,
		MimeType:                 doc.MimeType,
		SizeBytes:                doc.SizeBytes,
		StorageProvider:          doc.StorageProvider,
		StorageURL:               doc.StorageURL,
		StorageKey:               doc.StorageKey,
		RawText:                  doc.RawText,
		MaskedText:               doc.MaskedText,
		Summary:                  doc.Summary,
		ExecutiveSummary:         doc.ExecutiveSummary,
		KeyPoints:                doc.KeyPoints,
		Analysis:                 doc.Analysis,
		DocumentType:             doc.DocumentType,
		ClassificationConfidence: doc.ClassificationConfidence,
		ClassificationReasoning:  doc.ClassificationReasoning,
		HasSensitiveData:         doc.HasSensitiveData,
		MaskedFields:             fields,
		MaskingFailed:            doc.MaskingFailed,
		ProcessingStatus:         doc.Status,
		ProcessingStage:          doc.Stage,
		ProcessingError:          doc.ProcessingError,
		CreatedAt:                doc.CreatedAt,
		UpdatedAt:                doc.UpdatedAt,
	}
}

func toDetail(doc Document) DetailResponse {
	out := DetailResponse{DocumentResponse: toResponse(doc)}
	if doc.RawText != nil && *doc.RawText != "" {
		stats := textinsights.Analyze(*doc.RawText)
		out.TextStats = &stats
	}
	return out
}

func toListItem(doc Document) ListItem {
	fields := doc.MaskedFields
	if fields == nil {
		fields = []string{}
	}
	return ListItem{
		ID:                       doc.ID,
		FileName:                 doc.FileName,
		OriginalName:             doc.OriginalName,
		MimeType:                 doc.MimeType,
		SizeBytes:                doc.SizeBytes,
		StorageURL:               doc.StorageURL,
		Summary:                  doc.Summary,
		ExecutiveSummary:         doc.ExecutiveSummary,
		KeyPoints:                doc.KeyPoints,
		DocumentType:             doc.DocumentType,
		ClassificationConfidence: doc.ClassificationConfidence,
		HasSensitiveData:         doc.HasSensitiveData,
		MaskedFields:             fields,
		ProcessingStatus:         doc.Status,
		ProcessingStage:          doc.Stage,
		ProcessingError:          doc.ProcessingError,
		CreatedAt:                doc.CreatedAt,
		UpdatedAt:                doc.UpdatedAt,
	}
}

func toPageResponse(p Page, query string) pageResponse {
	items := make([]ListItem, 0, len(p.Documents))
	for _, d := range p.Documents {
		items = append(items, toListItem(d))
	}
	return pageResponse{
		Documents: items,
		Pagination: pagination{
			Total:      p.Total,
			Page:       p.Page,
			Limit:      p.Limit,
			TotalPages: p.TotalPages,
		},
		Query: query,
	}
}

func toHistory(docs []Document) []HistoryItem {
	out := make([]HistoryItem, 0, len(docs))
	for _, d := range docs {
		out = append(out, HistoryItem{
			ID:               d.ID,
			OriginalName:     d.OriginalName,
			DocumentType:     d.DocumentType,
			ExecutiveSummary: d.ExecutiveSummary,
			ProcessingStatus: d.Status,
			CreatedAt:        d.CreatedAt,
		})
	}
	return out
}

func toClassifyResponse(r ReclassifyResult) classifyResponse {
	items := make([]classifyItem, 0, len(r.Results))
	for _, res := range r.Results {
		items = append(items, classifyItem{
			ID:                       res.ID,
			DocumentType:             string(res.DocumentType),
			ClassificationConfidence: res.Confidence,
			ClassificationReasoning:  res.Reasoning,
			Degraded:                 res.Degraded,
		})
	}
	missing := r.Missing
	if missing == nil {
		missing = []string{}
	}
	return classifyResponse{Results: items, Missing: missing}
}

package documents

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"docsense-backend/internal/extract"
	"docsense-backend/internal/shared/server/middleware"
	"docsense-backend/internal/shared/server/respond"
)

const defaultMaxUploadSize = 10 << 20 // 10MB

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc           *Service
	MaxUploadSize int64
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, maxUploadSize int64) *Handler {
	if maxUploadSize <= 0 {
		maxUploadSize = defaultMaxUploadSize
	}
	return &Handler{Svc: svc, MaxUploadSize: maxUploadSize}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/upload", h.upload)
	rg.POST("/documents/classify", h.classify)
	rg.GET("/documents", h.list)
	rg.GET("/documents/search", h.search)
	rg.GET("/documents/history", h.history)
	rg.GET("/documents/:id", h.get)
	rg.DELETE("/documents/:id", h.delete)
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadSize)

	fileHeader, err := formFile(c, "document", "file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "File exceeds the upload size limit", "")
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "No file uploaded", "")
		return
	}

	data, err := readFile(fileHeader)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Unable to read file", err.Error())
		return
	}

	doc, err := h.Svc.Ingest(c.Request.Context(), UploadInput{
		UserID:    userID,
		FileName:  fileHeader.Filename,
		MediaType: fileHeader.Header.Get("Content-Type"),
		Data:      data,
	})
	if doc.ID != "" {
		c.Set("documentStatus", string(doc.Status))
	}
	if err != nil {
		h.ingestError(c, err)
		return
	}

	message := "Document processed successfully"
	if doc.Status == StatusFailed {
		message = doc.ProcessingError
	}
	respond.Success(c, http.StatusCreated, message, toResponse(doc))
}

func (h *Handler) ingestError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, extract.ErrUnsupportedFormat):
		respond.Error(c, http.StatusBadRequest, "unsupported_format", "Unsupported file type", err.Error())
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", "No file uploaded", err.Error())
	case errors.Is(err, ErrBusy):
		respond.Error(c, http.StatusTooManyRequests, "busy", "Too many documents are being processed, try again shortly", "")
	case errors.Is(err, ErrStorageUpload):
		respond.Error(c, http.StatusBadGateway, "storage_error", "Failed to upload file to storage", err.Error())
	default:
		respond.Error(c, http.StatusInternalServerError, "processing_failed", "Failed to process document", err.Error())
	}
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	page, limit := pageParams(c)

	p, err := h.Svc.List(c.Request.Context(), userID, page, limit)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to fetch documents", err.Error())
		return
	}
	respond.OK(c, toPageResponse(p, ""))
}

func (h *Handler) search(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	query := strings.TrimSpace(c.Query("q"))
	page, limit := pageParams(c)

	p, err := h.Svc.Search(c.Request.Context(), userID, query, page, limit)
	if err != nil {
		if errors.Is(err, ErrSearchQueryEmpty) {
			respond.Error(c, http.StatusBadRequest, "validation_error", "Search query is required", "")
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to search documents", err.Error())
		return
	}
	respond.OK(c, toPageResponse(p, query))
}

func (h *Handler) history(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	limit := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}

	docs, err := h.Svc.History(c.Request.Context(), userID, limit)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to fetch history", err.Error())
		return
	}
	respond.OK(c, toHistory(docs))
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	doc, err := h.Svc.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "Document not found", "")
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to fetch document", err.Error())
		return
	}
	respond.OK(c, toDetail(doc))
}

func (h *Handler) delete(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	if err := h.Svc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "Document not found", "")
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to delete document", err.Error())
		return
	}
	respond.Success(c, http.StatusOK, "Document deleted successfully", gin.H{"id": c.Param("id")})
}

func (h *Handler) classify(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.IDs) == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "ids must be a non-empty array", "")
		return
	}

	res, err := h.Svc.Reclassify(c.Request.Context(), userID, req.IDs)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			respond.Error(c, http.StatusBadRequest, "validation_error", "ids must be a non-empty array", err.Error())
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to classify documents", err.Error())
		return
	}
	respond.OK(c, toClassifyResponse(res))
}

func formFile(c *gin.Context, fields ...string) (*multipart.FileHeader, error) {
	var lastErr error
	for _, f := range fields {
		fh, err := c.FormFile(f)
		if err == nil {
			return fh, nil
		}
		lastErr = err
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			break
		}
	}
	return nil, lastErr
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return page, limit
}

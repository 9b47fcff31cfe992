package textinsights

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docsense-backend/internal/shared/server/respond"
	"docsense-backend/internal/summarize"
)

// Generator produces derived texts for a raw document.
type Generator interface {
	Generate(ctx context.Context, kind summarize.Kind, text string) (string, error)
	Summarize(ctx context.Context, text string) (summarize.Set, error)
}

// Handler serves stateless text tools that never touch storage.
type Handler struct {
	Gen Generator
}

// NewHandler constructs a Handler.
func NewHandler(gen Generator) *Handler {
	return &Handler{Gen: gen}
}

type textRequest struct {
	Document string `json:"document"`
}

// RegisterRoutes attaches the /text routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/text")
	g.POST("/summarize", h.single(summarize.KindSummary, "summary", "Document summarized successfully", true))
	g.POST("/executive-summary", h.single(summarize.KindExecutiveSummary, "executiveSummary", "Executive summary generated successfully", false))
	g.POST("/key-points", h.single(summarize.KindKeyPoints, "keyPoints", "Key points extracted successfully", false))
	g.POST("/analyze", h.single(summarize.KindAnalysis, "analysis", "Document analysis completed successfully", false))
	g.POST("/process-full", h.processFull)
	g.POST("/stats", h.stats)
}

func (h *Handler) single(kind summarize.Kind, field, message string, withStats bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		text, ok := bindDocument(c)
		if !ok {
			return
		}
		out, err := h.Gen.Generate(c.Request.Context(), kind, text)
		if err != nil {
			respond.Error(c, http.StatusInternalServerError, "generation_failed", "Failed to process document", err.Error())
			return
		}
		data := gin.H{field: out}
		if withStats {
			data["metadata"] = Analyze(text)
		}
		respond.Success(c, http.StatusOK, message, data)
	}
}

func (h *Handler) processFull(c *gin.Context) {
	text, ok := bindDocument(c)
	if !ok {
		return
	}
	set, err := h.Gen.Summarize(c.Request.Context(), text)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "generation_failed", "Failed to process document", err.Error())
		return
	}
	respond.Success(c, http.StatusOK, "Full document processing completed successfully", gin.H{
		"summary":          set.Summary,
		"keyPoints":        set.KeyPoints,
		"executiveSummary": set.ExecutiveSummary,
		"analysis":         set.Analysis,
		"metadata":         Analyze(text),
	})
}

func (h *Handler) stats(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Document) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Document text is required", "")
		return
	}
	respond.OK(c, Analyze(Clean(req.Document)))
}

// bindDocument reads, validates and cleans the request text. It writes the
// error response itself.
func bindDocument(c *gin.Context) (string, bool) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Document) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Document text is required", "")
		return "", false
	}
	if err := Validate(req.Document); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Document must contain at least 50 characters", "")
		return "", false
	}
	return Clean(req.Document), true
}

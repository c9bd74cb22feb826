package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lexledger/lexledger/internal/ingest"
	"go.uber.org/zap"
)

// IngestHandler accepts legal act XML documents and runs them through the
// ingestion pipeline.
type IngestHandler struct {
	pipeline *ingest.Pipeline
	logger   *zap.Logger
}

// NewIngestHandler creates a new IngestHandler.
func NewIngestHandler(pipeline *ingest.Pipeline, logger *zap.Logger) *IngestHandler {
	return &IngestHandler{pipeline: pipeline, logger: logger}
}

// Register mounts the ingest route; it is always admin-guarded.
func (h *IngestHandler) Register(rg *gin.RouterGroup, requireAdmin gin.HandlerFunc) {
	rg.POST("/ingest", requireAdmin, h.Ingest)
}

// Ingest handles POST /ingest — the request body is one LegalAct XML
// document. Rejected amendments are reported per-entry; a persistence
// failure aborts the run with 503 since the remaining appends could not
// have chained safely.
func (h *IngestHandler) Ingest(c *gin.Context) {
	report, err := h.pipeline.IngestReader(c.Request.Context(), c.Request.Body)
	if err != nil {
		if report != nil {
			// Partial run aborted mid-document by a persistence failure.
			h.logger.Error("ingestion aborted", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "report": report})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report)
}

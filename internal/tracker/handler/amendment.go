// Package handler exposes the amendment ledger over HTTP. Handlers are thin
// request/response mappings; all correctness lives in the ledger engine.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lexledger/lexledger/internal/ledger"
	"github.com/lexledger/lexledger/internal/tracker/model"
	"github.com/lexledger/lexledger/internal/tracker/service"
	"go.uber.org/zap"
)

// AmendmentHandler serves the amendment history and accepts new amendments.
type AmendmentHandler struct {
	svc    *service.AmendmentService
	logger *zap.Logger
}

// NewAmendmentHandler creates a new AmendmentHandler.
func NewAmendmentHandler(svc *service.AmendmentService, logger *zap.Logger) *AmendmentHandler {
	return &AmendmentHandler{svc: svc, logger: logger}
}

// Register mounts the amendment routes. requireAdmin guards the mutating route.
func (h *AmendmentHandler) Register(rg *gin.RouterGroup, requireAdmin gin.HandlerFunc) {
	a := rg.Group("/amendments")
	{
		a.GET("", h.List)
		a.GET("/:seq", h.Get)
		a.POST("", requireAdmin, h.Submit)
	}
}

// List handles GET /amendments — paged, decoded history.
func (h *AmendmentHandler) List(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	entries, total, err := h.svc.History(c.Request.Context(), offset, limit)
	if err != nil {
		h.logger.Error("list amendments", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read ledger"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"amendments": entries,
		"total":      total,
		"offset":     offset,
		"limit":      limit,
	})
}

// Get handles GET /amendments/:seq.
func (h *AmendmentHandler) Get(c *gin.Context) {
	seq, err := strconv.ParseUint(c.Param("seq"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "seq must be a non-negative integer"})
		return
	}

	entry, err := h.svc.Get(c.Request.Context(), seq)
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "amendment not found"})
	case err != nil:
		h.logger.Error("get amendment", zap.Uint64("seq", seq), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read ledger"})
	default:
		c.JSON(http.StatusOK, entry)
	}
}

type submitRequest struct {
	ActID      string     `json:"act_id" binding:"required"`
	ActTitle   string     `json:"act_title"`
	Content    string     `json:"content" binding:"required"`
	ChangeType string     `json:"change_type" binding:"required"`
	Author     string     `json:"author" binding:"required"`
	Summary    string     `json:"summary"`
	Timestamp  *time.Time `json:"timestamp"`
}

// Submit handles POST /amendments — appends one amendment to the chain.
func (h *AmendmentHandler) Submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sreq := service.SubmitRequest{
		Amendment: model.Amendment{
			ActID:      req.ActID,
			ActTitle:   req.ActTitle,
			Content:    req.Content,
			ChangeType: model.ChangeType(req.ChangeType),
			Author:     req.Author,
			Summary:    req.Summary,
		},
	}
	if req.Timestamp != nil {
		sreq.Timestamp = *req.Timestamp
	}

	rec, err := h.svc.Submit(c.Request.Context(), sreq)
	if err != nil {
		h.respondSubmitError(c, err)
		return
	}

	RecordAmendmentAppend(req.ChangeType)
	c.JSON(http.StatusCreated, gin.H{
		"seq":       rec.Seq,
		"hash":      rec.Hash,
		"prev_hash": rec.PrevHash,
		"timestamp": rec.Timestamp,
	})
}

func (h *AmendmentHandler) respondSubmitError(c *gin.Context, err error) {
	var ordErr *ledger.OrderingError
	var appErr *ledger.AppendError
	switch {
	case errors.As(err, &ordErr):
		// The caller can retry with a corrected timestamp, or omit it.
		c.JSON(http.StatusConflict, gin.H{"error": ordErr.Error()})
	case errors.As(err, &appErr):
		h.logger.Error("ledger append failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "amendment was not committed; retry is safe"})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

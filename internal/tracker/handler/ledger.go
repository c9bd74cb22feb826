package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lexledger/lexledger/internal/tracker/service"
	"go.uber.org/zap"
)

// LedgerHandler exposes chain-level endpoints: head overview, verification,
// statistics, and the administrative reset.
type LedgerHandler struct {
	svc    *service.AmendmentService
	logger *zap.Logger
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(svc *service.AmendmentService, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{svc: svc, logger: logger}
}

// Register mounts the ledger routes. requireAdmin guards the reset route.
func (h *LedgerHandler) Register(rg *gin.RouterGroup, requireAdmin gin.HandlerFunc) {
	l := rg.Group("/ledger")
	{
		l.GET("", h.Overview)
		l.GET("/verify", h.Verify)
		l.GET("/statistics", h.Statistics)
		l.POST("/reset", requireAdmin, h.Reset)
	}
}

// Overview handles GET /ledger — chain length and current head.
func (h *LedgerHandler) Overview(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("ledger stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read ledger"})
		return
	}
	SetChainLength(stats.Count)

	resp := gin.H{"count": stats.Count}
	if head, ok := h.svc.Head(); ok {
		resp["head_seq"] = head.Seq
		resp["head_hash"] = head.Hash
	}
	c.JSON(http.StatusOK, resp)
}

// Verify handles GET /ledger/verify — walks the chain and reports integrity.
// ?incremental=true re-validates only records appended since the last fully
// successful verification.
func (h *LedgerHandler) Verify(c *gin.Context) {
	incremental := c.Query("incremental") == "true"

	res, err := h.svc.Verify(c.Request.Context(), incremental)
	if err != nil {
		h.logger.Error("ledger verify", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read ledger"})
		return
	}
	RecordVerifyRun(res.Valid)

	resp := gin.H{"valid": res.Valid, "checked": res.Checked}
	if !res.Valid {
		h.logger.Warn("ledger integrity check FAILED",
			zap.Int64("first_bad_seq", res.FirstBadSeq),
			zap.String("defect", string(res.Defect)),
		)
		resp["first_bad_seq"] = res.FirstBadSeq
		resp["defect"] = res.Defect
	}
	c.JSON(http.StatusOK, resp)
}

// Statistics handles GET /ledger/statistics.
func (h *LedgerHandler) Statistics(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("ledger stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read ledger"})
		return
	}

	resp := gin.H{
		"count":             stats.Count,
		"last_verified_seq": stats.LastVerifiedSeq,
	}
	if stats.Count > 0 {
		resp["first_timestamp"] = stats.FirstTimestamp
		resp["last_timestamp"] = stats.LastTimestamp
		resp["span"] = stats.Span.String()
	}
	c.JSON(http.StatusOK, resp)
}

// Reset handles POST /ledger/reset — discards the entire chain. The engine
// logs the wipe with a unique event id.
func (h *LedgerHandler) Reset(c *gin.Context) {
	if err := h.svc.Reset(c.Request.Context()); err != nil {
		h.logger.Error("ledger reset", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reset ledger"})
		return
	}
	SetChainLength(0)
	c.JSON(http.StatusOK, gin.H{"reset": true})
}

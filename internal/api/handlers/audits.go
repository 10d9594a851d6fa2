package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/vinyl-exchange/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AuditHandler struct {
	audits   *services.AuditService
	exporter *services.AuditExporter
}

func NewAuditHandler(audits *services.AuditService, exporter *services.AuditExporter) *AuditHandler {
	return &AuditHandler{
		audits:   audits,
		exporter: exporter,
	}
}

func (h *AuditHandler) GetAudit(c *gin.Context) {
	audit, err := h.audits.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, audit)
}

// VerifyAudit replays a stored breakdown and reports whether it reproduces the stored price
func (h *AuditHandler) VerifyAudit(c *gin.Context) {
	result, err := h.audits.Verify(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ExportAudits downloads matching audit records as an xlsx workbook
func (h *AuditHandler) ExportAudits(c *gin.Context) {
	filter := services.AuditFilter{
		ReleaseID: c.Query("release_id"),
		PolicyID:  c.Query("policy_id"),
	}
	if filter.ReleaseID == "" && filter.PolicyID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "release_id or policy_id is required"})
		return
	}

	var buf bytes.Buffer
	if _, err := h.exporter.Export(c.Request.Context(), filter, &buf); err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("pricing-audits-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/vinyl-exchange/internal/models"
	"github.com/codyseavey/vinyl-exchange/internal/services"
)

type ReleaseHandler struct {
	releases  *services.ReleaseService
	market    *services.MarketService
	audits    *services.AuditService
	refresher *services.SnapshotRefresher
}

func NewReleaseHandler(releases *services.ReleaseService, market *services.MarketService, audits *services.AuditService, refresher *services.SnapshotRefresher) *ReleaseHandler {
	return &ReleaseHandler{
		releases:  releases,
		market:    market,
		audits:    audits,
		refresher: refresher,
	}
}

func (h *ReleaseHandler) CreateRelease(c *gin.Context) {
	var req models.CreateReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	release, err := h.releases.Save(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, release)
}

func (h *ReleaseHandler) GetRelease(c *gin.Context) {
	release, err := h.releases.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, release)
}

func (h *ReleaseHandler) ListSnapshots(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.releases.Get(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	snapshots, err := h.market.ListSnapshots(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshots)
}

// UpsertSnapshot stores externally ingested stats for one source
func (h *ReleaseHandler) UpsertSnapshot(c *gin.Context) {
	var req models.UpsertSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stats := models.MarketStats{
		StatLow:    req.StatLow,
		StatMedian: req.StatMedian,
		StatHigh:   req.StatHigh,
	}
	var fetchedAt time.Time
	if req.FetchedAt != nil {
		fetchedAt = *req.FetchedAt
	}

	source := models.MarketSource(c.Param("source"))
	snapshot, err := h.market.UpsertSnapshot(c.Request.Context(), c.Param("id"), source, stats, fetchedAt)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// RefreshSnapshots fetches fresh stats from the external sources.
// ?source= limits the refresh to one source; ?queue=true defers it to the background refresher.
func (h *ReleaseHandler) RefreshSnapshots(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := h.releases.Get(ctx, id); err != nil {
		respondError(c, err)
		return
	}

	if c.Query("queue") == "true" && h.refresher != nil {
		position := h.refresher.QueueRefresh(id)
		c.JSON(http.StatusAccepted, gin.H{"queued": true, "queue_position": position})
		return
	}

	sources := h.market.Sources()
	if s := c.Query("source"); s != "" {
		src := models.MarketSource(s)
		if !src.IsSnapshotSource() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "source must be one of: discogs, ebay", "field": "source"})
			return
		}
		sources = []models.MarketSource{src}
	}
	if len(sources) == 0 {
		respondError(c, services.ErrNoFetcher)
		return
	}

	snapshots := make([]models.MarketSnapshot, 0, len(sources))
	failures := make(map[string]string)
	for _, src := range sources {
		snap, err := h.market.RefreshSnapshot(ctx, id, src)
		if err != nil {
			failures[string(src)] = err.Error()
			continue
		}
		snapshots = append(snapshots, *snap)
	}

	status := http.StatusOK
	if len(snapshots) == 0 {
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{
		"snapshots": snapshots,
		"errors":    failures,
	})
}

// GetReleaseAudits pages through the audit records of a release
func (h *ReleaseHandler) GetReleaseAudits(c *gin.Context) {
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if _, err := h.releases.Get(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	page, err := h.audits.ListForRelease(c.Request.Context(), id, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetRefreshStatus reports the background snapshot refresher
func (h *ReleaseHandler) GetRefreshStatus(c *gin.Context) {
	if h.refresher == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}
	c.JSON(http.StatusOK, h.refresher.GetStatus())
}

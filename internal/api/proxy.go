package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nitesh/newsfront/internal/service"
	"github.com/nitesh/newsfront/internal/view"
)

// ListEvents: GET /api/events?search=&category=&minSources=&days=&allPeriods=&admin=&refresh=1
func (h *Handler) ListEvents(c *gin.Context) {
	filter := h.filterFromQuery(c)
	snap := h.svc.Feed(c.Request.Context(), filter, truthy(c.Query("refresh")))
	if !snap.HasData || snap.Data == nil {
		h.abortWithError(c, snap.Err, view.MsgFeedUnavailable)
		return
	}

	meta := gin.H{}
	for k, v := range snap.Data.Meta {
		meta[k] = v
	}
	meta["count"] = len(snap.Data.Events)
	meta["filter"] = filter
	meta["stale"] = snap.Validating

	c.JSON(http.StatusOK, gin.H{
		"meta": meta,
		"data": snap.Data.Events,
	})
}

// GetEvent: GET /api/events/:id
func (h *Handler) GetEvent(c *gin.Context) {
	id := c.Param("id")
	snap := h.svc.Event(c.Request.Context(), id, truthy(c.Query("refresh")))
	if !snap.HasData || snap.Data == nil {
		h.abortWithError(c, snap.Err, view.MsgEventNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{"id": id, "stale": snap.Validating, "updated_at": snap.UpdatedAt},
		"data": snap.Data,
	})
}

// GetInsights: GET /api/insights/:id
// data is null while the backend has produced no insights for the event.
func (h *Handler) GetInsights(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	detail := h.svc.Event(ctx, id, false)
	if !detail.HasData || detail.Data == nil {
		h.abortWithError(c, detail.Err, view.MsgEventNotFound)
		return
	}

	snap := h.svc.Insights(ctx, id, detail.Data, truthy(c.Query("refresh")))
	if !snap.HasData {
		h.abortWithError(c, snap.Err, view.MsgInsightsNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{
			"id":          id,
			"has_content": view.HasInsightsContent(snap.Data),
			"stale":       snap.Validating,
		},
		"data": snap.Data,
	})
}

// GetArticleBias: GET /api/articles/:id/bias
func (h *Handler) GetArticleBias(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid article id"})
		return
	}
	snap := h.svc.ArticleBias(c.Request.Context(), id, truthy(c.Query("refresh")))
	if !snap.HasData || snap.Data == nil {
		h.abortWithError(c, snap.Err, view.MsgBiasNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{"article_id": id},
		"data": snap.Data,
	})
}

// Regenerate: POST /api/insights/:id/regenerate?slug=
func (h *Handler) Regenerate(c *gin.Context) {
	id, err := service.ParseEventID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.Regenerate(c.Request.Context(), id, c.Query("slug")); err != nil {
		h.abortWithError(c, err, view.MsgEventNotFound)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"meta": gin.H{"event_id": id},
		"data": gin.H{"status": "requested"},
	})
}

// Export: GET /api/exports/events/:id redirects to the backend CSV export.
func (h *Handler) Export(c *gin.Context) {
	id, err := service.ParseEventID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Redirect(http.StatusFound, h.svc.ExportURL(id))
}

// ResetCache: POST /api/admin/cache/reset
func (h *Handler) ResetCache(c *gin.Context) {
	if err := h.svc.Reset(c.Request.Context()); err != nil {
		h.logger.Error().Err(err).Msg("cache reset failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cache reset failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"status": "cleared"}})
}

// Regenerations: GET /api/admin/regenerations?event_id=&limit=
func (h *Handler) Regenerations(c *gin.Context) {
	var eventID int64
	if raw := c.Query("event_id"); raw != "" {
		id, err := service.ParseEventID(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		eventID = id
	}
	limit := parseLimit(c.DefaultQuery("limit", "50"))

	res, err := h.svc.Regenerations(c.Request.Context(), eventID, limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("listing regenerations failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{"count": len(res), "limit": limit},
		"data": res,
	})
}

// abortWithError writes the user-facing error for a failed or idle query.
// A query that ended without data and without an error is a 404 carrying
// missing.
func (h *Handler) abortWithError(c *gin.Context, err error, missing string) {
	if err == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": missing})
		return
	}
	if c.Request.Context().Err() != nil {
		// client went away
		c.Status(499)
		return
	}
	c.JSON(errorStatus(err), gin.H{"error": view.ErrorMessage(err)})
}

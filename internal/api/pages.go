package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nitesh/newsfront/internal/cache"
	"github.com/nitesh/newsfront/internal/service"
	"github.com/nitesh/newsfront/internal/view"
	"github.com/nitesh/newsfront/pkg/models"
)

const (
	pageFeed  = "feed"
	pageEvent = "event"
	pageError = "error"
)

type feedPageData struct {
	Filter     models.FeedFilter
	Categories []view.Category
	Cards      []view.EventCard
	Empty      string
	Error      string
	RetryURL   string
	Stale      bool
	IsAdmin    bool
}

type eventPageData struct {
	Event         view.EventView
	Slug          string
	Fallback      *view.Fallback
	InsightsError string
	RetryURL      string
	Stale         bool
}

type errorPageData struct {
	Code     int
	Title    string
	Message  string
	RetryURL string
}

// FeedPage: GET /?search=&category=&minSources=&days=&allPeriods=&admin=&refresh=1
func (h *Handler) FeedPage(c *gin.Context) {
	filter := h.filterFromQuery(c)
	snap := h.svc.Feed(c.Request.Context(), filter, truthy(c.Query("refresh")))

	data := feedPageData{
		Filter:     filter,
		Categories: view.Categories(),
		Stale:      snap.Validating,
		IsAdmin:    h.isAdmin(c),
	}
	status := http.StatusOK

	if snap.HasData && snap.Data != nil {
		data.Cards = view.BuildEventCards(snap.Data.Events, h.loc)
		if len(data.Cards) == 0 {
			data.Empty = view.FeedEmptyMessage(filter)
		}
	}
	if snap.Err != nil {
		data.Error = view.ErrorMessage(snap.Err)
		data.RetryURL = refreshURL(c.Request.URL)
		if !snap.HasData {
			status = errorStatus(snap.Err)
		}
	}

	h.render(c, status, pageFeed, data)
}

// EventPage: GET /event/:slug
func (h *Handler) EventPage(c *gin.Context) {
	slug := c.Param("slug")
	page := h.svc.EventPage(c.Request.Context(), slug, truthy(c.Query("refresh")))

	if !page.Found() {
		err := page.Detail.Err
		if page.Detail.Status == cache.StatusIdle || isNotFound(err) || (err == nil && page.Detail.HasData) {
			h.renderError(c, http.StatusNotFound, "Event not found", view.MsgEventNotFound, "")
			return
		}
		h.renderError(c, errorStatus(err), "Something went wrong", view.ErrorMessage(err), refreshURL(c.Request.URL))
		return
	}

	detail := page.Detail.Data
	data := eventPageData{
		Event: view.BuildEventView(detail, page.Insights.Data, page.Bias, page.ExportURL, h.loc),
		Slug:  strings.TrimSpace(detail.Slug),
		Stale: page.Detail.Validating,
	}
	if page.Detail.Err != nil || (page.Insights.Err != nil && !page.Insights.HasData) {
		data.RetryURL = refreshURL(c.Request.URL)
	}
	if page.Insights.Err != nil && !page.Insights.HasData {
		data.InsightsError = view.ErrorMessage(page.Insights.Err)
	}
	if page.NeedsFallback() {
		fb := view.BuildFallback(detail.ID, page.Regeneration.Attempted, page.Regeneration.Err)
		data.Fallback = &fb
	}

	h.render(c, http.StatusOK, pageEvent, data)
}

// RegeneratePage: POST /event/:id/regenerate (form field "slug" picks the redirect target)
func (h *Handler) RegeneratePage(c *gin.Context) {
	id, err := service.ParseEventID(c.Param("slug"))
	if err != nil {
		h.renderError(c, http.StatusBadRequest, "Bad request", "Invalid event id.", "")
		return
	}
	slug := strings.TrimSpace(c.PostForm("slug"))

	if err := h.svc.Regenerate(c.Request.Context(), id, slug); err != nil {
		h.logger.Warn().Err(err).Int64("event_id", id).Msg("manual regeneration failed")
	}

	target := models.Event{ID: id, Slug: slug}
	c.Redirect(http.StatusSeeOther, view.EventPath(target))
}

// Focus: POST /focus
func (h *Handler) Focus(c *gin.Context) {
	n := h.svc.Focus()
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"marked": n}})
}

func (h *Handler) limitRegeneratePage(c *gin.Context) {
	if !h.limiter.Allow(c.ClientIP()) {
		RateLimited.Inc()
		h.renderError(c, http.StatusTooManyRequests, "Slow down", "Too many regeneration requests. Please wait a moment and try again.", "")
		c.Abort()
		return
	}
	c.Next()
}

func (h *Handler) render(c *gin.Context, status int, page string, data any) {
	PageRenders.WithLabelValues(page, statusClass(status)).Inc()
	c.HTML(status, page+".html", data)
}

func (h *Handler) renderError(c *gin.Context, status int, title, message, retryURL string) {
	h.render(c, status, pageError, errorPageData{
		Code:     status,
		Title:    title,
		Message:  message,
		RetryURL: retryURL,
	})
}

// refreshURL is u with refresh=1 set.
func refreshURL(u *url.URL) string {
	q := u.Query()
	q.Set("refresh", "1")
	return u.Path + "?" + q.Encode()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	default:
		return "2xx"
	}
}

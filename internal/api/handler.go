package api

import (
	"crypto/subtle"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/nitesh/newsfront/internal/backend"
	"github.com/nitesh/newsfront/internal/service"
	"github.com/nitesh/newsfront/pkg/models"
)

const adminTokenHeader = "X-Admin-Token"

// Options configures the HTTP layer.
type Options struct {
	Location      *time.Location
	AdminToken    string
	RegenerateRPM int
}

type Handler struct {
	svc        *service.Service
	loc        *time.Location
	adminToken string
	limiter    *ipLimiter
	templates  *template.Template
	logger     *zerolog.Logger
}

func NewHandler(svc *service.Service, opts Options, logger *zerolog.Logger) (*Handler, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	return &Handler{
		svc:        svc,
		loc:        loc,
		adminToken: opts.AdminToken,
		limiter:    newIPLimiter(opts.RegenerateRPM),
		templates:  tmpl,
		logger:     logger,
	}, nil
}

func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.SetHTMLTemplate(h.templates)

	r.GET("/", h.FeedPage)
	r.GET("/event/:slug", h.EventPage)
	r.POST("/event/:slug/regenerate", h.limitRegeneratePage, h.RegeneratePage)
	r.POST("/focus", h.Focus)

	api := r.Group("/api")
	{
		api.GET("/events", h.ListEvents)
		api.GET("/events/:id", h.GetEvent)
		api.GET("/insights/:id", h.GetInsights)
		api.POST("/insights/:id/regenerate", h.limitRegenerate, h.Regenerate)
		api.GET("/articles/:id/bias", h.GetArticleBias)
		api.GET("/exports/events/:id", h.Export)

		admin := api.Group("/admin", h.requireAdmin)
		admin.POST("/cache/reset", h.ResetCache)
		admin.GET("/regenerations", h.Regenerations)
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// filterFromQuery reads a feed filter from query parameters. The admin flag
// is only honoured for admin callers.
func (h *Handler) filterFromQuery(c *gin.Context) models.FeedFilter {
	f := models.FeedFilter{
		Search:     c.Query("search"),
		Category:   c.Query("category"),
		MinSources: atoiOrZero(c.Query("minSources")),
		Days:       atoiOrZero(c.Query("days")),
		AllPeriods: truthy(c.Query("allPeriods")),
	}
	if truthy(c.Query("admin")) && h.isAdmin(c) {
		f.Admin = true
	}
	return h.svc.Normalize(f)
}

func (h *Handler) isAdmin(c *gin.Context) bool {
	if h.adminToken == "" {
		return false
	}
	got := c.GetHeader(adminTokenHeader)
	if got == "" {
		if cookie, err := c.Cookie("admin_token"); err == nil {
			got = cookie
		}
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.adminToken)) == 1
}

func (h *Handler) requireAdmin(c *gin.Context) {
	if !h.isAdmin(c) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin token required"})
		return
	}
	c.Next()
}

func (h *Handler) limitRegenerate(c *gin.Context) {
	if !h.limiter.Allow(c.ClientIP()) {
		RateLimited.Inc()
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many regeneration requests, try again shortly"})
		return
	}
	c.Next()
}

// errorStatus maps a backend error onto the status returned to our callers.
func errorStatus(err error) int {
	if errors.Is(err, backend.ErrEventNotFound) {
		return http.StatusNotFound
	}
	switch status := backend.StatusOf(err); {
	case status == 0:
		return http.StatusBadGateway
	case status >= 400 && status < 500:
		return status
	default:
		return http.StatusBadGateway
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, backend.ErrEventNotFound) || backend.StatusOf(err) == http.StatusNotFound
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// parseLimit ensures a sane integer limit, with bounds
func parseLimit(s string) int {
	l, err := strconv.Atoi(s)
	if err != nil || l <= 0 {
		return 50
	}
	if l > 200 {
		return 200
	}
	return l
}

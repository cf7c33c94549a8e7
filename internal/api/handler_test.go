package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nitesh/newsfront/internal/backend"
	"github.com/nitesh/newsfront/internal/cache"
	"github.com/nitesh/newsfront/internal/service"
	"github.com/nitesh/newsfront/internal/store"
	"github.com/nitesh/newsfront/pkg/models"
)

type stubBackend struct {
	mu sync.Mutex

	events   []models.Event
	listErr  error
	details  map[string]*models.EventDetail
	insights map[string]*models.Insights
	regenErr error
	noBias   map[int64]bool

	regenCalls atomic.Int32
}

func newStubBackend() *stubBackend {
	return &stubBackend{
		details:  map[string]*models.EventDetail{},
		insights: map[string]*models.Insights{},
		noBias:   map[int64]bool{},
	}
}

func (s *stubBackend) ListEvents(context.Context, models.FeedFilter) (*models.EventList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return &models.EventList{Events: s.events, Meta: map[string]any{"total": len(s.events)}}, nil
}

func (s *stubBackend) GetEvent(_ context.Context, idOrSlug string) (*models.EventDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.details[idOrSlug]; ok {
		return d, nil
	}
	return nil, &backend.APIError{Status: http.StatusNotFound}
}

func (s *stubBackend) GetInsights(_ context.Context, idOrSlug string) (*models.Insights, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insights[idOrSlug], nil
}

func (s *stubBackend) GetArticleBias(_ context.Context, id int64) (*models.BiasAnalysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.noBias[id] {
		return nil, nil
	}
	return &models.BiasAnalysis{ArticleID: id, OverallRating: 5}, nil
}

func (s *stubBackend) RegenerateInsights(context.Context, int64) error {
	s.regenCalls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regenErr
}

func (s *stubBackend) ExportURL(id int64) string {
	return "http://backend.test/api/v1/exports/events/" + strconv.FormatInt(id, 10)
}

func setupRouter(t *testing.T, b service.Backend, opts Options, svcOpts service.Options) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := service.NewService(b, cache.New(cache.Options{}), store.NewMemoryStore(0), svcOpts, nil)
	h, err := NewHandler(svc, opts, nil)
	require.NoError(t, err)

	r := gin.New()
	RegisterRoutes(r, h)
	return r
}

func do(r http.Handler, method, target string, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestFeedPage_OneCardPerEvent(t *testing.T) {
	b := newStubBackend()
	b.events = []models.Event{
		{ID: 1, Slug: "eu-summit", Title: "EU summit", ArticleCount: 4},
		{ID: 2, Title: "Untitled slugless", ArticleCount: 1},
		{ID: 3, Slug: "a b", Title: "Spaces"},
	}
	r := setupRouter(t, b, Options{}, service.Options{})

	w := do(r, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Equal(t, 3, strings.Count(body, `<article class="card"`))
	assert.Contains(t, body, `href="/event/eu-summit"`)
	assert.Contains(t, body, `href="/event/2"`)
	assert.Contains(t, body, `href="/event/a%20b"`)
	assert.NotContains(t, body, "data-empty")
}

func TestFeedPage_EmptyStateVariants(t *testing.T) {
	r := setupRouter(t, newStubBackend(), Options{}, service.Options{})

	search := do(r, http.MethodGet, "/?search=quantum", "", nil).Body.String()
	category := do(r, http.MethodGet, "/?category=health", "", nil).Body.String()
	none := do(r, http.MethodGet, "/", "", nil).Body.String()

	assert.Contains(t, search, "No events match &#34;quantum&#34;")
	assert.Contains(t, category, "No Health events in this period")
	assert.Contains(t, none, "No events yet.")
}

func TestFeedPage_BackendErrorRendersRetry(t *testing.T) {
	b := newStubBackend()
	b.listErr = &backend.APIError{Status: 500, Payload: &backend.ErrorPayload{Message: "index rebuilding"}}
	r := setupRouter(t, b, Options{}, service.Options{})

	w := do(r, http.MethodGet, "/?search=x", "", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "index rebuilding")
	assert.Contains(t, w.Body.String(), "refresh=1")
}

func TestEventPage_AutoRegenerationFiresOnceWithoutButton(t *testing.T) {
	b := newStubBackend()
	b.details["quiet-event"] = &models.EventDetail{Event: models.Event{ID: 11, Slug: "quiet-event", Title: "Quiet"}}
	r := setupRouter(t, b, Options{}, service.Options{AutoRegenerate: true})

	first := do(r, http.MethodGet, "/event/quiet-event", "", nil)
	second := do(r, http.MethodGet, "/event/quiet-event", "", nil)

	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, int32(1), b.regenCalls.Load())
	for _, w := range []*httptest.ResponseRecorder{first, second} {
		body := w.Body.String()
		assert.Contains(t, body, "data-fallback")
		assert.Contains(t, body, "Insights are being generated")
		assert.NotContains(t, body, "<button")
	}
}

func TestEventPage_FailedRegenerationOffersRetry(t *testing.T) {
	b := newStubBackend()
	b.details["7"] = &models.EventDetail{Event: models.Event{ID: 7, Title: "Seven"}}
	b.regenErr = &backend.APIError{Status: 503}
	r := setupRouter(t, b, Options{}, service.Options{AutoRegenerate: true})

	w := do(r, http.MethodGet, "/event/7", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "API error (503)")
	assert.Contains(t, w.Body.String(), `action="/event/7/regenerate"`)
	assert.Contains(t, w.Body.String(), "<button")
}

func TestEventPage_RendersInsights(t *testing.T) {
	b := newStubBackend()
	b.details["s"] = &models.EventDetail{
		Event:    models.Event{ID: 5, Slug: "s", Title: "With insights"},
		Articles: []models.Article{{ID: 50, Title: "Report", URL: "https://example.com/r", Spectrum: models.ScoreSpectrum(9), IsInternational: true, CountryCode: "gb"}},
	}
	b.insights["s"] = &models.Insights{
		Summary:        "Leaders met.",
		Contradictions: []models.Contradiction{{ClaimA: "up", ClaimB: "down", SourceA: "A", SourceB: "B"}},
	}
	r := setupRouter(t, b, Options{}, service.Options{AutoRegenerate: true})

	w := do(r, http.MethodGet, "/event/s", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Leaders met.")
	assert.Contains(t, body, "Contradictions")
	assert.Contains(t, body, "🇬🇧")
	assert.Contains(t, body, "Bias 5/10")
	assert.Contains(t, body, `href="/api/exports/events/5"`)
	assert.NotContains(t, body, "data-fallback")
	assert.Equal(t, int32(0), b.regenCalls.Load())
}

func TestEventPage_NotFound(t *testing.T) {
	r := setupRouter(t, newStubBackend(), Options{}, service.Options{})

	w := do(r, http.MethodGet, "/event/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "This event could not be found.")
}

func TestRegeneratePage_RedirectsAndRetriggers(t *testing.T) {
	b := newStubBackend()
	b.details["eu"] = &models.EventDetail{Event: models.Event{ID: 9, Slug: "eu"}}
	r := setupRouter(t, b, Options{}, service.Options{})

	w := do(r, http.MethodPost, "/event/9/regenerate", url.Values{"slug": {"eu"}}.Encode(), nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/event/eu", w.Header().Get("Location"))
	assert.Equal(t, int32(1), b.regenCalls.Load())

	page := do(r, http.MethodGet, "/event/eu", "", nil)
	assert.NotContains(t, page.Body.String(), "<button")
}

func TestRegenerate_RateLimited(t *testing.T) {
	r := setupRouter(t, newStubBackend(), Options{RegenerateRPM: 1}, service.Options{})

	codes := make([]int, 0, 3)
	for range 3 {
		codes = append(codes, do(r, http.MethodPost, "/api/insights/4/regenerate", "", nil).Code)
	}
	assert.Equal(t, []int{http.StatusAccepted, http.StatusAccepted, http.StatusTooManyRequests}, codes)
}

func TestListEvents_Envelope(t *testing.T) {
	b := newStubBackend()
	b.events = []models.Event{{ID: 1, Title: "one"}}
	r := setupRouter(t, b, Options{}, service.Options{})

	w := do(r, http.MethodGet, "/api/events?days=3", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Meta map[string]any `json:"meta"`
		Data []models.Event `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 1)
	assert.EqualValues(t, 1, resp.Meta["count"])
	assert.EqualValues(t, 1, resp.Meta["total"])
}

func TestJSONErrors(t *testing.T) {
	b := newStubBackend()
	b.listErr = &backend.APIError{Status: 500}
	r := setupRouter(t, b, Options{}, service.Options{})

	w := do(r, http.MethodGet, "/api/events", "", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `{"error":"API error (500)"}`, w.Body.String())

	w = do(r, http.MethodGet, "/api/events/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/api/insights/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/api/articles/abc/bias", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJSONMissingDataNamesResource(t *testing.T) {
	b := newStubBackend()
	b.noBias[12] = true
	r := setupRouter(t, b, Options{}, service.Options{})

	w := do(r, http.MethodGet, "/api/articles/12/bias", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"No bias analysis is available for this article."}`, w.Body.String())

	w = do(r, http.MethodGet, "/api/events/missing", "", nil)
	assert.NotContains(t, w.Body.String(), "bias analysis")
}

func TestGetInsights_NullWhenMissing(t *testing.T) {
	b := newStubBackend()
	b.details["3"] = &models.EventDetail{Event: models.Event{ID: 3}}
	r := setupRouter(t, b, Options{}, service.Options{})

	w := do(r, http.MethodGet, "/api/insights/3", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Meta map[string]any   `json:"meta"`
		Data *models.Insights `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Nil(t, resp.Data)
	assert.Equal(t, false, resp.Meta["has_content"])
}

func TestExport_Redirects(t *testing.T) {
	r := setupRouter(t, newStubBackend(), Options{}, service.Options{})

	w := do(r, http.MethodGet, "/api/exports/events/12", "", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "http://backend.test/api/v1/exports/events/12", w.Header().Get("Location"))
}

func TestAdminRoutes(t *testing.T) {
	r := setupRouter(t, newStubBackend(), Options{AdminToken: "s3cret"}, service.Options{})

	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPost, "/api/admin/cache/reset", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/api/admin/regenerations", "", map[string]string{adminTokenHeader: "wrong"}).Code)

	auth := map[string]string{adminTokenHeader: "s3cret"}
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/admin/cache/reset", "", auth).Code)

	do(r, http.MethodPost, "/api/insights/8/regenerate", "", nil)
	w := do(r, http.MethodGet, "/api/admin/regenerations?event_id=8", "", auth)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []store.Regeneration `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, store.TriggerManual, resp.Data[0].Trigger)
}

func TestAdminFlagRequiresToken(t *testing.T) {
	r := setupRouter(t, newStubBackend(), Options{AdminToken: "s3cret"}, service.Options{})

	var resp struct {
		Meta struct {
			Filter models.FeedFilter `json:"filter"`
		} `json:"meta"`
	}

	w := do(r, http.MethodGet, "/api/events?admin=1", "", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Meta.Filter.Admin)

	w = do(r, http.MethodGet, "/api/events?admin=1", "", map[string]string{adminTokenHeader: "s3cret"})
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Meta.Filter.Admin)
}

func TestFocusAndHealth(t *testing.T) {
	r := setupRouter(t, newStubBackend(), Options{}, service.Options{})
	do(r, http.MethodGet, "/api/events", "", nil)

	w := do(r, http.MethodPost, "/focus", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"marked":1}}`, w.Body.String())

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/healthz", "", nil).Code)
}

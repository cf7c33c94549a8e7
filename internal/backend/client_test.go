package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nitesh/newsfront/pkg/models"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return NewClient(Config{BaseURL: srv.URL + "/", Timeout: 5 * time.Second}, nil, nil)
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://backend:8000/"}, nil, nil)

	assert.Equal(t, "http://backend:8000", c.baseURL)
	assert.Equal(t, "http://backend:8000", c.publicURL)
	assert.Equal(t, defaultTimeout, c.hc.Timeout)
}

func TestClient_ListEvents(t *testing.T) {
	var gotPath, gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"data": [
				{"id": 1, "slug": "summit", "title": "Summit", "article_count": 4,
				 "spectrum_distribution": {"left": 1, "right": 3}},
				{"id": 2, "title": "Storm", "article_count": 2,
				 "spectrum_distribution": [{"spectrum": "center", "count": 2}]}
			],
			"meta": {"total": 2}
		}`))
	})

	list, err := c.ListEvents(context.Background(), models.FeedFilter{
		Search:     "summit",
		Category:   "politics",
		MinSources: 3,
		Days:       7,
		AllPeriods: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/events", gotPath)
	assert.Equal(t, "allPeriods=true&category=politics&days=7&minSources=3&search=summit", gotQuery)
	require.Len(t, list.Events, 2)
	assert.Equal(t, "summit", list.Events[0].Slug)
	assert.Equal(t, models.SpectrumDistribution{{Key: "left", Count: 1}, {Key: "right", Count: 3}}, list.Events[0].SpectrumDistribution)
	assert.Equal(t, models.SpectrumDistribution{{Key: "center", Count: 2}}, list.Events[1].SpectrumDistribution)
	assert.EqualValues(t, 2, list.Meta["total"])
}

func TestClient_ListEvents_EmptyDataIsNotNil(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": null, "meta": {}}`))
	})

	list, err := c.ListEvents(context.Background(), models.FeedFilter{})
	require.NoError(t, err)
	assert.NotNil(t, list.Events)
	assert.Empty(t, list.Events)
}

func TestClient_GetEvent(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{"data": {"id": 9, "slug": "a b", "title": "T",
			"articles": [{"id": 3, "title": "A", "url": "https://x", "source_name": "X", "spectrum": 7.5}]}}`))
	})

	ev, err := c.GetEvent(context.Background(), "a b")
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/events/a%20b", gotPath)
	assert.Equal(t, int64(9), ev.ID)
	require.Len(t, ev.Articles, 1)
	assert.Equal(t, models.ScoreSpectrum(7.5), ev.Articles[0].Spectrum)
}

func TestClient_GetEvent_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "Event 42 does not exist"}`))
	})

	_, err := c.GetEvent(context.Background(), "42")
	require.Error(t, err)

	assert.True(t, errors.Is(err, ErrEventNotFound))
	assert.Equal(t, http.StatusNotFound, StatusOf(err))
	assert.Equal(t, "Event 42 does not exist", err.Error())
}

func TestClient_GetEvent_EmptyID(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://unused"}, nil, nil)

	_, err := c.GetEvent(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyID)
}

func TestClient_ErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{name: "payload message", status: http.StatusBadRequest, body: `{"message": "days must be positive"}`, wantMsg: "days must be positive"},
		{name: "payload error field", status: http.StatusForbidden, body: `{"error": "admin only"}`, wantMsg: "admin only"},
		{name: "no payload", status: http.StatusBadGateway, body: `<html>bad gateway</html>`, wantMsg: "API error (502)"},
		{name: "empty payload", status: http.StatusInternalServerError, body: `{}`, wantMsg: "API error (500)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.ListEvents(context.Background(), models.FeedFilter{})
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.False(t, errors.Is(err, ErrEventNotFound))
		})
	}
}

func TestClient_MalformedJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": [`))
	})

	_, err := c.ListEvents(context.Background(), models.FeedFilter{})
	require.Error(t, err)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
	assert.Contains(t, err.Error(), "decode response")
}

func TestClient_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, nil, nil)
	_, err := c.GetEvent(context.Background(), "1")
	require.Error(t, err)

	assert.Equal(t, 0, StatusOf(err))
	assert.Contains(t, err.Error(), "request failed")
}

func TestClient_GetInsights(t *testing.T) {
	t.Run("decodes sections", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/insights/summit", r.URL.Path)
			_, _ = w.Write([]byte(`{"data": {
				"summary": "Leaders met.",
				"llm_provider": "local",
				"contradictions": [{"claim_A": "Talks failed", "claim_B": "Talks succeeded", "source_a": "X", "source_b": "Y"}]
			}}`))
		})

		ins, err := c.GetInsights(context.Background(), "summit")
		require.NoError(t, err)
		require.NotNil(t, ins)
		assert.Equal(t, "Leaders met.", ins.Summary)
		require.Len(t, ins.Contradictions, 1)
		assert.Equal(t, "Talks failed", ins.Contradictions[0].ClaimA)
		assert.Equal(t, "Talks succeeded", ins.Contradictions[0].ClaimB)
	})

	t.Run("404 means no insights yet", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		ins, err := c.GetInsights(context.Background(), "summit")
		require.NoError(t, err)
		assert.Nil(t, ins)
	})
}

func TestClient_GetArticleBias(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/articles/15/bias", r.URL.Path)
		_, _ = w.Write([]byte(`{"data": {"overall_rating": 0.4, "annotations": [
			{"sentence": "They said", "source": "quote", "explanation": "loaded term"}]}}`))
	})

	b, err := c.GetArticleBias(context.Background(), 15)
	require.NoError(t, err)
	assert.Equal(t, int64(15), b.ArticleID)
	assert.InDelta(t, 0.4, b.OverallRating, 1e-9)
	require.Len(t, b.Annotations, 1)
	assert.Equal(t, models.BiasSourceQuote, b.Annotations[0].Source)
}

func TestClient_RegenerateInsights(t *testing.T) {
	var gotMethod, gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusAccepted)
	})

	require.NoError(t, c.RegenerateInsights(context.Background(), 42))
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/api/v1/insights/42/regenerate", gotPath)
}

func TestClient_ExportURL(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://backend:8000", PublicBaseURL: "https://news.example.com/"}, nil, nil)

	assert.Equal(t, "https://news.example.com/api/v1/exports/events/42", c.ExportURL(42))
}

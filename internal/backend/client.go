package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nitesh/newsfront/pkg/models"
)

const (
	defaultTimeout  = 15 * time.Second
	maxBodyBytes    = 8 << 20
	apiPrefix       = "/api/v1"
	headerAccept    = "Accept"
	headerUA        = "User-Agent"
	contentTypeJSON = "application/json"
	userAgent       = "newsfront/1.0"
)

// Config configures the backend client.
type Config struct {
	BaseURL string
	// PublicBaseURL is the backend origin as seen by browsers; used for
	// download links. Defaults to BaseURL.
	PublicBaseURL string
	Timeout       time.Duration
}

// Client talks to the news backend REST API.
type Client struct {
	baseURL   string
	publicURL string
	hc        *http.Client
	logger    *zerolog.Logger
}

// NewClient creates a new client. If httpClient is nil, a pooled client with
// the configured timeout is used.
func NewClient(cfg Config, httpClient *http.Client, logger *zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = newHTTPClient(timeout)
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	base := strings.TrimSuffix(cfg.BaseURL, "/")
	public := strings.TrimSuffix(cfg.PublicBaseURL, "/")
	if public == "" {
		public = base
	}

	return &Client{
		baseURL:   base,
		publicURL: public,
		hc:        httpClient,
		logger:    logger,
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

// ListEvents returns the feed for the given filter.
func (c *Client) ListEvents(ctx context.Context, f models.FeedFilter) (*models.EventList, error) {
	var out models.EventList
	if err := c.do(ctx, http.MethodGet, EndpointListEvents, apiPrefix+"/events", FeedQuery(f), &out); err != nil {
		return nil, err
	}
	if out.Events == nil {
		out.Events = []models.Event{}
	}
	return &out, nil
}

// GetEvent returns one event by numeric id or slug. A 404 unwraps to ErrEventNotFound.
func (c *Client) GetEvent(ctx context.Context, idOrSlug string) (*models.EventDetail, error) {
	if strings.TrimSpace(idOrSlug) == "" {
		return nil, ErrEmptyID
	}

	var env models.Envelope[*models.EventDetail]
	err := c.do(ctx, http.MethodGet, EndpointGetEvent, apiPrefix+"/events/"+url.PathEscape(idOrSlug), nil, &env)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok && apiErr.Status == http.StatusNotFound {
			apiErr.err = ErrEventNotFound
		}
		return nil, err
	}
	if env.Data == nil {
		return nil, &APIError{Status: http.StatusNotFound, Endpoint: EndpointGetEvent, err: ErrEventNotFound}
	}
	return env.Data, nil
}

// GetInsights returns the aggregation result for an event. A 404 means no
// insights were generated yet and yields (nil, nil).
func (c *Client) GetInsights(ctx context.Context, idOrSlug string) (*models.Insights, error) {
	if strings.TrimSpace(idOrSlug) == "" {
		return nil, ErrEmptyID
	}

	var env models.Envelope[*models.Insights]
	err := c.do(ctx, http.MethodGet, EndpointGetInsights, apiPrefix+"/insights/"+url.PathEscape(idOrSlug), nil, &env)
	if err != nil {
		if StatusOf(err) == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return env.Data, nil
}

// GetArticleBias returns the bias analysis of one article.
func (c *Client) GetArticleBias(ctx context.Context, articleID int64) (*models.BiasAnalysis, error) {
	var env models.Envelope[*models.BiasAnalysis]
	path := apiPrefix + "/articles/" + strconv.FormatInt(articleID, 10) + "/bias"
	if err := c.do(ctx, http.MethodGet, EndpointArticleBias, path, nil, &env); err != nil {
		return nil, err
	}
	if env.Data != nil && env.Data.ArticleID == 0 {
		env.Data.ArticleID = articleID
	}
	return env.Data, nil
}

// RegenerateInsights asks the backend to regenerate insights for an event.
func (c *Client) RegenerateInsights(ctx context.Context, eventID int64) error {
	path := apiPrefix + "/insights/" + strconv.FormatInt(eventID, 10) + "/regenerate"
	return c.do(ctx, http.MethodPost, EndpointRegenerate, path, nil, nil)
}

// ExportURL returns the CSV download link for an event. No request is made.
func (c *Client) ExportURL(eventID int64) string {
	return c.publicURL + apiPrefix + "/exports/events/" + strconv.FormatInt(eventID, 10)
}

// FeedQuery serialises a feed filter into backend query parameters.
func FeedQuery(f models.FeedFilter) url.Values {
	q := url.Values{}
	if f.Days > 0 {
		q.Set("days", strconv.Itoa(f.Days))
	}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.MinSources > 0 {
		q.Set("minSources", strconv.Itoa(f.MinSources))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.AllPeriods {
		q.Set("allPeriods", "true")
	}
	if f.Admin {
		q.Set("admin", "true")
	}
	return q
}

// do issues one request and decodes a 2xx JSON body into out (when non-nil).
func (c *Client) do(ctx context.Context, method, endpoint, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if method == http.MethodPost {
		body = bytes.NewReader([]byte("{}"))
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("backend new request: %w", err)
	}
	req.Header.Set(headerAccept, contentTypeJSON)
	req.Header.Set(headerUA, userAgent)
	if body != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}

	start := time.Now()
	outcome := OutcomeOK
	defer func() {
		lat := time.Since(start)
		RequestDuration.WithLabelValues(endpoint, outcome).Observe(lat.Seconds())
		c.logger.Debug().
			Str("endpoint", endpoint).
			Str("method", method).
			Str("url", u).
			Str("outcome", outcome).
			Dur("latency", lat).
			Msg("backend request")
	}()

	resp, err := c.hc.Do(req)
	if err != nil {
		outcome = OutcomeNetwork
		return fmt.Errorf("backend %s request failed: %w", endpoint, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		outcome = OutcomeNetwork
		return fmt.Errorf("backend %s read body: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		outcome = OutcomeHTTPError
		return newAPIError(endpoint, resp.StatusCode, respBody)
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		outcome = OutcomeDecode
		return fmt.Errorf("backend %s decode response: %w", endpoint, err)
	}
	return nil
}

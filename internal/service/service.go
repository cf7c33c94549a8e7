package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/nitesh/newsfront/internal/cache"
	"github.com/nitesh/newsfront/internal/config"
	"github.com/nitesh/newsfront/internal/store"
	"github.com/nitesh/newsfront/internal/view"
	"github.com/nitesh/newsfront/pkg/models"
)

// Backend is the subset of the news backend the service reads through.
type Backend interface {
	ListEvents(ctx context.Context, f models.FeedFilter) (*models.EventList, error)
	GetEvent(ctx context.Context, idOrSlug string) (*models.EventDetail, error)
	GetInsights(ctx context.Context, idOrSlug string) (*models.Insights, error)
	GetArticleBias(ctx context.Context, articleID int64) (*models.BiasAnalysis, error)
	RegenerateInsights(ctx context.Context, eventID int64) error
	ExportURL(eventID int64) string
}

// Ledger records regeneration requests.
type Ledger interface {
	Record(ctx context.Context, r *store.Regeneration) error
	Recent(ctx context.Context, limit int) ([]*store.Regeneration, error)
	ForEvent(ctx context.Context, eventID int64, limit int) ([]*store.Regeneration, error)
}

// Policies holds the freshness policy of each query.
type Policies struct {
	Feed     cache.Policy
	Detail   cache.Policy
	Insights cache.Policy
	Bias     cache.Policy
}

func DefaultPolicies() Policies {
	return Policies{
		Feed:     cache.Policy{Name: "feed", FreshFor: time.Minute, RevalidateOnFocus: true},
		Detail:   cache.Policy{Name: "detail", FreshFor: 5 * time.Minute},
		Insights: cache.Policy{Name: "insights", FreshFor: 30 * time.Minute},
		Bias:     cache.Policy{Name: "bias", FreshFor: time.Hour},
	}
}

// Options tunes the service. Zero values fall back to defaults.
type Options struct {
	Policies          Policies
	DefaultDays       int
	MaxDays           int
	BiasConcurrency   int
	AutoRegenerate    bool
	RegenerateTimeout time.Duration
}

// OptionsFromConfig maps the application config onto service options.
func OptionsFromConfig(cfg *config.Config) Options {
	p := DefaultPolicies()
	p.Feed.FreshFor = cfg.FeedTTL
	p.Detail.FreshFor = cfg.DetailTTL
	p.Insights.FreshFor = cfg.InsightsTTL
	p.Bias.FreshFor = cfg.BiasTTL
	return Options{
		Policies:          p,
		DefaultDays:       cfg.DefaultDays,
		MaxDays:           cfg.MaxDays,
		BiasConcurrency:   cfg.BiasFetchLimit,
		AutoRegenerate:    cfg.AutoRegenerate,
		RegenerateTimeout: cfg.BackendTimeout,
	}
}

type Service struct {
	backend Backend
	cache   *cache.Cache
	ledger  Ledger
	regen   *Regenerator
	opts    Options
	logger  *zerolog.Logger
}

func NewService(b Backend, c *cache.Cache, ledger Ledger, opts Options, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.Policies == (Policies{}) {
		opts.Policies = DefaultPolicies()
	}
	if opts.DefaultDays <= 0 {
		opts.DefaultDays = 7
	}
	if opts.BiasConcurrency <= 0 {
		opts.BiasConcurrency = 4
	}
	return &Service{
		backend: b,
		cache:   c,
		ledger:  ledger,
		regen:   NewRegenerator(b, ledger, opts.RegenerateTimeout, logger),
		opts:    opts,
		logger:  logger,
	}
}

// Normalize applies the configured day window to f.
func (s *Service) Normalize(f models.FeedFilter) models.FeedFilter {
	return NormalizeFilter(f, s.opts.DefaultDays, s.opts.MaxDays)
}

// Feed returns the event list for f. force revalidates regardless of freshness.
func (s *Service) Feed(ctx context.Context, f models.FeedFilter, force bool) cache.Snapshot[*models.EventList] {
	f = s.Normalize(f)
	fetch := func(ctx context.Context) (*models.EventList, error) {
		return s.backend.ListEvents(ctx, f)
	}
	return read(ctx, s.cache, FeedKey(f), s.opts.Policies.Feed, force, fetch)
}

// Event returns the detail for idOrSlug; a blank id yields an idle snapshot.
func (s *Service) Event(ctx context.Context, idOrSlug string, force bool) cache.Snapshot[*models.EventDetail] {
	fetch := func(ctx context.Context) (*models.EventDetail, error) {
		return s.backend.GetEvent(ctx, idOrSlug)
	}
	return read(ctx, s.cache, EventKey(idOrSlug), s.opts.Policies.Detail, force, fetch)
}

// Insights returns the insights for idOrSlug. It stays idle until detail is a
// resolved event.
func (s *Service) Insights(ctx context.Context, idOrSlug string, detail *models.EventDetail, force bool) cache.Snapshot[*models.Insights] {
	fetch := func(ctx context.Context) (*models.Insights, error) {
		return s.backend.GetInsights(ctx, idOrSlug)
	}
	return read(ctx, s.cache, InsightsKey(idOrSlug, detail), s.opts.Policies.Insights, force, fetch)
}

// ArticleBias returns the bias analysis for one article.
func (s *Service) ArticleBias(ctx context.Context, articleID int64, force bool) cache.Snapshot[*models.BiasAnalysis] {
	fetch := func(ctx context.Context) (*models.BiasAnalysis, error) {
		return s.backend.GetArticleBias(ctx, articleID)
	}
	return read(ctx, s.cache, BiasKey(articleID), s.opts.Policies.Bias, force, fetch)
}

// EventPage is everything the detail page needs.
type EventPage struct {
	Detail       cache.Snapshot[*models.EventDetail]
	Insights     cache.Snapshot[*models.Insights]
	Bias         map[int64]*models.BiasAnalysis
	Regeneration Outcome
	ExportURL    string
}

// Found reports whether the detail query produced an event.
func (p *EventPage) Found() bool {
	return p.Detail.HasData && p.Detail.Data != nil
}

// NeedsFallback reports whether the insights section must be replaced by the
// fallback notice.
func (p *EventPage) NeedsFallback() bool {
	return p.Found() && p.Insights.Status != cache.StatusError && !view.HasInsightsContent(p.Insights.Data)
}

// EventPage loads the detail, then insights and article bias concurrently.
// Bias failures only drop that article's score. When the event has no
// insights the automatic regeneration is fired once.
func (s *Service) EventPage(ctx context.Context, idOrSlug string, force bool) *EventPage {
	page := &EventPage{Detail: s.Event(ctx, idOrSlug, force)}
	if !page.Found() {
		return page
	}
	detail := page.Detail.Data
	page.ExportURL = s.backend.ExportURL(detail.ID)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	page.Bias = make(map[int64]*models.BiasAnalysis, len(detail.Articles))
	g.SetLimit(s.opts.BiasConcurrency + 1)

	g.Go(func() error {
		page.Insights = s.Insights(ctx, idOrSlug, detail, force)
		return nil
	})
	for _, a := range detail.Articles {
		g.Go(func() error {
			snap := s.ArticleBias(ctx, a.ID, false)
			if !snap.HasData || snap.Data == nil {
				if snap.Err != nil {
					BiasFailures.Inc()
					s.logger.Debug().Err(snap.Err).Int64("article_id", a.ID).Msg("article bias unavailable")
				}
				return nil
			}
			mu.Lock()
			page.Bias[a.ID] = snap.Data
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // goroutines never fail

	if page.NeedsFallback() {
		if s.opts.AutoRegenerate {
			page.Regeneration = s.regen.TriggerOnce(ctx, detail.ID)
		} else {
			page.Regeneration = s.regen.Lookup(detail.ID)
		}
		// Generation is pending: keep re-asking for insights until they land.
		if page.Regeneration.Attempted && page.Regeneration.Err == nil {
			s.cache.Invalidate(ctx, append(insightsKeys(detail.ID, detail.Slug), InsightsKey(idOrSlug, detail))...)
		}
	}
	return page
}

// Regenerate requests insights regeneration for eventID and marks the
// cached detail and insights stale under both the id and the slug.
func (s *Service) Regenerate(ctx context.Context, eventID int64, slug string) error {
	if err := s.regen.Trigger(ctx, eventID); err != nil {
		return fmt.Errorf("regenerate insights for event %d: %w", eventID, err)
	}
	var keys []string
	for _, alias := range eventAliases(eventID, slug) {
		keys = append(keys, eventKeyPrefix+alias)
	}
	s.cache.Invalidate(ctx, append(keys, insightsKeys(eventID, slug)...)...)
	return nil
}

// RegenerationOutcome returns the recorded outcome for eventID.
func (s *Service) RegenerationOutcome(eventID int64) Outcome {
	return s.regen.Lookup(eventID)
}

// Regenerations lists recorded regeneration requests, newest first. A
// positive eventID restricts the list to that event.
func (s *Service) Regenerations(ctx context.Context, eventID int64, limit int) ([]*store.Regeneration, error) {
	if s.ledger == nil {
		return []*store.Regeneration{}, nil
	}
	var (
		out []*store.Regeneration
		err error
	)
	if eventID > 0 {
		out, err = s.ledger.ForEvent(ctx, eventID, limit)
	} else {
		out, err = s.ledger.Recent(ctx, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list regenerations: %w", err)
	}
	return out, nil
}

// Focus marks focus-revalidated entries stale and returns how many.
func (s *Service) Focus() int {
	return s.cache.Focus()
}

// Reset drops every cached response and recorded regeneration outcome.
func (s *Service) Reset(ctx context.Context) error {
	s.cache.Clear()
	s.regen.Reset()
	if err := s.cache.FlushShared(ctx); err != nil {
		return fmt.Errorf("flush shared cache: %w", err)
	}
	s.logger.Info().Msg("response cache reset")
	return nil
}

// ExportURL returns the CSV export link for an event.
func (s *Service) ExportURL(eventID int64) string {
	return s.backend.ExportURL(eventID)
}

// ParseEventID parses a numeric event id.
func ParseEventID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid event id %q", raw)
	}
	return id, nil
}

func read[T any](ctx context.Context, c *cache.Cache, key string, p cache.Policy, force bool, fetch cache.Fetcher[T]) cache.Snapshot[T] {
	if force {
		return cache.Revalidate(ctx, c, key, p, fetch)
	}
	return cache.Fetch(ctx, c, key, p, fetch)
}

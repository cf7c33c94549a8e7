package view

import (
	"strings"
	"time"

	"github.com/nitesh/newsfront/pkg/models"
)

// EventCard is one feed entry.
type EventCard struct {
	ID           int64
	Title        string
	Description  string
	Path         string
	Timeframe    string
	Category     Category
	Badges       []SpectrumBadge
	ArticleCount string
	HasInsights  bool
}

// BuildEventCard derives the card for a single event.
func BuildEventCard(e models.Event, loc *time.Location) EventCard {
	desc := strings.TrimSpace(e.Description)
	if desc == "" {
		desc = strings.TrimSpace(e.Summary)
	}
	title := strings.TrimSpace(e.Title)
	if title == "" {
		title = "Untitled event"
	}
	return EventCard{
		ID:           e.ID,
		Title:        title,
		Description:  desc,
		Path:         EventPath(e),
		Timeframe:    FormatEventTimeframe(e.FirstSeen, e.LastUpdated, loc),
		Category:     ResolveCategory(e.Category),
		Badges:       ResolveSpectrumBadges(e.SpectrumDistribution),
		ArticleCount: Pluralize(e.ArticleCount, "article", "articles"),
		HasInsights:  e.HasInsights,
	}
}

// BuildEventCards derives one card per event, in order.
func BuildEventCards(events []models.Event, loc *time.Location) []EventCard {
	cards := make([]EventCard, 0, len(events))
	for _, e := range events {
		cards = append(cards, BuildEventCard(e, loc))
	}
	return cards
}

// BiasView summarises an article's bias analysis.
type BiasView struct {
	Rating     string
	Journalist int
	Quotes     int
}

// ArticleView is one article row on the detail page.
type ArticleView struct {
	Title         string
	URL           string
	Source        string
	Spectrum      SpectrumTag
	Flag          string
	International bool
	Published     string
	ImageURL      string
	Bias          *BiasView
}

// BuildArticleView derives the display form of a; bias may be nil.
func BuildArticleView(a models.Article, bias *models.BiasAnalysis, loc *time.Location) ArticleView {
	v := ArticleView{
		Title:         strings.TrimSpace(a.Title),
		URL:           a.URL,
		Source:        strings.TrimSpace(a.SourceName),
		Spectrum:      ResolveSpectrum(a.Spectrum),
		International: a.IsInternational,
		Published:     FormatTimestamp(a.PublishedAt, loc),
		ImageURL:      a.ImageURL,
	}
	if a.IsInternational {
		v.Flag = CountryFlag(a.CountryCode)
	}
	if v.Title == "" {
		v.Title = a.URL
	}
	if bias != nil {
		v.Bias = buildBias(bias)
	}
	return v
}

func buildBias(b *models.BiasAnalysis) *BiasView {
	v := &BiasView{Rating: formatScore(b.OverallRating) + "/10"}
	for _, a := range b.Annotations {
		switch a.Source {
		case models.BiasSourceJournalist:
			v.Journalist++
		case models.BiasSourceQuote:
			v.Quotes++
		}
	}
	return v
}

// InsightsView is the renderable part of an insights payload.
type InsightsView struct {
	Summary        string
	Provider       string
	Timeline       []TimelineRow
	Perspectives   []models.Perspective
	Fallacies      []models.Fallacy
	Contradictions []models.Contradiction
	CoverageGaps   []models.CoverageGap
	Findings       []FindingSection
	Plurality      *models.PluralityAssessment
}

// TimelineRow is a timeline entry with its timestamp formatted.
type TimelineRow struct {
	When        string
	Description string
	Source      string
}

// BuildInsightsView returns nil when in has nothing to render.
func BuildInsightsView(in *models.Insights, loc *time.Location) *InsightsView {
	if !HasInsightsContent(in) {
		return nil
	}
	v := &InsightsView{
		Summary:        strings.TrimSpace(in.Summary),
		Provider:       in.LLMProvider,
		Perspectives:   in.Perspectives,
		Fallacies:      in.Fallacies,
		Contradictions: in.Contradictions,
		CoverageGaps:   in.CoverageGaps,
	}
	for _, t := range in.Timeline {
		when := FormatTimestamp(t.Timestamp, loc)
		if when == "" {
			when = t.Timestamp
		}
		v.Timeline = append(v.Timeline, TimelineRow{When: when, Description: t.Description, Source: t.Source})
	}
	for _, sec := range FindingSections(in) {
		if len(sec.Findings) > 0 {
			v.Findings = append(v.Findings, sec)
		}
	}
	if hasPlurality(in.ScientificPlurality) {
		v.Plurality = in.ScientificPlurality
	}
	return v
}

// Fallback is the notice shown in place of missing insights.
type Fallback struct {
	EventID   int64
	Message   string
	Error     string
	ShowRetry bool
}

// BuildFallback derives the notice for an event without insights. attempted
// reports whether a regeneration request has already been made; err is its
// outcome. A successful request never offers a retry.
func BuildFallback(eventID int64, attempted bool, err error) Fallback {
	switch {
	case !attempted:
		return Fallback{
			EventID:   eventID,
			Message:   "Insights for this event have not been generated yet.",
			ShowRetry: true,
		}
	case err != nil:
		return Fallback{
			EventID:   eventID,
			Message:   "We could not request insights for this event.",
			Error:     ErrorMessage(err),
			ShowRetry: true,
		}
	default:
		return Fallback{
			EventID: eventID,
			Message: "Insights are being generated. Check back in a few minutes.",
		}
	}
}

// EventView is the detail page model.
type EventView struct {
	Card           EventCard
	Summary        string
	Articles       []ArticleView
	Sources        []SourceRow
	InsightsStatus string
	GeneratedAt    string
	RequestedAt    string
	Insights       *InsightsView
	ExportURL      string
}

// SourceRow is one entry of the per-outlet breakdown.
type SourceRow struct {
	Source   string
	Count    int
	Spectrum SpectrumTag
}

// BuildEventView derives the detail page. bias is keyed by article id and
// may be partial.
func BuildEventView(d *models.EventDetail, in *models.Insights, bias map[int64]*models.BiasAnalysis, exportURL string, loc *time.Location) EventView {
	if d == nil {
		return EventView{}
	}
	v := EventView{
		Card:           BuildEventCard(d.Event, loc),
		Summary:        strings.TrimSpace(d.Summary),
		InsightsStatus: d.InsightsStatus,
		GeneratedAt:    FormatTimestamp(d.InsightsGeneratedAt, loc),
		RequestedAt:    FormatTimestamp(d.InsightsRequestedAt, loc),
		Insights:       BuildInsightsView(in, loc),
		ExportURL:      exportURL,
	}
	for _, a := range d.Articles {
		v.Articles = append(v.Articles, BuildArticleView(a, bias[a.ID], loc))
	}
	for _, s := range d.SourceBreakdown {
		if s.Count <= 0 {
			continue
		}
		v.Sources = append(v.Sources, SourceRow{Source: s.Source, Count: s.Count, Spectrum: ResolveSpectrum(s.Spectrum)})
	}
	return v
}

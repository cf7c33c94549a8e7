package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Event is a detected news event (a cluster of articles) as listed in the feed.
type Event struct {
	ID                   int64                `json:"id"`
	Slug                 string               `json:"slug,omitempty"`
	Title                string               `json:"title"`
	Description          string               `json:"description,omitempty"`
	Summary              string               `json:"summary,omitempty"`
	ArticleCount         int                  `json:"article_count"`
	FirstSeen            string               `json:"first_seen,omitempty"`
	LastUpdated          string               `json:"last_updated,omitempty"`
	SpectrumDistribution SpectrumDistribution `json:"spectrum_distribution,omitempty"`
	SourceBreakdown      []SourceCount        `json:"source_breakdown,omitempty"`
	Category             string               `json:"category,omitempty"`
	HasInsights          bool                 `json:"has_insights,omitempty"`
}

// SourceCount is the number of articles one outlet contributed to an event.
type SourceCount struct {
	Source   string   `json:"source"`
	Count    int      `json:"count"`
	Spectrum Spectrum `json:"spectrum"`
}

// EventDetail is the full event with its linked articles and insights status.
type EventDetail struct {
	Event

	Articles            []Article `json:"articles"`
	InsightsStatus      string    `json:"insights_status,omitempty"`
	InsightsGeneratedAt string    `json:"insights_generated_at,omitempty"`
	InsightsRequestedAt string    `json:"insights_requested_at,omitempty"`
}

// Article is a single news article linked to an event.
type Article struct {
	ID              int64    `json:"id"`
	Title           string   `json:"title"`
	URL             string   `json:"url"`
	SourceName      string   `json:"source_name"`
	Spectrum        Spectrum `json:"spectrum"`
	PublishedAt     string   `json:"published_at,omitempty"`
	ImageURL        string   `json:"image_url,omitempty"`
	IsInternational bool     `json:"is_international,omitempty"`
	CountryCode     string   `json:"country_code,omitempty"`
}

// EventList is the feed payload: events plus the backend's meta block.
type EventList struct {
	Events []Event        `json:"data"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// Envelope is the {data, meta} wrapper the backend puts around single resources.
type Envelope[T any] struct {
	Data T              `json:"data"`
	Meta map[string]any `json:"meta,omitempty"`
}

// FeedFilter holds the feed query parameters.
type FeedFilter struct {
	Search     string `json:"search"`
	Category   string `json:"category"`
	MinSources int    `json:"min_sources"`
	Days       int    `json:"days"`
	AllPeriods bool   `json:"all_periods"`
	Admin      bool   `json:"admin"`
}

// SpectrumKind tags which variant a Spectrum value holds.
type SpectrumKind int

const (
	SpectrumNone SpectrumKind = iota
	SpectrumLabel
	SpectrumScore
)

// Spectrum is either a textual position ("center-left") or a 0-10 score.
// The backend has emitted both; resolve it through view.ResolveSpectrum.
type Spectrum struct {
	Kind  SpectrumKind
	Label string
	Score float64
}

// LabelSpectrum builds a label-valued Spectrum.
func LabelSpectrum(label string) Spectrum {
	return Spectrum{Kind: SpectrumLabel, Label: label}
}

// ScoreSpectrum builds a score-valued Spectrum.
func ScoreSpectrum(score float64) Spectrum {
	return Spectrum{Kind: SpectrumScore, Score: score}
}

func (s *Spectrum) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = Spectrum{}
		return nil
	}
	if b[0] == '"' {
		var label string
		if err := json.Unmarshal(b, &label); err != nil {
			return err
		}
		label = strings.TrimSpace(label)
		if label == "" {
			*s = Spectrum{}
			return nil
		}
		// numeric scores sometimes arrive quoted
		if score, err := strconv.ParseFloat(label, 64); err == nil && !math.IsNaN(score) && !math.IsInf(score, 0) {
			*s = ScoreSpectrum(score)
			return nil
		}
		*s = LabelSpectrum(label)
		return nil
	}
	var score float64
	if err := json.Unmarshal(b, &score); err != nil {
		return fmt.Errorf("spectrum: expected string or number, got %s", string(b))
	}
	*s = ScoreSpectrum(score)
	return nil
}

func (s Spectrum) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case SpectrumLabel:
		return json.Marshal(s.Label)
	case SpectrumScore:
		return json.Marshal(s.Score)
	default:
		return []byte("null"), nil
	}
}

// SpectrumCount is one bucket of an event's spectrum distribution.
type SpectrumCount struct {
	Key   string `json:"spectrum"`
	Count int    `json:"count"`
}

// SpectrumDistribution decodes both wire shapes the backend has used:
// a keyed mapping {"left": 3} and an array [{"spectrum": "left", "count": 3}].
// It always encodes as the array shape.
type SpectrumDistribution []SpectrumCount

func (d *SpectrumDistribution) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*d = nil
		return nil
	}

	switch b[0] {
	case '{':
		var m map[string]float64
		if err := json.Unmarshal(b, &m); err != nil {
			return fmt.Errorf("spectrum distribution map: %w", err)
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(SpectrumDistribution, 0, len(keys))
		for _, k := range keys {
			out = append(out, SpectrumCount{Key: k, Count: toCount(m[k])})
		}
		*d = out
		return nil
	case '[':
		var recs []struct {
			Spectrum string  `json:"spectrum"`
			Key      string  `json:"key"`
			Category string  `json:"category"`
			Count    float64 `json:"count"`
		}
		if err := json.Unmarshal(b, &recs); err != nil {
			return fmt.Errorf("spectrum distribution records: %w", err)
		}
		out := make(SpectrumDistribution, 0, len(recs))
		for _, r := range recs {
			key := firstNonEmpty(r.Spectrum, r.Key, r.Category)
			out = append(out, SpectrumCount{Key: key, Count: toCount(r.Count)})
		}
		*d = out
		return nil
	default:
		return fmt.Errorf("spectrum distribution: unsupported shape %q", string(b[:1]))
	}
}

func toCount(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(math.Floor(f))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Insights is the read-only aggregation result for one event. Every section
// is optional.
type Insights struct {
	Timeline              []TimelineEntry      `json:"timeline,omitempty"`
	Perspectives          []Perspective        `json:"perspectives,omitempty"`
	Fallacies             []Fallacy            `json:"fallacies,omitempty"`
	Contradictions        []Contradiction      `json:"contradictions,omitempty"`
	CoverageGaps          []CoverageGap        `json:"coverage_gaps,omitempty"`
	UnsubstantiatedClaims []Finding            `json:"unsubstantiated_claims,omitempty"`
	AuthorityAnalysis     []Finding            `json:"authority_analysis,omitempty"`
	MediaAnalysis         []Finding            `json:"media_analysis,omitempty"`
	StatisticalIssues     []Finding            `json:"statistical_issues,omitempty"`
	TimingAnalysis        []Finding            `json:"timing_analysis,omitempty"`
	ScientificPlurality   *PluralityAssessment `json:"scientific_plurality,omitempty"`
	Summary               string               `json:"summary,omitempty"`
	LLMProvider           string               `json:"llm_provider,omitempty"`
}

type TimelineEntry struct {
	Timestamp   string `json:"timestamp"`
	Description string `json:"description"`
	Source      string `json:"source,omitempty"`
}

// Perspective is a cluster of sources sharing a framing of the event.
type Perspective struct {
	Label   string              `json:"label"`
	Summary string              `json:"summary,omitempty"`
	Sources []PerspectiveSource `json:"sources,omitempty"`
}

type PerspectiveSource struct {
	Name     string   `json:"name"`
	URL      string   `json:"url,omitempty"`
	Spectrum Spectrum `json:"spectrum"`
}

type Fallacy struct {
	Type        string `json:"type"`
	Quote       string `json:"quote,omitempty"`
	Explanation string `json:"explanation,omitempty"`
	Source      string `json:"source,omitempty"`
}

// Contradiction is a pair of conflicting claims from two sources.
// encoding/json matches keys case-insensitively, so legacy claim_A/claim_B
// payloads decode into ClaimA/ClaimB as well.
type Contradiction struct {
	ClaimA      string `json:"claim_a"`
	ClaimB      string `json:"claim_b"`
	SourceA     string `json:"source_a,omitempty"`
	SourceB     string `json:"source_b,omitempty"`
	Explanation string `json:"explanation,omitempty"`
}

type CoverageGap struct {
	Topic           string   `json:"topic"`
	Detail          string   `json:"detail,omitempty"`
	MissingSpectrum []string `json:"missing_spectrum,omitempty"`
}

// Finding is one entry of a critical-analysis section.
type Finding struct {
	Title    string   `json:"title"`
	Detail   string   `json:"detail,omitempty"`
	Severity string   `json:"severity,omitempty"`
	Sources  []string `json:"sources,omitempty"`
}

type PluralityAssessment struct {
	Summary      string   `json:"summary,omitempty"`
	Score        float64  `json:"score,omitempty"`
	Perspectives []string `json:"perspectives,omitempty"`
}

// BiasAnalysis is the per-article bias scoring.
type BiasAnalysis struct {
	ArticleID     int64            `json:"article_id"`
	OverallRating float64          `json:"overall_rating"`
	Annotations   []BiasAnnotation `json:"annotations,omitempty"`
}

// Annotation sources.
const (
	BiasSourceJournalist = "journalist"
	BiasSourceQuote      = "quote"
)

type BiasAnnotation struct {
	Sentence    string  `json:"sentence"`
	Source      string  `json:"source"`
	Explanation string  `json:"explanation,omitempty"`
	Score       float64 `json:"score,omitempty"`
}

package service

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/nitesh/newsfront/pkg/models"
)

const (
	feedKeyPrefix     = "feed:"
	eventKeyPrefix    = "event:"
	insightsKeyPrefix = "insights:"
	biasKeyPrefix     = "bias:"
)

// NormalizeFilter trims and clamps a feed filter so that equivalent filters
// produce the same cache key.
func NormalizeFilter(f models.FeedFilter, defaultDays, maxDays int) models.FeedFilter {
	f.Search = strings.TrimSpace(f.Search)
	f.Category = strings.ToLower(strings.TrimSpace(f.Category))
	if f.MinSources < 0 {
		f.MinSources = 0
	}
	if f.Days <= 0 {
		f.Days = defaultDays
	}
	if maxDays > 0 && f.Days > maxDays {
		f.Days = maxDays
	}
	return f
}

// FeedKey serialises all six filter parameters in sorted order.
func FeedKey(f models.FeedFilter) string {
	v := url.Values{}
	v.Set("admin", strconv.FormatBool(f.Admin))
	v.Set("allPeriods", strconv.FormatBool(f.AllPeriods))
	v.Set("category", f.Category)
	v.Set("days", strconv.Itoa(f.Days))
	v.Set("minSources", strconv.Itoa(f.MinSources))
	v.Set("search", f.Search)
	return feedKeyPrefix + v.Encode()
}

// EventKey is the detail cache key, or "" for a blank id.
func EventKey(idOrSlug string) string {
	idOrSlug = strings.TrimSpace(idOrSlug)
	if idOrSlug == "" {
		return ""
	}
	return eventKeyPrefix + idOrSlug
}

// InsightsKey is the insights cache key. It stays empty, and the query idle,
// until the detail query has produced an event.
func InsightsKey(idOrSlug string, detail *models.EventDetail) string {
	idOrSlug = strings.TrimSpace(idOrSlug)
	if detail == nil || idOrSlug == "" {
		return ""
	}
	return insightsKeyPrefix + idOrSlug
}

// BiasKey is the per-article bias cache key.
func BiasKey(articleID int64) string {
	if articleID <= 0 {
		return ""
	}
	return biasKeyPrefix + strconv.FormatInt(articleID, 10)
}

// eventAliases lists every id form a detail payload may be cached under.
func eventAliases(eventID int64, slug string) []string {
	out := []string{strconv.FormatInt(eventID, 10)}
	if s := strings.TrimSpace(slug); s != "" && s != out[0] {
		out = append(out, s)
	}
	return out
}

func insightsKeys(eventID int64, slug string) []string {
	aliases := eventAliases(eventID, slug)
	keys := make([]string, len(aliases))
	for i, alias := range aliases {
		keys[i] = insightsKeyPrefix + alias
	}
	return keys
}

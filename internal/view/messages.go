package view

import (
	"errors"
	"strings"

	"github.com/nitesh/newsfront/internal/backend"
	"github.com/nitesh/newsfront/pkg/models"
)

const (
	MsgEventNotFound    = "This event could not be found."
	MsgFeedUnavailable  = "The event list is not available right now."
	MsgInsightsNotFound = "No insights are available for this event."
	MsgBiasNotFound     = "No bias analysis is available for this article."
	MsgUnreachable      = "Could not reach the news service. Please try again."
)

// FeedEmptyMessage is shown when a feed query returns no events. The text
// depends on which filters are active.
func FeedEmptyMessage(f models.FeedFilter) string {
	search := strings.TrimSpace(f.Search)
	category := strings.TrimSpace(f.Category)
	switch {
	case search != "":
		return `No events match "` + search + `". Try a different search or include older periods.`
	case category != "":
		return "No " + ResolveCategory(category).Label + " events in this period. Try another category or a longer window."
	default:
		return "No events yet. New stories will show up here as they are detected."
	}
}

// ErrorMessage maps a backend error to the text shown to the user.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, backend.ErrEventNotFound) {
		return MsgEventNotFound
	}
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	return MsgUnreachable
}

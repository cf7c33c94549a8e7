package view

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/nitesh/newsfront/pkg/models"
)

// EventSlug returns the event's trimmed slug, or its numeric id when the
// slug is blank. The result is path-escaped.
func EventSlug(e models.Event) string {
	if s := strings.TrimSpace(e.Slug); s != "" {
		return url.PathEscape(s)
	}
	return url.PathEscape(strconv.FormatInt(e.ID, 10))
}

// EventPath is the frontend route for an event.
func EventPath(e models.Event) string {
	return "/event/" + EventSlug(e)
}

// CountryFlag converts a two-letter country code to its flag emoji.
func CountryFlag(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 2 {
		return ""
	}
	var b strings.Builder
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return ""
		}
		b.WriteRune(0x1F1E6 + (r - 'A'))
	}
	return b.String()
}

// Package view turns backend payloads into display-ready values. Every
// function is pure and total: missing or malformed input yields a fallback
// value, never a panic or error.
package view

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const (
	dateLayout     = "Jan 2, 2006"
	timeLayout     = "15:04"
	dateTimeLayout = "Jan 2, 2006 15:04"

	TimeframeUnknown = "unknown"
)

// ParseTimestamp parses a backend timestamp in any common layout. Timestamps
// without a zone are read as UTC. ok is false for empty or unparseable input.
func ParseTimestamp(s string) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	defer func() {
		if recover() != nil {
			t, ok = time.Time{}, false
		}
	}()
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatEventTimeframe renders an event's first-seen/last-updated pair as one of:
//
//	unknown
//	since Oct 1, 2025
//	last update Oct 1, 2025 11:00
//	Oct 1, 2025 · 07:00–11:00
//	Oct 1, 2025–Oct 3, 2025 · 11:00
func FormatEventTimeframe(firstSeen, lastUpdated string, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	start, hasStart := ParseTimestamp(firstSeen)
	end, hasEnd := ParseTimestamp(lastUpdated)

	switch {
	case !hasStart && !hasEnd:
		return TimeframeUnknown
	case hasStart && !hasEnd:
		return "since " + start.In(loc).Format(dateLayout)
	case !hasStart && hasEnd:
		return "last update " + end.In(loc).Format(dateTimeLayout)
	}

	start, end = start.In(loc), end.In(loc)
	if sameDay(start, end) {
		return start.Format(dateLayout) + " · " + start.Format(timeLayout) + "–" + end.Format(timeLayout)
	}
	return start.Format(dateLayout) + "–" + end.Format(dateLayout) + " · " + end.Format(timeLayout)
}

// FormatTimestamp renders a single timestamp, or "" when it cannot be parsed.
func FormatTimestamp(s string, loc *time.Location) string {
	t, ok := ParseTimestamp(s)
	if !ok {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(dateTimeLayout)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatEventTimeframe(t *testing.T) {
	tests := []struct {
		name        string
		firstSeen   string
		lastUpdated string
		want        string
	}{
		{name: "same day", firstSeen: "2025-10-01T07:00:00Z", lastUpdated: "2025-10-01T11:00:00Z", want: "Oct 1, 2025 · 07:00–11:00"},
		{name: "different days", firstSeen: "2025-10-01T07:00:00Z", lastUpdated: "2025-10-03T18:30:00Z", want: "Oct 1, 2025–Oct 3, 2025 · 18:30"},
		{name: "only start", firstSeen: "2025-10-01T07:00:00Z", want: "since Oct 1, 2025"},
		{name: "only end", lastUpdated: "2025-10-01T11:00:00Z", want: "last update Oct 1, 2025 11:00"},
		{name: "both missing", want: TimeframeUnknown},
		{name: "unparseable treated as missing", firstSeen: "not a date", lastUpdated: "???", want: TimeframeUnknown},
		{name: "naive timestamp read as UTC", firstSeen: "2025-10-01 07:00:00", lastUpdated: "2025-10-01 09:15:00", want: "Oct 1, 2025 · 07:00–09:15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatEventTimeframe(tt.firstSeen, tt.lastUpdated, time.UTC))
		})
	}
}

func TestFormatEventTimeframe_UsesDisplayZone(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)

	// 23:00Z is already the next day at UTC+3.
	got := FormatEventTimeframe("2025-10-01T20:00:00Z", "2025-10-01T23:00:00Z", loc)
	assert.Equal(t, "Oct 1, 2025–Oct 2, 2025 · 02:00", got)
}

func TestFormatEventTimeframe_NilLocation(t *testing.T) {
	got := FormatEventTimeframe("2025-10-01T07:00:00Z", "2025-10-01T11:00:00Z", nil)
	assert.Equal(t, "Oct 1, 2025 · 07:00–11:00", got)
}

func TestFormatEventTimeframe_Total(t *testing.T) {
	inputs := []string{"", " ", "0", "2025-13-45", "\x00", "yesterday", "2025-10-01T07:00:00Z"}
	for _, a := range inputs {
		for _, b := range inputs {
			assert.NotPanics(t, func() {
				assert.NotEmpty(t, FormatEventTimeframe(a, b, time.UTC))
			})
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	ts, ok := ParseTimestamp("2025-10-01T07:00:00+02:00")
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 10, 1, 5, 0, 0, 0, time.UTC), ts.UTC())

	_, ok = ParseTimestamp("")
	assert.False(t, ok)
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "Oct 1, 2025 07:00", FormatTimestamp("2025-10-01T07:00:00Z", time.UTC))
	assert.Equal(t, "", FormatTimestamp("garbage", time.UTC))
}

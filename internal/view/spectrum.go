package view

import (
	"math"
	"sort"
	"strings"

	"github.com/nitesh/newsfront/pkg/models"
)

// Spectrum keys.
const (
	SpectrumLeft        = "left"
	SpectrumCenterLeft  = "center-left"
	SpectrumCenter      = "center"
	SpectrumCenterRight = "center-right"
	SpectrumRight       = "right"
)

var spectrumLabels = map[string]string{
	SpectrumLeft:        "Left",
	SpectrumCenterLeft:  "Center-Left",
	SpectrumCenter:      "Center",
	SpectrumCenterRight: "Center-Right",
	SpectrumRight:       "Right",
}

// spectrumOrder is the left-to-right position of each known key.
var spectrumOrder = map[string]int{
	SpectrumLeft:        0,
	SpectrumCenterLeft:  1,
	SpectrumCenter:      2,
	SpectrumCenterRight: 3,
	SpectrumRight:       4,
}

// SpectrumBadge is one display bucket of an event's spectrum distribution.
type SpectrumBadge struct {
	Key     string
	Label   string
	Count   int
	Percent int
}

// SpectrumTag is a resolved article spectrum.
type SpectrumTag struct {
	Key    string
	Label  string
	Detail string // raw score ("7.5/10") for score-valued input
}

// Known reports whether the tag resolved to anything.
func (t SpectrumTag) Known() bool {
	return t.Key != ""
}

// ResolveSpectrumBadges normalises a distribution into badges sorted by count
// descending (ties by key), dropping non-positive counts. Keys that spell a
// known position differently are merged; unknown keys keep their own name.
func ResolveSpectrumBadges(d models.SpectrumDistribution) []SpectrumBadge {
	counts := map[string]int{}
	total := 0
	for _, c := range d {
		if c.Count <= 0 {
			continue
		}
		key := canonicalSpectrumKey(c.Key)
		if key == "" {
			continue
		}
		counts[key] += c.Count
		total += c.Count
	}

	badges := make([]SpectrumBadge, 0, len(counts))
	for key, n := range counts {
		badges = append(badges, SpectrumBadge{
			Key:     key,
			Label:   spectrumLabel(key),
			Count:   n,
			Percent: int(math.Round(float64(n) * 100 / float64(total))),
		})
	}
	sort.Slice(badges, func(i, j int) bool {
		if badges[i].Count != badges[j].Count {
			return badges[i].Count > badges[j].Count
		}
		return badges[i].Key < badges[j].Key
	})
	return badges
}

// SpectrumDistributionFromBadges converts badges back into a distribution.
func SpectrumDistributionFromBadges(badges []SpectrumBadge) models.SpectrumDistribution {
	out := make(models.SpectrumDistribution, 0, len(badges))
	for _, b := range badges {
		out = append(out, models.SpectrumCount{Key: b.Key, Count: b.Count})
	}
	return out
}

// ResolveSpectrum maps either spectrum variant onto a position. Scores are
// bucketed on a 0-10 scale: [0,2) left, [2,4) center-left, [4,6] center,
// (6,8] center-right, (8,10] right. Out-of-range scores resolve to nothing.
func ResolveSpectrum(s models.Spectrum) SpectrumTag {
	switch s.Kind {
	case models.SpectrumLabel:
		key := canonicalSpectrumKey(s.Label)
		if key == "" {
			return SpectrumTag{}
		}
		return SpectrumTag{Key: key, Label: spectrumLabel(key)}
	case models.SpectrumScore:
		key := scoreBucket(s.Score)
		if key == "" {
			return SpectrumTag{}
		}
		return SpectrumTag{Key: key, Label: spectrumLabel(key), Detail: formatScore(s.Score) + "/10"}
	default:
		return SpectrumTag{}
	}
}

// SpectrumPosition returns the left-to-right index of a known key, or -1.
func SpectrumPosition(key string) int {
	if p, ok := spectrumOrder[key]; ok {
		return p
	}
	return -1
}

func scoreBucket(score float64) string {
	switch {
	case math.IsNaN(score) || score < 0 || score > 10:
		return ""
	case score < 2:
		return SpectrumLeft
	case score < 4:
		return SpectrumCenterLeft
	case score <= 6:
		return SpectrumCenter
	case score <= 8:
		return SpectrumCenterRight
	default:
		return SpectrumRight
	}
}

// canonicalSpectrumKey folds spelling variants ("Center Left", "centre_left")
// onto known keys and leaves unknown keys untouched apart from trimming.
func canonicalSpectrumKey(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	k := strings.ToLower(raw)
	k = strings.NewReplacer("_", "-", " ", "-", "centre", "center").Replace(k)
	if _, ok := spectrumLabels[k]; ok {
		return k
	}
	return raw
}

func spectrumLabel(key string) string {
	if l, ok := spectrumLabels[key]; ok {
		return l
	}
	return key
}

func formatScore(f float64) string {
	r := math.Round(f*10) / 10
	if r == math.Trunc(r) {
		return formatInt(int(r))
	}
	return formatFloat1(r)
}

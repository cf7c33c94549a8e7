package view

import (
	"strings"

	"github.com/nitesh/newsfront/pkg/models"
)

// HasInsightsContent reports whether any section of in is worth rendering.
// A nil result, or one with every section empty, has no content.
func HasInsightsContent(in *models.Insights) bool {
	if in == nil {
		return false
	}
	if strings.TrimSpace(in.Summary) != "" {
		return true
	}
	if len(in.Timeline) > 0 || len(in.Perspectives) > 0 || len(in.Fallacies) > 0 ||
		len(in.Contradictions) > 0 || len(in.CoverageGaps) > 0 {
		return true
	}
	for _, sec := range FindingSections(in) {
		if len(sec.Findings) > 0 {
			return true
		}
	}
	return hasPlurality(in.ScientificPlurality)
}

func hasPlurality(p *models.PluralityAssessment) bool {
	if p == nil {
		return false
	}
	return strings.TrimSpace(p.Summary) != "" || len(p.Perspectives) > 0 || p.Score != 0
}

// FindingSection is one titled critical-analysis section.
type FindingSection struct {
	Title    string
	Findings []models.Finding
}

// FindingSections lists the critical-analysis sections of in in display
// order, including empty ones.
func FindingSections(in *models.Insights) []FindingSection {
	if in == nil {
		return nil
	}
	return []FindingSection{
		{Title: "Unsubstantiated claims", Findings: in.UnsubstantiatedClaims},
		{Title: "Authority analysis", Findings: in.AuthorityAnalysis},
		{Title: "Media analysis", Findings: in.MediaAnalysis},
		{Title: "Statistical issues", Findings: in.StatisticalIssues},
		{Title: "Timing analysis", Findings: in.TimingAnalysis},
	}
}

package coach

import (
	"sort"

	"northstar/internal/catalog"
	"northstar/internal/comb"
)

// Alert is the most severe signal seen for one domain.
type Alert struct {
	ID              string         `json:"id"`
	AssessmentID    string         `json:"assessmentId"`
	Label           string         `json:"label"`
	Domain          string         `json:"domain"`
	DomainLabel     string         `json:"domainLabel"`
	SeverityLabel   string         `json:"severityLabel"`
	Score           float64        `json:"score"`
	PillarIDs       []string       `json:"pillarIds"`
	FocusArea       comb.FocusArea `json:"focusArea"`
	Interpretation  string         `json:"interpretation,omitempty"`
	Recommendations []string       `json:"recommendations"`
}

// BuildAlerts keeps the highest-severity signal per domain. The result is in
// first-seen domain order; on equal scores the earlier signal wins.
func BuildAlerts(signals []AssessmentSignal, cat *catalog.Catalog) []Alert {
	byDomain := make(map[string]int, len(signals))
	out := make([]Alert, 0, len(signals))

	for _, s := range signals {
		domain := cat.Domain(s.Domain)
		alert := Alert{
			ID:              "alert-" + s.Domain,
			AssessmentID:    s.ID,
			Label:           s.Label,
			Domain:          s.Domain,
			DomainLabel:     domain.Label,
			SeverityLabel:   s.SeverityLabel,
			Score:           s.SeverityScore,
			PillarIDs:       append([]string{}, s.PillarIDs...),
			FocusArea:       domain.FocusArea,
			Interpretation:  s.Interpretation,
			Recommendations: append([]string{}, s.Recommendations...),
		}

		i, seen := byDomain[s.Domain]
		if !seen {
			byDomain[s.Domain] = len(out)
			out = append(out, alert)
			continue
		}
		if alert.Score > out[i].Score {
			out[i] = alert
		}
	}
	return out
}

// rankAlerts returns a copy sorted by score, highest first, stable on ties.
func rankAlerts(alerts []Alert) []Alert {
	ranked := append([]Alert(nil), alerts...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// Watchouts returns alerts at or above threshold, highest first, at most limit.
func Watchouts(alerts []Alert, threshold float64, limit int) []Alert {
	if limit < 0 {
		limit = 0
	}
	out := make([]Alert, 0, limit)
	for _, a := range rankAlerts(alerts) {
		if len(out) >= limit {
			break
		}
		if a.Score >= threshold {
			out = append(out, a)
		}
	}
	return out
}

// openPillar returns the first mapped pillar the user can access that is
// not already taken.
func (a Alert) openPillar(accessible, taken map[string]bool) (string, bool) {
	for _, id := range a.PillarIDs {
		if taken[id] {
			continue
		}
		if accessible == nil || accessible[id] {
			return id, true
		}
	}
	return "", false
}

func (a Alert) covers(pillarID string) bool {
	for _, id := range a.PillarIDs {
		if id == pillarID {
			return true
		}
	}
	return false
}

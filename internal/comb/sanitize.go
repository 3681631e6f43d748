package comb

import (
	"math"
	"strings"
)

// Clamp bounds v to [lo, hi]. NaN collapses to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Round2 rounds to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Sanitized is the fully defaulted form of a Snapshot. Everything after
// Sanitize may assume well-formed input.
type Sanitized struct {
	Scores        Scores
	Pillars       []PillarMetric
	FocusPillarID string
}

// Sanitize normalizes a snapshot using the scorer's defaults.
func (c Config) Sanitize(s Snapshot) Sanitized {
	out := Sanitized{
		Scores:        c.SanitizeScores(s.Capability, s.Opportunity, s.Motivation),
		Pillars:       make([]PillarMetric, 0, len(s.PillarMetrics)),
		FocusPillarID: s.FocusPillarID.Trim(),
	}

	seen := make(map[string]bool, len(s.PillarMetrics))
	for _, raw := range s.PillarMetrics {
		m, ok := c.SanitizePillar(raw)
		if !ok || seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		out.Pillars = append(out.Pillars, m)
	}
	return out
}

// SanitizeScores clamps the three drivers, substituting the baseline for
// missing values.
func (c Config) SanitizeScores(capability, opportunity, motivation Number) Scores {
	return Scores{
		Capability:  Clamp(capability.Or(c.Baseline.Capability), 0, 100),
		Opportunity: Clamp(opportunity.Or(c.Baseline.Opportunity), 0, 100),
		Motivation:  Clamp(motivation.Or(c.Baseline.Motivation), 0, 100),
	}
}

// SanitizePillar normalizes one metric. It reports false when the metric has
// no id.
func (c Config) SanitizePillar(raw RawPillarMetric) (PillarMetric, bool) {
	id := raw.ID.Trim()
	if id == "" {
		return PillarMetric{}, false
	}

	name := raw.Name.Trim()
	if name == "" {
		name = c.pillarName(id)
	}

	m := PillarMetric{
		ID:         id,
		Name:       name,
		Score:      Clamp(raw.Score.Or(c.DefaultPillarScore), 0, 100),
		Trend:      raw.Trend.Or(0),
		TrendLabel: raw.TrendLabel.Trim(),
		Blockers:   cleanBlockers(raw.Blockers),
		Focus:      raw.Focus.Trim(),
	}
	if v, ok := raw.LastEntryDays.Float(); ok {
		days := Clamp(v, 0, 365)
		m.LastEntryDays = &days
	}
	if v, ok := raw.HabitConsistency.Float(); ok {
		hc := Clamp(v, 0, 100)
		m.HabitConsistency = &hc
	}
	return m, true
}

func (c Config) pillarName(id string) string {
	if c.PillarNames != nil {
		if name := strings.TrimSpace(c.PillarNames(id)); name != "" {
			return name
		}
	}
	return id
}

func cleanBlockers(in []string) []string {
	out := make([]string, 0, len(in))
	for _, b := range in {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// ComputeDeficits derives 1 - score/100 per driver, rounded to two decimals.
func ComputeDeficits(s Scores) Deficits {
	return Deficits{
		Capability:  deficit(s.Capability),
		Opportunity: deficit(s.Opportunity),
		Motivation:  deficit(s.Motivation),
	}
}

func deficit(score float64) float64 {
	return Round2(Clamp(1-Clamp(score, 0, 100)/100, 0, 1))
}

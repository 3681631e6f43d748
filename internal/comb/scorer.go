package comb

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"northstar/internal/logging"
)

// Scorer computes COM-B recommendations. A Scorer is immutable and safe for
// concurrent use.
type Scorer struct {
	cfg Config
}

// NewScorer creates a scorer with the given configuration.
func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Config returns the scorer configuration.
func (s *Scorer) Config() Config {
	return s.cfg
}

var defaultScorer = NewScorer(DefaultConfig())

// ComputeRecommendations runs the default scorer.
func ComputeRecommendations(snap Snapshot, opts Options) Result {
	return defaultScorer.Compute(snap, opts)
}

// Compute turns a snapshot into deficits, ranked pillars, recommended
// actions, a primary focus and constraints. It never panics and is
// deterministic for identical input.
func (s *Scorer) Compute(snap Snapshot, opts Options) Result {
	in := s.cfg.Sanitize(snap)
	deficits := ComputeDeficits(in.Scores)

	result := Result{
		RecommendedActions: []RecommendedAction{},
		Deficits:           deficits,
		Constraints:        []Constraint{},
		RankedPillars:      []RankedPillar{},
	}

	if len(in.Pillars) == 0 {
		logging.ScorerDebug("no pillar metrics in snapshot, returning empty result")
		return result
	}

	ranked := s.Rank(in.Pillars)
	result.RankedPillars = ranked

	limit := s.clampLimit(opts.Limit)
	order := deficits.Ordered()
	for i, p := range ranked {
		if i >= limit {
			break
		}
		area := order[i%len(order)]
		result.RecommendedActions = append(result.RecommendedActions, s.buildAction(p, area, deficits.Of(area)))
	}

	primary := selectPrimary(ranked, in.FocusPillarID)
	result.PrimaryFocus = s.primaryFocus(primary, deficits)
	result.Constraints = s.constraints(primary, deficits)

	logging.ScorerDebug("scored %d pillars: primary=%s area=%s actions=%d constraints=%d",
		len(ranked), primary.ID, result.PrimaryFocus.FocusArea, len(result.RecommendedActions), len(result.Constraints))

	return result
}

// =============================================================================
// RANKING
// =============================================================================

// Risk scores how urgently a pillar needs attention. Higher is more urgent.
func (s *Scorer) Risk(m PillarMetric) float64 {
	w := s.cfg.Weights
	risk := w.Score * (100 - m.Score)
	if m.HabitConsistency != nil {
		risk += w.Consistency * (100 - *m.HabitConsistency)
	}
	if m.LastEntryDays != nil {
		risk += w.Recency * math.Min(*m.LastEntryDays, w.RecencyCapDays)
	}
	return risk
}

// Rank annotates pillars with risk and sorts them, most urgent first.
// Equal risks keep their input order.
func (s *Scorer) Rank(pillars []PillarMetric) []RankedPillar {
	ranked := make([]RankedPillar, len(pillars))
	for i, p := range pillars {
		ranked[i] = RankedPillar{PillarMetric: p, Risk: s.Risk(p)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Risk > ranked[j].Risk
	})
	return ranked
}

func (s *Scorer) clampLimit(limit int) int {
	ceiling := s.cfg.MaxActions
	if ceiling < 1 {
		ceiling = 1
	}
	if limit == 0 {
		return ceiling
	}
	if limit < 1 {
		return 1
	}
	if limit > ceiling {
		return ceiling
	}
	return limit
}

// =============================================================================
// ACTIONS
// =============================================================================

// IntensityFor scales a deficit to an action intensity.
func (c Config) IntensityFor(deficit float64) Intensity {
	switch {
	case deficit > c.DeepThreshold:
		return IntensityDeep
	case deficit > c.MediumThreshold:
		return IntensityMedium
	default:
		return IntensityLight
	}
}

func (s *Scorer) buildAction(p RankedPillar, area FocusArea, deficit float64) RecommendedAction {
	label, description := s.cfg.Templates.Heading(area, p.Name)
	id := p.ID + "-" + string(area)

	return RecommendedAction{
		ID:          id,
		PillarID:    p.ID,
		FocusArea:   area,
		Label:       label,
		Description: description,
		Rationale: fmt.Sprintf("%s is at %.0f/100 (risk %.1f) and %s is running %.0f%% below target.",
			p.Name, p.Score, p.Risk, strings.ToLower(area.Label()), deficit*100),
		Intensity:    s.cfg.IntensityFor(deficit),
		MicroActions: s.cfg.Templates.MicroActions(area, id, p.Name),
	}
}

// =============================================================================
// PRIMARY FOCUS AND CONSTRAINTS
// =============================================================================

func selectPrimary(ranked []RankedPillar, focusID string) RankedPillar {
	if focusID != "" {
		for _, p := range ranked {
			if p.ID == focusID {
				return p
			}
		}
	}
	return ranked[0]
}

func (s *Scorer) primaryFocus(p RankedPillar, deficits Deficits) *PrimaryFocus {
	area := deficits.Top()
	reasoning := p.TrendLabel
	if reasoning == "" {
		reasoning = fmt.Sprintf("Strengthening %s is the fastest way to lift %s right now.",
			strings.ToLower(area.Label()), p.Name)
	}
	return &PrimaryFocus{
		PillarID:   p.ID,
		PillarName: p.Name,
		FocusArea:  area,
		Reasoning:  reasoning,
		Risk:       p.Risk,
	}
}

func (s *Scorer) constraints(p RankedPillar, deficits Deficits) []Constraint {
	maxNotes := s.cfg.MaxConstraints
	if maxNotes < 0 {
		maxNotes = 0
	}
	out := make([]Constraint, 0, maxNotes)

	if p.LastEntryDays != nil && *p.LastEntryDays > s.cfg.LoggingGapDays {
		out = append(out, Constraint{
			Kind:    ConstraintLoggingGap,
			Message: fmt.Sprintf("No %s entries logged in %.0f days.", p.Name, *p.LastEntryDays),
		})
	}
	if p.HabitConsistency != nil && *p.HabitConsistency < s.cfg.ConsistencyFloor {
		out = append(out, Constraint{
			Kind: ConstraintConsistency,
			Message: fmt.Sprintf("%s habit consistency is %.0f%%, below the %.0f%% target.",
				p.Name, *p.HabitConsistency, s.cfg.ConsistencyFloor),
		})
	}
	for _, area := range deficits.Ordered() {
		d := deficits.Of(area)
		if d <= s.cfg.DeficitNoteThreshold {
			continue
		}
		out = append(out, Constraint{
			Kind:      ConstraintDeficit,
			FocusArea: area,
			Message:   fmt.Sprintf("%s is %.0f%% below target.", area.Label(), d*100),
		})
	}

	if len(out) > maxNotes {
		out = out[:maxNotes]
	}
	return out
}

package comb

import (
	"fmt"
	"strings"
)

// =============================================================================
// SCORER CONFIGURATION
// =============================================================================

// RiskWeights weight the terms of the per-pillar risk score.
type RiskWeights struct {
	Score          float64 `yaml:"score"`            // Applied to (100 - score)
	Consistency    float64 `yaml:"consistency"`      // Applied to (100 - habitConsistency)
	Recency        float64 `yaml:"recency"`          // Applied to capped lastEntryDays
	RecencyCapDays float64 `yaml:"recency_cap_days"` // Cap on lastEntryDays
}

// Config is the read-only configuration of a Scorer.
type Config struct {
	// Baseline substitutes for missing or non-numeric driver scores.
	Baseline Scores

	// DefaultPillarScore substitutes for a missing or non-numeric pillar score.
	DefaultPillarScore float64

	// MaxActions is the hard ceiling on recommended actions.
	MaxActions int

	Weights RiskWeights

	// Intensity thresholds on a driver deficit (strictly greater than).
	DeepThreshold   float64
	MediumThreshold float64

	// Constraint thresholds.
	LoggingGapDays       float64
	ConsistencyFloor     float64
	DeficitNoteThreshold float64
	MaxConstraints       int

	Templates Library

	// PillarNames resolves a display name for metrics that arrive without
	// one. Nil, or an empty result, falls back to the pillar id.
	PillarNames func(id string) string
}

// DefaultConfig returns the production scorer configuration.
func DefaultConfig() Config {
	return Config{
		Baseline: Scores{
			Capability:  58,
			Opportunity: 55,
			Motivation:  57,
		},
		DefaultPillarScore: 50,
		MaxActions:         4,
		Weights: RiskWeights{
			Score:          0.6,
			Consistency:    0.25,
			Recency:        0.5,
			RecencyCapDays: 30,
		},
		DeepThreshold:        0.45,
		MediumThreshold:      0.25,
		LoggingGapDays:       4,
		ConsistencyFloor:     60,
		DeficitNoteThreshold: 0.25,
		MaxConstraints:       4,
		Templates:            DefaultLibrary(),
	}
}

// Validate checks the configuration for values the scorer cannot work with.
func (c Config) Validate() error {
	if c.MaxActions < 1 {
		return fmt.Errorf("max actions must be at least 1, got %d", c.MaxActions)
	}
	if c.MaxConstraints < 0 {
		return fmt.Errorf("max constraints must not be negative, got %d", c.MaxConstraints)
	}
	if c.MediumThreshold > c.DeepThreshold {
		return fmt.Errorf("medium threshold %.2f exceeds deep threshold %.2f", c.MediumThreshold, c.DeepThreshold)
	}
	for _, s := range []float64{c.Baseline.Capability, c.Baseline.Opportunity, c.Baseline.Motivation} {
		if s < 0 || s > 100 {
			return fmt.Errorf("baseline score %.1f out of range [0,100]", s)
		}
	}
	return c.Templates.Validate()
}

// =============================================================================
// MICRO-ACTION TEMPLATE LIBRARY
// =============================================================================

// pillarPlaceholder is replaced by the pillar's display name.
const pillarPlaceholder = "{pillar}"

// MicroActionTemplate is one copy template. Text may contain {pillar}.
type MicroActionTemplate struct {
	Label       string
	Description string
	Rationale   string
}

// AreaTemplate holds the copy for one focus area.
type AreaTemplate struct {
	Label        string
	Description  string
	MicroActions []MicroActionTemplate
}

// Library holds one AreaTemplate per focus area, indexed in Areas order.
type Library [areaCount]AreaTemplate

// For returns the template for an area. Unknown areas fall back to motivation.
func (l Library) For(area FocusArea) AreaTemplate {
	i := area.index()
	if i < 0 {
		i = 0
	}
	return l[i]
}

// Validate reports areas without copy.
func (l Library) Validate() error {
	for i, area := range Areas {
		if l[i].Label == "" {
			return fmt.Errorf("template library has no label for %s", area)
		}
		if len(l[i].MicroActions) == 0 {
			return fmt.Errorf("template library has no micro-actions for %s", area)
		}
	}
	return nil
}

// Heading renders the area label and description for a pillar.
func (l Library) Heading(area FocusArea, pillarName string) (label, description string) {
	tmpl := l.For(area)
	return fill(tmpl.Label, pillarName), fill(tmpl.Description, pillarName)
}

// MicroActions renders up to three micro-actions for a pillar. idPrefix is
// joined with a 1-based ordinal to form each id.
func (l Library) MicroActions(area FocusArea, idPrefix, pillarName string) []MicroAction {
	tmpl := l.For(area)
	n := len(tmpl.MicroActions)
	if n > maxMicroActions {
		n = maxMicroActions
	}

	out := make([]MicroAction, 0, n)
	for i := 0; i < n; i++ {
		t := tmpl.MicroActions[i]
		out = append(out, MicroAction{
			ID:          fmt.Sprintf("%s-%d", idPrefix, i+1),
			Label:       fill(t.Label, pillarName),
			Description: fill(t.Description, pillarName),
			Rationale:   fill(t.Rationale, pillarName),
		})
	}
	return out
}

const maxMicroActions = 3

func fill(text, pillarName string) string {
	return strings.ReplaceAll(text, pillarPlaceholder, pillarName)
}

// DefaultLibrary returns the built-in coaching copy.
func DefaultLibrary() Library {
	return Library{
		// Motivation
		{
			Label:       "Reconnect {pillar} to your why",
			Description: "Tie your next {pillar} step to something you care about so starting feels worth it.",
			MicroActions: []MicroActionTemplate{
				{
					Label:       "Name your reason",
					Description: "Write one sentence on why {pillar} matters to you this week.",
					Rationale:   "A personal reason makes the first step easier to start.",
				},
				{
					Label:       "Celebrate a small win",
					Description: "Note one thing that went well with {pillar} today, however small.",
					Rationale:   "Noticing progress feeds the drive to continue.",
				},
				{
					Label:       "Picture the payoff",
					Description: "Spend one minute imagining how better {pillar} would change tomorrow.",
					Rationale:   "A vivid outcome raises follow-through.",
				},
			},
		},
		// Opportunity
		{
			Label:       "Make {pillar} easier to do",
			Description: "Shape your surroundings and schedule so {pillar} has a clear time and place.",
			MicroActions: []MicroActionTemplate{
				{
					Label:       "Block the time",
					Description: "Put a 10-minute {pillar} slot in your calendar for tomorrow.",
					Rationale:   "Protected time removes the need to find a gap.",
				},
				{
					Label:       "Set a visible cue",
					Description: "Place a reminder for {pillar} where you will see it at the right moment.",
					Rationale:   "A cue in your environment prompts the habit without willpower.",
				},
				{
					Label:       "Remove one obstacle",
					Description: "Pick one thing that gets in the way of {pillar} and clear it tonight.",
					Rationale:   "Less friction means more chances to act.",
				},
			},
		},
		// Capability
		{
			Label:       "Build your {pillar} skills",
			Description: "Start with a version of your {pillar} habit small enough to succeed at, then grow it.",
			MicroActions: []MicroActionTemplate{
				{
					Label:       "Shrink the step",
					Description: "Choose a {pillar} action you can finish in under two minutes.",
					Rationale:   "Tiny steps build confidence and skill together.",
				},
				{
					Label:       "Learn one technique",
					Description: "Read or watch one short guide on a {pillar} technique today.",
					Rationale:   "Knowing how lowers the effort to begin.",
				},
				{
					Label:       "Practice and reflect",
					Description: "After your next {pillar} attempt, note what worked and one tweak to try.",
					Rationale:   "Reflection turns repetition into skill.",
				},
			},
		},
	}
}

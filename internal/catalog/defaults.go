package catalog

import (
	"northstar/internal/comb"
)

// DefaultWatchoutThreshold is the minimum severity for an alert to surface.
const DefaultWatchoutThreshold = 0.35

// DefaultUnknownSeverity is the score for unrecognized severity labels.
const DefaultUnknownSeverity = 0.2

// Defaults returns the raw built-in tables. Callers get a fresh copy.
func Defaults() Catalog {
	return Catalog{
		Pillars: []Pillar{
			{ID: "sleep", Name: "Sleep", Color: "#6C5CE7"},
			{ID: "diet", Name: "Diet", Color: "#00B894"},
			{ID: "exercise", Name: "Exercise", Color: "#E17055"},
			{ID: "physical_health", Name: "Physical Health", Color: "#D63031"},
			{ID: "mental_health", Name: "Mental Health", Color: "#0984E3"},
			{ID: "finances", Name: "Finances", Color: "#FDCB6E"},
			{ID: "social", Name: "Social", Color: "#E84393"},
			{ID: "spirituality", Name: "Spirituality", Color: "#A29BFE"},
		},
		Assessments: []AssessmentDef{
			{ID: "phq9", Domain: "mental_health", Label: "PHQ-9 depression screen"},
			{ID: "gad7", Domain: "mental_health", Label: "GAD-7 anxiety screen"},
			{ID: "adhd", Domain: "neurodiversity", Label: "ADHD self-report"},
			{ID: "aq10", Domain: "neurodiversity", Label: "AQ-10 autism screen"},
			{ID: "sleep_hygiene", Domain: "sleep", Label: "Sleep hygiene index"},
			{ID: "diet_quality", Domain: "nutrition", Label: "Diet quality check"},
			{ID: "exercise_readiness", Domain: "fitness", Label: "Exercise readiness check"},
			{ID: "social_support", Domain: "relationships", Label: "Social support scale"},
		},
		Domains: []Domain{
			{ID: "mental_health", Label: "Mental health", PillarIDs: []string{"mental_health"}, FocusArea: comb.Motivation},
			{ID: "neurodiversity", Label: "Neurodiversity", PillarIDs: []string{"mental_health"}, FocusArea: comb.Capability},
			{ID: "sleep", Label: "Sleep", PillarIDs: []string{"sleep"}, FocusArea: comb.Opportunity},
			{ID: "nutrition", Label: "Nutrition", PillarIDs: []string{"diet"}, FocusArea: comb.Capability},
			{ID: "fitness", Label: "Fitness", PillarIDs: []string{"exercise", "physical_health"}, FocusArea: comb.Opportunity},
			{ID: "relationships", Label: "Relationships", PillarIDs: []string{"social"}, FocusArea: comb.Opportunity},
			{ID: GeneralDomain, Label: "General wellbeing", PillarIDs: nil, FocusArea: comb.Motivation},
		},
		Severities: map[string]float64{
			"none":             0,
			"minimal":          0.15,
			"mild":             0.25,
			"moderate":         0.45,
			"moderatelysevere": 0.6,
			"severe":           0.75,
			"extremelysevere":  0.85,
		},
		UnknownSeverity:   DefaultUnknownSeverity,
		WatchoutThreshold: DefaultWatchoutThreshold,
	}
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return MustNew(Defaults())
}

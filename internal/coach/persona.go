package coach

import (
	"northstar/internal/comb"
)

// Persona frames coaching tone around the user's weakest COM-B driver.
type Persona struct {
	Key        comb.FocusArea `json:"key"`
	Label      string         `json:"label"`
	Tagline    string         `json:"tagline"`
	Summary    string         `json:"summary"`
	FocusLabel string         `json:"focusLabel"`
}

// Personas holds exactly one descriptor per driver.
type Personas struct {
	Motivation  Persona
	Opportunity Persona
	Capability  Persona
}

// For returns the persona for a driver. Unknown drivers get motivation.
func (p Personas) For(area comb.FocusArea) Persona {
	switch area {
	case comb.Opportunity:
		return p.Opportunity
	case comb.Capability:
		return p.Capability
	default:
		return p.Motivation
	}
}

// DefaultPersonas returns the built-in persona descriptors.
func DefaultPersonas() Personas {
	return Personas{
		Motivation: Persona{
			Key:        comb.Motivation,
			Label:      "Spark Seeker",
			Tagline:    "Reconnect with your why and let momentum build.",
			Summary:    "Your biggest gap right now is motivation, so each step is anchored to what matters most to you.",
			FocusLabel: comb.Motivation.Label(),
		},
		Opportunity: Persona{
			Key:        comb.Opportunity,
			Label:      "Environment Designer",
			Tagline:    "Shape your days so good habits happen by default.",
			Summary:    "Your biggest gap right now is opportunity, so each step makes the healthy choice the easy one in your routine.",
			FocusLabel: comb.Opportunity.Label(),
		},
		Capability: Persona{
			Key:        comb.Capability,
			Label:      "Skill Builder",
			Tagline:    "Small, learnable steps that add up.",
			Summary:    "Your biggest gap right now is capability, so each step starts small enough to master before it grows.",
			FocusLabel: comb.Capability.Label(),
		},
	}
}

// selectPersona picks the driver with the largest deficit. Ties resolve in
// the order motivation, opportunity, capability.
func selectPersona(d comb.Deficits) comb.FocusArea {
	return d.Top()
}

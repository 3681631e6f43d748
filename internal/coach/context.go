package coach

import (
	"northstar/internal/comb"
)

// Context is the slice of a profile handed to the prompt layer. Engine
// internals such as scores, ids and assessment payloads are left out.
type Context struct {
	Persona        string            `json:"persona"`
	PersonaTagline string            `json:"personaTagline"`
	FocusArea      string            `json:"focusArea"`
	Summary        string            `json:"summary"`
	Deficits       comb.Deficits     `json:"deficits"`
	Priorities     []ContextPriority `json:"priorities"`
	Watchouts      []ContextWatchout `json:"watchouts"`
}

// ContextPriority is a priority pillar reduced to its coaching copy.
type ContextPriority struct {
	PillarID  string         `json:"pillarId"`
	Name      string         `json:"name"`
	FocusArea comb.FocusArea `json:"focusArea"`
	Intensity comb.Intensity `json:"intensity"`
	Actions   []string       `json:"actions"`
}

// ContextWatchout keeps only label, severity and domain of an alert.
type ContextWatchout struct {
	Label    string `json:"label"`
	Severity string `json:"severity"`
	Domain   string `json:"domain"`
}

// BuildContext reshapes a profile for prompt construction. A nil profile
// yields nil.
func (b *Builder) BuildContext(p *Profile) *Context {
	if p == nil {
		return nil
	}

	ctx := &Context{
		Persona:        p.Persona,
		PersonaTagline: p.PersonaTagline,
		FocusArea:      p.FocusArea,
		Summary:        p.Summary,
		Deficits:       p.ComBDeficits,
		Priorities:     make([]ContextPriority, 0, len(p.PriorityPillars)),
		Watchouts:      make([]ContextWatchout, 0, len(p.Alerts)),
	}

	for _, pp := range p.PriorityPillars {
		actions := make([]string, 0, len(pp.MicroActions))
		for _, m := range pp.MicroActions {
			actions = append(actions, m.Label)
		}
		ctx.Priorities = append(ctx.Priorities, ContextPriority{
			PillarID:  pp.PillarID,
			Name:      pp.Name,
			FocusArea: pp.FocusArea,
			Intensity: pp.Intensity,
			Actions:   actions,
		})
	}

	for _, a := range p.Alerts {
		domain := a.DomainLabel
		if domain == "" {
			domain = b.cat.Domain(a.Domain).Label
		}
		ctx.Watchouts = append(ctx.Watchouts, ContextWatchout{
			Label:    a.Label,
			Severity: a.SeverityLabel,
			Domain:   domain,
		})
	}
	return ctx
}

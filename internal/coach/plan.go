package coach

import (
	"strings"

	"northstar/internal/comb"
	"northstar/internal/logging"
)

// PillarPlan is the coaching plan for one pillar.
type PillarPlan struct {
	PriorityPillar
	Persona        string `json:"persona"`
	PersonaTagline string `json:"personaTagline"`
	Alert          *Alert `json:"alert,omitempty"`
}

// PillarPlan returns the plan for pillarID. An existing priority pillar is
// preferred; otherwise a plan is built from the most severe profile alert
// covering the pillar. It returns nil when neither exists.
func (b *Builder) PillarPlan(pillarID string, p *Profile) *PillarPlan {
	pillarID = strings.TrimSpace(pillarID)
	if p == nil || pillarID == "" {
		return nil
	}

	alert := strongestAlert(p.Alerts, pillarID)

	for _, pp := range p.PriorityPillars {
		if pp.PillarID != pillarID {
			continue
		}
		plan := &PillarPlan{
			PriorityPillar: clonePriority(pp),
			Persona:        p.Persona,
			PersonaTagline: p.PersonaTagline,
			Alert:          alert,
		}
		logging.CoachDebug("plan for %s from priority pillars", pillarID)
		return plan
	}

	if alert == nil {
		logging.CoachDebug("no plan for %s", pillarID)
		return nil
	}

	logging.CoachDebug("plan for %s synthesized from %s", pillarID, alert.ID)
	return &PillarPlan{
		PriorityPillar: b.fromAlert(*alert, pillarID, p.ComBDeficits),
		Persona:        p.Persona,
		PersonaTagline: p.PersonaTagline,
		Alert:          alert,
	}
}

func strongestAlert(alerts []Alert, pillarID string) *Alert {
	var best *Alert
	for i := range alerts {
		if !alerts[i].covers(pillarID) {
			continue
		}
		if best == nil || alerts[i].Score > best.Score {
			a := alerts[i]
			a.PillarIDs = append([]string{}, a.PillarIDs...)
			a.Recommendations = append([]string{}, a.Recommendations...)
			best = &a
		}
	}
	return best
}

func clonePriority(pp PriorityPillar) PriorityPillar {
	pp.MicroActions = append([]comb.MicroAction{}, pp.MicroActions...)
	return pp
}

// Package coach builds the user-facing adaptive coaching profile from COM-B
// scorer output and screening assessments.
//
// Like the scorer, every function here is pure: a Builder holds only
// read-only tables and each call allocates its own output.
package coach

import (
	"fmt"
	"sort"
	"strings"

	"northstar/internal/catalog"
	"northstar/internal/comb"
	"northstar/internal/logging"
)

const (
	maxPriorityPillars = 3
	maxWatchouts       = 3
	firstActionBonus   = 0.05
)

// PrioritySource tells where a priority pillar came from.
type PrioritySource string

const (
	SourceRecommendation PrioritySource = "recommendation"
	SourceAlert          PrioritySource = "alert"
)

// User is the slice of the user document the builder reads.
type User struct {
	ID          comb.Text   `json:"id,omitempty"`
	Name        comb.Text   `json:"name,omitempty"`
	Assessments Assessments `json:"assessments"`
}

// Input is everything BuildProfile consumes. All fields are optional.
type Input struct {
	User              *User         `json:"user,omitempty"`
	Insights          *comb.Result  `json:"comBInsights,omitempty"`
	AccessiblePillars comb.TextList `json:"accessiblePillars,omitempty"`
}

// PriorityPillar is one ranked pillar with copy-ready micro-actions.
type PriorityPillar struct {
	PillarID      string             `json:"pillarId"`
	Name          string             `json:"name"`
	Color         string             `json:"color,omitempty"`
	FocusArea     comb.FocusArea     `json:"focusArea"`
	Intensity     comb.Intensity     `json:"intensity"`
	PriorityScore float64            `json:"priorityScore"`
	Source        PrioritySource     `json:"source"`
	ActionID      string             `json:"actionId,omitempty"`
	AlertID       string             `json:"alertId,omitempty"`
	Label         string             `json:"label"`
	Description   string             `json:"description"`
	Rationale     string             `json:"rationale"`
	MicroActions  []comb.MicroAction `json:"microActions"`
}

// Profile is the adaptive coaching profile.
type Profile struct {
	UserID          string             `json:"userId,omitempty"`
	Persona         string             `json:"persona"`
	PersonaKey      comb.FocusArea     `json:"personaKey"`
	PersonaTagline  string             `json:"personaTagline"`
	FocusArea       string             `json:"focusArea"`
	Summary         string             `json:"summary"`
	ComBDeficits    comb.Deficits      `json:"comBDeficits"`
	PriorityPillars []PriorityPillar   `json:"priorityPillars"`
	Alerts          []Alert            `json:"alerts"`
	Assessments     []AssessmentSignal `json:"assessments"`
}

// Builder assembles profiles. It is immutable and safe for concurrent use.
type Builder struct {
	cat      *catalog.Catalog
	cfg      comb.Config
	personas Personas
}

// NewBuilder creates a builder. A nil catalog uses the built-in tables.
func NewBuilder(cat *catalog.Catalog, cfg comb.Config) *Builder {
	if cat == nil {
		cat = catalog.Default()
	}
	return &Builder{cat: cat, cfg: cfg, personas: DefaultPersonas()}
}

// WithPersonas returns a copy of the builder using other persona copy.
func (b *Builder) WithPersonas(p Personas) *Builder {
	cp := *b
	cp.personas = p
	return &cp
}

// Catalog returns the catalog the builder reads.
func (b *Builder) Catalog() *catalog.Catalog {
	return b.cat
}

// BuildProfile merges assessments and scorer insights into one profile.
// It returns nil when there is nothing to show: no priorities, no
// watchouts, no assessments and no insights.
func (b *Builder) BuildProfile(in Input) *Profile {
	var raw Assessments
	userID := ""
	if in.User != nil {
		raw = in.User.Assessments
		userID = in.User.ID.Trim()
	}

	signals := NormalizeAssessments(raw, b.cat)
	alerts := BuildAlerts(signals, b.cat)

	var deficits comb.Deficits
	var actions []comb.RecommendedAction
	if in.Insights != nil {
		deficits = sanitizeDeficits(in.Insights.Deficits)
		actions = in.Insights.RecommendedActions
	}

	priorities := b.priorityPillars(actions, alerts, deficits, accessibleSet(in.AccessiblePillars))
	watchouts := Watchouts(alerts, b.cat.WatchoutThreshold, maxWatchouts)

	if len(priorities) == 0 && len(watchouts) == 0 && len(signals) == 0 && in.Insights == nil {
		logging.CoachDebug("no signal for user %q, no profile", userID)
		return nil
	}

	persona := b.personas.For(selectPersona(deficits))
	profile := &Profile{
		UserID:          userID,
		Persona:         persona.Label,
		PersonaKey:      persona.Key,
		PersonaTagline:  persona.Tagline,
		FocusArea:       persona.FocusLabel,
		Summary:         summarize(persona, watchouts),
		ComBDeficits:    deficits,
		PriorityPillars: priorities,
		Alerts:          watchouts,
		Assessments:     signals,
	}

	logging.CoachDebug("profile for %q: persona=%s priorities=%d watchouts=%d assessments=%d",
		userID, persona.Key, len(priorities), len(watchouts), len(signals))
	return profile
}

func sanitizeDeficits(d comb.Deficits) comb.Deficits {
	return comb.Deficits{
		Capability:  comb.Clamp(d.Capability, 0, 1),
		Opportunity: comb.Clamp(d.Opportunity, 0, 1),
		Motivation:  comb.Clamp(d.Motivation, 0, 1),
	}
}

// accessibleSet returns nil when every pillar is accessible.
func accessibleSet(ids []string) map[string]bool {
	var set map[string]bool
	for _, id := range ids {
		if id = strings.TrimSpace(id); id == "" {
			continue
		}
		if set == nil {
			set = make(map[string]bool, len(ids))
		}
		set[id] = true
	}
	return set
}

// =============================================================================
// PRIORITY PILLARS
// =============================================================================

// priorityPillars merges recommended actions and alert-only candidates.
// Recommended actions are inserted first; for each pillar the first entry
// wins. The merged set is sorted by priority score, stable on ties.
func (b *Builder) priorityPillars(actions []comb.RecommendedAction, alerts []Alert, deficits comb.Deficits, accessible map[string]bool) []PriorityPillar {
	merged := make([]PriorityPillar, 0, len(actions)+len(alerts))
	seen := make(map[string]bool, len(actions)+len(alerts))

	for i, action := range actions {
		pillarID := strings.TrimSpace(action.PillarID)
		if pillarID == "" || seen[pillarID] {
			continue
		}
		if accessible != nil && !accessible[pillarID] {
			continue
		}
		seen[pillarID] = true
		merged = append(merged, b.fromAction(action, pillarID, i == 0, alerts, deficits))
	}

	for _, alert := range rankAlerts(alerts) {
		if alert.Score < b.cat.WatchoutThreshold {
			continue
		}
		pillarID, ok := alert.openPillar(accessible, seen)
		if !ok {
			continue
		}
		seen[pillarID] = true
		merged = append(merged, b.fromAlert(alert, pillarID, deficits))
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].PriorityScore > merged[j].PriorityScore
	})
	if len(merged) > maxPriorityPillars {
		merged = merged[:maxPriorityPillars]
	}
	return merged
}

func (b *Builder) fromAction(action comb.RecommendedAction, pillarID string, first bool, alerts []Alert, deficits comb.Deficits) PriorityPillar {
	area := action.FocusArea
	if !area.Valid() {
		area = deficits.Top()
	}

	var alertScore float64
	var alertID string
	for _, a := range alerts {
		if a.covers(pillarID) && a.Score > alertScore {
			alertScore = a.Score
			alertID = a.ID
		}
	}

	score := 0.6*alertScore + 0.4*deficits.Of(area)
	if first {
		score += firstActionBonus
	}

	intensity := action.Intensity
	if intensity == "" {
		intensity = b.cfg.IntensityFor(deficits.Of(area))
	}

	name := b.cat.PillarName(pillarID)
	micro := append([]comb.MicroAction{}, action.MicroActions...)
	if len(micro) == 0 {
		micro = b.cfg.Templates.MicroActions(area, pillarID+"-"+string(area), name)
	}

	return PriorityPillar{
		PillarID:      pillarID,
		Name:          name,
		Color:         b.cat.PillarColor(pillarID),
		FocusArea:     area,
		Intensity:     intensity,
		PriorityScore: comb.Round2(score),
		Source:        SourceRecommendation,
		ActionID:      action.ID,
		AlertID:       alertID,
		Label:         action.Label,
		Description:   action.Description,
		Rationale:     action.Rationale,
		MicroActions:  micro,
	}
}

func (b *Builder) fromAlert(alert Alert, pillarID string, deficits comb.Deficits) PriorityPillar {
	area := alert.FocusArea
	if !area.Valid() {
		area = deficits.Top()
	}
	deficit := deficits.Of(area)
	name := b.cat.PillarName(pillarID)
	label, description := b.cfg.Templates.Heading(area, name)

	return PriorityPillar{
		PillarID:      pillarID,
		Name:          name,
		Color:         b.cat.PillarColor(pillarID),
		FocusArea:     area,
		Intensity:     b.cfg.IntensityFor(deficit),
		PriorityScore: comb.Round2(0.7*alert.Score + 0.3*deficit),
		Source:        SourceAlert,
		AlertID:       alert.ID,
		Label:         label,
		Description:   description,
		Rationale:     fmt.Sprintf("Your %s came back %s.", alert.Label, alert.SeverityLabel),
		MicroActions:  b.cfg.Templates.MicroActions(area, pillarID+"-"+alert.Domain, name),
	}
}

// summarize composes the persona summary and, when present, one sentence
// about the most severe watchout.
func summarize(p Persona, watchouts []Alert) string {
	if len(watchouts) == 0 {
		return p.Summary
	}
	top := watchouts[0]
	return fmt.Sprintf("%s We'll also keep an eye on your %s, which came back %s.",
		p.Summary, top.Label, top.SeverityLabel)
}

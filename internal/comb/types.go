// Package comb implements the COM-B behavioral scorer.
// It turns a snapshot of per-pillar metrics and the three behavioral drivers
// (capability, opportunity, motivation) into deficits, a risk-ranked pillar
// list and a small set of recommended actions.
//
// The scorer is a pure function of its input: it performs no I/O, keeps no
// state between calls and never panics on malformed input.
package comb

import (
	"bytes"
	"encoding/json"
	"sort"
)

// =============================================================================
// FOCUS AREAS
// =============================================================================

// FocusArea is one of the three COM-B behavioral drivers.
type FocusArea string

const (
	Motivation  FocusArea = "motivation"
	Opportunity FocusArea = "opportunity"
	Capability  FocusArea = "capability"
)

// areaCount is the number of behavioral drivers.
const areaCount = 3

// Areas lists the drivers in their fixed tie-break order.
var Areas = [areaCount]FocusArea{Motivation, Opportunity, Capability}

// index maps an area to its slot in Areas. Unknown areas return -1.
func (a FocusArea) index() int {
	switch a {
	case Motivation:
		return 0
	case Opportunity:
		return 1
	case Capability:
		return 2
	}
	return -1
}

// Valid reports whether a is one of the three drivers.
func (a FocusArea) Valid() bool {
	return a.index() >= 0
}

// Label returns the display label for the area.
func (a FocusArea) Label() string {
	switch a {
	case Motivation:
		return "Motivation"
	case Opportunity:
		return "Opportunity"
	case Capability:
		return "Capability"
	}
	return string(a)
}

// Intensity scales a recommended action by the size of its driver deficit.
type Intensity string

const (
	IntensityLight  Intensity = "Light"
	IntensityMedium Intensity = "Medium"
	IntensityDeep   Intensity = "Deep"
)

// =============================================================================
// SCORES AND DEFICITS
// =============================================================================

// Scores holds the three sanitized behavioral driver scores, each in [0,100].
type Scores struct {
	Capability  float64 `json:"capability" yaml:"capability"`
	Opportunity float64 `json:"opportunity" yaml:"opportunity"`
	Motivation  float64 `json:"motivation" yaml:"motivation"`
}

// Deficits holds the normalized shortfall per driver, each in [0,1].
type Deficits struct {
	Capability  float64 `json:"capability"`
	Opportunity float64 `json:"opportunity"`
	Motivation  float64 `json:"motivation"`
}

// Of returns the deficit for a driver. Unknown areas have no deficit.
func (d Deficits) Of(area FocusArea) float64 {
	switch area {
	case Motivation:
		return d.Motivation
	case Opportunity:
		return d.Opportunity
	case Capability:
		return d.Capability
	}
	return 0
}

// Ordered returns the drivers sorted by deficit, largest first.
// Ties keep the fixed order motivation, opportunity, capability.
func (d Deficits) Ordered() []FocusArea {
	order := make([]FocusArea, 0, areaCount)
	order = append(order, Areas[:]...)
	sort.SliceStable(order, func(i, j int) bool {
		return d.Of(order[i]) > d.Of(order[j])
	})
	return order
}

// Top returns the single most-deficient driver.
func (d Deficits) Top() FocusArea {
	return d.Ordered()[0]
}

// =============================================================================
// INPUT SNAPSHOT
// =============================================================================

// Snapshot is the raw, caller-assembled input to the scorer.
// Every field may be missing or malformed; Sanitize repairs it.
type Snapshot struct {
	Capability    Number            `json:"capability"`
	Opportunity   Number            `json:"opportunity"`
	Motivation    Number            `json:"motivation"`
	PillarMetrics []RawPillarMetric `json:"pillarMetrics"`
	FocusPillarID Text              `json:"focusPillarId,omitempty"`
}

// UnmarshalJSON decodes field by field. A non-object snapshot or a
// non-array pillarMetrics decodes as empty.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	*s = Snapshot{}
	if !isJSONObject(data) {
		return nil
	}

	var raw struct {
		Capability    Number          `json:"capability"`
		Opportunity   Number          `json:"opportunity"`
		Motivation    Number          `json:"motivation"`
		PillarMetrics json.RawMessage `json:"pillarMetrics"`
		FocusPillarID Text            `json:"focusPillarId"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	s.Capability, s.Opportunity, s.Motivation = raw.Capability, raw.Opportunity, raw.Motivation
	s.FocusPillarID = raw.FocusPillarID

	trimmed := bytes.TrimSpace(raw.PillarMetrics)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var metrics []RawPillarMetric
		if err := json.Unmarshal(trimmed, &metrics); err == nil {
			s.PillarMetrics = metrics
		}
	}
	return nil
}

// RawPillarMetric is one unsanitized per-pillar metric from the metrics provider.
type RawPillarMetric struct {
	ID               Text     `json:"id"`
	Name             Text     `json:"name,omitempty"`
	Score            Number   `json:"score"`
	Trend            Number   `json:"trend"`
	TrendLabel       Text     `json:"trendLabel,omitempty"`
	LastEntryDays    Number   `json:"lastEntryDays"`
	HabitConsistency Number   `json:"habitConsistency"`
	Blockers         TextList `json:"blockers,omitempty"`
	Focus            Text     `json:"focus,omitempty"`
}

// UnmarshalJSON decodes a non-object entry as an empty metric, which
// Sanitize then drops for lacking an id.
func (m *RawPillarMetric) UnmarshalJSON(data []byte) error {
	*m = RawPillarMetric{}
	if !isJSONObject(data) {
		return nil
	}
	type plain RawPillarMetric
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return nil
	}
	*m = RawPillarMetric(p)
	return nil
}

func isJSONObject(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// PillarMetric is a sanitized per-pillar metric. Numeric fields are clamped
// into range; nil pointers mean the value was not reported.
type PillarMetric struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Score            float64  `json:"score"`
	Trend            float64  `json:"trend"`
	TrendLabel       string   `json:"trendLabel,omitempty"`
	LastEntryDays    *float64 `json:"lastEntryDays"`
	HabitConsistency *float64 `json:"habitConsistency"`
	Blockers         []string `json:"blockers"`
	Focus            string   `json:"focus,omitempty"`
}

// RankedPillar is a PillarMetric annotated with its risk score.
type RankedPillar struct {
	PillarMetric
	Risk float64 `json:"risk"`
}

// =============================================================================
// OUTPUT
// =============================================================================

// MicroAction is a small, copy-ready step tied to one focus area.
type MicroAction struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Rationale   string `json:"rationale"`
}

// RecommendedAction is one intervention for one pillar.
type RecommendedAction struct {
	ID           string        `json:"id"`
	PillarID     string        `json:"pillarId"`
	FocusArea    FocusArea     `json:"focusArea"`
	Label        string        `json:"label"`
	Description  string        `json:"description"`
	Rationale    string        `json:"rationale"`
	Intensity    Intensity     `json:"intensity"`
	MicroActions []MicroAction `json:"microActions"`
}

// PrimaryFocus names the pillar and driver the user should work on first.
type PrimaryFocus struct {
	PillarID   string    `json:"pillarId"`
	PillarName string    `json:"pillarName"`
	FocusArea  FocusArea `json:"focusArea"`
	Reasoning  string    `json:"reasoning"`
	Risk       float64   `json:"risk"`
}

// ConstraintKind classifies a constraint note.
type ConstraintKind string

const (
	ConstraintLoggingGap  ConstraintKind = "logging_gap"
	ConstraintConsistency ConstraintKind = "consistency"
	ConstraintDeficit     ConstraintKind = "deficit"
)

// Constraint is a short note about what is holding the primary pillar back.
type Constraint struct {
	Kind      ConstraintKind `json:"kind"`
	FocusArea FocusArea      `json:"focusArea,omitempty"`
	Message   string         `json:"message"`
}

// Result is the scorer output. Slices are never nil.
type Result struct {
	PrimaryFocus       *PrimaryFocus       `json:"primaryFocus"`
	RecommendedActions []RecommendedAction `json:"recommendedActions"`
	Deficits           Deficits            `json:"deficits"`
	Constraints        []Constraint        `json:"constraints"`
	RankedPillars      []RankedPillar      `json:"rankedPillars"`
}

// Options tunes a single Compute call.
type Options struct {
	// Limit bounds the number of recommended actions. Zero means the
	// configured maximum; values are clamped to [1, MaxActions].
	Limit int `json:"limit,omitempty"`
}

// Package catalog holds the read-only lookup tables the coaching engine is
// configured with: the pillar catalog, the assessment→domain table, the
// domain→pillar/focus-area table and the severity vocabulary.
//
// A Catalog is immutable once built. Lookups never fail; unknown keys fall
// back to neutral defaults (the raw id, the "general" domain, severity 0.2).
package catalog

import (
	"fmt"
	"strings"

	"northstar/internal/comb"
)

// GeneralDomain is the domain for assessments with no mapping.
const GeneralDomain = "general"

// Pillar is one tracked life domain.
type Pillar struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Color string `yaml:"color" json:"color"`
}

// AssessmentDef maps a screening instrument to its domain.
type AssessmentDef struct {
	ID     string `yaml:"id" json:"id"`
	Domain string `yaml:"domain" json:"domain"`
	Label  string `yaml:"label" json:"label"`
}

// Domain groups assessments and maps them onto pillars and a COM-B driver.
type Domain struct {
	ID        string         `yaml:"id" json:"id"`
	Label     string         `yaml:"label" json:"label"`
	PillarIDs []string       `yaml:"pillars" json:"pillarIds"`
	FocusArea comb.FocusArea `yaml:"focus_area" json:"focusArea"`
}

// Catalog is the complete set of lookup tables.
type Catalog struct {
	Pillars           []Pillar           `yaml:"pillars" json:"pillars"`
	Assessments       []AssessmentDef    `yaml:"assessments" json:"assessments"`
	Domains           []Domain           `yaml:"domains" json:"domains"`
	Severities        map[string]float64 `yaml:"severities" json:"severities"`
	UnknownSeverity   float64            `yaml:"unknown_severity" json:"unknownSeverity"`
	WatchoutThreshold float64            `yaml:"watchout_threshold" json:"watchoutThreshold"`

	pillars     map[string]Pillar
	assessments map[string]AssessmentDef
	domains     map[string]Domain
}

// New validates and indexes a catalog. The input slices are copied.
func New(c Catalog) (*Catalog, error) {
	out := &Catalog{
		Pillars:           append([]Pillar(nil), c.Pillars...),
		Assessments:       append([]AssessmentDef(nil), c.Assessments...),
		Domains:           make([]Domain, 0, len(c.Domains)),
		Severities:        make(map[string]float64, len(c.Severities)),
		UnknownSeverity:   c.UnknownSeverity,
		WatchoutThreshold: c.WatchoutThreshold,
	}
	for _, d := range c.Domains {
		d.PillarIDs = append([]string(nil), d.PillarIDs...)
		out.Domains = append(out.Domains, d)
	}
	for label, score := range c.Severities {
		out.Severities[NormalizeSeverity(label)] = score
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}
	out.index()
	return out, nil
}

// MustNew is New for built-in tables; it panics on invalid input.
func MustNew(c Catalog) *Catalog {
	out, err := New(c)
	if err != nil {
		panic(err)
	}
	return out
}

// Validate rejects tables the engine cannot use.
func (c *Catalog) Validate() error {
	seen := make(map[string]bool, len(c.Pillars))
	for _, p := range c.Pillars {
		if strings.TrimSpace(p.ID) == "" {
			return fmt.Errorf("pillar with empty id")
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate pillar id %q", p.ID)
		}
		seen[p.ID] = true
	}

	domains := make(map[string]bool, len(c.Domains))
	for _, d := range c.Domains {
		if strings.TrimSpace(d.ID) == "" {
			return fmt.Errorf("domain with empty id")
		}
		if domains[d.ID] {
			return fmt.Errorf("duplicate domain id %q", d.ID)
		}
		domains[d.ID] = true
		if !d.FocusArea.Valid() {
			return fmt.Errorf("domain %q has unknown focus area %q", d.ID, d.FocusArea)
		}
	}

	for _, a := range c.Assessments {
		if strings.TrimSpace(a.ID) == "" {
			return fmt.Errorf("assessment with empty id")
		}
		if a.Domain != GeneralDomain && !domains[a.Domain] {
			return fmt.Errorf("assessment %q references unknown domain %q", a.ID, a.Domain)
		}
	}

	for label, score := range c.Severities {
		if score < 0 || score > 1 {
			return fmt.Errorf("severity %q score %.2f out of range [0,1]", label, score)
		}
	}
	if c.UnknownSeverity < 0 || c.UnknownSeverity > 1 {
		return fmt.Errorf("unknown severity %.2f out of range [0,1]", c.UnknownSeverity)
	}
	if c.WatchoutThreshold < 0 || c.WatchoutThreshold > 1 {
		return fmt.Errorf("watchout threshold %.2f out of range [0,1]", c.WatchoutThreshold)
	}
	return nil
}

func (c *Catalog) index() {
	c.pillars = make(map[string]Pillar, len(c.Pillars))
	for _, p := range c.Pillars {
		c.pillars[p.ID] = p
	}
	c.assessments = make(map[string]AssessmentDef, len(c.Assessments))
	for _, a := range c.Assessments {
		c.assessments[normalizeKey(a.ID)] = a
	}
	c.domains = make(map[string]Domain, len(c.Domains))
	for _, d := range c.Domains {
		c.domains[d.ID] = d
	}
}

// =============================================================================
// LOOKUPS
// =============================================================================

// Pillar returns the catalog entry for id.
func (c *Catalog) Pillar(id string) (Pillar, bool) {
	p, ok := c.pillars[id]
	return p, ok
}

// PillarName returns the display name for id, or id itself when unknown.
func (c *Catalog) PillarName(id string) string {
	if p, ok := c.pillars[id]; ok && p.Name != "" {
		return p.Name
	}
	return id
}

// PillarColor returns the display color for id, or "" when unknown.
func (c *Catalog) PillarColor(id string) string {
	return c.pillars[id].Color
}

// Assessment returns the definition of an assessment id. Ids are matched
// case-insensitively, ignoring spaces, hyphens and underscores.
func (c *Catalog) Assessment(id string) (AssessmentDef, bool) {
	a, ok := c.assessments[normalizeKey(id)]
	return a, ok
}

// DomainOf returns the domain for an assessment id, or GeneralDomain.
func (c *Catalog) DomainOf(assessmentID string) string {
	if a, ok := c.Assessment(assessmentID); ok && a.Domain != "" {
		return a.Domain
	}
	return GeneralDomain
}

// AssessmentLabel returns the display label for an assessment id, or the id.
func (c *Catalog) AssessmentLabel(assessmentID string) string {
	if a, ok := c.Assessment(assessmentID); ok && a.Label != "" {
		return a.Label
	}
	return assessmentID
}

// Domain returns the domain definition. Unknown domains resolve to a
// general domain with no pillars and a motivation focus.
func (c *Catalog) Domain(id string) Domain {
	if d, ok := c.domains[id]; ok {
		return d
	}
	return Domain{ID: GeneralDomain, Label: "General wellbeing", FocusArea: comb.Motivation}
}

// SeverityScore maps a free-text severity label to [0,1].
func (c *Catalog) SeverityScore(label string) float64 {
	if score, ok := c.Severities[NormalizeSeverity(label)]; ok {
		return score
	}
	return c.UnknownSeverity
}

// NormalizeSeverity lower-cases a label and strips spaces, hyphens and
// underscores, so "Moderately Severe" matches "moderatelysevere".
func NormalizeSeverity(label string) string {
	return normalizeKey(label)
}

func normalizeKey(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_', '\t':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))
}

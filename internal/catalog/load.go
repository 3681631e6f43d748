package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"northstar/internal/logging"
)

// override is the on-disk shape. Every section is optional and merges over
// the built-in tables by id.
type override struct {
	Pillars           []Pillar           `yaml:"pillars"`
	Assessments       []AssessmentDef    `yaml:"assessments"`
	Domains           []Domain           `yaml:"domains"`
	Severities        map[string]float64 `yaml:"severities"`
	UnknownSeverity   *float64           `yaml:"unknown_severity"`
	WatchoutThreshold *float64           `yaml:"watchout_threshold"`
}

// Load reads a YAML catalog override and merges it over the defaults.
// An empty path returns the defaults.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	cat, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	logging.Catalog("loaded catalog %s: %d pillars, %d assessments, %d domains",
		path, len(cat.Pillars), len(cat.Assessments), len(cat.Domains))
	return cat, nil
}

// Parse decodes a YAML override and merges it over the defaults.
func Parse(data []byte) (*Catalog, error) {
	var o override
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return New(merge(Defaults(), o))
}

// merge applies an override to base. Entries with a matching id replace the
// base entry in place; new ids are appended.
func merge(base Catalog, o override) Catalog {
	for _, p := range o.Pillars {
		if i := indexOf(len(base.Pillars), func(i int) bool { return base.Pillars[i].ID == p.ID }); i >= 0 {
			base.Pillars[i] = p
		} else {
			base.Pillars = append(base.Pillars, p)
		}
	}
	for _, a := range o.Assessments {
		if i := indexOf(len(base.Assessments), func(i int) bool { return base.Assessments[i].ID == a.ID }); i >= 0 {
			base.Assessments[i] = a
		} else {
			base.Assessments = append(base.Assessments, a)
		}
	}
	for _, d := range o.Domains {
		if i := indexOf(len(base.Domains), func(i int) bool { return base.Domains[i].ID == d.ID }); i >= 0 {
			base.Domains[i] = d
		} else {
			base.Domains = append(base.Domains, d)
		}
	}
	if base.Severities == nil {
		base.Severities = make(map[string]float64, len(o.Severities))
	}
	for label, score := range o.Severities {
		base.Severities[NormalizeSeverity(label)] = score
	}
	if o.UnknownSeverity != nil {
		base.UnknownSeverity = *o.UnknownSeverity
	}
	if o.WatchoutThreshold != nil {
		base.WatchoutThreshold = *o.WatchoutThreshold
	}
	return base
}

func indexOf(n int, match func(int) bool) int {
	for i := 0; i < n; i++ {
		if match(i) {
			return i
		}
	}
	return -1
}

// Save writes the full catalog as YAML.
func (c *Catalog) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	return nil
}

package coach

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"northstar/internal/catalog"
	"northstar/internal/comb"
)

// =============================================================================
// RAW ASSESSMENT INPUT
// =============================================================================

// RawAssessment is one screening result as the assessment provider sends it.
type RawAssessment struct {
	ID              comb.Text     `json:"id,omitempty"`
	Type            comb.Text     `json:"type,omitempty"`
	Severity        comb.Text     `json:"severity,omitempty"`
	SeverityLabel   comb.Text     `json:"severityLabel,omitempty"`
	Score           comb.Number   `json:"score"`
	Percentile      comb.Number   `json:"percentile"`
	Interpretation  comb.Text     `json:"interpretation,omitempty"`
	Recommendations comb.TextList `json:"recommendations,omitempty"`
	CompletedAt     comb.Text     `json:"completedAt,omitempty"`
}

// UnmarshalJSON accepts a full object or a bare severity string.
// Other JSON values decode as an empty assessment. Badly typed fields
// decode as absent, so one broken field never drops the collection.
func (r *RawAssessment) UnmarshalJSON(data []byte) error {
	*r = RawAssessment{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	switch trimmed[0] {
	case '"':
		return json.Unmarshal(trimmed, &r.Severity)
	case '{':
		type plain RawAssessment
		var p plain
		if err := json.Unmarshal(trimmed, &p); err != nil {
			return err
		}
		*r = RawAssessment(p)
	}
	return nil
}

func (r RawAssessment) severity() string {
	if s := r.Severity.Trim(); s != "" {
		return s
	}
	return r.SeverityLabel.Trim()
}

func (r RawAssessment) id() string {
	if id := r.ID.Trim(); id != "" {
		return id
	}
	return r.Type.Trim()
}

// KeyedAssessment is one entry of an ordered keyed collection.
type KeyedAssessment struct {
	Key   string
	Value RawAssessment
}

// =============================================================================
// ASSESSMENTS TAGGED UNION
// =============================================================================

type assessmentShape int

const (
	shapeNone assessmentShape = iota
	shapeKeyed
	shapeList
	shapeRecord
)

// Assessments is the raw assessment collection in one of three shapes:
// an ordered keyed map, a list, or a plain object (Go map). The zero value
// is an empty collection. Normalize is the only way to read it.
type Assessments struct {
	shape  assessmentShape
	keyed  []KeyedAssessment
	list   []RawAssessment
	record map[string]RawAssessment
}

// FromKeyed builds a collection from ordered key/payload pairs.
func FromKeyed(entries ...KeyedAssessment) Assessments {
	return Assessments{shape: shapeKeyed, keyed: append([]KeyedAssessment(nil), entries...)}
}

// FromList builds a collection from payloads that carry their own ids.
func FromList(list []RawAssessment) Assessments {
	return Assessments{shape: shapeList, list: append([]RawAssessment(nil), list...)}
}

// FromRecord builds a collection from a plain map. Keys are visited in
// sorted order since Go maps have none.
func FromRecord(record map[string]RawAssessment) Assessments {
	cp := make(map[string]RawAssessment, len(record))
	for k, v := range record {
		cp[k] = v
	}
	return Assessments{shape: shapeRecord, record: cp}
}

// Len returns the number of raw entries.
func (a Assessments) Len() int {
	switch a.shape {
	case shapeKeyed:
		return len(a.keyed)
	case shapeList:
		return len(a.list)
	case shapeRecord:
		return len(a.record)
	}
	return 0
}

// entries flattens any shape into ordered (id, payload) pairs. Entries
// without a resolvable id are dropped.
func (a Assessments) entries() []KeyedAssessment {
	var out []KeyedAssessment
	add := func(key string, v RawAssessment) {
		key = strings.TrimSpace(key)
		if key == "" {
			key = v.id()
		}
		if key == "" {
			return
		}
		out = append(out, KeyedAssessment{Key: key, Value: v})
	}

	switch a.shape {
	case shapeKeyed:
		for _, e := range a.keyed {
			add(e.Key, e.Value)
		}
	case shapeList:
		for _, v := range a.list {
			add("", v)
		}
	case shapeRecord:
		keys := make([]string, 0, len(a.record))
		for k := range a.record {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			add(k, a.record[k])
		}
	}
	return out
}

// UnmarshalJSON decodes a JSON array as a list and a JSON object as an
// ordered keyed collection, preserving the document's key order.
func (a *Assessments) UnmarshalJSON(data []byte) error {
	*a = Assessments{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	switch trimmed[0] {
	case '[':
		var list []RawAssessment
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return fmt.Errorf("assessments: %w", err)
		}
		*a = FromList(list)
		return nil
	case '{':
		entries, err := decodeOrderedObject(trimmed)
		if err != nil {
			return fmt.Errorf("assessments: %w", err)
		}
		*a = FromKeyed(entries...)
		return nil
	}
	return fmt.Errorf("assessments: expected array or object, got %q", trimmed[:1])
}

func decodeOrderedObject(data []byte) ([]KeyedAssessment, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var out []KeyedAssessment
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected key %v", tok)
		}
		var v RawAssessment
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, KeyedAssessment{Key: key, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

// MarshalJSON encodes every shape as a list with ids filled in.
func (a Assessments) MarshalJSON() ([]byte, error) {
	entries := a.entries()
	list := make([]RawAssessment, 0, len(entries))
	for _, e := range entries {
		v := e.Value
		v.ID = comb.Text(e.Key)
		list = append(list, v)
	}
	return json.Marshal(list)
}

// =============================================================================
// NORMALIZED SIGNALS
// =============================================================================

// AssessmentSignal is a normalized screening result.
type AssessmentSignal struct {
	ID              string     `json:"id"`
	Label           string     `json:"label"`
	Domain          string     `json:"domain"`
	PillarIDs       []string   `json:"pillarIds"`
	SeverityLabel   string     `json:"severityLabel"`
	SeverityScore   float64    `json:"severityScore"`
	Percentile      *float64   `json:"percentile,omitempty"`
	Interpretation  string     `json:"interpretation,omitempty"`
	Recommendations []string   `json:"recommendations"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
}

// unknownSeverityLabel stands in for a missing severity label.
const unknownSeverityLabel = "unknown"

// NormalizeAssessments flattens any collection shape into signals, in
// collection order. Domain, label and severity come from the catalog.
func NormalizeAssessments(a Assessments, cat *catalog.Catalog) []AssessmentSignal {
	entries := a.entries()
	out := make([]AssessmentSignal, 0, len(entries))

	for _, e := range entries {
		raw := e.Value
		domain := cat.DomainOf(e.Key)

		label := raw.severity()
		if label == "" {
			label = unknownSeverityLabel
		}

		sig := AssessmentSignal{
			ID:              e.Key,
			Label:           cat.AssessmentLabel(e.Key),
			Domain:          domain,
			PillarIDs:       append([]string{}, cat.Domain(domain).PillarIDs...),
			SeverityLabel:   label,
			SeverityScore:   comb.Clamp(cat.SeverityScore(label), 0, 1),
			Interpretation:  raw.Interpretation.Trim(),
			Recommendations: cleanStrings(raw.Recommendations),
			CompletedAt:     parseTime(string(raw.CompletedAt)),
		}
		if p, ok := raw.Percentile.Float(); ok {
			pct := comb.Clamp(p, 0, 100)
			sig.Percentile = &pct
		}
		out = append(out, sig)
	}
	return out
}

func cleanStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

var timeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

package comb

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// =============================================================================
// DEFICIT TESTS
// =============================================================================

func TestComputeDeficits(t *testing.T) {
	t.Parallel()

	for _, score := range []float64{0, 1, 12.345, 33.3, 50, 57, 99.99, 100} {
		d := ComputeDeficits(Scores{Capability: score, Opportunity: score, Motivation: score})
		want := math.Round((1-score/100)*100) / 100
		for _, area := range Areas {
			got := d.Of(area)
			if got != want {
				t.Errorf("score %v: %s deficit = %v, want %v", score, area, got, want)
			}
			if got < 0 || got > 1 {
				t.Errorf("score %v: %s deficit %v out of [0,1]", score, area, got)
			}
		}
	}
}

func TestDeficits_OrderedTies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		d    Deficits
		want []FocusArea
	}{
		{"all equal", Deficits{}, []FocusArea{Motivation, Opportunity, Capability}},
		{"capability largest", Deficits{Capability: 0.5, Opportunity: 0.2, Motivation: 0.2}, []FocusArea{Capability, Motivation, Opportunity}},
		{"opportunity ties capability", Deficits{Capability: 0.4, Opportunity: 0.4, Motivation: 0.1}, []FocusArea{Opportunity, Capability, Motivation}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, tt.d.Ordered()); diff != "" {
			t.Errorf("%s: order mismatch (-want +got):\n%s", tt.name, diff)
		}
	}
}

// =============================================================================
// SANITIZE TESTS
// =============================================================================

func TestSanitize_ScoresClampAndDefault(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	got := cfg.SanitizeScores(Num(-20), Num(140), Num(math.NaN()))

	want := Scores{Capability: 0, Opportunity: 100, Motivation: 57}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("scores mismatch (-want +got):\n%s", diff)
	}
}

func TestSanitize_Pillar(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	m, ok := cfg.SanitizePillar(RawPillarMetric{
		ID:               "  sleep ",
		Score:            Num(-5),
		Trend:            Num(math.Inf(1)),
		LastEntryDays:    Num(900),
		HabitConsistency: Num(120),
		Blockers:         []string{"  shift work", "", " "},
	})
	if !ok {
		t.Fatal("expected pillar to sanitize")
	}

	days, consistency := 365.0, 100.0
	want := PillarMetric{
		ID:               "sleep",
		Name:             "sleep",
		Score:            0,
		Trend:            0,
		LastEntryDays:    &days,
		HabitConsistency: &consistency,
		Blockers:         []string{"shift work"},
	}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("pillar mismatch (-want +got):\n%s", diff)
	}
}

func TestSanitize_DefaultsAndDuplicates(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	in := cfg.Sanitize(Snapshot{PillarMetrics: []RawPillarMetric{
		{ID: "sleep", Name: "Sleep"},
		{ID: ""},
		{ID: "sleep", Name: "Second sleep", Score: Num(10)},
		{ID: "diet", Score: Num(70)},
	}})

	if len(in.Pillars) != 2 {
		t.Fatalf("got %d pillars, want 2", len(in.Pillars))
	}
	if in.Pillars[0].Name != "Sleep" || in.Pillars[0].Score != 50 {
		t.Errorf("first pillar = %+v, want Sleep at default score 50", in.Pillars[0])
	}
	if in.Pillars[0].LastEntryDays != nil || in.Pillars[0].HabitConsistency != nil {
		t.Error("unreported fields should stay nil")
	}
	if in.Pillars[1].ID != "diet" {
		t.Errorf("second pillar = %q, want diet", in.Pillars[1].ID)
	}
}

// =============================================================================
// NUMBER TESTS
// =============================================================================

func TestNumber_UnmarshalTolerant(t *testing.T) {
	t.Parallel()

	data := []byte(`{
		"capability": "40",
		"opportunity": "abc",
		"motivation": null,
		"pillarMetrics": [
			{"id": "sleep", "score": {"nested": true}, "lastEntryDays": " 3 ", "habitConsistency": false}
		]
	}`)

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	in := DefaultConfig().Sanitize(snap)
	want := Scores{Capability: 40, Opportunity: 55, Motivation: 57}
	if diff := cmp.Diff(want, in.Scores); diff != "" {
		t.Errorf("scores mismatch (-want +got):\n%s", diff)
	}

	p := in.Pillars[0]
	if p.Score != 50 {
		t.Errorf("Score = %v, want default 50", p.Score)
	}
	if p.LastEntryDays == nil || *p.LastEntryDays != 3 {
		t.Errorf("LastEntryDays = %v, want 3", p.LastEntryDays)
	}
	if p.HabitConsistency != nil {
		t.Errorf("HabitConsistency = %v, want nil", *p.HabitConsistency)
	}
}

func TestNumber_Marshal(t *testing.T) {
	t.Parallel()

	got, err := json.Marshal([]Number{Num(1.5), {}, Num(math.NaN())})
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if string(got) != "[1.5,null,null]" {
		t.Errorf("got %s, want [1.5,null,null]", got)
	}
}

// =============================================================================
// TEXT TESTS
// =============================================================================

func TestText_UnmarshalTolerant(t *testing.T) {
	t.Parallel()

	var v struct {
		A Text     `json:"a"`
		B Text     `json:"b"`
		C TextList `json:"c"`
		D TextList `json:"d"`
		E TextList `json:"e"`
	}
	data := []byte(`{"a": " sleep ", "b": 7, "c": "time", "d": ["cost", 3, null, "energy"], "e": {"x": 1}}`)
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if v.A.Trim() != "sleep" {
		t.Errorf("A = %q, want sleep", v.A)
	}
	if v.B != "" {
		t.Errorf("B = %q, want empty", v.B)
	}
	if diff := cmp.Diff(TextList{"time"}, v.C); diff != "" {
		t.Errorf("C mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(TextList{"cost", "energy"}, v.D); diff != "" {
		t.Errorf("D mismatch (-want +got):\n%s", diff)
	}
	if v.E != nil {
		t.Errorf("E = %v, want nil", v.E)
	}
}

func TestSnapshot_BadPillarFieldsKeepOthers(t *testing.T) {
	t.Parallel()

	data := []byte(`{
		"motivation": 30,
		"focusPillarId": 9,
		"pillarMetrics": [
			{"id": "diet", "blockers": "time", "trendLabel": false},
			{"id": 7, "score": 10},
			"sleep",
			{"id": "sleep", "name": ["Sleep"], "score": 45, "focus": {}}
		]
	}`)

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	in := DefaultConfig().Sanitize(snap)
	if in.FocusPillarID != "" {
		t.Errorf("FocusPillarID = %q, want empty", in.FocusPillarID)
	}
	if in.Scores.Motivation != 30 {
		t.Errorf("Motivation = %v, want 30", in.Scores.Motivation)
	}
	if len(in.Pillars) != 2 {
		t.Fatalf("got %d pillars, want 2", len(in.Pillars))
	}
	if in.Pillars[0].ID != "diet" || in.Pillars[1].ID != "sleep" {
		t.Errorf("pillars = %q, %q, want diet, sleep", in.Pillars[0].ID, in.Pillars[1].ID)
	}
	if diff := cmp.Diff([]string{"time"}, in.Pillars[0].Blockers); diff != "" {
		t.Errorf("blockers mismatch (-want +got):\n%s", diff)
	}
	if in.Pillars[1].Name != "sleep" || in.Pillars[1].Score != 45 {
		t.Errorf("second pillar = %+v, want sleep at 45", in.Pillars[1])
	}
}

func TestSnapshot_NonArrayPillarMetrics(t *testing.T) {
	t.Parallel()

	for _, doc := range []string{
		`{"capability": 20, "pillarMetrics": {"id": "sleep"}}`,
		`{"capability": 20, "pillarMetrics": "sleep"}`,
	} {
		var snap Snapshot
		if err := json.Unmarshal([]byte(doc), &snap); err != nil {
			t.Fatalf("Unmarshal(%s) error: %v", doc, err)
		}
		if len(snap.PillarMetrics) != 0 {
			t.Errorf("Unmarshal(%s) kept %d metrics, want 0", doc, len(snap.PillarMetrics))
		}
		if v, ok := snap.Capability.Float(); !ok || v != 20 {
			t.Errorf("Unmarshal(%s) capability = %v, want 20", doc, v)
		}
	}
}

// =============================================================================
// PILLAR NAME TESTS
// =============================================================================

func TestSanitize_PillarNames(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.PillarNames = func(id string) string {
		if id == "physical_health" {
			return "Physical Health"
		}
		return "  "
	}

	in := cfg.Sanitize(Snapshot{PillarMetrics: []RawPillarMetric{
		{ID: "physical_health"},
		{ID: "diet", Name: "Food"},
		{ID: "social"},
	}})

	got := []string{in.Pillars[0].Name, in.Pillars[1].Name, in.Pillars[2].Name}
	if diff := cmp.Diff([]string{"Physical Health", "Food", "social"}, got); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

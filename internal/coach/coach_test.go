package coach

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"northstar/internal/catalog"
	"northstar/internal/comb"
)

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	return NewBuilder(catalog.Default(), comb.DefaultConfig())
}

func decodeUser(t *testing.T, doc string) *User {
	t.Helper()
	var u User
	require.NoError(t, json.Unmarshal([]byte(doc), &u))
	return &u
}

// insights builds scorer output for sleep (motivation) then diet (opportunity).
func insights() *comb.Result {
	res := comb.ComputeRecommendations(comb.Snapshot{
		Capability:  comb.Num(90),
		Opportunity: comb.Num(70),
		Motivation:  comb.Num(50),
		PillarMetrics: []comb.RawPillarMetric{
			{ID: "sleep", Name: "Sleep", Score: comb.Num(20)},
			{ID: "diet", Name: "Diet", Score: comb.Num(40)},
		},
	}, comb.Options{Limit: 2})
	return &res
}

// =============================================================================
// ASSESSMENT NORMALIZATION TESTS
// =============================================================================

func TestNormalizeAssessments_PlainObject(t *testing.T) {
	t.Parallel()

	u := decodeUser(t, `{"assessments": {"phq9": {"severity": "moderate"}}}`)
	signals := NormalizeAssessments(u.Assessments, catalog.Default())

	require.Len(t, signals, 1)
	assert.Equal(t, "phq9", signals[0].ID)
	assert.Equal(t, "mental_health", signals[0].Domain)
	assert.Equal(t, 0.45, signals[0].SeverityScore)
	assert.Equal(t, []string{"mental_health"}, signals[0].PillarIDs)
}

func TestNormalizeAssessments_Shapes(t *testing.T) {
	t.Parallel()

	cat := catalog.Default()
	keyed := FromKeyed(
		KeyedAssessment{Key: "gad7", Value: RawAssessment{Severity: "Mild"}},
		KeyedAssessment{Key: "phq9", Value: RawAssessment{SeverityLabel: "Moderately Severe"}},
	)
	list := FromList([]RawAssessment{
		{ID: "gad7", Severity: "mild"},
		{Type: "phq9", Severity: "moderately-severe"},
		{Severity: "severe"},
	})
	record := FromRecord(map[string]RawAssessment{
		"phq9": {Severity: "moderately_severe"},
		"gad7": {Severity: "MILD"},
	})

	ids := func(a Assessments) []string {
		var out []string
		for _, s := range NormalizeAssessments(a, cat) {
			out = append(out, s.ID)
		}
		return out
	}
	want := []string{"gad7", "phq9"}
	for name, a := range map[string]Assessments{"keyed": keyed, "list": list, "record": record} {
		if diff := cmp.Diff(want, ids(a)); diff != "" {
			t.Errorf("%s: ids mismatch (-want +got):\n%s", name, diff)
		}
	}

	signals := NormalizeAssessments(list, cat)
	assert.Equal(t, 0.25, signals[0].SeverityScore)
	assert.Equal(t, 0.6, signals[1].SeverityScore)
}

func TestNormalizeAssessments_ObjectKeepsDocumentOrder(t *testing.T) {
	t.Parallel()

	u := decodeUser(t, `{"assessments": {"sleep_hygiene": "mild", "adhd": {"severity": "severe"}, "custom": {}}}`)
	signals := NormalizeAssessments(u.Assessments, catalog.Default())

	require.Len(t, signals, 3)
	assert.Equal(t, "sleep_hygiene", signals[0].ID)
	assert.Equal(t, "mild", signals[0].SeverityLabel)
	assert.Equal(t, "neurodiversity", signals[1].Domain)
	assert.Equal(t, catalog.GeneralDomain, signals[2].Domain)
	assert.Equal(t, "unknown", signals[2].SeverityLabel)
	assert.Equal(t, 0.2, signals[2].SeverityScore)
	assert.Equal(t, "custom", signals[2].Label)
}

func TestNormalizeAssessments_Fields(t *testing.T) {
	t.Parallel()

	u := decodeUser(t, `{"assessments": [{
		"id": "phq9",
		"severity": "mild",
		"percentile": "140",
		"interpretation": "  Some low mood  ",
		"recommendations": ["Talk to someone", " "],
		"completedAt": "2024-03-01"
	}]}`)
	signals := NormalizeAssessments(u.Assessments, catalog.Default())

	require.Len(t, signals, 1)
	s := signals[0]
	require.NotNil(t, s.Percentile)
	assert.Equal(t, 100.0, *s.Percentile)
	assert.Equal(t, "Some low mood", s.Interpretation)
	assert.Equal(t, []string{"Talk to someone"}, s.Recommendations)
	require.NotNil(t, s.CompletedAt)
	assert.Equal(t, 2024, s.CompletedAt.Year())
}

func TestAssessments_UnmarshalRejectsScalars(t *testing.T) {
	t.Parallel()

	var a Assessments
	assert.Error(t, json.Unmarshal([]byte(`42`), &a))
	assert.NoError(t, json.Unmarshal([]byte(`null`), &a))
	assert.Equal(t, 0, a.Len())
}

func TestNormalizeAssessments_BadFieldKeepsCollection(t *testing.T) {
	t.Parallel()

	cat := catalog.Default()

	u := decodeUser(t, `{"assessments": {
		"phq9": {"severity": "moderate", "recommendations": "talk to someone"},
		"gad7": {"severity": "severe"}
	}}`)
	signals := NormalizeAssessments(u.Assessments, cat)
	require.Len(t, signals, 2)
	assert.Equal(t, []string{"talk to someone"}, signals[0].Recommendations)
	assert.Equal(t, "severe", signals[1].SeverityLabel)

	u = decodeUser(t, `{"assessments": [
		{"id": "phq9", "severity": 3, "completedAt": 17, "interpretation": ["x"]},
		{"id": "gad7", "severity": "mild", "recommendations": ["breathe", 4, "  "]}
	]}`)
	signals = NormalizeAssessments(u.Assessments, cat)
	require.Len(t, signals, 2)
	assert.Equal(t, "phq9", signals[0].ID)
	assert.Equal(t, unknownSeverityLabel, signals[0].SeverityLabel)
	assert.Equal(t, cat.UnknownSeverity, signals[0].SeverityScore)
	assert.Nil(t, signals[0].CompletedAt)
	assert.Empty(t, signals[0].Interpretation)
	assert.Equal(t, "gad7", signals[1].ID)
	assert.Equal(t, []string{"breathe"}, signals[1].Recommendations)
}

func TestUser_BadlyTypedFields(t *testing.T) {
	t.Parallel()

	u := decodeUser(t, `{"id": 12, "name": {"first": "A"}, "assessments": {"gad7": "mild"}}`)
	assert.Empty(t, u.ID.Trim())
	assert.Empty(t, u.Name.Trim())
	assert.Equal(t, 1, u.Assessments.Len())
}

// =============================================================================
// ALERT TESTS
// =============================================================================

func TestBuildAlerts_MaxPerDomain(t *testing.T) {
	t.Parallel()

	u := decodeUser(t, `{"assessments": {
		"phq9": "moderate",
		"sleep_hygiene": "mild",
		"gad7": "severe",
		"adhd": "moderate"
	}}`)
	cat := catalog.Default()
	alerts := BuildAlerts(NormalizeAssessments(u.Assessments, cat), cat)

	require.Len(t, alerts, 3)
	assert.Equal(t, "alert-mental_health", alerts[0].ID)
	assert.Equal(t, "gad7", alerts[0].AssessmentID)
	assert.Equal(t, 0.75, alerts[0].Score)
	assert.Equal(t, "alert-sleep", alerts[1].ID)
	assert.Equal(t, comb.Opportunity, alerts[1].FocusArea)
	assert.Equal(t, comb.Capability, alerts[2].FocusArea)
}

func TestBuildAlerts_TieKeepsFirst(t *testing.T) {
	t.Parallel()

	u := decodeUser(t, `{"assessments": {"phq9": "moderate", "gad7": "moderate"}}`)
	cat := catalog.Default()
	alerts := BuildAlerts(NormalizeAssessments(u.Assessments, cat), cat)

	require.Len(t, alerts, 1)
	assert.Equal(t, "phq9", alerts[0].AssessmentID)
}

func TestWatchouts(t *testing.T) {
	t.Parallel()

	alerts := []Alert{
		{ID: "a", Score: 0.2},
		{ID: "b", Score: 0.6},
		{ID: "c", Score: 0.35},
		{ID: "d", Score: 0.85},
		{ID: "e", Score: 0.6},
	}

	var got []string
	for _, a := range Watchouts(alerts, 0.35, 3) {
		got = append(got, a.ID)
	}
	assert.Equal(t, []string{"d", "b", "e"}, got)
	assert.Empty(t, Watchouts(alerts, 0.35, -1))
}

// =============================================================================
// PROFILE TESTS
// =============================================================================

func TestBuildProfile_EmptyInputIsNil(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t)
	assert.Nil(t, b.BuildProfile(Input{}))
	assert.Nil(t, b.BuildProfile(Input{User: &User{ID: "u1"}}))
}

func TestBuildProfile_InsightsOnly(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t)
	p := b.BuildProfile(Input{Insights: &comb.Result{}})

	require.NotNil(t, p)
	assert.Equal(t, "Spark Seeker", p.Persona)
	assert.Empty(t, p.PriorityPillars)
	assert.Empty(t, p.Alerts)
}

func TestBuildProfile_AssessmentOnly(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t)
	u := decodeUser(t, `{"id": "u1", "assessments": {"phq9": {"severity": "moderately severe"}}}`)
	p := b.BuildProfile(Input{User: u})

	require.NotNil(t, p)
	assert.Equal(t, "u1", p.UserID)
	require.Len(t, p.PriorityPillars, 1)

	pp := p.PriorityPillars[0]
	assert.Equal(t, "mental_health", pp.PillarID)
	assert.Equal(t, "Mental Health", pp.Name)
	assert.Equal(t, SourceAlert, pp.Source)
	assert.InDelta(t, 0.42, pp.PriorityScore, 1e-9)
	assert.Len(t, pp.MicroActions, 3)
	assert.Equal(t, "mental_health-mental_health-1", pp.MicroActions[0].ID)

	require.Len(t, p.Alerts, 1)
	assert.Contains(t, p.Summary, "PHQ-9 depression screen")
}

func TestBuildProfile_MergesActionsAndAlerts(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t)
	u := decodeUser(t, `{"assessments": {"sleep_hygiene": "severe", "phq9": "moderate"}}`)
	p := b.BuildProfile(Input{User: u, Insights: insights()})

	require.NotNil(t, p)
	var ids []string
	for _, pp := range p.PriorityPillars {
		ids = append(ids, pp.PillarID)
	}
	// sleep: 0.6*0.75 + 0.4*0.5 + 0.05; mental health: 0.7*0.45 + 0.3*0.5; diet: 0.4*0.3
	assert.Equal(t, []string{"sleep", "mental_health", "diet"}, ids)
	assert.InDelta(t, 0.70, p.PriorityPillars[0].PriorityScore, 1e-9)
	assert.InDelta(t, 0.465, p.PriorityPillars[1].PriorityScore, 0.006)
	assert.InDelta(t, 0.12, p.PriorityPillars[2].PriorityScore, 1e-9)

	assert.Equal(t, SourceRecommendation, p.PriorityPillars[0].Source)
	assert.Equal(t, "alert-sleep", p.PriorityPillars[0].AlertID)
	assert.Equal(t, SourceAlert, p.PriorityPillars[1].Source)

	assert.Equal(t, "Spark Seeker", p.Persona)
	assert.Equal(t, comb.Motivation, p.PersonaKey)
	assert.Len(t, p.Alerts, 2)
	assert.Len(t, p.Assessments, 2)
	assert.True(t, strings.HasSuffix(p.Summary, "Sleep hygiene index, which came back severe."))
}

func TestBuildProfile_AccessiblePillars(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t)
	u := decodeUser(t, `{"assessments": {"exercise_readiness": "severe"}}`)
	p := b.BuildProfile(Input{User: u, Insights: insights(), AccessiblePillars: []string{"diet", "physical_health"}})

	require.NotNil(t, p)
	var ids []string
	for _, pp := range p.PriorityPillars {
		ids = append(ids, pp.PillarID)
	}
	assert.Equal(t, []string{"physical_health", "diet"}, ids)
}

func TestBuildProfile_AlertFallsToNextOpenPillar(t *testing.T) {
	t.Parallel()

	res := comb.ComputeRecommendations(comb.Snapshot{
		Capability:    comb.Num(90),
		Opportunity:   comb.Num(40),
		Motivation:    comb.Num(90),
		PillarMetrics: []comb.RawPillarMetric{{ID: "exercise", Name: "Exercise", Score: comb.Num(30)}},
	}, comb.Options{Limit: 1})
	require.Len(t, res.RecommendedActions, 1)

	b := newTestBuilder(t)
	u := decodeUser(t, `{"assessments": {"exercise_readiness": "severe"}}`)
	p := b.BuildProfile(Input{User: u, Insights: &res})

	require.NotNil(t, p)
	require.Len(t, p.PriorityPillars, 2)
	bySource := map[PrioritySource]string{}
	for _, pp := range p.PriorityPillars {
		bySource[pp.Source] = pp.PillarID
	}
	assert.Equal(t, "exercise", bySource[SourceRecommendation])
	assert.Equal(t, "physical_health", bySource[SourceAlert])

	// With physical_health out of reach the alert has nowhere left to go.
	p = b.BuildProfile(Input{User: u, Insights: &res, AccessiblePillars: []string{"exercise"}})
	require.NotNil(t, p)
	require.Len(t, p.PriorityPillars, 1)
	assert.Equal(t, "exercise", p.PriorityPillars[0].PillarID)
}

func TestBuildProfile_Limits(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t)
	u := decodeUser(t, `{"assessments": {
		"phq9": "severe", "adhd": "severe", "sleep_hygiene": "severe",
		"diet_quality": "severe", "exercise_readiness": "severe", "social_support": "severe"
	}}`)
	p := b.BuildProfile(Input{User: u, Insights: insights()})

	require.NotNil(t, p)
	assert.LessOrEqual(t, len(p.PriorityPillars), 3)
	assert.LessOrEqual(t, len(p.Alerts), 3)
	assert.Len(t, p.Assessments, 6)

	seen := map[string]bool{}
	for _, pp := range p.PriorityPillars {
		assert.False(t, seen[pp.PillarID], "duplicate pillar %s", pp.PillarID)
		seen[pp.PillarID] = true
	}
}

func TestBuildProfile_Deterministic(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t)
	doc := `{"assessments": {"sleep_hygiene": "severe", "phq9": "moderate", "gad7": "mild"}}`

	first, err := json.Marshal(b.BuildProfile(Input{User: decodeUser(t, doc), Insights: insights()}))
	require.NoError(t, err)
	again, err := json.Marshal(b.BuildProfile(Input{User: decodeUser(t, doc), Insights: insights()}))
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(again))
	assert.Equal(t, string(first), string(again))
}

// =============================================================================
// CONTEXT AND PLAN TESTS
// =============================================================================

func TestBuildContext(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t)
	assert.Nil(t, b.BuildContext(nil))

	u := decodeUser(t, `{"assessments": {"sleep_hygiene": "severe"}}`)
	ctx := b.BuildContext(b.BuildProfile(Input{User: u, Insights: insights()}))

	require.NotNil(t, ctx)
	require.NotEmpty(t, ctx.Priorities)
	assert.Equal(t, "sleep", ctx.Priorities[0].PillarID)
	assert.NotEmpty(t, ctx.Priorities[0].Actions)
	assert.Equal(t, []ContextWatchout{{Label: "Sleep hygiene index", Severity: "severe", Domain: "Sleep"}}, ctx.Watchouts)
}

func TestPillarPlan(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t)
	u := decodeUser(t, `{"assessments": {"sleep_hygiene": "severe", "exercise_readiness": "moderate"}}`)
	in := insights()
	in.RecommendedActions = in.RecommendedActions[:1]
	p := b.BuildProfile(Input{User: u, Insights: in})
	require.NotNil(t, p)

	t.Run("existing priority", func(t *testing.T) {
		plan := b.PillarPlan("sleep", p)
		require.NotNil(t, plan)
		assert.Equal(t, SourceRecommendation, plan.Source)
		require.NotNil(t, plan.Alert)
		assert.Equal(t, "alert-sleep", plan.Alert.ID)
		assert.Equal(t, p.Persona, plan.Persona)
	})

	t.Run("synthesized from alert", func(t *testing.T) {
		plan := b.PillarPlan("physical_health", p)
		require.NotNil(t, plan)
		assert.Equal(t, SourceAlert, plan.Source)
		assert.Equal(t, "Physical Health", plan.Name)
		assert.Equal(t, "alert-fitness", plan.AlertID)
	})

	t.Run("no match", func(t *testing.T) {
		assert.Nil(t, b.PillarPlan("finances", p))
		assert.Nil(t, b.PillarPlan("sleep", nil))
		assert.Nil(t, b.PillarPlan("", p))
	})
}

func TestPillarPlan_DoesNotAliasProfile(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t)
	p := b.BuildProfile(Input{Insights: insights()})
	require.NotNil(t, p)

	plan := b.PillarPlan("sleep", p)
	require.NotNil(t, plan)
	plan.MicroActions[0].Label = "changed"
	assert.NotEqual(t, "changed", p.PriorityPillars[0].MicroActions[0].Label)
}

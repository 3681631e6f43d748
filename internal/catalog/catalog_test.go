package catalog

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"northstar/internal/comb"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// =============================================================================
// DEFAULT TABLE TESTS
// =============================================================================

func TestDefault_AssessmentDomains(t *testing.T) {
	t.Parallel()

	cat := Default()
	want := map[string]string{
		"phq9":               "mental_health",
		"gad7":               "mental_health",
		"adhd":               "neurodiversity",
		"aq10":               "neurodiversity",
		"sleep_hygiene":      "sleep",
		"diet_quality":       "nutrition",
		"exercise_readiness": "fitness",
		"social_support":     "relationships",
	}
	for id, domain := range want {
		assert.Equal(t, domain, cat.DomainOf(id), id)
	}
	assert.Equal(t, GeneralDomain, cat.DomainOf("unknown_quiz"))
	assert.Equal(t, "mental_health", cat.DomainOf("PHQ-9"))
}

func TestDefault_SeverityScores(t *testing.T) {
	t.Parallel()

	cat := Default()
	tests := []struct {
		label string
		want  float64
	}{
		{"none", 0},
		{"minimal", 0.15},
		{"mild", 0.25},
		{"moderate", 0.45},
		{"Moderately Severe", 0.6},
		{"moderately-severe", 0.6},
		{"severe", 0.75},
		{"extremely_severe", 0.85},
		{"", 0.2},
		{"catastrophic", 0.2},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, cat.SeverityScore(tt.label), 1e-9, tt.label)
	}
}

func TestDefault_PillarFallbacks(t *testing.T) {
	t.Parallel()

	cat := Default()
	assert.Equal(t, "Physical Health", cat.PillarName("physical_health"))
	assert.Equal(t, "gardening", cat.PillarName("gardening"))
	assert.Equal(t, "", cat.PillarColor("gardening"))
	assert.Len(t, cat.Pillars, 8)

	d := cat.Domain("no-such-domain")
	assert.Equal(t, GeneralDomain, d.ID)
	assert.Equal(t, comb.Motivation, d.FocusArea)
	assert.Empty(t, d.PillarIDs)
}

func TestDefault_IsIndependentCopy(t *testing.T) {
	t.Parallel()

	raw := Defaults()
	cat := MustNew(raw)
	raw.Pillars[0].Name = "changed"
	raw.Severities["moderate"] = 0.99

	assert.Equal(t, "Sleep", cat.PillarName("sleep"))
	assert.InDelta(t, 0.45, cat.SeverityScore("moderate"), 1e-9)
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Catalog)
	}{
		{"duplicate pillar", func(c *Catalog) { c.Pillars = append(c.Pillars, Pillar{ID: "sleep"}) }},
		{"empty pillar id", func(c *Catalog) { c.Pillars = append(c.Pillars, Pillar{ID: " "}) }},
		{"bad focus area", func(c *Catalog) { c.Domains[0].FocusArea = "willpower" }},
		{"unknown domain", func(c *Catalog) {
			c.Assessments = append(c.Assessments, AssessmentDef{ID: "x", Domain: "astrology"})
		}},
		{"severity range", func(c *Catalog) { c.Severities["apocalyptic"] = 1.5 }},
		{"threshold range", func(c *Catalog) { c.WatchoutThreshold = -0.1 }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := Defaults()
			tt.mutate(&c)
			_, err := New(c)
			assert.Error(t, err)
		})
	}
}

// =============================================================================
// LOAD TESTS
// =============================================================================

const overrideYAML = `
pillars:
  - id: sleep
    name: Rest
    color: "#000000"
  - id: hobbies
    name: Hobbies
    color: "#123456"
assessments:
  - id: pss
    domain: mental_health
    label: Perceived stress scale
severities:
  High: 0.7
watchout_threshold: 0.4
`

func TestParse_MergesOverDefaults(t *testing.T) {
	t.Parallel()

	cat, err := Parse([]byte(overrideYAML))
	require.NoError(t, err)

	assert.Equal(t, "Rest", cat.PillarName("sleep"))
	assert.Equal(t, "Hobbies", cat.PillarName("hobbies"))
	assert.Len(t, cat.Pillars, 9)
	assert.Equal(t, "mental_health", cat.DomainOf("pss"))
	assert.Equal(t, "Perceived stress scale", cat.AssessmentLabel("pss"))
	assert.InDelta(t, 0.7, cat.SeverityScore("high"), 1e-9)
	assert.InDelta(t, 0.45, cat.SeverityScore("moderate"), 1e-9)
	assert.InDelta(t, 0.4, cat.WatchoutThreshold, 1e-9)
	assert.InDelta(t, DefaultUnknownSeverity, cat.UnknownSeverity, 1e-9)
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("pillars: [unclosed"))
	assert.Error(t, err)

	_, err = Parse([]byte("domains:\n  - id: sleep\n    focus_area: vibes\n"))
	assert.Error(t, err)
}

func TestLoad_EmptyPathIsDefault(t *testing.T) {
	t.Parallel()

	cat, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "Sleep", cat.PillarName("sleep"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestCatalog_SaveLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	orig, err := Parse([]byte(overrideYAML))
	require.NoError(t, err)
	require.NoError(t, orig.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, orig.Pillars, loaded.Pillars)
	assert.Equal(t, orig.Severities, loaded.Severities)
}

// =============================================================================
// WATCHER TESTS
// =============================================================================

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("watchout_threshold: 0.35\n"), 0644))

	var (
		mu   sync.Mutex
		got  []*Catalog
		done = make(chan struct{}, 1)
	)
	w, err := NewWatcher(path, func(c *Catalog) {
		mu.Lock()
		got = append(got, c)
		mu.Unlock()
		select {
		case done <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)
	w.SetDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("watchout_threshold: 0.5\n"), 0644))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, got)
	assert.InDelta(t, 0.5, got[len(got)-1].WatchoutThreshold, 1e-9)
	assert.GreaterOrEqual(t, w.Stats().Reloads, 1)
}

func TestWatcher_IgnoresInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("watchout_threshold: 0.35\n"), 0644))

	reloaded := make(chan struct{}, 1)
	w, err := NewWatcher(path, func(*Catalog) { reloaded <- struct{}{} })
	require.NoError(t, err)
	w.SetDebounce(10 * time.Millisecond)

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("watchout_threshold: 7\n"), 0644))

	assert.Eventually(t, func() bool { return w.Stats().Errors >= 1 }, 5*time.Second, 20*time.Millisecond)
	select {
	case <-reloaded:
		t.Fatal("invalid catalog must not be delivered")
	default:
	}
}

func TestWatcher_StopAfterFailedStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "catalog.yaml")

	w, err := NewWatcher(path, func(*Catalog) {})
	require.NoError(t, err)

	require.Error(t, w.Start(context.Background()), "watched directory does not exist")
	w.Stop()
	w.Stop()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	assert.Error(t, w.Start(context.Background()), "a stopped watcher cannot restart")
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"northstar/internal/catalog"
	"northstar/internal/coach"
	"northstar/internal/comb"
	"northstar/internal/store"
)

// engine bundles the scorer and builder configured from the loaded config.
type engine struct {
	catalog *catalog.Catalog
	scorer  *comb.Scorer
	builder *coach.Builder
	limit   int
}

func (o *rootOptions) engine() (*engine, error) {
	cat, err := catalog.Load(o.cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	sc := o.cfg.Engine.ScorerConfig()
	sc.PillarNames = cat.PillarName
	return &engine{
		catalog: cat,
		scorer:  comb.NewScorer(sc),
		builder: coach.NewBuilder(cat, sc),
		limit:   o.cfg.Engine.Limit(),
	}, nil
}

func (e *engine) limitFor(flag int) int {
	if flag != 0 {
		return flag
	}
	return e.limit
}

func (o *rootOptions) openStore() (*store.Store, error) {
	return store.Open(o.cfg.Store.DatabasePath)
}

// readInput reads a file, or stdin when path is "-".
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func loadSnapshot(path string, stdin io.Reader) (comb.Snapshot, error) {
	var snap comb.Snapshot
	if path == "" {
		return snap, nil
	}
	data, err := readInput(path, stdin)
	if err != nil {
		return snap, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("failed to parse snapshot %s: %w", path, err)
	}
	return snap, nil
}

func loadAssessments(path string, stdin io.Reader) (coach.Assessments, error) {
	var a coach.Assessments
	if path == "" {
		return a, nil
	}
	data, err := readInput(path, stdin)
	if err != nil {
		return a, fmt.Errorf("failed to read assessments: %w", err)
	}
	if err := json.Unmarshal(data, &a); err != nil {
		return a, fmt.Errorf("failed to parse assessments %s: %w", path, err)
	}
	return a, nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// record saves a run for userID when recording was requested.
func (o *rootOptions) record(userID string, kind store.Kind, input, output interface{}) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("--record requires --user")
	}
	in, err := json.Marshal(input)
	if err != nil {
		return "", err
	}
	out, err := json.Marshal(output)
	if err != nil {
		return "", err
	}

	st, err := o.openStore()
	if err != nil {
		return "", err
	}
	defer st.Close()

	run := &store.Run{UserID: userID, Kind: kind, Input: in, Output: out}
	if err := st.SaveRun(run); err != nil {
		return "", err
	}
	return run.ID, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"northstar/internal/coach"
	"northstar/internal/comb"
	"northstar/internal/store"
)

// Brand palette.
var (
	colorPrimary = lipgloss.Color("#101F38")
	colorAccent  = lipgloss.Color("#8BC34A")
	colorWarn    = lipgloss.Color("#E8A33D")
	colorMuted   = lipgloss.Color("#6B7280")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	warnStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorWarn)
)

var intensityStyles = map[comb.Intensity]lipgloss.Style{
	comb.IntensityLight:  lipgloss.NewStyle().Foreground(colorAccent),
	comb.IntensityMedium: lipgloss.NewStyle().Foreground(colorWarn),
	comb.IntensityDeep:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#D9534F")),
}

func intensityBadge(i comb.Intensity) string {
	style, ok := intensityStyles[i]
	if !ok {
		style = mutedStyle
	}
	return style.Render("[" + string(i) + "]")
}

func deficitLine(d comb.Deficits) string {
	return mutedStyle.Render(fmt.Sprintf("deficits  capability %.2f  opportunity %.2f  motivation %.2f",
		d.Capability, d.Opportunity, d.Motivation))
}

// renderResult prints scorer output for a terminal.
func renderResult(w io.Writer, res comb.Result) {
	if res.PrimaryFocus == nil {
		fmt.Fprintln(w, titleStyle.Render("No pillar metrics reported"))
		fmt.Fprintln(w, deficitLine(res.Deficits))
		return
	}

	pf := res.PrimaryFocus
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Primary focus: %s (%s)", pf.PillarName, pf.FocusArea.Label())))
	fmt.Fprintln(w, pf.Reasoning)
	fmt.Fprintln(w, deficitLine(res.Deficits))
	fmt.Fprintln(w)

	fmt.Fprintln(w, headingStyle.Render("Recommended actions"))
	for i, a := range res.RecommendedActions {
		fmt.Fprintf(w, "%d. %s %s\n", i+1, a.Label, intensityBadge(a.Intensity))
		fmt.Fprintf(w, "   %s\n", a.Description)
		for _, m := range a.MicroActions {
			fmt.Fprintf(w, "   - %s\n", m.Label)
		}
	}

	if len(res.Constraints) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, headingStyle.Render("Constraints"))
		for _, c := range res.Constraints {
			fmt.Fprintf(w, "- %s\n", c.Message)
		}
	}
}

// renderProfile prints a coaching profile for a terminal.
func renderProfile(w io.Writer, p *coach.Profile) {
	if p == nil {
		fmt.Fprintln(w, titleStyle.Render("No profile: no insights or assessments were supplied"))
		return
	}

	fmt.Fprintln(w, titleStyle.Render(p.Persona))
	fmt.Fprintln(w, mutedStyle.Render(p.PersonaTagline))
	fmt.Fprintln(w, p.Summary)
	fmt.Fprintln(w, deficitLine(p.ComBDeficits))
	fmt.Fprintln(w)

	fmt.Fprintln(w, headingStyle.Render("Priority pillars"))
	for i, pp := range p.PriorityPillars {
		fmt.Fprintf(w, "%d. %s: %s %s\n", i+1, pp.Name, pp.Label, intensityBadge(pp.Intensity))
		fmt.Fprintf(w, "   %s\n", mutedStyle.Render(pp.Rationale))
		for _, m := range pp.MicroActions {
			fmt.Fprintf(w, "   - %s\n", m.Label)
		}
	}

	if len(p.Alerts) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, headingStyle.Render("Watchouts"))
		for _, a := range p.Alerts {
			fmt.Fprintf(w, "- %s %s (%s)\n", warnStyle.Render(a.Label), a.SeverityLabel, a.DomainLabel)
		}
	}
}

// renderPlan prints one pillar plan.
func renderPlan(w io.Writer, plan *coach.PillarPlan) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s plan %s", plan.Name, intensityBadge(plan.Intensity))))
	fmt.Fprintln(w, mutedStyle.Render(plan.Persona+": "+plan.PersonaTagline))
	fmt.Fprintln(w, plan.Label)
	fmt.Fprintln(w, plan.Description)
	fmt.Fprintln(w, mutedStyle.Render(plan.Rationale))
	for _, m := range plan.MicroActions {
		fmt.Fprintf(w, "- %s: %s\n", m.Label, m.Description)
	}
	if plan.Alert != nil {
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("Watchout: %s %s", plan.Alert.Label, plan.Alert.SeverityLabel)))
	}
}

// renderRuns prints a run history table.
func renderRuns(w io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No recorded runs"))
		return
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %-16s %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"), r.Kind, mutedStyle.Render(r.ID))
	}
}

// profileMarkdown renders a profile as a markdown report.
func profileMarkdown(p *coach.Profile) string {
	var sb strings.Builder
	if p == nil {
		sb.WriteString("# No profile\n\nNo insights or assessments were supplied.\n")
		return sb.String()
	}

	fmt.Fprintf(&sb, "# %s\n\n", p.Persona)
	fmt.Fprintf(&sb, "_%s_\n\n", p.PersonaTagline)
	fmt.Fprintf(&sb, "%s\n\n", p.Summary)

	sb.WriteString("| Driver | Deficit |\n|---|---|\n")
	for _, area := range p.ComBDeficits.Ordered() {
		fmt.Fprintf(&sb, "| %s | %.2f |\n", area.Label(), p.ComBDeficits.Of(area))
	}
	sb.WriteString("\n## Priority pillars\n\n")
	for _, pp := range p.PriorityPillars {
		fmt.Fprintf(&sb, "### %s (%s, %s)\n\n", pp.Name, pp.FocusArea.Label(), pp.Intensity)
		fmt.Fprintf(&sb, "**%s**. %s\n\n", pp.Label, pp.Description)
		for _, m := range pp.MicroActions {
			fmt.Fprintf(&sb, "- %s\n", m.Label)
		}
		sb.WriteString("\n")
	}

	if len(p.Alerts) > 0 {
		sb.WriteString("## Watchouts\n\n")
		for _, a := range p.Alerts {
			fmt.Fprintf(&sb, "- **%s**: %s (%s)\n", a.Label, a.SeverityLabel, a.DomainLabel)
		}
	}
	return sb.String()
}

func renderMarkdown(md string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return "", err
	}
	return renderer.Render(md)
}

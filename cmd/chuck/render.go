package main

import (
	"fmt"
	"strings"

	"chuck/internal/manager"
	"chuck/internal/types"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	colorAccent = lipgloss.Color("#7D56F4")
	colorMuted  = lipgloss.Color("#6C6C6C")
	colorDanger = lipgloss.Color("#E06C75")
	colorOK     = lipgloss.Color("#98C379")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	headerStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	errorStyle   = lipgloss.NewStyle().Foreground(colorDanger)
	successStyle = lipgloss.NewStyle().Foreground(colorOK)
	boxStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(0, 1)
)

// =============================================================================
// REPORTS
// =============================================================================

// renderTick shows per-phase results of one decision cycle.
func renderTick(report manager.TickReport) string {
	lines := []string{titleStyle.Render(fmt.Sprintf("cycle %d", report.Tick))}
	for _, p := range report.Phases {
		status := successStyle.Render("ok")
		if p.Err != nil {
			status = errorStyle.Render("failed: " + p.Err.Error())
		}
		lines = append(lines, fmt.Sprintf("%s  applied=%d  %s",
			headerStyle.Render(p.Phase.String()), p.Applied, status))
		for _, f := range p.Failures {
			lines = append(lines, mutedStyle.Render("  skipped: "+f.Error()))
		}
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

// renderReview shows the outcome of a review round.
func renderReview(report manager.ReviewReport) string {
	lines := []string{
		titleStyle.Render(fmt.Sprintf("review, day %d", report.Day)),
		fmt.Sprintf("thoughts recorded: %d", report.Thoughts),
		listLine("destroyed", report.Condemned),
		listLine("on probation", report.Probation),
		listLine("spawned", report.Spawned),
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func listLine(label string, names []string) string {
	if len(names) == 0 {
		return mutedStyle.Render(label + ": none")
	}
	return label + ": " + strings.Join(names, ", ")
}

// renderSnapshot shows the manager's tables.
func renderSnapshot(s types.Snapshot) string {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render("workers"))
	sb.WriteString("\n")
	if len(s.Workers) == 0 {
		sb.WriteString(mutedStyle.Render("  (none)"))
		sb.WriteString("\n")
	}
	for _, w := range s.Workers {
		state := string(w.State)
		if w.State == types.WorkerStateProbation {
			state = errorStyle.Render(state)
		}
		fmt.Fprintf(&sb, "  %s [%s] %s\n", w.ID, state, w.Goal)
	}

	sb.WriteString(headerStyle.Render("registers"))
	sb.WriteString("\n")
	if len(s.Registers) == 0 {
		sb.WriteString(mutedStyle.Render("  (none)"))
		sb.WriteString("\n")
	}
	for _, r := range s.Registers {
		holder := mutedStyle.Render("unlocked")
		if r.Holder != "" {
			holder = "locked by " + r.Holder
		}
		fmt.Fprintf(&sb, "  %s [%d/%d] %s\n", r.Name, len([]rune(r.Content)), r.Capacity, holder)
	}
	return strings.TrimRight(sb.String(), "\n")
}

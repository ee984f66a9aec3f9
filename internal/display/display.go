// Package display provides terminal formatting for mailctl output.
package display

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	Muted    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	Dim      = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca3af"))
	Bold     = lipgloss.NewStyle().Bold(true)
	Success  = lipgloss.NewStyle().Foreground(lipgloss.Color("#16a34a"))
	ErrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626"))
	Warn     = lipgloss.NewStyle().Foreground(lipgloss.Color("#d97706"))
)

// OutcomeDot returns a colored marker for a per-item outcome.
func OutcomeDot(ok, dryRun bool) string {
	switch {
	case dryRun:
		return Warn.Render("◌")
	case ok:
		return Success.Render("●")
	default:
		return ErrStyle.Render("✗")
	}
}

// ItemLine renders one bulk-result row.
func ItemLine(target string, ok, dryRun bool, errMsg string) string {
	line := fmt.Sprintf("%s %s", OutcomeDot(ok, dryRun), target)
	if dryRun {
		line += Dim.Render("  (dry run)")
	}
	if errMsg != "" {
		line += "  " + ErrStyle.Render(errMsg)
	}
	return line
}

// Summary renders the aggregate counts line.
func Summary(total, successes, failures int) string {
	parts := []string{fmt.Sprintf("%d total", total)}
	if successes > 0 {
		parts = append(parts, Success.Render(fmt.Sprintf("%d ok", successes)))
	}
	if failures > 0 {
		parts = append(parts, ErrStyle.Render(fmt.Sprintf("%d failed", failures)))
	}
	return strings.Join(parts, ", ")
}

// AccountLine renders one account row, marking the current one.
func AccountLine(email, kind string, current bool) string {
	marker := "  "
	if current {
		marker = Success.Render("* ")
	}
	line := marker + email
	if kind != "" {
		line += "  " + Muted.Render(kind)
	}
	return line
}

// Truncate shortens a string to maxLen, adding ellipsis if needed.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

package api

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5FAFFF"))

	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#00AF00"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF5F5F"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FF5F5F")).
			Padding(0, 1)
)

// Title renders a section heading.
func Title(s string) string { return titleStyle.Render(s) }

// OK renders a success marker.
func OK(s string) string { return okStyle.Render(s) }

// Warn renders a warning marker.
func Warn(s string) string { return warnStyle.Render(s) }

// Error renders an error marker.
func Error(s string) string { return errorStyle.Render(s) }

// Box frames a block of text, used for remediation notes.
func Box(s string) string { return boxStyle.Render(s) }

// KV renders aligned key/value rows.
func KV(rows [][2]string) string {
	width := 0
	for _, r := range rows {
		width = max(width, lipgloss.Width(r[0]))
	}
	var b strings.Builder
	for i, r := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		pad := strings.Repeat(" ", width-lipgloss.Width(r[0]))
		fmt.Fprintf(&b, "%s%s  %s", keyStyle.Render(r[0]+":"), pad, r[1])
	}
	return b.String()
}

// Table renders rows with left-aligned columns sized to their widest cell.
func Table(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := range min(len(row), len(widths)) {
			widths[i] = max(widths[i], lipgloss.Width(row[i]))
		}
	}
	line := func(cells []string, style *lipgloss.Style) string {
		parts := make([]string, len(widths))
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			cell += strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
			if style != nil {
				cell = style.Render(cell)
			}
			parts[i] = cell
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}
	var b strings.Builder
	b.WriteString(line(header, &keyStyle))
	for _, row := range rows {
		b.WriteByte('\n')
		b.WriteString(line(row, nil))
	}
	return b.String()
}

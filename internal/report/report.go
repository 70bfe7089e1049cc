// Package report renders the end-of-run summary of a replay.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tickethist/jira2git/internal/replay"
)

// Summary carries everything the final report shows.
type Summary struct {
	Project  string
	Issues   int
	Counters replay.Counters
	// Unknown are the field identifiers seen in changelogs without a
	// dictionary entry, with occurrence counts.
	Unknown map[string]int
}

// Render formats the summary for the terminal.
func Render(s Summary) string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		MarginBottom(1)

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("250")).
		Width(18)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("33")).
		Bold(true)

	warnStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("214"))

	var out strings.Builder
	out.WriteString(headerStyle.Render(fmt.Sprintf("Replayed project %s", s.Project)))
	out.WriteString("\n")

	rows := []struct {
		label string
		value int
	}{
		{"Issues", s.Issues},
		{"Issues created", s.Counters.Created},
		{"Field updates", s.Counters.Updated},
		{"Changes ignored", s.Counters.Ignored},
		{"Commits", s.Counters.Commits},
	}
	for _, row := range rows {
		out.WriteString(labelStyle.Render(row.label))
		out.WriteString(valueStyle.Render(fmt.Sprintf("%d", row.value)))
		out.WriteString("\n")
	}

	if len(s.Unknown) > 0 {
		out.WriteString("\n")
		out.WriteString(warnStyle.Render(fmt.Sprintf("%d field identifiers had no dictionary entry:", len(s.Unknown))))
		out.WriteString("\n")
		for _, field := range sortedKeys(s.Unknown) {
			out.WriteString(warnStyle.Render(fmt.Sprintf("  %s (%d changes)", field, s.Unknown[field])))
			out.WriteString("\n")
		}
	}

	return out.String()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

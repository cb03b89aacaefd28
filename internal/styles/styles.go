// Package styles provides the lipgloss styles used for CLI output.
package styles

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
)

var (
	Key     = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	Value   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	Error   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	Muted   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	Heading = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)
)

// RenderResult formats an action result as "key: value" lines in a stable
// order.
func RenderResult(result map[string]any) string {
	keys := make([]string, 0, len(result))
	for k := range result {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := ""
	for _, k := range keys {
		out += fmt.Sprintf("%s %s\n", Key.Render(k+":"), Value.Render(fmt.Sprintf("%v", result[k])))
	}
	return out
}

// Package report renders the end-of-run console summary.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/target/invoice-uploader/internal/domain/model"
)

var (
	headStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#2ECC71"))
	skipStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F1C40F"))
	failStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B"))
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

// RenderSummary formats the batch summary as a bordered console block.
func RenderSummary(s model.BatchSummary, reportPath string) string {
	lines := []string{
		headStyle.Render("INVOICE UPLOAD · batch complete"),
		okStyle.Render(fmt.Sprintf("  succeeded  %d", s.Succeeded)),
		skipStyle.Render(fmt.Sprintf("  skipped    %d", s.Skipped)),
		failLine(s.Failed),
		fmt.Sprintf("  elapsed    %s", s.Elapsed.Round(time.Second)),
		fmt.Sprintf("  report     %s", reportPath),
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func failLine(failed int) string {
	line := fmt.Sprintf("  failed     %d", failed)
	if failed > 0 {
		return failStyle.Render(line)
	}
	return line
}

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"pic/internal/converter"
)

type SummaryRow struct {
	Label string
	Value string
}

// RunRows are the summary rows printed after a conversion run.
func RunRows(s converter.Summary, target string) []SummaryRow {
	return []SummaryRow{
		{Label: "Transform", Value: s.Transform.String()},
		{Label: "Images found", Value: fmt.Sprintf("%d", s.Total)},
		{Label: "Images converted", Value: fmt.Sprintf("%d", s.Converted)},
		{Label: "Images failed", Value: fmt.Sprintf("%d", s.Failed)},
		{Label: "Sources cleaned up", Value: fmt.Sprintf("%d", s.Cleaned)},
		{Label: "Output directory", Value: target},
	}
}

func RenderSummary(rows []SummaryRow) string {
	labelWidth := 0
	valueWidth := 0
	for _, row := range rows {
		if len(row.Label) > labelWidth {
			labelWidth = len(row.Label)
		}
		if len(row.Value) > valueWidth {
			valueWidth = len(row.Value)
		}
	}

	hline := strings.Repeat("-", labelWidth+valueWidth+3)
	lines := []string{hline}

	for _, row := range rows {
		label := padRight(row.Label, labelWidth)
		value := padRight(row.Value, valueWidth)
		line := fmt.Sprintf("%s | %s", labelStyle.Render(label), valueStyle.Render(value))
		lines = append(lines, line)
	}

	lines = append(lines, hline)
	return strings.Join(lines, "\n")
}

// RenderFailures lists the images a run could not convert. It returns an
// empty string when there are none.
func RenderFailures(failures []converter.Result) string {
	if len(failures) == 0 {
		return ""
	}
	lines := []string{failHeaderStyle.Render("Failed images:")}
	for _, f := range failures {
		lines = append(lines, fmt.Sprintf("  %s %s %s",
			dimStyle.Render("-"),
			labelStyle.Render(f.Ref.Filename),
			failStyle.Render(f.Err.Error()),
		))
	}
	return strings.Join(lines, "\n")
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

var (
	valueStyle      = lipgloss.NewStyle().Foreground(ColorInk).Bold(true)
	failHeaderStyle = lipgloss.NewStyle().Foreground(ColorWarn).Bold(true)
	failStyle       = lipgloss.NewStyle().Foreground(ColorError)
)

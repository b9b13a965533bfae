package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/lucasb-eyer/go-colorful"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
)

// hueColor is the terminal twin of the page's hsl(h, 100%, 50%) swatch.
func hueColor(hue float64) lipgloss.Color {
	return lipgloss.Color(colorful.Hsl(hue, 1, 0.5).Hex())
}

func writeTerminalTable(w io.Writer, stats *DivisionStats, threshold float64) error {
	rows := tableRows(stats, threshold)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("Team", "Mean", "Std Dev").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return cellStyle
			case col == 2 && row >= 0 && row < len(rows):
				return numberStyle.Background(hueColor(rows[row].Hue)).Foreground(lipgloss.Color("#000000"))
			default:
				return numberStyle
			}
		})
	for _, r := range rows {
		t.Row(r.Team, r.MeanText, r.StdDevText)
	}

	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d matches, %d teams, computed %s\n", stats.Matches, len(stats.Teams), computedAgo(stats.ComputedAt))
	return err
}

package main

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"

	"division-stats/templates"
)

func tableRows(stats *DivisionStats, threshold float64) []templates.TableRow {
	if stats == nil {
		return nil
	}
	rows := make([]templates.TableRow, 0, len(stats.Teams))
	for _, t := range stats.Teams {
		mean := t.Mean - threshold
		rows = append(rows, templates.TableRow{
			Team:       t.Team,
			Mean:       mean,
			StdDev:     t.StdDev,
			Hue:        stddevHue(t.StdDev),
			MeanText:   templates.Fixed2(mean),
			StdDevText: templates.Fixed2(t.StdDev),
		})
	}
	return rows
}

func eventOptions(events []Event) []templates.Option {
	opts := make([]templates.Option, 0, len(events))
	for _, ev := range events {
		opts = append(opts, templates.Option{Value: ev.ID, Label: eventLabel(ev)})
	}
	return opts
}

func divisionOptions(divs []Division) []templates.Option {
	opts := make([]templates.Option, 0, len(divs))
	for _, d := range divs {
		opts = append(opts, templates.Option{Value: d.ID, Label: d.Name})
	}
	return opts
}

func dashboardData(sel *Selection, threshold float64) templates.DashboardData {
	data := templates.DashboardData{
		Events:           eventOptions(sel.Events),
		Divisions:        divisionOptions(sel.Divisions),
		SelectedEvent:    sel.EventID,
		SelectedDivision: sel.DivisionID,
		Threshold:        threshold,
	}
	if sel.Stats != nil {
		data.Rows = tableRows(sel.Stats, threshold)
		data.Matches = sel.Stats.Matches
		data.ComputedAgo = computedAgo(sel.Stats.ComputedAt)
	}
	return data
}

// renderTable returns the row fragment and a strong ETag over its bytes.
func renderTable(ctx context.Context, stats *DivisionStats, threshold float64) ([]byte, string, error) {
	var buf bytes.Buffer
	if err := templates.TableBody(tableRows(stats, threshold)).Render(ctx, &buf); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), fmt.Sprintf(`"%016x"`, xxhash.Sum64(buf.Bytes())), nil
}

func computedAgo(t time.Time) string {
	return humanize.Time(t)
}

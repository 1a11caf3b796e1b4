/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"bytes"
	htmltemplate "html/template"
	"net/http"

	"github.com/flamego/flamego"
	"github.com/flamego/template"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/humaidq/labrecords/db"
)

// statRow is one line of the admin stats table.
type statRow struct {
	Name  db.TestName
	Label string
	Stat  db.TestStat
}

// AdminTestStats renders the aggregates as a table and a bar chart.
func AdminTestStats(c flamego.Context, t template.Template, data template.Data, stats StatsProvider) {
	data["IsStats"] = true

	result, cached, err := stats.Get(c.Request().Context())
	if err != nil {
		logger.Error("Error calculating stats", "error", err)
		data["Error"] = msgStatsFailed
		t.HTML(http.StatusInternalServerError, "admin_stats")

		return
	}

	rows := statRows(result)
	data["Rows"] = rows
	data["Cached"] = cached

	if len(rows) > 0 {
		chart, err := renderStatsChart(rows)
		if err != nil {
			logger.Error("Error rendering stats chart", "error", err)
		} else {
			data["Chart"] = htmltemplate.HTML(chart)
		}
	}

	t.HTML(http.StatusOK, "admin_stats")
}

// statRows orders the aggregates by the fixed test name order.
func statRows(stats db.TestStats) []statRow {
	rows := make([]statRow, 0, len(stats))

	for _, name := range db.TestNames {
		stat, ok := stats[name]
		if !ok {
			continue
		}

		rows = append(rows, statRow{Name: name, Label: name.Label(), Stat: stat})
	}

	return rows
}

func renderStatsChart(rows []statRow) (string, error) {
	xAxis := make([]string, 0, len(rows))
	minData := make([]opts.BarData, 0, len(rows))
	avgData := make([]opts.BarData, 0, len(rows))
	maxData := make([]opts.BarData, 0, len(rows))

	for _, row := range rows {
		xAxis = append(xAxis, row.Label)
		minData = append(minData, opts.BarData{Value: row.Stat.MinValue})
		avgData = append(avgData, opts.BarData{Value: row.Stat.AvgValue})
		maxData = append(maxData, opts.BarData{Value: row.Stat.MaxValue})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: "Test result values",
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show: opts.Bool(true),
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(true),
		}),
	)

	bar.SetXAxis(xAxis).
		AddSeries("Min", minData).
		AddSeries("Avg", avgData).
		AddSeries("Max", maxData)

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		return "", err
	}

	return buf.String(), nil
}

package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/aluiziolira/go-fashion-etl/config"
	"github.com/aluiziolira/go-fashion-etl/models"
)

func printSummary(w io.Writer, result *models.RunResult, cfg *config.Config) {
	run := table.NewWriter()
	run.SetOutputMirror(w)
	run.SetTitle("Run complete")
	run.AppendHeader(table.Row{"Metric", "Value"})

	if ex := result.Extract; ex != nil {
		run.AppendRow(table.Row{"Pages scraped", fmt.Sprintf("%d/%d", ex.PagesScraped, ex.PagesRequested)})
		if len(ex.SkippedPages) > 0 {
			run.AppendRow(table.Row{"Skipped pages", fmt.Sprint(ex.SkippedPages)})
		}
		run.AppendRow(table.Row{"Requests", ex.RequestCount})
		run.AppendRow(table.Row{"Retries", ex.RetryCount})
		run.AppendRow(table.Row{"Fetch errors", formatCounts(ex.ErrorsByType)})
	}
	run.AppendRow(table.Row{"Raw records", result.RawCount})
	run.AppendRow(table.Row{"Clean records", result.CleanCount})
	run.AppendRow(table.Row{"Dropped", formatCounts(result.Dropped)})
	run.AppendRow(table.Row{"Duration", result.Duration().Round(1e6)})
	if cfg.HasDestination(config.DestinationFile) {
		run.AppendRow(table.Row{"Output file", cfg.OutputFile})
	}
	run.SetStyle(table.StyleRounded)
	run.Render()

	dest := table.NewWriter()
	dest.SetOutputMirror(w)
	dest.SetTitle(result.Report.Summary())
	dest.AppendHeader(table.Row{"Destination", "Status", "Duration", "Error"})
	for _, o := range result.Report.Outcomes {
		status := "ok"
		if !o.Success {
			status = "FAILED"
		}
		dest.AppendRow(table.Row{o.Destination, status, o.Duration.Round(1e6), o.Error()})
	}
	dest.SetStyle(table.StyleRounded)
	dest.Render()
}

func formatCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, " ")
}

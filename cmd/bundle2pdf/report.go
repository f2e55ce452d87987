package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	bundle2pdf "github.com/alnah/go-bundle2pdf"
)

// stageOrder is the column order for per-stage timings.
var stageOrder = []string{"extract", "assemble", "brand", "paginate", "render"}

// printResults writes the batch summary: failures to stderr, a results
// table to stdout unless quiet.
func printResults(env *Environment, results []ConversionResult, flags commonFlags) {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(env.Stderr, "FAILED %s: %v%s\n", r.InputPath, r.Err, hintFor(r.Err))
		}
	}
	if flags.quiet {
		return
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(env.Stdout)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Archive", "Output", "Pages", "Planned", "Delta", "TOC", "Time"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		rep := r.Doc.Report
		tw.AppendRow(table.Row{
			r.InputPath,
			r.OutputPath,
			r.Doc.Pages,
			rep.PlannedPages,
			signed(rep.PageDelta),
			tocCell(rep),
			r.Duration.Round(time.Millisecond),
		})
	}
	if len(results) > 1 {
		tw.AppendFooter(table.Row{fmt.Sprintf("%d succeeded, %d failed", len(results)-failed, failed)})
	}
	if len(results) > failed {
		tw.Render()
	}

	if flags.verbose {
		printDetails(env.Stdout, results)
	}
}

// printDetails lists stage timings, warnings, and headings the browser
// moved off their planned page.
func printDetails(w io.Writer, results []ConversionResult) {
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		rep := r.Doc.Report
		fmt.Fprintf(w, "\n%s (request %s)\n", r.InputPath, rep.RequestID)

		tw := table.NewWriter()
		tw.SetOutputMirror(w)
		tw.SetStyle(table.StyleLight)
		header := table.Row{}
		row := table.Row{}
		for _, s := range stageOrder {
			header = append(header, s)
			row = append(row, rep.Durations[s].Round(time.Millisecond))
		}
		tw.AppendHeader(header)
		tw.AppendRow(row)
		tw.Render()

		for _, warn := range rep.Warnings {
			fmt.Fprintf(w, "  warning: %s\n", warn)
		}
		for _, o := range rep.Oversized {
			fmt.Fprintf(w, "  oversized: %s\n", o)
		}
		if len(rep.HeadingDrift) == 0 {
			continue
		}
		dt := table.NewWriter()
		dt.SetOutputMirror(w)
		dt.SetStyle(table.StyleLight)
		dt.AppendHeader(table.Row{"Heading", "Planned", "Rendered"})
		for _, d := range rep.HeadingDrift {
			rendered := "not found"
			if d.Rendered > 0 {
				rendered = strconv.Itoa(d.Rendered)
			}
			dt.AppendRow(table.Row{text.Trim(d.Text, 48), d.Planned, rendered})
		}
		dt.Render()
	}
}

func signed(n int) string {
	if n > 0 {
		return "+" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

func tocCell(rep bundle2pdf.Report) string {
	switch {
	case rep.TOCPages == 0:
		return "-"
	case rep.Converged:
		return fmt.Sprintf("%dp, %d passes", rep.TOCPages, rep.Passes)
	}
	return fmt.Sprintf("%dp, not converged", rep.TOCPages)
}

// reportEntry is one archive in the JSON report.
type reportEntry struct {
	Input      string             `json:"input"`
	Output     string             `json:"output,omitempty"`
	Pages      int                `json:"pages,omitempty"`
	DurationMS int64              `json:"durationMs"`
	Report     *bundle2pdf.Report `json:"report,omitempty"`
	Error      *bundle2pdf.Error  `json:"error,omitempty"`
	Message    string             `json:"message,omitempty"`
}

// writeReport saves the batch outcome as JSON for CI pipelines.
func writeReport(path string, results []ConversionResult) error {
	entries := make([]reportEntry, len(results))
	for i, r := range results {
		e := reportEntry{Input: r.InputPath, DurationMS: r.Duration.Milliseconds()}
		switch {
		case r.Err == nil:
			e.Output = r.OutputPath
			e.Pages = r.Doc.Pages
			e.Report = &r.Doc.Report
		default:
			var ce *bundle2pdf.Error
			if errors.As(r.Err, &ce) {
				e.Error = ce
			} else {
				e.Message = r.Err.Error()
			}
		}
		entries[i] = e
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteReport, err)
	}
	// #nosec G306 -- reports are meant to be readable
	if err := os.WriteFile(path, append(data, '\n'), filePermissions); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteReport, err)
	}
	return nil
}

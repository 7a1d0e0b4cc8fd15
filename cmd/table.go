package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/sells-group/outreach-cli/internal/pipeline"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// renderSummary shows per-stage counts and where each artifact went.
func renderSummary(rep *pipeline.Report) string {
	rows := make([][]string, 0, len(rep.Stages))
	for _, s := range rep.Stages {
		reasons := make([]string, 0, len(s.Reasons))
		for _, r := range s.SortedReasons() {
			reasons = append(reasons, fmt.Sprintf("%s=%d", r, s.Reasons[r]))
		}
		rows = append(rows, []string{
			string(s.Stage),
			strconv.Itoa(s.Succeeded),
			strconv.Itoa(s.Failed),
			strconv.Itoa(s.Degraded),
			strings.Join(reasons, " "),
			s.Duration.Round(time.Millisecond).String(),
			s.Output,
		})
	}
	return renderTable(
		[]string{"Stage", "OK", "Failed", "Fallback", "Reasons", "Time", "Output"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft, alignRight, alignLeft},
	)
}

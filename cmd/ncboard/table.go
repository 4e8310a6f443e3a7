package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// dataTable collects rows for one rounded go-pretty table. Muted rows are
// drawn faint when colour is on; records uses that for hidden entries.
type dataTable struct {
	headers  []string
	aligns   []columnAlignment
	rows     [][]string
	muted    map[int]bool
	colorize bool
}

func newDataTable(headers ...string) *dataTable {
	return &dataTable{headers: headers, muted: map[int]bool{}}
}

func (t *dataTable) withAlign(aligns ...columnAlignment) *dataTable {
	t.aligns = aligns
	return t
}

func (t *dataTable) withColor(colorize bool) *dataTable {
	t.colorize = colorize
	return t
}

func (t *dataTable) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *dataTable) addMuted(cells ...string) {
	t.muted[len(t.rows)] = true
	t.add(cells...)
}

func (t *dataTable) render() string {
	columns := len(t.headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range t.headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	faint := text.Colors{text.Faint}
	for n, cells := range t.rows {
		row := make(table.Row, columns)
		for i := range row {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			if t.colorize && t.muted[n] && cell != "" {
				cell = faint.Sprint(cell)
			}
			row[i] = cell
		}
		tw.AppendRow(row)
	}

	configs := make([]table.ColumnConfig, columns)
	for i := range configs {
		configs[i] = table.ColumnConfig{Number: i + 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft}
		if i < len(t.aligns) && t.aligns[i] == alignRight {
			configs[i].Align = text.AlignRight
		}
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// renderTable draws a plain table in one call.
func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	t := newDataTable(headers...).withAlign(aligns...)
	for _, row := range rows {
		t.add(row...)
	}
	return t.render()
}

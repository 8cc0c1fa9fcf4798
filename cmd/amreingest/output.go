package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

// tableView collects rows for a rounded go-pretty table. Columns are left
// aligned unless marked numeric.
type tableView struct {
	tw      table.Writer
	columns int
}

func newTableView(headers ...string) *tableView {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	header := make(table.Row, len(headers))
	configs := make([]table.ColumnConfig, len(headers))
	for i, h := range headers {
		header[i] = h
		configs[i] = table.ColumnConfig{Number: i + 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)
	return &tableView{tw: tw, columns: len(headers)}
}

// numeric right-aligns the given zero-based columns.
func (v *tableView) numeric(cols ...int) *tableView {
	configs := make([]table.ColumnConfig, v.columns)
	right := make(map[int]bool, len(cols))
	for _, c := range cols {
		right[c] = true
	}
	for i := range configs {
		align := text.AlignLeft
		if right[i] {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft}
	}
	v.tw.SetColumnConfigs(configs)
	return v
}

func (v *tableView) row(cells ...string) {
	r := make(table.Row, v.columns)
	for i := range r {
		if i < len(cells) {
			r[i] = cells[i]
		} else {
			r[i] = ""
		}
	}
	v.tw.AppendRow(r)
}

func (v *tableView) writeTo(out io.Writer) {
	fmt.Fprintln(out, v.tw.Render())
}

// writeJSON encodes v as indented JSON.
func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shouldColorize(out io.Writer) bool {
	f, ok := out.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Package format renders session reports and CLI tables as fixed-width
// terminal text or GitHub-flavoured Markdown.
package format

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Mode selects the rendering target.
type Mode int

const (
	ASCII    Mode = iota // fixed-width terminal tables
	Markdown             // GitHub-flavoured Markdown tables
)

// ColumnConfig caps the width of one table column. Capped columns are
// left-aligned and wrap beyond MaxWidth.
type ColumnConfig struct {
	Number   int // 1-based column index
	MaxWidth int // wrap content beyond this width (0 = unlimited)
}

// TableBuilder accumulates a table once and renders it in the Mode chosen
// at creation. The go-pretty writer stays an implementation detail so the
// report renderers and the CLI share one small surface.
type TableBuilder interface {
	Header(cols ...string)
	// Row appends a data row. Values are converted via fmt.Sprint.
	Row(vals ...any)
	// Footer appends a footer row (e.g. totals).
	Footer(vals ...any)
	Columns(cfgs ...ColumnConfig)
	String() string
}

// NewTable returns a TableBuilder rendering in the given Mode.
func NewTable(m Mode) TableBuilder {
	w := table.NewWriter()
	if m == ASCII {
		// Markdown rendering carries its own formatting; only the
		// terminal target takes a style.
		w.SetStyle(table.StyleLight)
		// Keep footer text as authored instead of StyleLight's upper-casing.
		w.Style().Format.Footer = text.FormatDefault
	}
	return &prettyTable{w: w, mode: m}
}

type prettyTable struct {
	w    table.Writer
	mode Mode
}

func (t *prettyTable) Header(cols ...string) {
	row := make(table.Row, len(cols))
	for i, c := range cols {
		row[i] = c
	}
	t.w.AppendHeader(row)
}

func (t *prettyTable) Row(vals ...any) {
	row := make(table.Row, len(vals))
	copy(row, vals)
	t.w.AppendRow(row)
}

func (t *prettyTable) Footer(vals ...any) {
	row := make(table.Row, len(vals))
	copy(row, vals)
	t.w.AppendFooter(row)
}

func (t *prettyTable) Columns(cfgs ...ColumnConfig) {
	out := make([]table.ColumnConfig, len(cfgs))
	for i, c := range cfgs {
		out[i] = table.ColumnConfig{
			Number:   c.Number,
			Align:    text.AlignLeft,
			WidthMax: c.MaxWidth,
		}
	}
	t.w.SetColumnConfigs(out)
}

func (t *prettyTable) String() string {
	if t.mode == Markdown {
		return t.w.RenderMarkdown()
	}
	return t.w.Render()
}

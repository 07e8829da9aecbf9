package render

import (
	"strings"
	"time"

	"github.com/bjaus/pivot/frame"
)

// headerRows is the header stack shared by the delimited, spreadsheet and
// HTML outputs. Multi-level columns get one row per level, the level name
// in the first cell, then a row of index names. Single-level columns get
// one row of index names followed by the labels.
func headerRows(f *frame.Frame) [][]string {
	ix, cols := f.Index(), f.Columns()
	nidx := ix.Levels()
	if cols.Levels() <= 1 {
		row := make([]string, 0, nidx+f.Width())
		row = append(row, ix.Names...)
		for _, k := range cols.Keys {
			row = append(row, frame.FormatValue(first(k)))
		}
		return [][]string{row}
	}
	lead := max(nidx, 1)
	rows := make([][]string, 0, cols.Levels()+1)
	for l, name := range cols.Names {
		row := make([]string, lead+f.Width())
		row[0] = name
		for j, k := range cols.Keys {
			row[lead+j] = frame.FormatValue(k[l])
		}
		rows = append(rows, row)
	}
	names := make([]string, lead+f.Width())
	copy(names, ix.Names)
	return append(rows, names)
}

// bodyRow formats row i: index labels, then cells.
func bodyRow(f *frame.Frame, i int) []string {
	k := f.Index().Keys[i]
	out := make([]string, 0, len(k)+f.Width())
	for _, v := range k {
		out = append(out, frame.FormatValue(v))
	}
	for _, v := range f.Row(i) {
		out = append(out, frame.FormatValue(v))
	}
	if f.Index().Levels() == 0 && f.Columns().Levels() > 1 {
		out = append([]string{""}, out...)
	}
	return out
}

// label joins the non-empty components of a column key with "-".
func label(k frame.Key) string {
	parts := make([]string, 0, len(k))
	for _, v := range k {
		if s := frame.FormatValue(v); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "-")
}

func labels(keys []frame.Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = label(k)
	}
	return out
}

// flat is a frame with the row index moved into leading columns and
// column keys joined into single labels.
type flat struct {
	names []string
	rows  [][]any
}

func flatten(f *frame.Frame) flat {
	c := f.Clone()
	if !isPositional(c) {
		c.ResetIndex()
	}
	out := flat{names: labels(c.Columns().Keys), rows: make([][]any, c.Len())}
	for i := range c.Len() {
		out.rows[i] = c.Row(i)
	}
	return out
}

// isPositional reports whether the row index is the synthetic counter.
func isPositional(f *frame.Frame) bool {
	names := f.Index().Names
	return len(names) == 0 || (len(names) == 1 && names[0] == frame.RowLevel)
}

func first(k frame.Key) any {
	if len(k) == 0 {
		return nil
	}
	return k[0]
}

func isEmptyFrame(f *frame.Frame) bool {
	return f.Len() == 0 && f.Width() == 0
}

type valueKind int

const (
	kindEmpty valueKind = iota
	kindInt
	kindFloat
	kindBool
	kindTime
	kindString
)

// kindOf is the common type of the non-null values. Mixed integers and
// floats are floats; any other mix is string.
func kindOf(vals []any) valueKind {
	k := kindEmpty
	for _, v := range vals {
		var vk valueKind
		switch v.(type) {
		case nil:
			continue
		case int64:
			vk = kindInt
		case float64:
			vk = kindFloat
		case bool:
			vk = kindBool
		case time.Time:
			vk = kindTime
		default:
			vk = kindString
		}
		switch {
		case k == kindEmpty || k == vk:
			k = vk
		case (k == kindInt && vk == kindFloat) || (k == kindFloat && vk == kindInt):
			k = kindFloat
		default:
			return kindString
		}
	}
	return k
}

func (k valueKind) schemaType() string {
	switch k {
	case kindInt:
		return "integer"
	case kindFloat:
		return "number"
	case kindBool:
		return "boolean"
	case kindTime:
		return "datetime"
	default:
		return "string"
	}
}

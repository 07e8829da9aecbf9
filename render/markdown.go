package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/bjaus/pivot/frame"
	"github.com/mattn/go-runewidth"
)

type markdownRenderer struct{}

func (markdownRenderer) Format() Format    { return Markdown }
func (markdownRenderer) MediaType() string { return "text/markdown" }

// Render writes a pipe table of the flattened frame. Numeric columns are
// right aligned.
func (markdownRenderer) Render(w io.Writer, f *frame.Frame, _ Options) error {
	if isEmptyFrame(f) {
		return nil
	}
	fl := flatten(f)
	header := make([]string, len(fl.names))
	for i, name := range fl.names {
		header[i] = escapePipes(name)
	}
	numCols := len(header)

	rows := make([][]string, len(fl.rows))
	for i, row := range fl.rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = escapePipes(frame.FormatValue(v))
		}
		rows[i] = cells
	}

	// Column widths have a minimum of 3 for the alignment markers.
	widths := computeWidths(numCols, [][]string{header}, rows)
	for i := range widths {
		widths[i] = max(widths[i], 3)
	}
	aligns := columnAligns(fl)

	if err := writeMarkdownRow(w, header, widths, aligns); err != nil {
		return err
	}

	sep := make([]string, numCols)
	for i, width := range widths {
		switch aligns[i] {
		case alignRight:
			sep[i] = strings.Repeat("-", width-1) + ":"
		default:
			sep[i] = strings.Repeat("-", width)
		}
	}
	if _, err := fmt.Fprintf(w, "| %s |\n", strings.Join(sep, " | ")); err != nil {
		return err
	}

	for _, row := range rows {
		if err := writeMarkdownRow(w, row, widths, aligns); err != nil {
			return err
		}
	}
	return nil
}

func writeMarkdownRow(w io.Writer, cells []string, widths []int, aligns []alignment) error {
	padded := make([]string, len(widths))
	for i, width := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		padded[i] = alignCell(cell, width, aligns[i])
	}
	_, err := fmt.Fprintf(w, "| %s |\n", strings.Join(padded, " | "))
	return err
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// columnAligns right aligns the numeric columns of fl.
func columnAligns(fl flat) []alignment {
	aligns := make([]alignment, len(fl.names))
	for j := range fl.names {
		col := make([]any, len(fl.rows))
		for i, row := range fl.rows {
			col[i] = row[j]
		}
		if k := kindOf(col); k == kindInt || k == kindFloat {
			aligns[j] = alignRight
		}
	}
	return aligns
}

func computeWidths(numCols int, header [][]string, rows [][]string) []int {
	widths := make([]int, numCols)
	for _, row := range append(header, rows...) {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); i < numCols && w > widths[i] {
				widths[i] = w
			}
		}
	}
	return widths
}

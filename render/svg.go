package render

import (
	"fmt"
	"io"

	"github.com/aclements/go-gg/gg"
	"github.com/aclements/go-gg/table"
	svg "github.com/ajstarks/svgo"
	"github.com/bjaus/pivot/frame"
)

type svgRenderer struct{}

func (svgRenderer) Format() Format    { return SVG }
func (svgRenderer) MediaType() string { return "image/svg+xml" }

// Render plots every numeric column against row position, one colored
// line per column. A frame without numbers yields an empty canvas.
func (svgRenderer) Render(w io.Writer, f *frame.Frame, opts Options) (err error) {
	width, height := opts.size()
	ss := chartSeries(f)
	if len(ss) == 0 {
		canvas := svg.New(w)
		canvas.Start(width, height)
		canvas.End()
		return nil
	}

	var xs, ys []float64
	var names []string
	for _, s := range ss {
		xs = append(xs, s.xs...)
		ys = append(ys, s.ys...)
		for range s.xs {
			names = append(names, s.name)
		}
	}
	tab := new(table.Builder).
		Add("position", xs).
		Add("value", ys).
		Add("series", names).
		Done()

	// gg reports unplottable data by panicking.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render svg: %v", r)
		}
	}()
	plot := gg.NewPlot(tab)
	plot.Add(gg.LayerLines{X: "position", Y: "value", Color: "series"})
	plot.Add(gg.LayerPoints{X: "position", Y: "value", Color: "series"})
	if title := indexTitle(f); title != "" {
		plot.Add(gg.AxisLabel("x", title))
	}
	if opts.Title != "" {
		plot.Add(gg.Title(opts.Title))
	}
	return plot.WriteSVG(w, width, height)
}

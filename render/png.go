package render

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/bjaus/pivot/frame"
	chart "github.com/wcharczuk/go-chart/v2"
)

type pngRenderer struct{}

func (pngRenderer) Format() Format    { return PNG }
func (pngRenderer) MediaType() string { return "image/png" }

// Render draws a line chart of every numeric column against the row index.
// A frame without numbers yields a blank image of the requested size.
func (pngRenderer) Render(w io.Writer, f *frame.Frame, opts Options) error {
	width, height := opts.size()
	ss := chartSeries(f)
	if len(ss) == 0 {
		return blankPNG(w, width, height)
	}

	xmin, xmax, ymin, ymax := bounds(ss)
	ch := chart.Chart{
		Title:  opts.Title,
		Width:  width,
		Height: height,
		Background: chart.Style{
			Padding: chart.Box{Top: 20, Left: 16, Right: 16, Bottom: 12},
		},
		XAxis: chart.XAxis{
			Name:  indexTitle(f),
			Range: &chart.ContinuousRange{Min: xmin, Max: xmax},
			ValueFormatter: func(v any) string {
				x, ok := v.(float64)
				if !ok {
					return ""
				}
				i := int(math.Round(x))
				if i < 0 || i >= f.Len() || math.Abs(x-float64(i)) > 1e-9 {
					return ""
				}
				return rowLabel(f, i)
			},
		},
		YAxis: chart.YAxis{Range: &chart.ContinuousRange{Min: ymin, Max: ymax}},
	}
	for _, s := range ss {
		xs, ys := s.xs, s.ys
		if len(xs) == 1 {
			xs = []float64{xs[0], xs[0] + 1e-9}
			ys = []float64{ys[0], ys[0]}
		}
		ch.Series = append(ch.Series, chart.ContinuousSeries{Name: s.name, XValues: xs, YValues: ys})
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return ch.Render(chart.PNG, w)
}

func blankPNG(w io.Writer, width, height int) error {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	return png.Encode(w, img)
}

package render

import (
	"math"
	"strings"

	"github.com/bjaus/pivot/frame"
)

// series is one plotted column: numeric cells against row position.
type series struct {
	name string
	xs   []float64
	ys   []float64
}

// chartSeries lists every column holding at least one finite number.
func chartSeries(f *frame.Frame) []series {
	var out []series
	for j, k := range f.Columns().Keys {
		s := series{name: label(k)}
		for i := range f.Len() {
			y, ok := frame.Float(f.At(i, j))
			if !ok || math.IsInf(y, 0) {
				continue
			}
			s.xs = append(s.xs, float64(i))
			s.ys = append(s.ys, y)
		}
		if len(s.xs) > 0 {
			out = append(out, s)
		}
	}
	return out
}

// bounds returns the extent of every series on both axes, widened by one
// unit on an axis that would otherwise have zero span.
func bounds(ss []series) (xmin, xmax, ymin, ymax float64) {
	xmin, ymin = math.Inf(1), math.Inf(1)
	xmax, ymax = math.Inf(-1), math.Inf(-1)
	for _, s := range ss {
		for i := range s.xs {
			xmin, xmax = min(xmin, s.xs[i]), max(xmax, s.xs[i])
			ymin, ymax = min(ymin, s.ys[i]), max(ymax, s.ys[i])
		}
	}
	if xmin == xmax {
		xmin, xmax = xmin-1, xmax+1
	}
	if ymin == ymax {
		ymin, ymax = ymin-1, ymax+1
	}
	return xmin, xmax, ymin, ymax
}

// rowLabel names row i on the x axis.
func rowLabel(f *frame.Frame, i int) string {
	k := f.Index().Keys[i]
	parts := make([]string, len(k))
	for l, v := range k {
		parts[l] = frame.FormatValue(v)
	}
	return strings.Join(parts, " ")
}

func indexTitle(f *frame.Frame) string {
	if isPositional(f) {
		return ""
	}
	return strings.Join(f.Index().Names, ", ")
}

package reshape

import (
	"math"
	"slices"

	"github.com/aclements/go-moremath/stats"
	"github.com/bjaus/pivot/frame"
)

// Whis is the whisker reach as a multiple of the interquartile range.
const Whis = 1.5

// Summary is the box-and-whisker summary of one numeric series.
type Summary struct {
	Count       int
	Mean        float64
	Q1          float64
	Median      float64
	Q3          float64
	IQR         float64
	WhiskerLow  float64
	WhiskerHigh float64
	CILow       float64
	CIHigh      float64
	// Fliers are the values beyond the whiskers, low ones first, each group
	// in input order.
	Fliers []float64
}

// Summarize computes the summary of xs, which must not be empty.
// Quartiles interpolate linearly between closest ranks.
func Summarize(xs []float64) Summary {
	sorted := slices.Clone(xs)
	slices.Sort(sorted)

	s := Summary{
		Count:  len(xs),
		Mean:   stats.Mean(xs),
		Q1:     percentile(sorted, 0.25),
		Median: percentile(sorted, 0.5),
		Q3:     percentile(sorted, 0.75),
	}
	s.IQR = s.Q3 - s.Q1
	notch := 1.57 * s.IQR / math.Sqrt(float64(len(xs)))
	s.CILow, s.CIHigh = s.Median-notch, s.Median+notch

	loval := s.Q1 - Whis*s.IQR
	hival := s.Q3 + Whis*s.IQR

	s.WhiskerHigh = s.Q3
	for i := len(sorted) - 1; i >= 0; i-- {
		if sorted[i] <= hival {
			s.WhiskerHigh = max(sorted[i], s.Q3)
			break
		}
	}
	s.WhiskerLow = s.Q1
	for _, x := range sorted {
		if x >= loval {
			s.WhiskerLow = min(x, s.Q1)
			break
		}
	}

	for _, x := range xs {
		if x < s.WhiskerLow {
			s.Fliers = append(s.Fliers, x)
		}
	}
	for _, x := range xs {
		if x > s.WhiskerHigh {
			s.Fliers = append(s.Fliers, x)
		}
	}
	return s
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	h := float64(len(sorted)-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

// mode returns the most frequent value, the smallest one on ties.
func mode(vals []any) any {
	type tally struct {
		v any
		n int
	}
	var counts []tally
	for _, v := range vals {
		found := false
		for i := range counts {
			if frame.Compare(counts[i].v, v) == 0 {
				counts[i].n++
				found = true
				break
			}
		}
		if !found {
			counts = append(counts, tally{v: v, n: 1})
		}
	}
	best := counts[0]
	for _, c := range counts[1:] {
		if c.n > best.n || (c.n == best.n && frame.Compare(c.v, best.v) < 0) {
			best = c
		}
	}
	return best.v
}

package reshape_test

import (
	"time"

	"github.com/bjaus/pivot/frame"
)

func day(d int) time.Time {
	return time.Date(2015, time.January, d, 0, 0, 0, 0, time.UTC)
}

func multiTimeSeries() []frame.Record {
	var out []frame.Record
	for i, v := range []float64{0.5, 0.4, 0.6, 0.2, 0.1} {
		out = append(out, frame.RecordOf("date", day(i+1), "series", "test1", "value", v))
	}
	for i, v := range []float64{0.7, 0.8, 0.0, 0.9, 0.3} {
		out = append(out, frame.RecordOf("date", day(i+1), "series", "test2", "value", v))
	}
	return out
}

type observation struct {
	day       int
	kind      string
	site      string
	parameter string
	units     string
	value     float64
	flag      any
}

var complexObservations = []observation{
	{1, "routine", "site1", "height", "ft", 0.5, nil},
	{2, "routine", "site1", "height", "ft", 0.4, nil},
	{3, "routine", "site1", "height", "ft", 0.6, nil},
	{4, "special", "site1", "height", "ft", 0.2, nil},
	{5, "routine", "site1", "height", "ft", 0.1, nil},
	{1, "special", "site1", "flow", "cfs", 0.7, nil},
	{2, "routine", "site1", "flow", "cfs", 0.8, nil},
	{3, "routine", "site1", "flow", "cfs", 0.0, "Q"},
	{4, "routine", "site1", "flow", "cfs", 0.9, nil},
	{5, "routine", "site1", "flow", "cfs", 0.3, nil},
	{1, "routine", "site2", "flow", "cfs", 0.0, nil},
	{2, "routine", "site2", "flow", "cfs", 0.7, nil},
	{3, "routine", "site2", "flow", "cfs", 0.2, nil},
	{4, "routine", "site2", "flow", "cfs", 0.3, nil},
	{5, "routine", "site2", "flow", "cfs", 0.8, nil},
}

func complexTimeSeries(withFlag bool) []frame.Record {
	out := make([]frame.Record, 0, len(complexObservations))
	for _, o := range complexObservations {
		r := frame.RecordOf(
			"date", day(o.day),
			"type", o.kind,
			"site", o.site,
			"parameter", o.parameter,
			"units", o.units,
			"value", o.value,
		)
		if withFlag {
			r = r.Set("flag", o.flag)
		}
		out = append(out, r)
	}
	return out
}

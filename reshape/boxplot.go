package reshape

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bjaus/pivot/frame"
)

// Grouping selects how boxplot values are split into series.
type Grouping string

const (
	GroupSeries      Grouping = "series"
	GroupSeriesYear  Grouping = "series-year"
	GroupSeriesMonth Grouping = "series-month"
	GroupYear        Grouping = "year"
	GroupMonth       Grouping = "month"
)

var groupings = []Grouping{GroupSeries, GroupSeriesYear, GroupSeriesMonth, GroupYear, GroupMonth}

// Series-count thresholds used when no grouping is requested.
var (
	ManySeries = 20
	SomeSeries = 10
)

// ParseGrouping reports the grouping named by s.
func ParseGrouping(s string) (Grouping, bool) {
	for _, g := range groupings {
		if string(g) == s {
			return g, true
		}
	}
	return "", false
}

// DefaultGrouping picks a grouping from the number of distinct series.
func DefaultGrouping(series int, hasDate bool) Grouping {
	switch {
	case series > ManySeries && hasDate:
		return GroupYear
	case series > SomeSeries || !hasDate:
		return GroupSeries
	default:
		return GroupSeriesYear
	}
}

func (g Grouping) bySeries() bool {
	return g == GroupSeries || g == GroupSeriesYear || g == GroupSeriesMonth
}

// interval names the calendar field values are bucketed by, if any.
func (g Grouping) interval() string {
	switch g {
	case GroupSeriesYear, GroupYear:
		return "year"
	case GroupSeriesMonth, GroupMonth:
		return "month"
	default:
		return ""
	}
}

// Boxplot summarizes each series, optionally per calendar year or month,
// into box-and-whisker statistics.
type Boxplot struct {
	Group  string
	Date   string
	Header []string
	// Index lists extra fields that keep observations distinct.
	Index []string
	// Grouping is normally taken from the request; the zero value picks one
	// from the data.
	Grouping       Grouping
	IndexNoneValue any
}

// Kind returns KindBoxplot.
func (Boxplot) Kind() Kind { return KindBoxplot }

func (s Boxplot) seriesFields() []string {
	return concat([]string{s.Group}, s.Header)
}

func (s Boxplot) reshape(records []frame.Record, _ *Report) (*frame.Frame, error) {
	if s.Group == "" {
		return nil, &FieldError{Strategy: KindBoxplot, Field: "group"}
	}
	if len(records) == 0 {
		return frame.New(nil), nil
	}

	grouping := s.Grouping
	if _, ok := ParseGrouping(string(grouping)); !ok {
		grouping = DefaultGrouping(countSeries(records, s.seriesFields()), s.Date != "")
	}
	interval := grouping.interval()
	if interval != "" && s.Date == "" {
		return nil, fmt.Errorf("%w: grouping %q requires a date field", ErrStatistics, grouping)
	}

	var index []string
	if s.Date != "" {
		index = append(index, s.Date)
	}
	index = append(index, s.Index...)
	if len(index) == 0 {
		records = numbered(records)
		index = []string{frame.RowLevel}
	}
	series := s.seriesFields()
	f, err := buildKeyed(records, concat(index, series), series, s.IndexNoneValue)
	if err != nil {
		return nil, err
	}
	if grouping.bySeries() {
		if err := f.UnstackN(len(series)); err != nil {
			return nil, statisticsError(err)
		}
	}

	dateLevel := -1
	if s.Date != "" {
		dateLevel = f.Index().Level(s.Date)
	}
	acc := newAccumulator(interval)
	cols := f.Columns()
	for j, ck := range cols.Keys {
		var labels frame.Record
		for l := 1; l < len(ck); l++ {
			labels = append(labels, frame.Field{Name: cols.Names[l], Value: ck[l]})
		}
		buckets, err := bucketize(f, j, dateLevel, interval)
		if err != nil {
			return nil, err
		}
		for _, b := range buckets {
			if len(b.values) == 0 {
				continue
			}
			acc.add(b.key, labels, frame.FormatValue(ck[0]), b.values)
		}
	}
	if len(acc.order) == 0 {
		return nil, fmt.Errorf("%w: no values to summarize", ErrStatistics)
	}

	var outIndex []string
	unstack := 0
	if interval != "" {
		outIndex = append(outIndex, interval)
	}
	if grouping.bySeries() {
		outIndex = append(outIndex, series...)
		unstack = len(s.Header)
		if interval != "" {
			unstack++
		}
	}
	out, err := frame.Build(acc.records(), outIndex...)
	if err != nil {
		return nil, err
	}
	if err := out.UnstackN(unstack); err != nil {
		return nil, statisticsError(err)
	}
	out.DropNullColumns()
	return out, nil
}

func statisticsError(err error) error {
	if errors.Is(err, frame.ErrDuplicateEntry) {
		return fmt.Errorf("%w: %w", ErrStatistics, err)
	}
	return err
}

func countSeries(records []frame.Record, fields []string) int {
	seen := make(map[string]bool)
	for _, r := range records {
		parts := make([]string, len(fields))
		for i, name := range fields {
			v, _ := r.Get(name)
			parts[i] = fmt.Sprintf("%T:%s", v, frame.FormatValue(v))
		}
		seen[strings.Join(parts, "\x00")] = true
	}
	return len(seen)
}

// numbered prepends a positional field so every record stays distinct.
func numbered(records []frame.Record) []frame.Record {
	if hasField(records, frame.RowLevel) {
		return records
	}
	out := make([]frame.Record, len(records))
	for i, r := range records {
		nr := make(frame.Record, 0, len(r)+1)
		nr = append(nr, frame.Field{Name: frame.RowLevel, Value: int64(i)})
		out[i] = append(nr, r...)
	}
	return out
}

type bucket struct {
	key    int64
	values []any
}

func bucketize(f *frame.Frame, col, dateLevel int, interval string) ([]bucket, error) {
	if interval == "" {
		var vals []any
		for _, v := range f.Column(col) {
			if !frame.IsNull(v) {
				vals = append(vals, v)
			}
		}
		return []bucket{{values: vals}}, nil
	}
	pos := make(map[int64]int)
	var out []bucket
	for i, k := range f.Index().Keys {
		v := f.At(i, col)
		if frame.IsNull(v) || frame.IsNull(k[dateLevel]) {
			continue
		}
		t, ok := k[dateLevel].(time.Time)
		if !ok {
			return nil, fmt.Errorf("%w: date value %v is %T, not a date", ErrStatistics, k[dateLevel], k[dateLevel])
		}
		key := int64(t.Year())
		if interval == "month" {
			key = int64(t.Month())
		}
		p, ok := pos[key]
		if !ok {
			p = len(out)
			pos[key] = p
			out = append(out, bucket{key: key})
		}
		out[p].values = append(out[p].values, v)
	}
	slices.SortFunc(out, func(a, b bucket) int { return int(a.key - b.key) })
	return out, nil
}

// accumulator merges statistics sharing an interval and series labels into
// one record, in first-seen order.
type accumulator struct {
	interval string
	pos      map[string]int
	order    []frame.Record
}

func newAccumulator(interval string) *accumulator {
	return &accumulator{interval: interval, pos: make(map[string]int)}
}

func (a *accumulator) add(key int64, labels frame.Record, name string, vals []any) {
	var base frame.Record
	if a.interval != "" {
		base = append(base, frame.Field{Name: a.interval, Value: key})
	}
	base = append(base, labels...)
	h := fmt.Sprint(base.Names(), base)
	p, ok := a.pos[h]
	if !ok {
		p = len(a.order)
		a.pos[h] = p
		a.order = append(a.order, base)
	}
	a.order[p] = append(a.order[p], statFields(name, vals)...)
}

func (a *accumulator) records() []frame.Record { return a.order }

func statFields(name string, vals []any) []frame.Field {
	nums := make([]float64, 0, len(vals))
	for _, v := range vals {
		x, ok := frame.Float(v)
		if !ok {
			return []frame.Field{
				{Name: name + "-count", Value: int64(len(vals))},
				{Name: name + "-mode", Value: mode(vals)},
			}
		}
		nums = append(nums, x)
	}
	s := Summarize(nums)
	fliers := make([]string, len(s.Fliers))
	for i, x := range s.Fliers {
		fliers[i] = frame.FormatFloat(x)
	}
	return []frame.Field{
		{Name: name + "-whislo", Value: s.WhiskerLow},
		{Name: name + "-q1", Value: s.Q1},
		{Name: name + "-med", Value: s.Median},
		{Name: name + "-q3", Value: s.Q3},
		{Name: name + "-whishi", Value: s.WhiskerHigh},
		{Name: name + "-fliers", Value: strings.Join(fliers, "|")},
		{Name: name + "-count", Value: int64(s.Count)},
		{Name: name + "-mean", Value: s.Mean},
		{Name: name + "-iqr", Value: s.IQR},
		{Name: name + "-cilo", Value: s.CILow},
		{Name: name + "-cihi", Value: s.CIHigh},
	}
}

// Package dataset reads the delimited output back into per-series
// datasets, the way a charting client consumes it.
//
// A multi-level header stack such as
//
//	,value,value
//	site,SITE1,SITE2
//	date,,
//	2014-01-01,0.5,0.2
//
// parses into one [Dataset] per distinct metadata combination, each holding
// the rows that have a value for it. Input whose first line does not start
// with a comma is read as plain CSV into a single dataset.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/bjaus/pivot/frame"
)

// ErrHeaderMismatch is returned when the index header row does not line up
// with the value columns.
var ErrHeaderMismatch = errors.New("header mismatch")

// NullMeta marks an absent metadata value in a header row.
const NullMeta = "-"

// Dataset is one series: its metadata and its rows.
type Dataset struct {
	Meta frame.Record
	Data []frame.Record
}

// Parse reads every dataset in r.
func Parse(r io.Reader) ([]Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if rows[0][0] != "" {
		return []Dataset{parsePlain(rows)}, nil
	}
	return parseStacked(rows)
}

// ParseString is Parse over a string.
func ParseString(s string) ([]Dataset, error) {
	return Parse(strings.NewReader(s))
}

func parsePlain(rows [][]string) Dataset {
	header := rows[0]
	ds := Dataset{Data: make([]frame.Record, 0, len(rows)-1)}
	for _, row := range rows[1:] {
		rec := make(frame.Record, 0, len(header))
		for i, name := range header {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			var v any = cell
			if cell != "" {
				v = number(cell)
			}
			rec = append(rec, frame.Field{Name: name, Value: v})
		}
		ds.Data = append(ds.Data, rec)
	}
	return ds
}

type stack struct {
	values    []string
	metaStart int
	meta      []frame.Record
	ids       []string
	col2ds    []int
	datasets  []Dataset
}

func parseStacked(rows [][]string) ([]Dataset, error) {
	s := &stack{values: rows[0]}
	s.metaStart = lastIndex(s.values, "") + 1
	body := -1
	for i, row := range rows[1:] {
		if row[len(row)-1] != "" {
			s.addMeta(row)
			continue
		}
		if err := s.setIDs(row); err != nil {
			return nil, err
		}
		body = i + 2
		break
	}
	if body < 0 {
		return nil, fmt.Errorf("%w: no index header row", ErrHeaderMismatch)
	}
	s.findDatasets()
	for _, row := range rows[body:] {
		s.addRow(row)
	}
	return s.datasets, nil
}

func (s *stack) addMeta(row []string) {
	name := row[0]
	for i, d := range row[min(s.metaStart, len(row)):] {
		for len(s.meta) <= i {
			s.meta = append(s.meta, frame.Record{})
		}
		var v any = d
		if d == NullMeta {
			v = nil
		}
		s.meta[i] = s.meta[i].Set(name, v)
	}
}

func (s *stack) setIDs(row []string) error {
	blank := slices.Index(row, "")
	if blank != s.metaStart {
		return fmt.Errorf("%w: index header has %d names, values start at column %d", ErrHeaderMismatch, blank, s.metaStart)
	}
	s.ids = row[:blank]
	return nil
}

// findDatasets maps each value column to a dataset, one per distinct
// metadata combination.
func (s *stack) findDatasets() {
	ncols := len(s.values) - s.metaStart
	s.col2ds = make([]int, ncols)
	if len(s.meta) == 0 {
		s.datasets = []Dataset{{}}
		return
	}
	seen := make(map[string]int)
	for i, meta := range s.meta {
		h := hash(meta)
		idx, ok := seen[h]
		if !ok {
			idx = len(s.datasets)
			seen[h] = idx
			s.datasets = append(s.datasets, Dataset{Meta: meta})
		}
		if i < ncols {
			s.col2ds[i] = idx
		}
	}
}

func (s *stack) addRow(row []string) {
	n := min(len(s.ids), len(row))
	id := make(frame.Record, 0, len(s.ids))
	for i, name := range s.ids[:n] {
		id = append(id, frame.Field{Name: name, Value: row[i]})
	}
	items := make([]frame.Record, len(s.datasets))
	for i, d := range row[n:] {
		if d == "" || i >= len(s.col2ds) {
			continue
		}
		dsi := s.col2ds[i]
		if items[dsi] == nil {
			items[dsi] = id.Clone()
		}
		items[dsi] = items[dsi].Set(s.values[n+i], number(d))
	}
	for i, item := range items {
		if item != nil {
			s.datasets[i].Data = append(s.datasets[i].Data, item)
		}
	}
}

// Flatten merges every dataset's metadata into its rows, metadata first.
func Flatten(datasets []Dataset) []frame.Record {
	var out []frame.Record
	for _, ds := range datasets {
		for _, row := range ds.Data {
			rec := ds.Meta.Clone()
			for _, f := range row {
				rec = rec.Set(f.Name, f.Value)
			}
			out = append(out, rec)
		}
	}
	return out
}

// number converts numeric text to float64 and leaves anything else as is.
func number(s string) any {
	t := strings.TrimSpace(s)
	if t == "" {
		return s
	}
	switch c := t[0]; {
	case c >= '0' && c <= '9', c == '-', c == '+', c == '.':
	default:
		return s
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return s
	}
	return f
}

func hash(meta frame.Record) string {
	names := meta.Names()
	slices.Sort(names)
	var sb strings.Builder
	for _, name := range names {
		v, _ := meta.Get(name)
		fmt.Fprintf(&sb, "%s=%v\n", name, v)
	}
	return sb.String()
}

func lastIndex(s []string, v string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == v {
			return i
		}
	}
	return -1
}

package render_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bjaus/pivot/frame"
	"github.com/bjaus/pivot/render"
	"github.com/bjaus/pivot/reshape"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Fixtures ---

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

func complexTimeSeries() []frame.Record {
	rows := []struct {
		day                         int
		kind, site, parameter, unit string
		value                       float64
	}{
		{1, "routine", "site1", "height", "ft", 0.5},
		{2, "routine", "site1", "height", "ft", 0.4},
		{3, "routine", "site1", "height", "ft", 0.6},
		{4, "special", "site1", "height", "ft", 0.2},
		{5, "routine", "site1", "height", "ft", 0.1},
		{1, "special", "site1", "flow", "cfs", 0.7},
		{2, "routine", "site1", "flow", "cfs", 0.8},
		{3, "routine", "site1", "flow", "cfs", 0.0},
		{4, "routine", "site1", "flow", "cfs", 0.9},
		{5, "routine", "site1", "flow", "cfs", 0.3},
		{1, "routine", "site2", "flow", "cfs", 0.0},
		{2, "routine", "site2", "flow", "cfs", 0.7},
		{3, "routine", "site2", "flow", "cfs", 0.2},
		{4, "routine", "site2", "flow", "cfs", 0.3},
		{5, "routine", "site2", "flow", "cfs", 0.8},
	}
	out := make([]frame.Record, len(rows))
	for i, r := range rows {
		out[i] = frame.RecordOf(
			"date", day(r.day),
			"type", r.kind,
			"site", r.site,
			"parameter", r.parameter,
			"units", r.unit,
			"value", r.value,
		)
	}
	return out
}

func shape(t *testing.T, records []frame.Record, s reshape.Strategy) *frame.Frame {
	t.Helper()
	f, err := reshape.Reshape(records, s)
	require.NoError(t, err)
	return f
}

func unstackedMulti(t *testing.T) *frame.Frame {
	return shape(t, multiTimeSeries(), reshape.Unstacked{Index: []string{"date"}, Header: []string{"series"}})
}

func keyedFrame(t *testing.T) *frame.Frame {
	return shape(t, []frame.Record{
		frame.RecordOf("id", 1, "value", 0.5),
		frame.RecordOf("id", 2, "value", 10.25),
	}, reshape.Identity{PrimaryKey: "id"})
}

func marshal(t *testing.T, format render.Format, f *frame.Frame, opts render.Options) string {
	t.Helper()
	b, err := render.Marshal(format, f, opts)
	require.NoError(t, err)
	return string(b)
}

// --- Failing writers ---

type errWriter struct{}

func (e *errWriter) Write([]byte) (int, error) {
	return 0, errWriteFailed
}

// failAfterN fails on the (n+1)th call to Write.
type failAfterN struct {
	n     int
	calls int
}

func (f *failAfterN) Write(p []byte) (int, error) {
	if f.calls >= f.n {
		return 0, errWriteFailed
	}
	f.calls++
	return len(p), nil
}

var errWriteFailed = errors.New("write failed")

// ============================================================
// Tests
// ============================================================

func TestParseFormat(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		input string
		want  render.Format
		err   bool
	}{
		"html":           {input: "html", want: render.HTML},
		"csv":            {input: "csv", want: render.CSV},
		"txt":            {input: "txt", want: render.Text},
		"json":           {input: "json", want: render.JSON},
		"xlsx":           {input: "xlsx", want: render.XLSX},
		"xls":            {input: "xls", want: render.XLS},
		"png":            {input: "png", want: render.PNG},
		"svg":            {input: "svg", want: render.SVG},
		"tsv":            {input: "tsv", want: render.TSV},
		"yaml":           {input: "yaml", want: render.YAML},
		"parquet":        {input: "parquet", want: render.Parquet},
		"markdown":       {input: "md", want: render.Markdown},
		"table":          {input: "table", want: render.Table},
		"leading dot":    {input: ".csv", want: render.CSV},
		"upper case":     {input: "JSON", want: render.JSON},
		"unknown format": {input: "pdf", err: true},
		"empty":          {input: "", err: true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, err := render.ParseFormat(tt.input)
			if tt.err {
				require.ErrorIs(t, err, render.ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormats(t *testing.T) {
	t.Parallel()
	formats := render.Formats()
	require.Len(t, formats, 13)
	assert.Equal(t, render.HTML, formats[0])
	formats[0] = "x"
	assert.Equal(t, render.HTML, render.Formats()[0])
}

func TestNewEveryFormat(t *testing.T) {
	t.Parallel()
	for _, f := range render.Formats() {
		r, err := render.New(f)
		require.NoError(t, err, f)
		assert.Equal(t, f, r.Format())
		assert.NotEmpty(t, r.MediaType())
	}
}

func TestNewUnknown(t *testing.T) {
	t.Parallel()
	_, err := render.New("pdf")
	require.ErrorIs(t, err, render.ErrUnsupportedFormat)
	_, err = render.Marshal("pdf", unstackedMulti(t), render.Options{})
	require.ErrorIs(t, err, render.ErrUnsupportedFormat)
}

func TestParseOrient(t *testing.T) {
	t.Parallel()
	assert.Equal(t, render.OrientSplit, render.ParseOrient("split"))
	assert.Equal(t, render.OrientTable, render.ParseOrient("table"))
	assert.Equal(t, render.OrientRecordsIndex, render.ParseOrient(""))
	assert.Equal(t, render.OrientRecordsIndex, render.ParseOrient("sideways"))
}

func TestParseDateFormat(t *testing.T) {
	t.Parallel()
	assert.Equal(t, render.DateEpoch, render.ParseDateFormat("epoch"))
	assert.Equal(t, render.DateISO, render.ParseDateFormat("iso"))
	assert.Equal(t, render.DateISO, render.ParseDateFormat("unix"))
}

func TestWriteErrors(t *testing.T) {
	t.Parallel()
	f := unstackedMulti(t)
	formats := []render.Format{
		render.HTML, render.CSV, render.Text, render.TSV, render.JSON, render.XLSX,
		render.XLS, render.PNG, render.Parquet, render.Markdown, render.Table,
	}
	for _, format := range formats {
		t.Run(string(format), func(t *testing.T) {
			t.Parallel()
			err := render.Write(&errWriter{}, format, f, render.Options{TempDir: t.TempDir()})
			require.Error(t, err)
		})
	}
}

func TestWriteEmptyFrame(t *testing.T) {
	t.Parallel()
	empty := frame.New(nil)
	tests := map[string]struct {
		format render.Format
		want   string
	}{
		"csv":      {format: render.CSV, want: ""},
		"tsv":      {format: render.TSV, want: ""},
		"markdown": {format: render.Markdown, want: ""},
		"table":    {format: render.Table, want: ""},
		"json":     {format: render.JSON, want: "[]\n"},
		"yaml":     {format: render.YAML, want: "[]\n"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, marshal(t, tt.format, empty, render.Options{}))
		})
	}
}

func TestWriteMatchesMarshal(t *testing.T) {
	t.Parallel()
	f := unstackedMulti(t)
	var buf bytes.Buffer
	require.NoError(t, render.Write(&buf, render.CSV, f, render.Options{}))
	assert.Equal(t, marshal(t, render.CSV, f, render.Options{}), buf.String())
}

func lines(s string) []string {
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

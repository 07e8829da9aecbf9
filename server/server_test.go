package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bjaus/pivot/config"
	"github.com/bjaus/pivot/render"
	"github.com/bjaus/pivot/reshape"
	"github.com/bjaus/pivot/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
endpoints:
  - name: multi
    description: Multiple time series.
    reshape: unstacked
    views: [scatter]
    source:
      records:
        - {date: "2015-01-01", series: test1, value: 0.5}
        - {date: "2015-01-02", series: test1, value: 0.4}
        - {date: "2015-01-01", series: test2, value: 0.7}
    index: [date]
    unstacked_header: [series]
    scatter_coord: [series]
    dates: [date]
    filename: multi
    chart: timeseries
  - name: missing
    source: {csv: does-not-exist.csv}
`

func newServer(t *testing.T, opts ...server.Option) *server.Server {
	t.Helper()
	cfg, err := config.Parse(strings.NewReader(sample))
	require.NoError(t, err)
	return server.New(cfg, opts...)
}

func get(t *testing.T, s http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestIndex(t *testing.T) {
	t.Parallel()
	rec := get(t, newServer(t), "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got []struct {
		Name    string   `json:"name"`
		Reshape string   `json:"reshape"`
		Views   []string `json:"views"`
		URL     string   `json:"url"`
		Formats []string `json:"formats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "multi", got[0].Name)
	assert.Equal(t, "unstacked", got[0].Reshape)
	assert.Equal(t, []string{"unstacked", "scatter"}, got[0].Views)
	assert.Equal(t, "/multi", got[0].URL)
	assert.Equal(t, "html", got[0].Formats[0])
	assert.Equal(t, "identity", got[1].Reshape)
}

func TestEndpointCSV(t *testing.T) {
	t.Parallel()
	rec := get(t, newServer(t), "/multi.csv")
	require.Equal(t, http.StatusOK, rec.Code)

	want := `,value,value
series,test1,test2
date,,
2015-01-01,0.5,0.7
2015-01-02,0.4,
`
	assert.Equal(t, want, rec.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="multi.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, fmt.Sprint(len(want)), rec.Header().Get("Content-Length"))
	assert.Empty(t, rec.Header().Get(server.DroppedRowsHeader))
}

func TestEndpointScatterReportsDroppedRows(t *testing.T) {
	t.Parallel()
	rec := get(t, newServer(t), "/multi.csv?reshape=scatter")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "date,test1-value,test2-value\n2015-01-01,0.5,0.7\n", rec.Body.String())
	assert.Equal(t, "1", rec.Header().Get(server.DroppedRowsHeader))
}

func TestEndpointFormatQuery(t *testing.T) {
	t.Parallel()
	rec := get(t, newServer(t), "/multi?format=json&orient=split")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Contains(t, got, "columns")
	assert.Contains(t, got, "index")
	assert.Contains(t, got, "data")
}

func TestEndpointExtensionWinsOverQuery(t *testing.T) {
	t.Parallel()
	rec := get(t, newServer(t), "/multi.tsv?format=json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/tab-separated-values"))
}

func TestEndpointHTMLDefault(t *testing.T) {
	t.Parallel()
	rec := get(t, newServer(t), "/multi?orient=split")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Header().Get("Content-Disposition"))

	body := rec.Body.String()
	assert.Contains(t, body, "<h1>multi</h1>")
	assert.Contains(t, body, "<p>Multiple time series.</p>")
	assert.Contains(t, body, `<a href="/multi.csv?orient=split">csv</a>`)
	assert.Contains(t, body, `data-chart="timeseries"`)
	assert.Contains(t, body, `data-url="/multi.json"`)
	assert.Contains(t, body, `<table class="dataframe">`)
}

func TestEndpointCustomTemplate(t *testing.T) {
	t.Parallel()
	tmpl := template.Must(template.New("t").Parse(`<main>{{.Name}}{{.Table}}</main>`))
	rec := get(t, newServer(t, server.WithTemplate(tmpl)), "/multi.html")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), `<main>multi<table class="dataframe">`))
}

func TestEndpointRegistry(t *testing.T) {
	t.Parallel()
	csv, err := render.New(render.CSV)
	require.NoError(t, err)
	s := newServer(t, server.WithRegistry(render.NewRegistry(csv)))

	rec := get(t, s, "/multi")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))

	rec = get(t, s, "/multi.json")
	assert.Equal(t, http.StatusNotAcceptable, rec.Code)
}

func TestEndpointErrors(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		target string
		status int
		prefix string
	}{
		"unknown endpoint": {target: "/nope.csv", status: http.StatusNotFound, prefix: "Error: unknown endpoint"},
		"unknown format":   {target: "/multi.bogus", status: http.StatusNotAcceptable, prefix: "Error: unsupported format"},
		"missing source":   {target: "/missing.csv", status: http.StatusBadGateway, prefix: "Error: source failure"},
		"view not offered": {target: "/multi.csv?reshape=identity", status: http.StatusBadRequest, prefix: "Error: "},
		"unknown view":     {target: "/multi.csv?reshape=bogus", status: http.StatusBadRequest, prefix: "Error: unknown reshape kind"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			rec := get(t, newServer(t), tt.target)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
			assert.True(t, strings.HasPrefix(rec.Body.String(), tt.prefix), rec.Body.String())
		})
	}
}

func TestEndpointMethodNotAllowed(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()
	newServer(t).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/multi.csv", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRequestLog(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	s := newServer(t, server.WithLogger(log))

	get(t, s, "/multi.csv?reshape=scatter")
	get(t, s, "/missing.csv")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var ok map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &ok))
	assert.Equal(t, "request", ok["msg"])
	assert.Equal(t, "INFO", ok["level"])
	assert.Equal(t, "multi", ok["endpoint"])
	assert.Equal(t, "csv", ok["format"])
	assert.EqualValues(t, 200, ok["status"])
	assert.EqualValues(t, 1, ok["rows"])
	assert.EqualValues(t, 1, ok["dropped_rows"])

	var failed map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &failed))
	assert.Equal(t, "ERROR", failed["level"])
	assert.EqualValues(t, 502, failed["status"])
	assert.Contains(t, failed["error"], "source failure")
}

func TestRender(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	res, err := newServer(t).Render(context.Background(), &buf, "multi", "", nil)
	require.NoError(t, err)
	assert.Equal(t, render.HTML, res.Renderer.Format())
	assert.Equal(t, reshape.KindUnstacked, res.Kind)
	assert.Equal(t, "multi", res.Endpoint.Name)
	assert.Equal(t, 2, res.Frame.Len())
	assert.Equal(t, 2, res.Frame.Width())
	assert.Contains(t, buf.String(), "<!DOCTYPE html>")
}

func TestRenderFailureKeepsRenderer(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	res, err := newServer(t).Render(context.Background(), &buf, "missing", "csv", nil)
	require.ErrorIs(t, err, server.ErrSource)
	require.NotNil(t, res.Renderer)
	assert.Equal(t, render.CSV, res.Renderer.Format())
	assert.Nil(t, res.Frame)
	assert.Zero(t, buf.Len())
}

func TestStatusOf(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		err  error
		want int
	}{
		"nil":            {err: nil, want: http.StatusOK},
		"unknown":        {err: fmt.Errorf("x: %w", config.ErrUnknownEndpoint), want: http.StatusNotFound},
		"format":         {err: render.ErrUnsupportedFormat, want: http.StatusNotAcceptable},
		"source":         {err: fmt.Errorf("%w: boom", server.ErrSource), want: http.StatusBadGateway},
		"statistics":     {err: reshape.ErrStatistics, want: http.StatusBadRequest},
		"kind":           {err: reshape.ErrUnknownKind, want: http.StatusBadRequest},
		"view":           {err: config.ErrViewNotAllowed, want: http.StatusBadRequest},
		"misconfigured":  {err: config.ErrImproperlyConfigured, want: http.StatusInternalServerError},
		"something else": {err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, server.StatusOf(tt.err))
		})
	}
}

func TestListenAndServeShutdown(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- newServer(t).ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

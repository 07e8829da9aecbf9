package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bjaus/pivot/config"
	"github.com/bjaus/pivot/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
endpoints:
  - name: stations
    description: Station readings.
    source: {csv: stations.csv}
    primary_key: id
  - name: multi
    reshape: unstacked
    source:
      records:
        - {date: "2015-01-01", series: test1, value: 0.5}
        - {date: "2015-01-01", series: test2, value: 0.7}
    index: [date]
    unstacked_header: [series]
    dates: [date]
`

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pivot.yaml"), []byte(sample), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stations.csv"), []byte("id,name,value\n1,north,0.5\n2,south,\n"), 0o644))
	return filepath.Join(dir, "pivot.yaml")
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRenderCSV(t *testing.T) {
	t.Parallel()
	out, _, err := run(t, "--config", writeConfig(t), "render", "stations", "--format", "csv")
	require.NoError(t, err)
	assert.Equal(t, "id,name,value\n1,north,0.5\n2,south,\n", out)
}

func TestRenderUnstacked(t *testing.T) {
	t.Parallel()
	out, _, err := run(t, "-c", writeConfig(t), "render", "-e", "multi", "-f", "csv")
	require.NoError(t, err)
	assert.Equal(t, ",value,value\nseries,test1,test2\ndate,,\n2015-01-01,0.5,0.7\n", out)
}

func TestRenderDefaultsToTable(t *testing.T) {
	t.Parallel()
	out, _, err := run(t, "-c", writeConfig(t), "render", "stations")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "╭"), out)
	assert.Contains(t, out, "north")
}

func TestRenderToFile(t *testing.T) {
	t.Parallel()
	path := writeConfig(t)
	target := filepath.Join(filepath.Dir(path), "out.json")
	out, _, err := run(t, "-c", path, "render", "stations", "-o", target, "--orient", "records")
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"north","value":0.5},{"name":"south","value":null}]`, string(data))
}

func TestRenderToFileFailureRemovesFile(t *testing.T) {
	t.Parallel()
	path := writeConfig(t)
	target := filepath.Join(filepath.Dir(path), "out.csv")
	_, _, err := run(t, "-c", path, "render", "nope", "-o", target)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown endpoint")
	_, err = os.Stat(target)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRenderToFileWritesOutput(t *testing.T) {
	t.Parallel()
	path := writeConfig(t)
	s := newTestServer(t, path)
	f := renderFlags{endpoint: "stations", format: "csv", output: filepath.Join(filepath.Dir(path), "out.csv")}
	require.NoError(t, renderTo(context.Background(), s, io.Discard, f))

	data, err := os.ReadFile(f.output)
	require.NoError(t, err)
	assert.Equal(t, "id,name,value\n1,north,0.5\n2,south,\n", string(data))

	f.output = filepath.Join(filepath.Dir(path), "missing-dir", "out.csv")
	require.Error(t, renderTo(context.Background(), s, io.Discard, f))
}

func newTestServer(t *testing.T, path string) *server.Server {
	t.Helper()
	cfg, err := config.Load(path)
	require.NoError(t, err)
	return server.New(cfg)
}

func TestRenderErrors(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		args []string
		want string
	}{
		"no endpoint":      {args: []string{"render"}, want: "an endpoint is required"},
		"unknown endpoint": {args: []string{"render", "nope"}, want: "unknown endpoint"},
		"unknown format":   {args: []string{"render", "stations", "-f", "bogus"}, want: "unsupported format"},
		"bad log level":    {args: []string{"--log-level", "loud", "render", "stations"}, want: "invalid log level"},
		"bad log format":   {args: []string{"--log-format", "xml", "render", "stations"}, want: "invalid log format"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			args := append([]string{"-c", writeConfig(t)}, tt.args...)
			_, stderr, err := run(t, args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Contains(t, stderr, tt.want)
		})
	}
}

func TestMissingConfig(t *testing.T) {
	t.Parallel()
	_, _, err := run(t, "-c", filepath.Join(t.TempDir(), "none.yaml"), "endpoints")
	require.Error(t, err)
}

func TestFormats(t *testing.T) {
	t.Parallel()
	out, _, err := run(t, "formats")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 13)
	assert.Equal(t, "html     text/html", lines[0])
	assert.Equal(t, "csv      text/csv", lines[1])
}

func TestEndpoints(t *testing.T) {
	t.Parallel()
	out, _, err := run(t, "-c", writeConfig(t), "endpoints")
	require.NoError(t, err)
	assert.Equal(t, "stations\tidentity\tStation readings.\nmulti\tunstacked\t\n", out)
}

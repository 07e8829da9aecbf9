package source_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bjaus/pivot/frame"
	"github.com/bjaus/pivot/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticCopies(t *testing.T) {
	t.Parallel()
	s := source.Static{frame.RecordOf("id", 1, "value", 0.5)}
	got, err := s.Records(context.Background())
	require.NoError(t, err)
	got[0][1].Value = 9.0
	assert.Equal(t, 0.5, s[0][1].Value)
}

func TestStaticCanceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := source.Static{}.Records(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestReadCSV(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		input string
		want  []frame.Record
	}{
		"typed cells": {
			input: "id,value,note\n1,0.5,a\n2,,\"b,c\"\n",
			want: []frame.Record{
				frame.RecordOf("id", int64(1), "value", 0.5, "note", "a"),
				frame.RecordOf("id", int64(2), "value", nil, "note", "b,c"),
			},
		},
		"short row": {
			input: "id,value\n1\n",
			want:  []frame.Record{frame.RecordOf("id", int64(1), "value", nil)},
		},
		"header only": {input: "id,value\n"},
		"empty":       {input: ""},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, err := source.ReadCSV(context.Background(), strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadCSVMalformed(t *testing.T) {
	t.Parallel()
	_, err := source.ReadCSV(context.Background(), strings.NewReader("id\n\"unterminated\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestCSVFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("date,value\n2015-01-01,3\n"), 0o600))
	got, err := source.CSVFile{Path: path}.Records(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []frame.Record{frame.RecordOf("date", "2015-01-01", "value", int64(3))}, got)

	_, err = source.CSVFile{Path: filepath.Join(t.TempDir(), "missing.csv")}.Records(context.Background())
	require.ErrorIs(t, err, os.ErrNotExist)
}

func seedSQLite(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(`CREATE TABLE "time series" (id INTEGER PRIMARY KEY, series TEXT, value REAL, note BLOB)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO "time series" (series, value, note) VALUES ('test1', 0.5, x'6869'), ('test2', NULL, NULL)`)
	require.NoError(t, err)
	return path
}

func TestSQLiteTable(t *testing.T) {
	t.Parallel()
	s, err := source.OpenSQLite(seedSQLite(t), "time series", "")
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, source.DefaultPrimaryKey, s.PrimaryKey())

	got, err := s.Records(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []frame.Record{
		frame.RecordOf("id", int64(1), "series", "test1", "value", 0.5, "note", "hi"),
		frame.RecordOf("id", int64(2), "series", "test2", "value", nil, "note", nil),
	}, got)
}

func TestSQLiteQuery(t *testing.T) {
	t.Parallel()
	s, err := source.OpenSQLite(seedSQLite(t), "", `SELECT series, value FROM "time series" WHERE value IS NOT NULL`)
	require.NoError(t, err)
	defer s.Close()
	assert.Empty(t, s.PrimaryKey())

	got, err := s.Records(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []frame.Record{frame.RecordOf("series", "test1", "value", 0.5)}, got)
}

func TestSQLiteErrors(t *testing.T) {
	t.Parallel()
	_, err := source.OpenSQLite("data.db", "", "")
	require.ErrorIs(t, err, source.ErrUnsupportedSource)

	s, err := source.OpenSQLite(seedSQLite(t), "missing", "")
	require.NoError(t, err)
	defer s.Close()
	_, err = s.Records(context.Background())
	require.Error(t, err)
}

var _ source.Keyed = (*source.SQL)(nil)

package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/bjaus/pivot/frame"
)

// CSVFile reads records from a CSV file whose first line names the fields.
// Empty cells are null; cells that parse as integers or floats become
// numbers.
type CSVFile struct {
	Path string
}

func (s CSVFile) Records(ctx context.Context) ([]frame.Record, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open csv %s: %w", s.Path, err)
	}
	defer f.Close()
	return ReadCSV(ctx, f)
}

// ReadCSV parses CSV with a header line into records.
func ReadCSV(ctx context.Context, r io.Reader) ([]frame.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	var out []frame.Record
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		rec := make(frame.Record, 0, len(header))
		for i, name := range header {
			var v any
			if i < len(row) {
				v = parseCell(row[i])
			}
			rec = append(rec, frame.Field{Name: name, Value: v})
		}
		out = append(out, rec)
	}
}

func parseCell(s string) any {
	if s == "" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

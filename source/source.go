// Package source loads the flat records an endpoint reshapes.
//
// A [Source] is the only blocking step of a request, so it takes a
// context. Three kinds exist: [Static] records held in memory, a
// [CSVFile] read on every call, and a [SQL] table or query.
package source

import (
	"context"
	"errors"

	"github.com/bjaus/pivot/frame"
)

// ErrUnsupportedSource is returned for a source description naming no known
// kind.
var ErrUnsupportedSource = errors.New("unsupported source")

// Source yields the records behind an endpoint.
type Source interface {
	Records(ctx context.Context) ([]frame.Record, error)
}

// Keyed is implemented by sources whose records carry a primary key field.
type Keyed interface {
	PrimaryKey() string
}

// Static serves a fixed record list.
type Static []frame.Record

// Records returns copies of the records.
func (s Static) Records(ctx context.Context) ([]frame.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]frame.Record, len(s))
	for i, r := range s {
		out[i] = r.Clone()
	}
	return out, nil
}

package reshape

import (
	"strings"

	"github.com/bjaus/pivot/frame"
)

// Identity keys the records on the declared index and leaves them flat.
type Identity struct {
	Index []string
	// PrimaryKey is the storage key used as the index when Index is empty
	// and the records carry the field.
	PrimaryKey     string
	IndexNoneValue any
}

// Kind returns KindIdentity.
func (Identity) Kind() Kind { return KindIdentity }

func (s Identity) reshape(records []frame.Record, _ *Report) (*frame.Frame, error) {
	index := s.Index
	if len(index) == 0 && s.PrimaryKey != "" && hasField(records, s.PrimaryKey) {
		index = []string{s.PrimaryKey}
	}
	return buildKeyed(records, index, index, s.IndexNoneValue)
}

// Unstacked pivots every header field into a column level, producing one
// column per series.
type Unstacked struct {
	Index          []string
	Header         []string
	IndexNoneValue any
}

// Kind returns KindUnstacked.
func (Unstacked) Kind() Kind { return KindUnstacked }

func (s Unstacked) reshape(records []frame.Record, _ *Report) (*frame.Frame, error) {
	if len(s.Header) == 0 {
		return nil, &FieldError{Strategy: KindUnstacked, Field: "header"}
	}
	f, err := buildKeyed(records, concat(s.Index, s.Header), s.Header, s.IndexNoneValue)
	if err != nil || len(records) == 0 {
		return f, err
	}
	if err := f.UnstackN(len(s.Header)); err != nil {
		return nil, err
	}
	f.DropNullRows()
	f.DropNullColumns()
	return f, nil
}

// Scatter pivots header and coordinate fields so that the values sharing an
// index become one row of paired observations. Rows missing any pair are
// discarded.
type Scatter struct {
	Index          []string
	Header         []string
	Coord          []string
	IndexNoneValue any
}

// Kind returns KindScatter.
func (Scatter) Kind() Kind { return KindScatter }

func (s Scatter) reshape(records []frame.Record, rep *Report) (*frame.Frame, error) {
	if len(s.Coord) == 0 {
		return nil, &FieldError{Strategy: KindScatter, Field: "coord"}
	}
	unstacked := concat(s.Header, s.Coord)
	f, err := buildKeyed(records, concat(s.Index, unstacked), unstacked, s.IndexNoneValue)
	if err != nil || len(records) == 0 {
		return f, err
	}
	if err := f.UnstackN(len(unstacked)); err != nil {
		return nil, err
	}

	cols := f.Columns()
	nc := len(s.Coord)
	labels := make([]frame.Key, len(cols.Keys))
	for j, k := range cols.Keys {
		var sb strings.Builder
		for _, c := range k[1 : 1+nc] {
			if isSentinel(c, s.IndexNoneValue) {
				continue
			}
			sb.WriteString(frame.FormatValue(c))
			sb.WriteByte('-')
		}
		sb.WriteString(frame.FormatValue(k[0]))
		labels[j] = append(frame.Key{sb.String()}, k[1+nc:]...)
	}
	names := append([]string{""}, cols.Names[1+nc:]...)
	if err := f.SetColumnLabels(labels, names); err != nil {
		return nil, err
	}

	f.DropNullColumns()
	rep.DroppedRows = f.DropIncompleteRows()
	return f, nil
}

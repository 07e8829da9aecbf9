package render

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"time"

	"github.com/bjaus/pivot/frame"
)

type jsonRenderer struct{}

func (jsonRenderer) Format() Format    { return JSON }
func (jsonRenderer) MediaType() string { return "application/json" }

func (jsonRenderer) Render(w io.Writer, f *frame.Frame, opts Options) error {
	doc := jsonDocument(f, ParseOrient(string(opts.Orient)), ParseDateFormat(string(opts.DateFormat)))
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(doc)
}

// member and object encode a JSON object keeping key order.
type member struct {
	key   string
	value any
}

type object []member

func (o object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeRaw(&buf, m.key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := encodeRaw(&buf, m.value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// encodeRaw appends v to buf without HTML escaping or a trailing newline.
func encodeRaw(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1)
	return nil
}

func jsonDocument(f *frame.Frame, orient Orient, df DateFormat) any {
	switch orient {
	case OrientSplit:
		return object{
			{"columns", labels(f.Columns().Keys)},
			{"index", indexValues(f, df)},
			{"data", cellRows(f, df)},
		}
	case OrientRecords:
		names := labels(f.Columns().Keys)
		out := make([]object, f.Len())
		for i := range f.Len() {
			out[i] = rowObject(names, f.Row(i), df)
		}
		return out
	case OrientIndex:
		names := labels(f.Columns().Keys)
		out := make(object, f.Len())
		for i, k := range f.Index().Keys {
			out[i] = member{jsonKey(k, df), rowObject(names, f.Row(i), df)}
		}
		return out
	case OrientColumns:
		out := make(object, f.Width())
		for j, ck := range f.Columns().Keys {
			col := make(object, f.Len())
			for i, k := range f.Index().Keys {
				col[i] = member{jsonKey(k, df), jsonValue(f.At(i, j), df)}
			}
			out[j] = member{label(ck), col}
		}
		return out
	case OrientValues:
		return cellRows(f, df)
	case OrientTable:
		fl := flatten(f)
		fields := make([]object, len(fl.names))
		for j, name := range fl.names {
			col := make([]any, len(fl.rows))
			for i, row := range fl.rows {
				col[i] = row[j]
			}
			fields[j] = object{{"name", name}, {"type", kindOf(col).schemaType()}}
		}
		var primary []string
		if !isPositional(f) {
			primary = f.Index().Names
		}
		return object{
			{"schema", object{
				{"fields", fields},
				{"primaryKey", primary},
				{"pandas_version", "1.4.0"},
			}},
			{"data", flatRecords(fl, df)},
		}
	default:
		return flatRecords(flatten(f), df)
	}
}

func flatRecords(fl flat, df DateFormat) []object {
	out := make([]object, len(fl.rows))
	for i, row := range fl.rows {
		out[i] = rowObject(fl.names, row, df)
	}
	return out
}

func rowObject(names []string, row []any, df DateFormat) object {
	obj := make(object, len(names))
	for j, name := range names {
		obj[j] = member{name, jsonValue(row[j], df)}
	}
	return obj
}

func cellRows(f *frame.Frame, df DateFormat) [][]any {
	out := make([][]any, f.Len())
	for i := range f.Len() {
		row := f.Row(i)
		for j, v := range row {
			row[j] = jsonValue(v, df)
		}
		out[i] = row
	}
	return out
}

func indexValues(f *frame.Frame, df DateFormat) []any {
	out := make([]any, f.Len())
	for i, k := range f.Index().Keys {
		if len(k) == 1 {
			out[i] = jsonValue(k[0], df)
			continue
		}
		vals := make([]any, len(k))
		for l, v := range k {
			vals[l] = jsonValue(v, df)
		}
		out[i] = vals
	}
	return out
}

func jsonKey(k frame.Key, df DateFormat) string {
	parts := make(frame.Key, len(k))
	for i, v := range k {
		if t, ok := v.(time.Time); ok {
			parts[i] = formatJSONTime(t, df)
			continue
		}
		parts[i] = v
	}
	return label(parts)
}

func jsonValue(v any, df DateFormat) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return x
	case time.Time:
		if df == DateEpoch {
			return x.UnixMilli()
		}
		return formatJSONTime(x, df)
	default:
		return x
	}
}

func formatJSONTime(t time.Time, df DateFormat) any {
	if df == DateEpoch {
		return t.UnixMilli()
	}
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

package render

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/bjaus/pivot/frame"
)

type parquetRenderer struct{}

func (parquetRenderer) Format() Format    { return Parquet }
func (parquetRenderer) MediaType() string { return "application/vnd.apache.parquet" }

// Render writes the flattened frame as a single Snappy-compressed row
// group. Column types follow the values: integers, floats, booleans and
// millisecond timestamps, strings otherwise.
func (parquetRenderer) Render(w io.Writer, f *frame.Frame, _ Options) error {
	fl := flatten(f)
	kinds := make([]valueKind, len(fl.names))
	fields := make([]arrow.Field, len(fl.names))
	for j, name := range fl.names {
		col := make([]any, len(fl.rows))
		for i, row := range fl.rows {
			col[i] = row[j]
		}
		kinds[j] = kindOf(col)
		fields[j] = arrow.Field{Name: name, Type: arrowType(kinds[j]), Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	b := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer b.Release()
	for _, row := range fl.rows {
		for j, v := range row {
			if err := appendArrow(b.Field(j), kinds[j], v); err != nil {
				return fmt.Errorf("column %q: %w", fl.names[j], err)
			}
		}
	}
	rec := b.NewRecord()
	defer rec.Release()

	// The writer closes its sink, so it gets a buffer rather than w.
	var buf bytes.Buffer
	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	fw, err := pqarrow.NewFileWriter(schema, &buf, props, pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()))
	if err != nil {
		return err
	}
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return err
	}
	if err := fw.Close(); err != nil {
		return err
	}
	_, err = w.Write(buf.Bytes())
	return err
}

func arrowType(k valueKind) arrow.DataType {
	switch k {
	case kindInt:
		return arrow.PrimitiveTypes.Int64
	case kindFloat:
		return arrow.PrimitiveTypes.Float64
	case kindBool:
		return arrow.FixedWidthTypes.Boolean
	case kindTime:
		return arrow.FixedWidthTypes.Timestamp_ms
	default:
		return arrow.BinaryTypes.String
	}
}

func appendArrow(b array.Builder, k valueKind, v any) error {
	if frame.IsNull(v) {
		b.AppendNull()
		return nil
	}
	switch fb := b.(type) {
	case *array.Int64Builder:
		fb.Append(v.(int64))
	case *array.Float64Builder:
		x, _ := frame.Float(v)
		fb.Append(x)
	case *array.BooleanBuilder:
		fb.Append(v.(bool))
	case *array.TimestampBuilder:
		fb.Append(arrow.Timestamp(v.(time.Time).UnixMilli()))
	case *array.StringBuilder:
		fb.Append(frame.FormatValue(v))
	default:
		return fmt.Errorf("unexpected builder %T for %s values", b, k.schemaType())
	}
	return nil
}

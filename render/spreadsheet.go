package render

import (
	"encoding/xml"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/bjaus/pivot/frame"
	"github.com/xuri/excelize/v2"
)

// sheetRows is the header stack followed by the body rows with their
// cells left typed.
func sheetRows(f *frame.Frame) [][]any {
	var out [][]any
	if isEmptyFrame(f) {
		return out
	}
	for _, h := range headerRows(f) {
		row := make([]any, len(h))
		for i, s := range h {
			row[i] = s
		}
		out = append(out, row)
	}
	pad := f.Index().Levels() == 0 && f.Columns().Levels() > 1
	for i, k := range f.Index().Keys {
		row := make([]any, 0, len(k)+f.Width()+1)
		if pad {
			row = append(row, "")
		}
		row = append(row, k...)
		out = append(out, append(row, f.Row(i)...))
	}
	return out
}

// roundTrip hands write a fresh temporary path, copies what it wrote to w
// and removes the file.
func roundTrip(w io.Writer, dir, pattern string, write func(path string) error) error {
	tmp, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return err
	}
	path := tmp.Name()
	defer os.Remove(path)
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := write(path); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

type xlsxRenderer struct{}

func (xlsxRenderer) Format() Format { return XLSX }
func (xlsxRenderer) MediaType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (xlsxRenderer) Render(w io.Writer, f *frame.Frame, opts Options) error {
	return roundTrip(w, opts.TempDir, "pivot-*.xlsx", func(path string) error {
		x := excelize.NewFile()
		defer x.Close()
		sheet := opts.sheet()
		if sheet != "Sheet1" {
			if err := x.SetSheetName("Sheet1", sheet); err != nil {
				return err
			}
		}
		for r, row := range sheetRows(f) {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return err
			}
			for j, v := range row {
				if fv, ok := v.(float64); ok && (math.IsInf(fv, 0) || math.IsNaN(fv)) {
					row[j] = frame.FormatValue(fv)
				}
			}
			if err := x.SetSheetRow(sheet, cell, &row); err != nil {
				return err
			}
		}
		return x.SaveAs(path)
	})
}

// xlsRenderer writes an Excel 2003 XML spreadsheet.
type xlsRenderer struct{}

func (xlsRenderer) Format() Format    { return XLS }
func (xlsRenderer) MediaType() string { return "application/vnd.ms-excel" }

func (xlsRenderer) Render(w io.Writer, f *frame.Frame, opts Options) error {
	return roundTrip(w, opts.TempDir, "pivot-*.xls", func(path string) error {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := writeSpreadsheetML(file, opts.sheet(), sheetRows(f)); err != nil {
			file.Close()
			return err
		}
		return file.Close()
	})
}

const spreadsheetNS = "urn:schemas-microsoft-com:office:spreadsheet"

type xmlWriter struct {
	enc *xml.Encoder
	err error
}

func (x *xmlWriter) token(t xml.Token) {
	if x.err == nil {
		x.err = x.enc.EncodeToken(t)
	}
}

func (x *xmlWriter) start(name string, attrs ...string) {
	el := xml.StartElement{Name: xml.Name{Local: name}}
	for i := 0; i+1 < len(attrs); i += 2 {
		el.Attr = append(el.Attr, xml.Attr{Name: xml.Name{Local: attrs[i]}, Value: attrs[i+1]})
	}
	x.token(el)
}

func (x *xmlWriter) end(name string) {
	x.token(xml.EndElement{Name: xml.Name{Local: name}})
}

func writeSpreadsheetML(w io.Writer, sheet string, rows [][]any) error {
	x := &xmlWriter{enc: xml.NewEncoder(w)}
	x.enc.Indent("", " ")
	x.token(xml.ProcInst{Target: "xml", Inst: []byte(`version="1.0" encoding="UTF-8"`)})
	x.token(xml.ProcInst{Target: "mso-application", Inst: []byte(`progid="Excel.Sheet"`)})
	x.start("Workbook", "xmlns", spreadsheetNS, "xmlns:ss", spreadsheetNS)
	x.start("Styles")
	x.start("Style", "ss:ID", "date")
	x.start("NumberFormat", "ss:Format", "Short Date")
	x.end("NumberFormat")
	x.end("Style")
	x.end("Styles")
	x.start("Worksheet", "ss:Name", sheet)
	x.start("Table")
	for _, row := range rows {
		x.start("Row")
		for _, v := range row {
			kind, text := spreadsheetCell(v)
			if kind == "" {
				x.start("Cell")
				x.end("Cell")
				continue
			}
			if kind == "DateTime" {
				x.start("Cell", "ss:StyleID", "date")
			} else {
				x.start("Cell")
			}
			x.start("Data", "ss:Type", kind)
			x.token(xml.CharData(text))
			x.end("Data")
			x.end("Cell")
		}
		x.end("Row")
	}
	x.end("Table")
	x.end("Worksheet")
	x.end("Workbook")
	if x.err != nil {
		return x.err
	}
	return x.enc.Flush()
}

func spreadsheetCell(v any) (kind, text string) {
	switch x := v.(type) {
	case nil:
		return "", ""
	case int64:
		return "Number", strconv.FormatInt(x, 10)
	case float64:
		if math.IsInf(x, 0) || math.IsNaN(x) {
			return "String", frame.FormatValue(x)
		}
		return "Number", strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		if x {
			return "Boolean", "1"
		}
		return "Boolean", "0"
	case time.Time:
		return "DateTime", x.Format("2006-01-02T15:04:05.000")
	default:
		return "String", frame.FormatValue(x)
	}
}

package render

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/bjaus/pivot/frame"
)

// Sentinel errors for programmatic error handling.
var (
	ErrUnsupportedFormat  = errors.New("unsupported format")
	ErrUnsupportedCharset = errors.New("unsupported charset")
	ErrShapeMismatch      = errors.New("response data is not a frame")
)

// Format represents an output format. Its value doubles as the file
// extension.
type Format string

const (
	HTML     Format = "html"
	CSV      Format = "csv"
	Text     Format = "txt"
	JSON     Format = "json"
	XLSX     Format = "xlsx"
	XLS      Format = "xls"
	PNG      Format = "png"
	SVG      Format = "svg"
	TSV      Format = "tsv"
	YAML     Format = "yaml"
	Parquet  Format = "parquet"
	Markdown Format = "md"
	Table    Format = "table"
)

var formats = []Format{HTML, CSV, Text, JSON, XLSX, XLS, PNG, SVG, TSV, YAML, Parquet, Markdown, Table}

// String returns the format name.
func (f Format) String() string { return string(f) }

// Formats returns all supported format names, the default first.
func Formats() []Format {
	out := make([]Format, len(formats))
	copy(out, formats)
	return out
}

// ParseFormat parses a format name or file extension, with or without the
// leading dot.
func ParseFormat(s string) (Format, error) {
	name := strings.ToLower(strings.TrimPrefix(s, "."))
	for _, f := range formats {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Renderer serializes a shaped frame in one format.
type Renderer interface {
	Format() Format
	MediaType() string
	Render(w io.Writer, f *frame.Frame, opts Options) error
}

// Orient selects the JSON layout.
type Orient string

const (
	OrientRecordsIndex Orient = "records-index"
	OrientSplit        Orient = "split"
	OrientRecords      Orient = "records"
	OrientIndex        Orient = "index"
	OrientColumns      Orient = "columns"
	OrientValues       Orient = "values"
	OrientTable        Orient = "table"
)

var orients = []Orient{OrientRecordsIndex, OrientSplit, OrientRecords, OrientIndex, OrientColumns, OrientValues, OrientTable}

// ParseOrient returns the named orient, or records-index when s names none.
func ParseOrient(s string) Orient {
	for _, o := range orients {
		if string(o) == s {
			return o
		}
	}
	return OrientRecordsIndex
}

// DateFormat selects how JSON encodes timestamps.
type DateFormat string

const (
	DateISO   DateFormat = "iso"
	DateEpoch DateFormat = "epoch"
)

// ParseDateFormat returns the named date format, or iso when s names none.
func ParseDateFormat(s string) DateFormat {
	if DateFormat(s) == DateEpoch {
		return DateEpoch
	}
	return DateISO
}

// BorderStyle controls table border characters.
type BorderStyle int

const (
	BorderRounded BorderStyle = iota // ╭─╮╰╯│┬┴├┤┼
	BorderASCII                      // +-+|
	BorderHeavy                      // ┏━┓┗┛┃┳┻┣┫╋
	BorderDouble                     // ╔═╗╚╝║╦╩╠╣╬
)

// Options carries per-request rendering settings. The zero value is usable.
type Options struct {
	// Charset is the IANA name delimited text is encoded in. Default utf-8.
	Charset    string
	Orient     Orient
	DateFormat DateFormat
	// Width and Height size chart images in pixels. Default 640x480.
	Width  int
	Height int
	Title  string
	// Sheet names the spreadsheet worksheet. Default Sheet1.
	Sheet string
	// TempDir holds the spreadsheet round-trip files. Default os.TempDir.
	TempDir string
	Border  BorderStyle
	// Page and Template dress the HTML table.
	Page     Page
	Template *template.Template
}

func (o Options) size() (int, int) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = 640
	}
	if h <= 0 {
		h = 480
	}
	return w, h
}

func (o Options) sheet() string {
	if o.Sheet == "" {
		return "Sheet1"
	}
	return o.Sheet
}

// New returns the renderer for format f.
func New(f Format) (Renderer, error) {
	switch f {
	case HTML:
		return htmlRenderer{}, nil
	case CSV:
		return delimited{format: CSV, mediaType: "text/csv", comma: ','}, nil
	case Text:
		return delimited{format: Text, mediaType: "text/plain", comma: ','}, nil
	case TSV:
		return delimited{format: TSV, mediaType: "text/tab-separated-values", comma: '\t'}, nil
	case JSON:
		return jsonRenderer{}, nil
	case YAML:
		return yamlRenderer{}, nil
	case XLSX:
		return xlsxRenderer{}, nil
	case XLS:
		return xlsRenderer{}, nil
	case Parquet:
		return parquetRenderer{}, nil
	case PNG:
		return pngRenderer{}, nil
	case SVG:
		return svgRenderer{}, nil
	case Markdown:
		return markdownRenderer{}, nil
	case Table:
		return tableRenderer{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
}

// Write renders f in format and writes to w.
func Write(w io.Writer, format Format, f *frame.Frame, opts Options) error {
	r, err := New(format)
	if err != nil {
		return err
	}
	return r.Render(w, f, opts)
}

// Marshal renders f in format and returns the bytes.
func Marshal(format Format, f *frame.Frame, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, format, f, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

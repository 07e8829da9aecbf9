package render

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/bjaus/pivot/frame"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// delimited writes the header stack and body rows as CSV. txt and tsv
// share the layout.
type delimited struct {
	format    Format
	mediaType string
	comma     rune
}

func (d delimited) Format() Format    { return d.format }
func (d delimited) MediaType() string { return d.mediaType }

func (d delimited) Render(w io.Writer, f *frame.Frame, opts Options) error {
	out, closeFn, err := encodeWriter(w, opts.Charset)
	if err != nil {
		return err
	}
	if err := d.write(out, f); err != nil {
		return err
	}
	return closeFn()
}

func (d delimited) write(w io.Writer, f *frame.Frame) error {
	if isEmptyFrame(f) {
		return nil
	}
	cw := csv.NewWriter(w)
	cw.Comma = d.comma
	for _, row := range headerRows(f) {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	for i := range f.Len() {
		if err := cw.Write(bodyRow(f, i)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// encodeWriter wraps w so text is transcoded into charset.
func encodeWriter(w io.Writer, charset string) (io.Writer, func() error, error) {
	name := strings.ToLower(strings.TrimSpace(charset))
	if name == "" || name == "utf-8" || name == "utf8" {
		return w, func() error { return nil }, nil
	}
	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedCharset, charset)
	}
	if enc == nil {
		return nil, nil, fmt.Errorf("%w: %q has no encoder", ErrUnsupportedCharset, charset)
	}
	tw := transform.NewWriter(w, enc.NewEncoder())
	return tw, tw.Close, nil
}

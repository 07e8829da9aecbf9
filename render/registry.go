package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bjaus/pivot/frame"
)

// Registry maps formats to renderers. The first renderer registered is the
// default.
type Registry struct {
	byFormat map[Format]Renderer
	order    []Format
}

// NewRegistry builds a registry from rs. A later renderer for the same
// format replaces an earlier one but keeps its position.
func NewRegistry(rs ...Renderer) *Registry {
	reg := &Registry{byFormat: make(map[Format]Renderer, len(rs))}
	for _, r := range rs {
		if _, ok := reg.byFormat[r.Format()]; !ok {
			reg.order = append(reg.order, r.Format())
		}
		reg.byFormat[r.Format()] = r
	}
	return reg
}

// DefaultRegistry holds a renderer for every supported format, html first.
func DefaultRegistry() *Registry {
	rs := make([]Renderer, 0, len(formats))
	for _, f := range formats {
		r, err := New(f)
		if err != nil {
			panic(err)
		}
		rs = append(rs, r)
	}
	return NewRegistry(rs...)
}

// Lookup returns the renderer for f.
func (reg *Registry) Lookup(f Format) (Renderer, bool) {
	r, ok := reg.byFormat[f]
	return r, ok
}

// Formats lists the registered formats in registration order.
func (reg *Registry) Formats() []Format {
	out := make([]Format, len(reg.order))
	copy(out, reg.order)
	return out
}

// Default returns the first registered renderer, or nil when empty.
func (reg *Registry) Default() Renderer {
	if len(reg.order) == 0 {
		return nil
	}
	return reg.byFormat[reg.order[0]]
}

// Response is what an upstream handler hands to a renderer: a status code
// and either a frame or an error detail.
type Response struct {
	Status int
	Data   any
}

// OK reports whether the status is 2xx. A zero status counts as 200.
func (resp Response) OK() bool {
	return resp.Status == 0 || (resp.Status >= 200 && resp.Status < 300)
}

// ErrorText is the plain text body for a failed response.
func (resp Response) ErrorText() string {
	detail := ""
	switch d := resp.Data.(type) {
	case error:
		detail = d.Error()
	case string:
		detail = d
	case map[string]any:
		if v, ok := d["detail"]; ok {
			detail = fmt.Sprint(v)
		}
	case map[string]string:
		detail = d["detail"]
	}
	if detail == "" {
		detail = strconv.Itoa(resp.Status)
	}
	return "Error: " + detail
}

// Respond renders resp with r. A non-2xx response writes its error text
// instead of invoking r.
func Respond(w io.Writer, r Renderer, resp Response, opts Options) error {
	if !resp.OK() {
		_, err := io.WriteString(w, resp.ErrorText())
		return err
	}
	f, ok := resp.Data.(*frame.Frame)
	if !ok || f == nil {
		return fmt.Errorf("%w: format %q cannot render %T", ErrShapeMismatch, r.Format(), resp.Data)
	}
	return r.Render(w, f, opts)
}

// ContentType is the Content-Type header for r, naming the charset for
// text formats.
func ContentType(r Renderer, charset string) string {
	mt := r.MediaType()
	if !strings.HasPrefix(mt, "text/") && mt != "image/svg+xml" {
		return mt
	}
	if charset == "" || !isDelimited(r.Format()) {
		charset = "utf-8"
	}
	return mt + "; charset=" + charset
}

func isDelimited(f Format) bool {
	return f == CSV || f == Text || f == TSV
}

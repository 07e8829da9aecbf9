package render

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"io"
	"strings"

	"github.com/bjaus/pivot/frame"
)

// Link points at the same data in another format.
type Link struct {
	Format Format
	URL    string
}

// Page is the chrome around the HTML table. Table is filled in by the
// renderer.
type Page struct {
	Name        string
	Description string
	URL         string
	Formats     []Link
	// Chart hints which client-side chart suits the data, e.g. "timeseries".
	Chart string
	Table template.HTML
}

// DefaultPage is the host template used when Options.Template is nil.
var DefaultPage = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Name}}</title>
</head>
<body>
<h1>{{.Name}}</h1>
{{- if .Description}}
<p>{{.Description}}</p>
{{- end}}
{{- if .Formats}}
<ul class="formats">
{{- range .Formats}}
<li><a href="{{.URL}}">{{.Format}}</a></li>
{{- end}}
</ul>
{{- end}}
<div class="data"{{if .Chart}} data-chart="{{.Chart}}"{{end}}{{if .URL}} data-url="{{.URL}}"{{end}}>
{{.Table}}</div>
</body>
</html>
`))

type htmlRenderer struct{}

func (htmlRenderer) Format() Format    { return HTML }
func (htmlRenderer) MediaType() string { return "text/html" }

func (htmlRenderer) Render(w io.Writer, f *frame.Frame, opts Options) error {
	var buf bytes.Buffer
	if err := writeHTMLTable(&buf, f); err != nil {
		return err
	}
	tmpl := opts.Template
	if tmpl == nil {
		tmpl = DefaultPage
	}
	page := opts.Page
	page.Table = template.HTML(buf.String())
	return tmpl.Execute(w, page)
}

// writeHTMLTable writes the table fragment: the header stack in <thead>,
// index labels as row headers in <tbody>.
func writeHTMLTable(w io.Writer, f *frame.Frame) error {
	if _, err := fmt.Fprintln(w, `<table class="dataframe">`); err != nil {
		return err
	}
	if !isEmptyFrame(f) {
		nidx := max(f.Index().Levels(), 1)
		if f.Columns().Levels() <= 1 {
			nidx = f.Index().Levels()
		}
		if _, err := fmt.Fprintln(w, "  <thead>"); err != nil {
			return err
		}
		for _, row := range headerRows(f) {
			if err := writeHTMLRow(w, row, len(row), "th"); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, "  </thead>"); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, "  <tbody>"); err != nil {
			return err
		}
		for i := range f.Len() {
			if err := writeHTMLRow(w, bodyRow(f, i), nidx, "td"); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, "  </tbody>"); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "</table>")
	return err
}

// writeHTMLRow writes the first heads cells as <th> and the rest as tag.
func writeHTMLRow(w io.Writer, cells []string, heads int, tag string) error {
	var sb strings.Builder
	sb.WriteString("    <tr>\n")
	for i, cell := range cells {
		t := tag
		if i < heads {
			t = "th"
		}
		fmt.Fprintf(&sb, "      <%s>%s</%s>\n", t, html.EscapeString(cell), t)
	}
	sb.WriteString("    </tr>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

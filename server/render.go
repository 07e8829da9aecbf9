package server

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/bjaus/pivot/config"
	"github.com/bjaus/pivot/frame"
	"github.com/bjaus/pivot/render"
	"github.com/bjaus/pivot/reshape"
)

// Result describes a rendered response. Fields are filled as far as the
// pipeline got, so a failed Render still names the renderer when the
// format resolved.
type Result struct {
	Endpoint *config.Endpoint
	Renderer render.Renderer
	Kind     reshape.Kind
	Frame    *frame.Frame
	Report   reshape.Report
}

// Render runs the pipeline for one endpoint and writes the payload to w.
// An empty format selects the registry default. The query supplies the
// request options: orient, date_format, group, reshape, width and height.
func (s *Server) Render(ctx context.Context, w io.Writer, name, format string, q url.Values) (*Result, error) {
	res := &Result{}
	e, err := s.cfg.Lookup(name)
	if err != nil {
		return res, err
	}
	res.Endpoint = e

	rd, err := s.renderer(format)
	if err != nil {
		return res, err
	}
	res.Renderer = rd

	kind := e.Kind()
	if v := q.Get("reshape"); v != "" {
		if kind, err = reshape.ParseKind(v); err != nil {
			return res, err
		}
	}
	res.Kind = kind
	grouping, _ := reshape.ParseGrouping(q.Get("group"))

	src, err := e.Open()
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrSource, err)
	}
	if c, ok := src.(io.Closer); ok {
		defer c.Close()
	}
	strategy, err := e.Strategy(kind, grouping, src)
	if err != nil {
		return res, err
	}

	records, err := src.Records(ctx)
	if err != nil {
		return res, fmt.Errorf("%w: endpoint %s: %w", ErrSource, e.Name, err)
	}
	records, err = e.Prepare(records)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrSource, err)
	}

	f, rep, err := reshape.ReshapeWithReport(records, strategy)
	if err != nil {
		return res, err
	}
	res.Frame, res.Report = f, rep

	opts := s.options(e, q)
	if err := render.Respond(w, rd, render.Response{Data: f}, opts); err != nil {
		return res, fmt.Errorf("render %s: %w", rd.Format(), err)
	}
	return res, nil
}

func (s *Server) renderer(format string) (render.Renderer, error) {
	if format == "" {
		if rd := s.reg.Default(); rd != nil {
			return rd, nil
		}
		return nil, fmt.Errorf("%w: no renderers registered", render.ErrUnsupportedFormat)
	}
	f, err := render.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	rd, ok := s.reg.Lookup(f)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not offered", render.ErrUnsupportedFormat, format)
	}
	return rd, nil
}

func (s *Server) options(e *config.Endpoint, q url.Values) render.Options {
	opts := render.Options{
		Charset:    e.Charset,
		Orient:     render.ParseOrient(q.Get("orient")),
		DateFormat: render.ParseDateFormat(q.Get("date_format")),
		Title:      e.Name,
		Template:   s.tmpl,
		Page: render.Page{
			Name:        e.Name,
			Description: e.Description,
			URL:         "/" + e.Name + ".json",
			Formats:     s.links(e, q),
			Chart:       e.Chart,
		},
	}
	opts.Width, _ = strconv.Atoi(q.Get("width"))
	opts.Height, _ = strconv.Atoi(q.Get("height"))
	return opts
}

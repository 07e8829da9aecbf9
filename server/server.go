// Package server exposes configured endpoints over HTTP.
//
// GET /{endpoint}.{format} loads the endpoint's records, reshapes them and
// renders the frame. The format may also come from ?format=, and defaults
// to the registry's first format. GET / lists the endpoints as JSON.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bjaus/pivot/config"
	"github.com/bjaus/pivot/render"
	"github.com/bjaus/pivot/reshape"
)

// ErrSource marks a failure to load or prepare an endpoint's records.
var ErrSource = errors.New("source failure")

// DroppedRowsHeader reports how many rows a scatter view discarded.
const DroppedRowsHeader = "X-Pivot-Dropped-Rows"

// Server serves the endpoints of one configuration file.
type Server struct {
	cfg  *config.File
	reg  *render.Registry
	log  *slog.Logger
	tmpl *template.Template
	mux  *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithRegistry sets the renderers offered. The default is
// render.DefaultRegistry.
func WithRegistry(r *render.Registry) Option {
	return func(s *Server) { s.reg = r }
}

// WithTemplate sets the host page for html responses.
func WithTemplate(t *template.Template) Option {
	return func(s *Server) { s.tmpl = t }
}

// New returns a Server for cfg.
func New(cfg *config.File, opts ...Option) *Server {
	s := &Server{
		cfg: cfg,
		reg: render.DefaultRegistry(),
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mux = http.NewServeMux()
	s.mux.HandleFunc("GET /{$}", s.serveIndex)
	s.mux.HandleFunc("GET /{endpoint}", s.serveEndpoint)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info("stopped")
	return nil
}

type endpointInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Reshape     string   `json:"reshape"`
	Views       []string `json:"views"`
	URL         string   `json:"url"`
	Formats     []string `json:"formats"`
}

func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	formats := make([]string, 0, len(s.reg.Formats()))
	for _, f := range s.reg.Formats() {
		formats = append(formats, string(f))
	}
	out := make([]endpointInfo, 0, len(s.cfg.Endpoints))
	for i := range s.cfg.Endpoints {
		e := &s.cfg.Endpoints[i]
		views := make([]string, 0, len(e.Kinds()))
		for _, k := range e.Kinds() {
			views = append(views, string(k))
		}
		out = append(out, endpointInfo{
			Name:        e.Name,
			Description: e.Description,
			Reshape:     string(e.Kind()),
			Views:       views,
			URL:         "/" + e.Name,
			Formats:     formats,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.log.Error("write index", "error", err)
	}
}

func (s *Server) serveEndpoint(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	name, ext := splitExt(r.PathValue("endpoint"))
	format := ext
	if format == "" {
		format = r.URL.Query().Get("format")
	}

	var buf bytes.Buffer
	res, err := s.Render(r.Context(), &buf, name, format, r.URL.Query())
	status := http.StatusOK
	if err != nil {
		status = StatusOf(err)
		s.writeError(w, res, status, err)
	} else {
		h := w.Header()
		h.Set("Content-Type", render.ContentType(res.Renderer, res.Endpoint.Charset))
		if res.Endpoint.Attachment(res.Renderer.Format()) {
			h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Endpoint.Filename+"."+string(res.Renderer.Format())))
		}
		if res.Kind == reshape.KindScatter {
			h.Set(DroppedRowsHeader, strconv.Itoa(res.Report.DroppedRows))
		}
		h.Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(status)
		if _, werr := w.Write(buf.Bytes()); werr != nil {
			err = werr
		}
	}

	attrs := []slog.Attr{
		slog.String("endpoint", name),
		slog.String("format", format),
		slog.Int("status", status),
		slog.Duration("elapsed", time.Since(start)),
	}
	if res != nil && res.Frame != nil {
		attrs = append(attrs, slog.Int("rows", res.Frame.Len()), slog.Int("cols", res.Frame.Width()))
		if res.Kind == reshape.KindScatter {
			attrs = append(attrs, slog.Int("dropped_rows", res.Report.DroppedRows))
		}
	}
	level := slog.LevelInfo
	if err != nil {
		attrs = append(attrs, slog.Any("error", err))
		level = slog.LevelWarn
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
	}
	s.log.LogAttrs(r.Context(), level, "request", attrs...)
}

// writeError renders err through the upstream error passthrough of the
// requested renderer, or of the default one when the format is unknown.
func (s *Server) writeError(w http.ResponseWriter, res *Result, status int, err error) {
	rd := s.reg.Default()
	if res != nil && res.Renderer != nil {
		rd = res.Renderer
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if rd == nil {
		_, _ = io.WriteString(w, render.Response{Status: status, Data: err}.ErrorText())
		return
	}
	_ = render.Respond(w, rd, render.Response{Status: status, Data: err}, render.Options{})
}

// StatusOf maps an error from Render to an HTTP status.
func StatusOf(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, config.ErrUnknownEndpoint):
		return http.StatusNotFound
	case errors.Is(err, render.ErrUnsupportedFormat):
		return http.StatusNotAcceptable
	case errors.Is(err, ErrSource):
		return http.StatusBadGateway
	case errors.Is(err, reshape.ErrStatistics),
		errors.Is(err, reshape.ErrUnknownKind),
		errors.Is(err, config.ErrViewNotAllowed):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func splitExt(name string) (base, ext string) {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return name, ""
	}
	return name[:i], name[i+1:]
}

// links lists the endpoint in every registered format, keeping the query.
func (s *Server) links(e *config.Endpoint, q url.Values) []render.Link {
	q = cloneQuery(q)
	q.Del("format")
	suffix := ""
	if enc := q.Encode(); enc != "" {
		suffix = "?" + enc
	}
	out := make([]render.Link, 0, len(s.reg.Formats()))
	for _, f := range s.reg.Formats() {
		out = append(out, render.Link{Format: f, URL: "/" + e.Name + "." + string(f) + suffix})
	}
	return out
}

func cloneQuery(q url.Values) url.Values {
	out := make(url.Values, len(q))
	for k, v := range q {
		out[k] = append([]string(nil), v...)
	}
	return out
}

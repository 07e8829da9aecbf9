// Package config loads endpoint definitions and resolves them into reshape
// strategies.
//
// A configuration file lists endpoints. Each names a record source, a
// reshape kind and the field roles that kind needs:
//
//	defaults:
//	  index_none_value: "-"
//	endpoints:
//	  - name: multi
//	    reshape: unstacked
//	    source: {sqlite: data.db, table: multi_time_series}
//	    index: [date]
//	    unstacked_header: [series]
//
// Every endpoint is validated when the file is loaded, so a broken
// definition fails at startup rather than on the first request.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bjaus/pivot/frame"
	"github.com/bjaus/pivot/render"
	"github.com/bjaus/pivot/reshape"
	"gopkg.in/yaml.v3"
)

// Sentinel errors for programmatic error handling.
var (
	ErrImproperlyConfigured = errors.New("improperly configured")
	ErrUnknownEndpoint      = errors.New("unknown endpoint")
	ErrViewNotAllowed       = errors.New("reshape kind not offered by endpoint")
)

// DefaultIndexNoneValue replaces nulls in index and header fields of the
// pivoting strategies when no value is configured.
const DefaultIndexNoneValue = "-"

// File is a parsed configuration file.
type File struct {
	Defaults  Defaults   `yaml:"defaults"`
	Endpoints []Endpoint `yaml:"endpoints"`

	dir    string
	byName map[string]int
}

// Defaults apply to every endpoint that leaves the setting empty.
type Defaults struct {
	IndexNoneValue    *string  `yaml:"index_none_value"`
	Charset           string   `yaml:"charset"`
	AttachmentFormats []string `yaml:"attachment_formats"`
}

// Endpoint describes one served dataset.
type Endpoint struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// Reshape is the default kind; Views lists the kinds a request may
	// switch to with ?reshape=.
	Reshape string   `yaml:"reshape"`
	Views   []string `yaml:"views"`
	Source  Source   `yaml:"source"`

	PrimaryKey      string   `yaml:"primary_key"`
	Index           []string `yaml:"index"`
	UnstackedHeader []string `yaml:"unstacked_header"`
	ScatterCoord    []string `yaml:"scatter_coord"`
	ScatterHeader   []string `yaml:"scatter_header"`
	BoxplotGroup    string   `yaml:"boxplot_group"`
	BoxplotDate     string   `yaml:"boxplot_date"`
	BoxplotHeader   []string `yaml:"boxplot_header"`
	BoxplotGrouping string   `yaml:"boxplot_grouping"`
	IndexNoneValue  *string  `yaml:"index_none_value"`

	Dates  []string          `yaml:"dates"`
	Labels map[string]string `yaml:"labels"`

	Filename          string   `yaml:"filename"`
	AttachmentFormats []string `yaml:"attachment_formats"`
	Charset           string   `yaml:"charset"`
	Chart             string   `yaml:"chart"`

	dir         string
	kind        reshape.Kind
	views       []reshape.Kind
	grouping    reshape.Grouping
	attachments []render.Format
}

// Source says where an endpoint's records come from. Exactly one of
// Records, CSV or SQLite is set; SQLite needs Table or Query.
type Source struct {
	Records Rows   `yaml:"records"`
	CSV     string `yaml:"csv"`
	SQLite  string `yaml:"sqlite"`
	Table   string `yaml:"table"`
	Query   string `yaml:"query"`
}

// Rows are inline records. Field order follows the YAML mapping.
type Rows []frame.Record

func (r *Rows) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: records must be a list", n.Line)
	}
	out := make(Rows, 0, len(n.Content))
	for _, item := range n.Content {
		if item.Kind != yaml.MappingNode {
			return fmt.Errorf("line %d: record must be a mapping", item.Line)
		}
		rec := make(frame.Record, 0, len(item.Content)/2)
		for i := 0; i+1 < len(item.Content); i += 2 {
			var v any
			if err := item.Content[i+1].Decode(&v); err != nil {
				return err
			}
			rec = append(rec, frame.Field{Name: item.Content[i].Value, Value: v})
		}
		out = append(out, rec)
	}
	*r = out
	return nil
}

// Load reads and validates the file at path. Source paths resolve against
// the file's directory.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := decode(bytes.NewReader(data), filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse reads and validates configuration from r. Source paths resolve
// against the working directory.
func Parse(r io.Reader) (*File, error) {
	return decode(r, ".")
}

func decode(r io.Reader, dir string) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrImproperlyConfigured, err)
	}
	f.dir = dir
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Lookup returns the endpoint called name.
func (f *File) Lookup(name string) (*Endpoint, error) {
	i, ok := f.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEndpoint, name)
	}
	return &f.Endpoints[i], nil
}

func (f *File) validate() error {
	f.byName = make(map[string]int, len(f.Endpoints))
	for i := range f.Endpoints {
		e := &f.Endpoints[i]
		if e.Name == "" {
			return fmt.Errorf("%w: endpoint %d has no name", ErrImproperlyConfigured, i+1)
		}
		if strings.ContainsAny(e.Name, "/.?# ") {
			return fmt.Errorf("%w: endpoint name %q must not contain '/', '.', '?', '#' or spaces", ErrImproperlyConfigured, e.Name)
		}
		if _, dup := f.byName[e.Name]; dup {
			return fmt.Errorf("%w: endpoint %q defined twice", ErrImproperlyConfigured, e.Name)
		}
		f.byName[e.Name] = i
		f.applyDefaults(e)
		if err := e.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (f *File) applyDefaults(e *Endpoint) {
	e.dir = f.dir
	if e.IndexNoneValue == nil {
		e.IndexNoneValue = f.Defaults.IndexNoneValue
	}
	if e.Charset == "" {
		e.Charset = f.Defaults.Charset
	}
	if len(e.AttachmentFormats) == 0 {
		e.AttachmentFormats = f.Defaults.AttachmentFormats
	}
}

func (e *Endpoint) validate() error {
	kind, err := reshape.ParseKind(e.Reshape)
	if err != nil {
		return fmt.Errorf("%w: endpoint %s: %w", ErrImproperlyConfigured, e.Name, err)
	}
	e.kind = kind
	e.views = []reshape.Kind{kind}
	for _, v := range e.Views {
		k, err := reshape.ParseKind(v)
		if err != nil {
			return fmt.Errorf("%w: endpoint %s: views: %w", ErrImproperlyConfigured, e.Name, err)
		}
		if !e.Allows(k) {
			e.views = append(e.views, k)
		}
	}
	for _, k := range e.views {
		if err := e.require(k); err != nil {
			return err
		}
	}

	if e.BoxplotGrouping != "" {
		g, ok := reshape.ParseGrouping(e.BoxplotGrouping)
		if !ok {
			return fmt.Errorf("%w: endpoint %s: unknown boxplot_grouping %q", ErrImproperlyConfigured, e.Name, e.BoxplotGrouping)
		}
		e.grouping = g
	}

	e.attachments = nil
	for _, s := range e.AttachmentFormats {
		format, err := render.ParseFormat(s)
		if err != nil {
			return fmt.Errorf("%w: endpoint %s: attachment_formats: %w", ErrImproperlyConfigured, e.Name, err)
		}
		e.attachments = append(e.attachments, format)
	}
	return e.Source.validate(e.Name)
}

// require checks that the field roles kind needs are configured.
func (e *Endpoint) require(kind reshape.Kind) error {
	var missing string
	switch kind {
	case reshape.KindUnstacked:
		if len(e.UnstackedHeader) == 0 {
			missing = "unstacked_header"
		}
	case reshape.KindScatter:
		if len(e.ScatterCoord) == 0 {
			missing = "scatter_coord"
		}
	case reshape.KindBoxplot:
		if e.BoxplotGroup == "" {
			missing = "boxplot_group"
		}
	}
	if missing != "" {
		return fmt.Errorf("%w: %s should be specified on %s", ErrImproperlyConfigured, missing, e.Name)
	}
	return nil
}

func (s Source) validate(name string) error {
	set := 0
	for _, ok := range []bool{s.Records != nil, s.CSV != "", s.SQLite != ""} {
		if ok {
			set++
		}
	}
	switch {
	case set == 0:
		return fmt.Errorf("%w: endpoint %s has no source", ErrImproperlyConfigured, name)
	case set > 1:
		return fmt.Errorf("%w: endpoint %s: source must set only one of records, csv or sqlite", ErrImproperlyConfigured, name)
	case s.SQLite != "" && s.Table == "" && s.Query == "":
		return fmt.Errorf("%w: endpoint %s: sqlite source needs a table or a query", ErrImproperlyConfigured, name)
	case s.SQLite == "" && (s.Table != "" || s.Query != ""):
		return fmt.Errorf("%w: endpoint %s: table and query apply only to sqlite sources", ErrImproperlyConfigured, name)
	}
	return nil
}

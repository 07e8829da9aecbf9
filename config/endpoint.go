package config

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/bjaus/pivot/frame"
	"github.com/bjaus/pivot/render"
	"github.com/bjaus/pivot/reshape"
	"github.com/bjaus/pivot/source"
)

// Kind is the endpoint's default reshape kind.
func (e *Endpoint) Kind() reshape.Kind { return e.kind }

// Kinds lists every kind the endpoint offers, the default first.
func (e *Endpoint) Kinds() []reshape.Kind { return slices.Clone(e.views) }

// Allows reports whether a request may ask for kind.
func (e *Endpoint) Allows(kind reshape.Kind) bool { return slices.Contains(e.views, kind) }

// Resolve builds the endpoint's default strategy.
func Resolve(e *Endpoint) (reshape.Strategy, error) {
	return e.Strategy(e.kind, "", nil)
}

// Strategy builds the strategy for kind. An empty grouping falls back to the
// configured boxplot_grouping, then to the series-count heuristic. When src
// is keyed and no primary key is configured, identity views index by the
// source's key.
func (e *Endpoint) Strategy(kind reshape.Kind, grouping reshape.Grouping, src source.Source) (reshape.Strategy, error) {
	if !e.Allows(kind) {
		return nil, fmt.Errorf("%w: %s does not offer %s", ErrViewNotAllowed, e.Name, kind)
	}
	if err := e.require(kind); err != nil {
		return nil, err
	}
	index := e.fields(e.Index)
	switch kind {
	case reshape.KindIdentity:
		pk := e.PrimaryKey
		if k, ok := src.(source.Keyed); ok && pk == "" {
			pk = k.PrimaryKey()
		}
		return reshape.Identity{
			Index:          index,
			PrimaryKey:     e.field(pk),
			IndexNoneValue: e.sentinel(kind),
		}, nil
	case reshape.KindUnstacked:
		return reshape.Unstacked{
			Index:          index,
			Header:         e.fields(e.UnstackedHeader),
			IndexNoneValue: e.sentinel(kind),
		}, nil
	case reshape.KindScatter:
		return reshape.Scatter{
			Index:          index,
			Header:         e.fields(e.ScatterHeader),
			Coord:          e.fields(e.ScatterCoord),
			IndexNoneValue: e.sentinel(kind),
		}, nil
	case reshape.KindBoxplot:
		if grouping == "" {
			grouping = e.grouping
		}
		return reshape.Boxplot{
			Group:          e.field(e.BoxplotGroup),
			Date:           e.field(e.BoxplotDate),
			Header:         e.fields(e.BoxplotHeader),
			Index:          index,
			Grouping:       grouping,
			IndexNoneValue: e.sentinel(kind),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", reshape.ErrUnknownKind, kind)
	}
}

// sentinel is the configured null replacement. Pivoting strategies default
// to "-"; identity keeps nulls unless one is configured.
func (e *Endpoint) sentinel(kind reshape.Kind) any {
	switch {
	case e.IndexNoneValue != nil:
		return *e.IndexNoneValue
	case kind == reshape.KindIdentity:
		return nil
	default:
		return DefaultIndexNoneValue
	}
}

// field maps a configured field name to its display label, the name the
// prepared records carry.
func (e *Endpoint) field(name string) string {
	if label, ok := e.Labels[name]; ok && name != "" {
		return label
	}
	return name
}

func (e *Endpoint) fields(names []string) []string {
	if names == nil {
		return nil
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = e.field(n)
	}
	return out
}

// Prepare parses the configured date fields, plus boxplot_date, and applies
// labels.
func (e *Endpoint) Prepare(records []frame.Record) ([]frame.Record, error) {
	records, err := frame.ParseDates(records, e.dateFields())
	if err != nil {
		return nil, fmt.Errorf("endpoint %s: %w", e.Name, err)
	}
	return frame.RenameFields(records, e.Labels), nil
}

func (e *Endpoint) dateFields() []string {
	if e.BoxplotDate == "" || slices.Contains(e.Dates, e.BoxplotDate) {
		return e.Dates
	}
	return append(slices.Clone(e.Dates), e.BoxplotDate)
}

// Open returns the endpoint's record source. Callers close sources that
// implement io.Closer.
func (e *Endpoint) Open() (source.Source, error) {
	s := e.Source
	switch {
	case s.Records != nil:
		return source.Static(s.Records), nil
	case s.CSV != "":
		return source.CSVFile{Path: e.path(s.CSV)}, nil
	case s.SQLite != "":
		db, err := source.OpenSQLite(e.path(s.SQLite), s.Table, s.Query)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("%w: endpoint %s", source.ErrUnsupportedSource, e.Name)
	}
}

func (e *Endpoint) path(p string) string {
	if filepath.IsAbs(p) || e.dir == "" {
		return p
	}
	return filepath.Join(e.dir, p)
}

// Attachment reports whether responses in format f download as a file. A
// configured filename applies to attachment_formats, or to every format but
// html when that list is empty.
func (e *Endpoint) Attachment(f render.Format) bool {
	if e.Filename == "" {
		return false
	}
	if len(e.attachments) == 0 {
		return f != render.HTML
	}
	return slices.Contains(e.attachments, f)
}

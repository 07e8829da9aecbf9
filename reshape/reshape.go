// Package reshape turns flat records into the shaped frames served by an
// endpoint. The closed set of strategies is [Identity], [Unstacked],
// [Scatter] and [Boxplot]; [Reshape] is the single entry point.
package reshape

import (
	"errors"
	"fmt"

	"github.com/bjaus/pivot/frame"
)

// Sentinel errors for programmatic error handling.
var (
	ErrMissingField = errors.New("missing required field list")
	ErrStatistics   = errors.New("statistical input error")
	ErrUnknownKind  = errors.New("unknown reshape kind")
)

// Kind names a strategy.
type Kind string

const (
	KindIdentity  Kind = "identity"
	KindUnstacked Kind = "unstacked"
	KindScatter   Kind = "scatter"
	KindBoxplot   Kind = "boxplot"
)

var kinds = []Kind{KindIdentity, KindUnstacked, KindScatter, KindBoxplot}

// String returns the kind name.
func (k Kind) String() string { return string(k) }

// Kinds returns all strategy kinds.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// ParseKind parses a strategy name. The empty string is identity.
func ParseKind(s string) (Kind, error) {
	if s == "" {
		return KindIdentity, nil
	}
	for _, k := range kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// FieldError reports a strategy built without a field list it requires.
type FieldError struct {
	Strategy Kind
	Field    string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s: %s must not be empty", ErrMissingField, e.Strategy, e.Field)
}

func (e *FieldError) Unwrap() error { return ErrMissingField }

// Strategy is one of Identity, Unstacked, Scatter or Boxplot.
type Strategy interface {
	Kind() Kind
	reshape(records []frame.Record, rep *Report) (*frame.Frame, error)
}

// Report carries side information about a reshape.
type Report struct {
	// DroppedRows counts rows discarded because a paired value was missing.
	DroppedRows int
}

// Reshape applies s to records.
func Reshape(records []frame.Record, s Strategy) (*frame.Frame, error) {
	f, _, err := ReshapeWithReport(records, s)
	return f, err
}

// ReshapeWithReport is Reshape that also returns the Report.
func ReshapeWithReport(records []frame.Record, s Strategy) (*frame.Frame, Report, error) {
	var rep Report
	if s == nil {
		return nil, rep, fmt.Errorf("%w: nil", ErrUnknownKind)
	}
	f, err := s.reshape(records, &rep)
	if err != nil {
		return nil, rep, fmt.Errorf("reshape %s: %w", s.Kind(), err)
	}
	return f, rep, nil
}

// buildKeyed builds a frame keyed on index after substituting sentinel for
// nulls in the fields that will be unstacked.
func buildKeyed(records []frame.Record, index, unstacked []string, sentinel any) (*frame.Frame, error) {
	f := frame.New(records)
	if len(records) == 0 {
		return f, nil
	}
	f.ReplaceIndexSentinel(unstacked, sentinel)
	if len(index) == 0 {
		return f, nil
	}
	if err := f.SetIndex(index...); err != nil {
		return nil, err
	}
	return f, nil
}

func concat(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

func hasField(records []frame.Record, name string) bool {
	for _, r := range records {
		if _, ok := r.Get(name); ok {
			return true
		}
	}
	return false
}

func isSentinel(v, sentinel any) bool {
	return frame.IsNull(v) || (sentinel != nil && frame.Compare(v, sentinel) == 0)
}

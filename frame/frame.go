package frame

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Sentinel errors for programmatic error handling.
var (
	ErrFieldNotFound  = errors.New("field not found")
	ErrDuplicateEntry = errors.New("index contains duplicate entries, cannot reshape")
	ErrNoIndex        = errors.New("frame has no index level to unstack")
	ErrShape          = errors.New("shape mismatch")
)

// RowLevel names the synthetic positional row index.
const RowLevel = "row"

// Key is one label tuple of an Index.
type Key []any

// String joins the formatted components with commas.
func (k Key) String() string {
	parts := make([]string, len(k))
	for i, v := range k {
		parts[i] = FormatValue(v)
	}
	return strings.Join(parts, ",")
}

// Compare orders keys component by component.
func (k Key) Compare(o Key) int {
	for i := range min(len(k), len(o)) {
		if c := Compare(k[i], o[i]); c != 0 {
			return c
		}
	}
	return len(k) - len(o)
}

// hash is an exact, type-aware map key for k. Numerically equal int64 and
// float64 values share a hash.
func (k Key) hash() string {
	var sb strings.Builder
	for _, v := range k {
		switch x := v.(type) {
		case nil:
			sb.WriteByte('z')
		case bool:
			sb.WriteByte('b')
			sb.WriteString(strconv.FormatBool(x))
		case int64:
			sb.WriteByte('n')
			sb.WriteString(strconv.FormatInt(x, 10))
		case float64:
			sb.WriteByte('n')
			if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
				sb.WriteString(strconv.FormatInt(int64(x), 10))
			} else {
				sb.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
			}
		case time.Time:
			sb.WriteByte('t')
			sb.WriteString(strconv.FormatInt(x.UnixNano(), 10))
		default:
			sb.WriteByte('s')
			sb.WriteString(FormatValue(x))
		}
		sb.WriteByte(0)
	}
	return sb.String()
}

func (k Key) clone() Key {
	out := make(Key, len(k))
	copy(out, k)
	return out
}

// Index is an ordered list of label tuples with one name per level.
// Values returned by Frame accessors must not be modified.
type Index struct {
	Names []string
	Keys  []Key
}

// Len returns the number of keys.
func (ix Index) Len() int { return len(ix.Keys) }

// Levels returns the number of levels.
func (ix Index) Levels() int { return len(ix.Names) }

// Level returns the position of the named level or -1.
func (ix Index) Level(name string) int {
	return slices.Index(ix.Names, name)
}

// Position returns the position of k or -1.
func (ix Index) Position(k Key) int {
	h := k.hash()
	for i, key := range ix.Keys {
		if key.hash() == h {
			return i
		}
	}
	return -1
}

func (ix Index) clone() Index {
	out := Index{Names: slices.Clone(ix.Names), Keys: make([]Key, len(ix.Keys))}
	for i, k := range ix.Keys {
		out.Keys[i] = k.clone()
	}
	return out
}

// Frame is a two-dimensional labeled table with multi-level row and column
// indexes. It is built per request and mutated in place by reshaping.
type Frame struct {
	index   Index
	columns Index
	cells   [][]any
}

// New builds a frame with one single-level column per distinct field name
// in first-seen order. Rows follow input order and are keyed by the
// synthetic row level. Missing fields are null.
func New(records []Record) *Frame {
	f := &Frame{
		index:   Index{Names: []string{RowLevel}},
		columns: Index{Names: []string{""}},
	}
	pos := make(map[string]int)
	for _, r := range records {
		for _, fl := range r {
			if _, ok := pos[fl.Name]; !ok {
				pos[fl.Name] = len(f.columns.Keys)
				f.columns.Keys = append(f.columns.Keys, Key{fl.Name})
			}
		}
	}
	f.index.Keys = make([]Key, len(records))
	f.cells = make([][]any, len(records))
	for i, r := range records {
		row := make([]any, len(f.columns.Keys))
		for _, fl := range r {
			row[pos[fl.Name]] = normalize(fl.Value)
		}
		f.cells[i] = row
		f.index.Keys[i] = Key{int64(i)}
	}
	return f
}

// Build is New followed by SetIndex. Empty records yield an empty frame.
func Build(records []Record, index ...string) (*Frame, error) {
	f := New(records)
	if len(records) == 0 || len(index) == 0 {
		return f, nil
	}
	if err := f.SetIndex(index...); err != nil {
		return nil, err
	}
	return f, nil
}

// Index returns the row index.
func (f *Frame) Index() Index { return f.index }

// Columns returns the column index.
func (f *Frame) Columns() Index { return f.columns }

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.cells) }

// Width returns the number of columns.
func (f *Frame) Width() int { return len(f.columns.Keys) }

// Empty reports whether the frame has no rows or no columns.
func (f *Frame) Empty() bool { return f.Len() == 0 || f.Width() == 0 }

// At returns the cell at row i, column j.
func (f *Frame) At(i, j int) any { return f.cells[i][j] }

// Row returns a copy of row i.
func (f *Frame) Row(i int) []any { return slices.Clone(f.cells[i]) }

// Column returns a copy of column j.
func (f *Frame) Column(j int) []any {
	out := make([]any, len(f.cells))
	for i, row := range f.cells {
		out[i] = row[j]
	}
	return out
}

// Cell looks up a value by row and column key. Absent pairs are null.
func (f *Frame) Cell(row, col Key) any {
	i := f.index.Position(row)
	j := f.columns.Position(col)
	if i < 0 || j < 0 {
		return nil
	}
	return f.cells[i][j]
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	out := &Frame{index: f.index.clone(), columns: f.columns.clone(), cells: make([][]any, len(f.cells))}
	for i, row := range f.cells {
		out.cells[i] = slices.Clone(row)
	}
	return out
}

// fieldColumn finds a single-level column by field name.
func (f *Frame) fieldColumn(name string) int {
	if f.columns.Levels() != 1 {
		return -1
	}
	for j, k := range f.columns.Keys {
		if s, ok := k[0].(string); ok && s == name {
			return j
		}
	}
	return -1
}

// SetIndex moves the named columns into the row index, replacing the
// current one. Duplicate tuples stay distinct rows.
func (f *Frame) SetIndex(fields ...string) error {
	if f.columns.Levels() != 1 {
		return fmt.Errorf("%w: cannot set index on %d column levels", ErrShape, f.columns.Levels())
	}
	cols := make([]int, len(fields))
	for i, name := range fields {
		j := f.fieldColumn(name)
		if j < 0 {
			return fmt.Errorf("%w: %q", ErrFieldNotFound, name)
		}
		cols[i] = j
	}
	keys := make([]Key, len(f.cells))
	for i, row := range f.cells {
		k := make(Key, len(cols))
		for l, j := range cols {
			k[l] = row[j]
		}
		keys[i] = k
	}
	keep := make([]int, 0, f.Width())
	for j := range f.Width() {
		if !slices.Contains(cols, j) {
			keep = append(keep, j)
		}
	}
	f.selectColumns(keep)
	f.index = Index{Names: slices.Clone(fields), Keys: keys}
	return nil
}

// ReplaceIndexSentinel substitutes sentinel for null values of the named
// fields, whether they are still columns or already index levels. Unknown
// fields are ignored.
func (f *Frame) ReplaceIndexSentinel(fields []string, sentinel any) {
	if sentinel == nil {
		return
	}
	sentinel = normalize(sentinel)
	for _, name := range fields {
		if l := f.index.Level(name); l >= 0 {
			for _, k := range f.index.Keys {
				if IsNull(k[l]) {
					k[l] = sentinel
				}
			}
			continue
		}
		if j := f.fieldColumn(name); j >= 0 {
			for _, row := range f.cells {
				if IsNull(row[j]) {
					row[j] = sentinel
				}
			}
		}
	}
}

// SetColumnLabels replaces the column index wholesale.
func (f *Frame) SetColumnLabels(labels []Key, names []string) error {
	if len(labels) != f.Width() {
		return fmt.Errorf("%w: %d labels for %d columns", ErrShape, len(labels), f.Width())
	}
	for _, k := range labels {
		if len(k) != len(names) {
			return fmt.Errorf("%w: label %v has %d levels, want %d", ErrShape, k, len(k), len(names))
		}
	}
	cols := Index{Names: slices.Clone(names), Keys: make([]Key, len(labels))}
	for i, k := range labels {
		cols.Keys[i] = k.clone()
	}
	f.columns = cols
	return nil
}

// ResetIndex moves the row index levels back into leading columns. With
// multi-level columns the level name occupies the top label component and
// the remaining components are empty.
func (f *Frame) ResetIndex() {
	nl := f.index.Levels()
	depth := f.columns.Levels()
	lead := make([]Key, nl)
	for l, name := range f.index.Names {
		k := make(Key, depth)
		k[0] = name
		for d := 1; d < depth; d++ {
			k[d] = ""
		}
		lead[l] = k
	}
	f.columns.Keys = append(lead, f.columns.Keys...)
	for i, row := range f.cells {
		nr := make([]any, 0, nl+len(row))
		nr = append(nr, f.index.Keys[i]...)
		f.cells[i] = append(nr, row...)
	}
	keys := make([]Key, len(f.cells))
	for i := range keys {
		keys[i] = Key{int64(i)}
	}
	f.index = Index{Names: []string{RowLevel}, Keys: keys}
}

func (f *Frame) selectColumns(keep []int) {
	cols := make([]Key, len(keep))
	for i, j := range keep {
		cols[i] = f.columns.Keys[j]
	}
	f.columns.Keys = cols
	for r, row := range f.cells {
		nr := make([]any, len(keep))
		for i, j := range keep {
			nr[i] = row[j]
		}
		f.cells[r] = nr
	}
}

func (f *Frame) selectRows(keep []int) {
	keys := make([]Key, len(keep))
	cells := make([][]any, len(keep))
	for i, r := range keep {
		keys[i] = f.index.Keys[r]
		cells[i] = f.cells[r]
	}
	f.index.Keys = keys
	f.cells = cells
}

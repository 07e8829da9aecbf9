package frame

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Field is a single named value inside a Record.
type Field struct {
	Name  string
	Value any
}

// Record is an ordered sequence of fields. Field order decides column order
// when a Frame is built.
type Record []Field

// RecordOf builds a Record from alternating name/value arguments.
// It panics if a name is not a string, which only happens with literal
// construction in code.
func RecordOf(pairs ...any) Record {
	if len(pairs)%2 != 0 {
		panic("frame: RecordOf requires name/value pairs")
	}
	r := make(Record, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("frame: RecordOf field name %v is %T, not string", pairs[i], pairs[i]))
		}
		r = append(r, Field{Name: name, Value: pairs[i+1]})
	}
	return r
}

// Get returns the value of the named field.
func (r Record) Get(name string) (any, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Set replaces the named field, or appends it when absent.
func (r Record) Set(name string, v any) Record {
	for i, f := range r {
		if f.Name == name {
			r[i].Value = v
			return r
		}
	}
	return append(r, Field{Name: name, Value: v})
}

// Names lists the field names in order.
func (r Record) Names() []string {
	names := make([]string, len(r))
	for i, f := range r {
		names[i] = f.Name
	}
	return names
}

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	copy(out, r)
	return out
}

// MarshalJSON encodes the record as an object in field order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(normalize(f.Value))
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping its key order. Nested arrays
// and objects are kept as their compact JSON text.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("frame: record must be a JSON object")
	}
	out := Record{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		v, err := decodeScalar(raw)
		if err != nil {
			return fmt.Errorf("frame: field %q: %w", name, err)
		}
		out = append(out, Field{Name: name, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = out
	return nil
}

func decodeScalar(raw json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return nil, err
		}
		return buf.String(), nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return normalize(v), nil
}

// RenameFields applies display labels to field names. Fields without a
// label keep their name.
func RenameFields(records []Record, labels map[string]string) []Record {
	if len(labels) == 0 {
		return records
	}
	out := make([]Record, len(records))
	for i, r := range records {
		nr := r.Clone()
		for j, f := range nr {
			if label, ok := labels[f.Name]; ok {
				nr[j].Name = label
			}
		}
		out[i] = nr
	}
	return out
}

// DateLayouts are tried in order by ParseDates when no layouts are given.
var DateLayouts = []string{time.DateOnly, time.RFC3339Nano, time.DateTime, "2006-01-02T15:04:05"}

// ParseDates converts string values of the named fields into time.Time.
// Empty strings become null. A value matching none of the layouts is an
// error naming the field and value.
func ParseDates(records []Record, fields []string, layouts ...string) ([]Record, error) {
	if len(fields) == 0 {
		return records, nil
	}
	if len(layouts) == 0 {
		layouts = DateLayouts
	}
	want := make(map[string]bool, len(fields))
	for _, f := range fields {
		want[f] = true
	}
	out := make([]Record, len(records))
	for i, r := range records {
		nr := r.Clone()
		for j, f := range nr {
			if !want[f.Name] {
				continue
			}
			s, ok := f.Value.(string)
			if !ok {
				continue
			}
			if strings.TrimSpace(s) == "" {
				nr[j].Value = nil
				continue
			}
			t, err := parseTime(s, layouts)
			if err != nil {
				return nil, fmt.Errorf("frame: field %q: %w", f.Name, err)
			}
			nr[j].Value = t
		}
		out[i] = nr
	}
	return out, nil
}

func parseTime(s string, layouts []string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a date", s)
}

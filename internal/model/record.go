package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ValueKind identifies what a Value holds.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindBool
)

// Value is a single field value: a string, a number, or null. Bool values are
// only produced by engine annotations (email_valid, is_valid, ...).
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
}

// Null returns the null value.
func Null() Value { return Value{} }

// String wraps s as a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number wraps n as a numeric value.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// Bool wraps b as a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// OptionalString returns a string value for non-nil s, null otherwise.
func OptionalString(s *string) Value {
	if s == nil {
		return Null()
	}
	return String(*s)
}

// Kind reports what the value holds.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsEmpty reports whether the value is null or a blank string.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return strings.TrimSpace(v.str) == ""
	default:
		return false
	}
}

// Text renders the value as text. Null renders as "".
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// Float returns the numeric value and whether the value is a number.
func (v Value) Float() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// Equal reports whether two values have the same kind and content.
func (v Value) Equal(o Value) bool {
	return v == o
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Null()
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return eris.Wrap(err, "model: decode string value")
		}
		*v = String(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return eris.Wrap(err, "model: decode bool value")
		}
		*v = Bool(b)
	case '{', '[':
		// Nested structures are kept verbatim as text.
		*v = String(string(data))
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return eris.Wrap(err, "model: decode number value")
		}
		*v = Number(n)
	}
	return nil
}

// Field is one named value within a Record.
type Field struct {
	Name  string
	Value Value
}

// Record is an ordered mapping from field name to value. Records are never
// mutated in place; With returns a modified copy.
type Record struct {
	fields []Field
	index  map[string]int
}

// NewRecord builds a record from fields. A repeated name keeps the last value
// at the position of its first occurrence.
func NewRecord(fields ...Field) Record {
	r := Record{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		r.set(f.Name, f.Value)
	}
	return r
}

// RecordFromStrings builds a record from string pairs, for fixtures and
// simple callers. Empty strings become null.
func RecordFromStrings(pairs ...string) Record {
	fields := make([]Field, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		v := Null()
		if pairs[i+1] != "" {
			v = String(pairs[i+1])
		}
		fields = append(fields, Field{Name: pairs[i], Value: v})
	}
	return NewRecord(fields...)
}

func (r *Record) set(name string, v Value) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[name]; ok {
		r.fields[i].Value = v
		return
	}
	r.index[name] = len(r.fields)
	r.fields = append(r.fields, Field{Name: name, Value: v})
}

// Get returns the value for name and whether the field exists.
func (r Record) Get(name string) (Value, bool) {
	i, ok := r.index[name]
	if !ok {
		return Null(), false
	}
	return r.fields[i].Value, true
}

// Text returns the text of field name, or "" when absent or null.
func (r Record) Text(name string) string {
	v, _ := r.Get(name)
	return v.Text()
}

// Has reports whether the field exists and is non-empty.
func (r Record) Has(name string) bool {
	v, ok := r.Get(name)
	return ok && !v.IsEmpty()
}

// Len returns the number of fields.
func (r Record) Len() int { return len(r.fields) }

// Names returns field names in order.
func (r Record) Names() []string {
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.Name
	}
	return names
}

// Fields returns a copy of the ordered fields.
func (r Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// NonEmptyCount counts fields holding a non-empty value.
func (r Record) NonEmptyCount() int {
	n := 0
	for _, f := range r.fields {
		if !f.Value.IsEmpty() {
			n++
		}
	}
	return n
}

// With returns a copy of r with name set to v.
func (r Record) With(name string, v Value) Record {
	out := r.clone(1)
	out.set(name, v)
	return out
}

// Equal reports whether two records hold the same fields in the same order.
func (r Record) Equal(o Record) bool {
	if len(r.fields) != len(o.fields) {
		return false
	}
	for i := range r.fields {
		if r.fields[i].Name != o.fields[i].Name || !r.fields[i].Value.Equal(o.fields[i].Value) {
			return false
		}
	}
	return true
}

func (r Record) clone(extra int) Record {
	out := Record{
		fields: make([]Field, len(r.fields), len(r.fields)+extra),
		index:  make(map[string]int, len(r.fields)+extra),
	}
	copy(out.fields, r.fields)
	for k, v := range r.index {
		out.index[k] = v
	}
	return out
}

// MarshalJSON encodes the record as a JSON object, preserving field order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, eris.Wrap(err, "model: encode field name")
		}
		val, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, preserving key order.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return eris.Wrap(err, "model: decode record")
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return eris.New("model: record must be a JSON object")
	}

	out := Record{index: make(map[string]int)}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return eris.Wrap(err, "model: decode record key")
		}
		key, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return eris.Wrapf(err, "model: decode field %q", key)
		}
		var v Value
		if err := v.UnmarshalJSON(raw); err != nil {
			return err
		}
		out.set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return eris.Wrap(err, "model: decode record end")
	}
	*r = out
	return nil
}

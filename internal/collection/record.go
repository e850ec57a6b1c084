package collection

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Record is the decoded, flat form of one envelope item: an
// insertion-ordered mapping from field name to scalar value, plus the
// item's links as a side channel. Fields the server sends that this
// client has never heard of are preserved verbatim; fields the server
// omits stay absent rather than defaulting, so callers can tell
// "omitted" from "explicitly null".
type Record struct {
	names  []string
	values map[string]interface{}
	links  []Link
}

// NewRecord returns an empty Record.
func NewRecord() *Record {
	return &Record{values: make(map[string]interface{})}
}

// RecordFromPairs builds a Record from alternating name/value pairs in
// the given order. Intended for constructing create/update bodies.
func RecordFromPairs(pairs ...interface{}) (*Record, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("odd number of pair arguments: %d", len(pairs))
	}

	rec := NewRecord()

	for i := 0; i < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("pair name at index %d is not a string", i)
		}

		rec.Set(name, pairs[i+1])
	}

	return rec, nil
}

// Set stores a value, appending the name to the order on first write.
func (r *Record) Set(name string, value interface{}) {
	if _, ok := r.values[name]; !ok {
		r.names = append(r.names, name)
	}

	r.values[name] = value
}

// Get returns the value for name, or nil when absent.
func (r *Record) Get(name string) interface{} {
	return r.values[name]
}

// Lookup returns the value for name and whether the field is present.
// A present field with a nil value is an explicit null from the server.
func (r *Record) Lookup(name string) (interface{}, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Names returns the field names in insertion order. The returned slice
// must not be modified.
func (r *Record) Names() []string {
	return r.names
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return len(r.names)
}

// Links returns the item's navigational links.
func (r *Record) Links() []Link {
	return r.links
}

// Link returns the href for the given relation, if present.
func (r *Record) Link(rel string) (string, bool) {
	return ExtractLink(r.links, rel)
}

// String returns the value for name rendered as a string. Numbers are
// formatted without a trailing ".000000"; nil and absent both render
// empty.
func (r *Record) String(name string) string {
	v, ok := r.values[name]
	if !ok || v == nil {
		return ""
	}

	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Int returns the value for name as an int64. JSON numbers arrive as
// float64; numeric strings are accepted because TeamSnap renders some
// ids as strings.
func (r *Record) Int(name string) (int64, bool) {
	switch t := r.values[name].(type) {
	case float64:
		return int64(t), true
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, false
		}

		return n, true
	default:
		return 0, false
	}
}

// Equal reports whether two records hold the same fields with the same
// values in the same order. Links are not compared.
func (r *Record) Equal(other *Record) bool {
	if other == nil || len(r.names) != len(other.names) {
		return false
	}

	for i, name := range r.names {
		if other.names[i] != name {
			return false
		}

		if r.values[name] != other.values[name] {
			return false
		}
	}

	return true
}

// MarshalJSON renders the record as a JSON object in insertion order.
func (r *Record) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}

	for i, name := range r.names {
		if i > 0 {
			buf = append(buf, ',')
		}

		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}

		val, err := json.Marshal(r.values[name])
		if err != nil {
			return nil, fmt.Errorf("marshalling field %q: %w", name, err)
		}

		buf = append(buf, key...)
		buf = append(buf, ':')
		buf = append(buf, val...)
	}

	return append(buf, '}'), nil
}

// Package collection decodes the Collection+JSON envelope the TeamSnap
// API wraps every response in. An envelope holds zero or more items;
// each item carries its fields as an ordered list of name/value pairs
// plus navigational links. The codec flattens items into Records and
// provides the inverse template encoding used for create/update bodies.
package collection

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MalformedEnvelope indicates a response that does not match the
// Collection+JSON contract: item data that is not a list of name/value
// pairs, or duplicate field names within one item. It signals upstream
// contract drift and is never retried.
type MalformedEnvelope struct {
	Reason string
}

func (e *MalformedEnvelope) Error() string {
	return "malformed envelope: " + e.Reason
}

// IsMalformed reports whether err (or any error in its chain) is a
// MalformedEnvelope.
func IsMalformed(err error) bool {
	var me *MalformedEnvelope
	return errors.As(err, &me)
}

// Envelope is the top-level response wrapper.
type Envelope struct {
	Collection Collection `json:"collection"`
}

// Collection holds the items of one response plus collection-level
// links and the API version advertised by the server.
type Collection struct {
	Version string  `json:"version,omitempty"`
	Href    string  `json:"href,omitempty"`
	Links   []Link  `json:"links,omitempty"`
	Items   []Item  `json:"items,omitempty"`
	Queries []Query `json:"queries,omitempty"`
}

// Item is one entity instance on the wire.
type Item struct {
	Href  string  `json:"href,omitempty"`
	Data  []Field `json:"data,omitempty"`
	Links []Link  `json:"links,omitempty"`
}

// Field is a single name/value pair inside an item's data array.
// Value stays an interface{} because TeamSnap mixes strings, numbers,
// booleans and nulls freely.
type Field struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// Link is a navigational link. Rel "next" drives pagination; a link
// marked deprecated carries a prompt describing the replacement.
type Link struct {
	Rel        string `json:"rel"`
	Href       string `json:"href"`
	Deprecated bool   `json:"deprecated,omitempty"`
	Prompt     string `json:"prompt,omitempty"`
}

// Query describes a search endpoint advertised by the collection.
type Query struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

// Decode parses a raw response body into an Envelope.
func Decode(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &MalformedEnvelope{Reason: fmt.Sprintf("decoding body: %v", err)}
	}

	return &env, nil
}

// DecodeItem flattens one item's name/value pairs into a Record. The
// item's links are carried on the Record for pagination and related
// lookups. Duplicate field names are a contract violation.
func DecodeItem(item Item) (*Record, error) {
	rec := NewRecord()

	for _, f := range item.Data {
		if f.Name == "" {
			return nil, &MalformedEnvelope{Reason: "item field with empty name"}
		}

		if _, dup := rec.Lookup(f.Name); dup {
			return nil, &MalformedEnvelope{Reason: fmt.Sprintf("duplicate field name %q", f.Name)}
		}

		rec.Set(f.Name, f.Value)
	}

	rec.links = append(rec.links, item.Links...)

	return rec, nil
}

// DecodeCollection applies DecodeItem to every item in the envelope,
// preserving order. An envelope with zero items decodes to an empty
// slice, not an error.
func DecodeCollection(env *Envelope) ([]*Record, error) {
	records := make([]*Record, 0, len(env.Collection.Items))

	for i, item := range env.Collection.Items {
		rec, err := DecodeItem(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}

		records = append(records, rec)
	}

	return records, nil
}

// ExtractLink looks up a navigational link by relation name. Absence
// is not an error; for rel "next" it signals end-of-pagination.
func ExtractLink(links []Link, rel string) (string, bool) {
	for _, l := range links {
		if l.Rel == rel {
			return l.Href, true
		}
	}

	return "", false
}

// Template is the request-body shape for create and update calls: the
// envelope's name/value-pair form, wrapped in a "template" key.
type Template struct {
	Template templateData `json:"template"`
}

type templateData struct {
	Data []Field `json:"data"`
}

// EncodeBody builds the create/update request body from a Record,
// preserving field order. It is the inverse of DecodeItem: decoding an
// item built from the returned template yields an equal Record.
func EncodeBody(rec *Record) ([]byte, error) {
	t := Template{}
	for _, name := range rec.Names() {
		v, _ := rec.Lookup(name)
		t.Template.Data = append(t.Template.Data, Field{Name: name, Value: v})
	}

	body, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encoding template body: %w", err)
	}

	return body, nil
}

package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// RefNamespace is the annotation key under which the Monarch id is stored.
const RefNamespace = "monarchmoney"

// textKey holds free text that was present before an annotation was attached.
const textKey = "text"

// Annotation is the JSON document stored in a record's notes (or description) field:
//
//	{"monarchmoney":{"id":"123"}}
//
// Keys other than [RefNamespace] are kept as-is when the annotation is re-encoded.
type Annotation struct {
	fields map[string]json.RawMessage
	text   string
}

type sourceRef struct {
	ID json.RawMessage `json:"id"`
}

// NewAnnotation returns an annotation referencing the given Monarch id.
func NewAnnotation(sourceID string) Annotation {
	return Annotation{}.WithSourceID(sourceID)
}

// ParseAnnotation decodes a notes value. Empty or non-JSON text decodes to an annotation
// with no source id; the text is retained.
func ParseAnnotation(notes string) Annotation {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return Annotation{}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(notes), &fields); err != nil || fields == nil {
		return Annotation{text: notes}
	}
	return Annotation{fields: fields}
}

// SourceID returns the Monarch id, or "" when the annotation carries none.
func (a Annotation) SourceID() string {
	raw, ok := a.fields[RefNamespace]
	if !ok {
		return ""
	}

	var ref sourceRef
	if err := json.Unmarshal(raw, &ref); err != nil {
		return ""
	}
	id, _ := NormalizeID(ref.ID)
	return id
}

// HasSourceID reports whether the annotation references a Monarch id.
func (a Annotation) HasSourceID() bool {
	return a.SourceID() != ""
}

// WithSourceID returns a copy of a with the Monarch id set.
func (a Annotation) WithSourceID(sourceID string) Annotation {
	fields := make(map[string]json.RawMessage, len(a.fields)+1)
	for k, v := range a.fields {
		fields[k] = v
	}
	if a.text != "" {
		text, _ := json.Marshal(a.text)
		fields[textKey] = text
	}

	ref, _ := json.Marshal(map[string]string{"id": sourceID})
	fields[RefNamespace] = ref
	return Annotation{fields: fields}
}

// String encodes the annotation. Keys are written in sorted order.
func (a Annotation) String() string {
	if a.fields == nil {
		return a.text
	}

	data, err := json.Marshal(a.fields)
	if err != nil {
		return a.text
	}
	return string(data)
}

// NormalizeID converts a JSON string or number into its string form.
// It reports false for null, empty and non-scalar values.
func NormalizeID(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, s != ""
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

// IDString normalizes an id already decoded into a Go value, as returned by JSONPath lookups.
func IDString(v any) (string, bool) {
	switch id := v.(type) {
	case string:
		return id, id != ""
	case json.Number:
		return id.String(), true
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), true
	case int:
		return strconv.Itoa(id), true
	case int64:
		return strconv.FormatInt(id, 10), true
	default:
		return "", false
	}
}

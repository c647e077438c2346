package mapping

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"

	"github.com/desertthunder/fmbridge/internal/models"
	"github.com/desertthunder/fmbridge/internal/shared"
)

// SourceRecord is one element of a Monarch document, decoded with numbers kept as [json.Number].
type SourceRecord struct {
	value any
}

// NewSourceRecord decodes a single Monarch record.
func NewSourceRecord(data []byte) (SourceRecord, error) {
	v, err := decode(data)
	if err != nil {
		return SourceRecord{}, err
	}
	return SourceRecord{value: v}, nil
}

func decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	return v, nil
}

// Unpack extracts the record array at path from a document. A null array yields no records;
// a missing one is an error.
func Unpack(doc json.RawMessage, path string) ([]SourceRecord, error) {
	v, err := decode(doc)
	if err != nil {
		return nil, err
	}

	found, err := jsonpath.Get(path, v)
	if err != nil {
		return nil, fmt.Errorf("%w: document has no %s: %v", shared.ErrInvalidRecord, path, err)
	}
	if found == nil {
		return nil, nil
	}

	items, ok := found.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not an array", shared.ErrInvalidRecord, path)
	}

	records := make([]SourceRecord, 0, len(items))
	for _, item := range items {
		records = append(records, SourceRecord{value: item})
	}
	return records, nil
}

// Get evaluates a JSONPath relative to the record. Missing keys and nulls report false.
func (r SourceRecord) Get(path string) (any, bool) {
	v, err := jsonpath.Get(path, r.value)
	if err != nil || v == nil {
		return nil, false
	}
	return v, true
}

// String returns the string at path, or "" when absent or not a string.
func (r SourceRecord) String(path string) string {
	v, ok := r.Get(path)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// IDAt returns the id at path normalized to a string.
func (r SourceRecord) IDAt(path string) (string, bool) {
	v, ok := r.Get(path)
	if !ok {
		return "", false
	}
	return models.IDString(v)
}

// ID returns the record's own id.
func (r SourceRecord) ID() (string, error) {
	id, ok := r.IDAt("$.id")
	if !ok {
		return "", fmt.Errorf("%w: record has no id", shared.ErrInvalidRecord)
	}
	return id, nil
}

// Decimal returns the number at path. Numeric strings are accepted.
func (r SourceRecord) Decimal(path string) (decimal.Decimal, error) {
	v, ok := r.Get(path)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: missing %s", shared.ErrInvalidRecord, path)
	}

	var text string
	switch n := v.(type) {
	case json.Number:
		text = n.String()
	case string:
		text = strings.TrimSpace(n)
	case float64:
		return decimal.NewFromFloat(n), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %s is not a number", shared.ErrInvalidRecord, path)
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s is not a number: %v", shared.ErrInvalidRecord, path, err)
	}
	return d, nil
}

// Strings collects the string values matched by a wildcard path such as "$.tags[*].name".
func (r SourceRecord) Strings(path string) []string {
	v, ok := r.Get(path)
	if !ok {
		return nil
	}

	items, ok := v.([]any)
	if !ok {
		items = []any{v}
	}

	values := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			values = append(values, s)
		}
	}
	return values
}

func (r SourceRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.value)
}

// Package message implements the wire codec for every control-layer JSON
// message family (CSHP, CSH, PIN) and the data-channel envelope. Every
// family shares one convention: a single top-level key naming the family,
// whose value is an ordered list of single-key objects. A list item
// carrying more than one key is a parse error, per the protocol's
// strict-decode rule — callers turn any error returned from this package
// into an abort rather than attempting partial recovery.
package message

import (
	"encoding/json"
	"fmt"
)

// field is one single-key list item, decoded lazily: Value stays raw until
// the owning type's decoder knows which concrete shape to expect.
type field struct {
	Key   string
	Value json.RawMessage
}

// decodeEnvelope splits a control frame's JSON body into its family name
// and ordered field list. It enforces exactly one top-level key and
// rejects any list item with zero or more than one key.
func decodeEnvelope(raw []byte) (family string, fields []field, err error) {
	var outer map[string]json.RawMessage
	if err := json.Unmarshal(raw, &outer); err != nil {
		return "", nil, fmt.Errorf("message: invalid envelope: %w", err)
	}
	if len(outer) != 1 {
		return "", nil, fmt.Errorf("message: envelope has %d top-level keys, want 1", len(outer))
	}

	for name, listRaw := range outer {
		fields, err := decodeFieldList(listRaw)
		if err != nil {
			return "", nil, err
		}
		return name, fields, nil
	}
	panic("unreachable")
}

func decodeFieldList(raw json.RawMessage) ([]field, error) {
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("message: invalid field list: %w", err)
	}

	out := make([]field, 0, len(items))
	for _, item := range items {
		if len(item) != 1 {
			return nil, fmt.Errorf("message: list item has %d keys, want 1", len(item))
		}
		for k, v := range item {
			out = append(out, field{Key: k, Value: v})
		}
	}
	return out, nil
}

func findField(fields []field, key string) (json.RawMessage, bool) {
	for _, f := range fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// encodeEnvelope wraps an ordered field list under the given family key.
func encodeEnvelope(family string, fields []field) ([]byte, error) {
	items := make([]map[string]json.RawMessage, 0, len(fields))
	for _, f := range fields {
		items = append(items, map[string]json.RawMessage{f.Key: f.Value})
	}
	listRaw, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]json.RawMessage{family: listRaw})
}

func rawOf(v interface{}) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}

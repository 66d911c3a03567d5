package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// ErrMalformed reports a body that is not a JSON object.
var ErrMalformed = errors.New("validation: malformed request body")

// ValueKind classifies a JSON member. A JSON null counts as Absent.
type ValueKind int

const (
	Absent ValueKind = iota
	Object
	String
	Other
)

// Envelope is the typed view of a request document: {"data": {"type", "attributes"}}.
type Envelope struct {
	Data       ValueKind
	Type       ValueKind
	TypeValue  string
	Attributes ValueKind

	attrs map[string]json.RawMessage
}

// ParseEnvelope decodes body. An empty body is an envelope without data.
// It fails with ErrMalformed only when the body is not JSON or its top
// level is not an object; every other shape problem is left to the stages.
func ParseEnvelope(body []byte) (Envelope, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return Envelope{}, nil
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil || top == nil {
		return Envelope{}, ErrMalformed
	}

	var env Envelope
	data, kind := member(top, "data")
	env.Data = kind
	if kind != Object {
		return env, nil
	}

	var inner map[string]json.RawMessage
	if err := json.Unmarshal(data, &inner); err != nil {
		return Envelope{}, ErrMalformed
	}

	typ, kind := member(inner, "type")
	env.Type = kind
	if kind == String {
		_ = json.Unmarshal(typ, &env.TypeValue)
	}

	attrs, kind := member(inner, "attributes")
	env.Attributes = kind
	if kind == Object {
		if err := json.Unmarshal(attrs, &env.attrs); err != nil {
			return Envelope{}, ErrMalformed
		}
	}
	return env, nil
}

func member(m map[string]json.RawMessage, name string) (json.RawMessage, ValueKind) {
	raw, ok := m[name]
	if !ok {
		return nil, Absent
	}
	return raw, classify(raw)
}

func classify(raw json.RawMessage) ValueKind {
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0, bytes.Equal(raw, []byte("null")):
		return Absent
	case raw[0] == '{':
		return Object
	case raw[0] == '"':
		return String
	default:
		return Other
	}
}

// Attr returns the kind of attribute name and, for strings, its value.
func (e Envelope) Attr(name string) (string, ValueKind) {
	raw, kind := member(e.attrs, name)
	if kind != String {
		return "", kind
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", Other
	}
	return s, String
}

// Filled reports whether attribute name carries a usable value: a
// non-blank string, or any other non-null JSON value.
func (e Envelope) Filled(name string) bool {
	s, kind := e.Attr(name)
	switch kind {
	case String:
		return strings.TrimSpace(s) != ""
	case Absent:
		return false
	default:
		return true
	}
}

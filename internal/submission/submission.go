// Package submission holds the accepted form payload handed to downstream
// services. A Submission is built only after validation succeeds.
package submission

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotObject is returned when a body is valid JSON but not an object.
var ErrNotObject = errors.New("submission body must be a JSON object")

// reservedNames are metadata keys a client may not supply as fields.
var reservedNames = map[string]struct{}{
	"_meta":        {},
	"clientIp":     {},
	"userAgent":    {},
	"origin":       {},
	"timestamp":    {},
	"submittedAt":  {},
	"submissionId": {},
}

// IsReserved reports whether name collides with pipeline metadata.
func IsReserved(name string) bool {
	_, ok := reservedNames[name]
	return ok
}

// Field is one named form value. After sanitization Value is a string,
// float64 or bool.
type Field struct {
	Name  string
	Value any
}

// Fields keeps the client's field order, which is also the order errors and
// notification lines are reported in.
type Fields []Field

// UnmarshalJSON decodes a JSON object preserving key order. A repeated key
// keeps its first position and its last value.
func (f *Fields) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return ErrNotObject
	}

	out := Fields{}
	index := map[string]int{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected object key %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		value, err := decodeValue(raw)
		if err != nil {
			return err
		}
		if i, seen := index[name]; seen {
			out[i].Value = value
			continue
		}
		index[name] = len(out)
		out = append(out, Field{Name: name, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*f = out
	return nil
}

// MarshalJSON encodes the fields as an object in their stored order.
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(field.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(field.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// decodeValue maps scalars to Go values and keeps nested arrays and objects
// as raw JSON so the sanitizer can flatten them into strings.
func decodeValue(raw json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return raw, nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if n, ok := v.(json.Number); ok {
		return n.Float64()
	}
	return v, nil
}

// Lookup returns the value of the named field.
func (f Fields) Lookup(name string) (any, bool) {
	for _, field := range f {
		if field.Name == name {
			return field.Value, true
		}
	}
	return nil, false
}

// String returns the trimmed string form of the named field, or "" if absent.
func (f Fields) String(name string) string {
	v, ok := f.Lookup(name)
	if !ok {
		return ""
	}
	return strings.TrimSpace(ValueString(v))
}

// Without returns a copy with the named fields removed.
func (f Fields) Without(names ...string) Fields {
	out := make(Fields, 0, len(f))
	for _, field := range f {
		drop := false
		for _, n := range names {
			if field.Name == n {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, field)
		}
	}
	return out
}

// WithoutReserved drops client-supplied fields that collide with metadata.
func (f Fields) WithoutReserved() Fields {
	out := make(Fields, 0, len(f))
	for _, field := range f {
		if !IsReserved(field.Name) {
			out = append(out, field)
		}
	}
	return out
}

// Clone returns an independent copy.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	copy(out, f)
	return out
}

// ValueString renders a field value the way it is shown downstream.
func ValueString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		return formatFloat(t)
	case json.RawMessage:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

func formatFloat(f float64) string {
	b, err := json.Marshal(f)
	if err != nil {
		return "0"
	}
	return string(b)
}

// Metadata is set by the pipeline from request headers and the request clock,
// never from the body.
type Metadata struct {
	ClientIP   string
	UserAgent  string
	Origin     string
	ReceivedAt time.Time
}

// Submission is immutable once built; accessors return copies.
type Submission struct {
	id       string
	fields   Fields
	metadata Metadata
}

// New builds a submission from already validated and sanitized fields.
func New(fields Fields, meta Metadata) Submission {
	meta.ReceivedAt = meta.ReceivedAt.UTC()
	return Submission{fields: fields.WithoutReserved(), metadata: meta}
}

// WithID returns a copy carrying the correlation ID assigned at dispatch.
func (s Submission) WithID(id string) Submission {
	s.id = id
	return s
}

// ID is empty until the submission has been dispatched.
func (s Submission) ID() string {
	return s.id
}

func (s Submission) Fields() Fields {
	return s.fields.Clone()
}

func (s Submission) Metadata() Metadata {
	return s.metadata
}

// Timestamp formats ReceivedAt as RFC 3339 UTC with second precision.
func (s Submission) Timestamp() string {
	return s.metadata.ReceivedAt.Format(time.RFC3339)
}

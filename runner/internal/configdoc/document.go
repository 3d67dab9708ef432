package configdoc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Recognized keys.
const (
	KeyTokens    = "tokens"
	KeyToken     = "token"
	KeyDirectory = "directory"
)

// ErrNotObject is returned by Parse when the input is valid JSON but not an object.
var ErrNotObject = errors.New("config document must be a JSON object")

// Document is a top-level JSON object with its values held as raw JSON.
type Document struct {
	fields map[string]json.RawMessage
}

// New returns an empty document.
func New() *Document {
	return &Document{fields: make(map[string]json.RawMessage)}
}

// Parse decodes data into a Document. Trailing data after the object is an error.
func Parse(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty config document")
	}
	if trimmed[0] != '{' {
		return nil, ErrNotObject
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	fields := make(map[string]json.RawMessage)
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	if dec.InputOffset() != int64(len(trimmed)) {
		return nil, errors.New("unexpected data after config object")
	}
	return &Document{fields: fields}, nil
}

// Marshal serializes the document with sorted keys and a trailing newline.
func (d *Document) Marshal() ([]byte, error) {
	b, err := json.MarshalIndent(d.fields, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// Has reports whether key is present.
func (d *Document) Has(key string) bool {
	_, ok := d.fields[key]
	return ok
}

// SetRaw stores value under key. value must be valid JSON.
func (d *Document) SetRaw(key string, value json.RawMessage) error {
	if !json.Valid(value) {
		return fmt.Errorf("configdoc: invalid JSON value for %q", key)
	}
	d.fields[key] = append(json.RawMessage(nil), value...)
	return nil
}

// Delete removes key if present.
func (d *Document) Delete(key string) {
	delete(d.fields, key)
}

// SetString stores s as a JSON string under key.
func (d *Document) SetString(key, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	d.fields[key] = b
	return nil
}

// String decodes key as a JSON string. ok is false when the key is absent;
// a present non-string value returns an error.
func (d *Document) String(key string) (s string, ok bool, err error) {
	raw, ok := d.fields[key]
	if !ok {
		return "", false, nil
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", true, fmt.Errorf("%s: expected string: %w", key, err)
	}
	return s, true, nil
}

// Strings decodes key as a JSON array of strings. ok is false when the key is absent.
func (d *Document) Strings(key string) (values []string, ok bool, err error) {
	raw, ok := d.fields[key]
	if !ok {
		return nil, false, nil
	}
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, true, fmt.Errorf("%s: expected array of strings: %w", key, err)
	}
	if values == nil {
		// JSON null decodes to a nil slice without error.
		return nil, true, fmt.Errorf("%s: expected array of strings, got null", key)
	}
	return values, true, nil
}

// Kind returns the JSON kind of key's value: "string", "array", "object",
// "number", "bool", "null", or "" when absent.
func (d *Document) Kind(key string) string {
	raw, ok := d.fields[key]
	if !ok {
		return ""
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		return "string"
	case '[':
		return "array"
	case '{':
		return "object"
	case 't', 'f':
		return "bool"
	case 'n':
		return "null"
	default:
		return "number"
	}
}

// Tokens returns the tokens array. It errors when the field is absent or
// not an array of strings.
func (d *Document) Tokens() ([]string, error) {
	values, ok, err := d.Strings(KeyTokens)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s: missing", KeyTokens)
	}
	return values, nil
}

// Directory returns the directory field, or "" when absent.
func (d *Document) Directory() string {
	s, _, _ := d.String(KeyDirectory)
	return s
}

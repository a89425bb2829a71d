package model

import (
	"encoding/json"
	"errors"
)

// unmarshalLine decodes data into v and classifies any failure. Object keys
// must match field names exactly; encoding/json alone would also accept
// "ID" or "Author" for "id" and "author".
func unmarshalLine(kind RecordKind, line string, data []byte, v any) error {
	if hasForeignKey(data) {
		if exact, ok := exactKeys(data); ok {
			data = exact
		}
	}

	err := json.Unmarshal(data, v)
	if err == nil {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &DecodeError{Kind: SchemaViolation, Record: kind, Field: typeErr.Field, Line: line, Err: err}
	}
	return &DecodeError{Kind: MalformedInput, Record: kind, Line: line, Err: err}
}

// requiredField is one entry in a required-field check.
type requiredField struct {
	name    string
	present bool
}

// checkRequired returns a schema error naming the first absent field.
func checkRequired(kind RecordKind, line string, fields ...requiredField) error {
	for _, f := range fields {
		if !f.present {
			return &DecodeError{Kind: SchemaViolation, Record: kind, Field: f.name, Line: line, Err: errMissingField}
		}
	}
	return nil
}

// hasForeignKey reports whether a top-level object key in data contains
// anything other than lowercase ASCII letters, digits and '_'. It scans
// bytes without decoding and may report escaped keys that are in fact
// plain field names.
func hasForeignKey(data []byte) bool {
	depth := 0
	inString, escaped, inKey, expectKey := false, false, false, false
	for _, b := range data {
		if inString {
			switch {
			case escaped:
				escaped = false
			case b == '"':
				inString = false
			case b == '\\':
				escaped = true
				if inKey {
					return true
				}
			case inKey && !isFieldByte(b):
				return true
			}
			continue
		}
		switch b {
		case '"':
			inString = true
			inKey = depth == 1 && expectKey
			expectKey = false
		case '{', '[':
			depth++
			expectKey = depth == 1 && b == '{'
		case '}', ']':
			depth--
		case ',':
			expectKey = depth == 1
		}
	}
	return false
}

func isFieldByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b == '_'
}

// exactKeys re-encodes the top-level object without keys that cannot be a
// field name. It reports false when data is not an object, leaving the
// caller to classify the failure.
func exactKeys(data []byte) ([]byte, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, false
	}
	for k := range fields {
		for i := 0; i < len(k); i++ {
			if !isFieldByte(k[i]) {
				delete(fields, k)
				break
			}
		}
	}
	out, err := json.Marshal(fields)
	if err != nil {
		return nil, false
	}
	return out, true
}

package ai

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// StripCodeFence removes a surrounding markdown code block, with or without
// a language tag, and any text before the opening fence.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)

	start := strings.Index(s, "```")
	if start < 0 {
		return s
	}
	s = s[start+3:]
	// Drop the language tag line
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		if tag := strings.TrimSpace(s[:nl]); !strings.ContainsAny(tag, "{[") {
			s = s[nl+1:]
		}
	}
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

// decodeStrict parses exactly one JSON value into v. Unknown struct fields
// and trailing data are rejected.
func decodeStrict(raw string, v any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(StripCodeFence(raw))))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after JSON document", ErrInvalidResponse)
	}
	return nil
}

// stringMap decodes a flat JSON object whose values are strings, numbers,
// booleans or null. Null values are skipped.
func stringMap(raw string) (map[string]string, error) {
	var doc map[string]any
	if err := decodeStrict(raw, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrInvalidResponse)
	}

	out := make(map[string]string, len(doc))
	for key, v := range doc {
		switch tv := v.(type) {
		case nil:
		case string:
			out[key] = strings.TrimSpace(tv)
		case float64:
			out[key] = fmt.Sprint(tv)
		case bool:
			out[key] = fmt.Sprint(tv)
		default:
			return nil, fmt.Errorf("%w: value of %q is not a scalar", ErrInvalidResponse, key)
		}
	}
	return out, nil
}

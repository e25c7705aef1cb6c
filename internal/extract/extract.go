// Package extract recovers a structured JSON object from arbitrary model text.
// Model output routinely arrives wrapped in prose or markdown fences, with
// trailing commas or raw control characters inside string literals. Extraction
// tries a direct parse, then targeted textual repairs, then a balanced-brace
// scan for the first top-level object substring.
package extract

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Reason classifies why extraction failed.
type Reason string

const (
	ReasonNoObject    Reason = "no_object"   // no object-shaped substring found
	ReasonNotObject   Reason = "not_object"  // parsed, but not a JSON object
	ReasonUnparseable Reason = "unparseable" // candidate found, still would not parse
)

// Error is a typed extraction failure.
type Error struct {
	Reason Reason
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("json extraction failed (%s): %s", e.Reason, e.Detail)
}

// Object extracts a JSON object from text. Only objects are accepted; arrays
// and scalars are rejected. Extraction is idempotent: feeding it the marshaled
// form of a previous result yields an equal object.
func Object(text string) (map[string]any, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, &Error{Reason: ReasonNoObject, Detail: "empty input"}
	}

	if obj, ok := tryParse(trimmed); ok {
		return obj, nil
	}

	// Independent textual repairs, then retry.
	repaired := EscapeControlChars(StripTrailingCommas(trimmed))
	if obj, ok := tryParse(repaired); ok {
		return obj, nil
	}

	// Fall back to the first balanced top-level object substring.
	candidate := firstObjectCandidate(trimmed)
	if candidate == "" {
		// A scalar or array may still parse; reject it with the precise reason.
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
			return nil, &Error{Reason: ReasonNotObject, Detail: fmt.Sprintf("top-level %T is not an object", v)}
		}
		return nil, &Error{Reason: ReasonNoObject, Detail: "no balanced object found in input"}
	}

	if obj, ok := tryParse(candidate); ok {
		return obj, nil
	}
	repaired = EscapeControlChars(StripTrailingCommas(candidate))
	if obj, ok := tryParse(repaired); ok {
		return obj, nil
	}

	return nil, &Error{Reason: ReasonUnparseable, Detail: fmt.Sprintf("candidate of %d bytes would not parse after repair", len(candidate))}
}

// tryParse parses s and accepts only object results.
func tryParse(s string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, false
	}
	if obj == nil {
		return nil, false
	}
	return obj, true
}

// StripTrailingCommas removes commas that directly precede a closing bracket
// or brace, outside string literals. `{"a":1,}` becomes `{"a":1}`.
func StripTrailingCommas(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))

	var inString, escape bool
	for i := 0; i < len(s); i++ {
		b := s[i]
		if escape {
			escape = false
			sb.WriteByte(b)
			continue
		}
		if inString {
			if b == '\\' {
				escape = true
			} else if b == '"' {
				inString = false
			}
			sb.WriteByte(b)
			continue
		}
		if b == '"' {
			inString = true
			sb.WriteByte(b)
			continue
		}
		if b == ',' {
			// Look past whitespace for a closing bracket.
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue // drop the comma
			}
		}
		sb.WriteByte(b)
	}
	return sb.String()
}

// EscapeControlChars escapes raw control characters that appear inside string
// literals. Models frequently emit literal newlines inside strings, which
// encoding/json rejects.
func EscapeControlChars(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))

	var inString, escape bool
	for i := 0; i < len(s); i++ {
		b := s[i]
		if escape {
			escape = false
			sb.WriteByte(b)
			continue
		}
		if inString {
			switch {
			case b == '\\':
				escape = true
				sb.WriteByte(b)
			case b == '"':
				inString = false
				sb.WriteByte(b)
			case b == '\n':
				sb.WriteString(`\n`)
			case b == '\r':
				sb.WriteString(`\r`)
			case b == '\t':
				sb.WriteString(`\t`)
			case b < 0x20:
				fmt.Fprintf(&sb, `\u%04x`, b)
			default:
				sb.WriteByte(b)
			}
			continue
		}
		if b == '"' {
			inString = true
		}
		sb.WriteByte(b)
	}
	return sb.String()
}

// firstObjectCandidate scans for the first balanced top-level JSON object
// substring using a brace counter that tracks string and escape state.
//
// It is safe to iterate bytes for ASCII delimiters ({, }, ", \) because UTF-8
// guarantees ASCII bytes never appear inside a multi-byte sequence.
func firstObjectCandidate(s string) string {
	var depth int
	start := -1
	var inString, escape bool

	for i := 0; i < len(s); i++ {
		b := s[i]
		if escape {
			escape = false
			continue
		}
		if inString {
			if b == '\\' {
				escape = true
			} else if b == '"' {
				inString = false
			}
			continue
		}
		switch b {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start != -1 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}

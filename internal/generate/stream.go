package generate

import (
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// MessageExtractor pulls the value of one string field out of a JSON object
// while it is still streaming, so assistant commentary can be surfaced
// before the draft finishes. Fragments may split anywhere, including inside
// escape sequences. The accumulated raw text is the caller's concern; the
// extractor only tracks the one field.
type MessageExtractor struct {
	field string

	state   exState
	matched int    // progress through the quoted field name
	escape  bool   // previous value byte was a backslash
	hex     string // pending \uXXXX digits
	pending rune   // high surrogate waiting for its pair

	message strings.Builder
}

type exState int

const (
	exSeekKey exState = iota
	exSeekColon
	exSeekQuote
	exInValue
	exDone
)

// NewMessageExtractor extracts the named string field, usually "message".
func NewMessageExtractor(field string) *MessageExtractor {
	return &MessageExtractor{field: `"` + field + `"`}
}

// Feed consumes the next fragment and returns the unescaped text delta it
// contributed to the field value, if any.
func (e *MessageExtractor) Feed(fragment string) string {
	if e.state == exDone {
		return ""
	}
	var delta strings.Builder
	for _, r := range fragment {
		e.step(r, &delta)
		if e.state == exDone {
			break
		}
	}
	e.message.WriteString(delta.String())
	return delta.String()
}

// Done reports whether the closing quote of the field value was seen.
func (e *MessageExtractor) Done() bool { return e.state == exDone }

// Message returns everything extracted so far.
func (e *MessageExtractor) Message() string { return e.message.String() }

func (e *MessageExtractor) step(r rune, delta *strings.Builder) {
	switch e.state {
	case exSeekKey:
		if r == rune(e.field[e.matched]) {
			e.matched++
			if e.matched == len(e.field) {
				e.state = exSeekColon
				e.matched = 0
			}
			return
		}
		e.matched = 0
		if r == '"' {
			e.matched = 1
		}
	case exSeekColon:
		switch {
		case r == ':':
			e.state = exSeekQuote
		case isJSONSpace(r):
		default:
			// The field name appeared as a plain string value; keep looking.
			e.state = exSeekKey
			if r == '"' {
				e.matched = 1
			}
		}
	case exSeekQuote:
		switch {
		case r == '"':
			e.state = exInValue
		case isJSONSpace(r):
		default:
			e.state = exSeekKey
		}
	case exInValue:
		e.valueRune(r, delta)
	}
}

func (e *MessageExtractor) valueRune(r rune, delta *strings.Builder) {
	if e.hex != "" || e.escape && (r == 'u') {
		e.hexRune(r, delta)
		return
	}
	if e.escape {
		e.escape = false
		e.flushPending(delta)
		switch r {
		case 'n':
			delta.WriteRune('\n')
		case 't':
			delta.WriteRune('\t')
		case 'r':
			delta.WriteRune('\r')
		case 'b':
			delta.WriteRune('\b')
		case 'f':
			delta.WriteRune('\f')
		default:
			delta.WriteRune(r) // covers \" \\ \/
		}
		return
	}
	switch r {
	case '\\':
		e.escape = true
	case '"':
		e.flushPending(delta)
		e.state = exDone
	default:
		e.flushPending(delta)
		delta.WriteRune(r)
	}
}

// hexRune accumulates \uXXXX sequences, pairing surrogates when they arrive
// back to back.
func (e *MessageExtractor) hexRune(r rune, delta *strings.Builder) {
	if e.hex == "" {
		// r is the 'u' right after the backslash.
		e.escape = false
		e.hex = "u"
		return
	}
	e.hex += string(r)
	if len(e.hex) < 5 {
		return
	}
	code, err := strconv.ParseUint(e.hex[1:], 16, 32)
	e.hex = ""
	if err != nil {
		e.flushPending(delta)
		delta.WriteRune(utf8.RuneError)
		return
	}
	u := rune(code)
	if utf16.IsSurrogate(u) {
		if e.pending != 0 {
			if combined := utf16.DecodeRune(e.pending, u); combined != utf8.RuneError {
				e.pending = 0
				delta.WriteRune(combined)
				return
			}
			e.flushPending(delta)
		}
		e.pending = u
		return
	}
	e.flushPending(delta)
	delta.WriteRune(u)
}

// flushPending emits an unpaired high surrogate as a replacement rune.
func (e *MessageExtractor) flushPending(delta *strings.Builder) {
	if e.pending != 0 {
		delta.WriteRune(utf8.RuneError)
		e.pending = 0
	}
}

func isJSONSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

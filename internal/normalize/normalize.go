// Package normalize converts the loosely-specified payloads returned by
// the generation service into a single trimmed comment string. The remote
// schema is not contractually stable, so extraction is deliberately
// permissive: it only fails when the payload names no response at all or
// when the extracted text is empty.
package normalize

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	// ErrMissingResponseField is returned when a sequence payload's first
	// element is not a record carrying a "response" field.
	ErrMissingResponseField = errors.New("first element has no response field")

	// ErrEmptyComment is returned when extraction yields only whitespace.
	ErrEmptyComment = errors.New("generated comment is empty")
)

// Shape identifies which of the known remote response shapes a payload
// matches. Exactly one shape applies to any payload.
type Shape int

const (
	// ShapeSequence is a JSON array; the first element is expected to be
	// a record with a "response" field.
	ShapeSequence Shape = iota
	// ShapeString is a bare JSON string.
	ShapeString
	// ShapeRecord is a JSON object probed for the known comment fields.
	ShapeRecord
	// ShapeScalar is any other JSON value (number, bool, null).
	ShapeScalar
	// ShapePlainText is anything that does not parse as JSON.
	ShapePlainText
)

// Fields probed on record payloads, in priority order.
var recordFields = []string{"response", "text", "content", "message", "result"}

// DetectShape classifies a payload without extracting anything from it.
func DetectShape(payload string) Shape {
	trimmed := strings.TrimSpace(payload)
	if !gjson.Valid(trimmed) {
		return ShapePlainText
	}

	parsed := gjson.Parse(trimmed)
	switch {
	case parsed.IsArray():
		return ShapeSequence
	case parsed.IsObject():
		return ShapeRecord
	case parsed.Type == gjson.String:
		return ShapeString
	default:
		return ShapeScalar
	}
}

// Extract pulls the comment text out of a raw payload. It never panics on
// malformed input; the only failures are ErrMissingResponseField and
// ErrEmptyComment.
func Extract(payload string) (string, error) {
	trimmed := strings.TrimSpace(payload)

	var text string
	switch DetectShape(trimmed) {
	case ShapeSequence:
		parsed := gjson.Parse(trimmed)
		elems := parsed.Array()
		if len(elems) == 0 {
			// Degenerate sequence, fall back to the serialized form.
			text = parsed.Raw
			break
		}
		first := elems[0]
		resp := first.Get("response")
		if !first.IsObject() || !resp.Exists() {
			return "", ErrMissingResponseField
		}
		text = resp.String()

	case ShapeString:
		text = gjson.Parse(trimmed).String()

	case ShapeRecord:
		text = extractFromRecord(gjson.Parse(trimmed))

	case ShapeScalar:
		text = gjson.Parse(trimmed).Raw

	case ShapePlainText:
		text = trimmed
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyComment
	}
	return text, nil
}

// extractFromRecord probes the known fields in priority order, then falls
// back to the first string-typed value in document order. A record with no
// string value anywhere yields "" and the caller reports ErrEmptyComment.
func extractFromRecord(record gjson.Result) string {
	for _, field := range recordFields {
		value := record.Get(field)
		if value.Exists() && value.Type != gjson.Null {
			return value.String()
		}
	}

	var fallback string
	record.ForEach(func(_, value gjson.Result) bool {
		if value.Type == gjson.String {
			fallback = value.String()
			return false
		}
		return true
	})
	return fallback
}

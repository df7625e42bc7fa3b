package encoder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mcncl/gotoon/internal/analyzer"
	"github.com/mcncl/gotoon/internal/errors"
	"github.com/mcncl/gotoon/internal/models"
)

// MaxDepth bounds encoder recursion. Trees coming from the parser are
// already capped at the same limit; the guard here covers hand-built trees
// so encoding fails with ErrTooDeep instead of overflowing the stack.
const MaxDepth = 1000

// rootArrayLabel names a root-level array, which has no enclosing key.
const rootArrayLabel = "data"

// Encode renders a JSON value tree as a TOON document: newline-joined lines
// of dotted-path scalars, array markers, comma-joined primitive arrays, and
// tabular blocks for uniform arrays of objects. A null document renders as
// empty text and a bare scalar document as a single path-less value line.
func Encode(v models.Value) (string, error) {
	switch v.Kind {
	case models.KindNull:
		return "", nil
	case models.KindArray:
		return encodeArray(rootArrayLabel, v.Items, 0)
	case models.KindObject:
		return encodeObject("", v.Fields, 0)
	default:
		return scalarString(v), nil
	}
}

// encodeObject emits one line per field, splicing nested objects in under a
// dotted prefix. Empty sub-results are dropped, so an object with no fields
// contributes nothing to its parent.
func encodeObject(prefix string, fields []models.Field, depth int) (string, error) {
	if depth > MaxDepth {
		return "", tooDeepError()
	}
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		fullKey := field.Key
		if prefix != "" {
			fullKey = prefix + "." + field.Key
		}
		switch field.Value.Kind {
		case models.KindArray:
			part, err := encodeArray(fullKey, field.Value.Items, depth+1)
			if err != nil {
				return "", err
			}
			parts = append(parts, part)
		case models.KindObject:
			part, err := encodeObject(fullKey, field.Value.Fields, depth+1)
			if err != nil {
				return "", err
			}
			parts = append(parts, part)
		default:
			parts = append(parts, fullKey+","+scalarString(field.Value))
		}
	}
	return joinLines(parts), nil
}

func encodeArray(label string, items []models.Value, depth int) (string, error) {
	if depth > MaxDepth {
		return "", tooDeepError()
	}
	switch analyzer.ClassifyArray(items) {
	case analyzer.ShapeEmpty:
		return label + "[0]", nil
	case analyzer.ShapeTabular:
		return encodeTable(label, items, depth)
	case analyzer.ShapePrimitive:
		values := make([]string, len(items))
		for i, item := range items {
			values[i] = scalarString(item)
		}
		return fmt.Sprintf("%s[%d],%s", label, len(items), strings.Join(values, ",")), nil
	default:
		// Mixed arrays expand element by element under indexed labels.
		parts := make([]string, 0, len(items))
		for i, item := range items {
			indexed := fmt.Sprintf("%s[%d]", label, i)
			switch item.Kind {
			case models.KindObject:
				part, err := encodeObject(indexed, item.Fields, depth+1)
				if err != nil {
					return "", err
				}
				parts = append(parts, part)
			case models.KindArray:
				part, err := encodeArray(indexed, item.Items, depth+1)
				if err != nil {
					return "", err
				}
				parts = append(parts, part)
			default:
				parts = append(parts, indexed+","+scalarString(item))
			}
		}
		return joinLines(parts), nil
	}
}

// encodeTable emits the tabular form: a header listing the key union of all
// elements in first-seen order, then one two-space indented row per element
// with cells in header order. Keys an element lacks render as null; object
// or array cells fall back to their compact JSON text rather than further
// TOON expansion.
func encodeTable(label string, items []models.Value, depth int) (string, error) {
	keys := analyzer.UnionKeys(items)
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s[%d]{%s}", label, len(items), strings.Join(keys, ","))
	for _, item := range items {
		fields := make(map[string]models.Value, len(item.Fields))
		for _, f := range item.Fields {
			fields[f.Key] = f.Value
		}
		cells := make([]string, 0, len(keys))
		for _, key := range keys {
			value, ok := fields[key]
			if !ok {
				cells = append(cells, "null")
				continue
			}
			switch value.Kind {
			case models.KindObject, models.KindArray:
				text, err := jsonText(value, depth+1)
				if err != nil {
					return "", err
				}
				cells = append(cells, text)
			default:
				cells = append(cells, scalarString(value))
			}
		}
		buf.WriteString("\n  ")
		buf.WriteString(strings.Join(cells, ","))
	}
	return buf.String(), nil
}

// scalarString renders a scalar value: null, lowercase booleans, numbers as
// written in the source, and strings escaped as needed.
func scalarString(v models.Value) string {
	switch v.Kind {
	case models.KindNull:
		return "null"
	case models.KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case models.KindNumber:
		return v.Number.String()
	case models.KindString:
		return EscapeValue(v.Str)
	default:
		return ""
	}
}

// EscapeValue wraps a string in double quotes, doubling any embedded quote,
// iff it contains a comma, newline, or double quote. Anything else passes
// through verbatim.
func EscapeValue(s string) string {
	if !strings.ContainsAny(s, ",\n\"") {
		return s
	}
	return "\"" + strings.ReplaceAll(s, "\"", "\"\"") + "\""
}

// UnescapeValue reverses EscapeValue exactly: a quoted value loses its
// wrapping quotes and has doubled quotes collapsed; anything else is
// returned unchanged.
func UnescapeValue(s string) string {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	return strings.ReplaceAll(s[1:len(s)-1], "\"\"", "\"")
}

// jsonText renders the compact JSON form of a value, keeping object key
// order. encoding/json would sort map keys, so the tree is walked directly.
func jsonText(v models.Value, depth int) (string, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, v, depth); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func writeJSON(buf *bytes.Buffer, v models.Value, depth int) error {
	if depth > MaxDepth {
		return tooDeepError()
	}
	switch v.Kind {
	case models.KindNull:
		buf.WriteString("null")
	case models.KindBool:
		if v.Bool {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case models.KindNumber:
		buf.WriteString(v.Number.String())
	case models.KindString:
		b, err := json.Marshal(v.Str)
		if err != nil {
			return err
		}
		buf.Write(b)
	case models.KindArray:
		buf.WriteByte('[')
		for i, item := range v.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, item, depth+1); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case models.KindObject:
		buf.WriteByte('{')
		for i, field := range v.Fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(field.Key)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeJSON(buf, field.Value, depth+1); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

// joinLines joins the non-empty parts with newlines.
func joinLines(parts []string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, "\n")
}

func tooDeepError() error {
	return errors.NewEncodingError(
		fmt.Sprintf("value exceeds maximum nesting depth of %d", MaxDepth),
		errors.ErrTooDeep,
	)
}

package models

import (
	"encoding/json"
	"time"
)

// Kind discriminates the variants of a JSON value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// Value is a parsed JSON value. Objects are stored as an ordered field slice
// rather than a Go map so that key order from the source text survives
// through to the encoder, where it decides line and column order.
type Value struct {
	Kind   Kind
	Bool   bool
	Number json.Number
	Str    string
	Items  []Value
	Fields []Field
}

// Field is one key/value pair of a JSON object.
type Field struct {
	Key   string
	Value Value
}

// IsPrimitive reports whether the value is a scalar (null, bool, number or
// string) rather than an array or object.
func (v Value) IsPrimitive() bool {
	switch v.Kind {
	case KindNull, KindBool, KindNumber, KindString:
		return true
	default:
		return false
	}
}

// NewNull returns a JSON null.
func NewNull() Value { return Value{Kind: KindNull} }

// NewBool returns a JSON boolean.
func NewBool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// NewNumber returns a JSON number carrying the source literal.
func NewNumber(n json.Number) Value { return Value{Kind: KindNumber, Number: n} }

// NewString returns a JSON string.
func NewString(s string) Value { return Value{Kind: KindString, Str: s} }

// NewArray returns a JSON array of the given elements.
func NewArray(items ...Value) Value { return Value{Kind: KindArray, Items: items} }

// NewObject returns a JSON object with the given fields, in the given order.
func NewObject(fields ...Field) Value { return Value{Kind: KindObject, Fields: fields} }

// NewField pairs a key with a value for use with NewObject.
func NewField(key string, value Value) Field { return Field{Key: key, Value: value} }

// Metrics reports the estimated token cost of a conversion. TokensSaved and
// ReductionPercent can be negative: for some inputs the TOON text comes out
// larger than the JSON it was derived from, and that has to stay visible.
type Metrics struct {
	JSONTokens       int    `json:"jsonTokens"`
	ToonTokens       int    `json:"toonTokens"`
	TokensSaved      int    `json:"tokensSaved"`
	ReductionPercent string `json:"reductionPercent"`
}

// ConversionResult is the output of a single JSON to TOON conversion.
type ConversionResult struct {
	ToonOutput string
	Metrics    Metrics
}

// DefaultTitle is used for persisted conversions when no title was given.
const DefaultTitle = "Untitled Conversion"

// ConversionRecord is a conversion as persisted in the history store.
type ConversionRecord struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	JSONInput        string    `json:"jsonInput"`
	ToonOutput       string    `json:"toonOutput"`
	JSONTokens       int       `json:"jsonTokens"`
	ToonTokens       int       `json:"toonTokens"`
	TokensSaved      int       `json:"tokensSaved"`
	ReductionPercent string    `json:"reductionPercent"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// SessionEntry is one conversion remembered in a session's recent window.
type SessionEntry struct {
	Title      string    `json:"title"`
	ToonOutput string    `json:"toonOutput"`
	Metrics    Metrics   `json:"metrics"`
	At         time.Time `json:"at"`
}

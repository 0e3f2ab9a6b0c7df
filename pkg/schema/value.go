// Package schema declares the typed settings fields and the sanitizer that
// turns untrusted input into values of those types.
package schema

import (
	"sort"
	"strconv"
)

// FieldType is the semantic type of a settings field.
type FieldType string

const (
	TypeColor  FieldType = "color"
	TypeLength FieldType = "length"
	TypeBool   FieldType = "boolean"
	TypeInt    FieldType = "integer"
	TypeEnum   FieldType = "enum"
	TypeText   FieldType = "text"
	TypeCSS    FieldType = "css"
)

// Value is a sanitized settings value. The set of implementations is closed:
// ColorValue, LengthValue, BoolValue, IntValue, EnumValue, TextValue and
// CSSValue.
type Value interface {
	// Kind reports the field type this value belongs to.
	Kind() FieldType
	// Raw returns the JSON-friendly representation that is persisted and
	// re-sanitizes to the same value.
	Raw() any
	// CSS returns the value as it is rendered into a stylesheet.
	CSS() string

	isValue()
}

// ColorValue is a normalized CSS color (lowercase hex, rgb()/rgba() or a
// named keyword).
type ColorValue string

// LengthValue is a CSS length such as 12px or 1.5rem.
type LengthValue struct {
	Number float64
	Unit   string
}

type BoolValue bool

// IntValue is a bounded integer. Fields with a unit render it with that unit.
type IntValue int64

type EnumValue string

// TextValue is plain text with markup removed.
type TextValue string

// CSSValue is a user supplied block of CSS rules with unsafe constructs
// stripped.
type CSSValue string

func (ColorValue) Kind() FieldType  { return TypeColor }
func (LengthValue) Kind() FieldType { return TypeLength }
func (BoolValue) Kind() FieldType   { return TypeBool }
func (IntValue) Kind() FieldType    { return TypeInt }
func (EnumValue) Kind() FieldType   { return TypeEnum }
func (TextValue) Kind() FieldType   { return TypeText }
func (CSSValue) Kind() FieldType    { return TypeCSS }

func (v ColorValue) Raw() any  { return string(v) }
func (v LengthValue) Raw() any { return v.CSS() }
func (v BoolValue) Raw() any   { return bool(v) }
func (v IntValue) Raw() any    { return int64(v) }
func (v EnumValue) Raw() any   { return string(v) }
func (v TextValue) Raw() any   { return string(v) }
func (v CSSValue) Raw() any    { return string(v) }

func (v ColorValue) CSS() string { return string(v) }

func (v LengthValue) CSS() string {
	if v.Number == 0 {
		return "0" + v.Unit
	}
	return strconv.FormatFloat(v.Number, 'f', -1, 64) + v.Unit
}

func (v BoolValue) CSS() string { return strconv.FormatBool(bool(v)) }
func (v IntValue) CSS() string  { return strconv.FormatInt(int64(v), 10) }
func (v EnumValue) CSS() string { return string(v) }
func (v TextValue) CSS() string { return string(v) }
func (v CSSValue) CSS() string  { return string(v) }

func (ColorValue) isValue()  {}
func (LengthValue) isValue() {}
func (BoolValue) isValue()   {}
func (IntValue) isValue()    {}
func (EnumValue) isValue()   {}
func (TextValue) isValue()   {}
func (CSSValue) isValue()    {}

// Values maps field keys to sanitized values.
type Values map[string]Value

// Raw converts the values into their persisted representation.
func (v Values) Raw() map[string]any {
	out := make(map[string]any, len(v))
	for k, val := range v {
		out[k] = val.Raw()
	}
	return out
}

// Clone returns a shallow copy. Values themselves are immutable.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Keys returns the keys in sorted order.
func (v Values) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (v Values) Color(key string) (string, bool) {
	c, ok := v[key].(ColorValue)
	return string(c), ok
}

func (v Values) Int(key string) (int64, bool) {
	i, ok := v[key].(IntValue)
	return int64(i), ok
}

func (v Values) Bool(key string) (bool, bool) {
	b, ok := v[key].(BoolValue)
	return bool(b), ok
}

func (v Values) Enum(key string) (string, bool) {
	e, ok := v[key].(EnumValue)
	return string(e), ok
}

func (v Values) Length(key string) (LengthValue, bool) {
	l, ok := v[key].(LengthValue)
	return l, ok
}

// Text returns the string content of a text or CSS field.
func (v Values) Text(key string) (string, bool) {
	switch t := v[key].(type) {
	case TextValue:
		return string(t), true
	case CSSValue:
		return string(t), true
	}
	return "", false
}

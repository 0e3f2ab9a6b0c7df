package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Sanitize coerces raw input into typed values. Keys the schema does not
// declare are ignored. Values that cannot be coerced are dropped and
// reported with SeverityError; values outside their bounds are corrected and
// reported with SeverityWarning. Sanitizing the Raw form of the result
// yields the same values.
func (s *Schema) Sanitize(raw map[string]any) (Values, Issues) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clean := make(Values, len(raw))
	var issues Issues
	for _, k := range keys {
		f, ok := s.index[k]
		if !ok {
			issues = append(issues, Issue{Field: k, Code: CodeUnknownField, Severity: SeverityIgnored, Message: "field is not part of the settings schema"})
			continue
		}
		v, found := f.coerce(raw[k])
		issues = append(issues, found...)
		if v != nil {
			clean[k] = v
		}
	}
	return clean, issues
}

// Sanitize runs the sanitizer of the built-in schema.
func Sanitize(raw map[string]any) (Values, Issues) {
	return builtin.Sanitize(raw)
}

func (f Field) issue(code string, sev Severity, format string, args ...any) Issue {
	return Issue{Field: f.Key, Code: code, Severity: sev, Message: fmt.Sprintf(format, args...)}
}

// coerce is the single dispatch over field types.
func (f Field) coerce(in any) (Value, Issues) {
	switch f.Type {
	case TypeColor:
		return f.coerceColor(in)
	case TypeLength:
		return f.coerceLength(in)
	case TypeBool:
		return f.coerceBool(in)
	case TypeInt:
		return f.coerceInt(in)
	case TypeEnum:
		return f.coerceEnum(in)
	case TypeText:
		return f.coerceText(in, true)
	case TypeCSS:
		return f.coerceText(in, false)
	default:
		return nil, Issues{f.issue(CodeInvalidType, SeverityError, "unsupported field type %q", f.Type)}
	}
}

func (f Field) coerceColor(in any) (Value, Issues) {
	str, ok := in.(string)
	if !ok {
		return nil, Issues{f.issue(CodeInvalidType, SeverityError, "expected a color string, got %T", in)}
	}
	c, clamped, err := parseColor(str)
	if err != nil {
		return nil, Issues{f.issue(CodeInvalidFormat, SeverityError, "invalid color: %v", err)}
	}
	if clamped {
		return c, Issues{f.issue(CodeClamped, SeverityWarning, "color channel out of range, clamped to %s", c)}
	}
	return c, nil
}

func (f Field) coerceLength(in any) (Value, Issues) {
	var l LengthValue
	switch v := in.(type) {
	case string:
		parsed, err := ParseLength(v)
		if err != nil {
			return nil, Issues{f.issue(CodeInvalidFormat, SeverityError, "%v", err)}
		}
		l = parsed
	default:
		n, ok := toFloat(in)
		if !ok {
			return nil, Issues{f.issue(CodeInvalidType, SeverityError, "expected a length, got %T", in)}
		}
		l = LengthValue{Number: n, Unit: "px"}
	}
	if math.IsNaN(l.Number) || math.IsInf(l.Number, 0) {
		return nil, Issues{f.issue(CodeInvalidFormat, SeverityError, "expected a finite length")}
	}
	if f.Bounded && (l.Number < f.Min || l.Number > f.Max) {
		l.Number = math.Min(math.Max(l.Number, f.Min), f.Max)
		return l, Issues{f.issue(CodeClamped, SeverityWarning, "value out of range [%v, %v], clamped to %s", f.Min, f.Max, l.CSS())}
	}
	return l, nil
}

func (f Field) coerceBool(in any) (Value, Issues) {
	switch v := in.(type) {
	case bool:
		return BoolValue(v), nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "on", "yes":
			return BoolValue(true), nil
		case "false", "0", "off", "no", "":
			return BoolValue(false), nil
		}
	default:
		if n, ok := toFloat(in); ok && (n == 0 || n == 1) {
			return BoolValue(n == 1), nil
		}
	}
	return nil, Issues{f.issue(CodeInvalidType, SeverityError, "expected a boolean, got %v", in)}
}

func (f Field) coerceInt(in any) (Value, Issues) {
	var n float64
	switch v := in.(type) {
	case bool:
		return nil, Issues{f.issue(CodeInvalidType, SeverityError, "expected an integer, got bool")}
	case string:
		str := strings.TrimSpace(v)
		if f.Unit != "" {
			str = strings.TrimSuffix(str, f.Unit)
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err != nil {
			return nil, Issues{f.issue(CodeInvalidFormat, SeverityError, "expected an integer, got %q", v)}
		}
		n = parsed
	default:
		parsed, ok := toFloat(in)
		if !ok {
			return nil, Issues{f.issue(CodeInvalidType, SeverityError, "expected an integer, got %T", in)}
		}
		n = parsed
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, Issues{f.issue(CodeInvalidFormat, SeverityError, "expected a finite integer")}
	}

	var issues Issues
	if n != math.Trunc(n) {
		n = math.Round(n)
		issues = append(issues, f.issue(CodeRounded, SeverityWarning, "rounded to %v", n))
	}
	if f.Bounded && (n < f.Min || n > f.Max) {
		n = math.Min(math.Max(n, f.Min), f.Max)
		issues = append(issues, f.issue(CodeClamped, SeverityWarning, "value out of range [%v, %v], clamped to %v", f.Min, f.Max, n))
	}
	return IntValue(int64(n)), issues
}

func (f Field) coerceEnum(in any) (Value, Issues) {
	str, ok := in.(string)
	if !ok {
		return nil, Issues{f.issue(CodeInvalidType, SeverityError, "expected one of %v, got %T", f.choiceList(), in)}
	}
	str = strings.ToLower(strings.TrimSpace(str))
	if f.Choices.Contains(str) {
		return EnumValue(str), nil
	}
	return f.Default, Issues{f.issue(CodeInvalidChoice, SeverityWarning, "%q is not one of %v, using %q", str, f.choiceList(), f.Default.CSS())}
}

func (f Field) coerceText(in any, plain bool) (Value, Issues) {
	str, ok := in.(string)
	if !ok {
		return nil, Issues{f.issue(CodeInvalidType, SeverityError, "expected a string, got %T", in)}
	}

	var issues Issues
	clean, found := Scrub(str)
	if len(found) > 0 {
		issues = append(issues, f.issue(CodeUnsafeContent, SeveritySecurity, "removed unsafe content: %s", strings.Join(found, ", ")))
	}
	clean = strings.TrimSpace(clean)
	if plain {
		clean = strings.Join(strings.Fields(clean), " ")
	}
	if f.MaxLen > 0 && utf8.RuneCountInString(clean) > f.MaxLen {
		clean = strings.TrimSpace(string([]rune(clean)[:f.MaxLen]))
		issues = append(issues, f.issue(CodeTruncated, SeverityWarning, "truncated to %d characters", f.MaxLen))
	}
	if plain {
		return TextValue(clean), issues
	}
	return CSSValue(clean), issues
}

func (f Field) choiceList() []string {
	out := f.Choices.ToSlice()
	sort.Strings(out)
	return out
}

func toFloat(in any) (float64, bool) {
	switch v := in.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		n, err := v.Float64()
		return n, err == nil
	}
	return 0, false
}

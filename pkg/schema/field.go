package schema

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
)

// Field declares one settings key.
type Field struct {
	Key  string
	Type FieldType

	// Min and Max bound integer and length fields when Bounded is set.
	Bounded bool
	Min     float64
	Max     float64

	// Choices holds the allowed values of an enum field.
	Choices mapset.Set[string]

	// Unit is appended when an integer field is rendered into CSS.
	Unit string

	// MaxLen truncates text and CSS fields. Zero means unlimited.
	MaxLen int

	Default Value
}

// Schema is an immutable, ordered set of fields.
type Schema struct {
	fields []Field
	index  map[string]Field
}

// New validates the field declarations and builds a Schema.
func New(fields ...Field) (*Schema, error) {
	s := &Schema{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]Field, len(fields)),
	}
	for _, f := range fields {
		if f.Key == "" {
			return nil, fmt.Errorf("field with empty key")
		}
		if _, dup := s.index[f.Key]; dup {
			return nil, fmt.Errorf("duplicate field %q", f.Key)
		}
		if f.Default == nil {
			return nil, fmt.Errorf("field %q has no default", f.Key)
		}
		if f.Default.Kind() != f.Type {
			return nil, fmt.Errorf("field %q: default is %s, want %s", f.Key, f.Default.Kind(), f.Type)
		}
		if f.Type == TypeEnum {
			if f.Choices == nil || f.Choices.Cardinality() == 0 {
				return nil, fmt.Errorf("enum field %q has no choices", f.Key)
			}
			if !f.Choices.Contains(string(f.Default.(EnumValue))) {
				return nil, fmt.Errorf("enum field %q: default %q is not a choice", f.Key, f.Default.CSS())
			}
		}
		if f.Bounded && f.Min > f.Max {
			return nil, fmt.Errorf("field %q: min %v > max %v", f.Key, f.Min, f.Max)
		}
		s.fields = append(s.fields, f)
		s.index[f.Key] = f
	}
	return s, nil
}

// MustNew is New that panics on an invalid declaration.
func MustNew(fields ...Field) *Schema {
	s, err := New(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Fields returns the declarations in declaration order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field looks up a declaration by key.
func (s *Schema) Field(key string) (Field, bool) {
	f, ok := s.index[key]
	return f, ok
}

// Defaults returns a fresh map holding the default of every field.
func (s *Schema) Defaults() Values {
	out := make(Values, len(s.fields))
	for _, f := range s.fields {
		out[f.Key] = f.Default
	}
	return out
}

// Merge lays overrides over the defaults. The result is total over the
// schema; override keys the schema does not declare are dropped.
func (s *Schema) Merge(overrides Values) Values {
	out := s.Defaults()
	for k, v := range overrides {
		if f, ok := s.index[k]; ok && v != nil && v.Kind() == f.Type {
			out[k] = v
		}
	}
	return out
}

func color(key, def string) Field {
	return Field{Key: key, Type: TypeColor, Default: ColorValue(def)}
}

func integer(key string, def int64, lo, hi float64, unit string) Field {
	return Field{Key: key, Type: TypeInt, Bounded: true, Min: lo, Max: hi, Unit: unit, Default: IntValue(def)}
}

func length(key string, def LengthValue, lo, hi float64) Field {
	return Field{Key: key, Type: TypeLength, Bounded: true, Min: lo, Max: hi, Default: def}
}

func enum(key, def string, choices ...string) Field {
	return Field{Key: key, Type: TypeEnum, Choices: mapset.NewSet(choices...), Default: EnumValue(def)}
}

func boolean(key string, def bool) Field {
	return Field{Key: key, Type: TypeBool, Default: BoolValue(def)}
}

var builtin = MustNew(
	color("menu_background", "#23282d"),
	color("menu_text_color", "#f0f0f1"),
	color("menu_hover_background", "#2c3338"),
	color("menu_hover_text_color", "#72aee6"),
	color("menu_active_background", "#2271b1"),
	color("submenu_background", "#2c3338"),

	integer("menu_width", 160, 100, 400, "px"),
	integer("menu_item_height", 34, 24, 80, "px"),
	length("menu_item_spacing", LengthValue{Unit: "px"}, 0, 50),
	length("menu_border_radius", LengthValue{Unit: "px"}, 0, 100),
	enum("menu_position", "left", "left", "right"),
	enum("layout_mode", "default", "default", "compact", "floating"),
	enum("color_scheme", "dark", "light", "dark", "auto"),

	enum("font_family", "system", "system", "sans-serif", "serif", "monospace", "inherit"),
	integer("font_size", 14, 10, 24, "px"),
	enum("font_weight", "normal", "normal", "medium", "semibold", "bold"),

	boolean("enable_shadow", false),
	integer("shadow_intensity", 30, 0, 100, ""),
	boolean("enable_glassmorphism", false),
	length("glass_blur", LengthValue{Number: 10, Unit: "px"}, 0, 50),

	boolean("enable_animations", true),
	enum("animation_type", "fade", "fade", "slide", "none"),
	integer("animation_speed", 200, 0, 2000, "ms"),

	Field{Key: "menu_title_text", Type: TypeText, MaxLen: 120, Default: TextValue("")},
	Field{Key: "custom_css", Type: TypeCSS, MaxLen: 20000, Default: CSSValue("")},
)

// Builtin returns the menu styling schema.
func Builtin() *Schema { return builtin }

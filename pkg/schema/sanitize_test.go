package schema

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeCoercesDeclaredTypes(t *testing.T) {
	clean, issues := Sanitize(map[string]any{
		"menu_background":    "#FF0000",
		"menu_width":         float64(250),
		"menu_border_radius": "4px",
		"glass_blur":         float64(12),
		"enable_shadow":      "on",
		"font_weight":        "Bold",
		"menu_title_text":    "  Admin   Menu ",
	})

	assert.Empty(t, issues)
	assert.Equal(t, ColorValue("#ff0000"), clean["menu_background"])
	assert.Equal(t, IntValue(250), clean["menu_width"])
	assert.Equal(t, LengthValue{Number: 4, Unit: "px"}, clean["menu_border_radius"])
	assert.Equal(t, LengthValue{Number: 12, Unit: "px"}, clean["glass_blur"])
	assert.Equal(t, BoolValue(true), clean["enable_shadow"])
	assert.Equal(t, EnumValue("bold"), clean["font_weight"])
	assert.Equal(t, TextValue("Admin Menu"), clean["menu_title_text"])
}

func TestSanitizeClampsOutOfRange(t *testing.T) {
	clean, issues := Sanitize(map[string]any{
		"menu_width":      float64(9000),
		"font_size":       "2px",
		"menu_background": "rgb(300, 0, -5)",
	})

	require.False(t, issues.Fatal())
	assert.Equal(t, IntValue(400), clean["menu_width"])
	assert.Equal(t, IntValue(10), clean["font_size"])
	assert.Equal(t, ColorValue("rgb(255,0,0)"), clean["menu_background"])

	warnings := issues.Only(SeverityWarning)
	assert.Len(t, warnings, 3)
	for _, w := range warnings {
		assert.Equal(t, CodeClamped, w.Code)
	}
}

func TestSanitizeCorrectsInvalidEnum(t *testing.T) {
	clean, issues := Sanitize(map[string]any{"menu_position": "top"})

	require.Len(t, issues, 1)
	assert.Equal(t, CodeInvalidChoice, issues[0].Code)
	assert.Equal(t, SeverityWarning, issues[0].Severity)
	assert.Equal(t, EnumValue("left"), clean["menu_position"])
}

func TestSanitizeDropsUncoercibleValues(t *testing.T) {
	clean, issues := Sanitize(map[string]any{
		"menu_background": "<script>alert(1)</script>",
		"menu_width":      "wide",
		"enable_shadow":   []any{true},
		"glass_blur":      "10parsecs",
	})

	assert.True(t, issues.Fatal())
	assert.Empty(t, clean)
	assert.Len(t, issues.Only(SeverityError), 4)
}

func TestSanitizeDropsNonFiniteNumbers(t *testing.T) {
	tests := []struct {
		name string
		key  string
		in   any
	}{
		{"nan length", "glass_blur", math.NaN()},
		{"infinite length", "menu_border_radius", math.Inf(1)},
		{"negative infinite length", "menu_item_spacing", math.Inf(-1)},
		{"nan integer", "menu_width", math.NaN()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clean, issues := Sanitize(map[string]any{tt.key: tt.in})

			assert.Empty(t, clean)
			require.Len(t, issues, 1)
			assert.Equal(t, CodeInvalidFormat, issues[0].Code)
			assert.Equal(t, SeverityError, issues[0].Severity)
			assert.Equal(t, tt.key, issues[0].Field)
		})
	}
}

func TestSanitizeIgnoresUnknownKeys(t *testing.T) {
	clean, issues := Sanitize(map[string]any{
		"menu_width": float64(200),
		"evil_key":   "x",
	})

	assert.False(t, issues.Fatal())
	assert.NotContains(t, clean, "evil_key")
	require.Len(t, issues, 1)
	assert.Equal(t, SeverityIgnored, issues[0].Severity)
	assert.Equal(t, "evil_key", issues[0].Field)
}

func TestSanitizeStripsUnsafeCSS(t *testing.T) {
	clean, issues := Sanitize(map[string]any{
		"custom_css": `@import url("https://evil.example/x.css"); .a { width: expression(alert(1)); background: url(//evil.example/p.png); behavior: url(x.htc); } </style><script>alert(1)</script>`,
	})

	require.False(t, issues.Fatal())
	sec := issues.Only(SeveritySecurity)
	require.Len(t, sec, 1)
	assert.Equal(t, CodeUnsafeContent, sec[0].Code)

	css, ok := clean.Text("custom_css")
	require.True(t, ok)
	assert.NotContains(t, css, "@import")
	assert.NotContains(t, css, "expression(")
	assert.NotContains(t, css, "<script")
	assert.NotContains(t, css, "evil.example")
	assert.NotContains(t, css, "behavior")
	assert.Contains(t, css, ".a {")
}

func TestSanitizeTruncatesText(t *testing.T) {
	long := make([]rune, 200)
	for i := range long {
		long[i] = 'x'
	}
	clean, issues := Sanitize(map[string]any{"menu_title_text": string(long)})

	require.Len(t, issues, 1)
	assert.Equal(t, CodeTruncated, issues[0].Code)
	text, _ := clean.Text("menu_title_text")
	assert.Len(t, text, 120)
}

func TestSanitizeIsIdempotent(t *testing.T) {
	inputs := []map[string]any{
		{
			"menu_background":      "#ABC",
			"menu_text_color":      "rgba(10, 20, 30, 1.5)",
			"menu_width":           float64(99.6),
			"menu_item_spacing":    "-3em",
			"menu_border_radius":   ".5rem",
			"enable_glassmorphism": "yes",
			"animation_type":       "spin",
			"animation_speed":      "250ms",
		},
		{
			"menu_title_text": "<b>Hello</b>   javascript:javascript:: world",
			"custom_css":      "  .x{color:red} <scr<script>ipt>alert(1)</script> @import 'a.css';  ",
		},
		{
			"font_family":      "SERIF",
			"shadow_intensity": "150",
			"glass_blur":       float64(75),
			"enable_shadow":    float64(1),
		},
	}

	for _, in := range inputs {
		first, _ := Sanitize(in)

		// Round-trip through JSON the way persisted values travel.
		b, err := json.Marshal(first.Raw())
		require.NoError(t, err)
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(b, &decoded))

		second, issues := Sanitize(decoded)
		assert.Equal(t, first, second)
		assert.Empty(t, issues.Only(SeverityError, SeverityWarning, SeveritySecurity))
	}
}

func TestSchemaMergeIsTotal(t *testing.T) {
	s := Builtin()
	merged := s.Merge(Values{"menu_width": IntValue(300), "bogus": IntValue(1)})

	assert.Len(t, merged, len(s.Fields()))
	assert.Equal(t, IntValue(300), merged["menu_width"])
	assert.Equal(t, ColorValue("#23282d"), merged["menu_background"])
	assert.NotContains(t, merged, "bogus")
}

func TestNewRejectsInvalidDeclarations(t *testing.T) {
	tests := []struct {
		name   string
		fields []Field
	}{
		{"EmptyKey", []Field{{Type: TypeBool, Default: BoolValue(true)}}},
		{"Duplicate", []Field{boolean("a", true), boolean("a", false)}},
		{"MissingDefault", []Field{{Key: "a", Type: TypeBool}}},
		{"DefaultKindMismatch", []Field{{Key: "a", Type: TypeInt, Default: BoolValue(true)}}},
		{"EnumDefaultNotChoice", []Field{enum("a", "x", "y", "z")}},
		{"InvertedBounds", []Field{integer("a", 1, 10, 0, "")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.fields...)
			assert.Error(t, err)
		})
	}
}

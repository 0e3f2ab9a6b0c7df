// Package css derives the admin menu stylesheet from a settings document.
//
// Generate is pure: the same values always produce byte-identical output,
// which is what makes caching by document checksum valid. The stylesheet is
// assembled from independent sections in this fixed order:
//
//	layout, colors, typography, effects, animation, custom
//
// layout and colors are required. The optional sections are left out when
// their fields are missing or mistyped.
package css

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/menuforge/menuforge/pkg/schema"
	"github.com/menuforge/menuforge/pkg/settings"
)

type section struct {
	name     string
	required bool
	render   func(v schema.Values, b *strings.Builder) error
}

var sections = []section{
	{"layout", true, renderLayout},
	{"colors", true, renderColors},
	{"typography", false, renderTypography},
	{"effects", false, renderEffects},
	{"animation", false, renderAnimation},
	{"custom", false, renderCustom},
}

// SectionNames lists the sections in output order.
func SectionNames() []string {
	out := make([]string, len(sections))
	for i, s := range sections {
		out[i] = s.name
	}
	return out
}

// Generate renders the stylesheet for doc.
func Generate(doc settings.Document) (string, error) {
	return GenerateValues(doc.Values)
}

// GenerateValues renders the stylesheet for a total set of values.
func GenerateValues(v schema.Values) (string, error) {
	var out strings.Builder
	for _, s := range sections {
		var b strings.Builder
		if err := s.render(v, &b); err != nil {
			if s.required {
				return "", fmt.Errorf("css %s section: %w", s.name, err)
			}
			continue
		}
		if b.Len() == 0 {
			continue
		}
		fmt.Fprintf(&out, "/* %s */\n", s.name)
		out.WriteString(b.String())
		out.WriteString("\n")
	}
	return out.String(), nil
}

// values wraps schema.Values with lookups that record the first missing or
// mistyped field.
type values struct {
	v   schema.Values
	err error
}

func (r *values) fail(key, want string) {
	if r.err == nil {
		r.err = fmt.Errorf("field %s: want %s, got %T", key, want, r.v[key])
	}
}

func (r *values) color(key string) string {
	c, ok := r.v.Color(key)
	if !ok {
		r.fail(key, "color")
	}
	return c
}

func (r *values) px(key string) string {
	n, ok := r.v.Int(key)
	if !ok {
		r.fail(key, "integer")
	}
	return strconv.FormatInt(n, 10) + "px"
}

func (r *values) integer(key string) int64 {
	n, ok := r.v.Int(key)
	if !ok {
		r.fail(key, "integer")
	}
	return n
}

func (r *values) length(key string) string {
	l, ok := r.v.Length(key)
	if !ok {
		r.fail(key, "length")
		return "0"
	}
	return l.CSS()
}

func (r *values) enum(key string) string {
	e, ok := r.v.Enum(key)
	if !ok {
		r.fail(key, "enum")
	}
	return e
}

func (r *values) boolean(key string) bool {
	b, ok := r.v.Bool(key)
	if !ok {
		r.fail(key, "boolean")
	}
	return b
}

func (r *values) text(key string) string {
	t, ok := r.v.Text(key)
	if !ok {
		r.fail(key, "text")
	}
	return t
}

func renderLayout(v schema.Values, b *strings.Builder) error {
	r := &values{v: v}
	width := r.px("menu_width")
	height := r.px("menu_item_height")
	spacing := r.length("menu_item_spacing")
	radius := r.length("menu_border_radius")
	position := r.enum("menu_position")
	mode := r.enum("layout_mode")
	if r.err != nil {
		return r.err
	}

	fmt.Fprintf(b, "#adminmenuback, #adminmenuwrap, #adminmenu { width: %s; }\n", width)
	fmt.Fprintf(b, "#adminmenu li.menu-top { min-height: %s; margin-bottom: %s; }\n", height, spacing)
	fmt.Fprintf(b, "#adminmenuwrap { border-radius: %s; overflow: hidden; }\n", radius)
	if position == "right" {
		b.WriteString("#adminmenuback, #adminmenuwrap { left: auto; right: 0; }\n")
		fmt.Fprintf(b, "#wpcontent, #wpfooter { margin-left: 0; margin-right: %s; }\n", width)
	} else {
		fmt.Fprintf(b, "#wpcontent, #wpfooter { margin-left: %s; }\n", width)
	}
	switch mode {
	case "compact":
		b.WriteString("#adminmenu .wp-menu-name { padding: 4px 8px; }\n")
	case "floating":
		b.WriteString("#adminmenuwrap { margin: 12px; height: calc(100% - 24px); }\n")
	}
	return nil
}

func renderColors(v schema.Values, b *strings.Builder) error {
	r := &values{v: v}
	bg := r.color("menu_background")
	text := r.color("menu_text_color")
	hoverBg := r.color("menu_hover_background")
	hoverText := r.color("menu_hover_text_color")
	active := r.color("menu_active_background")
	submenu := r.color("submenu_background")
	scheme := r.enum("color_scheme")
	if r.err != nil {
		return r.err
	}

	if scheme == "auto" {
		scheme = "light dark"
	}
	fmt.Fprintf(b, "#adminmenuback, #adminmenuwrap, #adminmenu { background-color: %s; color-scheme: %s; }\n", bg, scheme)
	fmt.Fprintf(b, "#adminmenu a, #adminmenu div.wp-menu-image:before { color: %s; }\n", text)
	fmt.Fprintf(b, "#adminmenu li.menu-top:hover, #adminmenu li > a.menu-top:focus { background-color: %s; color: %s; }\n", hoverBg, hoverText)
	fmt.Fprintf(b, "#adminmenu li.current a.menu-top, #adminmenu li.wp-has-current-submenu a.wp-has-current-submenu { background-color: %s; }\n", active)
	fmt.Fprintf(b, "#adminmenu .wp-submenu { background-color: %s; }\n", submenu)
	return nil
}

var fontStacks = map[string]string{
	"system":     `-apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif`,
	"sans-serif": "sans-serif",
	"serif":      "Georgia, serif",
	"monospace":  "Menlo, Consolas, monospace",
	"inherit":    "inherit",
}

var fontWeights = map[string]string{
	"normal":   "400",
	"medium":   "500",
	"semibold": "600",
	"bold":     "700",
}

func renderTypography(v schema.Values, b *strings.Builder) error {
	r := &values{v: v}
	family := r.enum("font_family")
	size := r.px("font_size")
	weight := r.enum("font_weight")
	title := r.text("menu_title_text")
	if r.err != nil {
		return r.err
	}

	stack, ok := fontStacks[family]
	if !ok {
		return fmt.Errorf("unknown font family %q", family)
	}
	w, ok := fontWeights[weight]
	if !ok {
		return fmt.Errorf("unknown font weight %q", weight)
	}
	fmt.Fprintf(b, "#adminmenu, #adminmenu .wp-submenu a { font-family: %s; font-size: %s; font-weight: %s; }\n", stack, size, w)
	if title != "" {
		fmt.Fprintf(b, "#adminmenuwrap::before { content: %s; display: block; padding: 8px 12px; }\n", quote(title))
	}
	return nil
}

func renderEffects(v schema.Values, b *strings.Builder) error {
	r := &values{v: v}
	shadow := r.boolean("enable_shadow")
	intensity := r.integer("shadow_intensity")
	glass := r.boolean("enable_glassmorphism")
	blur := r.length("glass_blur")
	if r.err != nil {
		return r.err
	}

	if shadow {
		alpha := strconv.FormatFloat(float64(intensity)/200, 'f', -1, 64)
		fmt.Fprintf(b, "#adminmenuwrap { box-shadow: 0 2px %dpx rgba(0,0,0,%s); }\n", 4+intensity/5, alpha)
	}
	if glass {
		fmt.Fprintf(b, "#adminmenuwrap { backdrop-filter: blur(%s); -webkit-backdrop-filter: blur(%s); }\n", blur, blur)
	}
	return nil
}

func renderAnimation(v schema.Values, b *strings.Builder) error {
	r := &values{v: v}
	enabled := r.boolean("enable_animations")
	kind := r.enum("animation_type")
	speed := r.integer("animation_speed")
	if r.err != nil {
		return r.err
	}

	if !enabled || kind == "none" {
		b.WriteString("#adminmenu, #adminmenu * { transition: none; animation: none; }\n")
		return nil
	}
	fmt.Fprintf(b, "#adminmenu a, #adminmenu li.menu-top { transition: background-color %dms ease, color %dms ease; }\n", speed, speed)
	switch kind {
	case "fade":
		fmt.Fprintf(b, "#adminmenu .wp-submenu { transition: opacity %dms ease; }\n", speed)
	case "slide":
		fmt.Fprintf(b, "#adminmenu .wp-submenu { transition: transform %dms ease; }\n", speed)
	}
	return nil
}

func renderCustom(v schema.Values, b *strings.Builder) error {
	r := &values{v: v}
	custom := r.text("custom_css")
	if r.err != nil {
		return r.err
	}
	if custom != "" {
		b.WriteString(custom)
		b.WriteString("\n")
	}
	return nil
}

// quote renders s as a CSS string literal.
func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n', '\r', '\f':
			fmt.Fprintf(&b, "\\%x ", r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

package css

import (
	"fmt"
	"strings"

	"github.com/menuforge/menuforge/pkg/schema"
)

// Fallback renders a minimal stylesheet from whichever of the basic color
// and width values are present in v. It never fails and is used when
// Generate cannot produce a full stylesheet for a preview.
func Fallback(v schema.Values) string {
	var b strings.Builder
	b.WriteString("/* fallback */\n")

	var menu []string
	if w, ok := v.Int("menu_width"); ok {
		menu = append(menu, fmt.Sprintf("width: %dpx", w))
	}
	if c, ok := v.Color("menu_background"); ok {
		menu = append(menu, "background-color: "+c)
	}
	if len(menu) > 0 {
		fmt.Fprintf(&b, "#adminmenuback, #adminmenuwrap, #adminmenu { %s; }\n", strings.Join(menu, "; "))
	}
	if c, ok := v.Color("menu_text_color"); ok {
		fmt.Fprintf(&b, "#adminmenu a { color: %s; }\n", c)
	}
	if c, ok := v.Color("menu_hover_background"); ok {
		fmt.Fprintf(&b, "#adminmenu li.menu-top:hover { background-color: %s; }\n", c)
	}
	return b.String()
}

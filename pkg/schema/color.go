package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

var (
	hexColorRe  = regexp.MustCompile(`^#([0-9a-f]{3}|[0-9a-f]{4}|[0-9a-f]{6}|[0-9a-f]{8})$`)
	funcColorRe = regexp.MustCompile(`^(rgba?)\(([^()]*)\)$`)
)

var namedColors = mapset.NewSet(
	"transparent", "currentcolor", "inherit",
	"black", "white", "red", "green", "blue", "gray", "grey",
	"silver", "navy", "teal", "orange", "purple", "yellow",
)

// parseColor normalizes a color. clamped is true when an rgb channel was
// outside its range and was pulled back in.
func parseColor(s string) (c ColorValue, clamped bool, err error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if hexColorRe.MatchString(s) || namedColors.Contains(s) {
		return ColorValue(s), false, nil
	}

	m := funcColorRe.FindStringSubmatch(s)
	if m == nil {
		return "", false, fmt.Errorf("not a color")
	}
	fn, args := m[1], strings.Split(m[2], ",")
	want := 3
	if fn == "rgba" {
		want = 4
	}
	if len(args) != want {
		return "", false, fmt.Errorf("%s() takes %d arguments", fn, want)
	}

	parts := make([]string, 0, want)
	for i, a := range args {
		a = strings.TrimSpace(a)
		if i == 3 {
			alpha, err := strconv.ParseFloat(a, 64)
			if err != nil {
				return "", false, fmt.Errorf("invalid alpha %q", a)
			}
			if alpha < 0 || alpha > 1 {
				alpha = min(max(alpha, 0), 1)
				clamped = true
			}
			parts = append(parts, strconv.FormatFloat(alpha, 'f', -1, 64))
			continue
		}
		ch, err := strconv.Atoi(a)
		if err != nil {
			return "", false, fmt.Errorf("invalid channel %q", a)
		}
		if ch < 0 || ch > 255 {
			ch = min(max(ch, 0), 255)
			clamped = true
		}
		parts = append(parts, strconv.Itoa(ch))
	}
	return ColorValue(fn + "(" + strings.Join(parts, ",") + ")"), clamped, nil
}

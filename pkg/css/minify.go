package css

import "strings"

// Minify strips comments and insignificant whitespace. Quoted strings are
// copied unchanged.
func Minify(src string) string {
	var b strings.Builder
	b.Grow(len(src))

	pendingSpace := false
	var last byte
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				i = len(src)
			} else {
				i += end + 3
			}
			pendingSpace = b.Len() > 0
		case c == '"' || c == '\'':
			if pendingSpace && !isPunct(last) && last != ':' {
				b.WriteByte(' ')
			}
			pendingSpace = false
			j := i + 1
			for j < len(src) && src[j] != c {
				if src[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(src) {
				j = len(src) - 1
			}
			b.WriteString(src[i : j+1])
			last = c
			i = j
		case c == ' ' || c == '\n' || c == '\t' || c == '\r' || c == '\f':
			pendingSpace = b.Len() > 0
		default:
			if c == '}' && last == ';' {
				s := b.String()
				b.Reset()
				b.WriteString(s[:len(s)-1])
			}
			if pendingSpace && !isPunct(last) && last != ':' && !isPunct(c) {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteByte(c)
			last = c
		}
	}
	return b.String()
}

// isPunct reports whether whitespace next to c is insignificant. A space
// before a colon can be a descendant combinator ("a :hover"), so colons only
// absorb the whitespace that follows them.
func isPunct(c byte) bool {
	switch c {
	case '{', '}', ';', ',', '>', 0:
		return true
	}
	return false
}

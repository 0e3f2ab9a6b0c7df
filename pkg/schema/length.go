package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	mapset "github.com/deckarep/golang-set/v2"
)

var lengthUnits = mapset.NewSet("px", "em", "rem", "%", "vh", "vw", "pt")

var lengthLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Number", Pattern: `[-+]?(\d+\.?\d*|\.\d+)`},
	{Name: "Unit", Pattern: `[a-zA-Z]+|%`},
	{Name: "Whitespace", Pattern: `\s+`},
})

type lengthExpr struct {
	Number string `parser:"@Number"`
	Unit   string `parser:"@Unit?"`
}

var lengthParser = participle.MustBuild[lengthExpr](
	participle.Lexer(lengthLexer),
	participle.Elide("Whitespace"),
)

// ParseLength parses a CSS length. A bare number is read as pixels.
func ParseLength(s string) (LengthValue, error) {
	expr, err := lengthParser.ParseString("", strings.TrimSpace(s))
	if err != nil {
		return LengthValue{}, fmt.Errorf("invalid length %q: %w", s, err)
	}
	n, err := strconv.ParseFloat(expr.Number, 64)
	if err != nil {
		return LengthValue{}, fmt.Errorf("invalid length %q: %w", s, err)
	}
	unit := strings.ToLower(expr.Unit)
	if unit == "" {
		unit = "px"
	}
	if !lengthUnits.Contains(unit) {
		return LengthValue{}, fmt.Errorf("invalid length %q: unsupported unit %q", s, unit)
	}
	return LengthValue{Number: n, Unit: unit}, nil
}

// Package netref parses textual net references.
//
// A reference is either a bus reference, a sized constant or a
// concatenation of references:
//
//	in            port "in" of the current module
//	lut.in[3:0]   bits 0 through 3 of pin "in" of instance "lut"
//	cfg_d[2]      bit 2 of port "cfg_d"
//	4'b01x0       a 4-bit constant, x and z meaning an open net
//	{a, b[1], 2'h3}
//
// Bits of a concatenation are listed first element first.
//
package netref

import (
	"math/bits"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/pkg/errors"
)

// Lexer is the token set of net references.
var Lexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Const", Pattern: `[0-9]*'[bBhHdD][0-9a-fA-FxXzZ_]+`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_$]*`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Punct", Pattern: `[{}\[\]:,.]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// Ref is a parsed reference.
type Ref struct {
	Concat []*Ref   `  "{" @@ ( "," @@ )* "}"`
	Const  *string  `| @Const`
	Bus    *BusRef  `| @@`
}

// BusRef names a port of the current module or a pin of one of its
// instances, optionally sliced.
type BusRef struct {
	Name  string `@Ident`
	Pin   string `( "." @Ident )?`
	Slice *Slice `( "[" @@ "]" )?`
}

// Slice selects bit Hi, or bits Lo through Hi.
type Slice struct {
	Hi int  `@Int`
	Lo *int `( ":" @Int )?`
}

// Range returns the selected bits, lowest first.
func (s *Slice) Range() (lo, hi int) {
	if s.Lo == nil {
		return s.Hi, s.Hi
	}
	return *s.Lo, s.Hi
}

var parser = participle.MustBuild[Ref](
	participle.Lexer(Lexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

// Parse parses a reference.
func Parse(s string) (*Ref, error) {
	r, err := parser.ParseString("", s)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %q", s)
	}
	return r, nil
}

// Bit values of a constant.
const (
	Zero int8 = iota
	One
	Open
)

// ConstBits decodes a constant such as 8'hA5 into its bits, least significant
// first. Without an explicit size, the constant is as wide as its digits.
//
func ConstBits(s string) ([]int8, error) {
	i := strings.IndexByte(s, '\'')
	if i < 0 || i+2 > len(s) {
		return nil, errors.Errorf("malformed constant %q", s)
	}
	width := -1
	if i > 0 {
		w, err := strconv.Atoi(s[:i])
		if err != nil || w < 1 {
			return nil, errors.Errorf("invalid width in constant %q", s)
		}
		width = w
	}
	digits := strings.ReplaceAll(s[i+2:], "_", "")
	var r []int8 // lsb first
	switch s[i+1] {
	case 'b', 'B':
		for j := len(digits) - 1; j >= 0; j-- {
			switch c := digits[j]; c {
			case '0':
				r = append(r, Zero)
			case '1':
				r = append(r, One)
			case 'x', 'X', 'z', 'Z':
				r = append(r, Open)
			default:
				return nil, errors.Errorf("invalid binary digit %q in constant %q", c, s)
			}
		}
	case 'h', 'H':
		for j := len(digits) - 1; j >= 0; j-- {
			c := digits[j]
			if c == 'x' || c == 'X' || c == 'z' || c == 'Z' {
				r = append(r, Open, Open, Open, Open)
				continue
			}
			v, err := strconv.ParseUint(string(c), 16, 8)
			if err != nil {
				return nil, errors.Errorf("invalid hex digit %q in constant %q", c, s)
			}
			for k := 0; k < 4; k++ {
				r = append(r, int8(v>>k&1))
			}
		}
	case 'd', 'D':
		v, err := strconv.ParseUint(digits, 10, 64)
		if err != nil {
			return nil, errors.Errorf("invalid decimal constant %q", s)
		}
		n := bits.Len64(v)
		if n == 0 {
			n = 1
		}
		for k := 0; k < n; k++ {
			r = append(r, int8(v>>k&1))
		}
	}
	if width < 0 {
		return r, nil
	}
	for len(r) < width {
		r = append(r, Zero)
	}
	return r[:width], nil
}

package units

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/c360studio/semcat/errors"
)

// maxExponent bounds unit exponents. Anything beyond ±9 is a typo, not
// physics.
const maxExponent = 9

// Parse parses a unit expression into a Unit.
//
// Accepted grammar, covering the spellings found in CF attribute values:
//
//	m s-1        product by whitespace, signed integer exponents
//	m.s-1        product by dot
//	kg*m/s^2     product by '*', division by '/', caret exponents
//	m**2         double-star exponents
//	""           empty means dimensionless
//
// Division binds to the single factor that follows it; "kg/m/s" is
// kg m-1 s-1. Affine units (degC) may only appear alone with exponent 1.
func Parse(expr string) (Unit, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" || trimmed == "1" || trimmed == "dimensionless" {
		return Unit{expr: trimmed, scale: 1}, nil
	}

	factors, err := tokenize(trimmed)
	if err != nil {
		return Unit{}, err
	}

	u := Unit{expr: trimmed, scale: 1}
	for _, f := range factors {
		base, ferr := resolveSymbol(f.symbol)
		if ferr != nil {
			return Unit{}, ferr
		}
		if base.offset != 0 {
			// Affine units only make sense standalone.
			if len(factors) != 1 || f.exponent != 1 {
				return Unit{}, fmt.Errorf("affine unit %q in compound expression %q: %w",
					f.symbol, trimmed, errors.ErrUnitsUnparseable)
			}
			return Unit{expr: trimmed, scale: base.scale, offset: base.offset, dim: base.dim}, nil
		}
		if f.exponent == 0 {
			continue
		}
		u.scale *= pow(base.scale, f.exponent)
		for i := range u.dim {
			e := int(u.dim[i]) + int(base.dim[i])*f.exponent
			if e > maxExponent || e < -maxExponent {
				return Unit{}, fmt.Errorf("exponent out of range in %q: %w", trimmed, errors.ErrUnitsUnparseable)
			}
			u.dim[i] = int8(e)
		}
	}
	return u, nil
}

// MustParse is Parse for trusted literals; it panics on error.
func MustParse(expr string) Unit {
	u, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return u
}

type factor struct {
	symbol   string
	exponent int
}

// tokenize splits a unit expression into symbol/exponent factors. Division
// binds to the next factor, or to a whole parenthesized group as in
// "kg/(m s)".
func tokenize(expr string) ([]factor, error) {
	var factors []factor
	divide := false      // next factor is a divisor
	groupDivide := false // inside a divided parenthesized group
	depth := 0
	i := 0
	n := len(expr)

	for i < n {
		switch c := expr[i]; {
		case c == ' ' || c == '\t' || c == '.' || c == '*':
			// '**' belongs to the previous factor's exponent and is consumed
			// inside readFactor; a lone separator just moves on.
			i++
		case c == '/':
			divide = true
			i++
		case c == '(':
			depth++
			if divide {
				groupDivide = true
				divide = false
			}
			i++
		case c == ')':
			depth--
			if depth <= 0 {
				groupDivide = false
				depth = 0
			}
			i++
		default:
			f, next, err := readFactor(expr, i)
			if err != nil {
				return nil, err
			}
			// The two negations cancel when a divisor sits inside a divided
			// group: in "kg/(m/s)" the s is back in the numerator.
			if divide != groupDivide {
				f.exponent = -f.exponent
			}
			divide = false
			factors = append(factors, f)
			i = next
		}
	}
	if len(factors) == 0 {
		return nil, fmt.Errorf("no unit factors in %q: %w", expr, errors.ErrUnitsUnparseable)
	}
	return factors, nil
}

// readFactor reads one symbol plus optional exponent starting at i.
func readFactor(expr string, i int) (factor, int, error) {
	n := len(expr)
	start := i
	for i < n && isSymbolRune(rune(expr[i])) {
		i++
	}
	if i == start {
		return factor{}, 0, fmt.Errorf("unexpected %q in %q: %w", expr[i], expr, errors.ErrUnitsUnparseable)
	}
	sym := expr[start:i]

	// Trailing digits attached to the symbol are an exponent: "m2", "s-1".
	// Strip them off the symbol unless the whole token is a known symbol
	// (keeps "1" intact).
	if _, ok := unitTable[sym]; !ok {
		j := len(sym)
		for j > 0 && (sym[j-1] >= '0' && sym[j-1] <= '9') {
			j--
		}
		if j > 0 && j < len(sym) {
			if sym[j-1] == '-' || sym[j-1] == '+' {
				j--
			}
			exp, err := strconv.Atoi(sym[j:])
			if err == nil {
				e, perr := boundExponent(exp, expr)
				if perr != nil {
					return factor{}, 0, perr
				}
				return factor{symbol: sym[:j], exponent: e}, i, nil
			}
		}
	}

	// Explicit exponent markers: "^", "**", or a bare signed integer glued on
	// after a separator-free symbol ("s-1" handled above).
	exp := 1
	if i < n && expr[i] == '^' {
		i++
		e, next, err := readInt(expr, i)
		if err != nil {
			return factor{}, 0, err
		}
		exp, i = e, next
	} else if i+1 < n && expr[i] == '*' && expr[i+1] == '*' {
		i += 2
		e, next, err := readInt(expr, i)
		if err != nil {
			return factor{}, 0, err
		}
		exp, i = e, next
	}
	e, err := boundExponent(exp, expr)
	if err != nil {
		return factor{}, 0, err
	}
	return factor{symbol: sym, exponent: e}, i, nil
}

func boundExponent(e int, expr string) (int, error) {
	if e > maxExponent || e < -maxExponent {
		return 0, fmt.Errorf("exponent %d out of range in %q: %w", e, expr, errors.ErrUnitsUnparseable)
	}
	return e, nil
}

func readInt(expr string, i int) (int, int, error) {
	n := len(expr)
	start := i
	if i < n && (expr[i] == '-' || expr[i] == '+') {
		i++
	}
	for i < n && expr[i] >= '0' && expr[i] <= '9' {
		i++
	}
	if i == start || (i == start+1 && !unicode.IsDigit(rune(expr[start]))) {
		return 0, 0, fmt.Errorf("missing exponent in %q: %w", expr, errors.ErrUnitsUnparseable)
	}
	v, err := strconv.Atoi(expr[start:i])
	if err != nil {
		return 0, 0, fmt.Errorf("bad exponent in %q: %w", expr, errors.ErrUnitsUnparseable)
	}
	return v, i, nil
}

// isSymbolRune reports whether r can be part of a unit symbol. '%' and 'µ'
// are valid; digits and signs are, because glued exponents are stripped in
// readFactor.
func isSymbolRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) ||
		r == '%' || r == 'µ' || r == '-' || r == '+' || r == '_'
}

// resolveSymbol looks up a symbol directly, then with SI prefixes
// (longest prefix first so "da" wins over "d").
func resolveSymbol(sym string) (baseUnit, error) {
	if b, ok := unitTable[sym]; ok {
		return b, nil
	}
	for plen := 2; plen >= 1; plen-- {
		if len(sym) <= plen {
			continue
		}
		prefix := sym[:plen]
		mult, ok := siPrefixes[prefix]
		if !ok {
			continue
		}
		rest := sym[plen:]
		b, ok := unitTable[rest]
		if !ok || b.noPrefix {
			continue
		}
		b.scale *= mult
		return b, nil
	}
	// Special-case the micro sign which is multi-byte in UTF-8.
	if strings.HasPrefix(sym, "µ") {
		rest := strings.TrimPrefix(sym, "µ")
		if b, ok := unitTable[rest]; ok && !b.noPrefix {
			b.scale *= 1e-6
			return b, nil
		}
	}
	return baseUnit{}, fmt.Errorf("unknown unit symbol %q: %w", sym, errors.ErrUnitsUnparseable)
}

func pow(base float64, exp int) float64 {
	result := 1.0
	neg := exp < 0
	if neg {
		exp = -exp
	}
	for i := 0; i < exp; i++ {
		result *= base
	}
	if neg {
		return 1 / result
	}
	return result
}

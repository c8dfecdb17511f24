package snt

import (
	"fmt"
	"regexp"

	"github.com/c360studio/semcat/errors"
	"github.com/c360studio/semcat/units"
)

// Derivation rules accept names built from table entries without their own
// entry: "derivative_of_x_velocity_wrt_time" is valid whenever x_velocity
// and time are, with units derived from the operands. Rules nest, so
// "magnitude_of_derivative_of_position_wrt_time" resolves too.
type transformRule struct {
	name    string
	pattern *regexp.Regexp
	derive  func(t *Table, operands []string) (StandardName, error)
}

// Populated in init: the rule closures call Table.Resolve, which walks
// this slice again for nested derivations, so a composite literal here
// would be an initialization cycle.
var transformRules []transformRule

func init() {
	transformRules = []transformRule{
		{
			name:    "derivative",
			pattern: regexp.MustCompile(`^derivative_of_(.+?)_wrt_(.+)$`),
			derive: func(t *Table, ops []string) (StandardName, error) {
				x, err := t.Resolve(ops[0])
				if err != nil {
					return StandardName{}, err
				}
				y, err := t.Resolve(ops[1])
				if err != nil {
					return StandardName{}, err
				}
				u, err := combineUnits(x, y, "/")
				if err != nil {
					return StandardName{}, err
				}
				return StandardName{
					Description: fmt.Sprintf("Derivative of %s with respect to %s.", x.Name, y.Name),
					Units:       u,
					UnitsExpr:   u.Expr(),
				}, nil
			},
		},
		{
			name:    "square",
			pattern: regexp.MustCompile(`^square_of_(.+)$`),
			derive: func(t *Table, ops []string) (StandardName, error) {
				x, err := t.Resolve(ops[0])
				if err != nil {
					return StandardName{}, err
				}
				u, err := combineUnits(x, x, " ")
				if err != nil {
					return StandardName{}, err
				}
				return StandardName{
					Description: fmt.Sprintf("Square of %s.", x.Name),
					Units:       u,
					UnitsExpr:   u.Expr(),
				}, nil
			},
		},
		{
			name:    "standard_deviation",
			pattern: regexp.MustCompile(`^standard_deviation_of_(.+)$`),
			derive:  sameUnitsRule("Standard deviation of %s."),
		},
		{
			name:    "arithmetic_mean",
			pattern: regexp.MustCompile(`^arithmetic_mean_of_(.+)$`),
			derive:  sameUnitsRule("Arithmetic mean of %s."),
		},
		{
			name:    "magnitude",
			pattern: regexp.MustCompile(`^magnitude_of_(.+)$`),
			derive:  sameUnitsRule("Magnitude of %s."),
		},
		{
			name:    "product",
			pattern: regexp.MustCompile(`^product_of_(.+?)_and_(.+)$`),
			derive: func(t *Table, ops []string) (StandardName, error) {
				x, err := t.Resolve(ops[0])
				if err != nil {
					return StandardName{}, err
				}
				y, err := t.Resolve(ops[1])
				if err != nil {
					return StandardName{}, err
				}
				u, err := combineUnits(x, y, " ")
				if err != nil {
					return StandardName{}, err
				}
				return StandardName{
					Description: fmt.Sprintf("Product of %s and %s.", x.Name, y.Name),
					Units:       u,
					UnitsExpr:   u.Expr(),
				}, nil
			},
		},
		{
			name:    "ratio",
			pattern: regexp.MustCompile(`^ratio_of_(.+?)_and_(.+)$`),
			derive: func(t *Table, ops []string) (StandardName, error) {
				x, err := t.Resolve(ops[0])
				if err != nil {
					return StandardName{}, err
				}
				y, err := t.Resolve(ops[1])
				if err != nil {
					return StandardName{}, err
				}
				u, err := combineUnits(x, y, "/")
				if err != nil {
					return StandardName{}, err
				}
				return StandardName{
					Description: fmt.Sprintf("Ratio of %s and %s.", x.Name, y.Name),
					Units:       u,
					UnitsExpr:   u.Expr(),
				}, nil
			},
		},
	}
}

func sameUnitsRule(descFormat string) func(*Table, []string) (StandardName, error) {
	return func(t *Table, ops []string) (StandardName, error) {
		x, err := t.Resolve(ops[0])
		if err != nil {
			return StandardName{}, err
		}
		return StandardName{
			Description: fmt.Sprintf(descFormat, x.Name),
			Units:       x.Units,
			UnitsExpr:   x.UnitsExpr,
			Vector:      x.Vector,
		}, nil
	}
}

// combineUnits builds the units of a derived quantity by composing the
// operand expressions and reparsing.
func combineUnits(x, y StandardName, op string) (units.Unit, error) {
	expr := "(" + exprOrOne(x.UnitsExpr) + ")" + op + "(" + exprOrOne(y.UnitsExpr) + ")"
	u, err := units.Parse(expr)
	if err != nil {
		return units.Unit{}, errors.WrapInvalid(err, "snt", "combineUnits",
			fmt.Sprintf("derive units from %q and %q", x.UnitsExpr, y.UnitsExpr))
	}
	return u, nil
}

func exprOrOne(expr string) string {
	if expr == "" || expr == "dimensionless" {
		return "1"
	}
	return expr
}

// applyTransforms tries each derivation rule plus the coordinate-frame
// suffix. The bool result reports whether any rule matched at all; a
// matching rule with unresolvable operands returns its error.
func (t *Table) applyTransforms(name string) (StandardName, bool, error) {
	for _, rule := range transformRules {
		m := rule.pattern.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		sn, err := rule.derive(t, m[1:])
		if err != nil {
			return StandardName{}, true, err
		}
		sn.Name = name
		sn.Derived = true
		return sn, true, nil
	}

	// Frame suffix: "<name>_in_<frame>" for a declared coordinate frame.
	for _, frame := range t.Frames() {
		suffix := "_in_" + frame
		base, ok := cutSuffix(name, suffix)
		if !ok {
			continue
		}
		sn, err := t.Resolve(base)
		if err != nil {
			return StandardName{}, true, err
		}
		sn.Name = name
		sn.Derived = true
		sn.Description = fmt.Sprintf("%s Expressed in the %s frame.", sn.Description, frame)
		return sn, true, nil
	}

	return StandardName{}, false, nil
}

func cutSuffix(s, suffix string) (string, bool) {
	if len(s) <= len(suffix) || s[len(s)-len(suffix):] != suffix {
		return s, false
	}
	return s[:len(s)-len(suffix)], true
}

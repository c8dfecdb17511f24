// Package units implements parsing and dimensional analysis for the
// CF/UDUNITS-style unit expressions carried by dataset attributes.
//
// A Unit is reduced to a scale factor relative to coherent SI units plus an
// exponent vector over the seven SI base dimensions. Two units are
// convertible when their exponent vectors match; the ratio of their scale
// factors converts values between them. Affine units (degC, degF) carry an
// offset and only convert as standalone units, never inside compound
// expressions.
package units

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/c360studio/semcat/errors"
)

// Dimension is an exponent vector over the SI base dimensions, in the order
// length, mass, time, electric current, temperature, amount of substance,
// luminous intensity.
type Dimension [7]int8

// Zero reports whether the dimension vector is all zeros (dimensionless).
func (d Dimension) Zero() bool {
	return d == Dimension{}
}

// String renders the dimension in "L M T I Th N J" exponent notation,
// e.g. "L1 T-2" for acceleration. Dimensionless renders as "1".
func (d Dimension) String() string {
	symbols := [7]string{"L", "M", "T", "I", "Th", "N", "J"}
	var parts []string
	for i, e := range d {
		if e != 0 {
			parts = append(parts, fmt.Sprintf("%s%d", symbols[i], e))
		}
	}
	if len(parts) == 0 {
		return "1"
	}
	return strings.Join(parts, " ")
}

// Unit is a parsed unit expression.
type Unit struct {
	expr   string
	scale  float64
	offset float64
	dim    Dimension
}

// Expr returns the original expression the unit was parsed from.
func (u Unit) Expr() string { return u.expr }

// Dimension returns the SI base dimension exponents of the unit.
func (u Unit) Dimension() Dimension { return u.dim }

// Dimensionless reports whether the unit has no physical dimension.
// Percent, ppm, counts, angles and the empty expression are all
// dimensionless.
func (u Unit) Dimensionless() bool { return u.dim.Zero() }

// Affine reports whether the unit has a nonzero offset (degC, degF).
func (u Unit) Affine() bool { return u.offset != 0 }

// String returns the original expression, or "1" for the empty expression.
func (u Unit) String() string {
	if u.expr == "" {
		return "1"
	}
	return u.expr
}

// Canonical returns the normalized coherent-SI rendering of the unit,
// e.g. "kg m2 s-2" for any energy unit. Equal units always produce equal
// canonical strings regardless of the spelling they were parsed from.
func (u Unit) Canonical() string {
	if u.dim.Zero() {
		return "1"
	}
	// Base symbols in conventional order: kg before m before s.
	type comp struct {
		sym string
		exp int8
	}
	order := []comp{
		{"kg", u.dim[1]},
		{"m", u.dim[0]},
		{"s", u.dim[2]},
		{"A", u.dim[3]},
		{"K", u.dim[4]},
		{"mol", u.dim[5]},
		{"cd", u.dim[6]},
	}
	var parts []string
	for _, c := range order {
		switch {
		case c.exp == 0:
		case c.exp == 1:
			parts = append(parts, c.sym)
		default:
			parts = append(parts, fmt.Sprintf("%s%d", c.sym, c.exp))
		}
	}
	return strings.Join(parts, " ")
}

// Convertible reports whether values in unit a can be converted to unit b.
func Convertible(a, b Unit) bool {
	return a.dim == b.dim
}

// ScaleFactor returns the multiplicative factor converting values in from
// to values in to. Affine units are rejected: a pure factor cannot express
// the offset.
func ScaleFactor(from, to Unit) (float64, error) {
	if from.dim != to.dim {
		return 0, fmt.Errorf("%q (%s) vs %q (%s): %w",
			from, from.dim, to, to.dim, errors.ErrUnitsIncompatible)
	}
	if from.Affine() || to.Affine() {
		return 0, fmt.Errorf("affine unit in scale-only conversion %q -> %q: %w",
			from, to, errors.ErrUnitsIncompatible)
	}
	return from.scale / to.scale, nil
}

// Convert converts a value between units, handling affine temperature units.
func Convert(value float64, from, to Unit) (float64, error) {
	if from.dim != to.dim {
		return 0, fmt.Errorf("%q (%s) vs %q (%s): %w",
			from, from.dim, to, to.dim, errors.ErrUnitsIncompatible)
	}
	// value -> SI -> target
	si := value*from.scale + from.offset
	return (si - to.offset) / to.scale, nil
}

// Equal reports whether two units denote exactly the same scale, offset and
// dimension (their spellings may differ).
func Equal(a, b Unit) bool {
	const eps = 1e-12
	return a.dim == b.dim &&
		math.Abs(a.scale-b.scale) <= eps*math.Abs(a.scale) &&
		math.Abs(a.offset-b.offset) <= eps*math.Max(1, math.Abs(a.offset))
}

// baseUnit describes a recognized unit symbol.
type baseUnit struct {
	scale      float64
	offset     float64
	dim        Dimension
	noPrefix   bool // symbols like "min" or "%" never take SI prefixes
	prefixOnly bool // reserved
}

func dim(l, m, t, i, th, n, j int8) Dimension {
	return Dimension{l, m, t, i, th, n, j}
}

// unitTable maps unit symbols to their SI reduction. Gram is the table base
// for mass so that prefix handling stays uniform; kilogram falls out of the
// "k" prefix.
var unitTable = map[string]baseUnit{
	// SI base
	"m":   {scale: 1, dim: dim(1, 0, 0, 0, 0, 0, 0)},
	"g":   {scale: 1e-3, dim: dim(0, 1, 0, 0, 0, 0, 0)},
	"s":   {scale: 1, dim: dim(0, 0, 1, 0, 0, 0, 0)},
	"A":   {scale: 1, dim: dim(0, 0, 0, 1, 0, 0, 0)},
	"K":   {scale: 1, dim: dim(0, 0, 0, 0, 1, 0, 0)},
	"mol": {scale: 1, dim: dim(0, 0, 0, 0, 0, 1, 0)},
	"cd":  {scale: 1, dim: dim(0, 0, 0, 0, 0, 0, 1)},

	// SI derived
	"Hz":  {scale: 1, dim: dim(0, 0, -1, 0, 0, 0, 0)},
	"N":   {scale: 1, dim: dim(1, 1, -2, 0, 0, 0, 0)},
	"Pa":  {scale: 1, dim: dim(-1, 1, -2, 0, 0, 0, 0)},
	"J":   {scale: 1, dim: dim(2, 1, -2, 0, 0, 0, 0)},
	"W":   {scale: 1, dim: dim(2, 1, -3, 0, 0, 0, 0)},
	"C":   {scale: 1, dim: dim(0, 0, 1, 1, 0, 0, 0)},
	"V":   {scale: 1, dim: dim(2, 1, -3, -1, 0, 0, 0)},
	"ohm": {scale: 1, dim: dim(2, 1, -3, -2, 0, 0, 0)},
	"S":   {scale: 1, dim: dim(-2, -1, 3, 2, 0, 0, 0)},
	"F":   {scale: 1, dim: dim(-2, -1, 4, 2, 0, 0, 0)},
	"T":   {scale: 1, dim: dim(0, 1, -2, -1, 0, 0, 0)},
	"Wb":  {scale: 1, dim: dim(2, 1, -2, -1, 0, 0, 0)},
	"H":   {scale: 1, dim: dim(2, 1, -2, -2, 0, 0, 0)},
	"lm":  {scale: 1, dim: dim(0, 0, 0, 0, 0, 0, 1)},
	"lx":  {scale: 1, dim: dim(-2, 0, 0, 0, 0, 0, 1)},
	"Bq":  {scale: 1, dim: dim(0, 0, -1, 0, 0, 0, 0)},

	// Temperature
	"degC":    {scale: 1, offset: 273.15, dim: dim(0, 0, 0, 0, 1, 0, 0), noPrefix: true},
	"Celsius": {scale: 1, offset: 273.15, dim: dim(0, 0, 0, 0, 1, 0, 0), noPrefix: true},
	"degF":    {scale: 5.0 / 9.0, offset: 255.372222222222222, dim: dim(0, 0, 0, 0, 1, 0, 0), noPrefix: true},

	// Accepted non-SI
	"min":    {scale: 60, dim: dim(0, 0, 1, 0, 0, 0, 0), noPrefix: true},
	"h":      {scale: 3600, dim: dim(0, 0, 1, 0, 0, 0, 0), noPrefix: true},
	"hr":     {scale: 3600, dim: dim(0, 0, 1, 0, 0, 0, 0), noPrefix: true},
	"day":    {scale: 86400, dim: dim(0, 0, 1, 0, 0, 0, 0), noPrefix: true},
	"d":      {scale: 86400, dim: dim(0, 0, 1, 0, 0, 0, 0), noPrefix: true},
	"L":      {scale: 1e-3, dim: dim(3, 0, 0, 0, 0, 0, 0)},
	"l":      {scale: 1e-3, dim: dim(3, 0, 0, 0, 0, 0, 0)},
	"t":      {scale: 1e3, dim: dim(0, 1, 0, 0, 0, 0, 0), noPrefix: true},
	"bar":    {scale: 1e5, dim: dim(-1, 1, -2, 0, 0, 0, 0)},
	"atm":    {scale: 101325, dim: dim(-1, 1, -2, 0, 0, 0, 0), noPrefix: true},
	"eV":     {scale: 1.602176634e-19, dim: dim(2, 1, -2, 0, 0, 0, 0)},
	"Da":     {scale: 1.66053906660e-27, dim: dim(0, 1, 0, 0, 0, 0, 0), noPrefix: true},
	"counts": {scale: 1, noPrefix: true},
	"count":  {scale: 1, noPrefix: true},
	"pixel":  {scale: 1, noPrefix: true},
	"px":     {scale: 1, noPrefix: true},

	// Dimensionless
	"1":       {scale: 1, noPrefix: true},
	"%":       {scale: 0.01, noPrefix: true},
	"percent": {scale: 0.01, noPrefix: true},
	"ppm":     {scale: 1e-6, noPrefix: true},
	"rad":     {scale: 1, noPrefix: true},
	"sr":      {scale: 1, noPrefix: true},
	"deg":     {scale: math.Pi / 180, noPrefix: true},
	"degree":  {scale: math.Pi / 180, noPrefix: true},
	"arcmin":  {scale: math.Pi / 180 / 60, noPrefix: true},
	"arcsec":  {scale: math.Pi / 180 / 3600, noPrefix: true},
}

// siPrefixes maps prefix symbols to powers of ten. Two-character prefixes
// ("da") are tried before single-character ones during symbol resolution.
var siPrefixes = map[string]float64{
	"Y":  1e24,
	"Z":  1e21,
	"E":  1e18,
	"P":  1e15,
	"T":  1e12,
	"G":  1e9,
	"M":  1e6,
	"k":  1e3,
	"h":  1e2,
	"da": 1e1,
	"d":  1e-1,
	"c":  1e-2,
	"m":  1e-3,
	"u":  1e-6,
	"µ":  1e-6,
	"n":  1e-9,
	"p":  1e-12,
	"f":  1e-15,
	"a":  1e-18,
	"z":  1e-21,
	"y":  1e-24,
}

// KnownSymbols returns all recognized unit symbols, sorted. Used by the CLI
// for diagnostics.
func KnownSymbols() []string {
	syms := make([]string, 0, len(unitTable))
	for s := range unitTable {
		syms = append(syms, s)
	}
	sort.Strings(syms)
	return syms
}

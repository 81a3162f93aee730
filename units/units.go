/*
Copyright © 2018 the cmorfix authors.
This file is part of cmorfix.

cmorfix is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

cmorfix is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with cmorfix.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package units parses the unit strings used in CF-convention NetCDF
// files (e.g., "kg m-2 s-1", "hPa", "days since 1850-1-1") and converts
// values between them. Dimensional analysis is carried out with
// github.com/ctessum/unit.
package units

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ctessum/unit"
)

type kind int

const (
	unknownKind kind = iota
	knownKind
	referenceKind
	noUnitKind
)

// term is a single unit symbol (including its prefix) raised to a power.
type term struct {
	symbol string
	power  int
}

// Unit is a parsed unit string. The zero value is the "unknown" unit.
type Unit struct {
	name   string
	kind   kind
	si     *unit.Unit // SI scale factor and dimensions
	offset float64    // SI offset, for temperature scales such as degC
	factor float64    // leading numeric factor, used for formatting
	terms  []term

	// Time reference units only.
	epoch    DateTime
	calendar string
}

// AmountDim is the dimension representing amount of substance.
var AmountDim = unit.NewDimension("amount")

type symbolDef struct {
	scale      float64
	dims       unit.Dimensions
	offset     float64
	prefixable bool
}

var (
	dimless  = unit.Dimensions{}
	length   = unit.Dimensions{unit.LengthDim: 1}
	mass     = unit.Dimensions{unit.MassDim: 1}
	tm       = unit.Dimensions{unit.TimeDim: 1}
	temp     = unit.Dimensions{unit.TemperatureDim: 1}
	angle    = unit.Dimensions{unit.AngleDim: 1}
	pressure = unit.Dimensions{unit.MassDim: 1, unit.LengthDim: -1, unit.TimeDim: -2}
	energy   = unit.Dimensions{unit.MassDim: 1, unit.LengthDim: 2, unit.TimeDim: -2}
	power    = unit.Dimensions{unit.MassDim: 1, unit.LengthDim: 2, unit.TimeDim: -3}
	force    = unit.Dimensions{unit.MassDim: 1, unit.LengthDim: 1, unit.TimeDim: -2}
	volume   = unit.Dimensions{unit.LengthDim: 3}
	solid    = unit.Dimensions{unit.AngleDim: 2}
	amount   = unit.Dimensions{AmountDim: 1}
)

const degree = math.Pi / 180

var symbols = map[string]symbolDef{
	"m":      {1, length, 0, true},
	"meter":  {1, length, 0, false},
	"meters": {1, length, 0, false},
	"metre":  {1, length, 0, false},
	"metres": {1, length, 0, false},

	"g":     {1e-3, mass, 0, true},
	"gram":  {1e-3, mass, 0, false},
	"grams": {1e-3, mass, 0, false},
	"kg":    {1, mass, 0, false},

	"s":       {1, tm, 0, true},
	"sec":     {1, tm, 0, false},
	"second":  {1, tm, 0, false},
	"seconds": {1, tm, 0, false},
	"min":     {60, tm, 0, false},
	"minute":  {60, tm, 0, false},
	"minutes": {60, tm, 0, false},
	"h":       {3600, tm, 0, false},
	"hr":      {3600, tm, 0, false},
	"hour":    {3600, tm, 0, false},
	"hours":   {3600, tm, 0, false},
	"d":       {86400, tm, 0, false},
	"day":     {86400, tm, 0, false},
	"days":    {86400, tm, 0, false},
	"yr":      {3.15569259747e7, tm, 0, false},
	"year":    {3.15569259747e7, tm, 0, false},
	"years":   {3.15569259747e7, tm, 0, false},

	"K":              {1, temp, 0, true},
	"kelvin":         {1, temp, 0, false},
	"degK":           {1, temp, 0, false},
	"degC":           {1, temp, 273.15, false},
	"deg_C":          {1, temp, 273.15, false},
	"celsius":        {1, temp, 273.15, false},
	"degree_Celsius": {1, temp, 273.15, false},

	"Pa":     {1, pressure, 0, true},
	"pascal": {1, pressure, 0, false},
	"bar":    {1e5, pressure, 0, true},
	"atm":    {101325, pressure, 0, false},
	"N":      {1, force, 0, true},
	"J":      {1, energy, 0, true},
	"W":      {1, power, 0, true},
	"watt":   {1, power, 0, false},
	"L":      {1e-3, volume, 0, true},
	"l":      {1e-3, volume, 0, true},
	"mol":    {1, amount, 0, true},
	"mole":   {1, amount, 0, false},

	"rad":             {1, angle, 0, true},
	"radian":          {1, angle, 0, false},
	"radians":         {1, angle, 0, false},
	"sr":              {1, solid, 0, false},
	"deg":             {degree, angle, 0, false},
	"degree":          {degree, angle, 0, false},
	"degrees":         {degree, angle, 0, false},
	"degrees_north":   {degree, angle, 0, false},
	"degree_north":    {degree, angle, 0, false},
	"degrees_N":       {degree, angle, 0, false},
	"degree_N":        {degree, angle, 0, false},
	"degrees_east":    {degree, angle, 0, false},
	"degree_east":     {degree, angle, 0, false},
	"degrees_E":       {degree, angle, 0, false},
	"degree_E":        {degree, angle, 0, false},
	"%":               {1e-2, dimless, 0, false},
	"percent":         {1e-2, dimless, 0, false},
	"ppm":             {1e-6, dimless, 0, false},
	"ppb":             {1e-9, dimless, 0, false},
	"psu":             {1e-3, dimless, 0, false},
	"count":           {1, dimless, 0, false},
	"dimensionless":   {1, dimless, 0, false},
	"level":           {1, dimless, 0, false},
	"sigma_level":     {1, dimless, 0, false},
	"model_level":     {1, dimless, 0, false},
	"model level":     {1, dimless, 0, false},
	"vertical_level":  {1, dimless, 0, false},
	"hybrid_level":    {1, dimless, 0, false},
	"hybrid_sigma":    {1, dimless, 0, false},
	"hybrid_pressure": {1, dimless, 0, false},
}

// prefixes are tried longest first.
var prefixes = []struct {
	symbol string
	scale  float64
}{
	{"da", 1e1},
	{"Y", 1e24}, {"Z", 1e21}, {"E", 1e18}, {"P", 1e15}, {"T", 1e12},
	{"G", 1e9}, {"M", 1e6}, {"k", 1e3}, {"h", 1e2}, {"d", 1e-1},
	{"c", 1e-2}, {"m", 1e-3}, {"u", 1e-6}, {"μ", 1e-6}, {"n", 1e-9},
	{"p", 1e-12}, {"f", 1e-15}, {"a", 1e-18},
}

var termRE = regexp.MustCompile(`^([^\d+\-^*]+?)(?:\^|\*\*)?([+-]?\d+)?$`)

// Parse parses a CF unit string. Time reference units (e.g.,
// "days since 1850-1-1 00:00:00") use the "standard" calendar;
// use ParseCalendar to specify another one.
func Parse(s string) (Unit, error) {
	return ParseCalendar(s, "")
}

// ParseCalendar parses a CF unit string with the given calendar.
// The calendar is only used by time reference units.
func ParseCalendar(s, calendar string) (Unit, error) {
	name := strings.TrimSpace(s)
	switch strings.ToLower(name) {
	case "":
		return Unit{}, fmt.Errorf("units: empty unit string")
	case "no unit", "no_unit":
		return Unit{name: name, kind: noUnitKind}, nil
	case "unknown", "?":
		return Unit{name: name, kind: unknownKind}, nil
	}
	if i := strings.Index(name, " since "); i > 0 {
		return parseReference(name, name[:i], name[i+len(" since "):], calendar)
	}
	if def, ok := symbols[name]; ok { // multi-word aliases such as "model level"
		return Unit{
			name:   name,
			kind:   knownKind,
			si:     unit.New(def.scale, def.dims),
			offset: def.offset,
			factor: 1,
			terms:  []term{{symbol: name, power: 1}},
		}, nil
	}
	u := Unit{name: name, kind: knownKind, si: unit.New(1, dimless), factor: 1}
	fields := strings.Fields(strings.Replace(name, "/", " / ", -1))
	divide := false
	for _, f := range fields {
		if f == "/" {
			divide = true
			continue
		}
		if f == "." || f == "*" {
			continue
		}
		if v, err := strconv.ParseFloat(f, 64); err == nil {
			if divide {
				v = 1 / v
			}
			u.factor *= v
			u.si = unit.Mul(u.si, unit.New(v, dimless))
			divide = false
			continue
		}
		t, def, err := parseTerm(f)
		if err != nil {
			return Unit{}, fmt.Errorf("units: parsing '%s': %w", s, err)
		}
		if divide {
			t.power = -t.power
			divide = false
		}
		if def.offset != 0 {
			if len(fields) != 1 || t.power != 1 {
				return Unit{}, fmt.Errorf("units: parsing '%s': offset unit %s cannot be combined", s, t.symbol)
			}
			u.offset = def.offset
		}
		u.si = unit.Mul(u.si, powUnit(def, t.power))
		u.terms = append(u.terms, t)
	}
	return u, nil
}

// MustParse is like Parse but panics if the string cannot be parsed.
// It is intended for unit constants.
func MustParse(s string) Unit {
	u, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}

// Unknown returns an unknown unit that retains its original string,
// for unit strings that cannot be parsed.
func Unknown(s string) Unit {
	return Unit{name: s, kind: unknownKind}
}

// NoUnit returns the unit used for coordinates without physical meaning,
// such as string-valued area types.
func NoUnit() Unit {
	return Unit{name: "no unit", kind: noUnitKind}
}

// Dimensionless returns the unit "1".
func Dimensionless() Unit {
	return Unit{name: "1", kind: knownKind, si: unit.New(1, dimless), factor: 1}
}

func parseTerm(f string) (term, symbolDef, error) {
	m := termRE.FindStringSubmatch(f)
	if m == nil {
		return term{}, symbolDef{}, fmt.Errorf("invalid unit term '%s'", f)
	}
	t := term{symbol: m[1], power: 1}
	if m[2] != "" {
		p, err := strconv.Atoi(m[2])
		if err != nil {
			return term{}, symbolDef{}, fmt.Errorf("invalid power in '%s'", f)
		}
		t.power = p
	}
	def, err := lookupSymbol(t.symbol)
	return t, def, err
}

func lookupSymbol(s string) (symbolDef, error) {
	if def, ok := symbols[s]; ok {
		return def, nil
	}
	for _, p := range prefixes {
		if !strings.HasPrefix(s, p.symbol) {
			continue
		}
		def, ok := symbols[strings.TrimPrefix(s, p.symbol)]
		if !ok || !def.prefixable {
			continue
		}
		def.scale *= p.scale
		return def, nil
	}
	return symbolDef{}, fmt.Errorf("unknown unit symbol '%s'", s)
}

func powUnit(def symbolDef, p int) *unit.Unit {
	d := make(unit.Dimensions, len(def.dims))
	for k, v := range def.dims {
		d[k] = v * p
	}
	return unit.New(math.Pow(def.scale, float64(p)), d)
}

func parseReference(name, step, ref, calendar string) (Unit, error) {
	su, err := Parse(step)
	if err != nil {
		return Unit{}, err
	}
	if su.kind != knownKind || su.offset != 0 || su.si.Check(tm) != nil {
		return Unit{}, fmt.Errorf("units: '%s' is not a time reference unit", name)
	}
	epoch, err := ParseDate(ref)
	if err != nil {
		return Unit{}, fmt.Errorf("units: parsing '%s': %w", name, err)
	}
	cal, err := normalizeCalendar(calendar)
	if err != nil {
		return Unit{}, err
	}
	su.name = name
	su.kind = referenceKind
	su.epoch = epoch
	su.calendar = cal
	return su, nil
}

// String returns the unit in CF notation.
func (u Unit) String() string {
	if u.name == "" {
		if u.kind == unknownKind {
			return "unknown"
		}
		return formatTerms(u.factor, u.terms)
	}
	return u.name
}

// IsKnown returns whether u is a physical (non-time-reference) unit.
func (u Unit) IsKnown() bool { return u.kind == knownKind }

// IsUnknown returns whether u is the unknown unit.
func (u Unit) IsUnknown() bool { return u.kind == unknownKind }

// IsNoUnit returns whether u is "no unit".
func (u Unit) IsNoUnit() bool { return u.kind == noUnitKind }

// IsTimeReference returns whether u is of the form "<unit> since <date>".
func (u Unit) IsTimeReference() bool { return u.kind == referenceKind }

// Calendar returns the calendar of a time reference unit, or "" otherwise.
func (u Unit) Calendar() string { return u.calendar }

// Epoch returns the reference date of a time reference unit.
func (u Unit) Epoch() DateTime { return u.epoch }

// WithCalendar returns a copy of the time reference unit u with its
// calendar replaced. Values are not modified.
func (u Unit) WithCalendar(calendar string) (Unit, error) {
	if u.kind != referenceKind {
		return Unit{}, fmt.Errorf("units: '%s' is not a time reference unit", u)
	}
	cal, err := normalizeCalendar(calendar)
	if err != nil {
		return Unit{}, err
	}
	u.calendar = cal
	return u, nil
}

// Dimensions returns the physical dimensions of u, or nil for
// unknown and no-unit units.
func (u Unit) Dimensions() unit.Dimensions {
	if u.si == nil {
		return nil
	}
	return u.si.Dimensions()
}

// IsConvertible returns whether values can be converted from u to o.
func (u Unit) IsConvertible(o Unit) bool {
	switch {
	case u.kind == knownKind && o.kind == knownKind:
		return unit.DimensionsMatch(u.si, o.si)
	case u.kind == referenceKind && o.kind == referenceKind:
		return SameCalendar(u.calendar, o.calendar)
	}
	return false
}

// Equal returns whether u and o represent the same unit.
func (u Unit) Equal(o Unit) bool {
	if u.kind != o.kind {
		return false
	}
	switch u.kind {
	case knownKind:
		return unit.DimensionsMatch(u.si, o.si) && closeTo(u.si.Value(), o.si.Value()) &&
			closeTo(u.offset, o.offset)
	case referenceKind:
		return closeTo(u.si.Value(), o.si.Value()) && u.epoch == o.epoch &&
			u.calendar == o.calendar
	}
	return true
}

func closeTo(a, b float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) <= 1e-12*math.Max(math.Abs(a), math.Abs(b))
}

// Multiply returns the product of u and o.
func (u Unit) Multiply(o Unit) (Unit, error) {
	return u.combine(o, 1)
}

// Divide returns the quotient u / o.
func (u Unit) Divide(o Unit) (Unit, error) {
	return u.combine(o, -1)
}

func (u Unit) combine(o Unit, sign int) (Unit, error) {
	if u.kind != knownKind || o.kind != knownKind {
		return Unit{}, fmt.Errorf("units: cannot combine '%s' and '%s'", u, o)
	}
	if u.offset != 0 || o.offset != 0 {
		return Unit{}, fmt.Errorf("units: cannot combine offset units '%s' and '%s'", u, o)
	}
	r := Unit{kind: knownKind, factor: u.factor}
	ou := o.si
	if sign < 0 {
		r.si = unit.Div(u.si, ou)
		r.factor /= o.factor
	} else {
		r.si = unit.Mul(u.si, ou)
		r.factor *= o.factor
	}
	r.terms = append(r.terms, u.terms...)
	for _, t := range o.terms {
		r.terms = append(r.terms, term{symbol: t.symbol, power: sign * t.power})
	}
	r.terms = mergeTerms(r.terms)
	r.name = formatTerms(r.factor, r.terms)
	return r, nil
}

// mergeTerms adds up the powers of repeated symbols, keeping the order
// of first appearance and dropping symbols whose powers cancel.
func mergeTerms(terms []term) []term {
	var order []string
	powers := make(map[string]int)
	for _, t := range terms {
		if _, ok := powers[t.symbol]; !ok {
			order = append(order, t.symbol)
		}
		powers[t.symbol] += t.power
	}
	var o []term
	for _, s := range order {
		if powers[s] != 0 {
			o = append(o, term{symbol: s, power: powers[s]})
		}
	}
	// Positive powers first.
	sort.SliceStable(o, func(i, j int) bool { return o[i].power > 0 && o[j].power < 0 })
	return o
}

func formatTerms(factor float64, terms []term) string {
	var parts []string
	if factor != 1 && factor != 0 {
		parts = append(parts, strconv.FormatFloat(factor, 'g', -1, 64))
	}
	for _, t := range terms {
		if t.power == 1 {
			parts = append(parts, t.symbol)
		} else {
			parts = append(parts, fmt.Sprintf("%s%d", t.symbol, t.power))
		}
	}
	if len(parts) == 0 {
		return "1"
	}
	return strings.Join(parts, " ")
}

// Converter returns a function that converts values in unit u to unit o.
func (u Unit) Converter(o Unit) (func(float64) float64, error) {
	if !u.IsConvertible(o) {
		return nil, fmt.Errorf("units: cannot convert from '%s' to '%s'", u, o)
	}
	if u.kind == referenceKind {
		delta, err := secondsBetween(u.calendar, u.epoch, o.epoch)
		if err != nil {
			return nil, err
		}
		s1, s2 := u.si.Value(), o.si.Value()
		return func(v float64) float64 { return (v*s1 + delta) / s2 }, nil
	}
	s1, o1 := u.si.Value(), u.offset
	s2, o2 := o.si.Value(), o.offset
	if s1 == s2 && o1 == o2 {
		return func(v float64) float64 { return v }, nil
	}
	return func(v float64) float64 { return (v*s1 + o1 - o2) / s2 }, nil
}

// Convert converts vals in place from unit u to unit o.
func (u Unit) Convert(vals []float64, o Unit) error {
	f, err := u.Converter(o)
	if err != nil {
		return err
	}
	for i, v := range vals {
		vals[i] = f(v)
	}
	return nil
}

// Num2Date converts a value in the time reference unit u to a date.
func (u Unit) Num2Date(v float64) (DateTime, error) {
	if u.kind != referenceKind {
		return DateTime{}, fmt.Errorf("units: '%s' is not a time reference unit", u)
	}
	return addSeconds(u.calendar, u.epoch, v*u.si.Value())
}

// Date2Num converts a date to a value in the time reference unit u.
func (u Unit) Date2Num(d DateTime) (float64, error) {
	if u.kind != referenceKind {
		return 0, fmt.Errorf("units: '%s' is not a time reference unit", u)
	}
	s, err := secondsBetween(u.calendar, d, u.epoch)
	if err != nil {
		return 0, err
	}
	return s / u.si.Value(), nil
}

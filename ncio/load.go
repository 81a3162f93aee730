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

package ncio

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/ctessum/sparse"
	"github.com/spatialmodel/cmorfix/cube"
	"github.com/spatialmodel/cmorfix/units"
)

// Attributes that are represented by cube fields rather than kept in
// the attribute maps.
var special = map[string]bool{
	"standard_name": true,
	"long_name":     true,
	"units":         true,
	"calendar":      true,
	"bounds":        true,
	"coordinates":   true,
	"cell_methods":  true,
	"formula_terms": true,
	"_FillValue":    true,
	"missing_value": true,
	"scale_factor":  true,
	"add_offset":    true,
}

// Load reads the data variables of the NetCDF file at path as cubes,
// in file order. Coordinate variables, bounds variables and variables
// named by "coordinates" or "formula_terms" attributes become
// coordinates of the cubes that reference them. Hybrid vertical
// coordinates with formula terms get aux factories.
func Load(path string) (cube.CubeList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ncio: %w", err)
	}
	defer f.Close()
	nf, err := openCDF(f)
	if err != nil {
		return nil, fmt.Errorf("ncio: reading %s: %w", path, err)
	}
	l := newLoader(nf)
	var cubes cube.CubeList
	for _, v := range nf.ds.Vars {
		if l.notData[v.Name] {
			continue
		}
		c, err := l.cube(v)
		if err != nil {
			return nil, fmt.Errorf("ncio: loading %s from %s: %w", v.Name, path, err)
		}
		cubes = append(cubes, c)
	}
	return cubes, nil
}

type loader struct {
	f         *file
	coordVars map[string]bool // one-dimensional variables named after their dimension
	notData   map[string]bool
	cache     map[string]*cube.Coord
}

func newLoader(f *file) *loader {
	l := &loader{
		f:         f,
		coordVars: make(map[string]bool),
		notData:   make(map[string]bool),
		cache:     make(map[string]*cube.Coord),
	}
	for _, v := range f.ds.Vars {
		if len(v.Dims) == 1 && v.Dims[0] == v.Name && !l.isChar(v.Name) {
			l.coordVars[v.Name] = true
			l.notData[v.Name] = true
		}
		if b := v.Attributes.GetString("bounds"); b != "" {
			l.notData[b] = true
		}
		for _, n := range strings.Fields(v.Attributes.GetString("coordinates")) {
			l.notData[n] = true
		}
		for _, n := range parseFormulaTerms(v.Attributes.GetString("formula_terms")) {
			l.notData[n] = true
		}
	}
	return l
}

func (l *loader) isChar(name string) bool {
	_, ok := l.f.Header.ZeroValue(name, 0).(string)
	return ok
}

// read calls each with the values of the named variable, one record at
// a time for record variables, and returns the variable's shape.
func (l *loader) read(name string, each func(buf interface{})) ([]int, error) {
	h := l.f.Header
	lengths := h.Lengths(name)
	if lengths == nil {
		return nil, fmt.Errorf("no variable %s", name)
	}
	shape := append([]int{}, lengths...)
	if !h.IsRecordVariable(name) {
		n := prod(shape)
		if n == 0 {
			return shape, nil
		}
		r := l.f.Reader(name, nil, nil)
		buf := r.Zero(n)
		if _, err := r.Read(buf); err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		each(buf)
		return shape, nil
	}
	shape[0] = l.f.ds.NumRecs
	n := prod(shape[1:])
	for rec := 0; rec < shape[0] && n > 0; rec++ {
		begin, end := recordRange(len(shape), rec)
		r := l.f.Reader(name, begin, end)
		buf := r.Zero(n)
		if _, err := r.Read(buf); err != nil {
			return nil, fmt.Errorf("reading record %d of %s: %w", rec, name, err)
		}
		each(buf)
	}
	return shape, nil
}

func (l *loader) readFloats(name string) ([]float64, []int, error) {
	var o []float64
	shape, err := l.read(name, func(buf interface{}) { o = append(o, numbers(buf)...) })
	return o, shape, err
}

// readStrings reads a CHAR variable whose last dimension is the string
// length.
func (l *loader) readStrings(name string) ([]string, error) {
	var b []byte
	shape, err := l.read(name, func(buf interface{}) { b = append(b, buf.([]uint8)...) })
	if err != nil {
		return nil, err
	}
	if len(shape) == 0 {
		return []string{trimChars(b)}, nil
	}
	width := shape[len(shape)-1]
	if width == 0 {
		return make([]string, prod(shape[:len(shape)-1])), nil
	}
	var o []string
	for i := 0; i+width <= len(b); i += width {
		o = append(o, trimChars(b[i:i+width]))
	}
	return o, nil
}

func trimChars(b []byte) string {
	return strings.TrimRight(string(b), "\x00 ")
}

func parseUnits(a Attributes) units.Unit {
	s := a.GetString("units")
	if s == "" {
		return units.Unknown("")
	}
	u, err := units.ParseCalendar(s, a.GetString("calendar"))
	if err != nil {
		return units.Unknown(s)
	}
	return u
}

func otherAttributes(a Attributes) map[string]interface{} {
	o := make(map[string]interface{})
	for _, at := range a {
		if !special[at.Name] {
			o[at.Name] = at.Value
		}
	}
	return o
}

// coord returns a new coordinate read from the named variable.
func (l *loader) coord(name string) (*cube.Coord, error) {
	if co, ok := l.cache[name]; ok {
		return co.Copy(), nil
	}
	v := l.f.ds.Var(name)
	if v == nil {
		return nil, fmt.Errorf("no variable %s", name)
	}
	var co *cube.Coord
	if l.isChar(name) {
		s, err := l.readStrings(name)
		if err != nil {
			return nil, err
		}
		co = cube.NewStringCoord(s...)
	} else {
		vals, shape, err := l.readFloats(name)
		if err != nil {
			return nil, err
		}
		if len(shape) == 0 {
			shape = []int{1}
		}
		co = &cube.Coord{Points: sparse.ZerosDense(shape...), Units: parseUnits(v.Attributes)}
		copy(co.Points.Elements, vals)
		if b := v.Attributes.GetString("bounds"); b != "" && l.f.ds.Var(b) != nil {
			bv, bshape, err := l.readFloats(b)
			if err != nil {
				return nil, err
			}
			if len(bshape) > 0 {
				if err := co.SetBounds(bv, bshape[len(bshape)-1]); err != nil {
					return nil, err
				}
			}
		}
	}
	co.StandardName = v.Attributes.GetString("standard_name")
	co.LongName = v.Attributes.GetString("long_name")
	co.VarName = name
	co.Attributes = otherAttributes(v.Attributes)
	l.cache[name] = co
	return co.Copy(), nil
}

// coordDims maps the dimensions of variable name onto the dimensions
// of a data variable, leaving out the string length dimension of CHAR
// variables. ok is false when a dimension is not spanned by the data.
func (l *loader) coordDims(name string, dataDims []string) (dims []int, ok bool) {
	v := l.f.ds.Var(name)
	if v == nil {
		return nil, false
	}
	vd := v.Dims
	if l.isChar(name) && len(vd) > 0 {
		vd = vd[:len(vd)-1]
	}
	for _, d := range vd {
		i := indexOf(dataDims, d)
		if i < 0 {
			return nil, false
		}
		dims = append(dims, i)
	}
	return dims, true
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

func dataType(zero interface{}, scale interface{}) cube.DataType {
	if scale != nil {
		if _, ok := scale.([]float32); ok {
			return cube.Float32
		}
		return cube.Float64
	}
	switch zero.(type) {
	case []float32:
		return cube.Float32
	case []int32:
		return cube.Int32
	case []int16:
		return cube.Int16
	case []uint8:
		return cube.Int8
	}
	return cube.Float64
}

func (l *loader) cube(v *Var) (*cube.Cube, error) {
	if l.isChar(v.Name) {
		return nil, fmt.Errorf("character data variables are not supported")
	}
	vals, shape, err := l.readFloats(v.Name)
	if err != nil {
		return nil, err
	}
	a := v.Attributes
	for _, fv := range []string{"_FillValue", "missing_value"} {
		fill, ok := number(a, fv)
		if !ok {
			continue
		}
		for i, x := range vals {
			if x == fill || (math.IsNaN(fill) && math.IsNaN(x)) {
				vals[i] = math.NaN()
			}
		}
	}
	scaleAttr, _ := a.Get("scale_factor")
	if s, ok := number(a, "scale_factor"); ok {
		for i := range vals {
			vals[i] *= s
		}
	}
	if o, ok := number(a, "add_offset"); ok {
		for i := range vals {
			vals[i] += o
		}
	}

	data := sparse.ZerosDense(shape...)
	copy(data.Elements, vals)
	c := cube.New(data)
	c.VarName = v.Name
	c.StandardName = a.GetString("standard_name")
	c.LongName = a.GetString("long_name")
	c.Units = parseUnits(a)
	c.DataType = dataType(l.f.Header.ZeroValue(v.Name, 0), scaleAttr)
	c.CellMethods = parseCellMethods(a.GetString("cell_methods"))
	c.Attributes = otherAttributes(a)

	for i, d := range v.Dims {
		if !l.coordVars[d] || d == v.Name {
			continue
		}
		co, err := l.coord(d)
		if err != nil {
			return nil, err
		}
		if err := c.AddDimCoord(co, i); err != nil {
			return nil, err
		}
	}
	for _, n := range strings.Fields(a.GetString("coordinates")) {
		if err := l.addAux(c, n, v.Dims); err != nil {
			return nil, err
		}
	}
	for _, co := range c.StoredCoords() {
		if err := l.addFactory(c, co, v.Dims); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// addAux adds the named variable as an auxiliary coordinate of c unless
// c already has it or it spans dimensions c does not have.
func (l *loader) addAux(c *cube.Cube, name string, dataDims []string) error {
	if c.HasCoord(cube.VarName(name)) {
		return nil
	}
	dims, ok := l.coordDims(name, dataDims)
	if !ok {
		return nil
	}
	co, err := l.coord(name)
	if err != nil {
		return err
	}
	return c.AddAuxCoord(co, dims...)
}

// addFactory adds the aux factory described by the formula_terms
// attribute of co.
func (l *loader) addFactory(c *cube.Cube, co *cube.Coord, dataDims []string) error {
	v := l.f.ds.Var(co.VarName)
	if v == nil {
		return nil
	}
	terms := parseFormulaTerms(v.Attributes.GetString("formula_terms"))
	if len(terms) == 0 {
		return nil
	}
	for _, n := range terms {
		if _, ok := l.coordDims(n, dataDims); !ok {
			return nil
		}
	}
	names := make([]string, 0, len(terms))
	for t := range terms {
		names = append(names, t)
	}
	sort.Strings(names)
	byTerm := make(map[string]*cube.Coord)
	for _, t := range names {
		n := terms[t]
		if err := l.addAux(c, n, dataDims); err != nil {
			return err
		}
		tc, err := c.Coord(cube.VarName(n))
		if err != nil {
			return err
		}
		byTerm[t] = tc
	}
	var f cube.AuxFactory
	switch co.StandardName {
	case "atmosphere_hybrid_sigma_pressure_coordinate":
		if ap, ok := byTerm["ap"]; ok {
			f = cube.NewHybridPressureFactory(ap, byTerm["b"], byTerm["ps"], nil)
		} else if a, ok := byTerm["a"]; ok {
			f = cube.NewHybridPressureFactory(a, byTerm["b"], byTerm["ps"], byTerm["p0"])
		}
	case "atmosphere_hybrid_height_coordinate":
		if a, ok := byTerm["a"]; ok {
			f = cube.NewHybridHeightFactory(a, byTerm["b"], byTerm["orog"])
		}
	}
	if f == nil {
		return nil
	}
	return c.AddAuxFactory(f)
}

// parseFormulaTerms parses a CF formula_terms attribute such as
// "ap: ap b: b ps: ps" into a map from term to variable name.
func parseFormulaTerms(s string) map[string]string {
	fields := strings.Fields(s)
	o := make(map[string]string)
	for i := 0; i+1 < len(fields); i += 2 {
		if !strings.HasSuffix(fields[i], ":") {
			return nil
		}
		o[strings.TrimSuffix(fields[i], ":")] = fields[i+1]
	}
	return o
}

// parseCellMethods parses a CF cell_methods attribute such as
// "area: mean time: maximum (interval: 1 hour)".
func parseCellMethods(s string) []cube.CellMethod {
	var (
		o     []cube.CellMethod
		names []string
	)
	fields := strings.Fields(s)
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		switch {
		case strings.HasPrefix(f, "("):
			j := i
			for j < len(fields)-1 && !strings.HasSuffix(fields[j], ")") {
				j++
			}
			text := strings.TrimSuffix(strings.TrimPrefix(strings.Join(fields[i:j+1], " "), "("), ")")
			i = j
			if len(o) == 0 {
				continue
			}
			m := &o[len(o)-1]
			if strings.HasPrefix(text, "interval:") {
				m.Intervals = append(m.Intervals, strings.TrimSpace(strings.TrimPrefix(text, "interval:")))
			} else {
				m.Comments = append(m.Comments, strings.TrimSpace(strings.TrimPrefix(text, "comment:")))
			}
		case strings.HasSuffix(f, ":"):
			names = append(names, strings.TrimSuffix(f, ":"))
		default:
			o = append(o, cube.CellMethod{Method: f, Coords: names})
			names = nil
		}
	}
	return o
}

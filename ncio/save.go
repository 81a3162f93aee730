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
	"sort"
	"strings"

	"github.com/ctessum/cdf"
	"github.com/spatialmodel/cmorfix/cube"
	"github.com/spatialmodel/cmorfix/units"
	"gonum.org/v1/gonum/floats"
)

// Conventions is the value of the global "Conventions" attribute of
// saved files.
const Conventions = "CF-1.7"

// Save writes cubes to a NetCDF classic file at path, replacing any
// existing file. Coordinates shared by several cubes are written once.
// Masked (NaN) values are written as the default fill value of the
// cube's data type.
func Save(cubes cube.CubeList, path string) error {
	s := &saver{dimLen: make(map[string]int), byName: make(map[string]*saveVar)}
	for _, c := range cubes {
		if err := s.addCube(c); err != nil {
			return fmt.Errorf("ncio: saving %s: %w", c.Name(), err)
		}
	}
	vars := make([]headerVar, len(s.vars))
	for i, v := range s.vars {
		vars[i] = headerVar{name: v.name, dims: v.dims, zero: v.zero, attrs: v.attrs}
	}
	global := Attributes{{Name: "Conventions", Value: Conventions}}
	h, err := defineHeader(s.dims, global, vars)
	if err != nil {
		return fmt.Errorf("ncio: saving %s: %w", path, err)
	}
	return writeFile(path, h, func(f *cdf.File) error {
		for _, v := range s.vars {
			if err := writeValues(f, v.name, nil, nil, v.data); err != nil {
				return fmt.Errorf("ncio: writing variable %s: %w", v.name, err)
			}
		}
		return nil
	})
}

type saver struct {
	dims   []Dim
	dimLen map[string]int
	vars   []*saveVar
	byName map[string]*saveVar
}

type saveVar struct {
	name  string
	dims  []string
	zero  interface{}
	data  interface{}
	attrs Attributes

	// coord and cdims are set for coordinate variables, cdims being
	// the dimensions spanned by the coordinate points.
	coord *cube.Coord
	cdims []string
}

// addDim adds a dimension, or returns false if a dimension of that name
// but another length exists.
func (s *saver) addDim(name string, n int) bool {
	if l, ok := s.dimLen[name]; ok {
		return l == n
	}
	s.dimLen[name] = n
	s.dims = append(s.dims, Dim{Name: name, Len: n})
	return true
}

func (s *saver) addVar(v *saveVar) {
	s.vars = append(s.vars, v)
	s.byName[v.name] = v
}

// unique returns name, or name with a numeric suffix if name is taken
// by a variable or dimension.
func (s *saver) unique(name string) string {
	o := name
	for i := 1; ; i++ {
		_, v := s.byName[o]
		_, d := s.dimLen[o]
		if !v && !d {
			return o
		}
		o = fmt.Sprintf("%s_%d", name, i)
	}
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, name)
}

func coordVarName(co *cube.Coord) string {
	if co.VarName != "" {
		return co.VarName
	}
	return sanitize(co.Name())
}

func sameCoord(a, b *cube.Coord) bool {
	if a.Name() != b.Name() || a.Units.String() != b.Units.String() || a.IsString() != b.IsString() {
		return false
	}
	if a.IsString() {
		return strings.Join(a.StringPoints, "\x00") == strings.Join(b.StringPoints, "\x00")
	}
	if !intsEqual(a.Shape(), b.Shape()) || !floats.Equal(a.Points.Elements, b.Points.Elements) || a.HasBounds() != b.HasBounds() {
		return false
	}
	return !a.HasBounds() || floats.Equal(a.Bounds.Elements, b.Bounds.Elements)
}

func intsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (s *saver) addCube(c *cube.Cube) error {
	names := make(map[*cube.Coord]string)
	dimNames := make([]string, c.NDim())
	for i, n := range c.Shape() {
		if dc := c.DimCoord(i); dc != nil {
			name, err := s.addCoord(dc, nil, true)
			if err != nil {
				return err
			}
			names[dc] = name
			dimNames[i] = name
			continue
		}
		name := fmt.Sprintf("dim%d", i)
		for j := 1; !s.addDim(name, n); j++ {
			name = fmt.Sprintf("dim%d_%d", i, j)
		}
		dimNames[i] = name
	}

	var coordinates []string
	for _, co := range c.StoredCoords() {
		if c.IsDimCoord(co) {
			continue
		}
		dims, err := c.CoordDims(co)
		if err != nil {
			return err
		}
		vd := make([]string, len(dims))
		for i, d := range dims {
			vd[i] = dimNames[d]
		}
		name, err := s.addCoord(co, vd, false)
		if err != nil {
			return err
		}
		names[co] = name
		coordinates = append(coordinates, name)
	}
	for _, f := range c.AuxFactories() {
		s.addFormulaTerms(c, f, names)
	}

	dv := &saveVar{name: s.unique(dataVarName(c)), dims: dimNames}
	var fill interface{}
	dv.zero, dv.data, fill = typedValues(c.Data.Elements, c.DataType)
	a := &dv.attrs
	setNames(a, c.StandardName, c.LongName)
	setUnits(a, c.Units, false)
	if len(c.CellMethods) > 0 {
		var cm []string
		for _, m := range c.CellMethods {
			cm = append(cm, m.String())
		}
		a.Set("cell_methods", strings.Join(cm, " "))
	}
	if len(coordinates) > 0 {
		a.Set("coordinates", strings.Join(coordinates, " "))
	}
	if hasNaN(c.Data.Elements) {
		a.Set("_FillValue", fill)
	}
	setOther(a, c.Attributes)
	s.addVar(dv)
	return nil
}

func dataVarName(c *cube.Cube) string {
	if c.VarName != "" {
		return c.VarName
	}
	return sanitize(c.Name())
}

// addCoord adds co as a variable spanning dims, along with its bounds,
// and returns the variable name. Dimension coordinates define a
// dimension of their own name. A coordinate equal to one already saved
// reuses its variable.
func (s *saver) addCoord(co *cube.Coord, dims []string, dim bool) (string, error) {
	base := coordVarName(co)
	name := base
	for i := 1; ; i++ {
		v, ok := s.byName[name]
		if !ok {
			break
		}
		if v.coord != nil && sameCoord(v.coord, co) && (dim || stringsEqual(v.cdims, dims)) {
			return name, nil
		}
		name = fmt.Sprintf("%s_%d", base, i)
	}
	if dim {
		name = s.unique(name)
		s.addDim(name, co.Len())
		dims = []string{name}
	}
	v := &saveVar{name: name, dims: dims, coord: co, cdims: dims}
	if co.IsString() {
		width := 1
		for _, p := range co.StringPoints {
			if len(p) > width {
				width = len(p)
			}
		}
		sd := fmt.Sprintf("string%d", width)
		s.addDim(sd, width)
		v.dims = append(append([]string{}, dims...), sd)
		b := make([]byte, width*len(co.StringPoints))
		for i, p := range co.StringPoints {
			copy(b[i*width:], p)
		}
		v.zero, v.data = "", b
	} else {
		v.zero, v.data, _ = typedValues(co.Points.Elements, cube.Float64)
	}
	setNames(&v.attrs, co.StandardName, co.LongName)
	setUnits(&v.attrs, co.Units, co.IsString())
	if co.HasBounds() {
		nb := co.NBounds()
		nd := "bnds"
		if nb != 2 {
			nd = fmt.Sprintf("nv%d", nb)
		}
		if !s.addDim(nd, nb) {
			return "", fmt.Errorf("dimension %s is not of length %d", nd, nb)
		}
		bv := &saveVar{name: s.unique(name + "_bnds"), dims: append(append([]string{}, v.dims...), nd)}
		bv.zero, bv.data, _ = typedValues(co.Bounds.Elements, cube.Float64)
		v.attrs.Set("bounds", bv.name)
		s.addVar(v)
		s.addVar(bv)
	} else {
		s.addVar(v)
	}
	setOther(&v.attrs, co.Attributes)
	return name, nil
}

func stringsEqual(a, b []string) bool {
	return strings.Join(a, " ") == strings.Join(b, " ")
}

type formulaTerm struct {
	name  string
	coord *cube.Coord
}

// addFormulaTerms writes the formula_terms attribute of the vertical
// coordinate of factory f, and of its bounds when the terms have bounds.
func (s *saver) addFormulaTerms(c *cube.Cube, f cube.AuxFactory, names map[*cube.Coord]string) {
	var (
		terms    []formulaTerm
		delta    *cube.Coord
		stdName  string
		boundsOK bool
	)
	switch t := f.(type) {
	case *cube.HybridPressureFactory:
		delta, stdName = t.Delta, "atmosphere_hybrid_sigma_pressure_coordinate"
		if t.ReferencePressure != nil {
			terms = []formulaTerm{{"a", t.Delta}, {"b", t.Sigma}, {"p0", t.ReferencePressure}, {"ps", t.SurfaceAirPressure}}
		} else {
			terms = []formulaTerm{{"ap", t.Delta}, {"b", t.Sigma}, {"ps", t.SurfaceAirPressure}}
		}
		boundsOK = t.Delta.HasBounds() && t.Sigma != nil && t.Sigma.HasBounds()
	case *cube.HybridHeightFactory:
		delta, stdName = t.Delta, "atmosphere_hybrid_height_coordinate"
		terms = []formulaTerm{{"a", t.Delta}, {"b", t.Sigma}, {"orog", t.Orography}}
		boundsOK = t.Delta.HasBounds() && t.Sigma != nil && t.Sigma.HasBounds()
	default:
		return
	}
	target := delta
	if dims, err := c.CoordDims(delta); err == nil && len(dims) == 1 {
		if dc := c.DimCoord(dims[0]); dc != nil {
			target = dc
		}
	}
	tv := s.byName[names[target]]
	if tv == nil {
		return
	}
	var ft, bt []string
	for _, t := range terms {
		if t.coord == nil || names[t.coord] == "" {
			continue
		}
		n := names[t.coord]
		ft = append(ft, t.name+": "+n)
		if b := s.byName[n].attrs.GetString("bounds"); b != "" && (t.name == "a" || t.name == "ap" || t.name == "b") {
			n = b
		}
		bt = append(bt, t.name+": "+n)
	}
	tv.attrs.Set("formula_terms", strings.Join(ft, " "))
	if tv.attrs.GetString("standard_name") == "" {
		tv.attrs = append(Attributes{{Name: "standard_name", Value: stdName}}, tv.attrs...)
	}
	if b := tv.attrs.GetString("bounds"); b != "" && boundsOK {
		s.byName[b].attrs.Set("formula_terms", strings.Join(bt, " "))
	}
}

func setNames(a *Attributes, standard, long string) {
	if standard != "" {
		a.Set("standard_name", standard)
	}
	if long != "" {
		a.Set("long_name", long)
	}
}

func setUnits(a *Attributes, u units.Unit, isString bool) {
	if u.IsUnknown() && u.String() == "unknown" || isString && u.IsNoUnit() {
		return
	}
	a.Set("units", u.String())
	if u.IsTimeReference() && u.Calendar() != "" {
		a.Set("calendar", u.Calendar())
	}
}

// setOther adds the attributes in m that have a NetCDF representation,
// sorted by name.
func setOther(a *Attributes, m map[string]interface{}) {
	keys := make([]string, 0, len(m))
	for k := range m {
		if !special[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := attributeValue(m[k]); v != nil {
			a.Set(k, v)
		}
	}
}

func hasNaN(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) {
			return true
		}
	}
	return false
}

// typedValues converts v to the slice type of t, replacing NaN by the
// type's default fill value, which is also returned as an attribute
// value.
func typedValues(v []float64, t cube.DataType) (zero, data, fill interface{}) {
	switch t {
	case cube.Float32:
		const f = float32(9.9692099683868690e+36)
		o := make([]float32, len(v))
		for i, x := range v {
			if math.IsNaN(x) {
				o[i] = f
			} else {
				o[i] = float32(x)
			}
		}
		return []float32{}, o, []float32{f}
	case cube.Int32:
		const f = int32(-2147483647)
		o := make([]int32, len(v))
		for i, x := range v {
			if math.IsNaN(x) {
				o[i] = f
			} else {
				o[i] = int32(math.Round(x))
			}
		}
		return []int32{}, o, []int32{f}
	case cube.Int16:
		const f = int16(-32767)
		o := make([]int16, len(v))
		for i, x := range v {
			if math.IsNaN(x) {
				o[i] = f
			} else {
				o[i] = int16(math.Round(x))
			}
		}
		return []int16{}, o, []int16{f}
	case cube.Int8:
		var f int8 = -127
		o := make([]uint8, len(v))
		for i, x := range v {
			if math.IsNaN(x) {
				o[i] = uint8(f)
			} else {
				o[i] = uint8(int8(math.Round(x)))
			}
		}
		return []uint8{}, o, []uint8{uint8(f)}
	}
	const f = 9.9692099683868690e+36
	o := make([]float64, len(v))
	for i, x := range v {
		if math.IsNaN(x) {
			o[i] = f
		} else {
			o[i] = x
		}
	}
	return []float64{}, o, []float64{f}
}

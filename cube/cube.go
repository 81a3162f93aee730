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

// Package cube holds an in-memory representation of gridded climate data:
// a data array described by named coordinates, units and attributes,
// following the CF conventions.
package cube

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/ctessum/sparse"
	"github.com/spatialmodel/cmorfix/units"
)

// DataType is the storage type of cube data.
type DataType int

// Supported storage types.
const (
	Float64 DataType = iota
	Float32
	Int32
	Int16
	Int8
)

func (t DataType) String() string {
	switch t {
	case Float64:
		return "float64"
	case Float32:
		return "float32"
	case Int32:
		return "int32"
	case Int16:
		return "int16"
	case Int8:
		return "int8"
	}
	return fmt.Sprintf("DataType(%d)", int(t))
}

// CellMethod describes how the data values represent a cell, e.g.
// "time: mean".
type CellMethod struct {
	Method    string
	Coords    []string
	Intervals []string
	Comments  []string
}

func (m CellMethod) String() string {
	s := strings.Join(m.Coords, ": ") + ": " + m.Method
	var extra []string
	for _, i := range m.Intervals {
		extra = append(extra, "interval: "+i)
	}
	for _, c := range m.Comments {
		extra = append(extra, "comment: "+c)
	}
	if len(extra) > 0 {
		s += " (" + strings.Join(extra, " ") + ")"
	}
	return s
}

type coordEntry struct {
	coord *Coord
	dims  []int
	dim   bool
}

// Cube is a data array together with the coordinates that describe it.
// Masked values are represented by NaN.
type Cube struct {
	StandardName string
	LongName     string
	VarName      string
	Units        units.Unit
	Attributes   map[string]interface{}
	CellMethods  []CellMethod
	DataType     DataType

	Data *sparse.DenseArray

	coords    []*coordEntry
	factories []AuxFactory
}

// New returns a cube holding data.
func New(data *sparse.DenseArray) *Cube {
	return &Cube{
		Data:       data,
		Units:      units.Unknown(""),
		Attributes: make(map[string]interface{}),
	}
}

// Name returns the standard name, long name or variable name of the
// cube, whichever is set first, or "unknown".
func (c *Cube) Name() string {
	switch {
	case c.StandardName != "":
		return c.StandardName
	case c.LongName != "":
		return c.LongName
	case c.VarName != "":
		return c.VarName
	}
	return "unknown"
}

// Shape returns the shape of the cube data.
func (c *Cube) Shape() []int { return append([]int{}, c.Data.Shape...) }

// NDim returns the number of data dimensions.
func (c *Cube) NDim() int { return len(c.Data.Shape) }

func (c *Cube) entry(co *Coord) *coordEntry {
	for _, e := range c.coords {
		if e.coord == co {
			return e
		}
	}
	return nil
}

func (c *Cube) checkCoordShape(co *Coord, dims []int) error {
	shape := co.Shape()
	if len(dims) == 0 {
		if co.Len() != 1 {
			return fmt.Errorf("cube: scalar coordinate %s has %d points", co.Name(), co.Len())
		}
		return nil
	}
	if len(shape) != len(dims) {
		return fmt.Errorf("cube: coordinate %s has %d dimensions but is mapped to %d",
			co.Name(), len(shape), len(dims))
	}
	for i, d := range dims {
		if d < 0 || d >= c.NDim() {
			return fmt.Errorf("cube: dimension %d out of range for cube %s", d, c.Name())
		}
		if shape[i] != c.Data.Shape[d] {
			return fmt.Errorf("cube: coordinate %s length %d does not match dimension %d of length %d",
				co.Name(), shape[i], d, c.Data.Shape[d])
		}
	}
	return nil
}

// AddDimCoord adds a one-dimensional dimension coordinate describing
// data dimension dim.
func (c *Cube) AddDimCoord(co *Coord, dim int) error {
	if c.entry(co) != nil {
		return fmt.Errorf("cube: coordinate %s already present in %s", co.Name(), c.Name())
	}
	if co.IsString() {
		return fmt.Errorf("cube: string coordinate %s cannot be a dimension coordinate", co.Name())
	}
	if err := c.checkCoordShape(co, []int{dim}); err != nil {
		return err
	}
	if d := c.DimCoord(dim); d != nil {
		return fmt.Errorf("cube: dimension %d already described by %s", dim, d.Name())
	}
	c.coords = append(c.coords, &coordEntry{coord: co, dims: []int{dim}, dim: true})
	return nil
}

// AddAuxCoord adds an auxiliary coordinate spanning dims. Scalar
// coordinates span no dimensions.
func (c *Cube) AddAuxCoord(co *Coord, dims ...int) error {
	if c.entry(co) != nil {
		return fmt.Errorf("cube: coordinate %s already present in %s", co.Name(), c.Name())
	}
	if err := c.checkCoordShape(co, dims); err != nil {
		return err
	}
	c.coords = append(c.coords, &coordEntry{coord: co, dims: append([]int{}, dims...)})
	return nil
}

// RemoveCoord removes co from the cube, along with any aux factory that
// depends on it. Removing a derived coordinate removes its factory.
func (c *Cube) RemoveCoord(co *Coord) error {
	for i, e := range c.coords {
		if e.coord == co {
			c.coords = append(c.coords[:i], c.coords[i+1:]...)
			var keep []AuxFactory
			for _, f := range c.factories {
				if !dependsOn(f, co) {
					keep = append(keep, f)
				}
			}
			c.factories = keep
			return nil
		}
	}
	for i, f := range c.factories {
		if f.StandardName() == co.StandardName {
			c.factories = append(c.factories[:i], c.factories[i+1:]...)
			return nil
		}
	}
	return &CoordinateNotFoundError{Cube: c.Name(), Query: Query{Name: co.Name()}}
}

func dependsOn(f AuxFactory, co *Coord) bool {
	for _, d := range f.Dependencies() {
		if d == co {
			return true
		}
	}
	return false
}

// DimCoord returns the dimension coordinate of dimension dim, or nil.
func (c *Cube) DimCoord(dim int) *Coord {
	for _, e := range c.coords {
		if e.dim && e.dims[0] == dim {
			return e.coord
		}
	}
	return nil
}

// CoordDims returns the data dimensions spanned by co. Derived
// coordinates are matched to their factory by standard name.
func (c *Cube) CoordDims(co *Coord) ([]int, error) {
	if e := c.entry(co); e != nil {
		return append([]int{}, e.dims...), nil
	}
	for _, f := range c.factories {
		if f.StandardName() == co.StandardName {
			_, dims, err := f.Derive(c)
			return dims, err
		}
	}
	return nil, &CoordinateNotFoundError{Cube: c.Name(), Query: Query{Name: co.Name()}}
}

// IsDimCoord returns whether co is a dimension coordinate of c.
func (c *Cube) IsDimCoord(co *Coord) bool {
	e := c.entry(co)
	return e != nil && e.dim
}

// AuxFactories returns the aux factories of the cube.
func (c *Cube) AuxFactories() []AuxFactory { return append([]AuxFactory{}, c.factories...) }

// AddAuxFactory adds a derived coordinate factory. All of its
// dependencies must be coordinates of the cube.
func (c *Cube) AddAuxFactory(f AuxFactory) error {
	for term, d := range f.Dependencies() {
		if d == nil {
			continue
		}
		if c.entry(d) == nil {
			return fmt.Errorf("cube: aux factory %s: %s coordinate %s is not a coordinate of %s",
				f.StandardName(), term, d.Name(), c.Name())
		}
	}
	c.factories = append(c.factories, f)
	return nil
}

// RemoveAuxFactory removes f from the cube.
func (c *Cube) RemoveAuxFactory(f AuxFactory) {
	for i, ff := range c.factories {
		if ff == f {
			c.factories = append(c.factories[:i], c.factories[i+1:]...)
			return
		}
	}
}

// Coords returns the coordinates matching q, dimension coordinates
// first, followed by auxiliary and derived coordinates.
func (c *Cube) Coords(q Query) []*Coord {
	o := c.stored(q)
	if q.DimOnly {
		return o
	}
	for _, f := range c.factories {
		d, dims, err := f.Derive(c)
		if err != nil || !q.matches(d) {
			continue
		}
		if q.Dim != nil && !containsInt(dims, *q.Dim) {
			continue
		}
		o = append(o, d)
	}
	return o
}

// StoredCoords returns the dimension and auxiliary coordinates of c.
// Coordinates derived by aux factories are left out.
func (c *Cube) StoredCoords() []*Coord { return c.stored(Query{}) }

func (c *Cube) stored(q Query) []*Coord {
	var dim, aux []*Coord
	for _, e := range c.coords {
		if !q.matches(e.coord) || (q.DimOnly && !e.dim) {
			continue
		}
		if q.Dim != nil && !containsInt(e.dims, *q.Dim) {
			continue
		}
		if e.dim {
			dim = append(dim, e.coord)
		} else {
			aux = append(aux, e.coord)
		}
	}
	sort.SliceStable(dim, func(i, j int) bool {
		return c.entry(dim[i]).dims[0] < c.entry(dim[j]).dims[0]
	})
	return append(dim, aux...)
}

// Coord returns the single coordinate matching q. It returns a
// *CoordinateNotFoundError or *CoordinateMultipleError when there is
// not exactly one match.
func (c *Cube) Coord(q Query) (*Coord, error) {
	coords := c.Coords(q)
	switch len(coords) {
	case 0:
		return nil, &CoordinateNotFoundError{Cube: c.Name(), Query: q}
	case 1:
		return coords[0], nil
	}
	return nil, &CoordinateMultipleError{Cube: c.Name(), Query: q, N: len(coords)}
}

// HasCoord returns whether any coordinate matches q.
func (c *Cube) HasCoord(q Query) bool { return len(c.Coords(q)) > 0 }

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// ConvertUnits converts the data of c to u.
func (c *Cube) ConvertUnits(u units.Unit) error {
	f, err := c.Units.Converter(u)
	if err != nil {
		return fmt.Errorf("cube: %s: %w", c.Name(), err)
	}
	for i, v := range c.Data.Elements {
		c.Data.Elements[i] = f(v)
	}
	c.Units = u
	return nil
}

// Copy returns a deep copy of c.
func (c *Cube) Copy() *Cube {
	o := *c
	o.Data = c.Data.Copy()
	o.Data.Shape = c.Shape()
	o.Attributes = copyAttributes(c.Attributes)
	o.CellMethods = append([]CellMethod{}, c.CellMethods...)
	m := make(map[*Coord]*Coord, len(c.coords))
	o.coords = make([]*coordEntry, len(c.coords))
	for i, e := range c.coords {
		nc := e.coord.Copy()
		m[e.coord] = nc
		o.coords[i] = &coordEntry{coord: nc, dims: append([]int{}, e.dims...), dim: e.dim}
	}
	o.factories = remapFactories(c.factories, m)
	return &o
}

func remapFactories(fs []AuxFactory, m map[*Coord]*Coord) []AuxFactory {
	var o []AuxFactory
	for _, f := range fs {
		o = append(o, f.remap(m))
	}
	return o
}

// Index returns the cube sliced at index i of dimension dim. The
// dimension is removed; coordinates that only spanned it become scalar.
func (c *Cube) Index(dim, i int) (*Cube, error) {
	return c.take(dim, []int{i}, false)
}

// Subset returns the cube restricted to the given indices of dimension dim.
func (c *Cube) Subset(dim int, idx []int) (*Cube, error) {
	return c.take(dim, idx, true)
}

// Reverse returns the cube with dimension dim in reverse order.
func (c *Cube) Reverse(dim int) (*Cube, error) {
	if dim < 0 || dim >= c.NDim() {
		return nil, fmt.Errorf("cube: dimension %d out of range for cube %s", dim, c.Name())
	}
	n := c.Data.Shape[dim]
	idx := make([]int, n)
	for j := range idx {
		idx[j] = n - 1 - j
	}
	return c.take(dim, idx, true)
}

func (c *Cube) take(dim int, idx []int, keep bool) (*Cube, error) {
	if dim < 0 || dim >= c.NDim() {
		return nil, fmt.Errorf("cube: dimension %d out of range for cube %s", dim, c.Name())
	}
	for _, i := range idx {
		if i < 0 || i >= c.Data.Shape[dim] {
			return nil, fmt.Errorf("cube: index %d out of range for dimension %d of %s", i, dim, c.Name())
		}
	}
	o := *c
	o.Data = takeAxis(c.Data, dim, idx, keep)
	o.Attributes = copyAttributes(c.Attributes)
	o.CellMethods = append([]CellMethod{}, c.CellMethods...)
	m := make(map[*Coord]*Coord, len(c.coords))
	o.coords = nil
	for _, e := range c.coords {
		ne := &coordEntry{dim: e.dim}
		p := -1
		for k, d := range e.dims {
			if d == dim {
				p = k
			}
		}
		if p < 0 {
			ne.coord = e.coord.Copy()
			for _, d := range e.dims {
				if !keep && d > dim {
					d--
				}
				ne.dims = append(ne.dims, d)
			}
		} else {
			ne.coord = e.coord.takeAxis(p, idx, keep)
			for k, d := range e.dims {
				switch {
				case k == p && !keep:
					continue
				case !keep && d > dim:
					d--
				}
				ne.dims = append(ne.dims, d)
			}
			if !keep {
				ne.dim = false
			}
		}
		m[e.coord] = ne.coord
		o.coords = append(o.coords, ne)
	}
	o.factories = remapFactories(c.factories, m)
	return &o, nil
}

// takeAxis selects idx along axis of a. Without keep, a single index
// removes the axis.
func takeAxis(a *sparse.DenseArray, axis int, idx []int, keep bool) *sparse.DenseArray {
	outer, inner := 1, 1
	for _, s := range a.Shape[:axis] {
		outer *= s
	}
	for _, s := range a.Shape[axis+1:] {
		inner *= s
	}
	n := a.Shape[axis]
	var shape []int
	shape = append(shape, a.Shape[:axis]...)
	if keep {
		shape = append(shape, len(idx))
	}
	shape = append(shape, a.Shape[axis+1:]...)
	o := sparse.ZerosDense(shape...)
	for i := 0; i < outer; i++ {
		for j, k := range idx {
			copy(o.Elements[(i*len(idx)+j)*inner:(i*len(idx)+j+1)*inner],
				a.Elements[(i*n+k)*inner:(i*n+k+1)*inner])
		}
	}
	return o
}

// takeAxis selects idx along axis of the points and bounds of co.
func (co *Coord) takeAxis(axis int, idx []int, keep bool) *Coord {
	o := co.Copy()
	if co.IsString() {
		var s []string
		for _, i := range idx {
			s = append(s, co.StringPoints[i])
		}
		o.StringPoints = s
		return o
	}
	o.Points = takeAxis(co.Points, axis, idx, keep)
	if len(o.Points.Shape) == 0 {
		o.Points.Shape = []int{1}
	}
	if co.Bounds != nil {
		o.Bounds = takeAxis(co.Bounds, axis, idx, keep)
		if len(o.Bounds.Shape) == 1 {
			o.Bounds.Shape = []int{1, o.Bounds.Shape[0]}
		}
	}
	return o
}

// Summary returns a human-readable description of the cube.
func (c *Cube) Summary() string {
	b := new(bytes.Buffer)
	fmt.Fprintf(b, "%s / (%s) %v\n", c.Name(), c.Units, c.Data.Shape)
	section := func(title string, entries []*coordEntry) {
		if len(entries) == 0 {
			return
		}
		fmt.Fprintf(b, "    %s:\n", title)
		for _, e := range entries {
			fmt.Fprintf(b, "        %s %v\n", e.coord.Name(), e.dims)
		}
	}
	var dim, aux, scalar []*coordEntry
	for _, e := range c.coords {
		switch {
		case e.dim:
			dim = append(dim, e)
		case len(e.dims) == 0:
			scalar = append(scalar, e)
		default:
			aux = append(aux, e)
		}
	}
	section("Dimension coordinates", dim)
	section("Auxiliary coordinates", aux)
	if len(c.factories) > 0 {
		fmt.Fprintf(b, "    Derived coordinates:\n")
		for _, f := range c.factories {
			fmt.Fprintf(b, "        %s\n", f.StandardName())
		}
	}
	section("Scalar coordinates", scalar)
	if len(c.CellMethods) > 0 {
		fmt.Fprintf(b, "    Cell methods:\n")
		for _, m := range c.CellMethods {
			fmt.Fprintf(b, "        %s\n", m)
		}
	}
	if len(c.Attributes) > 0 {
		fmt.Fprintf(b, "    Attributes:\n")
		var keys []string
		for k := range c.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(b, "        %s: %v\n", k, c.Attributes[k])
		}
	}
	return b.String()
}

// CubeList is an ordered collection of cubes.
type CubeList []*Cube

func (cl CubeList) String() string {
	var s []string
	for i, c := range cl {
		s = append(s, fmt.Sprintf("%d: %s / (%s) %v", i, c.Name(), c.Units, c.Data.Shape))
	}
	return strings.Join(s, "\n")
}

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

package cube

import (
	"fmt"
	"math"

	"github.com/ctessum/sparse"
	"github.com/spatialmodel/cmorfix/units"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// EarthRadius is the radius [m] used for area weights.
const EarthRadius = 6371229.0

// Aggregator reduces a set of values to one. Masked (NaN) values are
// skipped; a reduction over no valid values is masked.
type Aggregator struct {
	// Name is recorded in the cell methods of the result.
	Name   string
	reduce func(x, w []float64) float64
}

// Aggregators over valid values.
var (
	Mean = Aggregator{Name: "mean", reduce: func(x, w []float64) float64 {
		if w != nil && floats.Sum(w) == 0 {
			return math.NaN()
		}
		return stat.Mean(x, w)
	}}
	Sum = Aggregator{Name: "sum", reduce: func(x, w []float64) float64 {
		if w != nil {
			return floats.Dot(x, w)
		}
		return floats.Sum(x)
	}}
	Max = Aggregator{Name: "maximum", reduce: func(x, _ []float64) float64 { return floats.Max(x) }}
	Min = Aggregator{Name: "minimum", reduce: func(x, _ []float64) float64 { return floats.Min(x) }}
	// Product multiplies values.
	Product = Aggregator{Name: "product", reduce: func(x, _ []float64) float64 { return floats.Prod(x) }}
)

// Reduce applies the aggregator to x with optional weights w.
func (a Aggregator) Reduce(x, w []float64) float64 {
	var xv, wv []float64
	for i, v := range x {
		if math.IsNaN(v) {
			continue
		}
		if w != nil {
			if math.IsNaN(w[i]) {
				continue
			}
			wv = append(wv, w[i])
		}
		xv = append(xv, v)
	}
	if len(xv) == 0 {
		return math.NaN()
	}
	return a.reduce(xv, wv)
}

// Collapsed reduces the dimensions spanned by the named coordinates
// with agg. weights, if not nil, must have the shape of the data.
// Collapsed coordinates become scalar coordinates spanning their full
// range.
func Collapsed(c *Cube, names []string, agg Aggregator, weights *sparse.DenseArray) (*Cube, error) {
	if weights != nil && !sameShape(weights.Shape, c.Data.Shape) {
		return nil, fmt.Errorf("cube: collapse weights shape %v does not match data shape %v",
			weights.Shape, c.Data.Shape)
	}
	collapse := make(map[int]bool)
	for _, name := range names {
		co, err := c.Coord(Name(name))
		if err != nil {
			return nil, err
		}
		dims, err := c.CoordDims(co)
		if err != nil {
			return nil, err
		}
		for _, d := range dims {
			collapse[d] = true
		}
	}
	var kept, coll []int
	for d := range c.Data.Shape {
		if collapse[d] {
			coll = append(coll, d)
		} else {
			kept = append(kept, d)
		}
	}
	shape := c.Data.Shape
	keptShape := dimsShape(shape, kept)
	collShape := dimsShape(shape, coll)
	nOut, nColl := prod(keptShape), prod(collShape)
	strides := stridesOf(shape)

	data := sparse.ZerosDense(keptShape...)
	ki := make([]int, len(kept))
	ci := make([]int, len(coll))
	x := make([]float64, nColl)
	var w []float64
	if weights != nil {
		w = make([]float64, nColl)
	}
	for o := 0; o < nOut; o++ {
		unravel(o, keptShape, ki)
		base := 0
		for k, d := range kept {
			base += ki[k] * strides[d]
		}
		for j := 0; j < nColl; j++ {
			unravel(j, collShape, ci)
			idx := base
			for k, d := range coll {
				idx += ci[k] * strides[d]
			}
			x[j] = c.Data.Elements[idx]
			if w != nil {
				w[j] = weights.Elements[idx]
			}
		}
		data.Elements[o] = agg.Reduce(x, w)
	}

	out := *c
	out.Data = data
	out.Attributes = copyAttributes(c.Attributes)
	out.CellMethods = append(append([]CellMethod{}, c.CellMethods...),
		CellMethod{Method: agg.Name, Coords: append([]string{}, names...)})
	out.coords = nil
	m := make(map[*Coord]*Coord)
	newDim := make(map[int]int)
	for i, d := range kept {
		newDim[d] = i
	}
	for _, e := range c.coords {
		var inColl, inKept bool
		for _, d := range e.dims {
			if collapse[d] {
				inColl = true
			} else {
				inKept = true
			}
		}
		switch {
		case inColl && inKept:
			continue
		case inColl:
			if e.coord.IsString() {
				continue
			}
			nc := collapseCoord(e.coord)
			m[e.coord] = nc
			out.coords = append(out.coords, &coordEntry{coord: nc})
		default:
			nc := e.coord.Copy()
			ne := &coordEntry{coord: nc, dim: e.dim}
			for _, d := range e.dims {
				ne.dims = append(ne.dims, newDim[d])
			}
			m[e.coord] = nc
			out.coords = append(out.coords, ne)
		}
	}
	out.factories = nil
	for _, f := range c.factories {
		ok := true
		for _, d := range f.Dependencies() {
			if _, has := m[d]; d != nil && !has {
				ok = false
			}
		}
		if ok {
			out.factories = append(out.factories, f.remap(m))
		}
	}
	return &out, nil
}

// collapseCoord returns a scalar coordinate spanning the full range of co.
func collapseCoord(co *Coord) *Coord {
	vals := co.Points.Elements
	if co.Bounds != nil {
		vals = co.Bounds.Elements
	}
	lo, hi := floats.Min(vals), floats.Max(vals)
	nc := co.Copy()
	nc.Points = sparse.ZerosDense(1)
	nc.Points.Elements[0] = (lo + hi) / 2
	nc.Bounds = sparse.ZerosDense(1, 2)
	nc.Bounds.Elements[0], nc.Bounds.Elements[1] = lo, hi
	return nc
}

// AggregatedBy groups the data along the dimension of the named
// one-dimensional coordinate by its distinct values, in order of first
// appearance, and reduces each group with agg.
func AggregatedBy(c *Cube, name string, agg Aggregator) (*Cube, error) {
	group, err := c.Coord(Name(name))
	if err != nil {
		return nil, err
	}
	dims, err := c.CoordDims(group)
	if err != nil {
		return nil, err
	}
	if len(dims) != 1 || group.IsString() {
		return nil, fmt.Errorf("cube: can only aggregate by one-dimensional numeric coordinates, not %s", name)
	}
	dim := dims[0]
	var keys []float64
	members := make(map[float64][]int)
	for i, v := range group.Points.Elements {
		if _, ok := members[v]; !ok {
			keys = append(keys, v)
		}
		members[v] = append(members[v], i)
	}

	shape := c.Data.Shape
	outShape := append([]int{}, shape...)
	outShape[dim] = len(keys)
	outer, inner := prod(shape[:dim]), prod(shape[dim+1:])
	n := shape[dim]
	data := sparse.ZerosDense(outShape...)
	for i := 0; i < outer; i++ {
		for g, k := range keys {
			idx := members[k]
			x := make([]float64, len(idx))
			for in := 0; in < inner; in++ {
				for j, t := range idx {
					x[j] = c.Data.Elements[(i*n+t)*inner+in]
				}
				data.Elements[(i*len(keys)+g)*inner+in] = agg.Reduce(x, nil)
			}
		}
	}

	out := *c
	out.Data = data
	out.Attributes = copyAttributes(c.Attributes)
	out.CellMethods = append(append([]CellMethod{}, c.CellMethods...),
		CellMethod{Method: agg.Name, Coords: []string{name}})
	out.coords = nil
	m := make(map[*Coord]*Coord)
	for _, e := range c.coords {
		if !containsInt(e.dims, dim) {
			nc := e.coord.Copy()
			m[e.coord] = nc
			out.coords = append(out.coords, &coordEntry{coord: nc, dims: append([]int{}, e.dims...), dim: e.dim})
			continue
		}
		if len(e.dims) != 1 || e.coord.IsString() {
			continue
		}
		nc := e.coord.Copy()
		if e.coord == group {
			nc.Points = sparse.ZerosDense(len(keys))
			copy(nc.Points.Elements, keys)
			nc.Bounds = nil
		} else {
			nc.Points = sparse.ZerosDense(len(keys))
			nc.Bounds = sparse.ZerosDense(len(keys), 2)
			for g, k := range keys {
				var vals []float64
				for _, t := range members[k] {
					if e.coord.Bounds != nil {
						vals = append(vals, e.coord.BoundsAt(t)...)
					} else {
						vals = append(vals, e.coord.Points.Elements[t])
					}
				}
				lo, hi := floats.Min(vals), floats.Max(vals)
				nc.Points.Elements[g] = (lo + hi) / 2
				nc.Bounds.Elements[2*g], nc.Bounds.Elements[2*g+1] = lo, hi
			}
		}
		isDim := e.dim
		if inc, dec := nc.Monotonic(); isDim && !inc && !dec {
			isDim = false
		}
		m[e.coord] = nc
		out.coords = append(out.coords, &coordEntry{coord: nc, dims: []int{dim}, dim: isDim})
	}
	out.factories = nil
	for _, f := range c.factories {
		ok := true
		for _, d := range f.Dependencies() {
			if _, has := m[d]; d != nil && !has {
				ok = false
			}
		}
		if ok {
			out.factories = append(out.factories, f.remap(m))
		}
	}
	return &out, nil
}

// AddMonthNumber adds a month_number auxiliary coordinate computed from
// the named time coordinate.
func AddMonthNumber(c *Cube, timeName string) error {
	if c.HasCoord(Name("month_number")) {
		return fmt.Errorf("cube: %s already has a month_number coordinate", c.Name())
	}
	t, err := c.Coord(Name(timeName))
	if err != nil {
		return err
	}
	dims, err := c.CoordDims(t)
	if err != nil {
		return err
	}
	dates, err := t.Dates()
	if err != nil {
		return err
	}
	months := make([]float64, len(dates))
	for i, d := range dates {
		months[i] = float64(d.Month)
	}
	mc := &Coord{
		LongName:   "month_number",
		VarName:    "month_number",
		Units:      units.Dimensionless(),
		Attributes: make(map[string]interface{}),
		Points:     sparse.ZerosDense(t.Shape()...),
	}
	copy(mc.Points.Elements, months)
	return c.AddAuxCoord(mc, dims...)
}

// AreaWeights returns the area [m²] of each grid cell broadcast to the
// shape of the data. The latitude and longitude coordinates must be
// one-dimensional and have bounds.
func AreaWeights(c *Cube) (*sparse.DenseArray, error) {
	lat, err := c.Coord(Name("latitude"))
	if err != nil {
		return nil, err
	}
	lon, err := c.Coord(Name("longitude"))
	if err != nil {
		return nil, err
	}
	if !lat.HasBounds() || !lon.HasBounds() {
		return nil, fmt.Errorf("cube: area weights of %s require latitude and longitude bounds", c.Name())
	}
	latDims, err := c.CoordDims(lat)
	if err != nil {
		return nil, err
	}
	lonDims, err := c.CoordDims(lon)
	if err != nil {
		return nil, err
	}
	if len(latDims) > 1 || len(lonDims) > 1 {
		return nil, fmt.Errorf("cube: area weights of %s require one-dimensional latitude and longitude", c.Name())
	}
	toRad := func(co *Coord) func(float64) float64 {
		if f, err := co.Units.Converter(units.MustParse("rad")); err == nil {
			return f
		}
		return func(v float64) float64 { return v * math.Pi / 180 }
	}
	latRad, lonRad := toRad(lat), toRad(lon)
	latW := make([]float64, lat.Len())
	for i := range latW {
		b := lat.BoundsAt(i)
		latW[i] = math.Abs(math.Sin(latRad(b[1])) - math.Sin(latRad(b[0])))
	}
	lonW := make([]float64, lon.Len())
	for i := range lonW {
		b := lon.BoundsAt(i)
		lonW[i] = math.Abs(lonRad(b[1]) - lonRad(b[0]))
	}
	w := sparse.ZerosDense(c.Shape()...)
	index := make([]int, c.NDim())
	for o := range w.Elements {
		unravel(o, c.Data.Shape, index)
		v := EarthRadius * EarthRadius
		if len(latDims) == 1 {
			v *= latW[index[latDims[0]]]
		} else {
			v *= latW[0]
		}
		if len(lonDims) == 1 {
			v *= lonW[index[lonDims[0]]]
		} else {
			v *= lonW[0]
		}
		w.Elements[o] = v
	}
	return w, nil
}

func sameShape(a, b []int) bool {
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

func dimsShape(shape, dims []int) []int {
	o := make([]int, len(dims))
	for i, d := range dims {
		o[i] = shape[d]
	}
	return o
}

func prod(s []int) int {
	p := 1
	for _, v := range s {
		p *= v
	}
	return p
}

func stridesOf(shape []int) []int {
	s := make([]int, len(shape))
	st := 1
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = st
		st *= shape[i]
	}
	return s
}

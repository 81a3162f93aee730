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
	"sort"

	"github.com/ctessum/sparse"
	"github.com/spatialmodel/cmorfix/units"
)

// AuxFactory computes a derived coordinate from other coordinates of
// a cube.
type AuxFactory interface {
	// StandardName is the standard name of the derived coordinate.
	StandardName() string

	// Dependencies returns the coordinates the factory is computed
	// from, keyed by formula term.
	Dependencies() map[string]*Coord

	// Derive computes the derived coordinate for c along with the
	// data dimensions it spans.
	Derive(c *Cube) (*Coord, []int, error)

	remap(m map[*Coord]*Coord) AuxFactory
}

// HybridPressureFactory derives air pressure on hybrid sigma-pressure
// levels: p = delta*p0 + sigma*ps, or p = delta + sigma*ps when there
// is no reference pressure.
type HybridPressureFactory struct {
	Delta              *Coord
	Sigma              *Coord
	SurfaceAirPressure *Coord
	ReferencePressure  *Coord
}

// NewHybridPressureFactory returns a hybrid pressure factory. p0 may
// be nil.
func NewHybridPressureFactory(delta, sigma, ps, p0 *Coord) *HybridPressureFactory {
	return &HybridPressureFactory{Delta: delta, Sigma: sigma, SurfaceAirPressure: ps, ReferencePressure: p0}
}

// StandardName implements AuxFactory.
func (f *HybridPressureFactory) StandardName() string { return "air_pressure" }

// Dependencies implements AuxFactory.
func (f *HybridPressureFactory) Dependencies() map[string]*Coord {
	d := map[string]*Coord{"delta": f.Delta, "sigma": f.Sigma, "surface_air_pressure": f.SurfaceAirPressure}
	if f.ReferencePressure != nil {
		d["reference_pressure"] = f.ReferencePressure
	}
	return d
}

func (f *HybridPressureFactory) remap(m map[*Coord]*Coord) AuxFactory {
	return &HybridPressureFactory{
		Delta:              remapCoord(m, f.Delta),
		Sigma:              remapCoord(m, f.Sigma),
		SurfaceAirPressure: remapCoord(m, f.SurfaceAirPressure),
		ReferencePressure:  remapCoord(m, f.ReferencePressure),
	}
}

// Derive implements AuxFactory.
func (f *HybridPressureFactory) Derive(c *Cube) (*Coord, []int, error) {
	if f.Delta == nil || f.Sigma == nil || f.SurfaceAirPressure == nil {
		return nil, nil, fmt.Errorf("cube: hybrid pressure factory is missing a formula term")
	}
	u := f.SurfaceAirPressure.Units
	deltaScale := 1.0
	var deltaConv func(float64) float64
	if f.ReferencePressure != nil {
		deltaScale = f.ReferencePressure.Points.Elements[0]
		if conv, err := f.ReferencePressure.Units.Converter(u); err == nil {
			deltaScale = conv(deltaScale)
		}
	} else if conv, err := f.Delta.Units.Converter(u); err == nil {
		deltaConv = conv
	}
	return derive(c, "air_pressure", u, []*Coord{f.Delta, f.Sigma, f.SurfaceAirPressure},
		func(v []float64) float64 {
			d := v[0] * deltaScale
			if deltaConv != nil {
				d = deltaConv(d)
			}
			return d + v[1]*v[2]
		}, nil)
}

// HybridHeightFactory derives altitude on hybrid height levels:
// z = delta + sigma*orography.
type HybridHeightFactory struct {
	Delta     *Coord
	Sigma     *Coord
	Orography *Coord
}

// NewHybridHeightFactory returns a hybrid height factory.
func NewHybridHeightFactory(delta, sigma, orography *Coord) *HybridHeightFactory {
	return &HybridHeightFactory{Delta: delta, Sigma: sigma, Orography: orography}
}

// StandardName implements AuxFactory.
func (f *HybridHeightFactory) StandardName() string { return "altitude" }

// Dependencies implements AuxFactory.
func (f *HybridHeightFactory) Dependencies() map[string]*Coord {
	return map[string]*Coord{"delta": f.Delta, "sigma": f.Sigma, "orography": f.Orography}
}

func (f *HybridHeightFactory) remap(m map[*Coord]*Coord) AuxFactory {
	return &HybridHeightFactory{
		Delta:     remapCoord(m, f.Delta),
		Sigma:     remapCoord(m, f.Sigma),
		Orography: remapCoord(m, f.Orography),
	}
}

// Derive implements AuxFactory.
func (f *HybridHeightFactory) Derive(c *Cube) (*Coord, []int, error) {
	if f.Delta == nil || f.Sigma == nil || f.Orography == nil {
		return nil, nil, fmt.Errorf("cube: hybrid height factory is missing a formula term")
	}
	u := f.Delta.Units
	orogConv := func(v float64) float64 { return v }
	if conv, err := f.Orography.Units.Converter(u); err == nil {
		orogConv = conv
	}
	return derive(c, "altitude", u, []*Coord{f.Delta, f.Sigma, f.Orography},
		func(v []float64) float64 { return v[0] + v[1]*orogConv(v[2]) },
		map[string]interface{}{"positive": "up"})
}

func remapCoord(m map[*Coord]*Coord, c *Coord) *Coord {
	if c == nil {
		return nil
	}
	if n, ok := m[c]; ok {
		return n
	}
	return c
}

// derive evaluates formula over the broadcast points of terms. Bounds
// are computed when the first two terms both have bounds with the same
// number of vertices.
func derive(c *Cube, name string, u units.Unit, terms []*Coord, formula func([]float64) float64,
	attrs map[string]interface{}) (*Coord, []int, error) {
	dimSet := make(map[int]bool)
	termDims := make([][]int, len(terms))
	for i, t := range terms {
		e := c.entry(t)
		if e == nil {
			return nil, nil, fmt.Errorf("cube: %s term %s is not a coordinate of %s", name, t.Name(), c.Name())
		}
		if t.IsString() {
			return nil, nil, fmt.Errorf("cube: %s term %s is not numeric", name, t.Name())
		}
		termDims[i] = e.dims
		for _, d := range e.dims {
			dimSet[d] = true
		}
	}
	var dims []int
	for d := range dimSet {
		dims = append(dims, d)
	}
	sort.Ints(dims)
	shape := make([]int, len(dims))
	n := 1
	for i, d := range dims {
		shape[i] = c.Data.Shape[d]
		n *= shape[i]
	}
	nb := 0
	if terms[0].HasBounds() && terms[1].HasBounds() && terms[0].NBounds() == terms[1].NBounds() {
		nb = terms[0].NBounds()
	}

	points := make([]float64, n)
	var bounds []float64
	if nb > 0 {
		bounds = make([]float64, n*nb)
	}
	index := make([]int, len(dims))
	v := make([]float64, len(terms))
	for o := 0; o < n; o++ {
		unravel(o, shape, index)
		flat := make([]int, len(terms))
		for i, t := range terms {
			flat[i] = termIndex(t, termDims[i], dims, index)
			v[i] = t.Points.Elements[flat[i]]
		}
		points[o] = formula(v)
		for b := 0; b < nb; b++ {
			for i, t := range terms {
				if t.HasBounds() && t.NBounds() == nb {
					v[i] = t.Bounds.Elements[flat[i]*nb+b]
				} else {
					v[i] = t.Points.Elements[flat[i]]
				}
			}
			bounds[o*nb+b] = formula(v)
		}
	}
	if len(shape) == 0 {
		shape = []int{1}
	}
	out := &Coord{
		StandardName: name,
		Units:        u,
		Attributes:   make(map[string]interface{}),
		Points:       sparse.ZerosDense(shape...),
	}
	copy(out.Points.Elements, points)
	for k, val := range attrs {
		out.Attributes[k] = val
	}
	if nb > 0 {
		out.Bounds = sparse.ZerosDense(append(append([]int{}, shape...), nb)...)
		copy(out.Bounds.Elements, bounds)
	}
	return out, dims, nil
}

// unravel writes the multi-dimensional index of flat index o into index.
func unravel(o int, shape, index []int) {
	for i := len(shape) - 1; i >= 0; i-- {
		index[i] = o % shape[i]
		o /= shape[i]
	}
}

// termIndex returns the flat index into t for the multi-index index
// over outDims.
func termIndex(t *Coord, tDims, outDims, index []int) int {
	if len(tDims) == 0 {
		return 0
	}
	shape := t.Points.Shape
	flat := 0
	for k, d := range tDims {
		p := sort.SearchInts(outDims, d)
		flat = flat*shape[k] + index[p]
	}
	return flat
}

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

// Package regrid extracts vertical levels from cubes and looks up the
// levels requested by CMOR coordinate definitions.
package regrid

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/spatialmodel/cmorfix"
	"github.com/spatialmodel/cmorfix/cmor"
	"github.com/spatialmodel/cmorfix/cube"
	"github.com/spatialmodel/cmorfix/ncio"
	"gonum.org/v1/gonum/interp"
)

// Vertical interpolation schemes. The extrapolating variants fill
// levels outside of the source range instead of masking them.
const (
	Linear             = "linear"
	Nearest            = "nearest"
	LinearExtrapolate  = "linear_extrapolate"
	NearestExtrapolate = "nearest_extrapolate"
)

// ExtractLevels returns c on the given vertical levels, which are in
// the units of the Z dimension coordinate of c. Levels that are all
// present in the source are selected directly. Otherwise every column
// is interpolated with scheme, and levels outside of the source range
// are masked (NaN) unless the scheme extrapolates. Auxiliary
// coordinates and aux factories that span the vertical dimension are
// dropped from interpolated cubes.
func ExtractLevels(c *cube.Cube, levels []float64, scheme string) (*cube.Cube, error) {
	switch scheme {
	case Linear, Nearest, LinearExtrapolate, NearestExtrapolate:
	default:
		return nil, fmt.Errorf("regrid: unknown vertical interpolation scheme '%s'", scheme)
	}
	if len(levels) == 0 {
		return nil, fmt.Errorf("regrid: no levels to extract")
	}
	z, err := c.Coord(cube.Query{Axis: "Z", DimOnly: true})
	if err != nil {
		return nil, fmt.Errorf("regrid: %w", err)
	}
	dims, err := c.CoordDims(z)
	if err != nil {
		return nil, fmt.Errorf("regrid: %w", err)
	}
	dim := dims[0]
	src := z.Points.Elements

	if idx, ok := indices(src, levels); ok {
		o, err := c.Subset(dim, idx)
		if err != nil {
			return nil, fmt.Errorf("regrid: %w", err)
		}
		return o, nil
	}

	// A subset on repeated indices gives the output shape and the
	// coordinates along the other dimensions.
	o, err := c.Subset(dim, make([]int, len(levels)))
	if err != nil {
		return nil, fmt.Errorf("regrid: %w", err)
	}
	for _, f := range o.AuxFactories() {
		o.RemoveAuxFactory(f)
	}
	for _, co := range o.Coords(cube.Query{Dim: &dim}) {
		if o.IsDimCoord(co) {
			continue
		}
		if err := o.RemoveCoord(co); err != nil {
			return nil, fmt.Errorf("regrid: %w", err)
		}
	}
	oz, err := o.Coord(cube.Query{Axis: "Z", DimOnly: true})
	if err != nil {
		return nil, fmt.Errorf("regrid: %w", err)
	}
	if err := oz.SetPoints(levels); err != nil {
		return nil, fmt.Errorf("regrid: %w", err)
	}
	oz.Bounds = nil

	col, err := newColumn(src, scheme)
	if err != nil {
		return nil, err
	}
	shape := c.Shape()
	outer, inner := 1, 1
	for _, s := range shape[:dim] {
		outer *= s
	}
	for _, s := range shape[dim+1:] {
		inner *= s
	}
	n, m := shape[dim], len(levels)
	ys := make([]float64, n)
	for i := 0; i < outer; i++ {
		for k := 0; k < inner; k++ {
			for j := 0; j < n; j++ {
				ys[j] = c.Data.Elements[(i*n+j)*inner+k]
			}
			if err := col.fit(ys); err != nil {
				return nil, err
			}
			for j, l := range levels {
				o.Data.Elements[(i*m+j)*inner+k] = col.at(l)
			}
		}
	}
	return o, nil
}

// indices returns the positions of levels in src, if they are all
// present.
func indices(src, levels []float64) ([]int, bool) {
	idx := make([]int, len(levels))
	for i, l := range levels {
		found := false
		for j, s := range src {
			if s == l {
				idx[i], found = j, true
				break
			}
		}
		if !found {
			return nil, false
		}
	}
	return idx, true
}

// column interpolates the values of one vertical column. The source
// levels are sorted ascending.
type column struct {
	scheme string
	order  []int
	xs, ys []float64
	linear interp.PiecewiseLinear
}

func newColumn(src []float64, scheme string) (*column, error) {
	c := &column{scheme: scheme, order: make([]int, len(src)), xs: make([]float64, len(src)), ys: make([]float64, len(src))}
	for i := range c.order {
		c.order[i] = i
	}
	sort.Slice(c.order, func(i, j int) bool { return src[c.order[i]] < src[c.order[j]] })
	for i, j := range c.order {
		c.xs[i] = src[j]
	}
	for i := 1; i < len(c.xs); i++ {
		if c.xs[i] == c.xs[i-1] {
			return nil, fmt.Errorf("regrid: duplicate source level %g", c.xs[i])
		}
	}
	return c, nil
}

func (c *column) fit(values []float64) error {
	for i, j := range c.order {
		c.ys[i] = values[j]
	}
	if len(c.xs) < 2 || (c.scheme != Linear && c.scheme != LinearExtrapolate) {
		return nil
	}
	if err := c.linear.Fit(c.xs, c.ys); err != nil {
		return fmt.Errorf("regrid: %w", err)
	}
	return nil
}

func (c *column) at(x float64) float64 {
	lo, hi := c.xs[0], c.xs[len(c.xs)-1]
	extrapolate := c.scheme == LinearExtrapolate || c.scheme == NearestExtrapolate
	if (x < lo || x > hi) && !extrapolate {
		return math.NaN()
	}
	if len(c.xs) == 1 {
		return c.ys[0]
	}
	switch c.scheme {
	case Nearest, NearestExtrapolate:
		i := sort.SearchFloat64s(c.xs, x)
		switch {
		case i == 0:
			return c.ys[0]
		case i == len(c.xs):
			return c.ys[len(c.xs)-1]
		case x-c.xs[i-1] <= c.xs[i]-x:
			return c.ys[i-1]
		}
		return c.ys[i]
	}
	switch {
	case x < lo:
		return c.ys[0] + (x-lo)*(c.ys[1]-c.ys[0])/(c.xs[1]-lo)
	case x > hi:
		n := len(c.xs)
		return c.ys[n-1] + (x-hi)*(c.ys[n-1]-c.ys[n-2])/(hi-c.xs[n-2])
	}
	return c.linear.Predict(x)
}

// CMORLevels returns the levels requested by a CMOR coordinate, given as
// "PROJECT_coordinate", e.g. "CMIP6_plev19".
func CMORLevels(catalog *cmor.Catalog, spec string) ([]float64, error) {
	parts := strings.Split(spec, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("regrid: CMOR level specification '%s' should be PROJECT_coordinate, e.g. CMIP6_plev19", spec)
	}
	ci, err := catalog.Coordinate(parts[0], parts[1])
	if err != nil {
		return nil, fmt.Errorf("regrid: %w", err)
	}
	levels, err := ci.RequestedLevels()
	if err != nil {
		return nil, fmt.Errorf("regrid: %w", err)
	}
	return levels, nil
}

// ReferenceLevels returns the vertical levels of the first cube in the
// NetCDF file at path. If fixes is not nil the file is fixed first,
// with fixed copies written to fixDir.
func ReferenceLevels(path string, fixes *cmorfix.Chain, fixDir string) ([]float64, error) {
	var c *cube.Cube
	if fixes != nil {
		var err error
		if c, err = fixes.Process(path, fixDir, ncio.Load); err != nil {
			return nil, fmt.Errorf("regrid: %w", err)
		}
	} else {
		cubes, err := ncio.Load(path)
		if err != nil {
			return nil, fmt.Errorf("regrid: %w", err)
		}
		if len(cubes) == 0 {
			return nil, fmt.Errorf("regrid: no data in %s", path)
		}
		c = cubes[0]
	}
	z, err := c.Coord(cube.Query{Axis: "Z"})
	if err != nil {
		return nil, fmt.Errorf("regrid: reference levels of %s: %w", path, err)
	}
	return append([]float64{}, z.Points.Elements...), nil
}

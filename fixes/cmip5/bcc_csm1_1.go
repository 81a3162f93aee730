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

package cmip5

import (
	"fmt"
	"math"
	"sort"

	"github.com/spatialmodel/cmorfix"
	"github.com/spatialmodel/cmorfix/cmor"
	"github.com/spatialmodel/cmorfix/cube"
)

// BccCl declares the hybrid levels of bcc-csm1-1 cloud fraction files
// with the terms p0, a, b and ps.
func BccCl(v *cmor.VariableInfo) cmorfix.Fix {
	h := &cmorfix.Hooks{Base: cmorfix.NewBase(v)}
	h.File = HybridPressureFile(h.Base, true)
	return h
}

// BccTos computes the missing cell vertices of the two-dimensional
// latitude and longitude of the rotated ocean grid by interpolating
// them at the grid_latitude and grid_longitude bounds.
func BccTos(v *cmor.VariableInfo) cmorfix.Fix {
	h := &cmorfix.Hooks{Base: cmorfix.NewBase(v)}
	h.Data = func(c *cube.Cube) (*cube.Cube, error) {
		if err := gridVertices(c); err != nil {
			return nil, fmt.Errorf("cmip5: %w", err)
		}
		return c, nil
	}
	return h
}

// vertexOrder is the order of the cell corners, as (latitude bound,
// longitude bound) indices.
var vertexOrder = [4][2]int{{0, 0}, {0, 1}, {1, 1}, {1, 0}}

func gridVertices(c *cube.Cube) error {
	rlat, err := c.Coord(cube.Name("grid_latitude"))
	if err != nil {
		return err
	}
	rlon, err := c.Coord(cube.Name("grid_longitude"))
	if err != nil {
		return err
	}
	lat, err := c.Coord(cube.Name("latitude"))
	if err != nil {
		return err
	}
	lon, err := c.Coord(cube.Name("longitude"))
	if err != nil {
		return err
	}
	if !rlat.HasBounds() || !rlon.HasBounds() || rlat.NBounds() != 2 || rlon.NBounds() != 2 {
		return fmt.Errorf("grid_latitude and grid_longitude need two bounds per point")
	}
	n, m := rlat.Len(), rlon.Len()
	if lat.Len() != n*m || lon.Len() != n*m {
		return fmt.Errorf("latitude and longitude must have %dx%d points", n, m)
	}
	latIdx, err := indexBounds(rlat)
	if err != nil {
		return err
	}
	lonIdx, err := indexBounds(rlon)
	if err != nil {
		return err
	}
	latV := make([]float64, n*m*4)
	lonV := make([]float64, n*m*4)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			for k, o := range vertexOrder {
				y, x := latIdx[2*i+o[0]], lonIdx[2*j+o[1]]
				latV[(i*m+j)*4+k] = bilinear(lat.Points.Elements, n, m, y, x, clamp)
				lonV[(i*m+j)*4+k] = bilinear(lon.Points.Elements, n, m, y, x, wrap)
			}
		}
	}
	if err := lat.SetBounds(latV, 4); err != nil {
		return err
	}
	return lon.SetBounds(lonV, 4)
}

// indexBounds maps the bounds of a one-dimensional coordinate to
// fractional indices of its points, interpolating and extrapolating
// linearly.
func indexBounds(co *cube.Coord) ([]float64, error) {
	p := co.Points.Elements
	if len(p) < 2 {
		return nil, fmt.Errorf("coordinate %s needs at least two points", co.Name())
	}
	inc, _ := co.Monotonic()
	if !inc {
		return nil, fmt.Errorf("coordinate %s must be increasing", co.Name())
	}
	o := make([]float64, len(co.Bounds.Elements))
	for i, x := range co.Bounds.Elements {
		k := sort.SearchFloat64s(p, x) - 1
		if k < 0 {
			k = 0
		}
		if k > len(p)-2 {
			k = len(p) - 2
		}
		o[i] = float64(k) + (x-p[k])/(p[k+1]-p[k])
	}
	return o, nil
}

// clamp repeats the edge values outside of the grid.
func clamp(i, n int) int {
	switch {
	case i < 0:
		return 0
	case i >= n:
		return n - 1
	}
	return i
}

// wrap treats the grid as periodic.
func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// bilinear samples the n x m field f at fractional index (y, x).
func bilinear(f []float64, n, m int, y, x float64, mode func(i, n int) int) float64 {
	y0, x0 := math.Floor(y), math.Floor(x)
	ty, tx := y-y0, x-x0
	at := func(i, j int) float64 {
		return f[mode(i, n)*m+mode(j, m)]
	}
	i, j := int(y0), int(x0)
	return (1-ty)*(1-tx)*at(i, j) + (1-ty)*tx*at(i, j+1) +
		ty*(1-tx)*at(i+1, j) + ty*tx*at(i+1, j+1)
}

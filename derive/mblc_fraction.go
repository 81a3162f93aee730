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

package derive

import (
	"fmt"
	"math"

	"github.com/spatialmodel/cmorfix/cube"
	"github.com/spatialmodel/cmorfix/regrid"
)

const (
	// omegaLevel is the pressure [Pa] of the vertical velocity that
	// tells subsidence regions apart.
	omegaLevel = 50000.0

	// upperLimitLevel is the pressure [Pa] above which clouds do not
	// count as marine boundary layer clouds.
	upperLimitLevel = 70000.0
)

// subtropics keeps latitudes between 20 and 40 degrees on both
// hemispheres.
var subtropics = cube.CoordConstraint("latitude", func(v float64) bool {
	return (-40 <= v && v <= -20) || (20 <= v && v <= 40)
})

// MBLCFraction derives the marine boundary layer cloud fraction: the
// monthly climatology of the area mean cloud fraction below 700 hPa in
// subtropical subsidence regions.
type MBLCFraction struct{}

// Required implements Derivation.
func (MBLCFraction) Required(string) []Requirement {
	return []Requirement{{ShortName: "wap"}, {ShortName: "cl"}}
}

// Calculate implements Derivation.
func (MBLCFraction) Calculate(cubes cube.CubeList) (*cube.Cube, error) {
	cl, err := cubes.ExtractStrict(cube.And(cube.VarNameConstraint("cl"), subtropics))
	if err != nil {
		return nil, fmt.Errorf("derive: mblc_fraction: cl: %w", err)
	}
	wap, err := cubes.ExtractStrict(cube.And(cube.VarNameConstraint("wap"), subtropics))
	if err != nil {
		return nil, fmt.Errorf("derive: mblc_fraction: wap: %w", err)
	}

	mblc, err := TotalCloudFraction(cl, upperLimitLevel)
	if err != nil {
		return nil, err
	}
	if wap, err = levelSlice(wap, omegaLevel); err != nil {
		return nil, err
	}

	for _, c := range []*cube.Cube{mblc, wap} {
		for _, f := range c.AuxFactories() {
			c.RemoveAuxFactory(f)
		}
		if err := cube.AddMonthNumber(c, "time"); err != nil {
			return nil, fmt.Errorf("derive: mblc_fraction: %w", err)
		}
	}
	if mblc, err = cube.AggregatedBy(mblc, "month_number", cube.Mean); err != nil {
		return nil, fmt.Errorf("derive: mblc_fraction: %w", err)
	}
	if wap, err = cube.AggregatedBy(wap, "month_number", cube.Mean); err != nil {
		return nil, fmt.Errorf("derive: mblc_fraction: %w", err)
	}
	if !sameShape(mblc.Shape(), wap.Shape()) {
		return nil, fmt.Errorf("derive: mblc_fraction: cloud fraction shape %v does not match wap shape %v",
			mblc.Shape(), wap.Shape())
	}

	// Only subsidence regions count.
	for i, w := range wap.Data.Elements {
		if !(w > 0) {
			mblc.Data.Elements[i] = math.NaN()
		}
	}
	weights, err := cube.AreaWeights(mblc)
	if err != nil {
		return nil, fmt.Errorf("derive: mblc_fraction: %w", err)
	}
	out, err := cube.Collapsed(mblc, []string{"latitude", "longitude"}, cube.Mean, weights)
	if err != nil {
		return nil, fmt.Errorf("derive: mblc_fraction: %w", err)
	}
	return out, nil
}

// levelSlice returns c interpolated to a single pressure level, without
// the vertical dimension.
func levelSlice(c *cube.Cube, level float64) (*cube.Cube, error) {
	o, err := regrid.ExtractLevels(c, []float64{level}, regrid.Linear)
	if err != nil {
		return nil, fmt.Errorf("derive: %w", err)
	}
	z, err := o.Coord(cube.Query{Axis: "Z", DimOnly: true})
	if err != nil {
		return nil, fmt.Errorf("derive: %w", err)
	}
	dims, err := o.CoordDims(z)
	if err != nil {
		return nil, fmt.Errorf("derive: %w", err)
	}
	if o, err = o.Index(dims[0], 0); err != nil {
		return nil, fmt.Errorf("derive: %w", err)
	}
	return o, nil
}

// TotalCloudFraction returns the total cloud fraction [%] of the cloud
// fraction profiles in cl at air pressures of at least limit [Pa],
// assuming random overlap of the cloud layers: 100*(1-prod(1-cl/100)).
func TotalCloudFraction(cl *cube.Cube, limit float64) (*cube.Cube, error) {
	p, err := cl.Coord(cube.Name("air_pressure"))
	if err != nil {
		return nil, fmt.Errorf("derive: total cloud fraction: %w", err)
	}
	pDims, err := cl.CoordDims(p)
	if err != nil {
		return nil, fmt.Errorf("derive: total cloud fraction: %w", err)
	}
	z, err := cl.Coord(cube.Query{Axis: "Z", DimOnly: true})
	if err != nil {
		return nil, fmt.Errorf("derive: cannot determine the vertical axis of %s: %w", cl.Name(), err)
	}

	inv := cl.Copy()
	for _, f := range inv.AuxFactories() {
		inv.RemoveAuxFactory(f)
	}
	shape := cl.Shape()
	index := make([]int, len(shape))
	pStrides := strides(p.Shape())
	for o, v := range cl.Data.Elements {
		unravel(o, shape, index)
		pi := 0
		for k, d := range pDims {
			pi += index[d] * pStrides[k]
		}
		if p.Points.Elements[pi] < limit {
			v = math.NaN()
		}
		inv.Data.Elements[o] = 1 - v/100
	}
	out, err := cube.Collapsed(inv, []string{z.Name()}, cube.Product, nil)
	if err != nil {
		return nil, fmt.Errorf("derive: total cloud fraction: %w", err)
	}
	for i, v := range out.Data.Elements {
		out.Data.Elements[i] = (1 - v) * 100
	}
	out.VarName = "clt"
	out.StandardName = "cloud_area_fraction"
	out.LongName = "Total Cloud Fraction"
	out.CellMethods = out.CellMethods[:len(out.CellMethods)-1]
	return out, nil
}

func unravel(o int, shape, index []int) {
	for i := len(shape) - 1; i >= 0; i-- {
		index[i] = o % shape[i]
		o /= shape[i]
	}
}

func strides(shape []int) []int {
	s := make([]int, len(shape))
	n := 1
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = n
		n *= shape[i]
	}
	return s
}

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

package cmip6

import (
	"fmt"

	"github.com/spatialmodel/cmorfix"
	"github.com/spatialmodel/cmorfix/cmor"
	"github.com/spatialmodel/cmorfix/cube"
	"github.com/spatialmodel/cmorfix/units"
)

const badParentTimeUnits = "days since 1850-01-01-00-00-00"

// HadGEM3AllVars replaces the malformed parent_time_units attribute of
// the Met Office models with "days since 1850-01-01".
func HadGEM3AllVars(v *cmor.VariableInfo) cmorfix.Fix {
	h := &cmorfix.Hooks{Base: cmorfix.NewBase(v)}
	h.Metadata = func(cubes cube.CubeList) (cube.CubeList, error) {
		for _, c := range cubes {
			if s, ok := c.Attributes["parent_time_units"].(string); ok && s == badParentTimeUnits {
				c.Attributes["parent_time_units"] = "days since 1850-01-01"
			}
		}
		return cubes, nil
	}
	return h
}

var meter = units.MustParse("m")

// UKESM10LLCl rebuilds the hybrid height coordinate of cl cubes from
// their lev, b and orog coordinates and adds the air pressure of the US
// standard atmosphere at the resulting altitudes as the plev
// coordinate. Only the cl cube is returned.
func UKESM10LLCl(v *cmor.VariableInfo) cmorfix.Fix {
	h := &cmorfix.Hooks{Base: cmorfix.NewBase(v)}
	h.Metadata = func(cubes cube.CubeList) (cube.CubeList, error) {
		c, err := h.Cube(cubes)
		if err != nil {
			return nil, err
		}
		if err := hybridHeightPressure(c, cubes); err != nil {
			return nil, fmt.Errorf("cmip6: %w", err)
		}
		return cube.CubeList{c}, nil
	}
	return h
}

func hybridHeightPressure(c *cube.Cube, cubes cube.CubeList) error {
	for _, f := range c.AuxFactories() {
		c.RemoveAuxFactory(f)
	}
	if err := cmorfix.FixBounds(c, cubes, "lev", "b"); err != nil {
		return err
	}
	var terms [3]*cube.Coord
	for i, name := range []string{"lev", "b", "orog"} {
		co, err := c.Coord(cube.VarName(name))
		if err != nil {
			return err
		}
		terms[i] = co
	}
	if err := c.AddAuxFactory(cube.NewHybridHeightFactory(terms[0], terms[1], terms[2])); err != nil {
		return err
	}

	alt, err := c.Coord(cube.Name("altitude"))
	if err != nil {
		return err
	}
	if !alt.Units.Equal(meter) {
		if err := alt.ConvertUnits(meter); err != nil {
			return err
		}
	}
	dims, err := c.CoordDims(alt)
	if err != nil {
		return err
	}
	p := &cube.Coord{
		StandardName: "air_pressure",
		LongName:     "pressure",
		VarName:      "plev",
		Units:        units.MustParse("Pa"),
		Attributes:   make(map[string]interface{}),
		Points:       alt.Points.Copy(),
	}
	for i, z := range p.Points.Elements {
		p.Points.Elements[i] = cmorfix.AltitudeToPressure(z)
	}
	if alt.HasBounds() {
		b := make([]float64, len(alt.Bounds.Elements))
		for i, z := range alt.Bounds.Elements {
			b[i] = cmorfix.AltitudeToPressure(z)
		}
		if err := p.SetBounds(b, alt.NBounds()); err != nil {
			return err
		}
	}
	for _, old := range c.Coords(cube.VarName("plev")) {
		if err := c.RemoveCoord(old); err != nil {
			return err
		}
	}
	return c.AddAuxCoord(p, dims...)
}

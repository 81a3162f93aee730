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

package cmorfix

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/cmorfix/cube"
	"github.com/spatialmodel/cmorfix/units"
)

var (
	meter  = units.MustParse("m")
	noUnit = units.NoUnit()
)

// AddScalarDepthCoord adds a scalar depth coordinate of depth meters to
// c unless it already has a depth coordinate.
func AddScalarDepthCoord(c *cube.Cube, depth float64) error {
	return addScalar(c, "depth", func() *cube.Coord {
		co := cube.NewScalarCoord(depth, meter)
		co.StandardName, co.LongName, co.VarName = "depth", "depth", "depth"
		co.Attributes["positive"] = "down"
		return co
	})
}

// AddScalarHeightCoord adds a scalar height coordinate of height meters
// to c unless it already has a height coordinate. Fixes for
// near-surface variables use a height of 2 m.
func AddScalarHeightCoord(c *cube.Cube, height float64) error {
	return addScalar(c, "height", func() *cube.Coord {
		co := cube.NewScalarCoord(height, meter)
		co.StandardName, co.LongName, co.VarName = "height", "height", "height"
		co.Attributes["positive"] = "up"
		return co
	})
}

// AddScalarTypelandCoord adds a land area_type coordinate to c unless it
// already has an area_type coordinate.
func AddScalarTypelandCoord(c *cube.Cube, value string) error {
	return addScalar(c, "area_type", func() *cube.Coord {
		return areaType(value, "Land area type")
	})
}

// AddScalarTypeseaCoord adds an ocean area_type coordinate to c unless it
// already has an area_type coordinate.
func AddScalarTypeseaCoord(c *cube.Cube, value string) error {
	return addScalar(c, "area_type", func() *cube.Coord {
		return areaType(value, "Ocean area type")
	})
}

func areaType(value, longName string) *cube.Coord {
	co := cube.NewStringCoord(value)
	co.StandardName, co.LongName, co.VarName = "area_type", longName, "type"
	co.Units = noUnit
	return co
}

func addScalar(c *cube.Cube, name string, coord func() *cube.Coord) error {
	if c.HasCoord(cube.Name(name)) {
		return nil
	}
	co := coord()
	logrus.WithField("cube", c.Name()).Debugf("adding %s coordinate (%s)", name, scalarValue(co))
	if err := c.AddAuxCoord(co); err != nil {
		return fmt.Errorf("cmorfix: %w", err)
	}
	return nil
}

func scalarValue(co *cube.Coord) string {
	if co.IsString() {
		return co.StringPoints[0]
	}
	return fmt.Sprintf("%g %s", co.Points.Elements[0], co.Units)
}

// CubeToAuxCoord returns a coordinate with the data, names and units
// of c.
func CubeToAuxCoord(c *cube.Cube) *cube.Coord {
	co := &cube.Coord{
		StandardName: c.StandardName,
		LongName:     c.LongName,
		VarName:      c.VarName,
		Units:        c.Units,
		Points:       c.Data.Copy(),
		Attributes:   make(map[string]interface{}),
	}
	co.Points.Shape = c.Shape()
	return co
}

// LookupError is returned when a cube that is looked up by name is
// missing or ambiguous.
type LookupError struct {
	Name string

	// N is the number of cubes found.
	N int
}

func (e *LookupError) Error() string {
	if e.N > 1 {
		return fmt.Sprintf("cmorfix: multiple cubes with var_name '%s' found", e.Name)
	}
	return fmt.Sprintf("cmorfix: no bounds for coordinate variable '%s' available in cubes", e.Name)
}

// BoundsCube returns the cube holding the bounds of the coordinate
// variable named name: the one cube of cubes with var_name name+"_bnds"
// or, failing that, name+"_bounds". The error is a *LookupError.
func BoundsCube(cubes cube.CubeList, name string) (*cube.Cube, error) {
	for _, suffix := range []string{"_bnds", "_bounds"} {
		switch c := cubes.ByVarName(name + suffix); len(c) {
		case 0:
		case 1:
			return c[0], nil
		default:
			return nil, &LookupError{Name: name + suffix, N: len(c)}
		}
	}
	return nil, &LookupError{Name: name}
}

// FixBounds sets the bounds of the coordinates of c with the given
// var_names from the bounds cubes in cubes. Coordinates that already
// have bounds are left alone.
func FixBounds(c *cube.Cube, cubes cube.CubeList, names ...string) error {
	for _, name := range names {
		co, err := c.Coord(cube.VarName(name))
		if err != nil {
			return fmt.Errorf("cmorfix: %w", err)
		}
		if co.HasBounds() {
			continue
		}
		b, err := BoundsCube(cubes, name)
		if err != nil {
			return err
		}
		shape := b.Shape()
		if err := co.SetBounds(b.Data.Elements, shape[len(shape)-1]); err != nil {
			return fmt.Errorf("cmorfix: fixing bounds of %s: %w", name, err)
		}
		logrus.WithField("cube", c.Name()).Debugf("fixed bounds of coordinate '%s'", name)
	}
	return nil
}

// DefaultDecimals is the number of decimals RoundCoordinates is
// usually called with.
const DefaultDecimals = 5

// RoundCoordinates rounds the points and bounds of the dimension
// coordinates of every cube to the given number of decimals.
func RoundCoordinates(cubes cube.CubeList, decimals int) cube.CubeList {
	s := math.Pow(10, float64(decimals))
	round := func(v []float64) {
		for i, x := range v {
			v[i] = math.Round(x*s) / s
		}
	}
	for _, c := range cubes {
		for _, co := range c.Coords(cube.Query{DimOnly: true}) {
			round(co.Points.Elements)
			if co.HasBounds() {
				round(co.Bounds.Elements)
			}
		}
	}
	return cubes
}

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

package native6

import (
	"fmt"
	"time"

	"github.com/spatialmodel/cmorfix"
	"github.com/spatialmodel/cmorfix/cmor"
	"github.com/spatialmodel/cmorfix/cube"
	"github.com/spatialmodel/cmorfix/units"
)

// helperFix returns a factory for fixes that apply steps to every cube.
func helperFix(steps ...func(*cube.Cube) error) cmorfix.Factory {
	return func(v *cmor.VariableInfo) cmorfix.Fix {
		h := &cmorfix.Hooks{Base: cmorfix.NewBase(v)}
		h.Metadata = func(cubes cube.CubeList) (cube.CubeList, error) {
			for _, c := range cubes {
				for _, step := range steps {
					if err := step(c); err != nil {
						return nil, err
					}
				}
			}
			return cubes, nil
		}
		return h
	}
}

// Fixes for hourly and monthly ERA5 variables.
var (
	Evspsbl    = helperFix(accumulated...)
	Evspsblpot = helperFix(accumulated...)
	Mrro       = helperFix(accumulated...)
	Pr         = helperFix(accumulated...)
	Prsn       = helperFix(append([]func(*cube.Cube) error{FixInvalidUnits}, accumulated...)...)
	Rls        = helperFix(positiveDown)
	Rsds       = helperFix(radiation...)
	Rsdt       = helperFix(radiation...)
	Rss        = helperFix(radiation...)
	Tasmax     = helperFix(FixHourlyTime)
	Tasmin     = helperFix(FixHourlyTime)
)

// Orog converts the time invariant geopotential to orography.
func Orog(v *cmor.VariableInfo) cmorfix.Fix {
	h := &cmorfix.Hooks{Base: cmorfix.NewBase(v)}
	h.Metadata = func(cubes cube.CubeList) (cube.CubeList, error) {
		o := make(cube.CubeList, 0, len(cubes))
		for _, c := range cubes {
			c, err := RemoveTime(c)
			if err != nil {
				return nil, err
			}
			if err := DivideByGravity(c); err != nil {
				return nil, err
			}
			o = append(o, c)
		}
		return o, nil
	}
	return h
}

// now is replaced in tests.
var now = time.Now

// AllVars brings every ERA5 cube in line with the CMOR definition of
// its variable. The metadata phase renames the cube, orders latitude
// ascending and pressure levels descending, adds scalar heights, fixes
// the coordinates and moves monthly time points to the middle of the
// month. The data phase converts the data to the CMOR units and float32
// precision.
func AllVars(v *cmor.VariableInfo) cmorfix.Fix {
	f := &allVars{Base: cmorfix.NewBase(v)}
	return f
}

type allVars struct {
	cmorfix.Base
}

func (f *allVars) FixMetadata(cubes cube.CubeList) (cube.CubeList, error) {
	if f.Var == nil {
		return nil, fmt.Errorf("native6: fixing ERA5 data needs a variable definition")
	}
	o := make(cube.CubeList, 0, len(cubes))
	for _, c := range cubes {
		c, err := f.fixCube(c)
		if err != nil {
			return nil, err
		}
		o = append(o, c)
	}
	return o, nil
}

func (f *allVars) fixCube(c *cube.Cube) (*cube.Cube, error) {
	// Raw long names are needed to tell geopotential apart.
	freq, err := Frequency(c)
	if err != nil {
		return nil, err
	}
	c.VarName = f.Var.ShortName
	c.StandardName = f.Var.StandardName
	c.LongName = f.Var.LongName

	if c, err = reverseDims(c); err != nil {
		return nil, err
	}
	if f.Var.HasDimension("height2m") {
		if err := cmorfix.AddScalarHeightCoord(c, 2); err != nil {
			return nil, err
		}
	}
	if f.Var.HasDimension("height10m") {
		if err := cmorfix.AddScalarHeightCoord(c, 10); err != nil {
			return nil, err
		}
	}
	for _, def := range f.Var.Coordinates {
		if err := fixCoord(c, def); err != nil {
			return nil, err
		}
	}
	if freq == Monthly {
		if err := midMonth(c); err != nil {
			return nil, err
		}
	}
	f.Log.WithField("cube", c.Name()).Debugf("fixed ERA5 metadata (%s)", freq)
	return c, nil
}

// reverseDims reverses the latitude dimension unless it is ascending and
// the pressure level dimension unless it is descending.
func reverseDims(c *cube.Cube) (*cube.Cube, error) {
	var dims []int
	for _, co := range c.Coords(cube.Query{DimOnly: true}) {
		inc, dec := co.Monotonic()
		switch {
		case isLatitude(co) && dec && !inc:
		case isPressureLevel(co) && inc && !dec:
		default:
			continue
		}
		d, err := c.CoordDims(co)
		if err != nil {
			return nil, fmt.Errorf("native6: %w", err)
		}
		dims = append(dims, d[0])
	}
	for _, d := range dims {
		var err error
		if c, err = c.Reverse(d); err != nil {
			return nil, fmt.Errorf("native6: %w", err)
		}
	}
	return c, nil
}

func isLatitude(co *cube.Coord) bool {
	return co.VarName == "latitude" || co.StandardName == "latitude"
}

func isPressureLevel(co *cube.Coord) bool {
	return co.VarName == "pressure_level" || co.StandardName == "air_pressure"
}

// fixCoord converts and renames the coordinate along the axis of def.
// Definitions without an axis, like scalar heights, are skipped.
func fixCoord(c *cube.Cube, def *cmor.CoordinateInfo) error {
	if def.Axis == "" {
		return nil
	}
	co, err := c.Coord(cube.Query{Axis: def.Axis})
	if err != nil {
		return fmt.Errorf("native6: %w", err)
	}
	switch def.Axis {
	case "T":
		if err := toReferenceTime(co); err != nil {
			return err
		}
	case "Z":
		u, err := units.Parse(def.Units)
		if err != nil {
			return fmt.Errorf("native6: coordinate %s: %w", def.Name, err)
		}
		if err := co.ConvertUnits(u); err != nil {
			return fmt.Errorf("native6: %w", err)
		}
	}
	co.StandardName = def.StandardName
	co.VarName = def.OutName
	co.LongName = def.LongName
	if !co.HasBounds() && co.Len() > 1 && def.MustHaveBounds == "yes" {
		if err := co.GuessBounds(); err != nil {
			return fmt.Errorf("native6: %w", err)
		}
	}
	return nil
}

// midMonth sets the monthly time points to the middle of their month,
// with the start of the month and of the next month as bounds.
func midMonth(c *cube.Cube) error {
	t, err := c.Coord(cube.Query{Axis: "T"})
	if err != nil {
		return fmt.Errorf("native6: %w", err)
	}
	dates, err := t.Dates()
	if err != nil {
		return fmt.Errorf("native6: %w", err)
	}
	points := make([]float64, len(dates))
	bounds := make([]float64, 2*len(dates))
	for i, d := range dates {
		start := units.DateTime{Year: d.Year, Month: d.Month, Day: 1}
		end := units.DateTime{Year: d.Year, Month: d.Month + 1, Day: 1}
		if end.Month == 13 {
			end.Year, end.Month = end.Year+1, 1
		}
		s, err := t.Units.Date2Num(start)
		if err != nil {
			return fmt.Errorf("native6: %w", err)
		}
		e, err := t.Units.Date2Num(end)
		if err != nil {
			return fmt.Errorf("native6: %w", err)
		}
		points[i] = (s + e) / 2
		bounds[2*i], bounds[2*i+1] = s, e
	}
	if err := t.SetPoints(points); err != nil {
		return fmt.Errorf("native6: %w", err)
	}
	if err := t.SetBounds(bounds, 2); err != nil {
		return fmt.Errorf("native6: %w", err)
	}
	return nil
}

// FixData converts the data to the units of the variable definition
// and rounds it to float32 precision.
func (f *allVars) FixData(c *cube.Cube) (*cube.Cube, error) {
	if f.Var != nil && f.Var.Units != "" {
		u, err := units.Parse(f.Var.Units)
		if err != nil {
			return nil, fmt.Errorf("native6: %w", err)
		}
		if !c.Units.Equal(u) {
			if err := c.ConvertUnits(u); err != nil {
				return nil, fmt.Errorf("native6: %w", err)
			}
		}
	}
	for i, v := range c.Data.Elements {
		c.Data.Elements[i] = float64(float32(v))
	}
	c.DataType = cube.Float32
	c.Attributes["comment"] = fmt.Sprintf(
		"Contains modified Copernicus Climate Change Service Information %d", now().Year())
	return c, nil
}

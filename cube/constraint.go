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
)

// Constraint selects cubes, and parts of cubes, from a CubeList.
type Constraint struct {
	// VarName, if set, must equal the variable name of the cube.
	VarName string

	// Coords maps coordinate names to point predicates. Only the
	// points of one-dimensional coordinates satisfying the predicate
	// are kept.
	Coords map[string]func(float64) bool
}

// VarNameConstraint returns a constraint matching cubes by variable name.
func VarNameConstraint(name string) Constraint { return Constraint{VarName: name} }

// CoordConstraint returns a constraint keeping the points of coordinate
// name that satisfy f.
func CoordConstraint(name string, f func(float64) bool) Constraint {
	return Constraint{Coords: map[string]func(float64) bool{name: f}}
}

// And combines constraints.
func And(cs ...Constraint) Constraint {
	o := Constraint{Coords: make(map[string]func(float64) bool)}
	for _, c := range cs {
		if c.VarName != "" {
			o.VarName = c.VarName
		}
		for k, f := range c.Coords {
			if g, ok := o.Coords[k]; ok {
				f, g := f, g
				o.Coords[k] = func(v float64) bool { return f(v) && g(v) }
			} else {
				o.Coords[k] = f
			}
		}
	}
	return o
}

// Extract applies the constraint to c, returning nil when nothing
// of the cube satisfies it.
func (con Constraint) Extract(c *Cube) (*Cube, error) {
	if con.VarName != "" && c.VarName != con.VarName {
		return nil, nil
	}
	names := make([]string, 0, len(con.Coords))
	for k := range con.Coords {
		names = append(names, k)
	}
	sort.Strings(names)
	out := c
	for _, name := range names {
		f := con.Coords[name]
		co, err := out.Coord(Name(name))
		if err != nil {
			return nil, nil
		}
		dims, err := out.CoordDims(co)
		if err != nil {
			return nil, err
		}
		var keep []int
		for i, v := range co.Points.Elements {
			if f(v) {
				keep = append(keep, i)
			}
		}
		if len(keep) == 0 {
			return nil, nil
		}
		switch len(dims) {
		case 0:
			continue
		case 1:
			if len(keep) == co.Len() {
				continue
			}
			if out, err = out.Subset(dims[0], keep); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("cube: cannot constrain on multi-dimensional coordinate %s", name)
		}
	}
	return out, nil
}

// Extract returns the cubes, or parts of cubes, satisfying con.
func (cl CubeList) Extract(con Constraint) (CubeList, error) {
	var o CubeList
	for _, c := range cl {
		e, err := con.Extract(c)
		if err != nil {
			return nil, err
		}
		if e != nil {
			o = append(o, e)
		}
	}
	return o, nil
}

// ExtractStrict returns the single cube satisfying con.
func (cl CubeList) ExtractStrict(con Constraint) (*Cube, error) {
	o, err := cl.Extract(con)
	if err != nil {
		return nil, err
	}
	if len(o) != 1 {
		return nil, fmt.Errorf("cube: got %d cubes matching constraint, expected one", len(o))
	}
	return o[0], nil
}

// ByVarName returns the cubes with the given variable name.
func (cl CubeList) ByVarName(name string) CubeList {
	var o CubeList
	for _, c := range cl {
		if c.VarName == name {
			o = append(o, c)
		}
	}
	return o
}

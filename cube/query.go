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
	"strings"
)

// Query selects coordinates. Empty fields match anything.
type Query struct {
	// Name matches the standard name, long name or variable name.
	Name         string
	StandardName string
	LongName     string
	VarName      string

	// Axis matches the guessed CF axis: X, Y, Z or T.
	Axis string

	// DimOnly restricts the query to dimension coordinates.
	DimOnly bool

	// Dim, if not nil, restricts the query to coordinates spanning
	// the given data dimension.
	Dim *int
}

func (q Query) matches(c *Coord) bool {
	if q.Name != "" && q.Name != c.StandardName && q.Name != c.LongName && q.Name != c.VarName {
		return false
	}
	if q.StandardName != "" && q.StandardName != c.StandardName {
		return false
	}
	if q.LongName != "" && q.LongName != c.LongName {
		return false
	}
	if q.VarName != "" && q.VarName != c.VarName {
		return false
	}
	if q.Axis != "" && !strings.EqualFold(q.Axis, c.Axis()) {
		return false
	}
	return true
}

func (q Query) String() string {
	var s []string
	add := func(k, v string) {
		if v != "" {
			s = append(s, fmt.Sprintf("%s=%q", k, v))
		}
	}
	add("name", q.Name)
	add("standard_name", q.StandardName)
	add("long_name", q.LongName)
	add("var_name", q.VarName)
	add("axis", q.Axis)
	if q.DimOnly {
		s = append(s, "dim_coords")
	}
	if q.Dim != nil {
		s = append(s, fmt.Sprintf("dim=%d", *q.Dim))
	}
	return strings.Join(s, " ")
}

// Name returns a query matching any of the names of a coordinate.
func Name(name string) Query { return Query{Name: name} }

// VarName returns a query matching the variable name of a coordinate.
func VarName(name string) Query { return Query{VarName: name} }

// CoordinateNotFoundError is returned when no coordinate matches a query.
type CoordinateNotFoundError struct {
	Cube  string
	Query Query
}

func (e *CoordinateNotFoundError) Error() string {
	return fmt.Sprintf("cube: no coordinate matching %s in %s", e.Query, e.Cube)
}

// CoordinateMultipleError is returned when a query expected to match a
// single coordinate matches several.
type CoordinateMultipleError struct {
	Cube  string
	Query Query
	N     int
}

func (e *CoordinateMultipleError) Error() string {
	return fmt.Sprintf("cube: %d coordinates matching %s in %s, expected one", e.N, e.Query, e.Cube)
}

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
	"errors"
	"fmt"

	"github.com/spatialmodel/cmorfix"
	"github.com/spatialmodel/cmorfix/cmor"
	"github.com/spatialmodel/cmorfix/cube"
	"github.com/spatialmodel/cmorfix/units"
)

// ACCESS10AllVars sets the calendar of time coordinates in the standard
// calendar, including those declared as "gregorian", to
// "proleptic_gregorian". Time values are not changed.
func ACCESS10AllVars(v *cmor.VariableInfo) cmorfix.Fix {
	h := &cmorfix.Hooks{Base: cmorfix.NewBase(v)}
	h.Metadata = func(cubes cube.CubeList) (cube.CubeList, error) {
		for _, c := range cubes {
			t, err := c.Coord(cube.Name("time"))
			if err != nil {
				var nf *cube.CoordinateNotFoundError
				if errors.As(err, &nf) {
					continue
				}
				return nil, fmt.Errorf("cmip5: %w", err)
			}
			if !t.Units.IsTimeReference() || !units.SameCalendar(t.Units.Calendar(), units.Standard) {
				continue
			}
			if t.Units, err = t.Units.WithCalendar(units.ProlepticGregorian); err != nil {
				return nil, fmt.Errorf("cmip5: %w", err)
			}
		}
		return cubes, nil
	}
	return h
}

// ACCESS10Cl removes the attributes of the b(k) formula term of the
// hybrid levels.
func ACCESS10Cl(v *cmor.VariableInfo) cmorfix.Fix {
	h := &cmorfix.Hooks{Base: cmorfix.NewBase(v)}
	h.Metadata = func(cubes cube.CubeList) (cube.CubeList, error) {
		c, err := h.Cube(cubes)
		if err != nil {
			return nil, err
		}
		b, err := c.Coord(cube.Query{LongName: "vertical coordinate formula term: b(k)"})
		if err != nil {
			return nil, fmt.Errorf("cmip5: %w", err)
		}
		b.Attributes = make(map[string]interface{})
		return cubes, nil
	}
	return h
}

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
	"github.com/spatialmodel/cmorfix/fixes/cmip5"
)

// CNRMCM61Cl fixes the hybrid levels like CanESM2 cl files and guesses
// missing latitude and longitude bounds.
var CNRMCM61Cl = cmorfix.Compose("cmip6.CNRMCM61Cl", cmip5.CanESM2Cl, guessHorizontalBounds)

func guessHorizontalBounds(v *cmor.VariableInfo) cmorfix.Fix {
	h := &cmorfix.Hooks{Base: cmorfix.NewBase(v)}
	h.Metadata = func(cubes cube.CubeList) (cube.CubeList, error) {
		c, err := h.Cube(cubes)
		if err != nil {
			return nil, err
		}
		for _, name := range []string{"latitude", "longitude"} {
			co, err := c.Coord(cube.Name(name))
			if err != nil {
				return nil, fmt.Errorf("cmip6: %w", err)
			}
			if co.HasBounds() {
				continue
			}
			if err := co.GuessBounds(); err != nil {
				return nil, fmt.Errorf("cmip6: %w", err)
			}
		}
		return cubes, nil
	}
	return h
}

// MIROC6Cl fixes the hybrid levels like bcc-csm1-1 cl files and removes
// the attributes of the surface air pressure coordinate.
var MIROC6Cl = cmorfix.Compose("cmip6.MIROC6Cl", cmip5.BccCl, clearAttributes("Surface Air Pressure"))

// clearAttributes returns a factory for fixes that remove the attributes
// of the coordinate with the given long name.
func clearAttributes(longName string) cmorfix.Factory {
	return func(v *cmor.VariableInfo) cmorfix.Fix {
		h := &cmorfix.Hooks{Base: cmorfix.NewBase(v)}
		h.Metadata = func(cubes cube.CubeList) (cube.CubeList, error) {
			c, err := h.Cube(cubes)
			if err != nil {
				return nil, err
			}
			co, err := c.Coord(cube.Query{LongName: longName})
			if err != nil {
				return nil, fmt.Errorf("cmip6: %w", err)
			}
			co.Attributes = make(map[string]interface{})
			return cubes, nil
		}
		return h
	}
}

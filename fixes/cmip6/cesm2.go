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
	"github.com/spatialmodel/cmorfix/ncio"
)

// CESM2Cl writes a copy of cl files in which lev is declared as a
// hybrid sigma pressure coordinate, so that air pressure is derived
// when the file is loaded.
func CESM2Cl(v *cmor.VariableInfo) cmorfix.Fix {
	h := &cmorfix.Hooks{Base: cmorfix.NewBase(v)}
	h.File = func(path, outputDir string) (string, error) {
		out := h.FixedFilePath(outputDir, path)
		err := ncio.Rewrite(path, out, func(ds *ncio.Dataset) error {
			lev := ds.Var("lev")
			if lev == nil {
				return fmt.Errorf("no variable 'lev' found")
			}
			lev.Attributes.Set("standard_name", "atmosphere_hybrid_sigma_pressure_coordinate")
			lev.Attributes.Set("formula_terms", "p0: p0 a: a b: b ps: ps")
			return nil
		})
		if err != nil {
			return "", fmt.Errorf("cmip6: %w", err)
		}
		return out, nil
	}
	return h
}

// scalarFix returns a factory for fixes that add a scalar coordinate to
// the variable's cube with add.
func scalarFix(add func(*cube.Cube) error) cmorfix.Factory {
	return func(v *cmor.VariableInfo) cmorfix.Fix {
		h := &cmorfix.Hooks{Base: cmorfix.NewBase(v)}
		h.Metadata = func(cubes cube.CubeList) (cube.CubeList, error) {
			c, err := h.Cube(cubes)
			if err != nil {
				return nil, err
			}
			if err := add(c); err != nil {
				return nil, err
			}
			return cubes, nil
		}
		return h
	}
}

var (
	// CESM2Fgco2 adds a depth coordinate of 0 m.
	CESM2Fgco2 = scalarFix(func(c *cube.Cube) error { return cmorfix.AddScalarDepthCoord(c, 0) })

	// CESM2Tas adds a height coordinate of 2 m.
	CESM2Tas = scalarFix(func(c *cube.Cube) error { return cmorfix.AddScalarHeightCoord(c, 2) })

	// CESM2Sftlf adds a land area_type coordinate.
	CESM2Sftlf = scalarFix(func(c *cube.Cube) error { return cmorfix.AddScalarTypelandCoord(c, "default") })

	// CESM2Sftof adds an ocean area_type coordinate.
	CESM2Sftof = scalarFix(func(c *cube.Cube) error { return cmorfix.AddScalarTypeseaCoord(c, "default") })
)

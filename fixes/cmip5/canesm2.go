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
	"github.com/spatialmodel/cmorfix"
	"github.com/spatialmodel/cmorfix/cmor"
	"github.com/spatialmodel/cmorfix/cube"
)

// CanESM2Cl declares the hybrid levels of CanESM2 cloud fraction files
// with the terms ap, b and ps.
func CanESM2Cl(v *cmor.VariableInfo) cmorfix.Fix {
	h := &cmorfix.Hooks{Base: cmorfix.NewBase(v)}
	h.File = HybridPressureFile(h.Base, false)
	return h
}

// carbonPerCO2 is the ratio of the molar masses of C and CO2.
const carbonPerCO2 = 12.0 / 44.0

// CanESM2FgCo2 converts the CO2 flux, which is stored as mass of CO2,
// to the declared mass of carbon.
func CanESM2FgCo2(v *cmor.VariableInfo) cmorfix.Fix {
	h := &cmorfix.Hooks{Base: cmorfix.NewBase(v)}
	h.Data = func(c *cube.Cube) (*cube.Cube, error) {
		for i, x := range c.Data.Elements {
			c.Data.Elements[i] = x * carbonPerCO2
		}
		return c, nil
	}
	return h
}

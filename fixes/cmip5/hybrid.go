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
	"fmt"

	"github.com/spatialmodel/cmorfix"
	"github.com/spatialmodel/cmorfix/ncio"
)

const hybridSigmaPressure = "atmosphere_hybrid_sigma_pressure_coordinate"

// hybridPressure describes the formula terms of hybrid sigma pressure
// levels as they should appear in a file: p = ap + b*ps, or
// p = a*p0 + b*ps when there is a reference pressure.
type hybridPressure struct {
	// delta is the name of the variable of the first term, "ap" or "a".
	delta string
	p0    bool

	// deltaUnits, if set, is given to the delta variable when it has
	// no units.
	deltaUnits string
}

func (hp hybridPressure) formula(delta, b string) string {
	f := fmt.Sprintf("%s: %s b: %s ps: ps", hp.delta, delta, b)
	if hp.p0 {
		f = "p0: p0 " + f
	}
	return f
}

// fixFile writes a copy of the file at path to outputDir in which the
// lev variable is declared as a hybrid sigma pressure coordinate, with
// formula terms for both the levels and their bounds. The file is
// copied so that its level bounds are read correctly.
func (hp hybridPressure) fixFile(b cmorfix.Base, path, outputDir string) (string, error) {
	out := b.FixedFilePath(outputDir, path)
	err := ncio.Rewrite(path, out, func(ds *ncio.Dataset) error {
		lev := ds.Var("lev")
		if lev == nil {
			return fmt.Errorf("no variable 'lev' found")
		}
		lev.Attributes.Set("standard_name", hybridSigmaPressure)
		lev.Attributes.Set("formula_terms", hp.formula(hp.delta, "b"))

		var deltaBnds, bBnds string
		for _, suffix := range []string{"_bnds", "_bounds"} {
			if ds.Var(hp.delta+suffix) != nil && ds.Var("b"+suffix) != nil {
				deltaBnds, bBnds = hp.delta+suffix, "b"+suffix
				break
			}
		}
		if deltaBnds == "" {
			return fmt.Errorf("no bounds for '%s' and 'b' found", hp.delta)
		}
		delta, sigma := ds.Var(hp.delta), ds.Var("b")
		if delta == nil || sigma == nil {
			return fmt.Errorf("no variables '%s' and 'b' found", hp.delta)
		}
		if hp.deltaUnits != "" && !delta.Attributes.Has("units") {
			delta.Attributes.Set("units", hp.deltaUnits)
		}
		delta.Attributes.Set("bounds", deltaBnds)
		sigma.Attributes.Set("bounds", bBnds)

		levBnds := ds.FirstVar("lev_bnds", "lev_bounds")
		if levBnds == nil {
			return fmt.Errorf("no bounds for 'lev' found")
		}
		levBnds.Attributes.Set("formula_terms", hp.formula(deltaBnds, bBnds))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("cmip5: fixing hybrid levels of %s: %w", path, err)
	}
	b.Log.WithField("path", out).Debug("fixed hybrid sigma pressure levels")
	return out, nil
}

// HybridPressureFile returns a file fix for hybrid sigma pressure
// levels with the terms ap and b, or a, b and p0 when withP0 is true.
// It is shared with the fixes of other projects.
func HybridPressureFile(b cmorfix.Base, withP0 bool) func(path, outputDir string) (string, error) {
	hp := hybridPressure{delta: "ap", deltaUnits: "Pa"}
	if withP0 {
		hp = hybridPressure{delta: "a", p0: true}
	}
	return func(path, outputDir string) (string, error) {
		return hp.fixFile(b, path, outputDir)
	}
}

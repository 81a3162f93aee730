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

// Package cmip5 holds the fixes for CMIP5 datasets.
package cmip5

import (
	"github.com/spatialmodel/cmorfix"
)

// Project is the name of the project the fixes apply to.
const Project = "CMIP5"

type entry struct {
	dataset, shortName, name string
	factory                  cmorfix.Factory
}

var entries = []entry{
	{"ACCESS1-0", cmorfix.AllVars, "cmip5.ACCESS10AllVars", ACCESS10AllVars},
	{"ACCESS1-0", "cl", "cmip5.ACCESS10Cl", ACCESS10Cl},
	{"bcc-csm1-1", "cl", "cmip5.BccCl", BccCl},
	{"bcc-csm1-1", "tos", "cmip5.BccTos", BccTos},
	{"CanESM2", "cl", "cmip5.CanESM2Cl", CanESM2Cl},
	{"CanESM2", "fgco2", "cmip5.CanESM2FgCo2", CanESM2FgCo2},
}

// Register adds the CMIP5 fixes to r.
func Register(r *cmorfix.Registry) error {
	for _, e := range entries {
		k := cmorfix.Key{Project: Project, Dataset: e.dataset, ShortName: e.shortName}
		if err := r.Register(k, e.name, e.factory); err != nil {
			return err
		}
	}
	return nil
}

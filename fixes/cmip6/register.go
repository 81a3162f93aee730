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

// Package cmip6 holds the fixes for CMIP6 datasets.
package cmip6

import (
	"github.com/spatialmodel/cmorfix"
	"github.com/spatialmodel/cmorfix/fixes/cmip5"
)

// Project is the name of the project the fixes apply to.
const Project = "CMIP6"

type entry struct {
	dataset, shortName, name string
	factory                  cmorfix.Factory
}

var entries = []entry{
	{"CESM2", "cl", "cmip6.CESM2Cl", CESM2Cl},
	{"CESM2", "fgco2", "cmip6.CESM2Fgco2", CESM2Fgco2},
	{"CESM2", "sftlf", "cmip6.CESM2Sftlf", CESM2Sftlf},
	{"CESM2", "sftof", "cmip6.CESM2Sftof", CESM2Sftof},
	{"CESM2", "tas", "cmip6.CESM2Tas", CESM2Tas},
	{"CESM2-WACCM", "cl", "cmip5.BccCl", cmip5.BccCl},
	{"CESM2-WACCM", "tas", "cmip6.CESM2Tas", CESM2Tas},
	{"CNRM-CM6-1", "cl", "cmip6.CNRMCM61Cl", CNRMCM61Cl},
	{"HadGEM3-GC31-LL", cmorfix.AllVars, "cmip6.HadGEM3AllVars", HadGEM3AllVars},
	{"MIROC6", "cl", "cmip6.MIROC6Cl", MIROC6Cl},
	{"UKESM1-0-LL", cmorfix.AllVars, "cmip6.HadGEM3AllVars", HadGEM3AllVars},
	{"UKESM1-0-LL", "cl", "cmip6.UKESM10LLCl", UKESM10LLCl},
}

// Register adds the CMIP6 fixes to r.
func Register(r *cmorfix.Registry) error {
	for _, e := range entries {
		k := cmorfix.Key{Project: Project, Dataset: e.dataset, ShortName: e.shortName}
		if err := r.Register(k, e.name, e.factory); err != nil {
			return err
		}
	}
	return nil
}

// Alternatives returns fixes that can replace registered ones with
// Registry.Override. CESM2-WACCM cl files can be fixed like CESM2 ones,
// without declaring the bounds of the hybrid levels.
func Alternatives() []cmorfix.Entry {
	return []cmorfix.Entry{
		{
			Key:     cmorfix.Key{Project: Project, Dataset: "CESM2-WACCM", ShortName: "cl"}.Normalize(),
			Name:    "cmip6.CESM2Cl",
			Factory: CESM2Cl,
		},
	}
}

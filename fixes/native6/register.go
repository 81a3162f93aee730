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

// Package native6 holds the fixes for reanalysis data in its native
// format, currently ERA5 from the Copernicus Climate Change Service.
package native6

import "github.com/spatialmodel/cmorfix"

// Project is the name of the project the fixes apply to.
const Project = "native6"

// Dataset is the name of the ERA5 dataset.
const Dataset = "ERA5"

var entries = []struct {
	shortName, name string
	factory         cmorfix.Factory
}{
	{cmorfix.AllVars, "native6.ERA5AllVars", AllVars},
	{"evspsbl", "native6.ERA5Evspsbl", Evspsbl},
	{"evspsblpot", "native6.ERA5Evspsblpot", Evspsblpot},
	{"mrro", "native6.ERA5Mrro", Mrro},
	{"orog", "native6.ERA5Orog", Orog},
	{"pr", "native6.ERA5Pr", Pr},
	{"prsn", "native6.ERA5Prsn", Prsn},
	{"rls", "native6.ERA5Rls", Rls},
	{"rsds", "native6.ERA5Rsds", Rsds},
	{"rsdt", "native6.ERA5Rsdt", Rsdt},
	{"rss", "native6.ERA5Rss", Rss},
	{"tasmax", "native6.ERA5Tasmax", Tasmax},
	{"tasmin", "native6.ERA5Tasmin", Tasmin},
}

// Register adds the ERA5 fixes to r.
func Register(r *cmorfix.Registry) error {
	for _, e := range entries {
		k := cmorfix.Key{Project: Project, Dataset: Dataset, ShortName: e.shortName}
		if err := r.Register(k, e.name, e.factory); err != nil {
			return err
		}
	}
	return nil
}

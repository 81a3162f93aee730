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

package cmorfixutil

import (
	"context"
	"os"

	"github.com/spatialmodel/cmorfix/cloud"
	"github.com/spatialmodel/cmorfix/cmor"
	"github.com/spatialmodel/cmorfix/regrid"
)

// Levels returns the vertical levels named by spec, which is either a
// CMOR coordinate such as "CMIP6_plev19" or a NetCDF file.
func Levels(ctx context.Context, catalog *cmor.Catalog, spec string) ([]float64, error) {
	if !isFile(spec) {
		return regrid.CMORLevels(catalog, spec)
	}
	dir, err := os.MkdirTemp("", "cmorfix")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)
	local, err := cloud.Download(ctx, spec, dir)
	if err != nil {
		return nil, err
	}
	return regrid.ReferenceLevels(local, nil, "")
}

func isFile(path string) bool {
	if cloud.IsRemote(path) {
		return true
	}
	_, err := os.Stat(path)
	return err == nil
}

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

// Command cmorfix is a command-line interface for fixing CMIP and ERA5
// climate data files.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/cmorfix/cmorfixutil"
)

func main() {
	if err := cmorfixutil.Root.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

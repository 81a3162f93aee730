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

// Package fixes assembles the registry of all built-in fixes.
package fixes

import (
	"github.com/spatialmodel/cmorfix"
	"github.com/spatialmodel/cmorfix/fixes/cmip5"
	"github.com/spatialmodel/cmorfix/fixes/cmip6"
	"github.com/spatialmodel/cmorfix/fixes/native6"
)

var projects = []func(*cmorfix.Registry) error{
	cmip5.Register,
	cmip6.Register,
	native6.Register,
}

// Default returns a registry holding the fixes of every project.
func Default() (*cmorfix.Registry, error) {
	r := cmorfix.NewRegistry()
	for _, register := range projects {
		if err := register(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Alternatives returns the fixes that can replace the defaults with
// Registry.Override.
func Alternatives() []cmorfix.Entry {
	return cmip6.Alternatives()
}

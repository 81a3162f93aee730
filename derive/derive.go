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

// Package derive computes variables that are not part of the input data
// from the variables they depend on.
package derive

import (
	"fmt"
	"sort"
	"sync"

	"github.com/spatialmodel/cmorfix/cube"
)

// Requirement is an input variable a derivation needs.
type Requirement struct {
	ShortName string

	// MIP, if set, is the table to take the variable from.
	MIP string

	// Optional inputs may be missing.
	Optional bool
}

// Derivation computes a variable from other variables.
type Derivation interface {
	// Required returns the variables the derivation needs for
	// data of project.
	Required(project string) []Requirement

	// Calculate derives the variable from cubes holding the required
	// variables.
	Calculate(cubes cube.CubeList) (*cube.Cube, error)
}

var (
	mu          sync.RWMutex
	derivations = make(map[string]Derivation)
)

func init() {
	for name, d := range map[string]Derivation{
		"mblc_fraction": MBLCFraction{},
		"rtnt":          MustExpression("rtnt", "rsdt - rsut - rlut", "W m-2"),
		"rsnt":          MustExpression("rsnt", "rsdt - rsut", "W m-2"),
	} {
		if err := Register(name, d); err != nil {
			panic(err)
		}
	}
}

// Register makes d available under name. Names can only be registered
// once.
func Register(name string, d Derivation) error {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := derivations[name]; ok {
		return fmt.Errorf("derive: derivation %s is already registered", name)
	}
	derivations[name] = d
	return nil
}

// Get returns the derivation registered under name.
func Get(name string) (Derivation, error) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := derivations[name]
	if !ok {
		return nil, fmt.Errorf("derive: unknown derived variable %s", name)
	}
	return d, nil
}

// Names returns the names of the registered derivations in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	o := make([]string, 0, len(derivations))
	for name := range derivations {
		o = append(o, name)
	}
	sort.Strings(o)
	return o
}

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

package cmor

import (
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
)

// customTable is the TOML form of a table of variables that are not
// part of any project's standard tables, typically derived variables.
//
//	[variables.rls]
//	standard_name = "surface_net_downward_longwave_flux"
//	units = "W m-2"
//	dimensions = ["longitude", "latitude", "time"]
type customTable struct {
	Frequency string
	Variables map[string]struct {
		StandardName string   `toml:"standard_name"`
		LongName     string   `toml:"long_name"`
		Units        string   `toml:"units"`
		Positive     string   `toml:"positive"`
		Frequency    string   `toml:"frequency"`
		Dimensions   []string `toml:"dimensions"`
	}
}

// readCustom adds the variables of a custom TOML table to the table
// named name of p.
func readCustom(p *Project, name string, r io.Reader) error {
	var ct customTable
	if _, err := toml.DecodeReader(r, &ct); err != nil {
		return fmt.Errorf("cmor: reading custom table %s: %w", name, err)
	}
	t, ok := p.Tables[name]
	if !ok {
		t = &Table{Name: name, Frequency: ct.Frequency, Variables: make(map[string]*VariableInfo)}
		p.Tables[name] = t
	}
	for short, v := range ct.Variables {
		freq := v.Frequency
		if freq == "" {
			freq = ct.Frequency
		}
		t.Variables[short] = &VariableInfo{
			Table:        name,
			ShortName:    short,
			StandardName: v.StandardName,
			LongName:     v.LongName,
			Units:        v.Units,
			Positive:     v.Positive,
			Frequency:    freq,
			Dimensions:   v.Dimensions,
		}
	}
	return nil
}

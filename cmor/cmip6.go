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
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

type cmip6Table struct {
	Header struct {
		TableID   string `json:"table_id"`
		Realm     string `json:"realm"`
		Frequency string `json:"frequency"`
	} `json:"Header"`
	Variables map[string]cmip6Variable   `json:"variable_entry"`
	Axes      map[string]cmip6Coordinate `json:"axis_entry"`
}

type cmip6Variable struct {
	Frequency    string `json:"frequency"`
	Realm        string `json:"modeling_realm"`
	StandardName string `json:"standard_name"`
	LongName     string `json:"long_name"`
	Units        string `json:"units"`
	Positive     string `json:"positive"`
	Dimensions   string `json:"dimensions"`
	OutName      string `json:"out_name"`
}

type cmip6Coordinate struct {
	Axis            string      `json:"axis"`
	StandardName    string      `json:"standard_name"`
	LongName        string      `json:"long_name"`
	OutName         string      `json:"out_name"`
	Units           string      `json:"units"`
	Positive        string      `json:"positive"`
	StoredDirection string      `json:"stored_direction"`
	MustHaveBounds  string      `json:"must_have_bounds"`
	Requested       interface{} `json:"requested"`
	Value           string      `json:"value"`
}

// requested handles both the list and the (empty) string forms used in
// the tables.
func (c cmip6Coordinate) requested() []string {
	switch r := c.Requested.(type) {
	case []interface{}:
		var o []string
		for _, v := range r {
			if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
				o = append(o, s)
			}
		}
		return o
	case string:
		return strings.Fields(r)
	}
	return nil
}

// readCMIP6 adds the contents of a CMIP6 JSON table to p. Coordinate
// files only hold an "axis_entry" section.
func readCMIP6(p *Project, r io.Reader) error {
	var t cmip6Table
	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return fmt.Errorf("cmor: reading CMIP6 table: %w", err)
	}
	for name, a := range t.Axes {
		p.Coordinates[name] = &CoordinateInfo{
			Name:            name,
			Axis:            a.Axis,
			StandardName:    a.StandardName,
			LongName:        a.LongName,
			OutName:         a.OutName,
			Units:           a.Units,
			Positive:        a.Positive,
			StoredDirection: a.StoredDirection,
			MustHaveBounds:  a.MustHaveBounds,
			Requested:       a.requested(),
			Value:           a.Value,
		}
	}
	if len(t.Variables) == 0 {
		return nil
	}
	name := strings.TrimSpace(strings.TrimPrefix(t.Header.TableID, "Table "))
	if name == "" {
		return fmt.Errorf("cmor: CMIP6 table without table_id")
	}
	table := &Table{
		Name:      name,
		Frequency: t.Header.Frequency,
		Realm:     t.Header.Realm,
		Variables: make(map[string]*VariableInfo, len(t.Variables)),
	}
	for short, v := range t.Variables {
		freq := v.Frequency
		if freq == "" {
			freq = table.Frequency
		}
		table.Variables[short] = &VariableInfo{
			Table:        name,
			ShortName:    short,
			StandardName: v.StandardName,
			LongName:     v.LongName,
			Units:        v.Units,
			Frequency:    freq,
			Positive:     v.Positive,
			Dimensions:   strings.Fields(v.Dimensions),
		}
	}
	p.Tables[name] = table
	return nil
}
